package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/florianilch/dataportal/internal/app"
	"github.com/florianilch/dataportal/internal/gate"
	"github.com/florianilch/dataportal/internal/subscription"
)

// guardReport is the outcome of one guard against the current session.
type guardReport struct {
	Decision string `json:"decision"`
	Target   string `json:"target,omitempty"`
}

type sessionErrorReport struct {
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
}

type sessionReport struct {
	Present        bool                       `json:"present"`
	Anonymous      bool                       `json:"anonymous"`
	Role           string                     `json:"role,omitempty"`
	ImpersonatedBy string                     `json:"impersonatedBy,omitempty"`
	Error          *sessionErrorReport        `json:"error,omitempty"`
	Guards         map[string]guardReport     `json:"guards"`
	Subscription   *subscription.Subscription `json:"subscription,omitempty"`
}

func sessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "show the current session and how each console guard decides",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "org",
				Usage: "also fetch this organization's subscription",
			},
		},
		Action: withApp(sessionAction),
	}
}

func sessionAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	var (
		view gate.SessionView
		sub  *subscription.Subscription
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		view = application.Auth().SessionView(gCtx)
		return nil
	})
	if org := cmd.String("org"); org != "" {
		g.Go(func() error {
			s, err := application.Subscriptions().Get(gCtx, org)
			if err != nil {
				return fmt.Errorf("fetching subscription: %w", err)
			}
			sub = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return printJSON(cmd.Root().Writer, buildSessionReport(view, sub, application.Config().Routes.Paths()))
}

func buildSessionReport(view gate.SessionView, sub *subscription.Subscription, paths gate.Paths) sessionReport {
	report := sessionReport{
		Present:        view.Present,
		Anonymous:      view.Anonymous,
		Role:           view.Role,
		ImpersonatedBy: view.ImpersonatedBy,
		Guards:         make(map[string]guardReport, 3),
		Subscription:   sub,
	}
	if view.Error != nil {
		report.Error = &sessionErrorReport{Message: view.Error.Message, Status: view.Error.Status}
	}

	for _, kind := range []gate.GuardKind{gate.Auth, gate.Admin, gate.Guest} {
		decision := gate.Decide(kind, view)
		gr := guardReport{Decision: decision.String()}
		if decision.Kind == gate.Redirect {
			gr.Target = paths.Resolve(decision.Destination)
		}
		report.Guards[kind.String()] = gr
	}
	return report
}
