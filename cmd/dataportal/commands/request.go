package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/dataportal/internal/apiclient"
	"github.com/florianilch/dataportal/internal/app"
	"github.com/florianilch/dataportal/internal/subscription"
)

func requestCommand() *cli.Command {
	return &cli.Command{
		Name:      "request",
		Usage:     "send an authenticated request to the data API",
		ArgsUsage: "METHOD PATH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON request body",
			},
			&cli.StringSliceFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "query parameter as key=value (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   "request header as key=value (repeatable)",
			},
		},
		Action: withApp(requestAction),
	}
}

func requestAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	if cmd.NArg() != 2 {
		return errors.New("expected METHOD and PATH arguments")
	}
	method := strings.ToUpper(cmd.Args().Get(0))
	path := cmd.Args().Get(1)

	var body any
	if data := cmd.String("data"); data != "" {
		if !json.Valid([]byte(data)) {
			return errors.New("--data is not valid JSON")
		}
		body = json.RawMessage(data)
	}

	var opts []apiclient.RequestOption

	query, err := parsePairs("query", cmd.StringSlice("query"))
	if err != nil {
		return err
	}
	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		opts = append(opts, apiclient.WithQuery(values))
	}

	headers, err := parsePairs("header", cmd.StringSlice("header"))
	if err != nil {
		return err
	}
	for k, v := range headers {
		opts = append(opts, apiclient.WithHeader(k, v))
	}

	raw, err := application.API().Request(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	return printRawJSON(cmd.Root().Writer, raw)
}

func subscriptionCommand() *cli.Command {
	return &cli.Command{
		Name:  "subscription",
		Usage: "show an organization's subscription",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "org",
				Usage:    "organization ID",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "keep polling until interrupted",
			},
			&cli.DurationFlag{
				Name:  "subscription--poll-interval",
				Usage: "polling interval with --watch",
				Value: app.DefaultConfigPollInterval,
			},
		},
		Action: withApp(subscriptionAction),
	}
}

func subscriptionAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	org := cmd.String("org")
	w := cmd.Root().Writer

	if !cmd.Bool("watch") {
		sub, err := application.Subscriptions().Get(ctx, org)
		if err != nil {
			return err
		}
		if sub == nil {
			return errors.New("subscription lookup suppressed after repeated failures")
		}
		return printJSON(w, sub)
	}

	var printErr error
	application.Subscriptions().Watch(ctx, org, application.Config().Subscription.PollInterval, func(u subscription.Update) bool {
		switch {
		case u.Err != nil:
			// Already logged by Watch
			return true
		case u.Sub == nil:
			slog.WarnContext(ctx, "subscription poll suppressed", "org", org)
			return true
		}
		printErr = printJSON(w, u.Sub)
		return printErr == nil
	})
	return printErr
}
