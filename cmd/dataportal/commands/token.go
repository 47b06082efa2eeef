package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/dataportal/internal/app"
	"github.com/florianilch/dataportal/internal/authapi"
	"github.com/florianilch/dataportal/internal/tokenstore"
)

// tokenReport describes the cached token without revealing it.
type tokenReport struct {
	Storage   string        `json:"storage"`
	Opaque    bool          `json:"opaque"`
	Claims    jwt.MapClaims `json:"claims,omitempty"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
	Expired   bool          `json:"expired"`
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "manage the cached bearer token",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "describe the cached token (claims are not verified)",
				Action: withApp(tokenShowAction),
			},
			{
				Name:      "set",
				Usage:     "store a bearer token (prompted when omitted)",
				ArgsUsage: "[TOKEN]",
				Action:    withApp(tokenSetAction),
			},
			{
				Name:   "clear",
				Usage:  "remove the cached token",
				Action: withApp(tokenClearAction),
			},
			{
				Name:   "refresh",
				Usage:  "obtain a new token from the auth service",
				Action: withApp(tokenRefreshAction),
			},
		},
	}
}

func tokenShowAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	w := cmd.Root().Writer

	token, err := application.Store().Read(ctx)
	if errors.Is(err, tokenstore.ErrNoToken) {
		_, err = fmt.Fprintln(w, "no token cached")
		return err
	}
	if err != nil {
		return fmt.Errorf("reading token: %w", err)
	}

	return printJSON(w, describeToken(token, string(application.Config().Auth.Storage), time.Now()))
}

// describeToken decodes JWT claims without verifying the signature. Tokens
// that are not JWTs are reported as opaque.
func describeToken(raw, storage string, now time.Time) tokenReport {
	report := tokenReport{Storage: storage}

	parsed, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		report.Opaque = true
		return report
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		report.Opaque = true
		return report
	}
	report.Claims = claims

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		report.ExpiresAt = &exp.Time
		report.Expired = now.After(exp.Time)
	}
	return report
}

func tokenSetAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	token := cmd.Args().First()
	if token == "" {
		var err error
		token, err = readSecret(cmd, "Token: ")
		if err != nil {
			return err
		}
	}
	if token == "" {
		return errors.New("empty token")
	}

	if err := application.Store().Write(ctx, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	_, err := fmt.Fprintln(cmd.Root().Writer, "token stored")
	return err
}

func tokenClearAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	if err := application.Store().Clear(ctx); err != nil {
		return fmt.Errorf("clearing token: %w", err)
	}
	_, err := fmt.Fprintln(cmd.Root().Writer, "token cleared")
	return err
}

func tokenRefreshAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	token, err := application.Auth().Refresh(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd.Root().Writer, describeToken(token.AccessToken, string(application.Config().Auth.Storage), time.Now()))
}

func upgradeCommand() *cli.Command {
	return &cli.Command{
		Name:  "upgrade",
		Usage: "convert the current anonymous session into a full account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "account email",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "display name",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "account password (prompted when omitted)",
			},
		},
		Action: withApp(upgradeAction),
	}
}

func upgradeAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	password := cmd.String("password")
	if password == "" {
		var err error
		password, err = readSecret(cmd, "Password: ")
		if err != nil {
			return err
		}
	}

	user, err := application.Auth().UpgradeAnonymous(ctx, authapi.UpgradeRequest{
		Email:    cmd.String("email"),
		Name:     cmd.String("name"),
		Password: password,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.Root().Writer, user)
}
