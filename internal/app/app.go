package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/florianilch/dataportal/internal/apiclient"
	"github.com/florianilch/dataportal/internal/authapi"
	"github.com/florianilch/dataportal/internal/gateway"
	"github.com/florianilch/dataportal/internal/retryguard"
	"github.com/florianilch/dataportal/internal/subscription"
	"github.com/florianilch/dataportal/internal/tokenstore"
)

// App wires the API clients, the session gate and the console gateway
// and orchestrates their lifecycle.
type App struct {
	cfg     *Config
	store   tokenstore.TokenStore
	api     *apiclient.Client
	auth    *authapi.Client
	tokens  *authapi.TokenSource
	subs    *subscription.Fetcher
	gateway *gateway.Gateway
}

// New creates a new App instance. No I/O is performed.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.NewTokenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create token store: %w", err)
	}

	// The clients and the gateway share one origin, so they share the session cookies too
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	api, err := apiclient.New(cfg.API.BaseURL, store, apiclient.WithCookieJar(jar))
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	authHTTP, err := apiclient.New(cfg.Auth.BaseURL, store, apiclient.WithCookieJar(jar))
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}

	auth, err := authapi.New(authHTTP, store)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth api: %w", err)
	}

	guard := retryguard.New(
		retryguard.WithMaxAttempts(cfg.Retry.MaxAttempts),
		retryguard.WithCooldown(cfg.Retry.Cooldown),
	)
	subs := subscription.NewFetcher(api, guard)

	gw, err := gateway.New(cfg.API.BaseURL, store, auth, subs,
		gateway.WithPaths(cfg.Routes.Paths()),
		gateway.WithAdminPath(cfg.Routes.Admin),
		gateway.WithCookieJar(jar),
		gateway.WithPollInterval(cfg.Subscription.PollInterval),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway: %w", err)
	}

	return &App{
		cfg:     cfg,
		store:   store,
		api:     api,
		auth:    auth,
		tokens:  authapi.NewTokenSource(auth),
		subs:    subs,
		gateway: gw,
	}, nil
}

// Config returns the validated configuration.
func (a *App) Config() *Config { return a.cfg }

// Store returns the token cache.
func (a *App) Store() tokenstore.TokenStore { return a.store }

// API returns the data API client.
func (a *App) API() *apiclient.Client { return a.api }

// Auth returns the auth service client.
func (a *App) Auth() *authapi.Client { return a.auth }

// Subscriptions returns the guarded subscription fetcher.
func (a *App) Subscriptions() *subscription.Fetcher { return a.subs }

// Gateway returns the console gateway.
func (a *App) Gateway() *gateway.Gateway { return a.gateway }

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	a.warmToken(ctx)

	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)
	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting gateway", "address", address, "upstream", a.cfg.API.BaseURL)
	gatewayErrCh, err := a.gateway.Start(gCtx, address)
	if err != nil {
		return fmt.Errorf("gateway startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.gateway.Shutdown)

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-gatewayErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "gateway runtime error", "error", err)
				return fmt.Errorf("gateway: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	// Shutdown phase: Stop all services
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}

// warmToken makes sure a bearer token is cached before serving.
// Failure is not fatal: the gateway still works with cookie sessions.
func (a *App) warmToken(ctx context.Context) {
	tok, err := a.tokens.TokenContext(ctx)
	if err != nil {
		slog.InfoContext(ctx, "no bearer token available, continuing with cookie session", "error", err)
		return
	}
	slog.DebugContext(ctx, "bearer token ready", "type", tok.Type())
}
