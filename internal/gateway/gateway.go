package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/go-chi/httplog/v3"

	"github.com/florianilch/dataportal/internal/apiclient"
	"github.com/florianilch/dataportal/internal/gate"
	"github.com/florianilch/dataportal/internal/subscription"
)

// DefaultPaths are the console routes used as redirect targets.
var DefaultPaths = gate.Paths{
	Login:     "/console/login",
	Dashboard: "/console/dashboard",
	GuestHome: "/console/dashboard",
}

// DefaultPollInterval is the subscription poll period of the event stream.
const DefaultPollInterval = 10 * time.Second

// allowedHeaders are the inbound headers forwarded to the data API. Browser
// cookies are not among them: upstream cookies live in the gateway's jar.
var allowedHeaders = map[string]bool{
	"Accept":          true,
	"Accept-Encoding": true,
	"Accept-Language": true,
	"Authorization":   true,
	"Content-Type":    true,
	"Content-Length":  true,
	"If-Match":        true,
	"If-None-Match":   true,

	// W3C Trace Context for distributed tracing correlation.
	"Traceparent": true,
	"Tracestate":  true,
}

// Option configures a Gateway.
type Option func(*config)

type config struct {
	paths         gate.Paths
	adminPath     string
	pollInterval  time.Duration
	baseTransport http.RoundTripper
	jar           http.CookieJar
}

// WithPaths overrides the console redirect targets.
func WithPaths(paths gate.Paths) Option {
	return func(c *config) {
		c.paths = paths
	}
}

// WithAdminPath overrides the admin console route.
func WithAdminPath(p string) Option {
	return func(c *config) {
		c.adminPath = p
	}
}

// WithCookieJar sets the jar holding the upstream session cookies. Sharing it
// with the API clients lets the gateway reuse their cookie session.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *config) {
		c.jar = jar
	}
}

// WithPollInterval sets the subscription event stream poll period.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithTransport sets the transport beneath the authenticated transport used for upstream calls.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *config) {
		c.baseTransport = rt
	}
}

// Gateway is the local console server: it forwards /api to the data API with
// the cached credentials and guards console routes by session state.
type Gateway struct {
	handler http.Handler
	server  *http.Server
}

// Compile-time check that Gateway implements http.Handler
var _ http.Handler = (*Gateway)(nil)

// New creates a Gateway forwarding to upstreamURL.
func New(upstreamURL string, creds apiclient.Credentials, sessions gate.Source, subs *subscription.Fetcher, opts ...Option) (*Gateway, error) {
	upstream, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if creds == nil {
		return nil, fmt.Errorf("missing credentials")
	}
	if sessions == nil {
		return nil, fmt.Errorf("missing session source")
	}
	if subs == nil {
		return nil, fmt.Errorf("missing subscription fetcher")
	}

	cfg := &config{
		paths:        DefaultPaths,
		adminPath:    DefaultAdminPath,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := CheckRoutes(cfg.paths, cfg.adminPath); err != nil {
		return nil, fmt.Errorf("invalid routes: %w", err)
	}
	if cfg.adminPath == "" {
		cfg.adminPath = DefaultAdminPath
	}
	if cfg.jar == nil {
		if cfg.jar, err = cookiejar.New(nil); err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
	}

	reverseProxyHandler := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			filterHeaders(pr.Out.Header)
		},
		ModifyResponse: func(resp *http.Response) error {
			// Token and session cookies were captured by the transports and stay inside the gateway
			resp.Header.Del(apiclient.HeaderSetAuthToken)
			resp.Header.Del("Set-Cookie")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			httplog.SetError(r.Context(), fmt.Errorf("upstream: %w", err))
			writeError(r.Context(), w, http.StatusBadGateway, "")
		},
		// Flush immediately so streamed upstream responses are not buffered
		FlushInterval: -1,
		Transport: &jarTransport{
			Base: &apiclient.AuthTransport{
				Base:        cfg.baseTransport,
				Credentials: creds,
			},
			Jar: cfg.jar,
		},
	}

	events := &SubscriptionEventsHandler{Subscriptions: subs, Interval: cfg.pollInterval}

	mux := http.NewServeMux()
	mux.Handle(apiPrefix+"/", http.StripPrefix(apiPrefix, reverseProxyHandler))
	mux.Handle("GET "+cfg.paths.Resolve(gate.DestinationLogin), Guard(gate.Guest, sessions, cfg.paths)(consoleView("login")))
	mux.Handle("GET "+cfg.paths.Resolve(gate.DestinationDashboard), Guard(gate.Auth, sessions, cfg.paths)(consoleView("dashboard")))
	mux.Handle("GET "+cfg.adminPath, Guard(gate.Admin, sessions, cfg.paths)(consoleView("admin")))
	mux.Handle("GET "+eventsPath, Guard(gate.Auth, sessions, cfg.paths)(events))
	mux.HandleFunc("GET "+healthPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handler := applyMiddlewares(mux,
		Logging(slog.Default()),
		Recovery,
	)

	return &Gateway{handler: handler}, nil
}

// filterHeaders drops every header not in allowedHeaders.
func filterHeaders(h http.Header) {
	for key := range h {
		if !allowedHeaders[key] {
			h.Del(key)
		}
	}
}

// ServeHTTP implements http.Handler interface
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.handler.ServeHTTP(w, r)
}

// Start starts the HTTP server in the background and returns immediately.
// Returns a channel for runtime errors and a startup error if any.
//
// Startup errors (port in use, permission denied) are returned immediately.
// Runtime errors (network failures during operation) are sent to the error channel.
//
// The caller is responsible for calling Shutdown() to stop the server.
func (g *Gateway) Start(ctx context.Context, address string) (<-chan error, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	g.server = &http.Server{
		Handler:      g,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // event streams stay open until the client leaves
		IdleTimeout:  90 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)

	go func() {
		err := g.server.Serve(listener)
		// Only report error if not from graceful shutdown
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return errCh, nil
}

// Shutdown performs graceful shutdown of the HTTP server.
// Returns error if shutdown fails or times out.
func (g *Gateway) Shutdown(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	if err := g.server.Shutdown(ctx); err != nil {
		// Graceful shutdown failed - force close
		_ = g.server.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
