package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Option configures a Client.
type Option func(*clientConfig)

// clientConfig holds configuration for New.
type clientConfig struct {
	baseTransport http.RoundTripper
	jar           http.CookieJar
}

// WithTransport sets the base transport beneath AuthTransport.
// If not provided, http.DefaultTransport is used.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *clientConfig) {
		c.baseTransport = transport
	}
}

// WithCookieJar replaces the client's cookie jar, e.g. to share session
// cookies between clients for the same origin.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *clientConfig) {
		c.jar = jar
	}
}

// Client performs JSON requests against a base URL with cookie and bearer credentials.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New creates a Client for baseURL. The token cache is consulted on every request.
func New(baseURL string, creds Credentials, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host required", baseURL)
	}
	if creds == nil {
		return nil, fmt.Errorf("missing credentials")
	}

	cfg := &clientConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		cfg.jar = jar
	}

	return &Client{
		baseURL: u,
		httpClient: &http.Client{
			// No client-side timeout: callers bound requests through their context
			Transport: &AuthTransport{
				Base:        cfg.baseTransport,
				Credentials: creds,
			},
			Jar: cfg.jar,
		},
	}, nil
}

// BaseURL returns a copy of the client's base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// RequestOption adjusts an outbound request before it is sent.
type RequestOption func(*http.Request)

// WithHeader sets a request header, overriding defaults such as Content-Type.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

// WithQuery adds query parameters to the request URL.
func WithQuery(values url.Values) RequestOption {
	return func(r *http.Request) {
		q := r.URL.Query()
		for key, vs := range values {
			for _, v := range vs {
				q.Add(key, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
}

// Do sends a request and decodes the JSON response body into out (if non-nil).
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	raw, err := c.Request(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: "decoding response", Err: err}
	}
	return nil
}

// Request sends a request relative to the base URL and returns the raw JSON body.
// body, when non-nil, is JSON encoded. An empty 2xx body yields a nil result.
func (c *Client) Request(ctx context.Context, method, path string, body any, opts ...RequestOption) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "reading response", Err: err}
	}

	attrs := []any{
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		attrs = append(attrs, "trace_id", sc.TraceID().String())
	}
	slog.DebugContext(ctx, "api request", attrs...)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, data)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !json.Valid(data) {
		return nil, &TransportError{Op: "decoding response", Err: fmt.Errorf("%s %s returned non-JSON body", method, path)}
	}
	return json.RawMessage(data), nil
}
