package apiclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/florianilch/dataportal/internal/tokenstore"
)

const (
	// HeaderSetAuthToken carries a replacement bearer token on API responses.
	HeaderSetAuthToken = "Set-Auth-Token"

	// HeaderRequestID correlates client and server logs.
	HeaderRequestID = "X-Request-Id"
)

// Credentials is the token cache consulted and updated by AuthTransport.
// Every tokenstore.TokenStore satisfies it.
type Credentials interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// AuthTransport is an http.RoundTripper that attaches the cached bearer token
// and keeps the cache in step with the server.
type AuthTransport struct {
	Base        http.RoundTripper
	Credentials Credentials
}

// Compile-time check that AuthTransport implements http.RoundTripper.
var _ http.RoundTripper = (*AuthTransport)(nil)

// RoundTrip implements http.RoundTripper interface.
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	ctx := req.Context()

	newReq := req.Clone(ctx)

	// Explicit Authorization from the caller always wins over the cache
	if newReq.Header.Get("Authorization") == "" {
		if token, ok := t.cachedToken(ctx); ok {
			newReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if newReq.Header.Get(HeaderRequestID) == "" {
		newReq.Header.Set(HeaderRequestID, uuid.NewString())
	}

	resp, err := base.RoundTrip(newReq)
	if err != nil || t.Credentials == nil {
		return resp, err
	}

	// The response may outlive a canceled caller; cache updates must still land.
	storeCtx := context.WithoutCancel(ctx)

	if token := resp.Header.Get(HeaderSetAuthToken); token != "" {
		if err := t.Credentials.Write(storeCtx, token); err != nil {
			slog.WarnContext(ctx, "failed to store refreshed token", "error", err)
		}
	}

	// Write above happens first so a 401 always ends with an empty cache.
	if resp.StatusCode == http.StatusUnauthorized {
		if err := t.Credentials.Clear(storeCtx); err != nil {
			slog.WarnContext(ctx, "failed to clear token after 401", "error", err)
		} else {
			slog.DebugContext(ctx, "cleared cached token after 401")
		}
	}

	return resp, nil
}

// cachedToken reads the token cache. Any failure falls back to cookie auth.
func (t *AuthTransport) cachedToken(ctx context.Context) (string, bool) {
	if t.Credentials == nil {
		return "", false
	}
	token, err := t.Credentials.Read(ctx)
	if err != nil {
		if !errors.Is(err, tokenstore.ErrNoToken) {
			slog.WarnContext(ctx, "failed to read cached token", "error", err)
		}
		return "", false
	}
	return token, token != ""
}
