package authapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/florianilch/dataportal/internal/tokenstore"
)

// TokenSource serves the cached bearer token, refreshing through the auth
// service when the cache is empty.
type TokenSource struct {
	client *Client
	mu     sync.Mutex
}

// Compile-time check to ensure TokenSource implements oauth2.TokenSource
var _ oauth2.TokenSource = (*TokenSource)(nil)

// NewTokenSource creates a TokenSource backed by client's token cache.
func NewTokenSource(client *Client) *TokenSource {
	return &TokenSource{client: client}
}

// Token returns the cached token or obtains a new one.
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	// oauth2.TokenSource.Token() has no context parameter (legacy interface limitation)
	return ts.TokenContext(context.Background())
}

// TokenContext is Token with a caller-supplied context.
func (ts *TokenSource) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	// Serialize so concurrent callers with an empty cache trigger a single refresh
	ts.mu.Lock()
	defer ts.mu.Unlock()

	token, err := ts.client.store.Read(ctx)
	if err == nil {
		return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
	}
	if !errors.Is(err, tokenstore.ErrNoToken) {
		return nil, fmt.Errorf("reading cached token: %w", err)
	}

	return ts.client.Refresh(ctx)
}
