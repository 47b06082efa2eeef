// Package authapi wraps the auth service endpoints the console depends on:
// token refresh, anonymous-session upgrade and session lookup.
package authapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/florianilch/dataportal/internal/apiclient"
	"github.com/florianilch/dataportal/internal/gate"
	"github.com/florianilch/dataportal/internal/tokenstore"
)

// User is the identity provider's user record. Role and IsAnonymous are
// optional on the wire; absent values decode to "" and false.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	IsAnonymous bool   `json:"isAnonymous,omitempty"`
}

// SessionInfo is the session record returned alongside the user.
type SessionInfo struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"userId"`
	ExpiresAt            time.Time `json:"expiresAt"`
	ActiveOrganizationID string    `json:"activeOrganizationId,omitempty"`
	ImpersonatedBy       string    `json:"impersonatedBy,omitempty"`
}

// Session is the /get-session payload.
type Session struct {
	Session SessionInfo `json:"session"`
	User    User        `json:"user"`
}

// UpgradeRequest carries the credentials that replace an anonymous session.
type UpgradeRequest struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
}

// tokenResponse is the /token payload; the token may also arrive as a header.
type tokenResponse struct {
	Token string `json:"token"`
}

// Client calls the auth service. It shares the token cache with the data API client.
type Client struct {
	api   *apiclient.Client
	store tokenstore.TokenStore
}

// Compile-time check that Client is a session source for guards
var _ gate.Source = (*Client)(nil)

// New creates a Client on top of an apiclient.Client rooted at the auth base URL.
func New(api *apiclient.Client, store tokenstore.TokenStore) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("missing api client")
	}
	if store == nil {
		return nil, fmt.Errorf("missing token store")
	}
	return &Client{api: api, store: store}, nil
}

// Refresh asks the auth service for a new bearer token and caches it.
// The current token or session cookie authenticates the request.
func (c *Client) Refresh(ctx context.Context) (*oauth2.Token, error) {
	var resp tokenResponse
	if err := c.api.Do(ctx, http.MethodPost, "token", nil, &resp); err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	// A set-auth-token header was already stored by the transport
	if resp.Token != "" {
		if err := c.store.Write(ctx, resp.Token); err != nil {
			return nil, fmt.Errorf("storing refreshed token: %w", err)
		}
	}

	token, err := c.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading refreshed token: %w", err)
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// UpgradeAnonymous promotes the current anonymous session to a full account.
func (c *Client) UpgradeAnonymous(ctx context.Context, req UpgradeRequest) (*User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := c.api.Do(ctx, http.MethodPost, "upgrade-anonymous", req, &resp); err != nil {
		return nil, fmt.Errorf("upgrading anonymous session: %w", err)
	}
	return &resp.User, nil
}

// Session returns the current session, or nil if there is none.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	var resp *Session
	err := c.api.Do(ctx, http.MethodGet, "get-session", nil, &resp)
	if apiclient.IsUnauthorized(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching session: %w", err)
	}
	return resp, nil
}

// SessionView fetches the session and converts it for guard evaluation.
// Lookup failures become a view carrying the error rather than an absent session.
func (c *Client) SessionView(ctx context.Context) gate.SessionView {
	s, err := c.Session(ctx)
	if err != nil {
		return gate.SessionView{Error: sessionError(err)}
	}
	return ViewOf(s)
}

// ViewOf converts a session (possibly nil) into a SessionView.
func ViewOf(s *Session) gate.SessionView {
	if s == nil {
		return gate.SessionView{}
	}
	return gate.SessionView{
		Present:        true,
		Anonymous:      s.User.IsAnonymous,
		Role:           s.User.Role,
		ImpersonatedBy: s.Session.ImpersonatedBy,
	}
}

func sessionError(err error) *gate.SessionError {
	se := &gate.SessionError{Message: err.Error()}
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		se.Message = apiErr.Message
		se.Status = apiErr.Status
	}
	return se
}
