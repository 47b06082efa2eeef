package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/dataportal/internal/apiclient"
	"github.com/florianilch/dataportal/internal/tokenstore"
)

func newClient(t *testing.T, handler http.Handler) (*apiclient.Client, *tokenstore.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemoryStore()
	client, err := apiclient.New(srv.URL, store)
	require.NoError(t, err)
	return client, store
}

func cached(t *testing.T, store *tokenstore.MemoryStore) string {
	t.Helper()
	token, err := store.Read(context.Background())
	if errors.Is(err, tokenstore.ErrNoToken) {
		return ""
	}
	require.NoError(t, err)
	return token
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	client, store := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = io.WriteString(w, `{}`)
	}))
	ctx := context.Background()

	t.Run("no token cached", func(t *testing.T) {
		_, err := client.Request(ctx, http.MethodGet, "organizations", nil)
		require.NoError(t, err)
		assert.Empty(t, got.Get("Authorization"))
		assert.Equal(t, "application/json", got.Get("Content-Type"))
		assert.NotEmpty(t, got.Get(apiclient.HeaderRequestID))
	})

	t.Run("cached token is injected", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "abc"))
		_, err := client.Request(ctx, http.MethodGet, "organizations", nil)
		require.NoError(t, err)
		assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	})

	t.Run("explicit authorization wins", func(t *testing.T) {
		_, err := client.Request(ctx, http.MethodGet, "organizations", nil,
			apiclient.WithHeader("Authorization", "Bearer explicit"),
			apiclient.WithHeader("X-Org", "org-1"),
		)
		require.NoError(t, err)
		assert.Equal(t, "Bearer explicit", got.Get("Authorization"))
		assert.Equal(t, "org-1", got.Get("X-Org"))
	})
}

func TestTokenRefreshLastWins(t *testing.T) {
	var calls atomic.Int32
	client, store := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		// Only odd calls rotate the token
		if n%2 == 1 {
			w.Header().Set("set-auth-token", "token-"+strconv.Itoa(int(n)))
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	ctx := context.Background()

	for range 4 {
		_, err := client.Request(ctx, http.MethodGet, "me", nil)
		require.NoError(t, err)
	}

	assert.Equal(t, "token-3", cached(t, store))
}

func TestUnauthorizedClearsToken(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		header  string
	}{
		{name: "clears existing token", initial: "stale"},
		{name: "empty cache stays empty"},
		{name: "refresh header on 401 is discarded", initial: "stale", header: "fresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, store := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.header != "" {
					w.Header().Set("set-auth-token", tt.header)
				}
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"error":"session expired"}`)
			}))
			ctx := context.Background()
			if tt.initial != "" {
				require.NoError(t, store.Write(ctx, tt.initial))
			}

			_, err := client.Request(ctx, http.MethodGet, "me", nil)
			require.Error(t, err)
			assert.True(t, apiclient.IsUnauthorized(err))
			assert.Empty(t, cached(t, store))
		})
	}
}

func TestAPIErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantLayer   apiclient.Layer
		wantFields  []apiclient.FieldError
	}{
		{
			name:        "structured error with layer",
			status:      http.StatusForbidden,
			body:        `{"error":"blocked by policy","layer":"access"}`,
			wantMessage: "blocked by policy",
			wantLayer:   apiclient.LayerAccess,
		},
		{
			name:        "validation errors",
			status:      http.StatusUnprocessableEntity,
			body:        `{"error":"invalid input","layer":"validation","errors":[{"field":"name","message":"required"}]}`,
			wantMessage: "invalid input",
			wantLayer:   apiclient.LayerValidation,
			wantFields:  []apiclient.FieldError{{Field: "name", Message: "required"}},
		},
		{
			name:        "non-JSON body uses status text",
			status:      http.StatusBadGateway,
			body:        `<html>bad gateway</html>`,
			wantMessage: "Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := client.Request(context.Background(), http.MethodPost, "projects", map[string]string{"name": ""})

			var apiErr *apiclient.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.wantLayer, apiErr.Layer)
			assert.Equal(t, tt.wantFields, apiErr.Errors)
			assert.Equal(t, tt.status, apiclient.StatusCode(err))
		})
	}
}

func TestNonJSONSuccessIsTransportError(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "plain text")
	}))

	_, err := client.Request(context.Background(), http.MethodGet, "health", nil)

	var transportErr *apiclient.TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestEmptySuccessBody(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	raw, err := client.Request(context.Background(), http.MethodDelete, "projects/1", nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestCookiesAreIncluded(t *testing.T) {
	var sawCookie atomic.Bool
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil && c.Value == "s1" {
			sawCookie.Store(true)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s1", Path: "/"})
		_, _ = io.WriteString(w, `{}`)
	}))
	ctx := context.Background()

	_, err := client.Request(ctx, http.MethodGet, "me", nil)
	require.NoError(t, err)
	assert.False(t, sawCookie.Load())

	_, err = client.Request(ctx, http.MethodGet, "me", nil)
	require.NoError(t, err)
	assert.True(t, sawCookie.Load())
}

func TestRESTHelpers(t *testing.T) {
	type call struct {
		method string
		path   string
		query  string
		body   string
	}
	var last call
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		last = call{method: r.Method, path: r.URL.EscapedPath(), query: r.URL.RawQuery, body: string(body)}
		_, _ = io.WriteString(w, `{"id":"p1"}`)
	}))
	ctx := context.Background()

	var out struct {
		ID string `json:"id"`
	}

	require.NoError(t, client.List(ctx, "projects", apiclient.ListParams{
		Limit: 10, Offset: 20, Sort: "name", Order: "asc",
		Filters: map[string]string{"status": "active"},
	}, &out))
	assert.Equal(t, call{method: http.MethodGet, path: "/projects", query: "limit=10&offset=20&order=asc&sort=name&status=active"}, last)
	assert.Equal(t, "p1", out.ID)

	require.NoError(t, client.Get(ctx, "projects", "a/b", &out))
	assert.Equal(t, "/projects/a%2Fb", last.path)

	require.NoError(t, client.Create(ctx, "projects", map[string]string{"name": "x"}, &out))
	assert.Equal(t, http.MethodPost, last.method)
	assert.JSONEq(t, `{"name":"x"}`, last.body)

	require.NoError(t, client.Update(ctx, "projects", "p1", map[string]string{"name": "y"}, nil))
	assert.Equal(t, call{method: http.MethodPatch, path: "/projects/p1", body: `{"name":"y"}`}, last)

	require.NoError(t, client.Delete(ctx, "projects", "p1"))
	assert.Equal(t, http.MethodDelete, last.method)
	assert.Equal(t, "/projects/p1", last.path)

	require.NoError(t, client.Action(ctx, "projects", "p1", "archive", nil, nil))
	assert.Equal(t, call{method: http.MethodPost, path: "/projects/p1/archive"}, last)
}

func TestDoDecodes(t *testing.T) {
	client, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": []int{1, 2, 3}})
	}))

	var out struct {
		Items []int `json:"items"`
	}
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "numbers", nil, &out))
	assert.Equal(t, []int{1, 2, 3}, out.Items)
}

func TestNewValidation(t *testing.T) {
	_, err := apiclient.New("not a url", tokenstore.NewMemoryStore())
	assert.Error(t, err)

	_, err = apiclient.New("https://api.example.com", nil)
	assert.Error(t, err)
}
