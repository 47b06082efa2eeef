package subscription_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/dataportal/internal/apiclient"
	"github.com/florianilch/dataportal/internal/retryguard"
	"github.com/florianilch/dataportal/internal/subscription"
	"github.com/florianilch/dataportal/internal/tokenstore"
)

type subscriptionServer struct {
	calls   atomic.Int32
	missing atomic.Bool
}

func (s *subscriptionServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.calls.Add(1)
	if r.URL.Path != "/organizations/org-1/subscription" {
		http.NotFound(w, r)
		return
	}
	if s.missing.Load() {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"subscription not found"}`)
		return
	}
	_, _ = io.WriteString(w, `{"id":"sub_1","organizationId":"org-1","plan":"pro","status":"active","currentPeriodEnd":"2026-11-01T00:00:00Z"}`)
}

func newFetcher(t *testing.T, srv *subscriptionServer, now func() time.Time) *subscription.Fetcher {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	api, err := apiclient.New(ts.URL, tokenstore.NewMemoryStore())
	require.NoError(t, err)
	return subscription.NewFetcher(api, retryguard.New(retryguard.WithClock(now)))
}

func TestGet(t *testing.T) {
	srv := &subscriptionServer{}
	f := newFetcher(t, srv, time.Now)

	sub, err := f.Get(context.Background(), "org-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "pro", sub.Plan)
	assert.True(t, sub.Active())
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.Equal(t, 2026, sub.CurrentPeriodEnd.Year())
}

func TestGetSuppressesAfterFailures(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	srv := &subscriptionServer{}
	srv.missing.Store(true)
	f := newFetcher(t, srv, clock)
	ctx := context.Background()

	for range 3 {
		sub, err := f.Get(ctx, "org-1")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, apiclient.StatusCode(err))
		assert.Nil(t, sub)
	}

	sub, err := f.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Nil(t, sub)
	assert.Equal(t, int32(3), srv.calls.Load())

	// The row appears and the cooldown passes
	srv.missing.Store(false)
	now = now.Add(retryguard.DefaultCooldown + time.Second)

	sub, err = f.Get(ctx, "org-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, int32(4), srv.calls.Load())
}

func TestGetRequiresOrg(t *testing.T) {
	f := newFetcher(t, &subscriptionServer{}, time.Now)
	_, err := f.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	srv := &subscriptionServer{}
	f := newFetcher(t, srv, time.Now)

	var updates []subscription.Update
	f.Watch(context.Background(), "org-1", time.Millisecond, func(u subscription.Update) bool {
		updates = append(updates, u)
		return len(updates) < 3
	})

	require.Len(t, updates, 3)
	for _, u := range updates {
		require.NoError(t, u.Err)
		assert.Equal(t, "sub_1", u.Sub.ID)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	srv := &subscriptionServer{}
	f := newFetcher(t, srv, time.Now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Watch(ctx, "org-1", time.Hour, func(subscription.Update) bool { return true })
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
