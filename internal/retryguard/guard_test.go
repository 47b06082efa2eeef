package retryguard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/florianilch/dataportal/internal/retryguard"
)

// fakeClock is advanced manually by tests.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var errDown = errors.New("downstream unavailable")

// counter is a guarded function that records how often it ran.
type counter struct {
	calls int
	err   error
}

func (c *counter) fetch(context.Context) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "data", nil
}

func TestSuppressedAfterMaxAttempts(t *testing.T) {
	clock := newFakeClock()
	store := retryguard.NewMemoryStore()
	g := retryguard.New(retryguard.WithClock(clock.Now), retryguard.WithStore(store))
	ctx := context.Background()
	fn := &counter{err: errDown}

	for range retryguard.DefaultMaxAttempts {
		_, ok, err := retryguard.Do(ctx, g, "subscription-org1", fn.fetch)
		require.ErrorIs(t, err, errDown)
		assert.False(t, ok)
		clock.Advance(time.Second)
	}
	require.Equal(t, 3, fn.calls)

	v, ok, err := retryguard.Do(ctx, g, "subscription-org1", fn.fetch)
	require.NoError(t, err, "suppression is not an error")
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, 3, fn.calls, "suppressed call must not run")

	rec, found := store.Get("subscription-org1")
	require.True(t, found)
	assert.Equal(t, 3, rec.Attempts)

	// Other keys are unaffected
	assert.True(t, g.Allow("subscription-org2"))
}

func TestCooldownResumesAttempts(t *testing.T) {
	clock := newFakeClock()
	store := retryguard.NewMemoryStore()
	g := retryguard.New(retryguard.WithClock(clock.Now), retryguard.WithStore(store))
	ctx := context.Background()
	fn := &counter{err: errDown}

	for range 3 {
		_, _, _ = retryguard.Do(ctx, g, "k", fn.fetch)
	}

	// Exactly at the cooldown boundary the key is still suppressed
	clock.Advance(retryguard.DefaultCooldown)
	assert.False(t, g.Allow("k"))

	clock.Advance(time.Millisecond)
	_, ok, err := retryguard.Do(ctx, g, "k", fn.fetch)
	require.ErrorIs(t, err, errDown)
	assert.False(t, ok)
	assert.Equal(t, 4, fn.calls, "call after cooldown must run")

	rec, found := store.Get("k")
	require.True(t, found)
	assert.Equal(t, 1, rec.Attempts, "failure after cooldown restarts the count")
}

func TestSuccessClearsHistory(t *testing.T) {
	clock := newFakeClock()
	store := retryguard.NewMemoryStore()
	g := retryguard.New(retryguard.WithClock(clock.Now), retryguard.WithStore(store))
	ctx := context.Background()

	failing := &counter{err: errDown}
	for range 2 {
		_, _, _ = retryguard.Do(ctx, g, "k", failing.fetch)
	}

	ok := &counter{}
	v, produced, err := retryguard.Do(ctx, g, "k", ok.fetch)
	require.NoError(t, err)
	assert.True(t, produced)
	assert.Equal(t, "data", v)
	assert.Equal(t, 0, store.Len())

	// A fresh failure sequence gets the full budget again
	for range 2 {
		_, _, _ = retryguard.Do(ctx, g, "k", failing.fetch)
	}
	assert.True(t, g.Allow("k"))
}

func TestOptions(t *testing.T) {
	clock := newFakeClock()
	g := retryguard.New(
		retryguard.WithClock(clock.Now),
		retryguard.WithMaxAttempts(1),
		retryguard.WithCooldown(5*time.Second),
	)

	g.Fail("k")
	assert.False(t, g.Allow("k"))

	clock.Advance(6 * time.Second)
	assert.True(t, g.Allow("k"))

	// Non-positive values keep the defaults
	d := retryguard.New(retryguard.WithMaxAttempts(0), retryguard.WithCooldown(-1))
	d.Fail("k")
	d.Fail("k")
	assert.True(t, d.Allow("k"))
	d.Fail("k")
	assert.False(t, d.Allow("k"))
}
