// Package retryguard suppresses repeated calls for a key that keeps failing.
//
// After MaxAttempts consecutive failures a key is suppressed: Allow reports
// false and Do returns no data without calling through. Once Cooldown has
// passed since the last failure the record is dropped and attempts start over.
// A success drops the record immediately.
//
// Allow and Fail are not atomic together, so concurrent calls for one key can
// exceed the cap by one attempt.
package retryguard

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultCooldown    = 30 * time.Second
)

// Option configures a Guard.
type Option func(*Guard)

// WithStore replaces the default in-memory record store.
func WithStore(store Store) Option {
	return func(g *Guard) {
		g.store = store
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) {
		g.now = now
	}
}

// WithMaxAttempts sets the number of consecutive failures before suppression.
func WithMaxAttempts(n int) Option {
	return func(g *Guard) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithCooldown sets how long a suppressed key stays suppressed after its last failure.
func WithCooldown(d time.Duration) Option {
	return func(g *Guard) {
		if d > 0 {
			g.cooldown = d
		}
	}
}

// Guard tracks failures per key.
type Guard struct {
	store       Store
	now         func() time.Time
	maxAttempts int
	cooldown    time.Duration
}

// New creates a Guard with DefaultMaxAttempts and DefaultCooldown.
func New(opts ...Option) *Guard {
	g := &Guard{
		store:       NewMemoryStore(),
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		cooldown:    DefaultCooldown,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow reports whether a call for key may proceed. An expired record is evicted.
func (g *Guard) Allow(key string) bool {
	rec, ok := g.store.Get(key)
	if !ok {
		return true
	}
	if g.now().Sub(rec.LastAttempt) > g.cooldown {
		g.store.Delete(key)
		return true
	}
	return rec.Attempts < g.maxAttempts
}

// Succeed clears the failure history for key.
func (g *Guard) Succeed(key string) {
	g.store.Delete(key)
}

// Fail records a failed attempt for key.
func (g *Guard) Fail(key string) {
	rec, _ := g.store.Get(key)
	rec.Attempts++
	rec.LastAttempt = g.now()
	g.store.Put(key, rec)
}

// Do runs fn unless key is suppressed. The boolean result is false when no
// data was produced: either the call was suppressed (nil error) or fn failed.
func Do[T any](ctx context.Context, g *Guard, key string, fn func(context.Context) (T, error)) (T, bool, error) {
	var zero T
	if !g.Allow(key) {
		slog.DebugContext(ctx, "call suppressed by retry guard", "key", key)
		return zero, false, nil
	}

	v, err := fn(ctx)
	if err != nil {
		g.Fail(key)
		return zero, false, err
	}

	g.Succeed(key)
	return v, true, nil
}
