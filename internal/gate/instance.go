package gate

import (
	"context"
	"errors"
	"sync"
)

// ErrNotRetryable is returned by Instance.Retry outside the Error state.
var ErrNotRetryable = errors.New("guard is not in error state")

// Source yields the current session view.
type Source interface {
	SessionView(ctx context.Context) SessionView
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) SessionView

func (f SourceFunc) SessionView(ctx context.Context) SessionView {
	return f(ctx)
}

// Instance is one guard's state machine: Pending → {Error, Decided}.
// Only Retry leaves Error back to Pending.
type Instance struct {
	kind GuardKind

	mu       sync.Mutex
	decision Decision
}

// NewInstance creates a guard instance in the Pending state.
func NewInstance(kind GuardKind) *Instance {
	return &Instance{kind: kind, decision: Decision{Kind: Loading}}
}

// Decision returns the current decision.
func (i *Instance) Decision() Decision {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.decision
}

// Update re-evaluates the guard for a changed session view.
// A pending view does not move a settled guard back to Pending.
func (i *Instance) Update(view SessionView) Decision {
	i.mu.Lock()
	defer i.mu.Unlock()

	if view.Pending && i.decision.Kind != Loading {
		return i.decision
	}
	i.decision = Decide(i.kind, view)
	return i.decision
}

// Resolve fetches the session from src and updates the guard.
func (i *Instance) Resolve(ctx context.Context, src Source) Decision {
	return i.Update(src.SessionView(ctx))
}

// Retry re-enters Pending from the Error state and resolves again.
func (i *Instance) Retry(ctx context.Context, src Source) (Decision, error) {
	i.mu.Lock()
	if i.decision.Kind != Error {
		d := i.decision
		i.mu.Unlock()
		return d, ErrNotRetryable
	}
	i.decision = Decision{Kind: Loading}
	i.mu.Unlock()

	return i.Resolve(ctx, src), nil
}
