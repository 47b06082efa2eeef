package tokenstore

import (
	"context"
	"errors"
)

var (
	// ErrNoToken is returned by Read when no token is cached.
	ErrNoToken = errors.New("no token cached")

	// ErrReadOnly is returned by Write and Clear on read-only backends.
	ErrReadOnly = errors.New("token storage is read-only")
)

// TokenStore reads, writes and clears the cached bearer token.
//
// Writes are last-write-wins. Implementations are safe for concurrent use.
type TokenStore interface {
	// Read returns the cached token, or ErrNoToken if none is stored.
	Read(ctx context.Context) (string, error)

	// Write replaces the cached token.
	Write(ctx context.Context, token string) error

	// Clear removes the cached token. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}
