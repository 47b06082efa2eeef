package tokenstore

import (
	"context"
	"fmt"
	"os"
)

// EnvStore provides read-only access to a token stored in an environment variable.
// Refreshed tokens cannot be persisted, so every refresh is lost on exit.
type EnvStore struct {
	envKey string
}

// Compile-time check to ensure EnvStore implements TokenStore
var _ TokenStore = (*EnvStore)(nil)

// NewEnvStore creates an EnvStore for the given environment variable.
// Returns error if the variable name is empty.
func NewEnvStore(envKey string) (*EnvStore, error) {
	if envKey == "" {
		return nil, fmt.Errorf("environment key cannot be empty")
	}

	return &EnvStore{
		envKey: envKey,
	}, nil
}

// Read returns the token from the environment variable, or ErrNoToken if unset or empty.
func (e *EnvStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token := os.Getenv(e.envKey)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Write is not supported for environment variables.
func (e *EnvStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("%w: environment variable %s", ErrReadOnly, e.envKey)
}

// Clear is not supported for environment variables.
func (e *EnvStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return fmt.Errorf("%w: environment variable %s", ErrReadOnly, e.envKey)
}
