package storage

import (
	"context"
	"errors"
)

// Well-known keys.
const (
	KeyIdentity = "user"
	KeyToken    = "auth_token"
)

var (
	ErrNotFound   = errors.New("storage: key not found")
	ErrInvalidKey = errors.New("storage: key cannot be empty")
	ErrSealed     = errors.New("storage: cannot open sealed value")
	ErrNoSecret   = errors.New("storage: secret is required")
)

// Store defines durable client-side storage.
type Store interface {
	// Get returns the value for key or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// Lookup is Get with ErrNotFound folded into ok=false.
func Lookup(ctx context.Context, s Store, key string) (value string, ok bool, err error) {
	value, err = s.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return value, true, nil
}
