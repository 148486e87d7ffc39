package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key or document does not exist
var ErrNotFound = errors.New("not found")

// IsNotFound checks if an error is a missing key
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// KV is durable string key-value storage. Values are opaque serialized strings.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
