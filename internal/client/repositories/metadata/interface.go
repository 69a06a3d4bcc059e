// Package metadata is the client's durable key/value store: the session
// token, the derived identity and user preferences live here between runs.
package metadata

import (
	"context"
)

// Repository persists small values by key. Get returns (nil, nil) for an
// absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}
