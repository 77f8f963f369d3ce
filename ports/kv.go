package ports

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when the key has no live value.
var ErrNotFound = errors.New("key not found")

// KV is durable key-value storage backing the client session cache.
// A zero ttl means the entry does not expire.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}
