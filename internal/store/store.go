package store

import (
	"context"
	"io"
)

// KV is the key-value capability the notification watermarks are
// persisted through. Get reports ok=false for keys that were never set.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Store is a KV backend that owns a connection.
type Store interface {
	KV
	io.Closer
}
