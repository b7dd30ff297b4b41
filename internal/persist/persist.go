// Package persist defines the persistence gateway used by the tracker and a
// write-behind writer that keeps durable writes off the decision path.
package persist

import "context"

// Store is durable string-keyed storage.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Writer accepts fire-and-forget writes.
type Writer interface {
	Set(key, value string)
	Remove(key string)
}
