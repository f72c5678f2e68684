// Package kvcache is a generic expiring key-value cache. The memory
// backend serves single-process deployments and tests; the Redis backend
// shares entries across replicas.
package kvcache

import (
	"context"
	"time"
)

// NoTTL stores an entry without an expiry.
const NoTTL time.Duration = 0

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
