// Package storage persists per-session client state as JSON blobs under
// namespaced keys. It is a durability aid for reconnects: in-memory store
// state stays authoritative, and a missing or corrupted payload always
// degrades to empty state, never to an error the caller must handle.
package storage

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

type Storage interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// LoadSlice hydrates the JSON array stored under key. Absent, unreadable,
// or malformed payloads yield nil: persisted state is best-effort cache,
// so corruption is discarded rather than surfaced.
func LoadSlice[T any](ctx context.Context, s Storage, log *zap.Logger, key string) []T {
	raw, ok, err := s.Load(ctx, key)
	if err != nil {
		log.Warn("state load failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}

	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn("discarding corrupted state", zap.String("key", key), zap.Error(err))
		return nil
	}
	return out
}

// SaveSlice writes v as a JSON array under key. Failures are logged and
// swallowed: a write that does not stick costs durability, not correctness.
func SaveSlice[T any](ctx context.Context, s Storage, log *zap.Logger, key string, v []T) {
	if v == nil {
		v = []T{}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		log.Warn("state encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.Save(ctx, key, raw); err != nil {
		log.Warn("state save failed", zap.String("key", key), zap.Error(err))
	}
}
