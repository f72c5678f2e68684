package kvcache

import (
	"context"
	"sync"
	"time"

	"StoreFront/pkg/clock"
)

type entry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type Memory struct {
	clk clock.Clock

	mu sync.RWMutex
	m  map[string]entry
}

func NewMemory(clk clock.Clock) *Memory {
	return &Memory{clk: clk, m: make(map[string]entry)}
}

func (c *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	now := c.clk.Now()

	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if e.expired(now) {
		c.mu.Lock()
		// Re-check under the write lock; a Set may have raced the expiry.
		if cur, still := c.m[key]; still && cur.expired(now) {
			delete(c.m, key)
		}
		c.mu.Unlock()
		return nil, false, nil
	}

	cp := make([]byte, len(e.value))
	copy(cp, e.value)
	return cp, true, nil
}

func (c *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	cp := make([]byte, len(value))
	copy(cp, value)

	e := entry{value: cp}
	if ttl > 0 {
		e.expiresAt = c.clk.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = e
	return nil
}

func (c *Memory) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

func (c *Memory) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string]entry)
	return nil
}

// Sweep drops expired entries eagerly. Get already expires lazily, so
// this only matters for long-lived processes with churny key sets.
func (c *Memory) Sweep() {
	now := c.clk.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.m {
		if e.expired(now) {
			delete(c.m, k)
		}
	}
}
