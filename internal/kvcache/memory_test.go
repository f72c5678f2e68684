package kvcache_test

import (
	"context"
	"testing"
	"time"

	"StoreFront/internal/kvcache"
	"StoreFront/pkg/clock"
)

func TestMemory_TTLExpiry(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Unix(1000, 0))
	c := kvcache.NewMemory(clk)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	clk.Advance(4 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatalf("entry expired early")
	}

	clk.Advance(1 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("entry survived past TTL")
	}
}

func TestMemory_NoTTLNeverExpires(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Unix(1000, 0))
	c := kvcache.NewMemory(clk)
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), kvcache.NoTTL); err != nil {
		t.Fatalf("set: %v", err)
	}

	clk.Advance(24 * time.Hour)
	raw, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(raw) != "v" {
		t.Fatalf("get: raw=%q ok=%v err=%v", raw, ok, err)
	}
}

func TestMemory_DeleteAndClear(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Unix(1000, 0))
	c := kvcache.NewMemory(clk)
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), kvcache.NoTTL)
	_ = c.Set(ctx, "b", []byte("2"), kvcache.NoTTL)

	if err := c.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatalf("a survived delete")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Fatalf("b survived clear")
	}
}

func TestMemory_SetOverwritesTTL(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Unix(1000, 0))
	c := kvcache.NewMemory(clk)
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("old"), 1*time.Minute)
	_ = c.Set(ctx, "k", []byte("new"), 10*time.Minute)

	clk.Advance(5 * time.Minute)
	raw, ok, _ := c.Get(ctx, "k")
	if !ok || string(raw) != "new" {
		t.Fatalf("expected refreshed entry, got ok=%v raw=%q", ok, raw)
	}
}

func TestMemory_Sweep(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Unix(1000, 0))
	c := kvcache.NewMemory(clk)
	ctx := context.Background()

	_ = c.Set(ctx, "short", []byte("1"), time.Minute)
	_ = c.Set(ctx, "long", []byte("2"), time.Hour)

	clk.Advance(2 * time.Minute)
	c.Sweep()

	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Fatalf("short survived sweep")
	}
	if _, ok, _ := c.Get(ctx, "long"); !ok {
		t.Fatalf("long dropped by sweep")
	}
}
