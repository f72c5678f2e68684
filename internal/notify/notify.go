// Package notify delivers user-facing notices with duplicate
// suppression: the same notice key fired again inside the dedupe window
// is dropped, which guards against double-invocation from client
// re-render quirks without touching store state.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"StoreFront/pkg/clock"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type Sink interface {
	Notify(n Notice)
}

const DefaultWindow = 1 * time.Second

// Deduper wraps a sink and suppresses repeats per key. State mutations
// are never gated by it; only the notice delivery is.
type Deduper struct {
	sink   Sink
	clk    clock.Clock
	window time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewDeduper(sink Sink, clk clock.Clock, window time.Duration) *Deduper {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Deduper{
		sink:   sink,
		clk:    clk,
		window: window,
		last:   make(map[string]time.Time),
	}
}

// Notify delivers n unless the same key was delivered within the window.
// Returns false when the notice was suppressed.
func (d *Deduper) Notify(key string, n Notice) bool {
	now := d.clk.Now()

	d.mu.Lock()
	if seen, ok := d.last[key]; ok && now.Sub(seen) < d.window {
		d.mu.Unlock()
		return false
	}
	d.last[key] = now
	d.pruneLocked(now)
	d.mu.Unlock()

	d.sink.Notify(n)
	return true
}

// pruneLocked drops stale entries so the map tracks only live windows.
func (d *Deduper) pruneLocked(now time.Time) {
	for k, seen := range d.last {
		if now.Sub(seen) >= d.window {
			delete(d.last, k)
		}
	}
}

// LogSink writes notices to the service log; in a headless deployment
// that is the terminal notification channel.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Notify(n Notice) {
	s.Log.Info("notice",
		zap.String("level", string(n.Level)),
		zap.String("message", n.Message),
	)
}

// Collector retains notices in order; used by tests and the HTTP layer.
type Collector struct {
	mu      sync.Mutex
	notices []Notice
}

func (c *Collector) Notify(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

func (c *Collector) Notices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notice, len(c.notices))
	copy(out, c.notices)
	return out
}
