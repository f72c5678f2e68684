// Package abandon watches a cart and classifies it abandoned once it has
// sat untouched for the idle window while the shopper is away from
// checkout. Everything here is background marketing machinery: failures
// are logged and swallowed, never surfaced into the shopping flow.
package abandon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"StoreFront/internal/analytics"
	"StoreFront/internal/cart"
	"StoreFront/internal/storage"
	"StoreFront/pkg/clock"
)

// AbandonedCart is an immutable snapshot taken when the idle timer
// fires. Only Recovered ever changes afterwards; records are filtered
// out of the active view once recovered, never deleted.
type AbandonedCart struct {
	ID                  string      `json:"id"`
	Items               []cart.Item `json:"items"`
	TotalCents          int64       `json:"total_cents"`
	AbandonedAt         time.Time   `json:"abandoned_at"`
	Email               string      `json:"email,omitempty"`
	RecoveryAttempts    int         `json:"recovery_attempts"`
	LastRecoveryAttempt *time.Time  `json:"last_recovery_attempt,omitempty"`
	Recovered           bool        `json:"recovered"`
}

const DefaultIdleWindow = 30 * time.Minute

type Config struct {
	IdleWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.IdleWindow <= 0 {
		c.IdleWindow = DefaultIdleWindow
	}
	return c
}

type Tracker struct {
	log        *zap.Logger
	clk        clock.Clock
	cart       *cart.Store
	store      storage.Storage
	key        string
	analytics  analytics.Tracker
	recovery   *RecoveryClient
	email      func() string
	onCheckout func() bool
	window     time.Duration

	mu      sync.Mutex
	timer   clock.Timer
	closed  bool
	records []AbandonedCart
}

// New hydrates prior abandoned-cart records and subscribes to the cart.
// email and onCheckout are snapshots of session state at fire time; a
// nil recovery client disables the remote submission.
func New(
	log *zap.Logger,
	clk clock.Clock,
	c *cart.Store,
	st storage.Storage,
	key string,
	tr analytics.Tracker,
	recovery *RecoveryClient,
	email func() string,
	onCheckout func() bool,
	cfg Config,
) *Tracker {
	cfg = cfg.withDefaults()

	t := &Tracker{
		log:        log,
		clk:        clk,
		cart:       c,
		store:      st,
		key:        key,
		analytics:  tr,
		recovery:   recovery,
		email:      email,
		onCheckout: onCheckout,
		window:     cfg.IdleWindow,
	}
	t.records = storage.LoadSlice[AbandonedCart](context.Background(), st, log, key)

	c.Subscribe(t.onCartChange)
	return t
}

// onCartChange restarts the idle countdown on every mutation. An empty
// cart cancels the countdown entirely.
func (t *Tracker) onCartChange() {
	empty := t.cart.IsEmpty()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	if empty {
		if t.timer != nil {
			t.timer.Stop()
		}
		return
	}

	if t.timer == nil {
		t.timer = t.clk.AfterFunc(t.window, t.fire)
		return
	}
	t.timer.Reset(t.window)
}

// fire runs when the idle window elapses untouched. It must never
// propagate a panic into the timer goroutine.
func (t *Tracker) fire() {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("abandonment check panicked", zap.Any("panic", r))
		}
	}()

	if t.cart.IsEmpty() || t.onCheckout() {
		return
	}

	items := t.cart.Items()
	now := t.clk.Now()

	rec := AbandonedCart{
		ID:          fmt.Sprintf("cart_%d", now.UnixMilli()),
		Items:       items,
		TotalCents:  t.cart.TotalCents(),
		AbandonedAt: now,
		Email:       t.email(),
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.records = append(t.records, rec)
	records := t.snapshotLocked()
	t.mu.Unlock()

	storage.SaveSlice(context.Background(), t.store, t.log, t.key, records)
	t.analytics.CartAbandoned(rec.TotalCents, len(rec.Items))
	t.log.Info("cart abandoned",
		zap.String("id", rec.ID),
		zap.Int64("total_cents", rec.TotalCents),
		zap.Int("items", len(rec.Items)),
	)

	if t.recovery != nil && rec.Email != "" {
		go t.submitRecovery(rec)
	}
}

func (t *Tracker) submitRecovery(rec AbandonedCart) {
	ctx, cancel := context.WithTimeout(context.Background(), recoveryTimeout)
	defer cancel()

	if err := t.recovery.Submit(ctx, rec, rec.Email); err != nil {
		t.log.Warn("recovery submit failed", zap.String("id", rec.ID), zap.Error(err))
	}
}

// Active lists records still awaiting recovery.
func (t *Tracker) Active() []AbandonedCart {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]AbandonedCart, 0, len(t.records))
	for _, r := range t.records {
		if !r.Recovered {
			out = append(out, r)
		}
	}
	return out
}

// MarkRecovered flips the terminal flag on one record.
func (t *Tracker) MarkRecovered(id string) bool {
	t.mu.Lock()
	found := false
	for i := range t.records {
		if t.records[i].ID == id && !t.records[i].Recovered {
			t.records[i].Recovered = true
			found = true
			break
		}
	}
	var records []AbandonedCart
	if found {
		records = t.snapshotLocked()
	}
	t.mu.Unlock()

	if found {
		storage.SaveSlice(context.Background(), t.store, t.log, t.key, records)
	}
	return found
}

// Close cancels the pending countdown; a closed tracker never fires.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *Tracker) snapshotLocked() []AbandonedCart {
	out := make([]AbandonedCart, len(t.records))
	copy(out, t.records)
	return out
}
