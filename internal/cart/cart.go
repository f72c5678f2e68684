// Package cart is the source of truth for a session's shopping cart.
// Mutations are synchronous and in-memory; persistence trails behind a
// debounce window and is never read back after the initial hydration.
package cart

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"StoreFront/internal/analytics"
	"StoreFront/internal/storage"
	"StoreFront/pkg/clock"
)

// Item is one cart line. ID doubles as the product ID in this catalog.
type Item struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Image      string `json:"image"`
	Quantity   int    `json:"quantity"`
	SKU        string `json:"sku,omitempty"`
}

// ItemInput identifies a product to add; quantity is always derived
// (1 on first add, incremented on repeats).
type ItemInput struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Image      string `json:"image"`
	SKU        string `json:"sku,omitempty"`
}

const DefaultPersistDebounce = 300 * time.Millisecond

type Config struct {
	PersistDebounce time.Duration
}

func (c Config) withDefaults() Config {
	if c.PersistDebounce <= 0 {
		c.PersistDebounce = DefaultPersistDebounce
	}
	return c
}

type Store struct {
	log       *zap.Logger
	store     storage.Storage
	key       string
	analytics analytics.Tracker
	deb       *storage.Debouncer

	mu         sync.RWMutex
	items      []Item
	totalItems int
	totalCents int64
	subs       []func()
}

// New hydrates the cart once from its storage key. A missing or
// corrupted payload starts the cart empty.
func New(log *zap.Logger, st storage.Storage, key string, tr analytics.Tracker, clk clock.Clock, cfg Config) *Store {
	cfg = cfg.withDefaults()

	s := &Store{
		log:       log,
		store:     st,
		key:       key,
		analytics: tr,
		deb:       storage.NewDebouncer(clk, cfg.PersistDebounce),
	}

	s.items = storage.LoadSlice[Item](context.Background(), st, log, key)
	s.recomputeTotalsLocked()
	return s
}

// Subscribe registers fn to run synchronously after every mutation.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Add inserts a new line with quantity 1, or increments the existing
// line. The emitted analytics event carries the post-increment quantity.
func (s *Store) Add(in ItemInput) {
	s.mu.Lock()

	qty := 1
	if i := s.indexOfLocked(in.ID); i >= 0 {
		s.items[i].Quantity++
		qty = s.items[i].Quantity
	} else {
		s.items = append(s.items, Item{
			ID:         in.ID,
			ProductID:  in.ProductID,
			Name:       in.Name,
			PriceCents: in.PriceCents,
			Image:      in.Image,
			Quantity:   1,
			SKU:        in.SKU,
		})
	}
	s.recomputeTotalsLocked()
	s.mu.Unlock()

	s.analytics.AddToCart(in.ProductID, in.Name, in.PriceCents, qty)
	s.afterMutation()
}

// Remove deletes the line if present; absent IDs are a silent no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.recomputeTotalsLocked()
	s.mu.Unlock()

	s.analytics.RemoveFromCart(removed.ProductID, removed.Name, removed.PriceCents)
	s.afterMutation()
}

// SetQuantity replaces a line's quantity verbatim; zero or less removes
// the line. Unknown IDs are ignored.
func (s *Store) SetQuantity(id string, quantity int) {
	if quantity <= 0 {
		s.Remove(id)
		return
	}

	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items[i].Quantity = quantity
	s.recomputeTotalsLocked()
	s.mu.Unlock()

	s.afterMutation()
}

// Clear empties the cart unconditionally.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.recomputeTotalsLocked()
	s.mu.Unlock()

	s.afterMutation()
}

func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) == 0
}

// TotalItems returns the memoized sum of line quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalItems
}

// TotalCents returns the memoized sum of price times quantity.
func (s *Store) TotalCents() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalCents
}

// Close flushes any pending persistence write and stops the debouncer.
func (s *Store) Close() {
	s.deb.Flush()
	s.deb.Stop()
}

func (s *Store) indexOfLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// Totals are recomputed only when the line slice changes, never on reads.
func (s *Store) recomputeTotalsLocked() {
	var items int
	var cents int64
	for _, it := range s.items {
		items += it.Quantity
		cents += it.PriceCents * int64(it.Quantity)
	}
	s.totalItems = items
	s.totalCents = cents
}

func (s *Store) afterMutation() {
	s.deb.Trigger(s.persistNow)

	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}

// persistNow snapshots the current lines, so a coalesced burst of
// mutations writes only the final state.
func (s *Store) persistNow() {
	items := s.Items()
	storage.SaveSlice(context.Background(), s.store, s.log, s.key, items)
}
