// Package comparison stages a bounded set of product snapshots for
// side-by-side comparison. Adds beyond the capacity, or of a product
// already staged, are rejected without touching state; the rejection
// notice itself is deduplicated against rapid-fire repeats.
package comparison

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"StoreFront/internal/notify"
	"StoreFront/internal/storage"
)

// Product is a comparison snapshot, richer than a cart line because the
// comparison view renders attribute-by-attribute detail.
type Product struct {
	ID                  string   `json:"id"`
	ProductID           string   `json:"product_id"`
	Name                string   `json:"name"`
	Slug                string   `json:"slug"`
	PriceCents          int64    `json:"price_cents"`
	CompareAtCents      int64    `json:"compare_at_cents,omitempty"`
	Image               string   `json:"image"`
	ShortDescription    string   `json:"short_description,omitempty"`
	Description         string   `json:"description,omitempty"`
	InStock             bool     `json:"in_stock"`
	StockQuantity       int      `json:"stock_quantity,omitempty"`
	Rating              float64  `json:"rating,omitempty"`
	ReviewsCount        int      `json:"reviews_count,omitempty"`
	SalesCount          int      `json:"sales_count,omitempty"`
	SKU                 string   `json:"sku,omitempty"`
	Category            string   `json:"category,omitempty"`
	Benefits            []string `json:"benefits,omitempty"`
	Ingredients         []string `json:"ingredients,omitempty"`
	UsageInstructions   string   `json:"usage_instructions,omitempty"`
	StorageInstructions string   `json:"storage_instructions,omitempty"`
	Manufacturer        string   `json:"manufacturer,omitempty"`
	Weight              string   `json:"weight,omitempty"`
	Dimensions          string   `json:"dimensions,omitempty"`
}

type Result int

const (
	Added Result = iota
	AlreadyPresent
	AtCapacity
)

const DefaultMaxItems = 4

type Config struct {
	MaxItems int
}

func (c Config) withDefaults() Config {
	if c.MaxItems <= 0 {
		c.MaxItems = DefaultMaxItems
	}
	return c
}

type Store struct {
	log      *zap.Logger
	store    storage.Storage
	key      string
	notifier *notify.Deduper
	max      int

	mu    sync.RWMutex
	items []Product
}

func New(log *zap.Logger, st storage.Storage, key string, notifier *notify.Deduper, cfg Config) *Store {
	cfg = cfg.withDefaults()

	s := &Store{
		log:      log,
		store:    st,
		key:      key,
		notifier: notifier,
		max:      cfg.MaxItems,
	}
	s.items = storage.LoadSlice[Product](context.Background(), st, log, key)
	return s
}

// Add appends p unless it is already staged or the set is full. The
// three outcomes are mutually exclusive and each emits its own notice.
func (s *Store) Add(p Product) Result {
	s.mu.Lock()
	switch {
	case s.indexOfLocked(p.ID) >= 0:
		s.mu.Unlock()
		s.notifier.Notify("compare:dup:"+p.ID, notify.Notice{
			Level:   notify.LevelInfo,
			Message: p.Name + " is already in comparison",
		})
		return AlreadyPresent

	case len(s.items) >= s.max:
		s.mu.Unlock()
		s.notifier.Notify("compare:full:"+p.ID, notify.Notice{
			Level:   notify.LevelWarn,
			Message: "Comparison is full, remove a product first",
		})
		return AtCapacity
	}

	s.items = append(s.items, p)
	s.mu.Unlock()

	s.persist()
	s.notifier.Notify("compare:add:"+p.ID, notify.Notice{
		Level:   notify.LevelSuccess,
		Message: p.Name + " added to comparison",
	})
	return Added
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	i := s.indexOfLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.mu.Unlock()

	s.persist()
	s.notifier.Notify("compare:remove:"+removed.ID, notify.Notice{
		Level:   notify.LevelInfo,
		Message: removed.Name + " removed from comparison",
	})
	return true
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	s.persist()
}

func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfLocked(id) >= 0
}

func (s *Store) Items() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) CanAddMore() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items) < s.max
}

func (s *Store) MaxItems() int { return s.max }

func (s *Store) indexOfLocked(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persist() {
	items := s.Items()
	storage.SaveSlice(context.Background(), s.store, s.log, s.key, items)
}
