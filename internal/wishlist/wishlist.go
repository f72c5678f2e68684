// Package wishlist keeps a deduplicated set of saved products, keyed by
// product ID. Writes are rare, so persistence is immediate rather than
// debounced.
package wishlist

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"StoreFront/internal/analytics"
	"StoreFront/internal/notify"
	"StoreFront/internal/storage"
)

type Item struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Image      string `json:"image"`
	Slug       string `json:"slug,omitempty"`
}

type Store struct {
	log       *zap.Logger
	store     storage.Storage
	key       string
	analytics analytics.Tracker
	notifier  *notify.Deduper

	mu    sync.RWMutex
	items []Item
}

func New(log *zap.Logger, st storage.Storage, key string, tr analytics.Tracker, notifier *notify.Deduper) *Store {
	s := &Store{
		log:       log,
		store:     st,
		key:       key,
		analytics: tr,
		notifier:  notifier,
	}
	s.items = storage.LoadSlice[Item](context.Background(), st, log, key)
	return s
}

// Add saves the product; duplicates by product ID are a no-op.
func (s *Store) Add(in Item) bool {
	s.mu.Lock()
	if s.indexOfLocked(in.ProductID) >= 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items, in)
	s.mu.Unlock()

	s.persist()
	s.analytics.WishlistAction("add", in.ProductID, in.Name)
	s.notifier.Notify("wishlist:add:"+in.ProductID, notify.Notice{
		Level:   notify.LevelSuccess,
		Message: in.Name + " added to wishlist",
	})
	return true
}

func (s *Store) Remove(productID string) bool {
	s.mu.Lock()
	i := s.indexOfLocked(productID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.mu.Unlock()

	s.persist()
	s.analytics.WishlistAction("remove", removed.ProductID, removed.Name)
	s.notifier.Notify("wishlist:remove:"+removed.ProductID, notify.Notice{
		Level:   notify.LevelInfo,
		Message: removed.Name + " removed from wishlist",
	})
	return true
}

// Toggle removes the product when present, adds it otherwise. Returns
// whether the product is in the wishlist afterwards.
func (s *Store) Toggle(in Item) bool {
	if s.Contains(in.ProductID) {
		s.Remove(in.ProductID)
		return false
	}
	s.Add(in)
	return true
}

func (s *Store) Contains(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfLocked(productID) >= 0
}

func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) indexOfLocked(productID string) int {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) persist() {
	items := s.Items()
	storage.SaveSlice(context.Background(), s.store, s.log, s.key, items)
}
