package session

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"StoreFront/internal/abandon"
	"StoreFront/internal/analytics"
	"StoreFront/internal/cart"
	"StoreFront/internal/comparison"
	"StoreFront/internal/notify"
	"StoreFront/internal/storage"
	"StoreFront/internal/wishlist"
	"StoreFront/pkg/clock"
)

// Deps is everything a session's store bundle needs. One Deps serves
// the whole process; stores are built per session on first use.
type Deps struct {
	Log       *zap.Logger
	Storage   storage.Storage
	Clock     clock.Clock
	Analytics analytics.Tracker
	Notices   notify.Sink
	Recovery  *abandon.RecoveryClient

	CartCfg      cart.Config
	CompareCfg   comparison.Config
	AbandonCfg   abandon.Config
	NoticeWindow time.Duration
}

// Session owns one client's state containers. Each store persists under
// its own namespaced key and never reads a sibling's.
type Session struct {
	ID string

	Cart       *cart.Store
	Wishlist   *wishlist.Store
	Comparison *comparison.Store
	Abandon    *abandon.Tracker

	mu    sync.RWMutex
	route string
	email string
}

func newSession(id string, d Deps) *Session {
	log := d.Log.With(zap.String("session_id", id))
	notices := notify.NewDeduper(d.Notices, d.Clock, d.NoticeWindow)

	s := &Session{ID: id}

	s.Cart = cart.New(log, d.Storage, "cart:"+id, d.Analytics, d.Clock, d.CartCfg)
	s.Wishlist = wishlist.New(log, d.Storage, "wishlist:"+id, d.Analytics, notices)
	s.Comparison = comparison.New(log, d.Storage, "comparison:"+id, notices, d.CompareCfg)
	s.Abandon = abandon.New(
		log, d.Clock, s.Cart, d.Storage, "abandoned:"+id,
		d.Analytics, d.Recovery, s.Email, s.OnCheckout, d.AbandonCfg,
	)

	return s
}

func (s *Session) SetRoute(route string) {
	s.mu.Lock()
	s.route = route
	s.mu.Unlock()
}

func (s *Session) Route() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.route
}

// OnCheckout reports whether the client last announced a checkout route;
// an abandonment check is suppressed while true.
func (s *Session) OnCheckout() bool {
	return strings.HasPrefix(s.Route(), "/checkout")
}

func (s *Session) SetEmail(email string) {
	s.mu.Lock()
	s.email = email
	s.mu.Unlock()
}

func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

func (s *Session) close() {
	s.Abandon.Close()
	s.Cart.Close()
}

// Registry hands out session bundles, creating them on first sight of a
// session ID. Sessions live for the process lifetime; storage carries
// their state across restarts.
type Registry struct {
	deps Deps

	mu sync.Mutex
	m  map[string]*Session
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps, m: make(map[string]*Session)}
}

func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.m[id]; ok {
		return s
	}
	s := newSession(id, r.deps)
	r.m[id] = s
	return s
}

// Close flushes pending cart writes and cancels abandonment timers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.m {
		s.close()
	}
}
