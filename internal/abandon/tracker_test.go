package abandon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"StoreFront/internal/abandon"
	"StoreFront/internal/cart"
	"StoreFront/internal/storage"
	"StoreFront/pkg/clock"
)

type abandonEvent struct {
	valueCents int64
	itemCount  int
}

type recordingTracker struct {
	mu        sync.Mutex
	abandoned []abandonEvent
}

func (r *recordingTracker) AddToCart(string, string, int64, int) {}
func (r *recordingTracker) RemoveFromCart(string, string, int64) {}
func (r *recordingTracker) WishlistAction(string, string, string) {}

func (r *recordingTracker) CartAbandoned(valueCents int64, itemCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.abandoned = append(r.abandoned, abandonEvent{valueCents: valueCents, itemCount: itemCount})
}

func (r *recordingTracker) abandonedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.abandoned)
}

type fixture struct {
	clk     *clock.Fake
	cart    *cart.Store
	tracker *abandon.Tracker
	events  *recordingTracker
	storage storage.Storage

	mu       sync.Mutex
	email    string
	checkout bool
}

func (f *fixture) setEmail(e string) {
	f.mu.Lock()
	f.email = e
	f.mu.Unlock()
}

func (f *fixture) setCheckout(v bool) {
	f.mu.Lock()
	f.checkout = v
	f.mu.Unlock()
}

func newFixture(t *testing.T, recovery *abandon.RecoveryClient) *fixture {
	t.Helper()

	f := &fixture{
		clk:     clock.NewFake(time.Unix(1_700_000_000, 0)),
		events:  &recordingTracker{},
		storage: storage.NewMemStorage(),
	}

	f.cart = cart.New(zap.NewNop(), f.storage, "cart:test", f.events, f.clk, cart.Config{})
	f.tracker = abandon.New(
		zap.NewNop(), f.clk, f.cart, f.storage, "abandoned:test",
		f.events, recovery,
		func() string { f.mu.Lock(); defer f.mu.Unlock(); return f.email },
		func() bool { f.mu.Lock(); defer f.mu.Unlock(); return f.checkout },
		abandon.Config{},
	)
	return f
}

func soap() cart.ItemInput {
	return cart.ItemInput{ID: "p1", ProductID: "p1", Name: "Soap", PriceCents: 650}
}

func TestFire_AfterIdleWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.cart.Add(soap())
	f.cart.Add(soap())

	f.clk.Advance(30 * time.Minute)

	active := f.tracker.Active()
	if len(active) != 1 {
		t.Fatalf("abandoned records = %d, want 1", len(active))
	}

	rec := active[0]
	if rec.TotalCents != 2*650 || len(rec.Items) != 1 {
		t.Fatalf("snapshot = %+v", rec)
	}
	if rec.Recovered {
		t.Fatalf("fresh record already recovered")
	}

	if f.events.abandonedCount() != 1 {
		t.Fatalf("cart_abandoned events = %d, want 1", f.events.abandonedCount())
	}

	persisted := storage.LoadSlice[abandon.AbandonedCart](context.Background(), f.storage, zap.NewNop(), "abandoned:test")
	if len(persisted) != 1 {
		t.Fatalf("records not persisted")
	}
}

func TestFire_MutationResetsWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.cart.Add(soap())

	f.clk.Advance(29 * time.Minute)
	f.cart.SetQuantity("p1", 3)
	f.clk.Advance(29 * time.Minute)

	if got := len(f.tracker.Active()); got != 0 {
		t.Fatalf("fired before reset window elapsed, records = %d", got)
	}

	f.clk.Advance(1 * time.Minute)
	if got := len(f.tracker.Active()); got != 1 {
		t.Fatalf("did not fire after full quiet window, records = %d", got)
	}
}

func TestFire_EmptyCartCancels(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.cart.Add(soap())
	f.cart.Clear()

	f.clk.Advance(time.Hour)

	if got := len(f.tracker.Active()); got != 0 {
		t.Fatalf("empty cart produced %d abandoned records", got)
	}
}

func TestFire_SuppressedOnCheckoutRoute(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.cart.Add(soap())
	f.setCheckout(true)

	f.clk.Advance(30 * time.Minute)

	if got := len(f.tracker.Active()); got != 0 {
		t.Fatalf("abandonment fired while on checkout, records = %d", got)
	}
}

func TestMarkRecovered_TerminalAndFilteredOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.cart.Add(soap())
	f.clk.Advance(30 * time.Minute)

	id := f.tracker.Active()[0].ID

	if !f.tracker.MarkRecovered(id) {
		t.Fatalf("mark recovered failed")
	}
	if f.tracker.MarkRecovered(id) {
		t.Fatalf("second mark on terminal record succeeded")
	}
	if got := len(f.tracker.Active()); got != 0 {
		t.Fatalf("recovered record still active")
	}

	persisted := storage.LoadSlice[abandon.AbandonedCart](context.Background(), f.storage, zap.NewNop(), "abandoned:test")
	if len(persisted) != 1 || !persisted[0].Recovered {
		t.Fatalf("recovered flag not persisted: %+v", persisted)
	}
}

func TestClose_CancelsPendingFire(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.cart.Add(soap())
	f.tracker.Close()

	f.clk.Advance(time.Hour)

	if got := len(f.tracker.Active()); got != 0 {
		t.Fatalf("closed tracker fired, records = %d", got)
	}
}

func TestFire_SubmitsRecoveryWhenEmailKnown(t *testing.T) {
	t.Parallel()

	received := make(chan struct{}, 1)
	var gotEmail string
	var gotItems int

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cart/abandoned" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			Cart  abandon.AbandonedCart `json:"cart"`
			Email string                `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		gotEmail = req.Email
		gotItems = len(req.Cart.Items)
		w.WriteHeader(http.StatusAccepted)
		received <- struct{}{}
	}))
	defer ts.Close()

	f := newFixture(t, abandon.NewRecoveryClient(ts.URL))
	f.setEmail("shopper@example.com")
	f.cart.Add(soap())

	f.clk.Advance(30 * time.Minute)

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatalf("recovery endpoint never called")
	}

	if gotEmail != "shopper@example.com" || gotItems != 1 {
		t.Fatalf("recovery payload email=%q items=%d", gotEmail, gotItems)
	}
}

func TestFire_NoRecoveryWithoutEmail(t *testing.T) {
	t.Parallel()

	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	f := newFixture(t, abandon.NewRecoveryClient(ts.URL))
	f.cart.Add(soap())

	f.clk.Advance(30 * time.Minute)
	time.Sleep(50 * time.Millisecond)

	if calls != 0 {
		t.Fatalf("recovery called for anonymous session")
	}
	if got := len(f.tracker.Active()); got != 1 {
		t.Fatalf("record still created without email, got %d", got)
	}
}
