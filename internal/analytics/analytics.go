// Package analytics emits shopping events. Emission is fire-and-forget:
// no retries, no ordering guarantee, and failures are logged rather than
// surfaced to whatever user action produced the event.
package analytics

type Tracker interface {
	AddToCart(productID, name string, priceCents int64, quantity int)
	RemoveFromCart(productID, name string, priceCents int64)
	CartAbandoned(valueCents int64, itemCount int)
	WishlistAction(action, productID, name string)
}

type Nop struct{}

func (Nop) AddToCart(string, string, int64, int)  {}
func (Nop) RemoveFromCart(string, string, int64)  {}
func (Nop) CartAbandoned(int64, int)              {}
func (Nop) WishlistAction(string, string, string) {}

// Multi fans events out to every tracker in order.
type Multi []Tracker

func (m Multi) AddToCart(productID, name string, priceCents int64, quantity int) {
	for _, t := range m {
		t.AddToCart(productID, name, priceCents, quantity)
	}
}

func (m Multi) RemoveFromCart(productID, name string, priceCents int64) {
	for _, t := range m {
		t.RemoveFromCart(productID, name, priceCents)
	}
}

func (m Multi) CartAbandoned(valueCents int64, itemCount int) {
	for _, t := range m {
		t.CartAbandoned(valueCents, itemCount)
	}
}

func (m Multi) WishlistAction(action, productID, name string) {
	for _, t := range m {
		t.WishlistAction(action, productID, name)
	}
}
