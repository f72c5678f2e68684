package analytics

import "github.com/prometheus/client_golang/prometheus"

// PromTracker mirrors analytics events into prometheus counters so cart
// behavior is visible without the external collector.
type PromTracker struct {
	cartAdds      prometheus.Counter
	cartRemoves   prometheus.Counter
	cartAbandoned prometheus.Counter
	wishlist      *prometheus.CounterVec
}

func NewPromTracker(reg *prometheus.Registry) *PromTracker {
	t := &PromTracker{
		cartAdds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_adds_total",
			Help: "Cart line additions and increments",
		}),
		cartRemoves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_removes_total",
			Help: "Cart line removals",
		}),
		cartAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_abandoned_total",
			Help: "Carts classified as abandoned",
		}),
		wishlist: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wishlist_actions_total",
			Help: "Wishlist add/remove actions",
		}, []string{"action"}),
	}

	reg.MustRegister(t.cartAdds, t.cartRemoves, t.cartAbandoned, t.wishlist)
	return t
}

func (t *PromTracker) AddToCart(string, string, int64, int) { t.cartAdds.Inc() }
func (t *PromTracker) RemoveFromCart(string, string, int64) { t.cartRemoves.Inc() }
func (t *PromTracker) CartAbandoned(int64, int)             { t.cartAbandoned.Inc() }

func (t *PromTracker) WishlistAction(action, _, _ string) {
	t.wishlist.WithLabelValues(action).Inc()
}
