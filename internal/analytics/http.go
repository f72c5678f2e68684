package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const emitTimeout = 3 * time.Second

// HTTPTracker posts event envelopes to a collector endpoint. Each emit
// runs on its own goroutine so the mutation that produced it never waits.
type HTTPTracker struct {
	BaseURL string
	Client  *http.Client
	Log     *zap.Logger
	Clock   func() time.Time
}

func NewHTTPTracker(baseURL string, log *zap.Logger) *HTTPTracker {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &HTTPTracker{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: emitTimeout},
		Log:     log,
		Clock:   time.Now,
	}
}

type envelope struct {
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
	EmittedAt  time.Time      `json:"emitted_at"`
}

func (t *HTTPTracker) AddToCart(productID, name string, priceCents int64, quantity int) {
	t.emit("add_to_cart", map[string]any{
		"product_id":  productID,
		"name":        name,
		"price_cents": priceCents,
		"quantity":    quantity,
	})
}

func (t *HTTPTracker) RemoveFromCart(productID, name string, priceCents int64) {
	t.emit("remove_from_cart", map[string]any{
		"product_id":  productID,
		"name":        name,
		"price_cents": priceCents,
	})
}

func (t *HTTPTracker) CartAbandoned(valueCents int64, itemCount int) {
	t.emit("cart_abandoned", map[string]any{
		"value_cents": valueCents,
		"item_count":  itemCount,
	})
}

func (t *HTTPTracker) WishlistAction(action, productID, name string) {
	t.emit("wishlist_"+action, map[string]any{
		"product_id": productID,
		"name":       name,
	})
}

func (t *HTTPTracker) emit(event string, props map[string]any) {
	env := envelope{Event: event, Properties: props, EmittedAt: t.Clock()}
	go t.post(env)
}

func (t *HTTPTracker) post(env envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		t.Log.Warn("analytics encode failed", zap.String("event", env.Event), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/events", bytes.NewReader(body))
	if err != nil {
		t.Log.Warn("analytics request failed", zap.String("event", env.Event), zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		t.Log.Warn("analytics post failed", zap.String("event", env.Event), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		t.Log.Warn("analytics rejected",
			zap.String("event", env.Event),
			zap.Int("status", resp.StatusCode),
		)
	}
}
