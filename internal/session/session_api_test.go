package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"StoreFront/internal/abandon"
	"StoreFront/internal/analytics"
	"StoreFront/internal/cart"
	"StoreFront/internal/comparison"
	"StoreFront/internal/kvcache"
	"StoreFront/internal/notify"
	"StoreFront/internal/session"
	"StoreFront/internal/storage"
	"StoreFront/internal/tracking"
	"StoreFront/pkg/clock"
)

func newOrdersTS(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/o1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		created, _ := time.Parse(time.RFC3339, "2024-01-01T00:00:00Z")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"order": tracking.OrderRecord{ID: "o1", Status: "pending", CreatedAt: created},
		})
	}))
}

func newSessionTS(t *testing.T, st storage.Storage, jwt *session.TokenMaker, ordersURL string) *httptest.Server {
	t.Helper()

	clk := clock.New()

	registry := session.NewRegistry(session.Deps{
		Log:       zap.NewNop(),
		Storage:   st,
		Clock:     clk,
		Analytics: analytics.Nop{},
		Notices:   notify.LogSink{Log: zap.NewNop()},

		CartCfg:      cart.Config{PersistDebounce: time.Millisecond},
		CompareCfg:   comparison.Config{},
		AbandonCfg:   abandon.Config{},
		NoticeWindow: notify.DefaultWindow,
	})
	t.Cleanup(registry.Close)

	s := &session.Server{
		Log:      zap.NewNop(),
		Registry: registry,
		Tracking: tracking.NewService(
			tracking.NewOrderClient(ordersURL),
			kvcache.NewMemory(clk),
			zap.NewNop(),
			time.Minute,
		),
	}

	h := session.NewHandler(s, session.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "session",
		JWT:     jwt,
		Storage: st,
	})

	return httptest.NewServer(h)
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string, wantStatus int, out any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status = %d, want %d, body: %s", method, url, resp.StatusCode, wantStatus, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			t.Fatalf("unmarshal %q: %v", raw, err)
		}
	}
	return resp
}

type cartView struct {
	Items      []cart.Item `json:"items"`
	TotalItems int         `json:"total_items"`
	TotalCents int64       `json:"total_cents"`
}

func TestAPI_SessionIDMintedAndEchoed(t *testing.T) {
	t.Parallel()

	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, storage.NewMemStorage(), nil, orders.URL)
	defer ts.Close()

	resp := doJSON(t, http.MethodGet, ts.URL+"/cart", nil, nil, http.StatusOK, nil)

	sid := resp.Header.Get(session.SessionHeader)
	if sid == "" {
		t.Fatalf("no session id minted")
	}

	resp2 := doJSON(t, http.MethodGet, ts.URL+"/cart", nil, map[string]string{session.SessionHeader: sid}, http.StatusOK, nil)
	if got := resp2.Header.Get(session.SessionHeader); got != sid {
		t.Fatalf("session id not echoed: %q != %q", got, sid)
	}
}

func TestAPI_CartLifecycle(t *testing.T) {
	t.Parallel()

	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, storage.NewMemStorage(), nil, orders.URL)
	defer ts.Close()

	hdr := map[string]string{session.SessionHeader: "s_cart_test"}
	item := map[string]any{"id": "p1", "product_id": "p1", "name": "Keyboard", "price_cents": 4990}

	var view cartView
	doJSON(t, http.MethodPost, ts.URL+"/cart/items", item, hdr, http.StatusOK, &view)
	doJSON(t, http.MethodPost, ts.URL+"/cart/items", item, hdr, http.StatusOK, &view)

	if view.TotalItems != 2 || len(view.Items) != 1 {
		t.Fatalf("after two adds: %+v", view)
	}
	if view.TotalCents != 2*4990 {
		t.Fatalf("total cents = %d", view.TotalCents)
	}

	doJSON(t, http.MethodPatch, ts.URL+"/cart/items/p1", map[string]any{"quantity": 5}, hdr, http.StatusOK, &view)
	if view.TotalItems != 5 {
		t.Fatalf("after patch: %+v", view)
	}

	doJSON(t, http.MethodPatch, ts.URL+"/cart/items/p1", map[string]any{"quantity": 0}, hdr, http.StatusOK, &view)
	if view.TotalItems != 0 || len(view.Items) != 0 {
		t.Fatalf("zero quantity did not remove line: %+v", view)
	}

	doJSON(t, http.MethodPost, ts.URL+"/cart/items", item, hdr, http.StatusOK, nil)
	doJSON(t, http.MethodDelete, ts.URL+"/cart", nil, hdr, http.StatusNoContent, nil)

	doJSON(t, http.MethodGet, ts.URL+"/cart", nil, hdr, http.StatusOK, &view)
	if view.TotalItems != 0 {
		t.Fatalf("cart not cleared: %+v", view)
	}
}

func TestAPI_SessionsAreIsolated(t *testing.T) {
	t.Parallel()

	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, storage.NewMemStorage(), nil, orders.URL)
	defer ts.Close()

	item := map[string]any{"id": "p1", "name": "Keyboard", "price_cents": 4990}
	doJSON(t, http.MethodPost, ts.URL+"/cart/items", item, map[string]string{session.SessionHeader: "s_a"}, http.StatusOK, nil)

	var view cartView
	doJSON(t, http.MethodGet, ts.URL+"/cart", nil, map[string]string{session.SessionHeader: "s_b"}, http.StatusOK, &view)
	if view.TotalItems != 0 {
		t.Fatalf("session b sees session a's cart: %+v", view)
	}
}

func TestAPI_ComparisonCapacityAndConflicts(t *testing.T) {
	t.Parallel()

	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, storage.NewMemStorage(), nil, orders.URL)
	defer ts.Close()

	hdr := map[string]string{session.SessionHeader: "s_cmp"}

	for i := 1; i <= 4; i++ {
		p := map[string]any{"id": fmt.Sprintf("p%d", i), "name": fmt.Sprintf("P%d", i)}
		doJSON(t, http.MethodPost, ts.URL+"/comparison/items", p, hdr, http.StatusCreated, nil)
	}

	// Duplicate and overflow both conflict without changing state.
	doJSON(t, http.MethodPost, ts.URL+"/comparison/items", map[string]any{"id": "p1", "name": "P1"}, hdr, http.StatusConflict, nil)
	doJSON(t, http.MethodPost, ts.URL+"/comparison/items", map[string]any{"id": "p5", "name": "P5"}, hdr, http.StatusConflict, nil)

	var view struct {
		TotalItems int  `json:"total_items"`
		MaxItems   int  `json:"max_items"`
		CanAddMore bool `json:"can_add_more"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/comparison", nil, hdr, http.StatusOK, &view)
	if view.TotalItems != 4 || view.MaxItems != 4 || view.CanAddMore {
		t.Fatalf("comparison view = %+v", view)
	}

	doJSON(t, http.MethodDelete, ts.URL+"/comparison/items/p1", nil, hdr, http.StatusOK, nil)
	doJSON(t, http.MethodGet, ts.URL+"/comparison", nil, hdr, http.StatusOK, &view)
	if view.TotalItems != 3 || !view.CanAddMore {
		t.Fatalf("after remove: %+v", view)
	}
}

func TestAPI_WishlistToggle(t *testing.T) {
	t.Parallel()

	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, storage.NewMemStorage(), nil, orders.URL)
	defer ts.Close()

	hdr := map[string]string{session.SessionHeader: "s_wl"}
	item := map[string]any{"id": "w1", "product_id": "p1", "name": "Candle"}

	var out struct {
		InWishlist bool `json:"in_wishlist"`
	}
	doJSON(t, http.MethodPost, ts.URL+"/wishlist/toggle", item, hdr, http.StatusOK, &out)
	if !out.InWishlist {
		t.Fatalf("first toggle did not add")
	}
	doJSON(t, http.MethodPost, ts.URL+"/wishlist/toggle", item, hdr, http.StatusOK, &out)
	if out.InWishlist {
		t.Fatalf("second toggle did not remove")
	}
}

func TestAPI_CorruptedStateStartsEmpty(t *testing.T) {
	t.Parallel()

	st := storage.NewMemStorage()
	// Seed a corrupted cart payload for the session before any request.
	if err := st.Save(context.Background(), "cart:s_corrupt", []byte(`not-json{{`)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, st, nil, orders.URL)
	defer ts.Close()

	var view cartView
	doJSON(t, http.MethodGet, ts.URL+"/cart", nil, map[string]string{session.SessionHeader: "s_corrupt"}, http.StatusOK, &view)
	if view.TotalItems != 0 || len(view.Items) != 0 {
		t.Fatalf("corrupted state surfaced: %+v", view)
	}
}

func TestAPI_TrackingEndpoint(t *testing.T) {
	t.Parallel()

	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, storage.NewMemStorage(), nil, orders.URL)
	defer ts.Close()

	hdr := map[string]string{session.SessionHeader: "s_trk"}

	var tl tracking.Timeline
	doJSON(t, http.MethodGet, ts.URL+"/tracking/o1", nil, hdr, http.StatusOK, &tl)
	if tl.OrderID != "o1" || tl.CurrentStatus != "pending" || len(tl.Events) != 1 {
		t.Fatalf("timeline = %+v", tl)
	}

	doJSON(t, http.MethodGet, ts.URL+"/tracking/o_nope", nil, hdr, http.StatusNotFound, nil)

	var batch struct {
		Results map[string]struct {
			Timeline *tracking.Timeline `json:"timeline"`
			Error    string             `json:"error"`
		} `json:"results"`
	}
	doJSON(t, http.MethodPost, ts.URL+"/tracking/batch",
		map[string]any{"order_ids": []string{"o1", "o_nope"}}, hdr, http.StatusOK, &batch)

	if batch.Results["o1"].Timeline == nil || batch.Results["o1"].Error != "" {
		t.Fatalf("o1 batch result = %+v", batch.Results["o1"])
	}
	if batch.Results["o_nope"].Error != "not_found" {
		t.Fatalf("o_nope batch result = %+v", batch.Results["o_nope"])
	}
}

func TestAPI_BearerIdentity(t *testing.T) {
	t.Parallel()

	jwt := session.NewTokenMaker("test-secret")
	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, storage.NewMemStorage(), jwt, orders.URL)
	defer ts.Close()

	token, err := jwt.New("u1", "shopper@example.com", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	hdr := map[string]string{
		session.SessionHeader: "s_auth",
		"Authorization":       "Bearer " + token,
	}
	doJSON(t, http.MethodGet, ts.URL+"/cart", nil, hdr, http.StatusOK, nil)

	bad := map[string]string{
		session.SessionHeader: "s_auth",
		"Authorization":       "Bearer garbage",
	}
	doJSON(t, http.MethodGet, ts.URL+"/cart", nil, bad, http.StatusUnauthorized, nil)
}

func TestAPI_RouteBeaconAndAbandonedList(t *testing.T) {
	t.Parallel()

	orders := newOrdersTS(t)
	defer orders.Close()
	ts := newSessionTS(t, storage.NewMemStorage(), nil, orders.URL)
	defer ts.Close()

	hdr := map[string]string{session.SessionHeader: "s_route"}

	doJSON(t, http.MethodPost, ts.URL+"/session/route", map[string]any{"route": "/checkout/payment"}, hdr, http.StatusNoContent, nil)

	var out struct {
		Carts []abandon.AbandonedCart `json:"carts"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/abandoned", nil, hdr, http.StatusOK, &out)
	if len(out.Carts) != 0 {
		t.Fatalf("fresh session has abandoned carts: %+v", out.Carts)
	}

	doJSON(t, http.MethodPost, ts.URL+"/abandoned/nope/recovered", nil, hdr, http.StatusNotFound, nil)
}
