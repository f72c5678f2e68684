package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"StoreFront/internal/cart"
	"StoreFront/internal/comparison"
	"StoreFront/internal/tracking"
	"StoreFront/internal/wishlist"
	"StoreFront/pkg/kit"
)

type Server struct {
	Log      *zap.Logger
	Registry *Registry
	Tracking *tracking.Service
}

const maxBody = 1 << 20

// resolve returns the request's session bundle, applying any
// authenticated identity so the abandonment tracker knows the email.
func (s *Server) resolve(r *http.Request) *Session {
	sid, _ := SessionIDFromContext(r.Context())
	sess := s.Registry.Get(sid)

	if id, ok := IdentityFromContext(r.Context()); ok && id.Email != "" {
		sess.SetEmail(id.Email)
	}
	return sess
}

type cartView struct {
	Items      []cart.Item `json:"items"`
	TotalItems int         `json:"total_items"`
	TotalCents int64       `json:"total_cents"`
}

func viewCart(c *cart.Store) cartView {
	items := c.Items()
	if items == nil {
		items = []cart.Item{}
	}
	return cartView{
		Items:      items,
		TotalItems: c.TotalItems(),
		TotalCents: c.TotalCents(),
	}
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	kit.WriteJSON(w, http.StatusOK, viewCart(sess.Cart))
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var in cart.ItemInput
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if strings.TrimSpace(in.ID) == "" || in.PriceCents < 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "bad item", nil)
		return
	}
	if in.ProductID == "" {
		in.ProductID = in.ID
	}

	sess := s.resolve(r)
	sess.Cart.Add(in)
	kit.WriteJSON(w, http.StatusOK, viewCart(sess.Cart))
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	sess := s.resolve(r)
	sess.Cart.SetQuantity(chi.URLParam(r, "id"), in.Quantity)
	kit.WriteJSON(w, http.StatusOK, viewCart(sess.Cart))
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	sess.Cart.Remove(chi.URLParam(r, "id"))
	kit.WriteJSON(w, http.StatusOK, viewCart(sess.Cart))
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	sess.Cart.Clear()
	kit.WriteNoContent(w)
}

func (s *Server) getWishlist(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	items := sess.Wishlist.Items()
	if items == nil {
		items = []wishlist.Item{}
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) toggleWishlist(w http.ResponseWriter, r *http.Request) {
	var in wishlist.Item
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if strings.TrimSpace(in.ProductID) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "product_id required", nil)
		return
	}

	sess := s.resolve(r)
	inList := sess.Wishlist.Toggle(in)
	kit.WriteJSON(w, http.StatusOK, map[string]any{
		"product_id":  in.ProductID,
		"in_wishlist": inList,
	})
}

func (s *Server) removeWishlistItem(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	if !sess.Wishlist.Remove(chi.URLParam(r, "productID")) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	kit.WriteNoContent(w)
}

type comparisonView struct {
	Items      []comparison.Product `json:"items"`
	TotalItems int                  `json:"total_items"`
	MaxItems   int                  `json:"max_items"`
	CanAddMore bool                 `json:"can_add_more"`
}

func viewComparison(c *comparison.Store) comparisonView {
	items := c.Items()
	if items == nil {
		items = []comparison.Product{}
	}
	return comparisonView{
		Items:      items,
		TotalItems: c.TotalItems(),
		MaxItems:   c.MaxItems(),
		CanAddMore: c.CanAddMore(),
	}
}

func (s *Server) getComparison(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	kit.WriteJSON(w, http.StatusOK, viewComparison(sess.Comparison))
}

func (s *Server) addComparisonItem(w http.ResponseWriter, r *http.Request) {
	var in comparison.Product
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if strings.TrimSpace(in.ID) == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "id required", nil)
		return
	}

	sess := s.resolve(r)
	switch sess.Comparison.Add(in) {
	case comparison.Added:
		kit.WriteJSON(w, http.StatusCreated, viewComparison(sess.Comparison))
	case comparison.AlreadyPresent:
		kit.WriteError(w, r, http.StatusConflict, "already in comparison", map[string]any{"id": in.ID})
	case comparison.AtCapacity:
		kit.WriteError(w, r, http.StatusConflict, "comparison full", map[string]any{
			"max_items": sess.Comparison.MaxItems(),
		})
	}
}

func (s *Server) removeComparisonItem(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	if !sess.Comparison.Remove(chi.URLParam(r, "id")) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, viewComparison(sess.Comparison))
}

func (s *Server) clearComparison(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	sess.Comparison.Clear()
	kit.WriteNoContent(w)
}

func (s *Server) setRoute(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Route string `json:"route"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	sess := s.resolve(r)
	sess.SetRoute(in.Route)
	kit.WriteNoContent(w)
}

func (s *Server) listAbandoned(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	kit.WriteJSON(w, http.StatusOK, map[string]any{"carts": sess.Abandon.Active()})
}

func (s *Server) markRecovered(w http.ResponseWriter, r *http.Request) {
	sess := s.resolve(r)
	if !sess.Abandon.MarkRecovered(chi.URLParam(r, "id")) {
		kit.WriteError(w, r, http.StatusNotFound, "not found", nil)
		return
	}
	kit.WriteNoContent(w)
}

func (s *Server) getTracking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")

	tl, err := s.Tracking.Track(r.Context(), id)
	if err != nil {
		s.writeTrackingError(w, r, id, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, tl)
}

func (s *Server) batchTracking(w http.ResponseWriter, r *http.Request) {
	var in struct {
		OrderIDs []string `json:"order_ids"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}
	if len(in.OrderIDs) == 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "order_ids required", nil)
		return
	}

	results := s.Tracking.TrackMany(r.Context(), in.OrderIDs)

	type entry struct {
		Timeline *tracking.Timeline `json:"timeline,omitempty"`
		Error    string             `json:"error,omitempty"`
	}
	out := make(map[string]entry, len(results))
	for id, res := range results {
		if res.Err != nil {
			out[id] = entry{Error: trackingErrorLabel(res.Err)}
			continue
		}
		out[id] = entry{Timeline: res.Timeline}
	}
	kit.WriteJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (s *Server) writeTrackingError(w http.ResponseWriter, r *http.Request, id string, err error) {
	switch {
	case errors.Is(err, tracking.ErrOrderNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "order not found", map[string]any{"id": id})
	case errors.Is(err, tracking.ErrOrdersUnavailable):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "orders unavailable", nil)
	case errors.Is(err, tracking.ErrOrdersBadStatus):
		kit.WriteError(w, r, http.StatusBadGateway, "orders error", nil)
	default:
		s.Log.Error("tracking failed", zap.String("order_id", id), zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func trackingErrorLabel(err error) string {
	switch {
	case errors.Is(err, tracking.ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, tracking.ErrOrdersUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}
