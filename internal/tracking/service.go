package tracking

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"StoreFront/internal/kvcache"
)

const DefaultCacheTTL = 1 * time.Minute

// Service fetches orders and derives timelines. Fetched records pass
// through a TTL cache so a batch refresh does not hammer the orders API;
// the reducer output itself is always rebuilt fresh.
type Service struct {
	client *OrderClient
	cache  kvcache.Cache
	log    *zap.Logger
	ttl    time.Duration
}

func NewService(client *OrderClient, cache kvcache.Cache, log *zap.Logger, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{client: client, cache: cache, log: log, ttl: ttl}
}

func (s *Service) Track(ctx context.Context, orderID string) (Timeline, error) {
	rec, err := s.fetchOrder(ctx, orderID)
	if err != nil {
		return Timeline{}, err
	}
	return BuildTimeline(rec), nil
}

// Result is one order's outcome in a batch: either a timeline or the
// error that prevented it. A failed fetch never aborts the batch.
type Result struct {
	Timeline *Timeline `json:"timeline,omitempty"`
	Err      error     `json:"-"`
}

func (s *Service) TrackMany(ctx context.Context, orderIDs []string) map[string]Result {
	out := make(map[string]Result, len(orderIDs))
	for _, id := range orderIDs {
		if id == "" {
			continue
		}
		if _, done := out[id]; done {
			continue
		}

		tl, err := s.Track(ctx, id)
		if err != nil {
			s.log.Warn("track order failed", zap.String("order_id", id), zap.Error(err))
			out[id] = Result{Err: err}
			continue
		}
		out[id] = Result{Timeline: &tl}
	}
	return out
}

func (s *Service) fetchOrder(ctx context.Context, orderID string) (OrderRecord, error) {
	cacheKey := "order:" + orderID

	if raw, ok, err := s.cache.Get(ctx, cacheKey); err == nil && ok {
		var rec OrderRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			return rec, nil
		}
		// Unreadable cache entries are dropped, not fatal.
		_ = s.cache.Delete(ctx, cacheKey)
	} else if err != nil {
		s.log.Warn("order cache read failed", zap.String("order_id", orderID), zap.Error(err))
	}

	rec, err := s.client.GetOrder(ctx, orderID)
	if err != nil {
		return OrderRecord{}, err
	}

	if raw, err := json.Marshal(rec); err == nil {
		if err := s.cache.Set(ctx, cacheKey, raw, s.ttl); err != nil {
			s.log.Warn("order cache write failed", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	return rec, nil
}
