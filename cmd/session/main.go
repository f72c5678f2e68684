package main

import (
	"database/sql"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
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
	"StoreFront/pkg/kit"
)

func main() {
	service := "session"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	port := getenv("PORT", "8084")
	ordersURL := getenv("ORDERS_URL", "http://localhost:8083")
	analyticsURL := getenv("ANALYTICS_URL", "")
	recoveryURL := getenv("RECOVERY_URL", "")
	jwtSecret := getenv("JWT_SECRET", "dev-secret")

	clk := clock.New()
	reg := prometheus.NewRegistry()

	st := newStorage(log)
	cache := newCache(clk)

	trackers := analytics.Multi{analytics.NewPromTracker(reg)}
	if analyticsURL != "" {
		trackers = append(trackers, analytics.NewHTTPTracker(analyticsURL, log))
	}

	var recovery *abandon.RecoveryClient
	if recoveryURL != "" {
		recovery = abandon.NewRecoveryClient(recoveryURL)
	}

	registry := session.NewRegistry(session.Deps{
		Log:       log,
		Storage:   st,
		Clock:     clk,
		Analytics: trackers,
		Notices:   notify.LogSink{Log: log},
		Recovery:  recovery,

		CartCfg: cart.Config{
			PersistDebounce: getenvDuration(log, "CART_PERSIST_DEBOUNCE", cart.DefaultPersistDebounce),
		},
		CompareCfg: comparison.Config{
			MaxItems: getenvInt(log, "COMPARISON_MAX_ITEMS", comparison.DefaultMaxItems),
		},
		AbandonCfg: abandon.Config{
			IdleWindow: getenvDuration(log, "CART_ABANDON_WINDOW", abandon.DefaultIdleWindow),
		},
		NoticeWindow: getenvDuration(log, "NOTICE_DEDUPE_WINDOW", notify.DefaultWindow),
	})
	defer registry.Close()

	s := &session.Server{
		Log:      log,
		Registry: registry,
		Tracking: tracking.NewService(
			tracking.NewOrderClient(ordersURL),
			cache,
			log,
			getenvDuration(log, "ORDER_CACHE_TTL", tracking.DefaultCacheTTL),
		),
	}

	h := session.NewHandler(s, session.HTTPDeps{
		Log:      log,
		Service:  service,
		Registry: reg,

		MetricsEnabled: os.Getenv("METRICS_ENABLED") == "1",
		MetricsToken:   os.Getenv("METRICS_TOKEN"),

		JWT:       session.NewTokenMaker(jwtSecret),
		RateLimit: kit.NewIPRateLimiter(getenvInt(log, "RATE_LIMIT", 120), time.Minute),
		Storage:   st,
	})

	if err := kit.RunHTTPServer(":"+port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}

func newStorage(log *zap.Logger) storage.Storage {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Info("no DATABASE_URL, using in-memory state storage")
		return storage.NewMemStorage()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("open postgres", zap.Error(err))
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return storage.NewPostgresStorage(db)
}

func newCache(clk clock.Clock) kvcache.Cache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return kvcache.NewMemory(clk)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return kvcache.NewRedis(client, "storefront")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(log *zap.Logger, k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn("bad int env, using default", zap.String("key", k), zap.String("value", v))
		return def
	}
	return n
}

func getenvDuration(log *zap.Logger, k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn("bad duration env, using default", zap.String("key", k), zap.String("value", v))
		return def
	}
	return d
}
