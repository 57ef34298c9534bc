package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/istra-watch/watchgate/internal/api"
	"github.com/istra-watch/watchgate/internal/auth"
	"github.com/istra-watch/watchgate/internal/config"
	"github.com/istra-watch/watchgate/internal/gateway"
	"github.com/istra-watch/watchgate/internal/obs"
	"github.com/istra-watch/watchgate/internal/ratelimit"
	"github.com/istra-watch/watchgate/internal/ratelimit/memory"
	"github.com/istra-watch/watchgate/internal/ratelimit/redisstore"
)

func main() {

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Auth.BotToken == "" {
		log.Fatalf("bot token is required (config auth.bot_token or BOT_TOKEN)")
	}

	logger := obs.SetupLogger(cfg.Observability.LogLevel)
	logger.Info().Msg("Setup logger")

	if cfg.RateLimit.Disabled {
		logger.Warn().Msg("rate limiting is DISABLED - only for load testing")
	}
	if len(cfg.RateLimit.Whitelist) > 0 {
		logger.Info().Strs("ips", cfg.RateLimit.Whitelist).Msg("rate limit whitelist active")
	}

	reg := prometheus.NewRegistry()
	metrics := obs.NewMetrics(reg)

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	mux.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("v0.1.0"))
	})

	mux.Handle(cfg.Observability.PrometheusPath,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	api.Register(mux, api.ClientConfig{
		MapProvider:     "yandex",
		MaxPhotoSizeMB:  5,
		RefreshInterval: 30,
	})

	policy := ratelimit.Policy{
		MaxCost: cfg.RateLimit.MaxCost,
		Window:  cfg.RateLimit.Window(),
	}

	var store ratelimit.Store
	switch cfg.RateLimit.Store {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		store = redisstore.New(rdb, policy)
		logger.Info().Str("addr", cfg.RateLimit.RedisAddr).Msg("using redis rate limit store")
	default:
		store = memory.New(policy)
	}
	defer func() { _ = store.Close() }()

	validator := auth.NewValidator(cfg.Auth.BotToken, cfg.Auth.MaxAge())

	skip := map[string]struct{}{
		"/health":  {},
		"/version": {},
	}
	skip[cfg.Observability.PrometheusPath] = struct{}{}

	// order matters: the error handler is outermost, rate limiting runs
	// before auth, logging sits closest to the handlers
	handler := gateway.Chain(
		mux,
		obs.RequestID(),
		metrics.Middleware(skip),
		gateway.ErrorHandler(logger),
		gateway.RateLimit(gateway.RateLimitOptions{
			Store:     store,
			Costs:     ratelimit.DefaultCosts(),
			Logger:    logger,
			Disabled:  cfg.RateLimit.Disabled,
			Allowlist: cfg.RateLimit.WhitelistSet(),
			OnLimited: func(path string) { metrics.RateLimited.WithLabelValues(path).Inc() },
		}),
		gateway.Auth(gateway.AuthOptions{
			Validator:   validator,
			Logger:      logger,
			PublicPaths: cfg.Auth.PublicPathSet(),
			OnFailure:   func(reason string) { metrics.AuthFailures.WithLabelValues(reason).Inc() },
		}),
		gateway.Logging(logger),
		gateway.BodyLimit(cfg.Server.MaxBody()),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout(),
		IdleTimeout:       cfg.Server.IdleTimeout(),
		ReadTimeout:       cfg.Server.ReadTimeout(),
	}

	// start
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	log.Printf("bye")
}
