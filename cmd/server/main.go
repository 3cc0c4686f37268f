package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/onseju/matching-service/internal/api"
	"github.com/onseju/matching-service/internal/book"
	"github.com/onseju/matching-service/internal/config"
	"github.com/onseju/matching-service/internal/engine"
	"github.com/onseju/matching-service/internal/metrics"
	"github.com/onseju/matching-service/internal/publish"
	"github.com/onseju/matching-service/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	switch {
	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.EnsureSchema(context.Background()); err != nil {
			slog.Error("schema setup failed", "err", err)
			os.Exit(1)
		}
		st = pg
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if cfg.RedisURL != "" {
			opt, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, cfg.RedisTTL)
			slog.Info("Redis cache enabled", "ttl", cfg.RedisTTL.String())
		}

	case cfg.PebbleDir != "":
		ps, err := store.OpenPebbleStore(cfg.PebbleDir)
		if err != nil {
			slog.Error("pebble open failed", "dir", cfg.PebbleDir, "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, func() { ps.Close() })
		st = ps
		slog.Info("using Pebble trade journal", "dir", cfg.PebbleDir)

	default:
		slog.Warn("DATABASE_URL and PEBBLE_DIR not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	// --- Trade publishers ---
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := publish.NewWSHub()
	go wsHub.Run(hubCtx)

	publishers := publish.Fanout{
		publish.NewStorePublisher(st),
		publish.MetricsPublisher{},
		wsHub,
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kp := publish.NewKafkaPublisher(brokers, cfg.KafkaTopic)
		cleanup = append(cleanup, func() { kp.Close() })
		publishers = append(publishers, kp)
		slog.Info("Kafka publishing enabled", "brokers", brokers, "topic", cfg.KafkaTopic)
	}

	// --- Matching engine ---
	var policy book.MarketablePolicy = book.NeverMarketable{}
	if cfg.AutoConvert {
		policy = book.BestPriceMarketable{}
		slog.Info("marketable limit orders convert to market orders")
	}
	eng := engine.New(publishers, engine.DefaultBookFactory(book.WithPolicy(policy)))
	svc := api.NewService(eng, st)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"matching-service"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for the live trade stream.
		r.Get("/ws", wsHub.HandleWS)
		svc.Routes(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("matching-service listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down matching-service...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	stopHub()
	fmt.Println("matching-service stopped")
}
