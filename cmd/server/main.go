package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"didregistry/internal/platform/config"
	"didregistry/internal/platform/httpserver"
	"didregistry/internal/platform/logger"
	"didregistry/internal/platform/middleware"
	platformredis "didregistry/internal/platform/redis"
	"didregistry/internal/platform/tracing"
	"didregistry/internal/registry/alloc"
	"didregistry/internal/registry/handler"
	registrymetrics "didregistry/internal/registry/metrics"
	"didregistry/internal/registry/notify"
	"didregistry/internal/registry/service"
	"didregistry/internal/registry/store"
	"didregistry/internal/token"
)

const (
	tokenIssuer   = "did-registry"
	tokenAudience = "did-registry"

	eventBuffer    = 1024
	memorySinkSize = 4096
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in internal/registry.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, err := tracing.NewProvider(cfg.TracingEnabled)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	records, nonces, cleanup, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics := registrymetrics.New()
	svc := service.New(records, alloc.New(nonces),
		service.WithLogger(log),
		service.WithMetrics(metrics),
	)

	sinks, sinkCleanup, err := buildSinks(cfg, log)
	if err != nil {
		return err
	}
	defer sinkCleanup()

	events := make(chan notify.Event, eventBuffer)
	svc.Stream().Subscribe(notify.ChannelSubscriber(events))
	worker := notify.NewWorker(events, log, sinks...)

	jwtService := token.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)
	registryHandler := handler.New(svc, log, tracer.Tracer(), jwtService)

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())
	router.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		registryHandler.Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})
	group.Go(func() error {
		log.Info("starting did-registry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// buildStore selects the record store. A configured DATABASE_URL gets the
// Postgres store with a durable allocation counter; otherwise everything is
// in-memory, which is fine for local development and tests.
func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger) (store.RecordStore, alloc.NonceSource, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory record store")
		return store.NewInMemory(), alloc.NewMemoryNonceSource(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	pg := store.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	log.Info("using postgres record store")
	return pg, store.NewPostgresNonceSource(db), func() { db.Close() }, nil
}

// buildSinks assembles the event sinks. The in-memory ring is always on;
// redis and kafka join when configured.
func buildSinks(cfg config.Server, log *slog.Logger) ([]notify.Sink, func(), error) {
	sinks := []notify.Sink{notify.NewMemorySink(memorySinkSize)}
	var closers []func()

	if cfg.RedisURL != "" {
		client, err := platformredis.New(cfg.Redis())
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, notify.NewRedisSink(client.Client, "did-registry:events"))
		closers = append(closers, func() { _ = client.Close() })
		log.Info("redis event sink enabled")
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		sink, err := notify.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sink)
		closers = append(closers, sink.Close)
		log.Info("kafka event sink enabled", "topic", cfg.KafkaTopic)
	}

	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}
	return sinks, cleanup, nil
}
