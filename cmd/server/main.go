package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"claimledger/internal/index"
	"claimledger/internal/index/memory"
	pgindex "claimledger/internal/index/postgres"
	redisindex "claimledger/internal/index/redis"
	"claimledger/internal/ledger/codec"
	"claimledger/internal/platform/config"
	"claimledger/internal/platform/httpserver"
	"claimledger/internal/platform/logger"
	"claimledger/internal/platform/metrics"
	redisclient "claimledger/internal/platform/redis"
	"claimledger/internal/pointer"
	"claimledger/internal/query/client"
	"claimledger/internal/query/handler"
	"claimledger/internal/ratelimit"
	ratelimitmetrics "claimledger/internal/ratelimit/metrics"
	ratelimitmemory "claimledger/internal/ratelimit/store/memory"
	ratelimitredis "claimledger/internal/ratelimit/store/redis"
	"claimledger/internal/verifier"
	verifiermetrics "claimledger/internal/verifier/metrics"
	dErrors "claimledger/pkg/domain-errors"
	"claimledger/pkg/platform/audit"
	"claimledger/pkg/platform/audit/consumer"
	auditkafka "claimledger/pkg/platform/audit/publishers/kafka"
	"claimledger/pkg/platform/audit/publisher"
	auditmemory "claimledger/pkg/platform/audit/store/memory"
	auditpostgres "claimledger/pkg/platform/audit/store/postgres"
	"claimledger/pkg/platform/httputil"
	"claimledger/pkg/platform/middleware/metadata"
	"claimledger/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 10 * time.Second

// main wires the verifier, the record index and the audit trail behind the
// HTTP query API. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("claimledger exited with error", "error", err)
		os.Exit(1)
	}
}

type closer func()

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	reg := metrics.NewRegistry()
	registry := verifier.DefaultRegistry()

	var cleanups []closer
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		var err error
		db, err = openPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() { _ = db.Close() })
	}

	store, err := buildIndex(ctx, db, registry, log)
	if err != nil {
		return err
	}

	rc, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		cleanups = append(cleanups, func() { _ = rc.Close() })
		store = redisindex.New(rc.Client, store, registry,
			redisindex.WithTTL(cfg.Redis.CacheTTL),
			redisindex.WithLogger(log),
			redisindex.WithMetrics(redisindex.NewMetrics(reg)),
		)
		log.Info("record cache enabled")
	}

	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if db != nil {
		if err := auditpostgres.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate audit store: %w", err)
		}
		auditStore = auditpostgres.New(db)
	}

	g, gctx := errgroup.WithContext(ctx)

	emitter, err := buildAudit(gctx, g, cfg, auditStore, reg, log, &cleanups)
	if err != nil {
		return err
	}

	svc := verifier.NewDefault(
		verifier.WithLogger(log),
		verifier.WithMetrics(verifiermetrics.New(reg)),
		verifier.WithAuditPublisher(emitter),
		verifier.WithRecorder(store),
	)

	resolver := pointer.NewResolver(
		pointer.WithLogger(log),
		pointer.WithMetrics(pointer.NewMetrics(reg)),
		pointer.WithTimeout(cfg.Resolve.Timeout),
		pointer.WithConcurrency(cfg.Resolve.Concurrency),
	)
	src, err := resolutionSource(cfg, store, registry, log)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(metrics.NewHTTP(reg).Middleware)
	r.Handle("/metrics", metrics.Handler(reg))
	r.Get("/healthz", healthz(db, rc))
	r.Get("/v1/audit", recentAudit(auditStore))
	r.Get("/v1/audit/{txID}", auditTrail(auditStore))
	var limits ratelimit.Store = ratelimitmemory.New()
	if rc != nil {
		limits = ratelimitredis.New(rc.Client)
	}
	limiter := ratelimit.NewMiddleware(limits, cfg.RateLimitPerMinute, time.Minute, log,
		ratelimit.WithMetrics(ratelimitmetrics.New(reg)),
	)
	api := handler.New(store, svc, registry, log,
		handler.WithResolution(resolver, src),
		handler.WithAudit(emitter),
	)
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		api.Register(r)
	})

	srv := httpserver.New(cfg.Addr, r)
	log.Info("starting claimledger",
		"addr", cfg.Addr,
		"env", cfg.Environment,
		"state_types", svc.StateTypes(),
	)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log, shutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func buildIndex(ctx context.Context, db *sql.DB, registry *codec.Registry, log *slog.Logger) (index.Store, error) {
	if db == nil {
		log.Warn("DATABASE_URL not set, using in-memory record index")
		return memory.New(), nil
	}
	if err := pgindex.Migrate(ctx, db); err != nil {
		return nil, fmt.Errorf("migrate record index: %w", err)
	}
	return pgindex.New(db, registry), nil
}

// buildAudit returns the emitter used by the verifier. With brokers
// configured, events travel through Kafka and a consumer group persists
// them; otherwise they are written to the store directly.
func buildAudit(ctx context.Context, g *errgroup.Group, cfg config.Server, store audit.Store, reg prometheus.Registerer, log *slog.Logger, cleanups *[]closer) (audit.Emitter, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		pub := publisher.NewPublisher(store,
			publisher.WithAsyncBuffer(cfg.AuditBuffer),
			publisher.WithLogger(log),
		)
		*cleanups = append(*cleanups, func() { _ = pub.Close() })
		return pub, nil
	}

	producer, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	*cleanups = append(*cleanups, producer.Close)

	if err := auditkafka.EnsureTopic(ctx, producer, cfg.Kafka.Topic, 3, 1); err != nil {
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}

	m := auditkafka.NewMetrics(reg)
	pub := auditkafka.NewPublisher(producer,
		auditkafka.WithTopic(cfg.Kafka.Topic),
		auditkafka.WithCircuitBreaker(auditkafka.NewCircuitBreaker(5, 30*time.Second)),
		auditkafka.WithMetrics(m),
		auditkafka.WithLogger(log),
	)

	fetcher, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Kafka.Brokers...),
		kgo.ConsumerGroup(cfg.Kafka.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Kafka.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	*cleanups = append(*cleanups, fetcher.Close)

	sink := consumer.New(fetcher, store, m, log)
	g.Go(func() error {
		return sink.Run(ctx)
	})
	log.Info("audit stream enabled", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.ConsumerGroup)
	return pub, nil
}

// resolutionSource prefers a remote peer when one is configured, falling
// back to the local index while the peer is unavailable.
func resolutionSource(cfg config.Server, store index.Store, registry *codec.Registry, log *slog.Logger) (pointer.Source, error) {
	if cfg.RemoteQueryURL == "" {
		return pointer.FromIndex(store), nil
	}
	remote, err := client.New(cfg.RemoteQueryURL, registry)
	if err != nil {
		return nil, fmt.Errorf("remote query client: %w", err)
	}
	log.Info("remote resolution enabled", "url", cfg.RemoteQueryURL)
	return pointer.FromQuery(client.NewFailover(remote, client.NewIndexQuerier(store),
		client.WithFailoverLogger(log),
	)), nil
}

func healthz(db *sql.DB, rc *redisclient.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				status["postgres"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if rc != nil {
			if err := rc.Health(r.Context()); err != nil {
				status["redis"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		httputil.WriteJSON(w, code, status)
	}
}

func auditTrail(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := store.ListByTx(r.Context(), chi.URLParam(r, "txID"))
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}

func recentAudit(store audit.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
				return
			}
			limit = n
		}
		events, err := store.ListRecent(r.Context(), limit)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}
