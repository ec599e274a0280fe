package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	importHandler "leadline/internal/imports/handler"
	importMetrics "leadline/internal/imports/metrics"
	importService "leadline/internal/imports/service"
	importStore "leadline/internal/imports/store"
	jwttoken "leadline/internal/jwt_token"
	leadHandler "leadline/internal/leads/handler"
	leadMetrics "leadline/internal/leads/metrics"
	"leadline/internal/leads/numbering"
	leadService "leadline/internal/leads/service"
	leadStore "leadline/internal/leads/store"
	"leadline/internal/platform/config"
	"leadline/internal/platform/database"
	"leadline/internal/platform/httpserver"
	"leadline/internal/platform/kafka"
	"leadline/internal/platform/logger"
	"leadline/internal/platform/metrics"
	"leadline/internal/platform/redis"
	"leadline/internal/routes/adapters"
	routeHandler "leadline/internal/routes/handler"
	routeMetrics "leadline/internal/routes/metrics"
	routeService "leadline/internal/routes/service"
	routeStore "leadline/internal/routes/store"
	statsCache "leadline/internal/stats/cache"
	statsHandler "leadline/internal/stats/handler"
	statsMetrics "leadline/internal/stats/metrics"
	statsService "leadline/internal/stats/service"
	httptransport "leadline/internal/transport/http"
	"leadline/pkg/platform/audit"
	"leadline/pkg/platform/audit/publisher"
	kafkasink "leadline/pkg/platform/audit/publishers/kafka"
	auditmemory "leadline/pkg/platform/audit/store/memory"
	"leadline/pkg/platform/circuit"
	authmw "leadline/pkg/platform/middleware/auth"
)

const (
	requestTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
	auditBuffer     = 1024
)

type infra struct {
	db    *sqlx.DB
	redis *redis.Client
	kafka *kafka.Producer
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func (i *infra) healthChecks() map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if i.db != nil {
		checks["postgres"] = i.db.PingContext
	}
	if i.redis != nil {
		checks["redis"] = i.redis.Health
	}
	if i.kafka != nil {
		checks["kafka"] = i.kafka.Health
	}
	return checks
}

// leadStorage is the full surface of a lead store backend.
type leadStorage interface {
	leadService.Store
	leadService.HistoryStore
	numbering.Store
	statsService.Counter
}

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	deps, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	events := newAuditPublisher(ctx, cfg, deps, log)
	defer events.Close()

	router, err := buildRouter(cfg, deps, events, log)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting leadline", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{}
	if cfg.Database.URL != "" {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		deps.db = db
		if cfg.Database.MigrateOnStart {
			if err := database.Migrate(db, log); err != nil {
				deps.close()
				return nil, err
			}
		}
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		deps.close()
		return nil, err
	}
	deps.redis = rc

	producer, err := kafka.NewProducer(ctx, cfg.Kafka, log)
	if err != nil {
		deps.close()
		return nil, err
	}
	deps.kafka = producer
	return deps, nil
}

// newAuditPublisher sends lead activity to Kafka behind a breaker, spilling
// into memory when the broker is unavailable or not configured.
func newAuditPublisher(ctx context.Context, cfg config.Config, deps *infra, log *slog.Logger) *publisher.Publisher {
	fallback := auditmemory.NewInMemoryStore()
	var sink audit.Sink = fallback
	if deps.kafka != nil {
		if err := deps.kafka.EnsureTopic(ctx, cfg.Kafka.LeadEventsTopic, 3, 1); err != nil {
			log.Warn("failed to ensure lead events topic", "topic", cfg.Kafka.LeadEventsTopic, "error", err)
		}
		sink = kafkasink.NewSink(deps.kafka, cfg.Kafka.LeadEventsTopic, fallback,
			kafkasink.WithBreaker(circuit.New("lead-events")),
			kafkasink.WithLogger(log),
		)
	}
	return publisher.NewPublisher(sink, publisher.WithAsyncBuffer(auditBuffer), publisher.WithLogger(log))
}

func buildRouter(cfg config.Config, deps *infra, events *publisher.Publisher, log *slog.Logger) (http.Handler, error) {
	var (
		leads       leadStorage
		routes      routeService.Store
		sessions    importService.Store
		numberingTx []numbering.Option
	)
	if deps.db != nil {
		leads = leadStore.NewPostgres(deps.db)
		routes = routeStore.NewPostgres(deps.db)
		sessions = importStore.NewPostgres(deps.db)
		numberingTx = append(numberingTx, numbering.WithTxRunner(newLeadsPostgresTx(deps.db, cfg.Database.TxTimeout)))
	} else {
		leads = leadStore.NewInMemory()
		routes = routeStore.NewInMemory()
		sessions = importStore.NewInMemory()
	}

	var cache statsService.Cache
	if deps.redis != nil {
		cache = statsCache.NewRedis(deps.redis.Client, cfg.Redis.StatsTTL)
	} else {
		cache = statsCache.NewInMemory(cfg.Redis.StatsTTL)
	}
	stats, err := statsService.New(leads, cache,
		statsService.WithLogger(log),
		statsService.WithMetrics(statsMetrics.New()),
	)
	if err != nil {
		return nil, err
	}

	leadSvc, err := leadService.New(leads, leads, numbering.New(leads, numberingTx...),
		leadService.WithLogger(log),
		leadService.WithMetrics(leadMetrics.New()),
		leadService.WithAuditPublisher(events),
		leadService.WithStatsInvalidator(stats),
	)
	if err != nil {
		return nil, err
	}

	routeSvc, err := routeService.New(routes, adapters.NewLeadsAdapter(leadSvc),
		routeService.WithLogger(log),
		routeService.WithMetrics(routeMetrics.New()),
		routeService.WithAuditPublisher(events),
		routeService.WithMaxStops(cfg.Leads.RouteMaxStops),
	)
	if err != nil {
		return nil, err
	}

	importSvc, err := importService.New(sessions, leadSvc,
		importService.WithLogger(log),
		importService.WithMetrics(importMetrics.New()),
		importService.WithAuditPublisher(events),
		importService.WithBatchSize(cfg.Leads.ImportBatchSize),
	)
	if err != nil {
		return nil, err
	}

	jwt := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	return httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Observer:       metrics.New(),
		Auth:           authmw.RequireAuth(jwttoken.NewJWTServiceAdapter(jwt), log),
		RequestTimeout: requestTimeout,
		HealthChecks:   deps.healthChecks(),
		Handlers: []httptransport.Registrar{
			leadHandler.New(leadSvc, log),
			routeHandler.New(routeSvc, log),
			importHandler.New(importSvc, log),
			statsHandler.New(stats, log),
		},
	}), nil
}
