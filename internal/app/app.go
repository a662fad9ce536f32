package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/inkpress/mediaedit/internal/config"
	"github.com/inkpress/mediaedit/internal/controller"
	"github.com/inkpress/mediaedit/internal/event"
	handler "github.com/inkpress/mediaedit/internal/handler/http"
	"github.com/inkpress/mediaedit/internal/remote"
	"github.com/inkpress/mediaedit/internal/remote/mock"
	"github.com/inkpress/mediaedit/internal/remote/wpcom"
	"github.com/inkpress/mediaedit/internal/repository"
	"github.com/inkpress/mediaedit/internal/repository/memory"
	"github.com/inkpress/mediaedit/internal/repository/postgres"
	rediscache "github.com/inkpress/mediaedit/internal/repository/redis"
	"github.com/inkpress/mediaedit/internal/session"
	"github.com/inkpress/mediaedit/migrations"
	"github.com/inkpress/mediaedit/pkg/database"
	"github.com/inkpress/mediaedit/pkg/health"
	"github.com/inkpress/mediaedit/pkg/httpclient"
	pkgkafka "github.com/inkpress/mediaedit/pkg/kafka"
	"github.com/inkpress/mediaedit/pkg/tracing"
)

// App wires together all dependencies and runs the media edit service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	updater        *remote.Async
	sessions       *session.Manager
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "mediaedit",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	store, err := a.buildStore(ctx, healthHandler)
	if err != nil {
		a.closeResources()
		return nil, err
	}

	if cfg.SeedFile != "" {
		n, err := SeedFromFile(ctx, store, cfg.SeedFile)
		if err != nil {
			a.closeResources()
			return nil, fmt.Errorf("seed media store: %w", err)
		}
		logger.Info("media store seeded", slog.String("file", cfg.SeedFile), slog.Int("records", n))
	}

	client, err := a.buildRemoteClient()
	if err != nil {
		a.closeResources()
		return nil, err
	}
	a.updater = remote.NewAsync(client, cfg.UpdateTimeout, remote.NewMetrics(prometheus.DefaultRegisterer), logger)

	opts := []controller.Option{
		controller.WithMetrics(controller.NewMetrics(prometheus.DefaultRegisterer)),
		controller.WithStoreTimeout(cfg.StoreTimeout),
	}

	// Initialize Kafka producer.
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		opts = append(opts, controller.WithEventPublisher(event.NewProducer(a.producer, logger)))
		healthHandler.Register("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	a.sessions = session.NewManager(store, a.updater, cfg.MaxSessions, logger, opts...)

	// HTTP router.
	router := handler.NewRouter(a.sessions, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// buildStore opens the configured media store, wrapped by the Redis cache
// when enabled, and registers its health checks.
func (a *App) buildStore(ctx context.Context, healthHandler *health.Handler) (repository.MediaStore, error) {
	cfg, logger := a.cfg, a.logger

	var store repository.MediaStore
	switch cfg.StoreBackend {
	case config.StoreMemory:
		store = memory.NewMediaStore()
		logger.Info("using in-memory media store")

	default:
		pgCfg := database.DefaultPostgresConfig()
		pgCfg.Host = cfg.PostgresHost
		pgCfg.Port = cfg.PostgresPort
		pgCfg.User = cfg.PostgresUser
		pgCfg.Password = cfg.PostgresPass
		pgCfg.DBName = cfg.PostgresDB
		pgCfg.SSLMode = cfg.PostgresSSL

		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.Int("port", cfg.PostgresPort),
			slog.String("database", cfg.PostgresDB),
		)
		database.RegisterPoolMetrics(pool, "mediaedit")

		// Run database migrations.
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if cfg.SlowQuery > 0 {
			database.SetSlowQueryLogging(cfg.SlowQuery, logger)
		}

		healthHandler.Register("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		store = postgres.NewMediaStore(pool)
	}

	if cfg.CacheEnabled {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		healthHandler.Register("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		store = rediscache.NewCachedStore(store, client, cfg.CacheTTL, logger)
		logger.Info("redis record cache enabled", slog.Duration("ttl", cfg.CacheTTL))
	}

	return store, nil
}

// buildRemoteClient creates the synchronous remote media client.
func (a *App) buildRemoteClient() (remote.Client, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.RemoteMode == config.RemoteMock {
		logger.Warn("using mock remote media client; edits are not sent anywhere",
			slog.Duration("delay", cfg.MockDelay),
		)
		return mock.NewClient(cfg.MockDelay, false), nil
	}

	// HTTP client with circuit breaker for the remote media API.
	baseClient := httpclient.New(httpclient.DefaultConfig())

	cbCfg := httpclient.DefaultCircuitBreakerConfig("wpcom-media")
	cbCfg.Timeout = cfg.BreakerTimeout
	cbCfg.FailureRatio = cfg.BreakerRatio
	cbCfg.MinRequests = cfg.BreakerMinCalls
	if err := httpclient.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		return nil, fmt.Errorf("register circuit breaker metrics: %w", err)
	}
	cbClient := httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger)
	logger.Info("circuit breaker initialized",
		slog.String("name", cbCfg.Name),
		slog.Duration("timeout", cbCfg.Timeout),
		slog.Uint64("min_requests", uint64(cbCfg.MinRequests)),
	)

	return wpcom.NewClient(cbClient, cfg.RemoteBaseURL, cfg.RemoteToken), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Editor sessions, then in-flight remote updates
// 3. Tracer, Kafka producer, Redis, PostgreSQL
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.sessions.Close()

	// Remote updates already sent still finish; their completions are inert.
	done := make(chan struct{})
	go func() {
		a.updater.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("remote updates still in flight at shutdown")
	}

	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.closeResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases the connections opened by NewApp.
func (a *App) closeResources() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
