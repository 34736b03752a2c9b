package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/stem/pkg/database"
	stemmiddleware "github.com/Ramsey-B/stem/pkg/middleware"
	"github.com/Ramsey-B/stem/pkg/startup"
	"github.com/Ramsey-B/stem/pkg/tracing"
	"github.com/Ramsey-B/stem/pkg/tracing/exporters"
	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/internal/handlers"
	"github.com/Ramsey-B/thistle/internal/repositories"
	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/health"
	"github.com/Ramsey-B/thistle/pkg/httpclient"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/lifecycle"
	"github.com/Ramsey-B/thistle/pkg/logging"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/poller"
	"github.com/Ramsey-B/thistle/pkg/reconcile"
	"github.com/Ramsey-B/thistle/pkg/redis"
	"github.com/Ramsey-B/thistle/pkg/scheduler"
	"github.com/Ramsey-B/thistle/pkg/scrape"
	"github.com/Ramsey-B/thistle/pkg/scrape/sherdog"
	"github.com/Ramsey-B/thistle/pkg/scrape/ufcstats"
	"github.com/Ramsey-B/thistle/pkg/trust"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, flush, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer flush()

	if err := run(&cfg, logger); err != nil {
		logger.WithError(err).Error("service exited with error")
		flush()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEnabled {
		shutdownTracing, err := initTracing(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
		defer shutdownTracing()
	}

	// Database
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlxDB.Close()
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db := database.NewDatabaseInstance(sqlxDB, logger)

	// Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	locker := redis.NewLocker(redisClient, "thistle:")

	// Kafka
	producer := kafka.NewProducer(kafka.ParseConfig(cfg.KafkaBrokers, cfg.KafkaNextUpTopic), logger)
	defer producer.Close()

	// Repositories
	eventRepo := repositories.NewEventRepository(db, logger)
	fightRepo := repositories.NewFightRepository(db, logger)
	fighterRepo := repositories.NewFighterRepository(db, logger)
	runRepo := repositories.NewTrackerRunRepository(db, logger)

	// Snapshot sources
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.SnapshotFetchTimeout
	clientCfg.MaxRetries = cfg.SnapshotFetchRetries
	client := httpclient.NewClient(clientCfg, logger)

	registry := scrape.NewRegistry()
	adapters := []scrape.Adapter{
		ufcstats.NewAdapter(client, logger),
		sherdog.NewAdapter(client, logger),
	}
	for _, adapter := range adapters {
		if err := registry.Register(adapter); err != nil {
			return fmt.Errorf("failed to register adapter: %w", err)
		}
	}

	// Reconciliation
	policy := trust.NewPolicy(cfg.TrustProductionFamilies, cfg.TrustShadowFamilies)
	matcher := matching.NewMatcher(logger)
	notifier := events.NewNotifier(producer, redisClient, cfg.NotificationCooldown, logger)
	reconciler := reconcile.NewReconciler(eventRepo, fightRepo, fighterRepo, matcher, notifier, logger)

	// Trackers
	manager := poller.NewManager(logger)
	trackerLocker := poller.NewRedisLocker(locker)
	for _, adapter := range adapters {
		manager.Register(poller.NewTracker(adapter, reconciler, policy, eventRepo, runRepo, trackerLocker, logger))
	}
	defer manager.StopAll()

	// Scheduler
	sched := scheduler.NewScheduler(eventRepo, manager, locker, scheduler.Config{
		PreEventLead:   cfg.SchedulerPreEventLead,
		ForwardWindow:  cfg.SchedulerForwardWindow,
		LookBack:       cfg.SchedulerLookBack,
		SafetyInterval: cfg.SchedulerSafetyInterval,
	}, logger)
	// Lifecycle driver
	lifecycleDriver := lifecycle.NewDriver(eventRepo, fightRepo, policy, cfg.LifecycleInterval, logger)

	// Background engines start (and stop, in reverse) through the shared
	// startup orchestrator
	boot := startup.NewStartup[any](logger, cfg.StartupMaxAttempts)
	if cfg.SchedulerEnabled {
		boot.AddDependency(&schedulerDependency{sched: sched, logger: logger})
	}
	if cfg.LifecycleEnabled {
		boot.AddDependency(&lifecycleDependency{driver: lifecycleDriver})
	}
	if err := boot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start background engines: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = boot.Stop(stopCtx)
	}()

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = stemmiddleware.Error(logger)
	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(stemmiddleware.Context())
	e.Use(stemmiddleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(sqlxDB, redisClient.Redis(), version)
	e.GET("/health", checker.HealthHandler)
	e.GET("/health/live", checker.LivenessHandler)
	e.GET("/health/ready", checker.ReadinessHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	handlers.NewEventHandler(eventRepo, fightRepo, runRepo, logger).Register(api.Group("/events"))
	handlers.NewTrackingHandler(manager, sched, eventRepo, logger).Register(api.Group("/tracking"))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting %s on port %d", cfg.AppName, cfg.Port)
		checker.SetReady(true)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// schedulerDependency adapts the scheduler to the startup lifecycle. Start
// runs the initial schedule pass before the sweep loop begins.
type schedulerDependency struct {
	sched  *scheduler.Scheduler
	logger ectologger.Logger
}

func (d *schedulerDependency) GetName() string { return "scheduler" }
func (d *schedulerDependency) DependsOn() []string { return nil }

func (d *schedulerDependency) Start(ctx context.Context) error {
	scheduled, err := d.sched.ScheduleAll(ctx)
	if err != nil {
		return err
	}
	d.logger.WithContext(ctx).Infof("Initial schedule pass armed %d events", scheduled)
	return d.sched.Start(ctx)
}

func (d *schedulerDependency) Stop(ctx context.Context) error {
	return d.sched.Stop(ctx)
}

type lifecycleDependency struct {
	driver *lifecycle.Driver
}

func (d *lifecycleDependency) GetName() string { return "lifecycle" }
func (d *lifecycleDependency) DependsOn() []string { return nil }

func (d *lifecycleDependency) Start(ctx context.Context) error {
	d.driver.Start(ctx)
	return nil
}

func (d *lifecycleDependency) Stop(ctx context.Context) error {
	return d.driver.Stop(ctx)
}

func initTracing(ctx context.Context, cfg *config.Config) (func(), error) {
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(shutdownCtx)
	}, nil
}
