package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/guardianes/internal/config"
	"github.com/phrazzld/guardianes/internal/domain/anomaly"
	"github.com/phrazzld/guardianes/internal/domain/progression"
	"github.com/phrazzld/guardianes/internal/events"
	"github.com/phrazzld/guardianes/internal/platform/kafka"
	"github.com/phrazzld/guardianes/internal/platform/memstore"
	"github.com/phrazzld/guardianes/internal/platform/metrics"
	"github.com/phrazzld/guardianes/internal/platform/postgres"
	"github.com/phrazzld/guardianes/internal/platform/rediscache"
	"github.com/phrazzld/guardianes/internal/service"
	"github.com/phrazzld/guardianes/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 3 * time.Second

// application holds the shared dependencies so they can be released together
// on shutdown.
type application struct {
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	db        *sql.DB
	redis     *redis.Client
	publisher *kafka.Publisher

	uow          store.UnitOfWork
	emitter      *events.InMemoryEventEmitter
	ledger       *service.EnergyLedger
	steps        *service.StepService
	progressions *service.ProgressionService
}

// newApplication wires every component named by cfg. Resources acquired
// before a failure are released before returning.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	registry *prometheus.Registry,
) (_ *application, err error) {
	app := &application{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	if err := app.setupStorage(ctx); err != nil {
		return nil, err
	}

	opts, err := app.setupSideEffects(ctx)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Activity.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid activity timezone %q: %w", cfg.Activity.Timezone, err)
	}

	progressionSvc, err := progression.NewServiceWithParams(&progression.Params{
		StepsPerExperiencePoint: cfg.Activity.StepsPerExperiencePoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create progression engine: %w", err)
	}

	velocity, err := anomaly.NewVelocityDetector(app.uow.Stores().Steps, cfg.Activity.MaxStepsPerMinute)
	if err != nil {
		return nil, fmt.Errorf("failed to create velocity detector: %w", err)
	}
	detector := anomaly.Composite{
		anomaly.NewThresholdDetector(cfg.Activity.AnomalyThreshold),
		velocity,
	}

	app.ledger, err = service.NewEnergyLedger(app.uow, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create energy ledger: %w", err)
	}

	app.steps, err = service.NewStepService(
		app.uow,
		app.ledger,
		progressionSvc,
		detector,
		service.StepServiceConfig{
			MaxSubmissionsPerHour: cfg.Activity.MaxSubmissionsPerHour,
			StepsPerEnergy:        cfg.Activity.StepsPerEnergy,
			Location:              loc,
		},
		logger,
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create step service: %w", err)
	}

	app.progressions, err = service.NewProgressionService(app.uow, progressionSvc, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create progression service: %w", err)
	}

	logger.Info("application initialized",
		slog.String("storage", cfg.Database.Driver),
		slog.Bool("history_cache", app.redis != nil),
		slog.Bool("event_publishing", app.publisher != nil),
		slog.String("timezone", loc.String()))
	return app, nil
}

// setupStorage selects the unit of work for the configured driver.
func (app *application) setupStorage(ctx context.Context) error {
	if app.config.Database.Driver == "memory" {
		app.uow = memstore.New()
		app.logger.Warn("using in-memory storage; data is lost on exit")
		return nil
	}

	db, err := postgres.Open(ctx, app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	app.db = db

	if app.config.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, app.logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	app.uow = postgres.NewUnitOfWork(db, app.logger)
	return nil
}

// setupSideEffects builds the post-commit collaborators shared by every
// service: metrics, the history cache and the event emitter.
func (app *application) setupSideEffects(ctx context.Context) ([]service.Option, error) {
	activityMetrics, err := metrics.New(app.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	opts := []service.Option{service.WithMetrics(activityMetrics)}

	if app.config.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     app.config.Redis.Addr,
			Password: app.config.Redis.Password,
			DB:       app.config.Redis.DB,
		})
		app.redis = client

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("failed to reach redis at %s: %w", app.config.Redis.Addr, err)
		}

		cache, err := rediscache.NewHistoryCache(client, app.config.Redis.HistoryTTL, app.logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithHistoryCache(cache))
	}

	app.emitter = events.NewInMemoryEventEmitter(app.logger)
	app.emitter.RegisterHandler(events.EventHandlerFunc(func(ctx context.Context, event *events.Event) error {
		app.logger.DebugContext(ctx, "activity event",
			slog.String("event_type", event.Type),
			slog.Int64("guardian_id", event.GuardianID.Int64()))
		return nil
	}))

	if len(app.config.Kafka.Brokers) > 0 {
		app.publisher, err = kafka.NewPublisher(kafka.Config{
			Brokers:      app.config.Kafka.Brokers,
			Topic:        app.config.Kafka.Topic,
			WriteTimeout: app.config.Kafka.WriteTimeout,
			BatchTimeout: app.config.Kafka.BatchTimeout,
		}, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		app.emitter.RegisterHandler(app.publisher)
	}
	opts = append(opts, service.WithEventEmitter(app.emitter))

	return opts, nil
}

// Run serves the operational endpoints until ctx is canceled.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases external resources. It is safe on a partially built
// application.
func (app *application) cleanup() {
	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			app.logger.Error("error closing event publisher", slog.String("error", err.Error()))
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
