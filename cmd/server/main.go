package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/paycore/backend/internal/application/billing"
	eventapp "github.com/paycore/backend/internal/application/event"
	"github.com/paycore/backend/internal/domain/billing"
	"github.com/paycore/backend/internal/domain/shared"
	"github.com/paycore/backend/internal/infrastructure/cache"
	"github.com/paycore/backend/internal/infrastructure/config"
	"github.com/paycore/backend/internal/infrastructure/event"
	"github.com/paycore/backend/internal/infrastructure/logger"
	"github.com/paycore/backend/internal/infrastructure/persistence"
	"github.com/paycore/backend/internal/infrastructure/scheduler"
	"github.com/paycore/backend/internal/infrastructure/telemetry"
	"github.com/paycore/backend/internal/interfaces/http/handler"
	"github.com/paycore/backend/internal/interfaces/http/middleware"
	"github.com/paycore/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Paycore Billing API
//	@version		1.0
//	@description	Payments, refunds and recurring subscriptions
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting billing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry. Both providers degrade to no-ops when disabled.
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	dbPluginCfg := telemetry.DefaultDBPluginConfig()
	dbPluginCfg.TraceEnabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbPluginCfg.DBName = cfg.Database.DBName
	if meterProvider.IsEnabled() {
		dbPluginCfg.Meter = meterProvider.Meter("paycore.db")
	}
	dbPlugin, err := telemetry.NewDBPlugin(dbPluginCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize database telemetry", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPlugins(dbPlugin),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if db.Driver() == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", db.Driver()))

	// Coordination stores: idempotency keys and aggregate locks
	stores, err := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStores(ctx)
	if err != nil {
		log.Fatal("Failed to create coordination stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing coordination stores", zap.Error(err))
		}
	}()

	// Repositories and the transactional outbox
	clock := shared.SystemClock{}
	serializer := event.NewBillingEventSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithMaxRetries(cfg.Event.MaxRetries))
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	paymentRepo := persistence.NewGormPaymentRepository(db.DB, clock)
	paymentRepo.SetOutboxEventSaver(outboxPublisher)
	subscriptionRepo := persistence.NewGormSubscriptionRepository(db.DB, clock)
	subscriptionRepo.SetOutboxEventSaver(outboxPublisher)
	refundRepo := persistence.NewGormRefundRecordRepository(db.DB)

	billingMetrics, err := telemetry.NewBillingMetrics(telemetry.BillingMetricsConfig{
		Meter:           meterProvider.Meter("paycore.billing"),
		Logger:          log,
		BacklogProvider: outboxRepo,
	})
	if err != nil {
		log.Fatal("Failed to initialize billing metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		billingMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
		defer billingMetrics.Stop()
	}

	// Event bus and subscribers
	bus, err := newEventBus(cfg, serializer, log)
	if err != nil {
		log.Fatal("Failed to initialize event bus", zap.Error(err))
	}

	idempotencyCfg := shared.DefaultIdempotencyConfig()
	if cfg.Event.IdempotencyTTL > 0 {
		idempotencyCfg.TTL = cfg.Event.IdempotencyTTL
	}
	idempotencyMetrics := &event.IdempotencyMetrics{}
	refundProjection := event.NewIdempotentHandler(
		billingapp.NewRefundProjection(refundRepo, log),
		stores.Idempotency,
		log,
		event.WithIdempotencyConfig(idempotencyCfg),
		event.WithIdempotencyMetrics(idempotencyMetrics),
	)
	bus.Subscribe(refundProjection)
	bus.Subscribe(billingMetrics)

	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := bus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Outbox relay
	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Event.BatchSize
		processorCfg.PollInterval = cfg.Event.PollInterval
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Event.CleanupRetention
		processorCfg.CleanupInterval = cfg.Event.CleanupInterval

		processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, processorCfg, log,
			event.WithDeliveryRecorder(billingMetrics),
		)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		defer func() {
			if err := processor.Stop(context.Background()); err != nil {
				log.Error("Error stopping outbox processor", zap.Error(err))
			}
		}()
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	// Application services
	factory := billing.NewFactory(shared.UUIDGenerator{}, clock)
	mutation := billingapp.MutationOptions{
		Locker:      stores.Locker,
		LockTTL:     cfg.Billing.LockTTL,
		MaxAttempts: cfg.Billing.SaveMaxAttempts,
		Conflicts:   billingMetrics,
	}

	paymentService := billingapp.NewPaymentService(billingapp.PaymentServiceConfig{
		Payments:        paymentRepo,
		Refunds:         refundRepo,
		Factory:         factory,
		Idempotency:     stores.Idempotency,
		DefaultCurrency: cfg.Billing.DefaultCurrency,
		Mutation:        mutation,
		Logger:          log,
	})
	subscriptionService := billingapp.NewSubscriptionService(billingapp.SubscriptionServiceConfig{
		Subscriptions:   subscriptionRepo,
		Factory:         factory,
		DefaultCurrency: cfg.Billing.DefaultCurrency,
		Mutation:        mutation,
		Logger:          log,
	})
	renewalService := billingapp.NewRenewalService(billingapp.RenewalServiceConfig{
		Subscriptions: subscriptionRepo,
		BatchSize:     cfg.Billing.RenewalBatchSize,
		Mutation:      mutation,
		Recorder:      billingMetrics,
		Logger:        log,
	})
	outboxService := eventapp.NewOutboxService(outboxRepo, log)

	renewalScheduler := scheduler.NewRenewalScheduler(renewalService, clock, log, scheduler.RenewalSchedulerConfig{
		Enabled:    cfg.Billing.RenewalEnabled,
		Interval:   cfg.Billing.RenewalInterval,
		RunTimeout: cfg.Billing.RenewalTimeout,
		RunOnStart: true,
	})
	if err := renewalScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start renewal scheduler", zap.Error(err))
	}
	defer func() {
		if err := renewalScheduler.Stop(context.Background()); err != nil {
			log.Error("Error stopping renewal scheduler", zap.Error(err))
		}
	}()

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := router.NewEngine(router.EngineConfig{
		HTTP: cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Metrics: middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Enabled:       meterProvider.IsEnabled(),
			Logger:        log,
		},
		Logger: log,
	}, router.Handlers{
		Payment:      handler.NewPaymentHandler(paymentService),
		Subscription: handler.NewSubscriptionHandler(subscriptionService),
		Outbox:       handler.NewOutboxHandler(outboxService),
		System:       handler.NewSystemHandler(cfg.App.Name, db),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	cancel()

	stats := idempotencyMetrics.Stats()
	log.Info("Server exited gracefully",
		zap.Int64("events_processed", stats.EventsProcessed),
		zap.Int64("events_duplicate", stats.EventsDuplicate),
		zap.Int64("events_failed", stats.EventsFailed),
	)
}

// newEventBus picks the broker named by event.broker. RabbitMQ fans events
// out across instances; memory keeps delivery in process.
func newEventBus(cfg *config.Config, serializer *event.EventSerializer, log *zap.Logger) (shared.EventBus, error) {
	switch cfg.Event.Broker {
	case "rabbitmq":
		bus, err := event.DialRabbitMQEventBus(cfg.Event.RabbitMQ, serializer, log)
		if err != nil {
			return nil, err
		}
		log.Info("Using RabbitMQ event bus",
			zap.String("exchange", cfg.Event.RabbitMQ.Exchange),
			zap.String("queue", cfg.Event.RabbitMQ.Queue),
		)
		return bus, nil
	default:
		log.Info("Using in-memory event bus")
		return event.NewInMemoryEventBus(log), nil
	}
}
