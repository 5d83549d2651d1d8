package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/invoicing/backend/internal/application/ingestion"
	appinvoice "github.com/invoicing/backend/internal/application/invoice"
	"github.com/invoicing/backend/internal/domain/invoice"
	"github.com/invoicing/backend/internal/domain/shared/valueobject"
	"github.com/invoicing/backend/internal/infrastructure/config"
	"github.com/invoicing/backend/internal/infrastructure/event"
	"github.com/invoicing/backend/internal/infrastructure/logger"
	"github.com/invoicing/backend/internal/infrastructure/migration"
	"github.com/invoicing/backend/internal/infrastructure/persistence"
	"github.com/invoicing/backend/internal/infrastructure/queue"
	"github.com/invoicing/backend/internal/infrastructure/telemetry"
	"github.com/invoicing/backend/internal/interfaces/http/handler"
	"github.com/invoicing/backend/internal/interfaces/http/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.FromAppConfig(cfg.Log, cfg.App.Env)
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	providers, err := telemetry.Setup(ctx, telemetry.ConfigFrom(cfg.Telemetry), bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	// Rebuild the logger so entries are also exported through the OTel logs bridge.
	log, err := logger.New(logCfg, providers.Logs.Core(logger.ParseLevel(logCfg.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting invoice service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("queue", cfg.Queue.Driver),
	)

	db, err := openDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to prepare database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var closers []func(context.Context) error

	// Domain events
	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewLoggingHandler(log))
	if cfg.Queue.RedisEventStream != "" {
		client, err := queue.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis for the event relay", zap.Error(err))
		}
		bus.Subscribe(event.NewRelayHandler(queue.NewRedisStreamPublisher(client, cfg.Queue.RedisEventStream)))
		closers = append(closers, func(context.Context) error { return client.Close() })
		log.Info("Relaying invoice events", zap.String("stream", cfg.Queue.RedisEventStream))
	}
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	closers = append(closers, bus.Stop)

	invoiceMetrics, err := telemetry.NewInvoiceMetrics(providers.Meter.Meter("invoice-service"))
	if err != nil {
		log.Fatal("Failed to create invoice metrics", zap.Error(err))
	}

	svc := appinvoice.NewService(persistence.NewGormInvoiceRepository(db.DB),
		appinvoice.WithLogger(log.Named("invoice")),
		appinvoice.WithEventPublisher(bus),
		appinvoice.WithOutcomeRecorder(invoiceMetrics),
		appinvoice.WithPolicy(policyFrom(cfg.Invoice)),
	)

	// Ingestion
	var consumer *ingestion.Consumer
	if cfg.Queue.Enabled {
		transport, err := queue.NewFactory(cfg.Queue, cfg.Redis, queue.WithLogger(log)).Create(ctx)
		if err != nil {
			log.Fatal("Failed to create ingestion transport", zap.Error(err))
		}
		consumer = ingestion.NewConsumer(transport.Source, svc, ingestion.ConsumerConfig{
			Concurrency:    cfg.Queue.Concurrency,
			ReceiveBackoff: cfg.Queue.ReceiveBackoff,
		}, log.Named("ingestion")).WithMetrics(telemetry.NewConsumerMetrics(registry))
		if err := consumer.Start(ctx); err != nil {
			log.Fatal("Failed to start ingestion consumer", zap.Error(err))
		}
		// Stop the consumer before closing the transport it reads from.
		closers = append(closers, func(context.Context) error { return transport.Close() }, consumer.Stop)
	}

	var stats handler.ConsumerStats
	if consumer != nil {
		stats = consumer
	}
	engine, err := router.NewEngine(router.Deps{
		Config:   cfg,
		Logger:   log,
		Registry: registry,
		Invoices: handler.NewInvoiceHandler(svc),
		System:   handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, db, stats),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var result *multierror.Error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](shutdownCtx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := db.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}

	if err := result.ErrorOrNil(); err != nil {
		log.Error("Shutdown finished with errors", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}

// openDatabase connects, attaches query tracing and brings the schema up to date.
// Postgres runs the embedded SQL migrations; sqlite uses AutoMigrate.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log.Named("gorm"), logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	tracing := telemetry.DefaultDBTracingConfig()
	tracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	tracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	if db.Driver == "sqlite" {
		tracing.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(tracing, log).Register(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	if db.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	// The migrator is left open: closing its driver would close the shared pool.
	m, err := migration.New(sqlDB, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := m.Up(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func policyFrom(cfg config.InvoiceConfig) appinvoice.Policy {
	policy := appinvoice.DefaultPolicy()
	policy.AdminRates = invoice.Rates{Fee: valueobject.NewMoney(cfg.AdminDefaultFee), TaxRate: cfg.DefaultTaxRate}
	policy.IngestionRates = invoice.Rates{Fee: valueobject.NewMoney(cfg.IngestionDefaultFee), TaxRate: cfg.DefaultTaxRate}
	if cfg.DueDays > 0 {
		policy.PaymentTerm = time.Duration(cfg.DueDays) * 24 * time.Hour
	}
	return policy
}
