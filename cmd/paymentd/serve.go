package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/paysys/payment-integration/config"
	appPayment "github.com/paysys/payment-integration/internal/application/payment"
	appProduct "github.com/paysys/payment-integration/internal/application/product"
	"github.com/paysys/payment-integration/internal/infrastructure/balance"
	"github.com/paysys/payment-integration/internal/infrastructure/cache"
	"github.com/paysys/payment-integration/internal/infrastructure/eventbus"
	httptransport "github.com/paysys/payment-integration/internal/infrastructure/http"
	"github.com/paysys/payment-integration/internal/infrastructure/id"
	infraobs "github.com/paysys/payment-integration/internal/infrastructure/observability"
	"github.com/paysys/payment-integration/internal/infrastructure/observability/oteltrace"
	"github.com/paysys/payment-integration/internal/infrastructure/observability/prometrics"
	"github.com/paysys/payment-integration/internal/infrastructure/observability/zaplogger"
	"github.com/paysys/payment-integration/internal/infrastructure/persistence/gormstore"
	"github.com/paysys/payment-integration/internal/infrastructure/reconcile"
	"github.com/paysys/payment-integration/internal/observability"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func runServe(cfg *config.Config) error {
	logger := zaplogger.New(cfg.Service.Env,
		observability.F("service", cfg.Service.Name),
		observability.F("env", cfg.Service.Env),
	)
	tel := newTelemetry(cfg, logger)

	db, err := gormstore.Open(cfg.Database)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Forward-only migrations run on every start; applied ones are skipped.
	runner := gormstore.NewMigrationRunner(db, logger)
	if err := runner.Run(ctx, gormstore.Migrations()); err != nil {
		return err
	}

	repo := gormstore.NewPaymentRepository(db)

	bus := eventbus.NewBus(logger)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	reconciler := reconcile.New(bus, repo, logger)
	reconciler.Start()

	retry := balance.NewRetryPolicy(cfg.Balance.MaxRetries, cfg.Balance.RetryDelay, balance.IsTransient, logger)
	client := balance.NewClient(cfg.Balance.BaseURL, cfg.Balance.Timeout, retry, tel)

	createUC := appPayment.NewCreatePaymentUseCase(repo, client, id.NewUUIDGenerator(), tel)
	completeUC := appPayment.NewCompletePaymentUseCase(repo, client, bus, tel)
	productSvc := appProduct.NewService(client, cache.NewProductCache(cfg.Catalog.CacheTTL), logger)

	readiness := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	if cfg.Service.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httptransport.ObservabilityMiddleware(logger, tel))
	httptransport.NewHandler(createUC, completeUC, productSvc, readiness).Register(engine)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: engine,
	}

	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
		return err
	}
	logger.Info("http_server_stopped")
	return nil
}

func newTelemetry(cfg *config.Config, logger observability.Logger) observability.Observability {
	reg := prometrics.New(metricsNamespace)

	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: reg.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: reg.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MBalanceRequests: reg.Counter(
			string(observability.MBalanceRequests),
			"Total number of balance API calls.",
			"target", "outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: reg.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			nil,
			"use_case",
		),
		observability.MHTTPRequestDuration: reg.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP request handling in seconds.",
			nil,
			"method", "route", "status",
		),
		observability.MBalanceRequestDuration: reg.Histogram(
			string(observability.MBalanceRequestDuration),
			"Duration of balance API calls in seconds.",
			nil,
			"target",
		),
	}

	return infraobs.New(oteltrace.New(cfg.Service.Name), logger, counters, histograms)
}

const metricsNamespace = "paymentd"
