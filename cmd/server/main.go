package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/config"
	"github.com/iliyamo/product-sales-api/internal/database"
	"github.com/iliyamo/product-sales-api/internal/handler"
	"github.com/iliyamo/product-sales-api/internal/middleware"
	"github.com/iliyamo/product-sales-api/internal/queue"
	"github.com/iliyamo/product-sales-api/internal/repository"
	"github.com/iliyamo/product-sales-api/internal/router"
	"github.com/iliyamo/product-sales-api/internal/service"
	"github.com/iliyamo/product-sales-api/internal/telemetry"
	"github.com/iliyamo/product-sales-api/internal/utils"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.ServiceName,
		Version:     version,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	logger := telemetry.NewLogger(cfg.IsDev(), cfg.ServiceName, tel.LoggerProvider)
	defer func() { _ = logger.Sync() }()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if cfg.MigrateOnStart {
		switch err := database.Migrate(dsn, "up"); {
		case errors.Is(err, database.ErrNoChange):
			logger.Info("schema up to date")
		case err != nil:
			return err
		default:
			logger.Info("migrations applied")
		}
	}
	db, err := database.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb == nil {
		logger.Warn("redis unreachable, rate limiting and caching disabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		defer rdb.Close()
	}

	var events service.SaleEventPublisher
	if cfg.AMQPURL != "" {
		pub := queue.NewPublisher(cfg.AMQPURL, logger)
		defer pub.Close()
		events = pub
	}

	var wg sync.WaitGroup
	if cfg.SalesConsumer && cfg.AMQPURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queue.StartSalesConsumer(ctx, cfg.AMQPURL, cfg.SalesLogDir, logger)
		}()
	}

	issuer, err := utils.NewTokenIssuer(cfg.Token(), utils.WithLogger(logger))
	if err != nil {
		return err
	}
	uow := repository.NewUnitOfWork(db)
	repos := repository.NewRepositories(db)

	authSvc := service.NewAuthService(uow, issuer, logger)
	e := router.New(router.Deps{
		Auth:          handler.NewAuthHandler(authSvc, logger),
		Products:      handler.NewProductHandler(service.NewCatalogService(repos.Products, logger), logger),
		Sales:         handler.NewSaleHandler(service.NewSaleRegistrar(uow, events, logger), service.NewSalesReport(repos.Sales), logger),
		Health:        handler.NewHealthHandler(db, rdb, logger),
		Authenticator: authSvc,
		Limiter:       middleware.NewRateLimiter(cfg.RateLimit, rdb, logger),
		Cache:         middleware.NewResponseCache(cfg.Cache, rdb, logger),
		CORSOrigins:   cfg.CORSOrigins,
		Log:           logger,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}
