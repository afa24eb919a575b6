// Command migrate applies or rolls back the embedded schema migrations.
package main

import (
	"errors"
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/iliyamo/product-sales-api/internal/config"
	"github.com/iliyamo/product-sales-api/internal/database"
	"github.com/iliyamo/product-sales-api/internal/telemetry"
)

func main() {
	direction := flag.String("direction", "up", "up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := telemetry.NewLogger(cfg.IsDev(), cfg.ServiceName+"-migrate", nil)
	defer func() { _ = logger.Sync() }()

	dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	switch err := database.Migrate(dsn, *direction); {
	case errors.Is(err, database.ErrNoChange):
		logger.Info("no change", zap.String("direction", *direction))
	case err != nil:
		logger.Fatal("migrate failed", zap.String("direction", *direction), zap.Error(err))
	default:
		logger.Info("migrations applied", zap.String("direction", *direction))
	}
}
