// Package main seeds roles, the capability catalog and the first admin account.
package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aura-events/backend/config"
	"github.com/aura-events/backend/internal/seed"
	"github.com/aura-events/backend/pkg/database"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	h := cfg.RBAC.Hierarchy
	admin := seed.Admin{Name: cfg.Seed.AdminName, Email: cfg.Seed.AdminEmail, Password: cfg.Seed.AdminPassword}
	if err := seed.NewSeeder(pool, logger).Run(ctx, seed.DefaultPlan(h), h.Top(), admin); err != nil {
		logger.Fatal("seed", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
