package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"katalog/internal/app"
)

func main() {
	// --- Configuration ---
	v := viper.New()
	app.SetDefaults(v)
	v.AutomaticEnv()

	cfg, err := app.LoadConfig(v)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := app.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
	logger.Info("Server gracefully stopped")
}

func run(ctx context.Context, cfg app.Config, logger *zap.Logger) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Error closing resources", zap.Error(err))
		}
	}()

	if err := a.StartConsumers(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server",
			zap.String("port", cfg.Port),
			zap.String("database", cfg.DatabaseDriver),
			zap.String("image_host", cfg.ImageHost),
		)
		return a.Fiber.Listen(cfg.Port)
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		return a.Fiber.Shutdown()
	})
	return g.Wait()
}
