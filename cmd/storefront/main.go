package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/maltedev/storefront-scraper/internal/api"
	"github.com/maltedev/storefront-scraper/internal/app"
	"github.com/maltedev/storefront-scraper/internal/config"
	"github.com/maltedev/storefront-scraper/internal/database"
	"github.com/maltedev/storefront-scraper/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	fetcher, closeFetcher, err := app.NewFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFetcher(); err != nil {
			logger.Warn("failed to close fetcher", "error", err)
		}
	}()

	redisClient, err := app.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	storefront := app.NewCatalog(cfg, fetcher, redisClient, logger)

	deps := api.Deps{
		Catalog:   storefront.Service,
		Overrides: storefront.Overrides,
		QtyMax:    cfg.Site.QtyMax,
	}

	if cfg.Database.Enabled {
		db, err := openDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		deps.Carts = database.NewCartRepository(db)
		deps.Orders = events.NewPublisher(db, decimal.NewFromFloat(cfg.Site.CommissionRate), cfg.Redis.Stream, logger)

		if redisClient != nil {
			relay := startRelay(ctx, db, redisClient, cfg.Redis, logger)
			deps.Outbox = relay
		} else {
			logger.Warn("REDIS_ADDR not set, order events stay in the outbox")
		}
	}

	handlers := api.NewHandlers(deps, logger)
	server := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(handlers, api.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RequestTimeout: cfg.Server.WriteTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", server.Addr,
			"fetch_mode", cfg.Scraper.FetchMode,
			"price_multiplier", cfg.Site.PriceMultiplier,
			"cart", deps.Carts != nil)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.DB, error) {
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("database ready", "host", cfg.Database.Host, "name", cfg.Database.DBName)
	return db, nil
}

func startRelay(ctx context.Context, db *database.DB, client *redis.Client, cfg config.RedisConfig, logger *slog.Logger) *database.Relay {
	relay := database.NewRelay(db, client, logger, database.RelayConfig{
		PollInterval: cfg.RelayInterval,
		BatchSize:    cfg.RelayBatchSize,
	})
	go func() {
		if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("relay stopped with error", "error", err)
		}
	}()
	return relay
}
