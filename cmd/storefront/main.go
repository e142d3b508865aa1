package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/auth"
	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/consumer"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/publisher"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/service"
	"github.com/fjod/storefront/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

func main() {
	telemetry.InitLogger(slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		fatal("invalid configuration", err)
	}

	if cfg.OTelEnabled {
		shutdownTracer, err := telemetry.SetupTracer(context.Background(), "storefront", cfg.OTelEndpoint, cfg.OTelEnvironment)
		if err != nil {
			fatal("failed to set up tracing", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracer(ctx); err != nil {
				slog.Error("tracer shutdown failed", slog.Any("error", err))
			}
		}()
	}

	repo, err := openRepository(cfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cfg.MigrationsPath); err != nil {
		fatal("failed to run migrations", err)
	}
	slog.Info("database migrations completed", slog.String("driver", repo.Driver()))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		slog.Warn("redis unavailable, carts will be read from the database", slog.Any("error", err))
	}
	cartCache := cache.NewRedisCache(redisClient)

	keys, err := auth.NewKeys(cfg.JWTSecret)
	if err != nil {
		fatal("invalid jwt secret", err)
	}

	cartService := service.NewCartService(repo, repo, cartCache)
	orderService := service.NewOrderService(repo, repo, cartCache)

	var wg sync.WaitGroup
	workersCtx, workersCancel := context.WithCancel(context.Background())

	poller := publisher.NewOutboxPoller(repo, cfg.OrderEventsTopic, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(workersCtx)
	}()

	paymentConsumer := consumer.NewConsumer(orderService, cfg.PaymentEventsTopic, cfg.KafkaBrokers...)
	wg.Add(1)
	go func() {
		defer wg.Done()
		paymentConsumer.Run(workersCtx)
	}()

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: h.NewRouter(h.RouterConfig{
			Carts:          cartService,
			Orders:         orderService,
			Tokens:         keys,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("storefront starting", slog.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down storefront...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.Any("error", err))
	}

	workersCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		slog.Info("background workers stopped cleanly")
	case <-shutdownCtx.Done():
		slog.Warn("background workers didn't stop in time")
	}

	paymentConsumer.Close()
	if err := poller.Close(); err != nil {
		slog.Error("error closing kafka writer", slog.Any("error", err))
	}
	slog.Info("storefront stopped")
}

func openRepository(cfg *config.Config) (*repository.Repository, error) {
	if cfg.DBDriver == repository.DriverSQLite {
		return repository.NewSQLiteRepository(cfg.SQLitePath)
	}
	return repository.NewRepository(&repository.Credentials{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
	})
}

func fatal(msg string, err error) {
	slog.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
