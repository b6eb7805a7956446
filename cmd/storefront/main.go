package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/storefront"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("storefront: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logr, err := logger.New(cfg.LogLevel, cfg.Production())
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, backend.WithLogger(logr.Named("backend")))
	if err != nil {
		return err
	}

	opts := []storefront.Option{
		storefront.WithLogger(logr),
		storefront.WithTaxRate(cfg.TaxRate),
		storefront.WithPaymentDelay(cfg.PaymentSimulationDelay),
		storefront.WithSessionID(cfg.CartSessionID),
	}

	var mirror cache.CartCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// the mirror is a fallback only; run without it
			logr.Warn("redis ping failed, cart mirror disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			mirror = cache.NewRedisCache(redisClient, cfg.CartMirrorTTL)
			opts = append(opts, storefront.WithCartMirror(mirror))
			logr.Info("cart mirror enabled", zap.String("addr", cfg.RedisAddr))
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		opts = append(opts, storefront.WithPublisher(events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)))
		logr.Info("publishing events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))

		if mirror != nil {
			cleaner := events.NewMirrorCleaner(mirror, logr.Named("mirror_cleaner"), cfg.KafkaTopic, cfg.KafkaBrokers...)
			defer cleaner.Close()
			go cleaner.Run(ctx)
		}
	}

	sf := storefront.New(client, opts...)
	sf.Start(ctx)
	sf.StartPolling(ctx, cfg.OrderPollInterval)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: h.NewRouter(sf, h.RouterConfig{
			RequestTimeout: cfg.RequestTimeout,
			MaxBodySize:    cfg.MaxRequestBodySize,
			Log:            logr.Named("http"),
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down storefront")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server forced to shutdown", zap.Error(err))
	}
	if err := sf.Close(shutdownCtx); err != nil {
		logr.Error("storefront close failed", zap.Error(err))
	}
	logr.Info("storefront exited")
	return nil
}
