package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/promo-engine/api/controllers"
	"github.com/angelmondragon/promo-engine/api/routes"
	"github.com/angelmondragon/promo-engine/internal/allocation"
	"github.com/angelmondragon/promo-engine/internal/quotes"
	"github.com/angelmondragon/promo-engine/pkg/config"
	"github.com/angelmondragon/promo-engine/pkg/currency"
	"github.com/angelmondragon/promo-engine/pkg/logger"
	"github.com/angelmondragon/promo-engine/pkg/metrics"
	"github.com/angelmondragon/promo-engine/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	overrides, err := cfg.Currency.Overrides()
	if err != nil {
		logg.Error(context.Background(), "failed to parse currency overrides", err)
		os.Exit(1)
	}
	table, err := currency.NewTable(overrides)
	if err != nil {
		logg.Error(context.Background(), "failed to build currency table", err)
		os.Exit(1)
	}

	epsilon, err := cfg.Allocation.Epsilon()
	if err != nil {
		logg.Error(context.Background(), "failed to parse rounding epsilon", err)
		os.Exit(1)
	}
	engine, err := allocation.NewEngine(table, allocation.WithEpsilon(epsilon))
	if err != nil {
		logg.Error(context.Background(), "failed to build allocation engine", err)
		os.Exit(1)
	}

	var (
		cache       quotes.Cache
		cachePinger controllers.CachePinger
	)
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		cache = redisClient
		cachePinger = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, quote cache disabled")
	}

	registry := prometheus.NewRegistry()
	allocationMetrics := metrics.NewAllocationMetrics(registry)

	quoteService, err := quotes.NewService(engine, cache, cfg.Allocation.QuoteCacheTTL, allocationMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Quotes:         quoteService,
			Cache:          cachePinger,
			Logger:         logg,
			Registry:       registry,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
