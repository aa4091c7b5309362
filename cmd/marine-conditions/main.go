package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	httpapi "github.com/i474232898/marine-conditions/internal/api/http"
	"github.com/i474232898/marine-conditions/internal/config"
	"github.com/i474232898/marine-conditions/internal/scheduler"
	"github.com/i474232898/marine-conditions/internal/store"
	"github.com/i474232898/marine-conditions/internal/weather"
	"github.com/i474232898/marine-conditions/internal/weather/providers"
)

func main() {
	// Load configuration (also reads .env when present).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.ConfigureLogging()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	zones, err := weather.NewDefaultTimeZoneResolver(cfg.DefaultTimezone)
	if err != nil {
		log.Fatalf("failed to load timezone data: %v", err)
	}
	clock := weather.NewLocalClock(zones, nil)

	var locations weather.LocationResolver
	if cfg.GeocoderAPIKey != "" {
		locations = providers.NewGoogleResolver(cfg.GeocoderAPIKey)
	} else {
		locations = providers.NewNominatimResolver(httpClient, cfg.NominatimURL)
	}

	// Upstream gateway with resilience (rate limit + backoff + circuit breaker).
	gateway := providers.NewStormglassGateway(httpClient, providers.StormglassConfig{
		APIKey:      cfg.StormglassAPIKey,
		BaseURL:     cfg.StormglassBaseURL,
		Datum:       cfg.TideDatum,
		SwellSource: cfg.SwellSource,
		RPS:         cfg.UpstreamRPS,
		Burst:       cfg.UpstreamBurst,
	})
	if cfg.StormglassAPIKey == "" {
		log.Warn("STORMGLASS_API_KEY is not set; every upstream call will fail")
	}

	// Forecast cache with TTL, optionally backed by redis.
	cache := store.NewForecastCache(cfg.CacheTTL, cfg.CacheMaxEntries)
	if cfg.RedisURL != "" {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		tier, err := store.NewRedisTierFromURL(pingCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Warnf("redis unavailable, using in-memory cache only: %v", err)
		} else {
			cache.WithTier(tier)
			defer tier.Close()
		}
	}

	// Core service orchestrating geocoding, cache and the upstream pipeline.
	service := weather.NewService(locations, gateway, cache, clock, weather.ServiceConfig{
		WeatherSource: cfg.WeatherSource,
		SwellSource:   cfg.SwellSource,
		ExtraMetrics:  cfg.ExtraParams,
		Concurrency:   cfg.UpstreamConcurrency,
		CallTimeout:   cfg.UpstreamCallTimeout,
	})

	// Scheduler that purges the cache and keeps configured places warm.
	sched := scheduler.New(scheduler.Config{
		PurgeInterval: cfg.CachePurgeInterval,
		WarmLocations: cfg.WarmLocations,
		WarmDays:      cfg.WarmDays,
		WarmInterval:  cfg.WarmInterval,
	}, service, cache)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "marine-conditions",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          60 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}?${queryParams}\n",
	}))
	app.Use(recover.New())

	// API routes.
	httpapi.RegisterRoutes(app, service, cache)

	go func() {
		log.Infof("listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}
