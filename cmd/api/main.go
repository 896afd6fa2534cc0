package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tuneforge/internal/adapter/repo"
	"tuneforge/internal/generation"
	"tuneforge/internal/http/handlers"
	httpapi "tuneforge/internal/http/httpapi"
	"tuneforge/internal/infra"
	"tuneforge/internal/infra/geoip"
	"tuneforge/internal/middleware"
	"tuneforge/internal/providers/suno"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Optional track history store.
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	var tracks handlers.TrackStore
	if dbpool != nil {
		defer dbpool.Close()
		tracks = repo.NewTrackRepository(dbpool)
	} else {
		logger.Warn().Msg("DATABASE_URL not set, track history disabled")
	}

	// Optional GeoIP country annotation.
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open geoip database")
	}
	if closer, ok := resolver.(*geoip.Resolver); ok && closer != nil {
		defer closer.Close()
	}

	vendor, err := suno.NewClient(suno.Options{
		APIKey:         cfg.SunoAPIKey,
		BaseURL:        cfg.SunoBaseURL,
		Logger:         &logger,
		RequestTimeout: cfg.VendorTimeout,
		MaxRetries:     cfg.VendorMaxRetries,
		RetryBaseDelay: cfg.VendorRetryBackoff,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure vendor client")
	}

	svc, err := generation.NewService(generation.Options{
		Vendor: vendor,
		Policy: generation.DefaultPollPolicy(),
		Logger: &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure generation service")
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	defer limiter.Close()

	app := handlers.NewApp(logger, svc, tracks, resolver)
	router := httpapi.NewRouter(cfg, logger, app, limiter)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
