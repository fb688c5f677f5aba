package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/HousePricer/internal/api"
	"github.com/Alias1177/HousePricer/internal/config"
	"github.com/Alias1177/HousePricer/internal/telemetry"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	gin.SetMode(gin.ReleaseMode)
	metrics := telemetry.New()

	svc, cleanup, err := newService(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Info().
		Str("engine_mode", cfg.EngineMode).
		Str("storage", cfg.StorageDriver).
		Dur("engine_timeout", cfg.EngineTimeout).
		Int("engine_max_concurrency", cfg.EngineMaxConcurrency).
		Msg("Starting house price service")

	server := api.NewServer(svc, api.Options{
		Addr:           ":" + cfg.Port,
		Limiter:        api.NewClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Observer:       metrics,
		MetricsHandler: metrics.Handler(),
	})
	return server.Run(ctx)
}
