package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Alias1177/HousePricer/internal/config"
	"github.com/Alias1177/HousePricer/internal/database"
	"github.com/Alias1177/HousePricer/internal/estimator"
	"github.com/Alias1177/HousePricer/internal/notify"
	"github.com/Alias1177/HousePricer/internal/prediction"
	"github.com/Alias1177/HousePricer/internal/storage"
	"github.com/Alias1177/HousePricer/internal/telemetry"
	"github.com/Alias1177/HousePricer/internal/validation"
	"github.com/Alias1177/HousePricer/models"
)

func newEstimator(cfg *config.Config, recorder estimator.Recorder) models.Estimator {
	if cfg.EngineMode == config.EngineHTTP {
		return estimator.NewRemoteEngine(estimator.RemoteConfig{
			BaseURL:        cfg.EngineURL,
			Timeout:        cfg.EngineTimeout,
			RequestsPerSec: cfg.EngineRPS,
			MaxRetries:     cfg.EngineRetries,
		}).WithRecorder(recorder)
	}

	var args []string
	if cfg.EngineScript != "" {
		args = []string{cfg.EngineScript}
	}
	return estimator.NewProcessEngine(estimator.ProcessConfig{
		Command:        cfg.PythonPath,
		Args:           args,
		MetricsFlag:    cfg.EngineMetricsFlag,
		Timeout:        cfg.EngineTimeout,
		MaxConcurrency: cfg.EngineMaxConcurrency,
	}).WithRecorder(recorder)
}

func newStorage(ctx context.Context, cfg *config.Config) (models.Storage, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.New(database.ConnectionParams{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres storage: %w", err)
		}
		return db, nil
	case config.StorageRedis:
		r, err := storage.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("opening redis storage: %w", err)
		}
		return r, nil
	default:
		return storage.NewMemory(), nil
	}
}

func newOrphanReporter(cfg *config.Config, metrics *telemetry.Metrics) notify.Multi {
	reporters := notify.Multi{}
	if metrics != nil {
		reporters = append(reporters, metrics)
	}

	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramOpsChatID)
		if err == nil {
			return append(reporters, tg)
		}
		log.Warn().Err(err).Msg("Telegram alerts disabled, falling back to log")
	}
	return append(reporters, notify.NewLogReporter())
}

// newService wires storage, estimator and reporters into a prediction service.
// The returned cleanup drains queued alerts and closes storage.
func newService(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*prediction.Service, func(), error) {
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var recorder estimator.Recorder
	if metrics != nil {
		recorder = metrics
	}

	orphans := newOrphanReporter(cfg, metrics)
	svc := prediction.NewService(newEstimator(cfg, recorder), store, prediction.Options{
		Validator:      validation.New(cfg.StrictFields),
		Orphans:        orphans,
		PersistTimeout: cfg.PersistTimeout,
	})

	cleanup := func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := orphans.Wait(drainCtx); err != nil {
			log.Warn().Err(err).Msg("Orphan alerts still pending at shutdown")
		}
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing storage")
		}
	}
	return svc, cleanup, nil
}
