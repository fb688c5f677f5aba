// Package prediction sequences validation, estimation and persistence.
package prediction

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/HousePricer/internal/validation"
	"github.com/Alias1177/HousePricer/models"
)

// Options tune a Service; zero values select defaults
type Options struct {
	Validator      *validation.Validator
	Orphans        models.OrphanReporter
	PersistTimeout time.Duration
}

// Service is the prediction orchestrator
type Service struct {
	validator      *validation.Validator
	estimator      models.Estimator
	storage        models.Storage
	orphans        models.OrphanReporter
	persistTimeout time.Duration
	logger         zerolog.Logger
}

// NewService creates a Service around an estimator and a store
func NewService(estimator models.Estimator, storage models.Storage, opts Options) *Service {
	if opts.Validator == nil {
		opts.Validator = validation.New(false)
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}

	return &Service{
		validator:      opts.Validator,
		estimator:      estimator,
		storage:        storage,
		orphans:        opts.Orphans,
		persistTimeout: opts.PersistTimeout,
		logger:         log.With().Str("component", "prediction_service").Logger(),
	}
}

// Predict validates raw, estimates a price and stores the property with its prediction.
//
// Validation and estimation errors are returned unchanged and nothing is stored.
// A storage failure fails the request with *models.PersistenceError; the estimate
// is still returned next to it so callers can decide whether to show it.
func (s *Service) Predict(ctx context.Context, raw map[string]any) (models.PredictionResult, error) {
	start := time.Now()

	features, err := s.validator.Validate(raw)
	if err != nil {
		return models.PredictionResult{}, err
	}

	result, err := s.estimator.Estimate(ctx, features)
	if err != nil {
		return models.PredictionResult{}, err
	}

	// Once estimation succeeded the writes run to completion even if the caller goes away
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer cancel()

	property, err := s.storage.CreateProperty(persistCtx, features)
	if err != nil {
		return result, &models.PersistenceError{Op: "create property", Err: err}
	}

	stored, err := s.storage.CreatePrediction(persistCtx, models.NewPrediction{
		PropertyID:       property.ID,
		PredictionResult: result,
	})
	if err != nil {
		if s.orphans != nil {
			s.orphans.ReportOrphan(persistCtx, property.ID, err)
		}
		return result, &models.PersistenceError{Op: "create prediction", PropertyID: property.ID, Err: err}
	}

	s.logger.Info().
		Str("property_id", property.ID).
		Str("prediction_id", stored.ID).
		Str("location", features.Location).
		Int("age_years", features.AgeAt(start)).
		Float64("estimated_price", result.EstimatedPrice).
		Float64("confidence", result.Confidence).
		Dur("elapsed", time.Since(start)).
		Msg("Prediction stored")

	return result, nil
}

// GetMetrics fetches fresh model metrics from the estimator on every call
func (s *Service) GetMetrics(ctx context.Context) (models.ModelMetrics, error) {
	metrics, err := s.estimator.FetchMetrics(ctx)
	if err != nil {
		return models.ModelMetrics{}, &models.MetricsUnavailableError{Err: err}
	}
	return metrics, nil
}

// RecentPredictions lists stored predictions, newest first
func (s *Service) RecentPredictions(ctx context.Context, limit int) ([]models.StoredPrediction, error) {
	return s.storage.RecentPredictions(ctx, limit)
}

// GetProperty looks up a stored property
func (s *Service) GetProperty(ctx context.Context, id string) (models.Property, error) {
	return s.storage.GetProperty(ctx, id)
}
