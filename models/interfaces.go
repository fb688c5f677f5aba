package models

import "context"

// Estimator is the boundary to the external price-estimation engine
type Estimator interface {
	Estimate(ctx context.Context, features PropertyFeatures) (PredictionResult, error)
	FetchMetrics(ctx context.Context) (ModelMetrics, error)
}

// Storage persists properties and their predictions
type Storage interface {
	CreateProperty(ctx context.Context, features PropertyFeatures) (Property, error)
	CreatePrediction(ctx context.Context, p NewPrediction) (StoredPrediction, error)
	GetProperty(ctx context.Context, id string) (Property, error)
	RecentPredictions(ctx context.Context, limit int) ([]StoredPrediction, error)
	Close() error
}

// OrphanReporter is told about properties whose prediction could not be stored
type OrphanReporter interface {
	ReportOrphan(ctx context.Context, propertyID string, cause error)
}
