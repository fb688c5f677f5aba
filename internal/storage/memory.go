// Package storage holds the non-SQL implementations of models.Storage.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alias1177/HousePricer/models"
)

// Memory is an in-memory implementation of models.Storage
type Memory struct {
	mu          sync.RWMutex
	properties  map[string]models.Property
	predictions []models.StoredPrediction
	now         func() time.Time
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		properties: make(map[string]models.Property),
		now:        time.Now,
	}
}

// CreateProperty stores the features under a new id
func (m *Memory) CreateProperty(_ context.Context, features models.PropertyFeatures) (models.Property, error) {
	p := models.Property{
		ID:               uuid.NewString(),
		PropertyFeatures: features,
		CreatedAt:        m.now().UTC(),
	}

	m.mu.Lock()
	m.properties[p.ID] = p
	m.mu.Unlock()

	return p, nil
}

// CreatePrediction stores a prediction; the property must exist
func (m *Memory) CreatePrediction(_ context.Context, np models.NewPrediction) (models.StoredPrediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.properties[np.PropertyID]; !ok {
		return models.StoredPrediction{}, fmt.Errorf("property %s: %w", np.PropertyID, models.ErrNotFound)
	}

	sp := models.StoredPrediction{
		ID:               uuid.NewString(),
		PropertyID:       np.PropertyID,
		PredictionResult: np.PredictionResult,
		CreatedAt:        m.now().UTC(),
	}
	m.predictions = append(m.predictions, sp)
	return sp, nil
}

// GetProperty returns a stored property
func (m *Memory) GetProperty(_ context.Context, id string) (models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.properties[id]
	if !ok {
		return models.Property{}, models.ErrNotFound
	}
	return p, nil
}

// RecentPredictions lists up to limit predictions, newest first
func (m *Memory) RecentPredictions(_ context.Context, limit int) ([]models.StoredPrediction, error) {
	if limit <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	n := min(limit, len(m.predictions))
	out := make([]models.StoredPrediction, 0, n)
	for i := len(m.predictions) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.predictions[i])
	}
	return out, nil
}

// Close is a no-op
func (m *Memory) Close() error { return nil }
