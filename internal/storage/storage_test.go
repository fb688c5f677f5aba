package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/HousePricer/models"
)

func newRedis(t *testing.T) *Redis {
	t.Helper()
	srv := miniredis.RunT(t)
	store, err := NewRedis(context.Background(), srv.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func stores(t *testing.T) map[string]models.Storage {
	return map[string]models.Storage{
		"memory": NewMemory(),
		"redis":  newRedis(t),
	}
}

func TestPropertyAndPredictionReferenceEachOther(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			garage := 2
			features := models.PropertyFeatures{Sqft: 1800, Bedrooms: 3, Bathrooms: 2, Location: "94107", Garage: &garage}

			p, err := store.CreateProperty(ctx, features)
			require.NoError(t, err)
			require.NotEmpty(t, p.ID)

			sp, err := store.CreatePrediction(ctx, models.NewPrediction{
				PropertyID: p.ID,
				PredictionResult: models.PredictionResult{
					EstimatedPrice: 950000, Confidence: 0.82, LowerBound: 870000, UpperBound: 1030000,
				},
			})
			require.NoError(t, err)
			assert.Equal(t, p.ID, sp.PropertyID)

			got, err := store.GetProperty(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, features, got.PropertyFeatures)

			recent, err := store.RecentPredictions(ctx, 10)
			require.NoError(t, err)
			require.Len(t, recent, 1)
			assert.Equal(t, sp.ID, recent[0].ID)
			assert.Equal(t, 950000.0, recent[0].EstimatedPrice)
		})
	}
}

func TestPredictionRequiresProperty(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.CreatePrediction(context.Background(), models.NewPrediction{PropertyID: "missing"})
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestGetPropertyNotFound(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.GetProperty(context.Background(), "missing")
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestRecentPredictionsNewestFirst(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var ids []string
			for i := 0; i < 5; i++ {
				p, err := store.CreateProperty(ctx, models.PropertyFeatures{Sqft: float64(1000 + i), Location: "94107"})
				require.NoError(t, err)
				sp, err := store.CreatePrediction(ctx, models.NewPrediction{PropertyID: p.ID})
				require.NoError(t, err)
				ids = append(ids, sp.ID)
			}

			recent, err := store.RecentPredictions(ctx, 3)
			require.NoError(t, err)
			require.Len(t, recent, 3)
			assert.Equal(t, ids[4], recent[0].ID)
			assert.Equal(t, ids[3], recent[1].ID)
			assert.Equal(t, ids[2], recent[2].ID)

			none, err := store.RecentPredictions(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}
