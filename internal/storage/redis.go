package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Alias1177/HousePricer/models"
)

const (
	propertyKeyPrefix   = "housepricer:property:"
	predictionKeyPrefix = "housepricer:prediction:"
	recentKey           = "housepricer:predictions:recent"

	// recentCap bounds the recent-predictions index
	recentCap = 1000
)

// Redis stores properties and predictions as JSON documents
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis connects to addr and checks the connection
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Redis{client: client, now: time.Now}, nil
}

// CreateProperty stores the features under a new id
func (r *Redis) CreateProperty(ctx context.Context, features models.PropertyFeatures) (models.Property, error) {
	p := models.Property{
		ID:               uuid.NewString(),
		PropertyFeatures: features,
		CreatedAt:        r.now().UTC(),
	}

	doc, err := json.Marshal(p)
	if err != nil {
		return models.Property{}, err
	}
	if err := r.client.Set(ctx, propertyKeyPrefix+p.ID, doc, 0).Err(); err != nil {
		return models.Property{}, err
	}
	return p, nil
}

// CreatePrediction stores a prediction and indexes it as most recent
func (r *Redis) CreatePrediction(ctx context.Context, np models.NewPrediction) (models.StoredPrediction, error) {
	exists, err := r.client.Exists(ctx, propertyKeyPrefix+np.PropertyID).Result()
	if err != nil {
		return models.StoredPrediction{}, err
	}
	if exists == 0 {
		return models.StoredPrediction{}, fmt.Errorf("property %s: %w", np.PropertyID, models.ErrNotFound)
	}

	sp := models.StoredPrediction{
		ID:               uuid.NewString(),
		PropertyID:       np.PropertyID,
		PredictionResult: np.PredictionResult,
		CreatedAt:        r.now().UTC(),
	}
	doc, err := json.Marshal(sp)
	if err != nil {
		return models.StoredPrediction{}, err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, predictionKeyPrefix+sp.ID, doc, 0)
		pipe.LPush(ctx, recentKey, sp.ID)
		pipe.LTrim(ctx, recentKey, 0, recentCap-1)
		return nil
	})
	if err != nil {
		return models.StoredPrediction{}, err
	}
	return sp, nil
}

// GetProperty returns a stored property
func (r *Redis) GetProperty(ctx context.Context, id string) (models.Property, error) {
	doc, err := r.client.Get(ctx, propertyKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Property{}, models.ErrNotFound
		}
		return models.Property{}, err
	}

	var p models.Property
	if err := json.Unmarshal(doc, &p); err != nil {
		return models.Property{}, fmt.Errorf("decoding property %s: %w", id, err)
	}
	return p, nil
}

// RecentPredictions lists up to limit predictions, newest first
func (r *Redis) RecentPredictions(ctx context.Context, limit int) ([]models.StoredPrediction, error) {
	if limit <= 0 {
		return nil, nil
	}

	ids, err := r.client.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = predictionKeyPrefix + id
	}
	docs, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]models.StoredPrediction, 0, len(docs))
	for i, doc := range docs {
		s, ok := doc.(string)
		if !ok {
			// Evicted or deleted by retention
			continue
		}
		var sp models.StoredPrediction
		if err := json.Unmarshal([]byte(s), &sp); err != nil {
			return nil, fmt.Errorf("decoding prediction %s: %w", ids[i], err)
		}
		out = append(out, sp)
	}
	return out, nil
}

// Close closes the client
func (r *Redis) Close() error {
	return r.client.Close()
}
