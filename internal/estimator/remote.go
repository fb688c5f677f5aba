package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpClient "github.com/Alias1177/HousePricer/internal/platform/http"
	"github.com/Alias1177/HousePricer/models"
)

// maxReplySize bounds how much of an engine reply is read
const maxReplySize = 1 << 20

// RemoteConfig describes an estimator served over HTTP
type RemoteConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec int
	MaxRetries     int
}

// RemoteEngine calls an estimator service: POST /estimate and GET /metrics
type RemoteEngine struct {
	baseURL  string
	timeout  time.Duration
	client   *httpClient.Client
	recorder Recorder
	logger   zerolog.Logger
}

// NewRemoteEngine creates a RemoteEngine
func NewRemoteEngine(cfg RemoteConfig) *RemoteEngine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &RemoteEngine{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         cfg.Timeout + time.Second,
			RequestsPerSec:  cfg.RequestsPerSec,
			MaxRetries:      cfg.MaxRetries,
			MaxRetryTimeout: cfg.Timeout,
		}),
		recorder: nopRecorder{},
		logger:   log.With().Str("component", "remote_engine").Logger(),
	}
}

// WithRecorder attaches a call observer
func (e *RemoteEngine) WithRecorder(r Recorder) *RemoteEngine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// Estimate posts the features and decodes the prediction
func (e *RemoteEngine) Estimate(ctx context.Context, features models.PropertyFeatures) (models.PredictionResult, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("encoding features: %w", err)
	}

	start := time.Now()
	out, err := e.call(ctx, http.MethodPost, "/estimate", payload)
	var result models.PredictionResult
	if err == nil {
		result, err = decodePrediction(out)
	}
	e.finish(ModeEstimate, start, err)
	return result, err
}

// FetchMetrics retrieves the current model metrics
func (e *RemoteEngine) FetchMetrics(ctx context.Context) (models.ModelMetrics, error) {
	start := time.Now()
	out, err := e.call(ctx, http.MethodGet, "/metrics", nil)
	var metrics models.ModelMetrics
	if err == nil {
		metrics, err = decodeMetrics(out)
	}
	e.finish(ModeMetrics, start, err)
	return metrics, err
}

func (e *RemoteEngine) finish(mode string, start time.Time, err error) {
	elapsed := time.Since(start)
	e.recorder.ObserveEngineCall(mode, outcome(err), elapsed)
	if err != nil {
		e.logger.Warn().Err(err).Str("mode", mode).Dur("elapsed", elapsed).Msg("Engine call failed")
	}
}

// call performs one exchange and returns the full reply body
func (e *RemoteEngine) call(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.DoRequest(ctx, method, e.baseURL+path, body)
	if err != nil {
		var statusErr *httpClient.HTTPStatusError
		switch {
		case errors.As(err, &statusErr):
			cause := strings.TrimSpace(statusErr.Body)
			if cause == "" {
				cause = statusErr.Error()
			}
			return nil, &models.EstimationError{Cause: cause, Err: err}
		case ctx.Err() != nil:
			return nil, interrupted(ctx)
		default:
			return nil, &models.EstimationError{Cause: fmt.Sprintf("engine unreachable: %v", err), Err: err}
		}
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, interrupted(ctx)
		}
		return nil, malformed(fmt.Errorf("reading reply: %w", err))
	}
	if len(out) > maxReplySize {
		return nil, malformed(fmt.Errorf("reply exceeds %d bytes", maxReplySize))
	}
	return out, nil
}
