// Package estimator is the boundary to the out-of-process price-estimation engine.
//
// Every engine call follows the same exchange: the request is serialized once,
// the engine runs to completion, and only then is its complete output decoded.
// Anything other than a clean, well-formed, in-bounds reply becomes a
// *models.EstimationError; partial output is never interpreted.
package estimator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Alias1177/HousePricer/models"
)

// Engine call modes, used for logging and metrics labels
const (
	ModeEstimate = "estimate"
	ModeMetrics  = "metrics"
)

// Recorder observes finished engine calls
type Recorder interface {
	ObserveEngineCall(mode, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEngineCall(string, string, time.Duration) {}

// decodePrediction parses a complete engine reply into a checked PredictionResult
func decodePrediction(out []byte) (models.PredictionResult, error) {
	var raw struct {
		EstimatedPrice *float64 `json:"estimatedPrice"`
		Confidence     *float64 `json:"confidence"`
		LowerBound     *float64 `json:"lowerBound"`
		UpperBound     *float64 `json:"upperBound"`
	}
	if err := decodeStrict(out, &raw); err != nil {
		return models.PredictionResult{}, malformed(err)
	}
	if raw.EstimatedPrice == nil || raw.Confidence == nil || raw.LowerBound == nil || raw.UpperBound == nil {
		return models.PredictionResult{}, malformed(fmt.Errorf("reply is missing prediction fields"))
	}

	result := models.PredictionResult{
		EstimatedPrice: *raw.EstimatedPrice,
		Confidence:     *raw.Confidence,
		LowerBound:     *raw.LowerBound,
		UpperBound:     *raw.UpperBound,
	}
	if err := result.Check(); err != nil {
		return models.PredictionResult{}, malformed(err)
	}
	return result, nil
}

// decodeMetrics parses a complete engine reply into checked ModelMetrics
func decodeMetrics(out []byte) (models.ModelMetrics, error) {
	var metrics models.ModelMetrics
	if err := decodeStrict(out, &metrics); err != nil {
		return models.ModelMetrics{}, malformed(err)
	}
	if err := metrics.Check(); err != nil {
		return models.ModelMetrics{}, malformed(err)
	}
	return metrics, nil
}

// decodeStrict requires exactly one JSON object in out
func decodeStrict(out []byte, v any) error {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("reply is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON object")
	}
	return nil
}

func malformed(err error) *models.EstimationError {
	return &models.EstimationError{Cause: models.CauseMalformedResponse, Err: err}
}

// outcome maps a call error to a metrics label
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var e *models.EstimationError
	if errors.As(err, &e) {
		switch e.Cause {
		case models.CauseTimeout:
			return "timeout"
		case models.CauseMalformedResponse:
			return "malformed"
		}
	}
	return "error"
}
