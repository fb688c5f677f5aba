package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictionResultCheck(t *testing.T) {
	tests := []struct {
		name    string
		result  PredictionResult
		wantErr bool
	}{
		{
			name:   "valid interval",
			result: PredictionResult{EstimatedPrice: 950000, Confidence: 0.82, LowerBound: 870000, UpperBound: 1030000},
		},
		{
			name:   "degenerate interval",
			result: PredictionResult{EstimatedPrice: 100, Confidence: 1, LowerBound: 100, UpperBound: 100},
		},
		{
			name:    "lower above estimate",
			result:  PredictionResult{EstimatedPrice: 100, Confidence: 0.5, LowerBound: 101, UpperBound: 200},
			wantErr: true,
		},
		{
			name:    "upper below estimate",
			result:  PredictionResult{EstimatedPrice: 100, Confidence: 0.5, LowerBound: 50, UpperBound: 99},
			wantErr: true,
		},
		{
			name:    "confidence above one",
			result:  PredictionResult{EstimatedPrice: 100, Confidence: 1.2, LowerBound: 50, UpperBound: 150},
			wantErr: true,
		},
		{
			name:    "negative confidence",
			result:  PredictionResult{EstimatedPrice: 100, Confidence: -0.1, LowerBound: 50, UpperBound: 150},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Check()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestModelMetricsKeepsExtraKeys(t *testing.T) {
	raw := `{"r2Score":0.87,"meanAbsoluteError":41000,"rootMeanSquaredError":56000,"sampleCount":1460,"crossValFolds":5}`

	var m ModelMetrics
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	assert.Equal(t, 0.87, m.R2Score)
	assert.Equal(t, int64(1460), m.SampleCount)
	assert.Equal(t, float64(5), m.Extra["crossValFolds"])

	out, err := json.Marshal(m)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, float64(5), back["crossValFolds"])
	assert.Equal(t, 0.87, back["r2Score"])
}

func TestModelMetricsCheck(t *testing.T) {
	assert.NoError(t, ModelMetrics{R2Score: -0.3, SampleCount: 0}.Check())
	assert.Error(t, ModelMetrics{MeanAbsoluteError: -1}.Check())
	assert.Error(t, ModelMetrics{SampleCount: -5}.Check())
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection reset")

	perr := &PersistenceError{Op: "create prediction", PropertyID: "abc", Err: cause}
	assert.ErrorIs(t, perr, cause)
	assert.Contains(t, perr.Error(), "abc")

	eerr := &EstimationError{Cause: CauseTimeout}
	assert.True(t, eerr.IsTimeout())

	merr := &MetricsUnavailableError{Err: eerr}
	var target *EstimationError
	assert.True(t, errors.As(merr, &target))
}

func TestYearBuiltHelpers(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2027, LatestYearBuilt(now))

	year := 1990
	assert.Equal(t, 36, PropertyFeatures{YearBuilt: &year}.AgeAt(now))
	assert.Equal(t, -1, PropertyFeatures{}.AgeAt(now))

	future := 2027
	assert.Equal(t, 0, PropertyFeatures{YearBuilt: &future}.AgeAt(now))
}
