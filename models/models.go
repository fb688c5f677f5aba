package models

import (
	"encoding/json"
	"time"
)

// Property types accepted in PropertyFeatures.PropertyType
const (
	PropertyTypeSingleFamily = "single_family"
	PropertyTypeCondo        = "condo"
	PropertyTypeTownhouse    = "townhouse"
	PropertyTypeMultiFamily  = "multi_family"
)

// PropertyFeatures is the validated description of a house used as estimation input
type PropertyFeatures struct {
	Sqft         float64  `json:"sqft" validate:"gte=100,lte=100000"`
	Bedrooms     int      `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms    float64  `json:"bathrooms" validate:"gte=0,lte=50"`
	Location     string   `json:"location" validate:"min=3,max=16,location"`
	YearBuilt    *int     `json:"yearBuilt,omitempty" validate:"omitempty,gte=1800,notfuture"`
	LotSize      *float64 `json:"lotSize,omitempty" validate:"omitempty,gte=0,lte=10000000"`
	Garage       *int     `json:"garage,omitempty" validate:"omitempty,gte=0,lte=20"`
	PropertyType string   `json:"propertyType,omitempty" validate:"omitempty,oneof=single_family condo townhouse multi_family"`
}

// Property is a persisted PropertyFeatures record
type Property struct {
	ID string `json:"id"`
	PropertyFeatures
	CreatedAt time.Time `json:"createdAt"`
}

// PredictionResult is the confidence-bounded estimate produced by the estimator
type PredictionResult struct {
	EstimatedPrice float64 `json:"estimatedPrice"`
	Confidence     float64 `json:"confidence"`
	LowerBound     float64 `json:"lowerBound"`
	UpperBound     float64 `json:"upperBound"`
}

// NewPrediction is the input for Storage.CreatePrediction
type NewPrediction struct {
	PropertyID string `json:"propertyId"`
	PredictionResult
}

// StoredPrediction is a persisted prediction referencing its property
type StoredPrediction struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`
	PredictionResult
	CreatedAt time.Time `json:"createdAt"`
}

// ModelMetrics holds aggregate accuracy statistics reported by the estimator.
// Keys the engine reports beyond the known ones are kept in Extra and written
// back out on marshal.
type ModelMetrics struct {
	R2Score              float64            `json:"r2Score"`
	MeanAbsoluteError    float64            `json:"meanAbsoluteError"`
	RootMeanSquaredError float64            `json:"rootMeanSquaredError"`
	SampleCount          int64              `json:"sampleCount"`
	ModelVersion         string             `json:"modelVersion,omitempty"`
	TrainedAt            string             `json:"trainedAt,omitempty"`
	FeatureImportance    map[string]float64 `json:"featureImportance,omitempty"`
	Extra                map[string]any     `json:"-"`
}

var knownMetricKeys = map[string]struct{}{
	"r2Score":              {},
	"meanAbsoluteError":    {},
	"rootMeanSquaredError": {},
	"sampleCount":          {},
	"modelVersion":         {},
	"trainedAt":            {},
	"featureImportance":    {},
}

type modelMetricsAlias ModelMetrics

// UnmarshalJSON decodes the known fields and collects the rest into Extra
func (m *ModelMetrics) UnmarshalJSON(data []byte) error {
	var known modelMetricsAlias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	for key, raw := range all {
		if _, ok := knownMetricKeys[key]; ok {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if known.Extra == nil {
			known.Extra = make(map[string]any)
		}
		known.Extra[key] = v
	}

	*m = ModelMetrics(known)
	return nil
}

// MarshalJSON writes the known fields followed by Extra
func (m ModelMetrics) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(modelMetricsAlias(m))
	if err != nil || len(m.Extra) == 0 {
		return base, err
	}

	var out map[string]any
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for key, v := range m.Extra {
		if _, ok := knownMetricKeys[key]; ok {
			continue
		}
		out[key] = v
	}
	return json.Marshal(out)
}
