package models

import (
	"fmt"
	"math"
)

// Check verifies the interval and confidence invariants of a prediction
func (p PredictionResult) Check() error {
	for name, v := range map[string]float64{
		"estimatedPrice": p.EstimatedPrice,
		"confidence":     p.Confidence,
		"lowerBound":     p.LowerBound,
		"upperBound":     p.UpperBound,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", p.Confidence)
	}
	if p.LowerBound > p.EstimatedPrice || p.EstimatedPrice > p.UpperBound {
		return fmt.Errorf("bounds [%v, %v] do not contain estimate %v", p.LowerBound, p.UpperBound, p.EstimatedPrice)
	}
	return nil
}

// Check verifies that reported statistics are finite and non-negative where required
func (m ModelMetrics) Check() error {
	for name, v := range map[string]float64{
		"r2Score":              m.R2Score,
		"meanAbsoluteError":    m.MeanAbsoluteError,
		"rootMeanSquaredError": m.RootMeanSquaredError,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s is not finite", name)
		}
	}
	if m.MeanAbsoluteError < 0 || m.RootMeanSquaredError < 0 {
		return fmt.Errorf("error measures must be non-negative")
	}
	if m.SampleCount < 0 {
		return fmt.Errorf("sampleCount %d is negative", m.SampleCount)
	}
	return nil
}
