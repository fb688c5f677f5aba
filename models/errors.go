package models

import (
	"errors"
	"fmt"
)

// Causes reported by EstimationError besides captured engine diagnostics
const (
	CauseMalformedResponse = "malformed response"
	CauseTimeout           = "timeout"
)

// ErrNotFound is returned by Storage lookups that match nothing
var ErrNotFound = errors.New("not found")

// ValidationError rejects a feature set before any engine call is made
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// EstimationError reports a failed estimator call. Cause carries the engine's
// diagnostic output, CauseTimeout or CauseMalformedResponse.
type EstimationError struct {
	Cause string
	Err   error
}

func (e *EstimationError) Error() string {
	return "estimation failed: " + e.Cause
}

func (e *EstimationError) Unwrap() error { return e.Err }

// IsTimeout reports whether the engine was killed after exceeding its deadline
func (e *EstimationError) IsTimeout() bool { return e.Cause == CauseTimeout }

// PersistenceError reports a failed storage write. PropertyID is set when the
// property was stored but its prediction was not.
type PersistenceError struct {
	Op         string
	PropertyID string
	Err        error
}

func (e *PersistenceError) Error() string {
	if e.PropertyID != "" {
		return fmt.Sprintf("%s failed (property %s stored without prediction): %v", e.Op, e.PropertyID, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// MetricsUnavailableError wraps any failure to fetch model metrics
type MetricsUnavailableError struct {
	Err error
}

func (e *MetricsUnavailableError) Error() string {
	return fmt.Sprintf("model metrics unavailable: %v", e.Err)
}

func (e *MetricsUnavailableError) Unwrap() error { return e.Err }
