package estimator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Alias1177/HousePricer/models"
)

func TestDecodePrediction(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantErr bool
	}{
		{name: "valid", out: `{"estimatedPrice":1,"confidence":0,"lowerBound":1,"upperBound":1}`},
		{name: "surrounding whitespace", out: "\n  {\"estimatedPrice\":2,\"confidence\":1,\"lowerBound\":1,\"upperBound\":3}\n"},
		{name: "empty", out: "", wantErr: true},
		{name: "array", out: `[1,2,3]`, wantErr: true},
		{name: "two documents", out: `{"estimatedPrice":1,"confidence":0,"lowerBound":1,"upperBound":1}{}`, wantErr: true},
		{name: "truncated", out: `{"estimatedPrice":1,"confidence":0,`, wantErr: true},
		{name: "string price", out: `{"estimatedPrice":"1","confidence":0,"lowerBound":1,"upperBound":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePrediction([]byte(tt.out))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var estErr *models.EstimationError
			if assert.True(t, errors.As(err, &estErr)) {
				assert.Equal(t, models.CauseMalformedResponse, estErr.Cause)
			}
		})
	}
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "timeout", outcome(&models.EstimationError{Cause: models.CauseTimeout}))
	assert.Equal(t, "malformed", outcome(malformed(errors.New("x"))))
	assert.Equal(t, "error", outcome(&models.EstimationError{Cause: "Traceback"}))
}
