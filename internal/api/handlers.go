package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Alias1177/HousePricer/models"
)

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// Predictor is the part of the prediction service the handlers use
type Predictor interface {
	Predict(ctx context.Context, raw map[string]any) (models.PredictionResult, error)
	GetMetrics(ctx context.Context) (models.ModelMetrics, error)
	RecentPredictions(ctx context.Context, limit int) ([]models.StoredPrediction, error)
	GetProperty(ctx context.Context, id string) (models.Property, error)
}

type errorResponse struct {
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
}

func (s *Server) handlePredict(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid JSON body"})
		return
	}

	result, err := s.predictor.Predict(c.Request.Context(), raw)
	if err != nil {
		status, body := predictFailure(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error().Err(err).Int("status", status).Msg("Prediction failed")
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, result)
}

// predictFailure maps an orchestrator error to a status and response body
func predictFailure(err error) (int, errorResponse) {
	var (
		verr *models.ValidationError
		eerr *models.EstimationError
		perr *models.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Message: verr.Error(), Field: verr.Field}
	case errors.As(err, &eerr):
		if eerr.IsTimeout() {
			return http.StatusGatewayTimeout, errorResponse{Message: eerr.Error()}
		}
		return http.StatusBadGateway, errorResponse{Message: eerr.Error()}
	case errors.As(err, &perr):
		return http.StatusInternalServerError, errorResponse{Message: "failed to store prediction", PropertyID: perr.PropertyID}
	default:
		return http.StatusInternalServerError, errorResponse{Message: "internal error"}
	}
}

func (s *Server) handleModelMetrics(c *gin.Context) {
	metrics, err := s.predictor.GetMetrics(c.Request.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Model metrics unavailable")
		c.JSON(http.StatusInternalServerError, errorResponse{Message: "Failed to retrieve model metrics"})
		return
	}
	c.JSON(http.StatusOK, metrics)
}

func (s *Server) handleRecentPredictions(c *gin.Context) {
	limit := defaultRecentLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, errorResponse{Message: "limit must be a positive integer", Field: "limit"})
			return
		}
		limit = min(n, maxRecentLimit)
	}

	predictions, err := s.predictor.RecentPredictions(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Listing recent predictions")
		c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to list predictions"})
		return
	}
	if predictions == nil {
		predictions = []models.StoredPrediction{}
	}
	c.JSON(http.StatusOK, predictions)
}

func (s *Server) handleGetProperty(c *gin.Context) {
	property, err := s.predictor.GetProperty(c.Request.Context(), c.Param("id"))
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Message: "property not found"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("property_id", c.Param("id")).Msg("Loading property")
		c.JSON(http.StatusInternalServerError, errorResponse{Message: "failed to load property"})
		return
	}
	c.JSON(http.StatusOK, property)
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
