// Package api exposes the prediction service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configure a Server
type Options struct {
	Addr           string
	Limiter        *ClientLimiter
	Observer       RequestObserver
	MetricsHandler http.Handler
}

// Server routes HTTP requests to the prediction service
type Server struct {
	predictor Predictor
	engine    *gin.Engine
	addr      string
	logger    zerolog.Logger
}

// NewServer builds the router
func NewServer(predictor Predictor, opts Options) *Server {
	s := &Server{
		predictor: predictor,
		engine:    gin.New(),
		addr:      opts.Addr,
		logger:    log.With().Str("component", "http_server").Logger(),
	}

	s.engine.Use(gin.Recovery(), RequestLogger(s.logger, opts.Observer))

	s.engine.GET("/health", handleHealth)
	if opts.MetricsHandler != nil {
		s.engine.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	limited := s.engine.Group("/", RateLimit(opts.Limiter))
	for _, path := range []string{"/api/predict", "/predict"} {
		limited.POST(path, s.handlePredict)
	}
	for _, path := range []string{"/api/model-metrics", "/model-metrics"} {
		limited.GET(path, s.handleModelMetrics)
	}
	limited.GET("/api/predictions/recent", s.handleRecentPredictions)
	limited.GET("/api/properties/:id", s.handleGetProperty)

	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
