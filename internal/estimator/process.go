package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/Alias1177/HousePricer/models"
)

// ProcessConfig describes how to launch the engine
type ProcessConfig struct {
	// Command is the interpreter or binary, e.g. "python3"
	Command string
	// Args precede any mode flag, e.g. the script path
	Args []string
	// MetricsFlag switches the engine into metrics mode
	MetricsFlag string
	// Dir is the working directory; empty means the current one
	Dir string
	// Env is appended to the inherited environment
	Env []string
	// Timeout bounds a whole call, including time spent waiting for a slot
	Timeout time.Duration
	// MaxConcurrency caps simultaneously running engine processes
	MaxConcurrency int
	// WaitDelay bounds how long output pipes are drained after the engine is
	// killed or exits; descendants still holding them are cut off
	WaitDelay time.Duration
}

// ProcessEngine runs the estimator as a child process per call
type ProcessEngine struct {
	cfg      ProcessConfig
	slots    *semaphore.Weighted
	recorder Recorder
	logger   zerolog.Logger
}

// NewProcessEngine creates a ProcessEngine, filling in defaults
func NewProcessEngine(cfg ProcessConfig) *ProcessEngine {
	if cfg.MetricsFlag == "" {
		cfg.MetricsFlag = "--metrics"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = 2 * time.Second
	}

	return &ProcessEngine{
		cfg:      cfg,
		slots:    semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		recorder: nopRecorder{},
		logger:   log.With().Str("component", "process_engine").Logger(),
	}
}

// WithRecorder attaches a call observer
func (e *ProcessEngine) WithRecorder(r Recorder) *ProcessEngine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// Estimate writes features to the engine's stdin and decodes its reply
func (e *ProcessEngine) Estimate(ctx context.Context, features models.PropertyFeatures) (models.PredictionResult, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return models.PredictionResult{}, fmt.Errorf("encoding features: %w", err)
	}

	start := time.Now()
	out, err := e.run(ctx, ModeEstimate, e.cfg.Args, payload)
	var result models.PredictionResult
	if err == nil {
		result, err = decodePrediction(out)
	}
	e.finish(ModeEstimate, start, err)
	return result, err
}

// FetchMetrics runs the engine in metrics mode with no input
func (e *ProcessEngine) FetchMetrics(ctx context.Context) (models.ModelMetrics, error) {
	args := append(append([]string{}, e.cfg.Args...), e.cfg.MetricsFlag)

	start := time.Now()
	out, err := e.run(ctx, ModeMetrics, args, nil)
	var metrics models.ModelMetrics
	if err == nil {
		metrics, err = decodeMetrics(out)
	}
	e.finish(ModeMetrics, start, err)
	return metrics, err
}

func (e *ProcessEngine) finish(mode string, start time.Time, err error) {
	elapsed := time.Since(start)
	e.recorder.ObserveEngineCall(mode, outcome(err), elapsed)

	if err != nil {
		e.logger.Warn().Err(err).Str("mode", mode).Dur("elapsed", elapsed).Msg("Engine call failed")
		return
	}
	e.logger.Debug().Str("mode", mode).Dur("elapsed", elapsed).Msg("Engine call finished")
}

// run starts one engine process and returns its stdout once it exits with status 0
func (e *ProcessEngine) run(ctx context.Context, mode string, args []string, input []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	if err := e.slots.Acquire(ctx, 1); err != nil {
		return nil, interrupted(ctx)
	}
	defer e.slots.Release(1)

	cmd := exec.CommandContext(ctx, e.cfg.Command, args...)
	cmd.Dir = e.cfg.Dir
	cmd.Env = append(os.Environ(), e.cfg.Env...)
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		killProcessGroup(cmd)
		return nil
	}
	cmd.WaitDelay = e.cfg.WaitDelay

	// A nil Stdin reads from the null device; a reader is copied and then closed
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, interrupted(ctx)
		}
		return nil, &models.EstimationError{Cause: fmt.Sprintf("engine failed to start: %v", err), Err: err}
	}

	err := cmd.Wait()
	if err != nil && ctx.Err() != nil {
		e.logger.Warn().
			Str("mode", mode).
			Int("pid", cmd.Process.Pid).
			Str("stderr", stderr.String()).
			Msg("Engine killed before completion")
		return nil, interrupted(ctx)
	}

	if errors.Is(err, exec.ErrWaitDelay) {
		// exited 0, but a descendant kept the output pipes open
		e.logger.Warn().Str("mode", mode).Int("pid", cmd.Process.Pid).Msg("Engine left output pipes open")
		err = nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, &models.EstimationError{Cause: fmt.Sprintf("engine wait failed: %v", err), Err: err}
		}
		return nil, &models.EstimationError{Cause: diagnostic(stderr.Bytes(), exitErr), Err: err}
	}

	return stdout.Bytes(), nil
}

// interrupted converts an expired or cancelled context into an EstimationError
func interrupted(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &models.EstimationError{Cause: models.CauseTimeout, Err: ctx.Err()}
	}
	return &models.EstimationError{Cause: "cancelled", Err: ctx.Err()}
}

func diagnostic(stderr []byte, exitErr *exec.ExitError) string {
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return msg
	}
	return fmt.Sprintf("engine exited with status %d", exitErr.ExitCode())
}
