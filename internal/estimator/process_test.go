package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/HousePricer/models"
)

// TestHelperProcess is not a real test: it is the fake engine launched by the
// tests below, selected with ENGINE_HELPER_MODE.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	os.Exit(fakeEngine())
}

func fakeEngine() int {
	metricsMode := os.Args[len(os.Args)-1] == "--metrics"
	input, _ := io.ReadAll(os.Stdin)

	switch os.Getenv("ENGINE_HELPER_MODE") {
	case "echo":
		if metricsMode {
			state, _ := os.ReadFile(os.Getenv("ENGINE_HELPER_STATE"))
			n, _ := strconv.Atoi(string(state))
			fmt.Printf(`{"r2Score":0.9,"meanAbsoluteError":1000,"rootMeanSquaredError":1500,"sampleCount":%d}`, n)
			return 0
		}
		if path := os.Getenv("ENGINE_HELPER_STDIN"); path != "" {
			_ = os.WriteFile(path, input, 0o600)
		}
		var f models.PropertyFeatures
		if err := json.Unmarshal(input, &f); err != nil {
			fmt.Fprintln(os.Stderr, "bad input:", err)
			return 2
		}
		price := f.Sqft * 500
		fmt.Printf(`{"estimatedPrice":%g,"confidence":0.8,"lowerBound":%g,"upperBound":%g}`, price, price*0.9, price*1.1)
		return 0
	case "fixed":
		fmt.Println(`{"estimatedPrice": 950000, "confidence": 0.82, "lowerBound": 870000, "upperBound": 1030000}`)
		return 0
	case "crash":
		fmt.Print(`{"estimatedPrice":`)
		fmt.Fprintln(os.Stderr, "Traceback: FileNotFoundError: model.pkl")
		return 1
	case "silent-crash":
		return 3
	case "garbage":
		fmt.Print("Loading model... done\n{not json")
		return 0
	case "bounds":
		fmt.Print(`{"estimatedPrice":500000,"confidence":0.7,"lowerBound":520000,"upperBound":600000}`)
		return 0
	case "confidence":
		fmt.Print(`{"estimatedPrice":500000,"confidence":1.7,"lowerBound":400000,"upperBound":600000}`)
		return 0
	case "missing":
		fmt.Print(`{"estimatedPrice":500000,"confidence":0.7}`)
		return 0
	case "hang":
		if path := os.Getenv("ENGINE_HELPER_PIDFILE"); path != "" {
			_ = os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
		}
		time.Sleep(time.Minute)
		return 0
	}
	fmt.Fprintln(os.Stderr, "unknown helper mode")
	return 2
}

func helperEngine(t *testing.T, mode string, timeout time.Duration, env ...string) *ProcessEngine {
	t.Helper()
	return NewProcessEngine(ProcessConfig{
		Command: os.Args[0],
		Args:    []string{"-test.run=^TestHelperProcess$", "--"},
		Env:     append([]string{"GO_WANT_HELPER_PROCESS=1", "ENGINE_HELPER_MODE=" + mode}, env...),
		Timeout: timeout,
	})
}

var sampleFeatures = models.PropertyFeatures{Sqft: 1800, Bedrooms: 3, Bathrooms: 2, Location: "94107"}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveEngineCall(mode, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, mode+":"+outcome)
}

func TestEstimateReturnsEngineResult(t *testing.T) {
	obs := &recordingObserver{}
	engine := helperEngine(t, "fixed", 10*time.Second).WithRecorder(obs)

	result, err := engine.Estimate(context.Background(), sampleFeatures)
	require.NoError(t, err)
	assert.Equal(t, models.PredictionResult{
		EstimatedPrice: 950000,
		Confidence:     0.82,
		LowerBound:     870000,
		UpperBound:     1030000,
	}, result)
	assert.Equal(t, []string{"estimate:ok"}, obs.calls)
}

func TestEstimateWritesFeaturesUnchanged(t *testing.T) {
	stdinFile := filepath.Join(t.TempDir(), "stdin.json")
	engine := helperEngine(t, "echo", 10*time.Second, "ENGINE_HELPER_STDIN="+stdinFile)

	year := 1998
	features := sampleFeatures
	features.YearBuilt = &year

	result, err := engine.Estimate(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, 900000.0, result.EstimatedPrice)

	written, err := os.ReadFile(stdinFile)
	require.NoError(t, err)

	var received models.PropertyFeatures
	require.NoError(t, json.Unmarshal(written, &received))
	assert.Equal(t, features, received)
}

func TestEstimateEngineFailures(t *testing.T) {
	tests := []struct {
		mode      string
		wantCause string
	}{
		{mode: "crash", wantCause: "Traceback: FileNotFoundError: model.pkl"},
		{mode: "silent-crash", wantCause: "engine exited with status 3"},
		{mode: "garbage", wantCause: models.CauseMalformedResponse},
		{mode: "bounds", wantCause: models.CauseMalformedResponse},
		{mode: "confidence", wantCause: models.CauseMalformedResponse},
		{mode: "missing", wantCause: models.CauseMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			engine := helperEngine(t, tt.mode, 10*time.Second)

			_, err := engine.Estimate(context.Background(), sampleFeatures)
			require.Error(t, err)

			var estErr *models.EstimationError
			require.True(t, errors.As(err, &estErr))
			assert.Equal(t, tt.wantCause, estErr.Cause)
		})
	}
}

func TestEstimateTimeoutKillsEngine(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	obs := &recordingObserver{}
	engine := helperEngine(t, "hang", 500*time.Millisecond, "ENGINE_HELPER_PIDFILE="+pidFile).WithRecorder(obs)

	start := time.Now()
	_, err := engine.Estimate(context.Background(), sampleFeatures)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	var estErr *models.EstimationError
	require.True(t, errors.As(err, &estErr))
	assert.True(t, estErr.IsTimeout())
	assert.Equal(t, []string{"estimate:timeout"}, obs.calls)

	raw, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(string(raw))
	require.NoError(t, err)
	assertProcessGone(t, pid)
}

func TestEstimateCancelledByCaller(t *testing.T) {
	engine := helperEngine(t, "hang", 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err := engine.Estimate(ctx, sampleFeatures)
	var estErr *models.EstimationError
	require.True(t, errors.As(err, &estErr))
	assert.False(t, estErr.IsTimeout())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimateMissingBinary(t *testing.T) {
	engine := NewProcessEngine(ProcessConfig{Command: filepath.Join(t.TempDir(), "no-such-engine")})

	_, err := engine.Estimate(context.Background(), sampleFeatures)
	var estErr *models.EstimationError
	require.True(t, errors.As(err, &estErr))
	assert.Contains(t, estErr.Cause, "failed to start")
}

func TestConcurrentCallsKeepStreamsSeparate(t *testing.T) {
	engine := NewProcessEngine(ProcessConfig{
		Command:        os.Args[0],
		Args:           []string{"-test.run=^TestHelperProcess$", "--"},
		Env:            []string{"GO_WANT_HELPER_PROCESS=1", "ENGINE_HELPER_MODE=echo"},
		Timeout:        30 * time.Second,
		MaxConcurrency: 2,
	})

	const n = 8
	var wg sync.WaitGroup
	results := make([]models.PredictionResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f := sampleFeatures
			f.Sqft = float64(1000 + i*100)
			results[i], errs[i] = engine.Estimate(context.Background(), f)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, float64(1000+i*100)*500, results[i].EstimatedPrice)
	}
}

func TestFetchMetricsReadsCurrentState(t *testing.T) {
	state := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(state, []byte("100"), 0o600))
	engine := helperEngine(t, "echo", 10*time.Second, "ENGINE_HELPER_STATE="+state)

	first, err := engine.FetchMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(100), first.SampleCount)

	require.NoError(t, os.WriteFile(state, []byte("250"), 0o600))
	second, err := engine.FetchMetrics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(250), second.SampleCount)
}

func TestFetchMetricsEngineFailure(t *testing.T) {
	engine := helperEngine(t, "crash", 10*time.Second)

	_, err := engine.FetchMetrics(context.Background())
	var estErr *models.EstimationError
	require.True(t, errors.As(err, &estErr))
	assert.Contains(t, estErr.Cause, "FileNotFoundError")
}
