package telemetry

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/maxpert/shapebench/cfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetTelemetry(t *testing.T) {
	t.Helper()
	saved := cfg.Config
	cfg.Config = cfg.Default()
	t.Cleanup(func() {
		cfg.Config = saved
		registry = nil
		SamplesTotal = noopCounterVec{}
		SampleDurationSeconds = noopHistogramVec{}
		SetupStatementsTotal = noopCounterVec{}
		ValidationMismatchesTotal = NoopStat{}
		SuitePhase = NoopStat{}
	})
}

func TestDisabledTelemetryIsNoop(t *testing.T) {
	resetTelemetry(t)
	cfg.Config.Prometheus.Enabled = false

	InitializeTelemetry()

	assert.Nil(t, GetMetricsHandler())
	assert.IsType(t, NoopStat{}, NewCounter("unused_total", "unused"))
	assert.IsType(t, noopCounterVec{}, NewCounterVec("unused_vec_total", "unused", []string{"a"}))

	// No-op metrics accept every call.
	SamplesTotal.With("baseline", "success").Inc()
	SampleDurationSeconds.With("baseline").Observe(0.01)
	SuitePhase.Set(3)
}

func TestEnabledTelemetryServesMetrics(t *testing.T) {
	resetTelemetry(t)
	cfg.Config.Prometheus.Enabled = true
	cfg.Config.Engine.Driver = "sqlite"

	InitializeTelemetry()
	handler := GetMetricsHandler()
	require.NotNil(t, handler)

	SamplesTotal.With("any_array", "success").Add(3)
	SampleDurationSeconds.With("any_array").Observe(0.002)
	ValidationMismatchesTotal.Inc()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `shapebench_samples_total{engine="sqlite",result="success",variant="any_array"} 3`)
	assert.Contains(t, text, `shapebench_validation_mismatches_total{engine="sqlite"} 1`)
	assert.Contains(t, text, "shapebench_sample_duration_seconds_bucket")
}
