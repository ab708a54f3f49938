package telemetry

// SampleBuckets cover embedded-engine query latencies, in seconds.
var SampleBuckets = []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

var (
	// SamplesTotal counts timed executions by variant and result (success, execution, timeout)
	SamplesTotal CounterVec = noopCounterVec{}

	// SampleDurationSeconds measures successful timed executions by variant
	SampleDurationSeconds HistogramVec = noopHistogramVec{}

	// SetupStatementsTotal counts untimed setup statements by result (success, failed)
	SetupStatementsTotal CounterVec = noopCounterVec{}

	// ValidationMismatchesTotal counts variants rejected by equivalence validation
	ValidationMismatchesTotal Counter = NoopStat{}

	// SuitePhase tracks the current phase index of the running suite
	SuitePhase Gauge = NoopStat{}
)

func InitMetrics() {
	SamplesTotal = NewCounterVec(
		"samples_total",
		"Total timed executions by variant and result",
		[]string{"variant", "result"},
	)
	SampleDurationSeconds = NewHistogramVec(
		"sample_duration_seconds",
		"Duration of successful timed executions",
		[]string{"variant"},
		SampleBuckets,
	)
	SetupStatementsTotal = NewCounterVec(
		"setup_statements_total",
		"Total untimed setup statements by result",
		[]string{"result"},
	)
	ValidationMismatchesTotal = NewCounter(
		"validation_mismatches_total",
		"Total variants that disagreed with the reference result",
	)
	SuitePhase = NewGauge(
		"suite_phase",
		"Current suite phase (0=idle 1=load 2=validate 3=benchmark 4=report 5=done)",
	)
}
