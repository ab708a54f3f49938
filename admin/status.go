package admin

import (
	"sync"
	"time"

	"github.com/maxpert/shapebench/report"
	"github.com/maxpert/shapebench/telemetry"
)

// Phase is a stage of a benchmark run
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoad      Phase = "load"
	PhaseValidate  Phase = "validate"
	PhaseBenchmark Phase = "benchmark"
	PhaseReport    Phase = "report"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// phaseGauge maps phases to the suite_phase gauge value
var phaseGauge = map[Phase]float64{
	PhaseIdle:      0,
	PhaseLoad:      1,
	PhaseValidate:  2,
	PhaseBenchmark: 3,
	PhaseReport:    4,
	PhaseDone:      5,
	PhaseFailed:    -1,
}

// Snapshot is a point-in-time copy of the run status
type Snapshot struct {
	RunID     string    `json:"run_id"`
	Phase     Phase     `json:"phase"`
	Variant   string    `json:"variant,omitempty"`
	Completed int       `json:"completed"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// Status tracks the progress of a run. It is written by the suite and read
// concurrently by HTTP handlers.
type Status struct {
	mu     sync.RWMutex
	snap   Snapshot
	report *report.BenchmarkReport
}

func NewStatus(runID string) *Status {
	now := time.Now()
	return &Status{snap: Snapshot{RunID: runID, Phase: PhaseIdle, StartedAt: now, UpdatedAt: now}}
}

// SetPhase moves the run to phase and resets per-phase progress
func (s *Status) SetPhase(phase Phase, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Phase = phase
	s.snap.Variant = ""
	s.snap.Completed = 0
	s.snap.Total = total
	s.snap.UpdatedAt = time.Now()
	telemetry.SuitePhase.Set(phaseGauge[phase])
}

// StartVariant records the variant currently executing
func (s *Status) StartVariant(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Variant = id
	s.snap.UpdatedAt = time.Now()
}

// FinishVariant counts one completed variant
func (s *Status) FinishVariant() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Completed++
	s.snap.Variant = ""
	s.snap.UpdatedAt = time.Now()
}

// Fail marks the run failed with err
func (s *Status) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Phase = PhaseFailed
	if err != nil {
		s.snap.Error = err.Error()
	}
	s.snap.UpdatedAt = time.Now()
	telemetry.SuitePhase.Set(phaseGauge[PhaseFailed])
}

// Publish stores the final report and marks the run done
func (s *Status) Publish(r *report.BenchmarkReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.report = r
	s.snap.Phase = PhaseDone
	s.snap.Variant = ""
	s.snap.UpdatedAt = time.Now()
	telemetry.SuitePhase.Set(phaseGauge[PhaseDone])
}

// Snapshot returns a copy of the current status
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Report returns the published report, or nil
func (s *Status) Report() *report.BenchmarkReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}
