package common

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownBaseline is returned when the baseline id does not name a catalog variant.
	ErrUnknownBaseline = errors.New("baseline variant not found in catalog")

	// ErrNoVariants is returned when a selection leaves nothing to benchmark.
	ErrNoVariants = errors.New("no variants to benchmark")
)

// ConfigError is a catalog or suite configuration problem detected before
// any statement reaches the engine.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// SetupError is fatal: schema or data preparation failed and the suite
// must not touch any variant.
type SetupError struct {
	Index     int
	Statement string
	Err       error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup statement %d failed (%s): %v", e.Index, abbreviate(e.Statement, 80), e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Mismatch records one variant that disagreed with the reference value.
type Mismatch struct {
	VariantID string
	Value     float64
	Reference float64
	Err       error
}

// CorrectnessMismatchError is fatal: at least one variant computed a
// different result than the baseline, so timings would compare different work.
type CorrectnessMismatchError struct {
	ReferenceID string
	Tolerance   float64
	Mismatches  []Mismatch
}

// VariantIDs returns the offending variant ids in the order they were found.
func (e *CorrectnessMismatchError) VariantIDs() []string {
	ids := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		ids = append(ids, m.VariantID)
	}
	return ids
}

func (e *CorrectnessMismatchError) Error() string {
	parts := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		if m.Err != nil {
			parts = append(parts, fmt.Sprintf("%s (error: %v)", m.VariantID, m.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%g", m.VariantID, m.Value))
	}
	return fmt.Sprintf("variants disagree with %s (reference=%g, tolerance=%g): %s",
		e.ReferenceID, e.referenceValue(), e.Tolerance, strings.Join(parts, ", "))
}

func (e *CorrectnessMismatchError) referenceValue() float64 {
	if len(e.Mismatches) == 0 {
		return 0
	}
	return e.Mismatches[0].Reference
}

// ErrorKind classifies a failed timed sample.
type ErrorKind string

const (
	ErrorKindNone      ErrorKind = ""
	ErrorKindExecution ErrorKind = "execution"
	ErrorKindTimeout   ErrorKind = "timeout"
)

// SampleExecutionError is recoverable: one timed iteration failed and is
// excluded from statistics.
type SampleExecutionError struct {
	VariantID string
	Iteration int
	Kind      ErrorKind
	Err       error
}

func (e *SampleExecutionError) Error() string {
	return fmt.Sprintf("variant %s iteration %d: %s: %v", e.VariantID, e.Iteration, e.Kind, e.Err)
}

func (e *SampleExecutionError) Unwrap() error {
	return e.Err
}

// AllSamplesFailedError is recoverable at suite level: the variant is
// reported as unavailable and left out of the ranking.
type AllSamplesFailedError struct {
	VariantID string
	Attempts  int
}

func (e *AllSamplesFailedError) Error() string {
	return fmt.Sprintf("variant %s: all %d samples failed", e.VariantID, e.Attempts)
}

func abbreviate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
