// Package executor runs variant statements against the engine and measures
// wall-clock latency of the timed statement.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/maxpert/shapebench/common"
	"github.com/maxpert/shapebench/db"
	"github.com/maxpert/shapebench/telemetry"
	"github.com/maxpert/shapebench/variant"
	"github.com/rs/zerolog/log"
)

// Sample is one timed execution. ElapsedMs is zero when Success is false.
type Sample struct {
	VariantID string           `json:"variant_id"`
	Iteration int              `json:"iteration"`
	ElapsedMs float64          `json:"elapsed_ms"`
	Success   bool             `json:"success"`
	ErrorKind common.ErrorKind `json:"error_kind,omitempty"`
	Err       error            `json:"-"`
}

// Option configures an Executor.
type Option func(*Executor)

// WithTimeout bounds every engine call: setup, warmup, timed samples and
// validation runs. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithWarmup runs the timed statement n times untimed before sampling.
func WithWarmup(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.warmup = n
		}
	}
}

// Executor serializes all engine work. Calls never overlap, so one sample
// never measures contention with another.
type Executor struct {
	mu      sync.Mutex
	querier db.Querier
	timeout time.Duration
	warmup  int
	now     func() time.Time
}

func New(q db.Querier, opts ...Option) *Executor {
	e := &Executor{querier: q, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunSetup executes statements in order, stopping at the first failure.
func (e *Executor) RunSetup(ctx context.Context, statements []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runSetup(ctx, statements)
}

func (e *Executor) runSetup(ctx context.Context, statements []string) error {
	for i, stmt := range statements {
		if _, err := e.call(ctx, stmt); err != nil {
			telemetry.SetupStatementsTotal.With("failed").Inc()
			return &common.SetupError{Index: i, Statement: stmt, Err: err}
		}
		telemetry.SetupStatementsTotal.With("success").Inc()
	}
	return nil
}

// TimeOnce times a single execution of statement. Failures are reported
// in the returned sample, never as an error.
func (e *Executor) TimeOnce(ctx context.Context, variantID string, iteration int, statement string) Sample {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.timeOnce(ctx, variantID, iteration, statement)
}

// callContext derives the per-call context. The returned cancel must be
// called once the call returns.
func (e *Executor) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return ctx, func() {}
}

// call runs one untimed statement under the per-call timeout. A timeout is
// reported as an error wrapping context.DeadlineExceeded.
func (e *Executor) call(ctx context.Context, statement string) (*db.RowSet, error) {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	rs, err := e.querier.Query(callCtx, statement)
	if err != nil {
		if classifyError(callCtx, ctx, err) == common.ErrorKindTimeout {
			return nil, fmt.Errorf("statement timed out after %s: %w", e.timeout, context.DeadlineExceeded)
		}
		return nil, err
	}
	return rs, nil
}

func (e *Executor) timeOnce(ctx context.Context, variantID string, iteration int, statement string) Sample {
	callCtx, cancel := e.callContext(ctx)
	defer cancel()

	start := e.now()
	_, err := e.querier.Query(callCtx, statement)
	elapsed := e.now().Sub(start)

	sample := Sample{VariantID: variantID, Iteration: iteration}
	if err != nil {
		sample.ErrorKind = classifyError(callCtx, ctx, err)
		sample.Err = &common.SampleExecutionError{
			VariantID: variantID,
			Iteration: iteration,
			Kind:      sample.ErrorKind,
			Err:       err,
		}
		telemetry.SamplesTotal.With(variantID, string(sample.ErrorKind)).Inc()
		log.Warn().
			Err(err).
			Str("variant", variantID).
			Int("iteration", iteration).
			Str("kind", string(sample.ErrorKind)).
			Msg("Sample failed")
		return sample
	}

	sample.Success = true
	sample.ElapsedMs = float64(elapsed) / float64(time.Millisecond)
	telemetry.SamplesTotal.With(variantID, "success").Inc()
	telemetry.SampleDurationSeconds.With(variantID).Observe(elapsed.Seconds())
	return sample
}

// TimeMany runs the setup statements of v once, then warmup untimed
// executions, then n strictly sequential timed samples. A setup failure is
// returned as an error; sample failures are recorded in the samples.
func (e *Executor) TimeMany(ctx context.Context, v variant.QueryVariant, n int) ([]Sample, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.runSetup(ctx, v.SetupStatements()); err != nil {
		return nil, err
	}

	timed := v.TimedStatement()
	for i := 0; i < e.warmup; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := e.call(ctx, timed); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				log.Warn().Err(err).Str("variant", v.ID).Int("warmup", i).Msg("Warmup timed out, skipping to sampling")
				break
			}
			log.Debug().Err(err).Str("variant", v.ID).Int("warmup", i).Msg("Warmup execution failed")
		}
	}

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		samples = append(samples, e.timeOnce(ctx, v.ID, i, timed))
	}

	log.Debug().Str("variant", v.ID).Int("samples", len(samples)).Msg("Variant timed")
	return samples, nil
}

// Run executes the full statement sequence of v once and returns the
// result of the timed statement. Every statement is bounded by the
// per-call timeout.
func (e *Executor) Run(ctx context.Context, v variant.QueryVariant) (*db.RowSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.runSetup(ctx, v.SetupStatements()); err != nil {
		return nil, err
	}
	return e.call(ctx, v.TimedStatement())
}

// classifyError maps a failed call to an error kind. A deadline hit by the
// per-call timeout is a timeout; cancellation of the parent is not.
func classifyError(callCtx, parent context.Context, err error) common.ErrorKind {
	if parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return common.ErrorKindTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return common.ErrorKindTimeout
	}
	return common.ErrorKindExecution
}
