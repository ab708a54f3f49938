// Package suite orchestrates a benchmark run: catalog, data load,
// equivalence gate, timed sampling, aggregation and ranking.
package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/maxpert/shapebench/admin"
	"github.com/maxpert/shapebench/cfg"
	"github.com/maxpert/shapebench/common"
	"github.com/maxpert/shapebench/dataset"
	"github.com/maxpert/shapebench/db"
	"github.com/maxpert/shapebench/equivalence"
	"github.com/maxpert/shapebench/executor"
	"github.com/maxpert/shapebench/rank"
	"github.com/maxpert/shapebench/report"
	"github.com/maxpert/shapebench/stats"
	"github.com/maxpert/shapebench/variant"
)

// BenchmarkContext owns the engine session for one invocation. It must be
// closed on every exit path.
type BenchmarkContext struct {
	config  *cfg.Configuration
	runID   string
	logger  zerolog.Logger
	session *db.Session
	catalog *variant.Catalog
	exec    *executor.Executor
	status  *admin.Status
	loaded  bool
}

// Open connects to the configured engine.
func Open(ctx context.Context, c *cfg.Configuration) (*BenchmarkContext, error) {
	dialect, err := variant.ParseDialect(c.Engine.Driver)
	if err != nil {
		return nil, err
	}
	catalog, err := variant.NewCatalog(dialect)
	if err != nil {
		return nil, err
	}

	session, err := db.Open(ctx, c.Engine.Driver, c.Engine.DSN)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	bc := &BenchmarkContext{
		config:  c,
		runID:   runID,
		logger:  log.With().Str("run_id", runID).Logger(),
		session: session,
		catalog: catalog,
		exec: executor.New(session,
			executor.WithTimeout(c.QueryTimeout()),
			executor.WithWarmup(c.Benchmark.Warmup)),
		status: admin.NewStatus(runID),
	}

	bc.logger.Info().Str("engine", c.Engine.Driver).Msg("Benchmark context opened")
	return bc, nil
}

// RunID returns the unique id of this invocation.
func (bc *BenchmarkContext) RunID() string {
	return bc.runID
}

// Status returns the live progress of the run.
func (bc *BenchmarkContext) Status() *admin.Status {
	return bc.status
}

// Close releases the engine session. It is safe to call more than once.
func (bc *BenchmarkContext) Close() error {
	if bc.session == nil {
		return nil
	}
	err := bc.session.Close()
	bc.session = nil
	bc.logger.Debug().Msg("Benchmark context closed")
	return err
}

// Variants returns the selected catalog for the benchmark filters. The
// configured baseline is always part of the selection.
func (bc *BenchmarkContext) Variants() ([]variant.QueryVariant, error) {
	params, err := bc.config.BenchmarkParams()
	if err != nil {
		return nil, err
	}
	return bc.selectVariants(params)
}

func (bc *BenchmarkContext) selectVariants(params variant.Params) ([]variant.QueryVariant, error) {
	all, err := bc.catalog.Generate(params)
	if err != nil {
		return nil, err
	}

	baseline := bc.config.Benchmark.Baseline
	if _, ok := variant.Find(all, baseline); !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownBaseline, baseline)
	}
	return variant.Select(all, bc.config.Benchmark.Variants, baseline)
}

// load creates and fills the dataset table once per context.
func (bc *BenchmarkContext) load(ctx context.Context) error {
	if bc.loaded {
		return nil
	}

	spec := dataset.Spec{
		Table:     bc.config.Dataset.Table,
		Rows:      bc.config.Dataset.Rows,
		BatchSize: bc.config.Dataset.BatchSize,
		Seed:      bc.config.Dataset.Seed,
	}
	statements, err := dataset.Statements(bc.catalog.Dialect(), spec)
	if err != nil {
		return err
	}

	bc.status.SetPhase(admin.PhaseLoad, len(statements))
	start := time.Now()
	if err := bc.exec.RunSetup(ctx, statements); err != nil {
		return err
	}

	bc.loaded = true
	bc.logger.Info().
		Str("table", spec.Table).
		Int("rows", spec.Rows).
		Dur("took", time.Since(start)).
		Msg("Dataset loaded")
	return nil
}

// Validate loads the dataset and runs the equivalence gate over the
// selected variants without timing anything.
func (bc *BenchmarkContext) Validate(ctx context.Context) ([]equivalence.Record, []string, error) {
	selected, err := bc.Variants()
	if err != nil {
		return nil, nil, err
	}
	if err := bc.load(ctx); err != nil {
		return nil, nil, err
	}
	return bc.validate(ctx, selected)
}

func (bc *BenchmarkContext) validate(ctx context.Context, selected []variant.QueryVariant) ([]equivalence.Record, []string, error) {
	params, err := bc.config.ValidationParams()
	if err != nil {
		return nil, nil, err
	}
	all, err := bc.catalog.Generate(params)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]string, 0, len(selected))
	for _, v := range selected {
		ids = append(ids, v.ID)
	}
	variants, err := variant.Select(all, ids)
	if err != nil {
		return nil, nil, err
	}
	variants = referenceFirst(variants, bc.config.Benchmark.Baseline)

	bc.status.SetPhase(admin.PhaseValidate, len(variants))
	validator := equivalence.NewValidator(bc.catalog, bc.exec, bc.config.Validation.Tolerance)
	return validator.Check(ctx, variants)
}

// referenceFirst moves the baseline to the front so it becomes the
// equivalence reference.
func referenceFirst(variants []variant.QueryVariant, baselineID string) []variant.QueryVariant {
	out := make([]variant.QueryVariant, 0, len(variants))
	for _, v := range variants {
		if v.ID == baselineID {
			out = append(out, v)
		}
	}
	for _, v := range variants {
		if v.ID != baselineID {
			out = append(out, v)
		}
	}
	return out
}

// Run executes the whole benchmark. Configuration, setup and correctness
// failures abort before any timing; per-variant failures become warnings.
func (bc *BenchmarkContext) Run(ctx context.Context) (rep *report.BenchmarkReport, err error) {
	started := time.Now()
	defer func() {
		if err != nil {
			bc.status.Fail(err)
			bc.logger.Error().Err(err).Msg("Benchmark aborted")
		}
	}()

	selected, err := bc.Variants()
	if err != nil {
		return nil, err
	}
	if err := bc.load(ctx); err != nil {
		return nil, err
	}

	var (
		records  []equivalence.Record
		warnings []string
	)
	if bc.config.Validation.Enabled {
		records, warnings, err = bc.validate(ctx, selected)
		if err != nil {
			return nil, err
		}
	} else {
		warnings = append(warnings, "equivalence validation disabled; timings are not proven to compare the same work")
		bc.logger.Warn().Msg("Equivalence validation disabled")
	}

	all, benchWarnings, err := bc.benchmark(ctx, selected)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, benchWarnings...)

	bc.status.SetPhase(admin.PhaseReport, len(all))
	ranker := rank.Ranker{
		Statistic:        rank.Statistic(bc.config.Rank.Statistic),
		NoiseThresholdMs: bc.config.Rank.NoiseThresholdMS,
		Alpha:            bc.config.Rank.Alpha,
	}
	ranked, err := ranker.Rank(all, bc.config.Benchmark.Baseline)
	if err != nil {
		return nil, err
	}
	annotate(ranked, selected)

	if s, ok := findStats(all, bc.config.Benchmark.Baseline); ok && !s.Available {
		warnings = append(warnings, fmt.Sprintf("baseline %s is unavailable; improvements cannot be computed", s.VariantID))
	}

	params, err := bc.config.BenchmarkParams()
	if err != nil {
		return nil, err
	}
	rep = &report.BenchmarkReport{
		RunID:       bc.runID,
		BaselineID:  bc.config.Benchmark.Baseline,
		Statistic:   ranker.Statistic,
		Engine:      bc.config.Engine.Driver,
		Params:      params,
		Rows:        bc.config.Dataset.Rows,
		Iterations:  bc.config.Benchmark.Iterations,
		Warmup:      bc.config.Benchmark.Warmup,
		Fingerprint: variant.Fingerprint(selected),
		Host:        cfg.HostIdentity(),
		StartedAt:   started,
		Duration:    time.Since(started),
		Variants:    ranked,
		Validation:  records,
		Warnings:    warnings,
	}
	if bc.config.Report.ShowSQL {
		rep.SQL = make(map[string][]string, len(selected))
		for _, v := range selected {
			rep.SQL[v.ID] = v.Statements
		}
	}

	bc.status.Publish(rep)
	if winner, ok := rep.Winner(); ok {
		bc.logger.Info().
			Str("winner", winner.VariantID).
			Float64("value_ms", winner.Value).
			Float64("improvement_pct", winner.ImprovementPct).
			Msg("Benchmark complete")
	}
	return rep, nil
}

// benchmark times every variant in catalog order. A variant whose setup
// fails, or whose samples all fail, is reported unavailable.
func (bc *BenchmarkContext) benchmark(ctx context.Context, variants []variant.QueryVariant) ([]stats.VariantStatistics, []string, error) {
	bc.status.SetPhase(admin.PhaseBenchmark, len(variants))
	iterations := bc.config.Benchmark.Iterations

	var warnings []string
	out := make([]stats.VariantStatistics, 0, len(variants))
	for _, v := range variants {
		bc.status.StartVariant(v.ID)
		bc.logger.Info().Str("variant", v.ID).Int("iterations", iterations).Msg("Timing variant")

		samples, err := bc.exec.TimeMany(ctx, v, iterations)
		if err != nil {
			var setupErr *common.SetupError
			if !errors.As(err, &setupErr) {
				return nil, warnings, err
			}
			msg := fmt.Sprintf("variant %s: setup failed: %v", v.ID, setupErr)
			warnings = append(warnings, msg)
			bc.logger.Warn().Err(err).Str("variant", v.ID).Msg("Variant setup failed")
			samples = nil
		}

		s := stats.Aggregate(v.ID, samples)
		if !s.Available && s.Attempts > 0 {
			failed := &common.AllSamplesFailedError{VariantID: v.ID, Attempts: s.Attempts}
			warnings = append(warnings, failed.Error())
			bc.logger.Warn().Err(failed).Str("variant", v.ID).Msg("Variant unavailable")
		} else if s.Failures() > 0 {
			warnings = append(warnings, fmt.Sprintf("variant %s: %d of %d samples failed", v.ID, s.Failures(), s.Attempts))
		}

		out = append(out, s)
		bc.status.FinishVariant()
	}
	return out, warnings, nil
}

func annotate(ranked []rank.RankedVariant, variants []variant.QueryVariant) {
	for i := range ranked {
		if v, ok := variant.Find(variants, ranked[i].VariantID); ok {
			ranked[i].Name = v.Name
			ranked[i].Optimizations = v.Optimizations
		}
	}
}

func findStats(all []stats.VariantStatistics, id string) (stats.VariantStatistics, bool) {
	for _, s := range all {
		if s.VariantID == id {
			return s, true
		}
	}
	return stats.VariantStatistics{}, false
}
