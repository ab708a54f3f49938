// Package equivalence proves that every variant computes the same logical
// result before any of them is timed.
package equivalence

import (
	"context"
	"fmt"
	"math"

	"github.com/maxpert/shapebench/common"
	"github.com/maxpert/shapebench/executor"
	"github.com/maxpert/shapebench/telemetry"
	"github.com/maxpert/shapebench/variant"
	"github.com/rs/zerolog/log"
)

// DefaultTolerance is the absolute difference allowed between a variant's
// extracted value and the reference value.
const DefaultTolerance = 0.01

// Record is the validation outcome of one variant. RowCount is -1 when
// the variant does not expose a count column.
type Record struct {
	VariantID       string  `json:"variant_id"`
	Name            string  `json:"name"`
	ExtractedValue  float64 `json:"extracted_value"`
	RowCount        int64   `json:"row_count"`
	MatchesBaseline bool    `json:"matches_baseline"`
	RowCountMatches bool    `json:"row_count_matches"`
	Error           string  `json:"error,omitempty"`
}

// Validator runs each variant once and compares the extracted values.
type Validator struct {
	Catalog   *variant.Catalog
	Executor  *executor.Executor
	Tolerance float64
}

func NewValidator(catalog *variant.Catalog, exec *executor.Executor, tolerance float64) *Validator {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	return &Validator{Catalog: catalog, Executor: exec, Tolerance: tolerance}
}

// Validate generates the catalog for params and checks every variant.
func (v *Validator) Validate(ctx context.Context, params variant.Params) ([]Record, []string, error) {
	variants, err := v.Catalog.Generate(params)
	if err != nil {
		return nil, nil, err
	}
	return v.Check(ctx, variants)
}

// Check runs variants in order. The first variant is the reference. Any
// variant whose value differs from the reference by more than the
// tolerance, or that fails to execute, makes Check return a
// *common.CorrectnessMismatchError naming all offenders. Row-count
// disagreements on matching values are only warnings.
func (v *Validator) Check(ctx context.Context, variants []variant.QueryVariant) ([]Record, []string, error) {
	if len(variants) == 0 {
		return nil, nil, common.ErrNoVariants
	}

	records := make([]Record, 0, len(variants))
	var (
		warnings   []string
		mismatches []common.Mismatch
		reference  Record
	)

	for i, qv := range variants {
		if err := ctx.Err(); err != nil {
			return records, warnings, err
		}

		rec, err := v.evaluate(ctx, qv)
		if i == 0 {
			if err != nil {
				records = append(records, rec)
				return records, warnings, v.mismatchError(qv.ID, []common.Mismatch{{VariantID: qv.ID, Err: err}})
			}
			rec.MatchesBaseline = true
			rec.RowCountMatches = true
			reference = rec
			records = append(records, rec)
			continue
		}

		if err != nil {
			mismatches = append(mismatches, common.Mismatch{
				VariantID: qv.ID,
				Reference: reference.ExtractedValue,
				Err:       err,
			})
			records = append(records, rec)
			continue
		}

		rec.MatchesBaseline = math.Abs(rec.ExtractedValue-reference.ExtractedValue) <= v.Tolerance
		rec.RowCountMatches = rec.RowCount < 0 || reference.RowCount < 0 || rec.RowCount == reference.RowCount

		if !rec.MatchesBaseline {
			mismatches = append(mismatches, common.Mismatch{
				VariantID: qv.ID,
				Value:     rec.ExtractedValue,
				Reference: reference.ExtractedValue,
			})
		} else if !rec.RowCountMatches {
			msg := fmt.Sprintf("variant %s row count %d differs from %s row count %d although values match",
				qv.ID, rec.RowCount, reference.VariantID, reference.RowCount)
			warnings = append(warnings, msg)
			log.Warn().Str("variant", qv.ID).Int64("row_count", rec.RowCount).Int64("reference_row_count", reference.RowCount).Msg("Row count differs")
		}
		records = append(records, rec)
	}

	if len(mismatches) > 0 {
		return records, warnings, v.mismatchError(reference.VariantID, mismatches)
	}

	log.Info().Int("variants", len(records)).Float64("reference", reference.ExtractedValue).Msg("All variants agree")
	return records, warnings, nil
}

func (v *Validator) evaluate(ctx context.Context, qv variant.QueryVariant) (Record, error) {
	rec := Record{VariantID: qv.ID, Name: qv.Name, RowCount: -1}

	rs, err := v.Executor.Run(ctx, qv)
	if err != nil {
		rec.Error = err.Error()
		return rec, err
	}

	value, err := qv.Extract.Extract(rs)
	if err != nil {
		rec.Error = err.Error()
		return rec, err
	}
	rec.ExtractedValue = value

	if qv.CountColumn != "" {
		if n, err := variant.SumColumn(rs, qv.CountColumn); err == nil {
			rec.RowCount = int64(n)
		} else {
			log.Debug().Err(err).Str("variant", qv.ID).Msg("Row count unavailable")
		}
	}

	log.Debug().Str("variant", qv.ID).Float64("value", value).Int64("row_count", rec.RowCount).Msg("Variant validated")
	return rec, nil
}

func (v *Validator) mismatchError(referenceID string, mismatches []common.Mismatch) error {
	telemetry.ValidationMismatchesTotal.Add(float64(len(mismatches)))
	err := &common.CorrectnessMismatchError{
		ReferenceID: referenceID,
		Tolerance:   v.Tolerance,
		Mismatches:  mismatches,
	}
	log.Error().Err(err).Strs("variants", err.VariantIDs()).Msg("Equivalence validation failed")
	return err
}
