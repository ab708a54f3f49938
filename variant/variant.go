// Package variant builds the catalog of logically equivalent query
// formulations that are benchmarked against each other.
package variant

import (
	"fmt"

	"github.com/maxpert/shapebench/db"
)

// QueryVariant is one physical formulation of the catalog query.
// Variants are built once per parameterization and never mutated.
type QueryVariant struct {
	ID            string
	Name          string
	Description   string
	Optimizations []string

	// Statements run in order. All but the last are untimed setup; the
	// last one is the timed statement.
	Statements []string

	// Columns declares the output columns of the timed statement.
	Columns []string

	Extract     Extractor
	CountColumn string
}

// SetupStatements returns every statement except the timed one.
func (v QueryVariant) SetupStatements() []string {
	if len(v.Statements) == 0 {
		return nil
	}
	return v.Statements[:len(v.Statements)-1]
}

// TimedStatement returns the statement measured by the executor.
func (v QueryVariant) TimedStatement() string {
	if len(v.Statements) == 0 {
		return ""
	}
	return v.Statements[len(v.Statements)-1]
}

// HasOptimization reports whether tag is applied by the variant.
func (v QueryVariant) HasOptimization(tag string) bool {
	for _, o := range v.Optimizations {
		if o == tag {
			return true
		}
	}
	return false
}

func (v QueryVariant) clone() QueryVariant {
	out := v
	out.Optimizations = append([]string(nil), v.Optimizations...)
	out.Statements = append([]string(nil), v.Statements...)
	out.Columns = append([]string(nil), v.Columns...)
	return out
}

// ExtractMode selects how an Extractor reduces a result to one number.
type ExtractMode string

const (
	// ExtractFirstRow reads the column from the first row.
	ExtractFirstRow ExtractMode = "first-row"
	// ExtractSumRows adds the column over every row, which is independent
	// of row order.
	ExtractSumRows ExtractMode = "sum-rows"
)

// Extractor turns a variant result into the scalar compared during
// equivalence validation.
type Extractor struct {
	Column string
	Mode   ExtractMode
}

// Extract applies e to rs.
func (e Extractor) Extract(rs *db.RowSet) (float64, error) {
	if rs.Len() == 0 {
		return 0, fmt.Errorf("extract %s: empty result", e.Column)
	}

	switch e.Mode {
	case ExtractFirstRow:
		return rs.Float(0, e.Column)
	case ExtractSumRows:
		return SumColumn(rs, e.Column)
	}
	return 0, fmt.Errorf("extract %s: unknown mode %q", e.Column, e.Mode)
}

// validate checks the extractor against the declared output columns.
func (e Extractor) validate(columns []string) error {
	if e.Column == "" {
		return fmt.Errorf("extractor column is empty")
	}
	if e.Mode != ExtractFirstRow && e.Mode != ExtractSumRows {
		return fmt.Errorf("unknown extract mode %q", e.Mode)
	}
	if !containsString(columns, e.Column) {
		return fmt.Errorf("extractor column %q is not an output column %v", e.Column, columns)
	}
	return nil
}

// SumColumn adds a numeric column over every row of rs.
func SumColumn(rs *db.RowSet, column string) (float64, error) {
	var total float64
	for i := 0; i < rs.Len(); i++ {
		f, err := rs.Float(i, column)
		if err != nil {
			return 0, err
		}
		total += f
	}
	return total, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
