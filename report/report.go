// Package report renders benchmark results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/maxpert/shapebench/equivalence"
	"github.com/maxpert/shapebench/rank"
	"github.com/maxpert/shapebench/variant"
)

// Format selects an output renderer.
type Format string

const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the accepted output formats.
var Formats = []Format{FormatTable, FormatMarkdown, FormatJSON}

// ParseFormat accepts table, markdown or json.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if Format(s) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q (want table, markdown or json)", s)
}

// BenchmarkReport is the complete outcome of one run.
type BenchmarkReport struct {
	RunID       string               `json:"run_id"`
	BaselineID  string               `json:"baseline_id"`
	Statistic   rank.Statistic       `json:"statistic"`
	Engine      string               `json:"engine"`
	Params      variant.Params       `json:"params"`
	Rows        int                  `json:"rows"`
	Iterations  int                  `json:"iterations"`
	Warmup      int                  `json:"warmup"`
	Fingerprint string               `json:"fingerprint"`
	Host        string               `json:"host"`
	StartedAt   time.Time            `json:"started_at"`
	Duration    time.Duration        `json:"duration_ns"`
	Variants    []rank.RankedVariant `json:"variants"`
	Validation  []equivalence.Record `json:"validation"`
	Warnings    []string             `json:"warnings,omitempty"`

	// SQL maps variant ids to their statements. Only filled when
	// statements are requested in the output.
	SQL map[string][]string `json:"sql,omitempty"`
}

// Winner returns the fastest available variant.
func (r *BenchmarkReport) Winner() (rank.RankedVariant, bool) {
	for _, v := range r.Variants {
		if v.Rank == 1 {
			return v, true
		}
	}
	return rank.RankedVariant{}, false
}

// Write renders r to w in the given format.
func Write(w io.Writer, format Format, r *BenchmarkReport) error {
	if r == nil {
		return fmt.Errorf("no report to write")
	}

	switch format {
	case FormatTable:
		return Console(w, r)
	case FormatMarkdown:
		return Markdown(w, r)
	case FormatJSON:
		return JSON(w, r)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// JSON writes r as indented JSON.
func JSON(w io.Writer, r *BenchmarkReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(r)
}

func formatMs(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.2fms", ms)
}

func formatPct(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}

func formatRank(rv rank.RankedVariant) string {
	if rv.Rank == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", rv.Rank)
}

func formatRowCount(n int64) string {
	if n < 0 {
		return "n/a"
	}
	return fmt.Sprintf("%d", n)
}

func formatMatch(rec equivalence.Record) string {
	switch {
	case !rec.MatchesBaseline:
		return "MISMATCH"
	case !rec.RowCountMatches:
		return "match (row count differs)"
	}
	return "match"
}

func displayName(rv rank.RankedVariant) string {
	if rv.Name == "" {
		return rv.VariantID
	}
	return rv.Name
}

// timingCells returns the latency columns, or dashes for an unavailable
// variant.
func timingCells(rv rank.RankedVariant) []string {
	if !rv.Stats.Available {
		return []string{"-", "-", "-", "-", "-", "-", "-"}
	}
	s := rv.Stats
	return []string{
		formatMs(s.Mean), formatMs(s.P50), formatMs(s.P75), formatMs(s.P90),
		formatMs(s.Min), formatMs(s.Max), formatMs(s.Stddev),
	}
}

func improvementCell(rv rank.RankedVariant) string {
	switch rv.Verdict {
	case rank.VerdictUnavailable, rank.VerdictUnknown:
		return "-"
	}
	return formatPct(rv.ImprovementPct)
}

func optimizationsCell(rv rank.RankedVariant) string {
	if len(rv.Optimizations) == 0 {
		return "-"
	}
	return strings.Join(rv.Optimizations, ", ")
}

var rankingHeaders = []string{
	"Rank", "Variant", "Mean", "P50", "P75", "P90", "Min", "Max", "Stddev",
	"Improvement", "Verdict", "Samples", "Optimizations",
}

func rankingRow(rv rank.RankedVariant) []string {
	row := []string{formatRank(rv), displayName(rv)}
	row = append(row, timingCells(rv)...)
	return append(row,
		improvementCell(rv),
		string(rv.Verdict),
		fmt.Sprintf("%d/%d", rv.Stats.SampleCount, rv.Stats.Attempts),
		optimizationsCell(rv),
	)
}

var validationHeaders = []string{"Variant", "Value", "Row Count", "Result"}

func validationRow(rec equivalence.Record) []string {
	name := rec.Name
	if name == "" {
		name = rec.VariantID
	}
	value := fmt.Sprintf("%.2f", rec.ExtractedValue)
	if rec.Error != "" {
		value = "error"
	}
	return []string{name, value, formatRowCount(rec.RowCount), formatMatch(rec)}
}
