package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/maxpert/shapebench/equivalence"
	"github.com/maxpert/shapebench/rank"
	"github.com/maxpert/shapebench/stats"
	"github.com/maxpert/shapebench/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *BenchmarkReport {
	return &BenchmarkReport{
		RunID:       "run-1",
		BaselineID:  "baseline",
		Statistic:   rank.StatisticMean,
		Engine:      "duckdb",
		Params:      variant.Params{Table: "test_data", States: []string{"CA"}, Years: []int{2023}},
		Rows:        1000,
		Iterations:  5,
		Fingerprint: "00000000deadbeef",
		Host:        "bench-host",
		StartedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
		Variants: []rank.RankedVariant{
			{
				Rank: 1, VariantID: "any_pushdown", Name: "ANY-array pushdown",
				Optimizations:  []string{"any-array", "pushdown"},
				Value:          15,
				Stats:          stats.VariantStatistics{VariantID: "any_pushdown", SampleCount: 5, Attempts: 5, Mean: 15, P50: 15, Available: true},
				ImprovementPct: 50, Verdict: rank.VerdictFaster, PValue: 0.01, Significant: true,
			},
			{
				Rank: 2, VariantID: "baseline", Name: "Baseline",
				Value:   30,
				Stats:   stats.VariantStatistics{VariantID: "baseline", SampleCount: 5, Attempts: 5, Mean: 30, P50: 30, Available: true},
				Verdict: rank.VerdictBaseline, PValue: 1,
			},
			{
				VariantID: "join_temp", Name: "Temp-table join",
				Stats:   stats.VariantStatistics{VariantID: "join_temp", Attempts: 5},
				Verdict: rank.VerdictUnavailable, PValue: 1,
			},
		},
		Validation: []equivalence.Record{
			{VariantID: "baseline", Name: "Baseline", ExtractedValue: 1234.5, RowCount: 42, MatchesBaseline: true, RowCountMatches: true},
			{VariantID: "any_pushdown", Name: "ANY-array pushdown", ExtractedValue: 1234.5, RowCount: -1, MatchesBaseline: true, RowCountMatches: true},
		},
		Warnings: []string{"variant join_temp: all 5 samples failed"},
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(string(f))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, sampleReport()))
	out := buf.String()

	for _, want := range []string{
		"ANY-array pushdown", "Baseline", "Temp-table join",
		"15.00ms", "30.00ms", "+50.0%", "+0.0%",
		"faster", "baseline", "unavailable", "0/5",
		"any-array, pushdown",
		"Equivalence validation", "1234.50", "42", "n/a",
		"all 5 samples failed",
		"Fastest: ANY-array pushdown",
	} {
		assert.Contains(t, out, want)
	}
}

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "## Query Shape Benchmark")
	assert.Contains(t, out, "| Rank | Variant | Mean |")
	assert.Contains(t, out, "| 1 | ANY-array pushdown | 15.00ms |")
	assert.Contains(t, out, "| - | Temp-table join | - |")
	assert.Contains(t, out, "| Baseline | 1234.50 | 42 | match |")
	assert.Contains(t, out, "### Warnings")

	// Every table row has the same number of cells as the header.
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "| Rank") || strings.HasPrefix(line, "| 1 ") {
			assert.Equal(t, len(rankingHeaders)+1, strings.Count(line, "|"), line)
		}
	}
}

func TestMarkdownStatements(t *testing.T) {
	r := sampleReport()
	r.SQL = map[string][]string{"baseline": {"SELECT 1"}}

	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, r))
	assert.Contains(t, buf.String(), "```sql\nSELECT 1;\n```")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "baseline", decoded["baseline_id"])
	assert.Equal(t, "run-1", decoded["run_id"])

	variants, ok := decoded["variants"].([]any)
	require.True(t, ok)
	require.Len(t, variants, 3)
	first := variants[0].(map[string]any)
	assert.Equal(t, "any_pushdown", first["variant_id"])
	assert.Equal(t, 50.0, first["improvement_pct"])
}

func TestWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("xml"), sampleReport()))
	assert.Error(t, Write(&buf, FormatJSON, nil))
}

func TestWinner(t *testing.T) {
	w, ok := sampleReport().Winner()
	require.True(t, ok)
	assert.Equal(t, "any_pushdown", w.VariantID)

	_, ok = (&BenchmarkReport{}).Winner()
	assert.False(t, ok)
}

func TestConsoleValidation(t *testing.T) {
	r := sampleReport()
	r.Validation[1].MatchesBaseline = false

	var buf bytes.Buffer
	require.NoError(t, ConsoleValidation(&buf, r.Validation, []string{"row count differs"}))
	out := buf.String()

	assert.Contains(t, out, "Equivalence validation")
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "row count differs")
	assert.NotContains(t, out, "Improvement")
}
