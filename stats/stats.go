// Package stats summarizes the timed samples of a variant.
package stats

import (
	"math"
	"sort"

	mstats "github.com/aclements/go-moremath/stats"
	"github.com/maxpert/shapebench/executor"
)

// VariantStatistics summarizes the successful samples of one variant.
// All latencies are in milliseconds.
type VariantStatistics struct {
	VariantID   string    `json:"variant_id"`
	SampleCount int       `json:"sample_count"`
	Attempts    int       `json:"attempts"`
	Mean        float64   `json:"mean_ms"`
	Min         float64   `json:"min_ms"`
	Max         float64   `json:"max_ms"`
	Stddev      float64   `json:"stddev_ms"`
	P50         float64   `json:"p50_ms"`
	P75         float64   `json:"p75_ms"`
	P90         float64   `json:"p90_ms"`
	Available   bool      `json:"available"`
	Samples     []float64 `json:"-"`
}

// Failures returns the number of samples that did not succeed.
func (s VariantStatistics) Failures() int {
	return s.Attempts - s.SampleCount
}

// Aggregate computes statistics over the successful samples. Failed samples
// count towards Attempts only. samples is not modified.
func Aggregate(variantID string, samples []executor.Sample) VariantStatistics {
	out := VariantStatistics{VariantID: variantID, Attempts: len(samples)}

	values := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.Success {
			values = append(values, s.ElapsedMs)
		}
	}
	if len(values) == 0 {
		return out
	}

	out.SampleCount = len(values)
	out.Available = true
	out.Samples = values
	out.Mean = mstats.Mean(values)
	out.Min, out.Max = mstats.Bounds(values)
	out.Stddev = populationStddev(values, out.Mean)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	out.P50 = Percentile(sorted, 50)
	out.P75 = Percentile(sorted, 75)
	out.P90 = Percentile(sorted, 90)
	return out
}

// Percentile returns the p-th percentile of sorted using linear
// interpolation between closest ranks. sorted must be ascending. A NaN p
// yields NaN.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if math.IsNaN(p) {
		return math.NaN()
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}

	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func populationStddev(values []float64, mean float64) float64 {
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}
