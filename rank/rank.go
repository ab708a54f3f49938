// Package rank orders variants by latency and classifies each one against
// the baseline.
package rank

import (
	"fmt"
	"math"
	"sort"

	mstats "github.com/aclements/go-moremath/stats"
	"github.com/maxpert/shapebench/common"
	"github.com/maxpert/shapebench/stats"
)

// Statistic selects the latency used for ordering.
type Statistic string

const (
	StatisticMean Statistic = "mean"
	StatisticP50  Statistic = "p50"
)

// ParseStatistic accepts "mean" or "p50".
func ParseStatistic(s string) (Statistic, error) {
	switch Statistic(s) {
	case StatisticMean, StatisticP50:
		return Statistic(s), nil
	}
	return "", &common.ConfigError{Field: "rank.statistic", Reason: fmt.Sprintf("unknown statistic %q (want mean or p50)", s)}
}

// Verdict classifies a variant relative to the baseline.
type Verdict string

const (
	VerdictBaseline    Verdict = "baseline"
	VerdictFaster      Verdict = "faster"
	VerdictSlower      Verdict = "slower"
	VerdictTie         Verdict = "tie"
	VerdictUnavailable Verdict = "unavailable"
	VerdictUnknown     Verdict = "unknown"
)

// Defaults used when a Ranker field is left zero.
const (
	DefaultNoiseThresholdMs = 1.0
	DefaultAlpha            = 0.05
)

// RankedVariant is one row of the final ranking. Rank is 1-based for
// available variants and 0 for unavailable ones.
type RankedVariant struct {
	Rank           int                     `json:"rank"`
	VariantID      string                  `json:"variant_id"`
	Name           string                  `json:"name,omitempty"`
	Optimizations  []string                `json:"optimizations,omitempty"`
	Value          float64                 `json:"value_ms"`
	Stats          stats.VariantStatistics `json:"stats"`
	ImprovementPct float64                 `json:"improvement_pct"`
	Verdict        Verdict                 `json:"verdict"`
	PValue         float64                 `json:"p_value"`
	Significant    bool                    `json:"significant"`
}

// Ranker orders aggregated statistics. The zero value ranks by mean with
// the default noise threshold and alpha.
type Ranker struct {
	Statistic        Statistic
	NoiseThresholdMs float64
	Alpha            float64
}

// Rank orders the available variants ascending by the configured statistic
// and appends unavailable ones after them. The result is deterministic:
// equal values keep their input order.
func (r Ranker) Rank(all []stats.VariantStatistics, baselineID string) ([]RankedVariant, error) {
	statistic := r.Statistic
	if statistic == "" {
		statistic = StatisticMean
	}
	if _, err := ParseStatistic(string(statistic)); err != nil {
		return nil, err
	}
	noise := r.NoiseThresholdMs
	if noise <= 0 {
		noise = DefaultNoiseThresholdMs
	}
	alpha := r.Alpha
	if alpha <= 0 {
		alpha = DefaultAlpha
	}

	seen := make(map[string]struct{}, len(all))
	var baseline *stats.VariantStatistics
	for i := range all {
		if _, dup := seen[all[i].VariantID]; dup {
			return nil, fmt.Errorf("duplicate statistics for variant %s", all[i].VariantID)
		}
		seen[all[i].VariantID] = struct{}{}
		if all[i].VariantID == baselineID {
			baseline = &all[i]
		}
	}
	if baseline == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownBaseline, baselineID)
	}

	var available, unavailable []RankedVariant
	for _, s := range all {
		rv := RankedVariant{VariantID: s.VariantID, Stats: s, PValue: 1}
		if !s.Available {
			rv.Verdict = VerdictUnavailable
			unavailable = append(unavailable, rv)
			continue
		}
		rv.Value = valueOf(s, statistic)
		available = append(available, rv)
	}

	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Value < available[j].Value
	})

	for i := range available {
		rv := &available[i]
		rv.Rank = i + 1
		classify(rv, baseline, statistic, noise, alpha)
	}

	return append(available, unavailable...), nil
}

func classify(rv *RankedVariant, baseline *stats.VariantStatistics, statistic Statistic, noise, alpha float64) {
	if rv.VariantID == baseline.VariantID {
		rv.Verdict = VerdictBaseline
		return
	}
	if !baseline.Available {
		rv.Verdict = VerdictUnknown
		return
	}

	b := valueOf(*baseline, statistic)
	rv.ImprovementPct = Improvement(b, rv.Value)

	switch {
	case math.Abs(b-rv.Value) < noise:
		rv.Verdict = VerdictTie
	case rv.Value < b:
		rv.Verdict = VerdictFaster
	default:
		rv.Verdict = VerdictSlower
	}

	rv.PValue = pValue(baseline.Samples, rv.Stats.Samples)
	rv.Significant = rv.PValue <= alpha
}

// Improvement returns (baseline - value) / baseline * 100, or 0 when the
// baseline is zero.
func Improvement(baseline, value float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (baseline - value) / baseline * 100
}

func valueOf(s stats.VariantStatistics, statistic Statistic) float64 {
	if statistic == StatisticP50 {
		return s.P50
	}
	return s.Mean
}

// pValue runs a two-sided Mann-Whitney U test. Samples the test cannot
// handle (too few, all identical) yield 1.
func pValue(baseline, samples []float64) float64 {
	if len(baseline) == 0 || len(samples) == 0 {
		return 1
	}
	res, err := mstats.MannWhitneyUTest(baseline, samples, mstats.LocationDiffers)
	if err != nil {
		return 1
	}
	return res.P
}
