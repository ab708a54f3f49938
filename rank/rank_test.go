package rank

import (
	"errors"
	"testing"

	"github.com/maxpert/shapebench/common"
	"github.com/maxpert/shapebench/executor"
	"github.com/maxpert/shapebench/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsFor(id string, values ...float64) stats.VariantStatistics {
	samples := make([]executor.Sample, 0, len(values))
	for i, v := range values {
		samples = append(samples, executor.Sample{VariantID: id, Iteration: i, ElapsedMs: v, Success: true})
	}
	return stats.Aggregate(id, samples)
}

func unavailableStats(id string, attempts int) stats.VariantStatistics {
	samples := make([]executor.Sample, attempts)
	for i := range samples {
		samples[i] = executor.Sample{VariantID: id, Iteration: i, ErrorKind: common.ErrorKindExecution}
	}
	return stats.Aggregate(id, samples)
}

func find(t *testing.T, ranked []RankedVariant, id string) RankedVariant {
	t.Helper()
	for _, rv := range ranked {
		if rv.VariantID == id {
			return rv
		}
	}
	require.Failf(t, "variant missing", "variant %s not ranked", id)
	return RankedVariant{}
}

func TestRankImprovement(t *testing.T) {
	a := statsFor("A", 10, 20, 30, 40, 50)
	b := statsFor("B", 5, 10, 15, 20, 25)

	ranked, err := Ranker{}.Rank([]stats.VariantStatistics{a, b}, "A")
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, "B", ranked[0].VariantID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.InDelta(t, 50, ranked[0].ImprovementPct, 1e-9)
	assert.Equal(t, VerdictFaster, ranked[0].Verdict)

	assert.Equal(t, "A", ranked[1].VariantID)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, 0.0, ranked[1].ImprovementPct)
	assert.Equal(t, VerdictBaseline, ranked[1].Verdict)
}

func TestRankVerdicts(t *testing.T) {
	base := statsFor("base", 10, 10, 10)
	tie := statsFor("tie", 10.5, 10.5, 10.5)
	slow := statsFor("slow", 20, 20, 20)
	fast := statsFor("fast", 2, 2, 2)

	ranked, err := Ranker{NoiseThresholdMs: 1}.Rank([]stats.VariantStatistics{base, tie, slow, fast}, "base")
	require.NoError(t, err)

	assert.Equal(t, []string{"fast", "base", "tie", "slow"}, ids(ranked))
	assert.Equal(t, VerdictFaster, find(t, ranked, "fast").Verdict)
	assert.Equal(t, VerdictTie, find(t, ranked, "tie").Verdict)
	assert.Equal(t, VerdictSlower, find(t, ranked, "slow").Verdict)
	assert.InDelta(t, -100, find(t, ranked, "slow").ImprovementPct, 1e-9)
	assert.InDelta(t, 80, find(t, ranked, "fast").ImprovementPct, 1e-9)
}

func TestRankUnavailable(t *testing.T) {
	base := statsFor("base", 10, 12, 11)
	broken := unavailableStats("broken", 5)
	other := statsFor("other", 3, 4, 5)

	ranked, err := Ranker{}.Rank([]stats.VariantStatistics{base, broken, other}, "base")
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	assert.Equal(t, []string{"other", "base", "broken"}, ids(ranked))
	rv := find(t, ranked, "broken")
	assert.Equal(t, 0, rv.Rank)
	assert.Equal(t, VerdictUnavailable, rv.Verdict)
	assert.Equal(t, 5, rv.Stats.Attempts)
}

func TestRankUnavailableBaseline(t *testing.T) {
	base := unavailableStats("base", 3)
	a := statsFor("a", 5, 6)
	b := statsFor("b", 1, 2)

	ranked, err := Ranker{}.Rank([]stats.VariantStatistics{base, a, b}, "base")
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a", "base"}, ids(ranked))
	assert.Equal(t, VerdictUnknown, find(t, ranked, "a").Verdict)
	assert.Equal(t, 0.0, find(t, ranked, "a").ImprovementPct)
	assert.Equal(t, VerdictUnavailable, find(t, ranked, "base").Verdict)
}

func TestRankStableTies(t *testing.T) {
	base := statsFor("base", 10)
	x := statsFor("x", 5)
	y := statsFor("y", 5)

	ranked, err := Ranker{}.Rank([]stats.VariantStatistics{base, y, x}, "base")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "x", "base"}, ids(ranked))
	assert.Equal(t, []int{1, 2, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
}

func TestRankByMedian(t *testing.T) {
	// mean favours a, median favours b
	a := statsFor("a", 1, 1, 1, 1, 50)
	b := statsFor("b", 2, 2, 2, 2, 2)

	byMean, err := Ranker{Statistic: StatisticMean}.Rank([]stats.VariantStatistics{a, b}, "a")
	require.NoError(t, err)
	assert.Equal(t, "b", byMean[0].VariantID)

	byP50, err := Ranker{Statistic: StatisticP50}.Rank([]stats.VariantStatistics{a, b}, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", byP50[0].VariantID)
	assert.InDelta(t, 2.0, byP50[1].Value, 1e-9)
}

func TestRankErrors(t *testing.T) {
	a := statsFor("a", 1)

	_, err := Ranker{}.Rank([]stats.VariantStatistics{a}, "missing")
	assert.True(t, errors.Is(err, common.ErrUnknownBaseline))

	_, err = Ranker{}.Rank([]stats.VariantStatistics{a, a}, "a")
	assert.Error(t, err)

	_, err = Ranker{Statistic: "p99"}.Rank([]stats.VariantStatistics{a}, "a")
	var cfgErr *common.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestSignificance(t *testing.T) {
	base := statsFor("base", 50, 51, 52, 53, 54, 55, 56, 57, 58, 59)
	fast := statsFor("fast", 10, 11, 12, 13, 14, 15, 16, 17, 18, 19)

	ranked, err := Ranker{Alpha: 0.05}.Rank([]stats.VariantStatistics{base, fast}, "base")
	require.NoError(t, err)

	rv := find(t, ranked, "fast")
	assert.Less(t, rv.PValue, 0.05)
	assert.True(t, rv.Significant)
	assert.Equal(t, 1.0, find(t, ranked, "base").PValue)
}

func TestImprovement(t *testing.T) {
	assert.Equal(t, 0.0, Improvement(0, 5))
	assert.InDelta(t, 25, Improvement(20, 15), 1e-9)
	assert.InDelta(t, -50, Improvement(10, 15), 1e-9)
}

func ids(ranked []RankedVariant) []string {
	out := make([]string, 0, len(ranked))
	for _, rv := range ranked {
		out = append(out, rv.VariantID)
	}
	return out
}
