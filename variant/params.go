package variant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/maxpert/shapebench/common"
)

// Feature names a family of physical rewrites a variant may apply.
type Feature string

const (
	FeatureAnyArray      Feature = "any-array"
	FeaturePushdown      Feature = "pushdown"
	FeatureCTE           Feature = "cte"
	FeatureColumnPruning Feature = "column-pruning"
	FeatureJoin          Feature = "join"
)

// AllFeatures lists every feature in catalog order.
var AllFeatures = []Feature{
	FeatureAnyArray,
	FeaturePushdown,
	FeatureCTE,
	FeatureColumnPruning,
	FeatureJoin,
}

// DefaultTable is the table populated by the dataset loader.
const DefaultTable = "test_data"

// validIdentifier only allows alphanumeric characters and underscores,
// starting with a letter or underscore.
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidIdentifier reports whether name is safe to splice into SQL as a
// bare table or column name.
func ValidIdentifier(name string) bool {
	return validIdentifier.MatchString(name)
}

// Params parameterize the catalog. Identical Params always produce
// identical SQL text and ordering.
type Params struct {
	Table    string
	States   []string
	Years    []int
	Features []Feature
}

// ParseFeatures converts feature names, rejecting unknown ones.
func ParseFeatures(names []string) ([]Feature, error) {
	out := make([]Feature, 0, len(names))
	for _, name := range names {
		f := Feature(strings.TrimSpace(name))
		if !isKnownFeature(f) {
			return nil, &common.ConfigError{Field: "features", Reason: fmt.Sprintf("unknown feature %q", name)}
		}
		out = append(out, f)
	}
	return out, nil
}

func isKnownFeature(f Feature) bool {
	for _, known := range AllFeatures {
		if f == known {
			return true
		}
	}
	return false
}

// normalize validates p and removes duplicate filter values, keeping the
// first occurrence so the order the caller chose is preserved.
func (p Params) normalize() (Params, error) {
	out := Params{Table: p.Table}
	if out.Table == "" {
		out.Table = DefaultTable
	}
	if !validIdentifier.MatchString(out.Table) {
		return Params{}, &common.ConfigError{Field: "table", Reason: fmt.Sprintf("invalid table name %q", out.Table)}
	}

	seenStates := make(map[string]bool, len(p.States))
	for _, s := range p.States {
		if s == "" {
			return Params{}, &common.ConfigError{Field: "states", Reason: "empty filter value"}
		}
		if !seenStates[s] {
			seenStates[s] = true
			out.States = append(out.States, s)
		}
	}
	if len(out.States) == 0 {
		return Params{}, &common.ConfigError{Field: "states", Reason: "at least one filter value is required"}
	}

	seenYears := make(map[int]bool, len(p.Years))
	for _, y := range p.Years {
		if !seenYears[y] {
			seenYears[y] = true
			out.Years = append(out.Years, y)
		}
	}
	if len(out.Years) == 0 {
		return Params{}, &common.ConfigError{Field: "years", Reason: "at least one filter value is required"}
	}

	seenFeatures := make(map[Feature]bool, len(p.Features))
	for _, f := range p.Features {
		if !isKnownFeature(f) {
			return Params{}, &common.ConfigError{Field: "features", Reason: fmt.Sprintf("unknown feature %q", f)}
		}
		if !seenFeatures[f] {
			seenFeatures[f] = true
			out.Features = append(out.Features, f)
		}
	}

	return out, nil
}

// enabled reports whether f is enabled. No explicit features means all.
func (p Params) enabled(f Feature) bool {
	if len(p.Features) == 0 {
		return true
	}
	for _, e := range p.Features {
		if e == f {
			return true
		}
	}
	return false
}

func (p Params) stateValues() []any {
	out := make([]any, len(p.States))
	for i, s := range p.States {
		out[i] = s
	}
	return out
}

func (p Params) yearValues() []any {
	out := make([]any, len(p.Years))
	for i, y := range p.Years {
		out[i] = y
	}
	return out
}

func (p Params) cacheKey(d Dialect) string {
	return fmt.Sprintf("%s|%s|%q|%v|%q", d, p.Table, p.States, p.Years, p.Features)
}
