package variant

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/gobwas/glob"

	"github.com/maxpert/shapebench/common"
)

// Select keeps the variants whose id matches any of patterns. Variants
// named in keep are always retained. No patterns selects everything.
// Catalog order is preserved.
func Select(variants []QueryVariant, patterns []string, keep ...string) ([]QueryVariant, error) {
	if len(patterns) == 0 {
		return variants, nil
	}

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, &common.ConfigError{Field: "variants", Reason: fmt.Sprintf("invalid pattern %q: %v", p, err)}
		}
		globs = append(globs, g)
	}

	out := make([]QueryVariant, 0, len(variants))
	for _, v := range variants {
		if containsString(keep, v.ID) || matchesAny(globs, v.ID) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil, common.ErrNoVariants
	}
	return out, nil
}

func matchesAny(globs []glob.Glob, id string) bool {
	for _, g := range globs {
		if g.Match(id) {
			return true
		}
	}
	return false
}

// Find returns the variant with the given id.
func Find(variants []QueryVariant, id string) (QueryVariant, bool) {
	for _, v := range variants {
		if v.ID == id {
			return v, true
		}
	}
	return QueryVariant{}, false
}

// Fingerprint hashes variant ids and SQL text. Two runs with the same
// fingerprint executed exactly the same statements.
func Fingerprint(variants []QueryVariant) string {
	h := xxhash.New()
	for _, v := range variants {
		h.WriteString(v.ID)
		h.WriteString("\x00")
		for _, stmt := range v.Statements {
			h.WriteString(stmt)
			h.WriteString("\x00")
		}
		h.WriteString("\x01")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
