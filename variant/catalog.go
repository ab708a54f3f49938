package variant

import (
	"fmt"
	"sort"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/maxpert/shapebench/common"
)

// BaselineID is the id of the reference variant, always first in the catalog.
const BaselineID = "baseline"

// OutputColumns are the columns every variant returns, in order.
var OutputColumns = []string{"engineering_pod", "type", "row_count", "total_miles", "total_duration"}

var (
	groupColumns  = []string{"engineering_pod", "type"}
	prunedColumns = []string{"engineering_pod", "type", "trip_miles", "trip_duration"}

	defaultExtractor = Extractor{Column: "total_miles", Mode: ExtractSumRows}
)

const (
	joinFilterTable     = "filter_states_join"
	subqueryFilterTable = "filter_states_subquery"
	catalogCacheSize    = 64
)

// definition describes how to build one variant. requires lists the
// features that must be enabled for the variant to be generated.
type definition struct {
	id          string
	name        string
	description string
	tags        []string
	requires    []Feature
	build       func(b *queryBuilder) ([]string, error)
}

var definitions = []definition{
	{
		id:          BaselineID,
		name:        "Baseline",
		description: "SELECT * subquery, IN-list filters applied outside",
		build: func(b *queryBuilder) ([]string, error) {
			return b.single(b.outerFilter(StyleInList))
		},
	},
	{
		id:          "in_pushdown",
		name:        "IN-list pushdown",
		description: "IN-list filters pushed into the subquery",
		tags:        []string{string(FeaturePushdown)},
		requires:    []Feature{FeaturePushdown},
		build: func(b *queryBuilder) ([]string, error) {
			return b.single(b.pushdown(StyleInList, false))
		},
	},
	{
		id:          "any_array",
		name:        "ANY-array",
		description: "ANY-array filters applied outside the subquery",
		tags:        []string{string(FeatureAnyArray)},
		requires:    []Feature{FeatureAnyArray},
		build: func(b *queryBuilder) ([]string, error) {
			return b.single(b.outerFilter(StyleAnyArray))
		},
	},
	{
		id:          "any_pushdown",
		name:        "ANY-array pushdown",
		description: "ANY-array filters pushed into the subquery",
		tags:        []string{string(FeatureAnyArray), string(FeaturePushdown)},
		requires:    []Feature{FeatureAnyArray, FeaturePushdown},
		build: func(b *queryBuilder) ([]string, error) {
			return b.single(b.pushdown(StyleAnyArray, false))
		},
	},
	{
		id:          "cte_pruned",
		name:        "CTE with pruning",
		description: "filtered, column-pruned CTE aggregated by the outer query",
		tags:        []string{string(FeatureCTE), string(FeaturePushdown), string(FeatureColumnPruning)},
		requires:    []Feature{FeatureCTE, FeaturePushdown, FeatureColumnPruning},
		build: func(b *queryBuilder) ([]string, error) {
			return b.single(b.cte())
		},
	},
	{
		id:          "subquery_pruned",
		name:        "Subquery with pruning",
		description: "filtered, column-pruned nested subquery",
		tags:        []string{string(FeaturePushdown), string(FeatureColumnPruning)},
		requires:    []Feature{FeaturePushdown, FeatureColumnPruning},
		build: func(b *queryBuilder) ([]string, error) {
			return b.single(b.pushdown(StyleInList, true))
		},
	},
	{
		id:          "join_temp",
		name:        "Temp-table join",
		description: "state filter loaded into a temp table and joined",
		tags:        []string{string(FeatureJoin), "temp-table"},
		requires:    []Feature{FeatureJoin},
		build: func(b *queryBuilder) ([]string, error) {
			return b.tempTable(joinFilterTable, b.joinFilter)
		},
	},
	{
		id:          "subquery_temp",
		name:        "Temp-table subquery",
		description: "state filter loaded into a temp table and probed with IN (SELECT ...)",
		tags:        []string{"subquery", "temp-table"},
		requires:    []Feature{FeatureJoin},
		build: func(b *queryBuilder) ([]string, error) {
			return b.tempTable(subqueryFilterTable, b.subqueryFilter)
		},
	},
}

// IDs returns the id of every variant the catalog can generate, in
// catalog order.
func IDs() []string {
	ids := make([]string, 0, len(definitions))
	for _, def := range definitions {
		ids = append(ids, def.id)
	}
	return ids
}

// Catalog generates query variants for one dialect. Generation is pure;
// results are memoised per parameterization.
type Catalog struct {
	dialect Dialect
	cache   *lru.Cache[string, []QueryVariant]
}

// NewCatalog creates a catalog rendering SQL for d.
func NewCatalog(d Dialect) (*Catalog, error) {
	if _, err := ParseDialect(string(d)); err != nil {
		return nil, err
	}
	cache, err := lru.New[string, []QueryVariant](catalogCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}
	return &Catalog{dialect: d, cache: cache}, nil
}

// Dialect returns the dialect SQL is rendered for.
func (c *Catalog) Dialect() Dialect {
	return c.dialect
}

// Generate returns the ordered variants for p. The first variant is the
// baseline. Malformed parameters fail here, before anything executes.
func (c *Catalog) Generate(p Params) ([]QueryVariant, error) {
	params, err := p.normalize()
	if err != nil {
		return nil, err
	}

	key := params.cacheKey(c.dialect)
	if cached, ok := c.cache.Get(key); ok {
		return cloneAll(cached), nil
	}

	variants, err := c.build(params)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, variants)

	log.Debug().
		Str("dialect", string(c.dialect)).
		Int("variants", len(variants)).
		Str("fingerprint", Fingerprint(variants)).
		Msg("Catalog generated")

	return cloneAll(variants), nil
}

func (c *Catalog) build(params Params) ([]QueryVariant, error) {
	b := &queryBuilder{dialect: c.dialect, params: params}
	seen := make(map[string]bool, len(definitions))
	variants := make([]QueryVariant, 0, len(definitions))

	for _, def := range definitions {
		if !params.enabledAll(def.requires) {
			continue
		}
		if seen[def.id] {
			return nil, &common.ConfigError{Field: "variants", Reason: fmt.Sprintf("duplicate variant id %q", def.id)}
		}
		seen[def.id] = true

		statements, err := def.build(b)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", def.id, err)
		}

		tags := append([]string{}, def.tags...)
		sort.Strings(tags)

		v := QueryVariant{
			ID:            def.id,
			Name:          def.name,
			Description:   def.description,
			Optimizations: tags,
			Statements:    statements,
			Columns:       append([]string(nil), OutputColumns...),
			Extract:       defaultExtractor,
			CountColumn:   "row_count",
		}
		if err := validateVariant(v); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}

	return variants, nil
}

func validateVariant(v QueryVariant) error {
	if len(v.Statements) == 0 {
		return &common.ConfigError{Field: v.ID, Reason: "variant has no statements"}
	}
	if err := v.Extract.validate(v.Columns); err != nil {
		return &common.ConfigError{Field: v.ID, Reason: err.Error()}
	}
	if v.CountColumn != "" && !containsString(v.Columns, v.CountColumn) {
		return &common.ConfigError{Field: v.ID, Reason: fmt.Sprintf("count column %q is not an output column", v.CountColumn)}
	}
	return nil
}

func (p Params) enabledAll(features []Feature) bool {
	for _, f := range features {
		if !p.enabled(f) {
			return false
		}
	}
	return true
}

func cloneAll(variants []QueryVariant) []QueryVariant {
	out := make([]QueryVariant, len(variants))
	for i, v := range variants {
		out[i] = v.clone()
	}
	return out
}

// queryBuilder renders the shared logical query in different physical
// shapes.
type queryBuilder struct {
	dialect Dialect
	params  Params
}

func (b *queryBuilder) single(ds *goqu.SelectDataset, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	sql, _, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}
	return []string{sql}, nil
}

// filters returns the state and year predicates. qualifier prefixes the
// column names when non-empty.
func (b *queryBuilder) filters(style PredicateStyle, qualifier string) ([]exp.Expression, error) {
	state, err := predicate(b.dialect, column(qualifier, "state"), b.params.stateValues(), style)
	if err != nil {
		return nil, err
	}
	year, err := b.yearFilter(style, qualifier)
	if err != nil {
		return nil, err
	}
	return []exp.Expression{state, year}, nil
}

func (b *queryBuilder) yearFilter(style PredicateStyle, qualifier string) (exp.Expression, error) {
	return predicate(b.dialect, column(qualifier, "year"), b.params.yearValues(), style)
}

// aggregate applies the shared projection, grouping and ordering.
func (b *queryBuilder) aggregate(ds *goqu.SelectDataset, qualifier string) *goqu.SelectDataset {
	groups := make([]any, 0, len(groupColumns))
	order := make([]exp.OrderedExpression, 0, len(groupColumns))
	for _, g := range groupColumns {
		groups = append(groups, column(qualifier, g))
		order = append(order, column(qualifier, g).Asc())
	}

	selects := append([]any{}, groups...)
	selects = append(selects,
		goqu.COUNT(goqu.Star()).As("row_count"),
		goqu.SUM(column(qualifier, "trip_miles")).As("total_miles"),
		goqu.SUM(column(qualifier, "trip_duration")).As("total_duration"),
	)

	return ds.Select(selects...).GroupBy(groups...).Order(order...)
}

func (b *queryBuilder) outerFilter(style PredicateStyle) (*goqu.SelectDataset, error) {
	where, err := b.filters(style, "")
	if err != nil {
		return nil, err
	}
	inner := b.dialect.Builder().From(b.params.Table)
	outer := b.dialect.Builder().From(inner.As("t")).Where(where...)
	return b.aggregate(outer, ""), nil
}

func (b *queryBuilder) pushdown(style PredicateStyle, prune bool) (*goqu.SelectDataset, error) {
	inner, err := b.filteredSource(style, prune)
	if err != nil {
		return nil, err
	}
	return b.aggregate(b.dialect.Builder().From(inner.As("t")), ""), nil
}

func (b *queryBuilder) cte() (*goqu.SelectDataset, error) {
	inner, err := b.filteredSource(StyleInList, true)
	if err != nil {
		return nil, err
	}
	outer := b.dialect.Builder().From("filtered").With("filtered", inner)
	return b.aggregate(outer, ""), nil
}

func (b *queryBuilder) filteredSource(style PredicateStyle, prune bool) (*goqu.SelectDataset, error) {
	where, err := b.filters(style, "")
	if err != nil {
		return nil, err
	}
	ds := b.dialect.Builder().From(b.params.Table).Where(where...)
	if prune {
		cols := make([]any, len(prunedColumns))
		for i, c := range prunedColumns {
			cols[i] = c
		}
		ds = ds.Select(cols...)
	}
	return ds, nil
}

func (b *queryBuilder) joinFilter(table string) (*goqu.SelectDataset, error) {
	year, err := b.yearFilter(StyleInList, "d")
	if err != nil {
		return nil, err
	}
	ds := b.dialect.Builder().
		From(goqu.T(b.params.Table).As("d")).
		InnerJoin(goqu.T(table).As("f"), goqu.On(column("d", "state").Eq(column("f", "state")))).
		Where(year)
	return b.aggregate(ds, "d"), nil
}

func (b *queryBuilder) subqueryFilter(table string) (*goqu.SelectDataset, error) {
	year, err := b.yearFilter(StyleInList, "d")
	if err != nil {
		return nil, err
	}
	states := b.dialect.Builder().From(table).Select("state")
	ds := b.dialect.Builder().
		From(goqu.T(b.params.Table).As("d")).
		Where(column("d", "state").In(states), year)
	return b.aggregate(ds, "d"), nil
}

// tempTable loads the state filter into a temporary table and renders the
// timed query against it. The filter values are distinct, so joining the
// table keeps the row multiplicity of the baseline.
func (b *queryBuilder) tempTable(table string, timed func(string) (*goqu.SelectDataset, error)) ([]string, error) {
	rows := make([][]any, 0, len(b.params.States))
	for _, s := range b.params.States {
		rows = append(rows, goqu.Vals{s})
	}
	insert, _, err := b.dialect.Builder().Insert(table).Cols("state").Vals(rows...).ToSQL()
	if err != nil {
		return nil, err
	}

	query, err := b.single(timed(table))
	if err != nil {
		return nil, err
	}

	return []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", table),
		fmt.Sprintf("CREATE TEMP TABLE %s (state VARCHAR)", table),
		insert,
		query[0],
	}, nil
}

func column(qualifier, name string) exp.IdentifierExpression {
	if qualifier == "" {
		return goqu.C(name)
	}
	return goqu.T(qualifier).Col(name)
}
