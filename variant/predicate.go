package variant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/maxpert/shapebench/common"
)

// Dialect selects how SQL text is rendered for an engine.
type Dialect string

const (
	DialectDuckDB Dialect = "duckdb"
	DialectSQLite Dialect = "sqlite"
)

// ParseDialect maps an engine driver name to its dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case DialectDuckDB, DialectSQLite:
		return Dialect(driver), nil
	}
	return "", &common.ConfigError{Field: "engine.driver", Reason: fmt.Sprintf("unsupported dialect %q", driver)}
}

// Builder returns the goqu dialect used to render statements. DuckDB
// accepts the PostgreSQL quoting and literal rules.
func (d Dialect) Builder() goqu.DialectWrapper {
	if d == DialectSQLite {
		return goqu.Dialect("sqlite3")
	}
	return goqu.Dialect("postgres")
}

// PredicateStyle is the physical form of a set-membership filter.
type PredicateStyle string

const (
	StyleInList   PredicateStyle = "in-list"
	StyleAnyArray PredicateStyle = "any-array"
)

// RenderPredicate renders "column is one of values" in the given style.
// It is pure: the same arguments always produce the same text.
//
//	duckdb in-list:    ("state" IN ('CA', 'NY'))
//	duckdb any-array:  "state" = ANY(['CA', 'NY'])
//	sqlite any-array:  `state` IN (SELECT value FROM json_each('["CA","NY"]'))
func RenderPredicate(d Dialect, column string, values []any, style PredicateStyle) (string, error) {
	ident, err := identifier(column)
	if err != nil {
		return "", err
	}
	expr, err := predicate(d, ident, values, style)
	if err != nil {
		return "", err
	}

	sql, _, err := d.Builder().Select(expr).ToSQL()
	if err != nil {
		return "", fmt.Errorf("failed to render predicate on %s: %w", column, err)
	}
	return strings.TrimPrefix(sql, "SELECT "), nil
}

func predicate(d Dialect, col exp.IdentifierExpression, values []any, style PredicateStyle) (exp.Expression, error) {
	if len(values) == 0 {
		return nil, &common.ConfigError{Field: "values", Reason: "predicate requires at least one value"}
	}

	switch style {
	case StyleInList:
		return col.In(values), nil
	case StyleAnyArray:
		return anyArray(d, col, values)
	}
	return nil, &common.ConfigError{Field: "style", Reason: fmt.Sprintf("unknown predicate style %q", style)}
}

// anyArray renders array membership. SQLite has no list type, so the
// array travels as JSON and is unnested with json_each.
func anyArray(d Dialect, col exp.IdentifierExpression, values []any) (exp.Expression, error) {
	if d == DialectSQLite {
		encoded, err := json.Marshal(values)
		if err != nil {
			return nil, fmt.Errorf("failed to encode array values: %w", err)
		}
		return goqu.L("? IN (SELECT value FROM json_each(?))", col, string(encoded)), nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	args := make([]any, 0, len(values)+1)
	args = append(args, col)
	args = append(args, values...)
	return goqu.L("? = ANY(["+placeholders+"])", args...), nil
}

// identifier parses "column" or "alias.column".
func identifier(name string) (exp.IdentifierExpression, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return nil, &common.ConfigError{Field: "column", Reason: fmt.Sprintf("invalid identifier %q", name)}
	}
	for _, part := range parts {
		if !validIdentifier.MatchString(part) {
			return nil, &common.ConfigError{Field: "column", Reason: fmt.Sprintf("invalid identifier %q", name)}
		}
	}
	if len(parts) == 2 {
		return goqu.T(parts[0]).Col(parts[1]), nil
	}
	return goqu.C(parts[0]), nil
}
