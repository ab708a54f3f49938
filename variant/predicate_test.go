package variant

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxpert/shapebench/common"
)

func TestRenderPredicate(t *testing.T) {
	states := []any{"CA", "NY"}

	tests := []struct {
		name    string
		dialect Dialect
		column  string
		values  []any
		style   PredicateStyle
		want    string
	}{
		{"duckdb in-list", DialectDuckDB, "state", states, StyleInList, `("state" IN ('CA', 'NY'))`},
		{"duckdb any-array", DialectDuckDB, "state", states, StyleAnyArray, `"state" = ANY(['CA', 'NY'])`},
		{"duckdb integers", DialectDuckDB, "year", []any{2023, 2024}, StyleAnyArray, `"year" = ANY([2023, 2024])`},
		{"sqlite in-list", DialectSQLite, "state", states, StyleInList, "(`state` IN ('CA', 'NY'))"},
		{"sqlite any-array", DialectSQLite, "state", states, StyleAnyArray, "`state` IN (SELECT value FROM json_each('[\"CA\",\"NY\"]'))"},
		{"qualified column", DialectDuckDB, "d.state", []any{"TX"}, StyleInList, `("d"."state" IN ('TX'))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderPredicate(tt.dialect, tt.column, tt.values, tt.style)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := RenderPredicate(tt.dialect, tt.column, tt.values, tt.style)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestRenderPredicateEscapesLiterals(t *testing.T) {
	got, err := RenderPredicate(DialectDuckDB, "state", []any{"O'Hare"}, StyleInList)
	require.NoError(t, err)
	assert.Equal(t, `("state" IN ('O''Hare'))`, got)
}

func TestRenderPredicateErrors(t *testing.T) {
	tests := []struct {
		name   string
		column string
		values []any
		style  PredicateStyle
	}{
		{"empty values", "state", nil, StyleInList},
		{"injection in column", "state; DROP TABLE x", []any{"CA"}, StyleInList},
		{"too many parts", "a.b.c", []any{"CA"}, StyleInList},
		{"unknown style", "state", []any{"CA"}, PredicateStyle("between")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RenderPredicate(DialectDuckDB, tt.column, tt.values, tt.style)
			var cfgErr *common.ConfigError
			assert.True(t, errors.As(err, &cfgErr), "expected ConfigError, got %v", err)
		})
	}
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("duckdb")
	require.NoError(t, err)
	assert.Equal(t, DialectDuckDB, d)

	d, err = ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = ParseDialect("postgres")
	assert.Error(t, err)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("test_data"))
	assert.True(t, ValidIdentifier("_t1"))
	assert.False(t, ValidIdentifier("1table"))
	assert.False(t, ValidIdentifier("test-data"))
	assert.False(t, ValidIdentifier(""))
}
