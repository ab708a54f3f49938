package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/maxpert/shapebench/common"
	"github.com/maxpert/shapebench/db"
	"github.com/maxpert/shapebench/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(7)
	b := NewGenerator(7)
	c := NewGenerator(8)

	same := true
	for i := 0; i < 100; i++ {
		ra, rb, rc := a.Next(), b.Next(), c.Next()
		require.Equal(t, ra, rb)
		if ra != rc {
			same = false
		}
	}
	assert.False(t, same, "different seeds should produce different rows")
}

func TestGeneratorDomains(t *testing.T) {
	g := NewGenerator(1)
	for i := 0; i < 500; i++ {
		r := g.Next()
		assert.Equal(t, int64(i+1), r.ID)
		assert.Contains(t, States, r.State)
		assert.Contains(t, Years, r.Year)
		assert.Contains(t, subtype[r.Type], r.Subtype)
		assert.GreaterOrEqual(t, r.Priority, 1)
		assert.LessOrEqual(t, r.Priority, 5)
		assert.Greater(t, r.TripMiles, 0.0)
		assert.Len(t, r.CreatedDate, 10)
	}
}

func TestStatementsBatching(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		batch     int
		wantBatch int
	}{
		{"exact batches", 100, 25, 4},
		{"partial last batch", 101, 25, 5},
		{"single batch", 10, 1000, 1},
		{"no rows", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, err := Statements(variant.DialectSQLite, Spec{Rows: tt.rows, BatchSize: tt.batch, Seed: 1})
			require.NoError(t, err)
			assert.Len(t, stmts, len(Schema(variant.DefaultTable))+tt.wantBatch)
		})
	}
}

func TestStatementsRejectsBadSpec(t *testing.T) {
	var cfgErr *common.ConfigError

	_, err := Statements(variant.DialectSQLite, Spec{Table: "trips; DROP TABLE x", Rows: 1})
	assert.True(t, errors.As(err, &cfgErr))

	_, err = Statements(variant.DialectSQLite, Spec{Rows: -1})
	assert.True(t, errors.As(err, &cfgErr))
}

func TestStatementsLoadIntoSQLite(t *testing.T) {
	ctx := context.Background()
	session, err := db.Open(ctx, db.DriverSQLite, "")
	require.NoError(t, err)
	defer session.Close()

	stmts, err := Statements(variant.DialectSQLite, Spec{Table: "trips", Rows: 250, BatchSize: 100, Seed: 3})
	require.NoError(t, err)

	for _, stmt := range stmts {
		_, err := session.Query(ctx, stmt)
		require.NoError(t, err)
	}

	rs, err := session.Query(ctx, "SELECT COUNT(*) AS n, COUNT(DISTINCT id) AS ids FROM trips")
	require.NoError(t, err)
	n, err := rs.Float(0, "n")
	require.NoError(t, err)
	ids, err := rs.Float(0, "ids")
	require.NoError(t, err)
	assert.Equal(t, 250.0, n)
	assert.Equal(t, 250.0, ids)
}

func TestStatementsDeterministic(t *testing.T) {
	a, err := Statements(variant.DialectDuckDB, Spec{Rows: 50, BatchSize: 20, Seed: 9})
	require.NoError(t, err)
	b, err := Statements(variant.DialectDuckDB, Spec{Rows: 50, BatchSize: 20, Seed: 9})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
