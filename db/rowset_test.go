package db

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToFloat64(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012", 10)

	tests := []struct {
		name    string
		in      any
		want    float64
		wantErr bool
	}{
		{"float64", 1.5, 1.5, false},
		{"float32", float32(2.5), 2.5, false},
		{"int64", int64(-7), -7, false},
		{"int32", int32(7), 7, false},
		{"int8", int8(3), 3, false},
		{"uint64", uint64(9), 9, false},
		{"uint8", uint8(4), 4, false},
		{"bool", true, 1, false},
		{"big int", huge, 123456789012, false},
		{"bytes", []byte("12.25"), 12.25, false},
		{"string", "3e2", 300, false},
		{"non numeric string", "CA", 0, true},
		{"null", nil, 0, true},
		{"nil big int", (*big.Int)(nil), 0, true},
		{"unsupported", struct{}{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToFloat64(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRowSetAccessors(t *testing.T) {
	rs := &RowSet{
		Columns: []string{"pod", "total"},
		Rows: [][]any{
			{"atlas", int64(3)},
			{"borealis", []byte("4.5")},
		},
	}

	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 1, rs.ColumnIndex("total"))
	assert.Equal(t, -1, rs.ColumnIndex("missing"))

	v, err := rs.Value(0, "pod")
	require.NoError(t, err)
	assert.Equal(t, "atlas", v)

	f, err := rs.Float(1, "total")
	require.NoError(t, err)
	assert.Equal(t, 4.5, f)

	_, err = rs.Value(0, "missing")
	assert.Error(t, err)
	_, err = rs.Value(5, "pod")
	assert.Error(t, err)
	_, err = rs.Float(0, "pod")
	assert.Error(t, err)

	maps := rs.Maps()
	require.Len(t, maps, 2)
	assert.Equal(t, "borealis", maps[1]["pod"])

	var empty *RowSet
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Maps())
}

func TestSessionSQLite(t *testing.T) {
	ctx := context.Background()
	session, err := Open(ctx, DriverSQLite, "")
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, DriverSQLite, session.Driver())

	rs, err := session.Query(ctx, "CREATE TABLE trips (pod VARCHAR, miles DOUBLE)")
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())

	_, err = session.Query(ctx, "INSERT INTO trips VALUES ('atlas', 1.5), ('atlas', 2.5), ('fjord', 4)")
	require.NoError(t, err)

	// Temp tables stay visible because the session pins one connection.
	_, err = session.Query(ctx, "CREATE TEMP TABLE keep (pod VARCHAR)")
	require.NoError(t, err)
	_, err = session.Query(ctx, "INSERT INTO keep VALUES ('atlas')")
	require.NoError(t, err)

	rs, err = session.Query(ctx, "SELECT t.pod, SUM(t.miles) AS total FROM trips t JOIN keep k ON t.pod = k.pod GROUP BY t.pod")
	require.NoError(t, err)
	require.Equal(t, 1, rs.Len())
	assert.Equal(t, []string{"pod", "total"}, rs.Columns)

	total, err := rs.Float(0, "total")
	require.NoError(t, err)
	assert.Equal(t, 4.0, total)

	_, err = session.Query(ctx, "SELECT * FROM does_not_exist")
	assert.Error(t, err)

	require.NoError(t, session.Close())
	assert.NoError(t, session.Close())
}

func TestSessionCancelledContext(t *testing.T) {
	session, err := Open(context.Background(), DriverSQLite, "")
	require.NoError(t, err)
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = session.Query(ctx, "SELECT 1")
	assert.Error(t, err)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	assert.Error(t, err)
}

func TestSessionDuckDB(t *testing.T) {
	ctx := context.Background()
	session, err := Open(ctx, DriverDuckDB, "")
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Query(ctx, "CREATE TABLE trips (state VARCHAR, miles DOUBLE)")
	require.NoError(t, err)
	_, err = session.Query(ctx, "INSERT INTO trips VALUES ('CA', 1), ('NY', 2), ('TX', 4)")
	require.NoError(t, err)

	rs, err := session.Query(ctx, `SELECT COUNT(*) AS n, SUM(miles) AS total FROM trips WHERE "state" = ANY(['CA', 'TX'])`)
	require.NoError(t, err)

	n, err := rs.Float(0, "n")
	require.NoError(t, err)
	assert.Equal(t, 2.0, n)
	total, err := rs.Float(0, "total")
	require.NoError(t, err)
	assert.Equal(t, 5.0, total)
}
