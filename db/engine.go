package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog/log"
)

// Supported engine drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// Open opens an embedded engine and pins a session on it. An empty dsn
// means an in-memory database.
func Open(ctx context.Context, driver, dsn string) (*Session, error) {
	var (
		db  *sql.DB
		err error
	)

	switch driver {
	case DriverDuckDB:
		db, err = OpenDuckDB(dsn)
	case DriverSQLite:
		db, err = OpenSQLite(dsn)
	default:
		return nil, fmt.Errorf("unsupported engine driver: %s", driver)
	}
	if err != nil {
		return nil, err
	}

	session, err := NewSession(ctx, driver, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("driver", driver).Str("dsn", dsn).Msg("Engine session opened")
	return session, nil
}

// OpenDuckDB opens a DuckDB database.
func OpenDuckDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	return db, nil
}

// OpenSQLite opens a SQLite database through the custom driver. The pool
// is capped at one connection so an in-memory database is never split
// across connections.
func OpenSQLite(dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}
