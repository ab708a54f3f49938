package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Querier is the query-execution collaborator used by the executor.
// Implementations must be used by one caller at a time.
type Querier interface {
	Query(ctx context.Context, sql string) (*RowSet, error)
}

// Session owns a single connection to the embedded engine for the whole
// benchmark run. Temporary tables created by setup statements are visible
// to later statements because every call goes through the same connection.
type Session struct {
	driver string
	db     *sql.DB
	conn   *sql.Conn
}

// NewSession pins one connection of db for exclusive use.
func NewSession(ctx context.Context, driver string, db *sql.DB) (*Session, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return &Session{driver: driver, db: db, conn: conn}, nil
}

// Driver returns the engine name the session was opened with.
func (s *Session) Driver() string {
	return s.driver
}

// Query runs sql on the session connection. Statements that do not
// produce rows are executed and yield an empty RowSet.
func (s *Session) Query(ctx context.Context, sql string) (*RowSet, error) {
	code := Classify(sql)
	if !code.ReturnsRows() {
		if _, err := s.conn.ExecContext(ctx, sql); err != nil {
			return nil, err
		}
		return &RowSet{}, nil
	}

	rows, err := s.conn.QueryContext(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("Unable to close result set")
		}
	}()

	return scanRows(rows)
}

// Close releases the pinned connection and the underlying pool.
func (s *Session) Close() error {
	var firstErr error
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			firstErr = err
		}
		s.conn = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.db = nil
	}
	return firstErr
}
