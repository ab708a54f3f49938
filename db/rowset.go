package db

import (
	"database/sql"
	"fmt"
)

// RowSet is a fully materialized query result. Rows keep the column order
// reported by the engine.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// ColumnIndex returns the position of column, or -1.
func (rs *RowSet) ColumnIndex(column string) int {
	if rs == nil {
		return -1
	}
	for i, c := range rs.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the raw value of column in row.
func (rs *RowSet) Value(row int, column string) (any, error) {
	idx := rs.ColumnIndex(column)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not in result (have %v)", column, rs.columnsOrNil())
	}
	if row < 0 || row >= rs.Len() {
		return nil, fmt.Errorf("row %d out of range (%d rows)", row, rs.Len())
	}
	return rs.Rows[row][idx], nil
}

// Float returns column in row coerced to float64.
func (rs *RowSet) Float(row int, column string) (float64, error) {
	v, err := rs.Value(row, column)
	if err != nil {
		return 0, err
	}
	f, err := ToFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("column %q row %d: %w", column, row, err)
	}
	return f, nil
}

// Maps converts the result to a plain array of records keyed by column name.
func (rs *RowSet) Maps() []map[string]any {
	if rs == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		m := make(map[string]any, len(rs.Columns))
		for i, c := range rs.Columns {
			m[c] = row[i]
		}
		out = append(out, m)
	}
	return out
}

func (rs *RowSet) columnsOrNil() []string {
	if rs == nil {
		return nil
	}
	return rs.Columns
}

// scanRows drains rows into a RowSet. The caller closes rows.
func scanRows(rows *sql.Rows) (*RowSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	rs := &RowSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rs.Rows = append(rs.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return rs, nil
}
