package db

import (
	"database/sql"
	"regexp"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDriverName is the custom driver name with REGEXP support and
// benchmark-friendly connection pragmas.
const SQLiteDriverName = "sqlite3_shapebench"

// connectPragmas keep temporary tables and sort spills in memory so the
// timed statements measure query shape rather than disk latency.
var connectPragmas = []string{
	"PRAGMA temp_store = MEMORY",
	"PRAGMA cache_size = -65536",
}

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, pragma := range connectPragmas {
				if _, err := conn.Exec(pragma, nil); err != nil {
					return err
				}
			}
			// Usage: column REGEXP 'pattern'
			return conn.RegisterFunc("regexp", regexpMatch, true)
		},
	})
}

// regexpMatch returns 1 if text matches pattern, 0 otherwise
func regexpMatch(pattern, text string) (bool, error) {
	return regexp.MatchString(pattern, text)
}
