package db

import (
	"strings"

	"github.com/maxpert/shapebench/common"
	rqlitesql "github.com/rqlite/sql"
)

// Classify determines the statement code of sql. The rqlite/sql parser
// understands SQLite syntax; DuckDB-only constructs such as list literals
// fail to parse and fall back to the leading keyword.
func Classify(sql string) common.StatementCode {
	if code := classifyFromAST(sql); code != common.StatementUnknown {
		return code
	}
	return classifyFromKeyword(sql)
}

func classifyFromAST(sql string) common.StatementCode {
	parser := rqlitesql.NewParser(strings.NewReader(sql))
	stmt, err := parser.ParseStatement()
	if err != nil {
		return common.StatementUnknown
	}

	switch stmt.(type) {
	case *rqlitesql.SelectStatement:
		return common.StatementSelect
	case *rqlitesql.InsertStatement:
		return common.StatementInsert
	case *rqlitesql.UpdateStatement:
		return common.StatementUpdate
	case *rqlitesql.DeleteStatement:
		return common.StatementDelete
	case *rqlitesql.CreateTableStatement, *rqlitesql.CreateIndexStatement,
		*rqlitesql.CreateViewStatement, *rqlitesql.DropTableStatement,
		*rqlitesql.DropIndexStatement, *rqlitesql.DropViewStatement,
		*rqlitesql.AlterTableStatement:
		return common.StatementDDL
	case *rqlitesql.BeginStatement, *rqlitesql.CommitStatement,
		*rqlitesql.RollbackStatement, *rqlitesql.SavepointStatement,
		*rqlitesql.ReleaseStatement:
		return common.StatementTransaction
	case *rqlitesql.ExplainStatement:
		return common.StatementExplain
	case *rqlitesql.AnalyzeStatement:
		return common.StatementAdmin
	}
	return common.StatementUnknown
}

var keywordCodes = map[string]common.StatementCode{
	"SELECT":     common.StatementSelect,
	"WITH":       common.StatementSelect,
	"VALUES":     common.StatementSelect,
	"FROM":       common.StatementSelect,
	"SHOW":       common.StatementSelect,
	"DESCRIBE":   common.StatementSelect,
	"SUMMARIZE":  common.StatementSelect,
	"PRAGMA":     common.StatementPragma,
	"EXPLAIN":    common.StatementExplain,
	"INSERT":     common.StatementInsert,
	"REPLACE":    common.StatementInsert,
	"UPDATE":     common.StatementUpdate,
	"DELETE":     common.StatementDelete,
	"CREATE":     common.StatementDDL,
	"DROP":       common.StatementDDL,
	"ALTER":      common.StatementDDL,
	"BEGIN":      common.StatementTransaction,
	"COMMIT":     common.StatementTransaction,
	"ROLLBACK":   common.StatementTransaction,
	"ANALYZE":    common.StatementAdmin,
	"VACUUM":     common.StatementAdmin,
	"SET":        common.StatementAdmin,
	"CHECKPOINT": common.StatementAdmin,
}

func classifyFromKeyword(sql string) common.StatementCode {
	trimmed := strings.TrimLeft(sql, " \t\r\n(")
	end := strings.IndexFunc(trimmed, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})
	if end < 0 {
		end = len(trimmed)
	}
	if code, ok := keywordCodes[strings.ToUpper(trimmed[:end])]; ok {
		return code
	}
	return common.StatementUnknown
}
