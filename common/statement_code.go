// Package common provides shared types used across the codebase.
package common

// StatementCode categorizes SQL statements so the session knows whether a
// statement produces rows or only side effects.
type StatementCode int

const (
	StatementUnknown StatementCode = iota // 0 - means not yet classified
	StatementSelect
	StatementInsert
	StatementUpdate
	StatementDelete
	StatementDDL
	StatementTransaction
	StatementPragma
	StatementExplain
	StatementAdmin
)

var statementCodeNames = map[StatementCode]string{
	StatementUnknown:     "unknown",
	StatementSelect:      "select",
	StatementInsert:      "insert",
	StatementUpdate:      "update",
	StatementDelete:      "delete",
	StatementDDL:         "ddl",
	StatementTransaction: "transaction",
	StatementPragma:      "pragma",
	StatementExplain:     "explain",
	StatementAdmin:       "admin",
}

func (t StatementCode) String() string {
	if name, ok := statementCodeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ReturnsRows reports whether the statement is executed as a query.
func (t StatementCode) ReturnsRows() bool {
	switch t {
	case StatementSelect, StatementPragma, StatementExplain:
		return true
	}
	return false
}

// IsMutation returns true if the statement changes schema or data.
func (t StatementCode) IsMutation() bool {
	switch t {
	case StatementInsert, StatementUpdate, StatementDelete, StatementDDL:
		return true
	}
	return false
}
