// package repositories provides persistence layer implementations for the music library tables.
//
// Each repository wraps a [Querier] rather than a concrete *sql.DB so the
// ingestion engine can point the same repository types at a transaction when
// batching an artist's inserts.
package repositories

import "database/sql"

// Querier is the subset of database operations repositories need.
// Both *sql.DB and *sql.Tx satisfy it.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)
