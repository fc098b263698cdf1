package xmodel

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Executor runs the statements generated from a Schema. *Pool implements it;
// tests and wrappers may provide their own.
//
// Select returns at most limit rows when limit > 0. Execute returns the
// number of affected rows. Both take ? placeholders.
type Executor interface {
	Select(ctx context.Context, query string, args []any, limit int) ([]Row, error)
	Execute(ctx context.Context, query string, args []any) (int64, error)
}

// AnomalyReporter is implemented by executors that decide what happens when a
// write affects a number of rows other than one. A nil return means the
// anomaly was only observed. Executors without it get a warning log.
type AnomalyReporter interface {
	ReportAnomaly(ctx context.Context, a *AnomalyError) error
}

// Querier is implemented by *sqlx.Conn, *sqlx.DB and *sqlx.Tx: anything that
// can run a query returning rows.
type Querier interface {
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

// Execer is implemented by *sql.DB, *sql.Tx, *sql.Conn and their sqlx
// wrappers: anything that can run a statement that does not return rows.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ Querier  = (*sqlx.Conn)(nil)
	_ Execer   = (*sqlx.Conn)(nil)
	_ Executor = (*Pool)(nil)
)
