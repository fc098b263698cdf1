package xmodel

import (
	"context"
)

// first runs the query through db and returns the first row.
//
// It reads at most one row and returns ErrNotFound when there is none; it
// does not enforce "exactly one row". Callers add a WHERE on a unique column
// when they require at-most-one.
func first(ctx context.Context, db Executor, query string, args []any) (Row, error) {
	rows, err := db.Select(ctx, query, args, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}
