package xmodel

import (
	"context"
)

// Execute runs a statement that does not return rows (INSERT, UPDATE, DELETE,
// DDL) on a pooled connection and returns the number of affected rows.
//
// Placeholders are rewritten as in Select. A driver error is returned
// unchanged, after the connection has gone back to the pool. Execute does
// not retry.
//
// Example:
//
//	n, err := pool.Execute(ctx, `UPDATE users SET admin = ? WHERE id = ?`, []any{true, "u1"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println("rows:", n)
func (p *Pool) Execute(ctx context.Context, query string, args []any) (affected int64, err error) {
	err = p.With(ctx, func(c *Conn) error {
		p.logSQL(ctx, query, args)
		affected, err = execStmt(ctx, c.conn, rewritePlaceholders(query, p.ph), args)
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func execStmt(ctx context.Context, e Execer, query string, args []any) (int64, error) {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
