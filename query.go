package xmodel

import (
	"context"
)

// Select runs a query on a pooled connection and returns its rows as
// column-keyed maps. When limit > 0 at most limit rows are read and the rest
// are discarded.
//
// The query uses ? placeholders; they are rewritten to the driver's native
// style first. The statement and its arguments are logged before execution
// and the row count after. Driver errors are returned unchanged and the
// connection is released on every path.
//
// Example:
//
//	rows, err := pool.Select(ctx, `SELECT id, email FROM users WHERE admin = ?`, []any{true}, 0)
//	if err != nil {
//	    return err
//	}
//	for _, r := range rows {
//	    fmt.Println(r["id"], r["email"])
//	}
func (p *Pool) Select(ctx context.Context, query string, args []any, limit int) (out []Row, err error) {
	err = p.With(ctx, func(c *Conn) error {
		p.logSQL(ctx, query, args)
		out, err = selectRows(ctx, c.conn, rewritePlaceholders(query, p.ph), args, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "xmodel: rows returned", "count", len(out))
	return out, nil
}

func selectRows(ctx context.Context, q Querier, query string, args []any, limit int) (out []Row, err error) {
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	// Propagate rows.Close() error if nothing else failed.
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for rows.Next() {
		r := make(map[string]any)
		if err := rows.MapScan(r); err != nil {
			return nil, err
		}
		out = append(out, Row(r))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	if ne := rows.Err(); ne != nil {
		return nil, ne
	}
	return out, nil
}

func (p *Pool) logSQL(ctx context.Context, query string, args []any) {
	p.logger.InfoContext(ctx, "xmodel: SQL", "sql", query, "args", args)
}
