package xmodel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cast"
)

// Query narrows FindAll. Where and OrderBy are raw SQL fragments without
// their keywords. Where may use ? with Args, or :name with Named (a struct
// or map[string]any); not both.
//
// Limit is either a row count (any integer type) or an (offset, count) pair
// given as [2]int or a two-element []int. Any other value makes FindAll fail
// with ErrInvalidLimit.
type Query struct {
	Where   string
	Args    []any
	Named   any
	OrderBy string
	Limit   any
}

// Find returns the row whose primary key equals pk, or ErrNotFound.
func (s *Schema) Find(ctx context.Context, db Executor, pk any) (*Model, error) {
	r, err := first(ctx, db, s.selectSQL+" WHERE "+s.column(s.primaryKey)+" = ?", []any{pk})
	if err != nil {
		return nil, err
	}
	return s.fromRow(r)
}

// FindAll returns every row matching q, in the database's order unless
// q.OrderBy is set.
func (s *Schema) FindAll(ctx context.Context, db Executor, q Query) ([]*Model, error) {
	query, args, err := s.buildFindAll(q)
	if err != nil {
		return nil, err
	}
	rows, err := db.Select(ctx, query, args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]*Model, 0, len(rows))
	for _, r := range rows {
		m, err := s.fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Schema) buildFindAll(q Query) (string, []any, error) {
	var b strings.Builder
	b.WriteString(s.selectSQL)
	args := append([]any(nil), q.Args...)
	if q.Where != "" {
		where := q.Where
		if q.Named != nil {
			if len(q.Args) > 0 {
				return "", nil, fmt.Errorf("xmodel: %s: query has both Args and Named", s.name)
			}
			var err error
			where, args, err = BindNamed(where, q.Named)
			if err != nil {
				return "", nil, err
			}
		}
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	if q.Limit != nil {
		lim, err := limitArgs(q.Limit)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" LIMIT ")
		b.WriteString(placeholders(len(lim)))
		args = append(args, lim...)
	}
	return b.String(), args, nil
}

// limitArgs turns a Limit value into one (count) or two (offset, count)
// arguments.
func limitArgs(v any) ([]any, error) {
	switch l := v.(type) {
	case int:
		return []any{l}, nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return []any{l}, nil
	case [2]int:
		return []any{l[0], l[1]}, nil
	case []int:
		if len(l) == 2 {
			return []any{l[0], l[1]}, nil
		}
	}
	return nil, fmt.Errorf("%w: %v (%T)", ErrInvalidLimit, v, v)
}

// FindNumber evaluates a single expression, typically an aggregate such as
// count(id), over the rows matching where. It returns ErrNotFound when the
// query yields no row.
//
// Drivers that send numbers as text (MySQL without arguments) are decoded to
// int64, or float64 when the text is not an integer, so the result type does
// not depend on the driver.
func (s *Schema) FindNumber(ctx context.Context, db Executor, expr, where string, args ...any) (any, error) {
	query := "SELECT " + expr + " _num_ FROM " + s.table
	if where != "" {
		query += " WHERE " + where
	}
	r, err := first(ctx, db, query, args)
	if err != nil {
		return nil, err
	}
	for col, v := range r {
		if strings.EqualFold(col, "_num_") {
			if b, ok := v.([]byte); ok {
				return numberFromText(string(b)), nil
			}
			return v, nil
		}
	}
	return nil, ErrNotFound
}

func numberFromText(s string) any {
	if n, err := cast.ToInt64E(s); err == nil {
		return n
	}
	if f, err := cast.ToFloat64E(s); err == nil {
		return f
	}
	return s
}

// CreateTable executes CreateTableSQL.
func (s *Schema) CreateTable(ctx context.Context, db Executor, ifNotExists bool) error {
	if _, err := db.Execute(ctx, s.CreateTableSQL(ifNotExists), nil); err != nil {
		return fmt.Errorf("creating table %s: %w", s.table, err)
	}
	return nil
}

// rowArgs materializes the ordinary fields, then the primary key.
func (m *Model) rowArgs() []any {
	args := make([]any, 0, len(m.schema.fields)+1)
	for _, name := range m.schema.fields {
		v, _ := m.ValueOrDefault(name)
		args = append(args, v)
	}
	pk, _ := m.ValueOrDefault(m.schema.primaryKey)
	return append(args, pk)
}

// Save inserts the model. Unset fields take their defaults first, and the
// defaults stay on the model. It returns the number of affected rows.
//
// A count other than one is an anomaly: with the default policy it is logged
// and Save returns a nil error; see AnomalyReporter.
func (m *Model) Save(ctx context.Context, db Executor) (int64, error) {
	return m.write(ctx, db, "insert", m.schema.insertSQL, m.rowArgs())
}

// Update writes every field of the model to the row with its primary key.
func (m *Model) Update(ctx context.Context, db Executor) (int64, error) {
	return m.write(ctx, db, "update", m.schema.updateSQL, m.rowArgs())
}

// Delete removes the row with the model's primary key.
func (m *Model) Delete(ctx context.Context, db Executor) (int64, error) {
	pk, _ := m.ValueOrDefault(m.schema.primaryKey)
	return m.write(ctx, db, "delete", m.schema.deleteSQL, []any{pk})
}

func (m *Model) write(ctx context.Context, db Executor, op, query string, args []any) (int64, error) {
	n, err := db.Execute(ctx, query, args)
	if err != nil {
		return n, err
	}
	if n == 1 {
		return n, nil
	}
	a := &AnomalyError{Op: op, Table: m.schema.table, Affected: n}
	if r, ok := db.(AnomalyReporter); ok {
		return n, r.ReportAnomaly(ctx, a)
	}
	warnAnomaly(ctx, slog.Default(), a)
	return n, nil
}
