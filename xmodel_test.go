package xmodel

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

// --- Minimal in-test driver -------------------------------------------------

// stmt records one statement seen by the test driver.
type stmt struct {
	query string
	args  []any
}

type queryHandler func(query string, args []any) (cols []string, rows [][]driver.Value, err error)
type execHandler func(query string, args []any) (affected int64, err error)

type testConnector struct {
	mu    sync.Mutex
	seen  []stmt
	query queryHandler
	exec  execHandler
}

func (c *testConnector) Connect(context.Context) (driver.Conn, error) { return &testConn{c: c}, nil }
func (c *testConnector) Driver() driver.Driver                        { return testDriver{} }

func (c *testConnector) record(query string, named []driver.NamedValue) []any {
	args := make([]any, len(named))
	for i, nv := range named {
		args[i] = nv.Value
	}
	c.mu.Lock()
	c.seen = append(c.seen, stmt{query: query, args: args})
	c.mu.Unlock()
	return args
}

func (c *testConnector) statements() []stmt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]stmt(nil), c.seen...)
}

type testDriver struct{}

func (testDriver) Open(name string) (driver.Conn, error) {
	return nil, errors.New("testDriver.Open should not be called; use sql.OpenDB with connector")
}

type testConn struct{ c *testConnector }

func (c *testConn) Prepare(string) (driver.Stmt, error) { return nil, driver.ErrSkip }
func (c *testConn) Close() error                        { return nil }
func (c *testConn) Begin() (driver.Tx, error)           { return nil, driver.ErrSkip }

func (c *testConn) QueryContext(ctx context.Context, query string, named []driver.NamedValue) (driver.Rows, error) {
	args := c.c.record(query, named)
	if c.c.query == nil {
		return &testRows{}, nil
	}
	cols, data, err := c.c.query(query, args)
	if err != nil {
		return nil, err
	}
	return &testRows{cols: cols, data: data}, nil
}

func (c *testConn) ExecContext(ctx context.Context, query string, named []driver.NamedValue) (driver.Result, error) {
	args := c.c.record(query, named)
	if c.c.exec == nil {
		return testResult(1), nil
	}
	n, err := c.c.exec(query, args)
	if err != nil {
		return nil, err
	}
	return testResult(n), nil
}

type testResult int64

func (r testResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r testResult) RowsAffected() (int64, error) { return int64(r), nil }

type testRows struct {
	cols []string
	data [][]driver.Value
	i    int
}

func (r *testRows) Columns() []string { return append([]string(nil), r.cols...) }
func (r *testRows) Close() error      { return nil }
func (r *testRows) Next(dest []driver.Value) error {
	if r.i >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.i]
	for i := range dest {
		if i < len(row) {
			dest[i] = row[i]
		} else {
			dest[i] = nil
		}
	}
	r.i++
	return nil
}

// newTestPool returns a pool over the in-test driver and its connector, so
// tests can inspect the statements that reached the driver.
func newTestPool(t *testing.T, q queryHandler, e execHandler, opts ...Option) (*Pool, *testConnector) {
	t.Helper()
	c := &testConnector{query: q, exec: e}
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	p := Wrap(sql.OpenDB(c), "mysql", opts...)
	t.Cleanup(func() { _ = p.Close() })
	return p, c
}

// newSQLitePool opens a pool on a fresh SQLite file.
func newSQLitePool(t *testing.T, maxSize int, opts ...Option) *Pool {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Driver = "sqlite"
	cfg.Database = filepath.Join(t.TempDir(), "test.db")
	cfg.MaxSize = maxSize
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	p, err := Open(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eq[T comparable](t *testing.T, got, want T, msg string) {
	t.Helper()
	if got != want {
		t.Fatalf("%s: got=%v want=%v", msg, got, want)
	}
}

func eqSlice(t *testing.T, got, want []any, msg string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len got=%d want=%d\n got=%v\nwant=%v", msg, len(got), len(want), got, want)
	}
	for i := range got {
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Fatalf("%s: idx %d got=%#v want=%#v\n got=%v\nwant=%v", msg, i, got[i], want[i], got, want)
		}
	}
}
