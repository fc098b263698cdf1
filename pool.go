package xmodel

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql" // registers "mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers "sqlite"
)

// AnomalyPolicy decides what a write affecting other than one row does.
type AnomalyPolicy uint8

const (
	// AnomalyWarn logs the anomaly and reports success.
	AnomalyWarn AnomalyPolicy = iota
	// AnomalyFail returns an *AnomalyError.
	AnomalyFail
)

// Pool is a bounded set of database connections shared by every Schema and
// Model operation. Build one with Open (or Wrap) and pass it explicitly; a
// Pool is safe for concurrent use.
type Pool struct {
	db     *sqlx.DB
	driver string
	ph     Placeholder
	policy AnomalyPolicy
	logger *slog.Logger
	closed atomic.Bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger for statements and anomalies. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option { return func(p *Pool) { p.logger = l } }

// WithPlaceholder overrides the native placeholder style picked from the
// driver name.
func WithPlaceholder(ph Placeholder) Option { return func(p *Pool) { p.ph = ph } }

// WithAnomalyPolicy sets how Save, Update and Delete treat row-count anomalies.
func WithAnomalyPolicy(policy AnomalyPolicy) Option { return func(p *Pool) { p.policy = policy } }

// Open connects to the database described by cfg and returns a ready pool.
// At most cfg.MaxSize connections are live at once; cfg.MinSize connections
// are opened eagerly and kept idle.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to db : %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxSize)
	db.SetMaxIdleConns(cfg.MaxSize)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	if cfg.Strict {
		opts = append([]Option{WithAnomalyPolicy(AnomalyFail)}, opts...)
	}
	p := newPool(db, opts)
	if err := p.warm(ctx, cfg.MinSize); err != nil {
		db.Close()
		return nil, err
	}
	p.logger.Info("xmodel: pool ready", "driver", cfg.Driver, "min_size", cfg.MinSize, "max_size", cfg.MaxSize)
	return p, nil
}

// Wrap builds a Pool around an existing handle. The caller keeps ownership
// of the handle's limits; Close closes it.
func Wrap(db *sql.DB, driverName string, opts ...Option) *Pool {
	return newPool(sqlx.NewDb(db, driverName), opts)
}

func newPool(db *sqlx.DB, opts []Option) *Pool {
	p := &Pool{
		db:     db,
		driver: db.DriverName(),
		ph:     PlaceholderFor(db.DriverName()),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// warm opens n connections at once and hands them back to the idle set.
func (p *Pool) warm(ctx context.Context, n int) error {
	conns := make([]*Conn, 0, n)
	defer func() {
		for _, c := range conns {
			c.Release()
		}
	}()
	for i := 0; i < n; i++ {
		c, err := p.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("warming pool: %w", err)
		}
		conns = append(conns, c)
		if err := c.conn.PingContext(ctx); err != nil {
			return fmt.Errorf("warming pool: %w", err)
		}
	}
	return nil
}

// Conn is a connection checked out of a Pool. Release returns it; calling
// Release more than once is harmless.
type Conn struct {
	conn *sqlx.Conn
	once sync.Once
}

// Raw exposes the underlying connection for statements outside the Executor
// contract.
func (c *Conn) Raw() *sqlx.Conn { return c.conn }

// Release returns the connection to the pool.
func (c *Conn) Release() {
	c.once.Do(func() { _ = c.conn.Close() })
}

// Acquire checks out a connection, blocking while MaxSize connections are in
// use. It gives up when ctx is done. The caller must Release the connection;
// prefer With, which cannot leak it.
func (p *Pool) Acquire(ctx context.Context) (*Conn, error) {
	if p == nil || p.db == nil || p.closed.Load() {
		return nil, ErrPoolNotInitialized
	}
	conn, err := p.db.Connx(ctx)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: conn}, nil
}

// With runs fn on a checked-out connection and releases it on every exit
// path, including a panic in fn.
func (p *Pool) With(ctx context.Context, fn func(*Conn) error) error {
	c, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer c.Release()
	return fn(c)
}

// ReportAnomaly applies the pool's AnomalyPolicy.
func (p *Pool) ReportAnomaly(ctx context.Context, a *AnomalyError) error {
	if p.policy == AnomalyFail {
		return a
	}
	warnAnomaly(ctx, p.logger, a)
	return nil
}

// Close closes every connection. Later calls fail with ErrPoolNotInitialized.
func (p *Pool) Close() error {
	if p == nil || p.db == nil || !p.closed.CompareAndSwap(false, true) {
		return ErrPoolNotInitialized
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing pool : %w", err)
	}
	return nil
}

// Stats reports the pool's connection counters. A nil or unopened pool
// reports zeros.
func (p *Pool) Stats() sql.DBStats {
	if p == nil || p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// DB returns the underlying handle, e.g. for migrations. It is nil for a nil
// or unopened pool.
func (p *Pool) DB() *sqlx.DB {
	if p == nil {
		return nil
	}
	return p.db
}

// DriverName is the database/sql driver the pool was opened with.
func (p *Pool) DriverName() string {
	if p == nil {
		return ""
	}
	return p.driver
}

// Placeholder is the native placeholder style statements are rewritten to.
func (p *Pool) Placeholder() Placeholder { return p.ph }

func warnAnomaly(ctx context.Context, l *slog.Logger, a *AnomalyError) {
	l.WarnContext(ctx, "xmodel: failed to "+a.Op+" record", "table", a.Table, "affected", a.Affected)
}
