// Package migrations evolves the blog database with goose. Go migrations
// register themselves at init; SQL migrations are embedded.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/go-mizu/xmodel"
)

//go:embed *.sql
var embedMigrations embed.FS

// goose keeps its base FS, dialect and logger in package globals.
var gooseMu sync.Mutex

// Up applies all pending migrations through the pool's database.
func Up(ctx context.Context, pool *xmodel.Pool) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := setup(pool); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, pool.DB().DB, "."); err != nil {
		return fmt.Errorf("applying migration : %w", err)
	}
	return nil
}

// Version reports the current schema version.
func Version(ctx context.Context, pool *xmodel.Pool) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := setup(pool); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersionContext(ctx, pool.DB().DB)
	if err != nil {
		return 0, fmt.Errorf("reading migration version : %w", err)
	}
	return v, nil
}

func setup(pool *xmodel.Pool) error {
	if pool.DB() == nil {
		return xmodel.ErrPoolNotInitialized
	}
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(dialect(pool.DriverName())); err != nil {
		return fmt.Errorf("setting dialect for migrations : %w", err)
	}
	return nil
}

func dialect(driver string) string {
	if driver == "sqlite" {
		return string(goose.DialectSQLite3)
	}
	return string(goose.DialectMySQL)
}
