package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/pressly/goose/v3"

	"github.com/go-mizu/xmodel/internal/blog"
)

func init() {
	goose.AddMigrationContext(upCreateTables, downCreateTables)
}

// The tables are rendered from the entity schemas so the DDL cannot drift
// from the statements the models run.
func upCreateTables(ctx context.Context, tx *sql.Tx) error {
	for _, s := range blog.Schemas() {
		if _, err := tx.ExecContext(ctx, s.CreateTableSQL(false)); err != nil {
			return fmt.Errorf("creating table %s : %w", s.Table(), err)
		}
	}
	return nil
}

func downCreateTables(ctx context.Context, tx *sql.Tx) error {
	schemas := blog.Schemas()
	slices.Reverse(schemas)
	for _, s := range schemas {
		if _, err := tx.ExecContext(ctx, "DROP TABLE "+s.Table()); err != nil {
			return fmt.Errorf("dropping table %s : %w", s.Table(), err)
		}
	}
	return nil
}
