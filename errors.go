package xmodel

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNoPrimaryKey is returned by Define when no field is marked PrimaryKey.
	ErrNoPrimaryKey = errors.New("xmodel: primary key not found")

	// ErrDuplicatePrimaryKey is returned by Define when more than one field is
	// marked PrimaryKey.
	ErrDuplicatePrimaryKey = errors.New("xmodel: duplicate primary key")

	// ErrDuplicateField is returned by Define when two fields share a logical
	// name or a column name.
	ErrDuplicateField = errors.New("xmodel: duplicate field")

	// ErrInvalidPrimaryKey is returned by Define when a boolean or text field
	// is marked PrimaryKey.
	ErrInvalidPrimaryKey = errors.New("xmodel: field kind cannot be a primary key")

	// ErrEmptyName is returned by Define for an entity or field without a name.
	ErrEmptyName = errors.New("xmodel: empty name")

	// ErrUnknownField matches every *FieldError.
	ErrUnknownField = errors.New("xmodel: unknown field")

	// ErrInvalidLimit is returned by FindAll when Query.Limit is neither a
	// count nor an (offset, count) pair.
	ErrInvalidLimit = errors.New("xmodel: invalid limit value")

	// ErrPoolNotInitialized is returned when a nil or closed Pool is used.
	ErrPoolNotInitialized = errors.New("xmodel: pool not initialized")

	// ErrNotFound is returned by Find and FindNumber when no row matches. It
	// wraps sql.ErrNoRows.
	ErrNotFound = fmt.Errorf("xmodel: not found: %w", sql.ErrNoRows)
)

// SchemaError reports an invalid entity declaration.
type SchemaError struct {
	Entity string
	Field  string // empty when the error concerns the entity as a whole
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v (entity %s)", e.Err, e.Entity)
	}
	return fmt.Sprintf("%v: %s.%s", e.Err, e.Entity, e.Field)
}

// Unwrap returns the sentinel describing the failure.
func (e *SchemaError) Unwrap() error { return e.Err }

// FieldError reports access to a name that is not declared on the entity.
type FieldError struct {
	Entity string
	Field  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("xmodel: %s has no field %q", e.Entity, e.Field)
}

// Is matches ErrUnknownField.
func (e *FieldError) Is(target error) bool { return target == ErrUnknownField }

// AnomalyError reports a write that completed without a driver error but
// affected a number of rows other than one. It is only returned under
// AnomalyFail.
type AnomalyError struct {
	Op       string // "insert", "update" or "delete"
	Table    string
	Affected int64
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("xmodel: failed to %s %s: affected rows: %d", e.Op, e.Table, e.Affected)
}
