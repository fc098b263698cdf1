package xmodel

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// Kind is the scalar kind of a column. It fixes the default storage type and
// the Go type values are converted into when rows are read back.
type Kind uint8

const (
	KindString Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindText
)

// String returns the kind name, e.g. "integer".
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Default is the default value of a field: either absent, a literal used as
// is, or a generator invoked once per materialization.
type Default struct {
	literal any
	gen     func() any
	set     bool
}

// NoDefault is the absent default. Materializing it leaves the value nil.
var NoDefault = Default{}

// Literal returns a default that always yields v.
func Literal(v any) Default { return Default{literal: v, set: true} }

// Generator returns a default that calls fn for every materialization, so
// each row gets a fresh value (ids, timestamps).
func Generator(fn func() any) Default {
	if fn == nil {
		return NoDefault
	}
	return Default{gen: fn, set: true}
}

// IsSet reports whether a default is present.
func (d Default) IsSet() bool { return d.set }

// IsGenerator reports whether the default is produced by a function.
func (d Default) IsGenerator() bool { return d.gen != nil }

// Resolve returns the default value, invoking the generator if there is one.
func (d Default) Resolve() any {
	if d.gen != nil {
		return d.gen()
	}
	return d.literal
}

// Field describes one column of an entity. Fields are immutable once built;
// use the kind constructors (StringField, IntegerField, ...) to create them.
type Field struct {
	name       string
	column     string
	columnType string
	kind       Kind
	primaryKey bool
	notNull    bool
	def        Default
}

// FieldOption customizes a Field at construction.
type FieldOption func(*Field)

// PrimaryKey marks the field as the entity's primary key.
func PrimaryKey() FieldOption { return func(f *Field) { f.primaryKey = true } }

// DefaultValue sets a literal default.
func DefaultValue(v any) FieldOption { return func(f *Field) { f.def = Literal(v) } }

// DefaultFunc sets a generator default.
func DefaultFunc(fn func() any) FieldOption { return func(f *Field) { f.def = Generator(fn) } }

// WithoutDefault removes the kind's default.
func WithoutDefault() FieldOption { return func(f *Field) { f.def = NoDefault } }

// UUIDDefault generates a time-ordered UUID string for every new row.
func UUIDDefault() FieldOption {
	return DefaultFunc(func() any { return uuid.Must(uuid.NewV7()).String() })
}

// Column overrides the column name. The field is still addressed by its
// logical name on models.
func Column(name string) FieldOption { return func(f *Field) { f.column = name } }

// ColumnType overrides the storage type used in DDL, e.g. "varchar(50)".
func ColumnType(ddl string) FieldOption { return func(f *Field) { f.columnType = ddl } }

// NotNull marks the column NOT NULL in generated DDL.
func NotNull() FieldOption { return func(f *Field) { f.notNull = true } }

func newField(name string, kind Kind, columnType string, def Default, opts []FieldOption) *Field {
	f := &Field{name: name, kind: kind, columnType: columnType, def: def}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StringField is a varchar(100) column with no default.
func StringField(name string, opts ...FieldOption) *Field {
	return newField(name, KindString, "varchar(100)", NoDefault, opts)
}

// BooleanField is a boolean column defaulting to false. It cannot be a
// primary key.
func BooleanField(name string, opts ...FieldOption) *Field {
	return newField(name, KindBoolean, "boolean", Literal(false), opts)
}

// IntegerField is a bigint column defaulting to 0.
func IntegerField(name string, opts ...FieldOption) *Field {
	return newField(name, KindInteger, "bigint", Literal(int64(0)), opts)
}

// FloatField is a real column defaulting to 0.0.
func FloatField(name string, opts ...FieldOption) *Field {
	return newField(name, KindFloat, "real", Literal(float64(0)), opts)
}

// TextField is a text column with no default. It cannot be a primary key.
func TextField(name string, opts ...FieldOption) *Field {
	return newField(name, KindText, "text", NoDefault, opts)
}

// Name is the logical field name.
func (f *Field) Name() string { return f.name }

// ColumnName is the column used in SQL; the logical name unless overridden.
func (f *Field) ColumnName() string {
	if f.column != "" {
		return f.column
	}
	return f.name
}

// ColumnType is the SQL storage type, e.g. varchar(100).
func (f *Field) ColumnType() string { return f.columnType }

// Kind is the field's value kind.
func (f *Field) Kind() Kind { return f.kind }

// IsPrimaryKey reports whether the field is the entity's primary key.
func (f *Field) IsPrimaryKey() bool { return f.primaryKey }

// Default is the field's default; its IsSet is false when there is none.
func (f *Field) Default() Default { return f.def }

// String renders the field as <Field type>: name.
func (f *Field) String() string {
	return fmt.Sprintf("<Field %s>: %s", f.columnType, f.name)
}

// Convert coerces a driver value into the field's Go type: int64, bool,
// float64 or string. NULL stays nil. Values that cannot be coerced are an
// error naming the field.
func (f *Field) Convert(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var (
		out any
		err error
	)
	switch f.kind {
	case KindInteger:
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out, err = cast.ToInt64E(v)
	case KindFloat:
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out, err = cast.ToFloat64E(v)
	case KindBoolean:
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		out, err = cast.ToBoolE(v)
	default:
		out, err = cast.ToStringE(v)
	}
	if err != nil {
		return nil, fmt.Errorf("xmodel: converting %s: %w", f.name, err)
	}
	return out, nil
}
