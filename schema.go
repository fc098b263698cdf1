package xmodel

import (
	"strings"
)

// Entity declares a row type: its name, optional table override, and fields
// in declaration order.
type Entity struct {
	Name   string
	Table  string // defaults to Name
	Fields []*Field
}

// Schema is the compiled, read-only form of an Entity. It holds the field
// mappings and the four CRUD statements, built once by Define. A Schema has
// no mutators and is safe for concurrent use.
type Schema struct {
	name       string
	table      string
	mappings   map[string]*Field
	fields     []string // ordinary field names, declaration order
	primaryKey string

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
}

// Define compiles an Entity into a Schema.
//
// Exactly one field must be marked PrimaryKey; zero or several is an error,
// as are duplicate names and boolean/text primary keys. The generated
// statements use ? placeholders and list ordinary fields in declaration
// order followed by the primary key:
//
//	SELECT id, name, age FROM User
//	INSERT INTO User (name, age, id) VALUES (?, ?, ?)
//	UPDATE User SET name = ?, age = ? WHERE id = ?
//	DELETE FROM User WHERE id = ?
func Define(e Entity) (*Schema, error) {
	if e.Name == "" {
		return nil, &SchemaError{Err: ErrEmptyName}
	}
	s := &Schema{
		name:     e.Name,
		table:    e.Table,
		mappings: make(map[string]*Field, len(e.Fields)),
		fields:   make([]string, 0, len(e.Fields)),
	}
	if s.table == "" {
		s.table = e.Name
	}

	columns := make(map[string]struct{}, len(e.Fields))
	for _, f := range e.Fields {
		if f == nil || f.name == "" {
			return nil, &SchemaError{Entity: e.Name, Err: ErrEmptyName}
		}
		if _, ok := s.mappings[f.name]; ok {
			return nil, &SchemaError{Entity: e.Name, Field: f.name, Err: ErrDuplicateField}
		}
		col := strings.ToLower(f.ColumnName())
		if _, ok := columns[col]; ok {
			return nil, &SchemaError{Entity: e.Name, Field: f.name, Err: ErrDuplicateField}
		}
		columns[col] = struct{}{}
		s.mappings[f.name] = f

		if !f.primaryKey {
			s.fields = append(s.fields, f.name)
			continue
		}
		if f.kind == KindBoolean || f.kind == KindText {
			return nil, &SchemaError{Entity: e.Name, Field: f.name, Err: ErrInvalidPrimaryKey}
		}
		if s.primaryKey != "" {
			return nil, &SchemaError{Entity: e.Name, Field: f.name, Err: ErrDuplicatePrimaryKey}
		}
		s.primaryKey = f.name
	}
	if s.primaryKey == "" {
		return nil, &SchemaError{Entity: e.Name, Err: ErrNoPrimaryKey}
	}

	s.compile()
	return s, nil
}

// MustDefine is like Define but panics on error. It is meant for
// package-level declarations, where a bad entity is a programming error.
func MustDefine(e Entity) *Schema {
	s, err := Define(e)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) compile() {
	pk := s.column(s.primaryKey)
	cols := make([]string, len(s.fields))
	sets := make([]string, len(s.fields))
	for i, name := range s.fields {
		cols[i] = s.column(name)
		sets[i] = cols[i] + " = ?"
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(pk)
	for _, c := range cols {
		b.WriteString(", ")
		b.WriteString(c)
	}
	b.WriteString(" FROM ")
	b.WriteString(s.table)
	s.selectSQL = b.String()

	b.Reset()
	b.WriteString("INSERT INTO ")
	b.WriteString(s.table)
	b.WriteString(" (")
	for _, c := range cols {
		b.WriteString(c)
		b.WriteString(", ")
	}
	b.WriteString(pk)
	b.WriteString(") VALUES (")
	b.WriteString(placeholders(len(cols) + 1))
	b.WriteString(")")
	s.insertSQL = b.String()

	if len(sets) == 0 {
		// Key-only entity: the update is a no-op that still addresses the row.
		sets = []string{pk + " = " + pk}
	}
	s.updateSQL = "UPDATE " + s.table + " SET " + strings.Join(sets, ", ") + " WHERE " + pk + " = ?"
	s.deleteSQL = "DELETE FROM " + s.table + " WHERE " + pk + " = ?"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return "?" + strings.Repeat(", ?", n-1)
}

func (s *Schema) column(name string) string { return s.mappings[name].ColumnName() }

// Name is the declared entity name.
func (s *Schema) Name() string { return s.name }

// Table is the table the entity maps to.
func (s *Schema) Table() string { return s.table }

// PrimaryKey is the logical name of the primary key field.
func (s *Schema) PrimaryKey() string { return s.primaryKey }

// Fields returns the ordinary (non-key) field names in declaration order.
func (s *Schema) Fields() []string { return append([]string(nil), s.fields...) }

// Field returns the field with the given logical name.
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.mappings[name]
	return f, ok
}

// SelectSQL is the compiled SELECT of every column, without a WHERE clause.
func (s *Schema) SelectSQL() string { return s.selectSQL }

// InsertSQL is the compiled INSERT; ordinary fields first, primary key last.
func (s *Schema) InsertSQL() string { return s.insertSQL }

// UpdateSQL is the compiled UPDATE of every ordinary field by primary key.
func (s *Schema) UpdateSQL() string { return s.updateSQL }

// DeleteSQL is the compiled DELETE by primary key.
func (s *Schema) DeleteSQL() string { return s.deleteSQL }

// String renders the schema as <Schema name>: table.
func (s *Schema) String() string { return "<Schema " + s.name + ">: " + s.table }

// CreateTableSQL renders a CREATE TABLE statement from the column types.
// The primary key column is NOT NULL; others follow NotNull.
func (s *Schema) CreateTableSQL(ifNotExists bool) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(s.table)
	b.WriteString(" (")
	names := append([]string{s.primaryKey}, s.fields...)
	for i, name := range names {
		f := s.mappings[name]
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.ColumnName())
		b.WriteByte(' ')
		b.WriteString(f.columnType)
		if f.primaryKey || f.notNull {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(", PRIMARY KEY (")
	b.WriteString(s.column(s.primaryKey))
	b.WriteString("))")
	return b.String()
}
