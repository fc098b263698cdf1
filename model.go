package xmodel

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// Model is one row of an entity: a schema plus the row's values keyed by
// logical field name. Only declared fields can be read or written.
//
// A Model is not safe for concurrent use.
type Model struct {
	schema *Schema
	values map[string]any
	// defaulted holds fields whose default has been resolved, so a default
	// that yields nil is not produced again.
	defaulted map[string]bool
}

// New returns a model holding values. Every key must name a declared field.
func (s *Schema) New(values map[string]any) (*Model, error) {
	m := &Model{schema: s, values: make(map[string]any, len(s.mappings))}
	for k, v := range values {
		if err := m.Set(k, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on an unknown field.
func (s *Schema) MustNew(values map[string]any) *Model {
	m, err := s.New(values)
	if err != nil {
		panic(err)
	}
	return m
}

// fromRow builds a model from a result row. Columns are matched to fields by
// column name, case-insensitively; values are converted to the field's kind.
// Columns without a field are ignored.
func (s *Schema) fromRow(r Row) (*Model, error) {
	m := &Model{schema: s, values: make(map[string]any, len(s.mappings))}
	for col, v := range r {
		f, ok := s.byColumn(col)
		if !ok {
			continue
		}
		cv, err := f.Convert(v)
		if err != nil {
			return nil, err
		}
		m.values[f.name] = cv
	}
	return m, nil
}

func (s *Schema) byColumn(col string) (*Field, bool) {
	if f, ok := s.mappings[col]; ok && strings.EqualFold(f.ColumnName(), col) {
		return f, true
	}
	for _, f := range s.mappings {
		if strings.EqualFold(f.ColumnName(), col) {
			return f, true
		}
	}
	return nil, false
}

// Schema returns the model's schema.
func (m *Model) Schema() *Schema { return m.schema }

func (m *Model) check(name string) (*Field, error) {
	f, ok := m.schema.mappings[name]
	if !ok {
		return nil, &FieldError{Entity: m.schema.name, Field: name}
	}
	return f, nil
}

// Get returns the current value of a field, nil if unset.
func (m *Model) Get(name string) (any, error) {
	if _, err := m.check(name); err != nil {
		return nil, err
	}
	return m.values[name], nil
}

// MustGet is like Get but panics on an unknown field.
func (m *Model) MustGet(name string) any {
	v, err := m.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Set assigns a field.
func (m *Model) Set(name string, v any) error {
	if _, err := m.check(name); err != nil {
		return err
	}
	m.values[name] = v
	delete(m.defaulted, name)
	return nil
}

// ValueOrDefault returns the field's value. An unset or nil value is first
// replaced by the field's default (a generator runs once) and written back,
// so later calls return the same value, also when the default is nil. Set
// clears that, and the next call resolves the default again.
func (m *Model) ValueOrDefault(name string) (any, error) {
	f, err := m.check(name)
	if err != nil {
		return nil, err
	}
	if v := m.values[name]; v != nil || m.defaulted[name] {
		return v, nil
	}
	if !f.def.IsSet() {
		return nil, nil
	}
	v := f.def.Resolve()
	slog.Debug("xmodel: using default value", "entity", m.schema.name, "field", name, "value", v)
	m.values[name] = v
	if m.defaulted == nil {
		m.defaulted = make(map[string]bool)
	}
	m.defaulted[name] = true
	return v, nil
}

// Values returns a copy of the set values.
func (m *Model) Values() map[string]any { return maps.Clone(m.values) }

// String renders the set values in name order, e.g. User{id: 1, name: alice}.
func (m *Model) String() string {
	keys := slices.Sorted(maps.Keys(m.values))
	var b strings.Builder
	b.WriteString(m.schema.name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, m.values[k])
	}
	b.WriteByte('}')
	return b.String()
}
