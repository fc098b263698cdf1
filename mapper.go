package xmodel

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Models map onto Go structs by field name: a struct field binds to a model
// field when its `db` tag (or, without a tag, its Go name) equals the model
// field's logical or column name, case-insensitively. Nested structs can be
// flattened with `db:",inline"`; anonymous embedded structs are flattened
// unless tagged. `db:"-"` skips a field.

// structIndexCache maps reflect.Type -> *fieldIndex. Indexes are built once
// per type and shared.
var structIndexCache sync.Map

type fieldIndex struct {
	byName map[string][]int // lower-case name -> index path
	dup    string           // first name claimed by more than one field
}

func structIndex(rt reflect.Type) *fieldIndex {
	if v, ok := structIndexCache.Load(rt); ok {
		return v.(*fieldIndex)
	}
	fi := buildStructIndex(rt)
	v, _ := structIndexCache.LoadOrStore(rt, &fi)
	return v.(*fieldIndex)
}

func (fi *fieldIndex) lookup(f *Field) ([]int, bool) {
	if p, ok := fi.byName[toLowerAscii(f.name)]; ok {
		return p, true
	}
	p, ok := fi.byName[toLowerAscii(f.ColumnName())]
	return p, ok
}

// Decode copies the model's values into dst, a non-nil pointer to a struct.
// Struct fields without a matching model field are left alone; nil values
// zero the destination.
//
// Example:
//
//	type User struct {
//	    ID   int64  `db:"id"`
//	    Name string `db:"name"`
//	}
//	var u User
//	if err := m.Decode(&u); err != nil {
//	    return err
//	}
func (m *Model) Decode(dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || !isStruct(rv.Type()) {
		return fmt.Errorf("xmodel: decode target must be a non-nil pointer to a struct, got %T", dst)
	}
	root := rv.Elem()
	for root.Kind() == reflect.Ptr {
		if root.IsNil() {
			root.Set(reflect.New(root.Type().Elem()))
		}
		root = root.Elem()
	}
	idx := structIndex(root.Type())
	for name, f := range m.schema.mappings {
		path, ok := idx.lookup(f)
		if !ok {
			continue
		}
		v, set := m.values[name]
		if !set {
			continue
		}
		if err := assign(fieldByPath(root, path), v); err != nil {
			return fmt.Errorf("xmodel: decoding %s.%s: %w", m.schema.name, name, err)
		}
	}
	return nil
}

// Encode builds a model from src, a struct or pointer to one. Struct fields
// are matched as in Decode; driver.Valuer fields contribute their Value, nil
// pointers contribute nil.
func (s *Schema) Encode(src any) (*Model, error) {
	rv := reflect.ValueOf(src)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("xmodel: encode source is a nil %T", src)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("xmodel: encode source must be a struct, got %T", src)
	}
	idx := structIndex(rv.Type())
	m := &Model{schema: s, values: make(map[string]any, len(s.mappings))}
	for name, f := range s.mappings {
		path, ok := idx.lookup(f)
		if !ok {
			continue
		}
		fv, ok := fieldByPathRead(rv, path)
		if !ok {
			continue
		}
		v, err := valueOf(fv)
		if err != nil {
			return nil, fmt.Errorf("xmodel: encoding %s.%s: %w", s.name, name, err)
		}
		m.values[name] = v
	}
	return m, nil
}

// ---------------- Assignment ----------------

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// assign stores v into dst, converting between compatible kinds.
func assign(dst reflect.Value, v any) error {
	if reflect.PointerTo(dst.Type()).Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(v)
	}
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	if dst.Kind() == reflect.Ptr {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), v); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	src := reflect.ValueOf(v)
	if b, ok := v.([]byte); ok && dst.Kind() == reflect.String {
		dst.SetString(string(b))
		return nil
	}
	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if isNumeric(src.Kind()) && isNumeric(dst.Kind()) {
		dst.Set(src.Convert(dst.Type()))
		return nil
	}
	if src.Kind() == reflect.String && dst.Kind() == reflect.String {
		dst.SetString(src.String())
		return nil
	}
	if src.Kind() == reflect.Bool && dst.Kind() == reflect.Bool {
		dst.SetBool(src.Bool())
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", v, dst.Type())
}

// valueOf reads a struct field for use as a model value.
func valueOf(fv reflect.Value) (any, error) {
	if fv.Kind() == reflect.Ptr && fv.IsNil() {
		return nil, nil
	}
	if fv.Type().Implements(valuerType) {
		return fv.Interface().(driver.Valuer).Value()
	}
	for fv.Kind() == reflect.Ptr {
		fv = fv.Elem()
	}
	if fv.Type() == timeType {
		return fv.Interface(), nil
	}
	switch {
	case isSigned(fv.Kind()):
		return fv.Int(), nil
	case isUnsigned(fv.Kind()):
		return int64(fv.Uint()), nil
	case fv.Kind() == reflect.Float32 || fv.Kind() == reflect.Float64:
		return fv.Float(), nil
	case fv.Kind() == reflect.String:
		return fv.String(), nil
	case fv.Kind() == reflect.Bool:
		return fv.Bool(), nil
	}
	return fv.Interface(), nil
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || k == reflect.Float32 || k == reflect.Float64
}

// ---------------- Struct indexing & tags ----------------

func buildStructIndex(rt reflect.Type) fieldIndex {
	idx := fieldIndex{byName: make(map[string][]int)}
	seen := make(map[string]struct{})

	var walk func(t reflect.Type, base []int, forceInline bool)
	walk = func(t reflect.Type, base []int, forceInline bool) {
		t = derefPtr(t)
		if t.Kind() != reflect.Struct {
			return
		}
		n := t.NumField()
		for i := 0; i < n; i++ {
			sf := t.Field(i)
			if sf.PkgPath != "" && !sf.Anonymous { // unexported, non-anonymous
				continue
			}
			tag := sf.Tag.Get("db")
			name, inline, omit := parseTag(tag)
			if omit {
				continue
			}
			ft := sf.Type
			path := append(append([]int(nil), base...), i)

			if inline || (sf.Anonymous && (forceInline || tag == "")) {
				if isStruct(ft) && derefPtr(ft) != timeType {
					walk(ft, path, inline)
					continue
				}
			}
			if sf.PkgPath != "" {
				continue
			}
			if name == "" {
				name = sf.Name
			}
			lc := toLowerAscii(name)
			if _, ok := seen[lc]; ok {
				if idx.dup == "" {
					idx.dup = lc
				}
				continue
			}
			idx.byName[lc] = path
			seen[lc] = struct{}{}
		}
	}
	walk(rt, nil, false)
	return idx
}

// parseTag supports: "-", "col", ",inline", "col,inline", "inline,col".
func parseTag(tag string) (name string, inline bool, omit bool) {
	if tag == "-" {
		return "", false, true
	}
	if tag == "" {
		return "", false, false
	}
	start := 0
	for i := 0; i <= len(tag); i++ {
		if i == len(tag) || tag[i] == ',' {
			part := tag[start:i]
			if part == "inline" {
				inline = true
			} else if part != "" && name == "" {
				name = part
			}
			start = i + 1
		}
	}
	return name, inline, false
}

func isStruct(t reflect.Type) bool { return derefPtr(t).Kind() == reflect.Struct }

func derefPtr(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// fieldByPath walks fpath, allocating nil embedded pointers so the final
// field is settable.
func fieldByPath(root reflect.Value, fpath []int) reflect.Value {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

// fieldByPathRead walks fpath without allocating; ok is false when a nil
// embedded pointer is in the way.
func fieldByPathRead(root reflect.Value, fpath []int) (reflect.Value, bool) {
	v := root
	for _, i := range fpath {
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v, true
}

func toLowerAscii(s string) string {
	var need bool
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			need = true
			break
		}
	}
	if !need {
		return s
	}
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c = c + ('a' - 'A')
		}
		b[i] = c
	}
	return string(b)
}
