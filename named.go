package xmodel

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholder is the positional parameter style of a database. Statements are
// built with ? and rewritten to the pool's style right before they run.
//
//   - PlaceholderQuestion   ?            MySQL, SQLite
//   - PlaceholderDollar     $1, $2, ...  PostgreSQL
//   - PlaceholderAtP        @p1, @p2...  SQL Server
//   - PlaceholderColonNum   :1, :2, ...  Oracle
type Placeholder int

const (
	PlaceholderQuestion Placeholder = iota
	PlaceholderDollar
	PlaceholderAtP
	PlaceholderColonNum
)

// PlaceholderFor picks the style used by a database/sql driver name.
//
//	xmodel.PlaceholderFor("pgx")    // PlaceholderDollar
//	xmodel.PlaceholderFor("sqlite") // PlaceholderQuestion
func PlaceholderFor(driverName string) Placeholder {
	switch strings.ToLower(driverName) {
	case "pgx", "postgres", "postgresql", "lib/pq", "pg":
		return PlaceholderDollar
	case "sqlserver", "mssql":
		return PlaceholderAtP
	case "godror", "oracle", "goracle":
		return PlaceholderColonNum
	default:
		return PlaceholderQuestion
	}
}

var (
	// ErrNilParams is returned by BindNamed for nil params or a nil pointer.
	ErrNilParams = errors.New("xmodel: named bind: nil params")

	// ErrUnsupportedArg is returned by BindNamed when params is neither a
	// struct nor a string-keyed map.
	ErrUnsupportedArg = errors.New("xmodel: named bind: params must be struct or map[string]any")

	// ErrDuplicateKeyTag is returned when two struct fields resolve to the same
	// parameter name, case-insensitively.
	ErrDuplicateKeyTag = errors.New("xmodel: named bind: duplicate key from struct tags/fields")
)

// BindNamed replaces each :name in query with ? and returns the matching
// values from params (a struct or a map[string]any) in order. Names match
// map keys or struct fields (by db tag or Go name) case-insensitively. A
// slice or array value expands to one placeholder per element, or to NULL
// when empty; []byte stays a single value. Names inside quotes, comments and
// dollar-quoted bodies are left alone, as are :: casts.
//
//	q, args, err := xmodel.BindNamed(`user_id = :uid AND id IN (:ids)`,
//	    map[string]any{"uid": "u1", "ids": []string{"b1", "b2"}},
//	)
//	// q    => user_id = ? AND id IN (?,?)
//	// args => ["u1", "b1", "b2"]
func BindNamed(query string, params any) (string, []any, error) {
	toks, err := findNamedParams(query)
	if err != nil {
		return "", nil, err
	}
	lookup, err := newParamLookup(params)
	if err != nil {
		return "", nil, err
	}
	if len(toks) == 0 {
		return query, nil, nil
	}

	var b strings.Builder
	b.Grow(len(query))
	args := make([]any, 0, len(toks))
	last := 0
	for _, t := range toks {
		b.WriteString(query[last:t.start])
		last = t.end

		val, ok := lookup[strings.ToLower(t.name)]
		if !ok {
			return "", nil, fmt.Errorf("xmodel: named bind: missing value for :%s", t.name)
		}
		rv := reflect.ValueOf(val)
		if !isSliceOrArray(rv) {
			b.WriteByte('?')
			args = append(args, val)
			continue
		}
		if rv.Len() == 0 {
			b.WriteString("NULL")
			continue
		}
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('?')
			args = append(args, rv.Index(i).Interface())
		}
	}
	b.WriteString(query[last:])
	return b.String(), args, nil
}

// newParamLookup flattens params into a lower-case name -> value map. Struct
// fields are resolved with the same index Decode and Encode use, so inline
// and embedded structs bind the same way; fields behind a nil embedded
// pointer are absent.
func newParamLookup(params any) (map[string]any, error) {
	if params == nil {
		return nil, ErrNilParams
	}
	rv := reflect.ValueOf(params)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, ErrNilParams
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, ErrUnsupportedArg
		}
		m := make(map[string]any, rv.Len())
		for it := rv.MapRange(); it.Next(); {
			m[strings.ToLower(it.Key().String())] = it.Value().Interface()
		}
		return m, nil
	case reflect.Struct:
		idx := structIndex(rv.Type())
		if idx.dup != "" {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKeyTag, idx.dup)
		}
		m := make(map[string]any, len(idx.byName))
		for name, path := range idx.byName {
			if fv, ok := fieldByPathRead(rv, path); ok {
				m[name] = fv.Interface()
			}
		}
		return m, nil
	default:
		return nil, ErrUnsupportedArg
	}
}

func isSliceOrArray(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice:
		return v.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

// ---------------- Statement scanning ----------------

type nameToken struct {
	name       string
	start, end int // query[start:end] == ":" + name
}

// findNamedParams lists the :name tokens of query in order. It fails on an
// unterminated quote or comment.
func findNamedParams(query string) ([]nameToken, error) {
	var out []nameToken
	for i := 0; i < len(query); {
		j, err := skipOpaque(query, i)
		if err != nil {
			return nil, err
		}
		if j > i {
			i = j
			continue
		}
		if query[i] == ':' {
			if strings.HasPrefix(query[i:], "::") {
				i += 2
				continue
			}
			if name, end := parseIdent(query, i+1); name != "" {
				out = append(out, nameToken{name: name, start: i, end: end})
				i = end
				continue
			}
		}
		i++
	}
	return out, nil
}

// rewritePlaceholders numbers every ? outside quotes and comments in the
// target style. An unterminated quote or comment is copied through as is;
// the driver reports it.
func rewritePlaceholders(query string, ph Placeholder) string {
	if ph == PlaceholderQuestion {
		return query
	}
	var prefix string
	switch ph {
	case PlaceholderDollar:
		prefix = "$"
	case PlaceholderAtP:
		prefix = "@p"
	case PlaceholderColonNum:
		prefix = ":"
	default:
		return query
	}

	out := make([]byte, 0, len(query)+16)
	n := 0
	for i := 0; i < len(query); {
		j, err := skipOpaque(query, i)
		if err != nil {
			return string(append(out, query[i:]...))
		}
		if j > i {
			out = append(out, query[i:j]...)
			i = j
			continue
		}
		if query[i] == '?' {
			n++
			out = append(out, prefix...)
			out = strconv.AppendInt(out, int64(n), 10)
		} else {
			out = append(out, query[i])
		}
		i++
	}
	return string(out)
}

// skipOpaque returns the index just past the quoted string, quoted
// identifier, comment or dollar-quoted body starting at i, or i itself when
// none starts there.
func skipOpaque(s string, i int) (int, error) {
	switch s[i] {
	case '\'', '"', '`':
		return skipQuoted(s, i)
	case '-':
		if strings.HasPrefix(s[i:], "--") {
			if k := strings.IndexByte(s[i:], '\n'); k >= 0 {
				return i + k + 1, nil
			}
			return len(s), nil
		}
	case '/':
		if strings.HasPrefix(s[i:], "/*") {
			if k := strings.Index(s[i+2:], "*/"); k >= 0 {
				return i + 2 + k + 2, nil
			}
			return 0, errors.New("xmodel: unterminated block comment")
		}
	case '$':
		return skipDollarQuoted(s, i)
	}
	return i, nil
}

// skipQuoted skips a '...', "..." or `...` run; a doubled quote is an
// escaped one.
func skipQuoted(s string, i int) (int, error) {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1, nil
	}
	switch q {
	case '\'':
		return 0, errors.New("xmodel: unterminated single-quoted string")
	case '"':
		return 0, errors.New("xmodel: unterminated double-quoted identifier")
	default:
		return 0, errors.New("xmodel: unterminated backtick-quoted identifier")
	}
}

// skipDollarQuoted skips PostgreSQL $$...$$ and $tag$...$tag$ bodies. A $
// that does not open a tag (e.g. $1) is not opaque.
func skipDollarQuoted(s string, i int) (int, error) {
	j := i + 1
	for j < len(s) && s[j] != '$' && isTagChar(rune(s[j])) {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return i, nil
	}
	tag := s[i : j+1]
	k := strings.Index(s[j+1:], tag)
	if k < 0 {
		return 0, errors.New("xmodel: unterminated dollar-quoted string")
	}
	return j + 1 + k + len(tag), nil
}

func isTagChar(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

func parseIdent(s string, i int) (string, int) {
	start := i
	for i < len(s) {
		r, w := utf8.DecodeRuneInString(s[i:])
		if !isTagChar(r) {
			break
		}
		i += w
	}
	return s[start:i], i
}
