package xmodel

import (
	"errors"
	"strings"
	"testing"
)

func userSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := Define(Entity{
		Name: "User",
		Fields: []*Field{
			IntegerField("id", PrimaryKey()),
			StringField("name", DefaultValue("anon")),
			IntegerField("age"),
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	return s
}

func TestDefine_UserStatements(t *testing.T) {
	s := userSchema(t)
	eq(t, s.Table(), "User", "table defaults to name")
	eq(t, s.PrimaryKey(), "id", "primary key")
	eq(t, s.SelectSQL(), "SELECT id, name, age FROM User", "select")
	eq(t, s.InsertSQL(), "INSERT INTO User (name, age, id) VALUES (?, ?, ?)", "insert")
	eq(t, s.UpdateSQL(), "UPDATE User SET name = ?, age = ? WHERE id = ?", "update")
	eq(t, s.DeleteSQL(), "DELETE FROM User WHERE id = ?", "delete")

	fields := s.Fields()
	if len(fields) != 2 || fields[0] != "name" || fields[1] != "age" {
		t.Fatalf("ordinary fields out of declaration order: %v", fields)
	}
	fields[0] = "mutated"
	if s.Fields()[0] != "name" {
		t.Fatal("Fields exposed internal slice")
	}
}

func TestDefine_PlaceholderCounts(t *testing.T) {
	tests := []struct {
		name   string
		fields []*Field
	}{
		{"key only", []*Field{IntegerField("id", PrimaryKey())}},
		{"one field", []*Field{StringField("k", PrimaryKey()), TextField("body")}},
		{"pk last", []*Field{BooleanField("a"), FloatField("b"), StringField("c"), IntegerField("id", PrimaryKey())}},
		{"many", []*Field{
			StringField("id", PrimaryKey()), StringField("a"), StringField("b"), IntegerField("c"),
			FloatField("d"), BooleanField("e"), TextField("f"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Define(Entity{Name: "T", Fields: tt.fields})
			if err != nil {
				t.Fatalf("Define: %v", err)
			}
			n := len(s.Fields())
			eq(t, strings.Count(s.SelectSQL(), "?"), 0, "select placeholders")
			eq(t, strings.Count(s.InsertSQL(), "?"), n+1, "insert placeholders")
			eq(t, strings.Count(s.UpdateSQL(), "?"), n+1, "update placeholders")
			eq(t, strings.Count(s.DeleteSQL(), "?"), 1, "delete placeholders")
		})
	}
}

func TestDefine_Errors(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		want   error
		field  string
	}{
		{"no primary key", Entity{Name: "A", Fields: []*Field{StringField("x")}}, ErrNoPrimaryKey, ""},
		{"no fields", Entity{Name: "A"}, ErrNoPrimaryKey, ""},
		{"two primary keys", Entity{Name: "A", Fields: []*Field{
			IntegerField("id", PrimaryKey()), StringField("code", PrimaryKey()),
		}}, ErrDuplicatePrimaryKey, "code"},
		{"duplicate name", Entity{Name: "A", Fields: []*Field{
			IntegerField("id", PrimaryKey()), StringField("x"), IntegerField("x"),
		}}, ErrDuplicateField, "x"},
		{"duplicate column", Entity{Name: "A", Fields: []*Field{
			IntegerField("id", PrimaryKey()), StringField("x"), StringField("y", Column("X")),
		}}, ErrDuplicateField, "y"},
		{"boolean key", Entity{Name: "A", Fields: []*Field{BooleanField("b", PrimaryKey())}}, ErrInvalidPrimaryKey, "b"},
		{"text key", Entity{Name: "A", Fields: []*Field{TextField("b", PrimaryKey())}}, ErrInvalidPrimaryKey, "b"},
		{"unnamed entity", Entity{Fields: []*Field{IntegerField("id", PrimaryKey())}}, ErrEmptyName, ""},
		{"unnamed field", Entity{Name: "A", Fields: []*Field{IntegerField("", PrimaryKey())}}, ErrEmptyName, ""},
		{"nil field", Entity{Name: "A", Fields: []*Field{nil}}, ErrEmptyName, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Define(tt.entity)
			if s != nil {
				t.Fatalf("expected no schema, got %v", s)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
			var se *SchemaError
			if !errors.As(err, &se) {
				t.Fatalf("want *SchemaError, got %T", err)
			}
			eq(t, se.Field, tt.field, "error field")
		})
	}
}

func TestMustDefine_Panics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNoPrimaryKey) {
			t.Fatalf("want panic with ErrNoPrimaryKey, got %v", r)
		}
	}()
	MustDefine(Entity{Name: "Broken", Fields: []*Field{StringField("x")}})
}

func TestDefine_TableAndColumnOverride(t *testing.T) {
	s, err := Define(Entity{
		Name:  "Blog",
		Table: "blogs",
		Fields: []*Field{
			StringField("id", PrimaryKey(), Column("blog_id")),
			StringField("userID", Column("user_id")),
			TextField("content"),
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	eq(t, s.SelectSQL(), "SELECT blog_id, user_id, content FROM blogs", "select")
	eq(t, s.InsertSQL(), "INSERT INTO blogs (user_id, content, blog_id) VALUES (?, ?, ?)", "insert")
	eq(t, s.UpdateSQL(), "UPDATE blogs SET user_id = ?, content = ? WHERE blog_id = ?", "update")
	eq(t, s.DeleteSQL(), "DELETE FROM blogs WHERE blog_id = ?", "delete")
	eq(t, s.String(), "<Schema Blog>: blogs", "String")
}

func TestDefine_KeyOnlyUpdateIsValid(t *testing.T) {
	s, err := Define(Entity{Name: "Tag", Fields: []*Field{StringField("name", PrimaryKey())}})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	eq(t, s.UpdateSQL(), "UPDATE Tag SET name = name WHERE name = ?", "update")
	eq(t, s.InsertSQL(), "INSERT INTO Tag (name) VALUES (?)", "insert")
}

func TestCreateTableSQL(t *testing.T) {
	s, err := Define(Entity{
		Name:  "User",
		Table: "users",
		Fields: []*Field{
			StringField("email", NotNull()),
			StringField("id", PrimaryKey(), ColumnType("varchar(50)")),
			BooleanField("admin"),
			FloatField("created_at"),
		},
	})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS users (id varchar(50) NOT NULL, email varchar(100) NOT NULL, " +
		"admin boolean, created_at real, PRIMARY KEY (id))"
	eq(t, s.CreateTableSQL(true), want, "ddl")
	if strings.Contains(s.CreateTableSQL(false), "IF NOT EXISTS") {
		t.Fatal("unexpected IF NOT EXISTS")
	}
}
