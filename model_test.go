package xmodel

import (
	"errors"
	"testing"
)

func TestModel_GetSet(t *testing.T) {
	s := userSchema(t)
	m, err := s.New(map[string]any{"id": 1, "name": "alice"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	eq(t, m.MustGet("name"), any("alice"), "name")
	eq(t, m.MustGet("age"), nil, "unset age")

	if err := m.Set("age", 30); err != nil {
		t.Fatalf("Set: %v", err)
	}
	eq(t, m.MustGet("age"), any(30), "age")

	vals := m.Values()
	vals["age"] = 99
	eq(t, m.MustGet("age"), any(30), "Values is a copy")
	eq(t, m.Schema(), s, "schema")
	eq(t, m.String(), "User{age: 30, id: 1, name: alice}", "String")
}

func TestModel_UnknownField(t *testing.T) {
	s := userSchema(t)

	_, err := s.New(map[string]any{"id": 1, "email": "x"})
	var fe *FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("want *FieldError, got %v", err)
	}
	eq(t, fe.Entity, "User", "entity")
	eq(t, fe.Field, "email", "field")
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("want ErrUnknownField, got %v", err)
	}

	m := s.MustNew(nil)
	if _, err := m.Get("email"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Get: want ErrUnknownField, got %v", err)
	}
	if err := m.Set("email", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("Set: want ErrUnknownField, got %v", err)
	}
	if _, err := m.ValueOrDefault("email"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("ValueOrDefault: want ErrUnknownField, got %v", err)
	}
}

func TestModel_ValueOrDefault(t *testing.T) {
	s := userSchema(t)
	m := s.MustNew(map[string]any{"id": 1})

	v, err := m.ValueOrDefault("name")
	if err != nil {
		t.Fatalf("ValueOrDefault: %v", err)
	}
	eq(t, v, any("anon"), "literal default")
	eq(t, m.MustGet("name"), any("anon"), "default written back")

	v, _ = m.ValueOrDefault("age")
	eq(t, v, any(int64(0)), "integer default")

	v, _ = m.ValueOrDefault("id")
	eq(t, v, any(1), "set value wins")
}

func TestModel_ValueOrDefault_GeneratorRunsOnce(t *testing.T) {
	calls := 0
	s, err := Define(Entity{Name: "Doc", Fields: []*Field{
		StringField("id", PrimaryKey(), DefaultFunc(func() any {
			calls++
			return "doc-" + string(rune('0'+calls))
		})),
		TextField("body"),
	}})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	a, b := s.MustNew(nil), s.MustNew(nil)
	first, _ := a.ValueOrDefault("id")
	again, _ := a.ValueOrDefault("id")
	eq(t, first, again, "idempotent")
	eq(t, calls, 1, "generator calls after repeat")

	other, _ := b.ValueOrDefault("id")
	if other == first {
		t.Fatalf("instances share a generated default: %v", other)
	}
	eq(t, calls, 2, "generator calls for second instance")

	body, _ := a.ValueOrDefault("body")
	eq(t, body, nil, "absent default stays nil")
}

func TestModel_ValueOrDefault_NilGeneratorRunsOnce(t *testing.T) {
	calls := 0
	s, err := Define(Entity{Name: "Note", Fields: []*Field{
		IntegerField("id", PrimaryKey()),
		StringField("tag", DefaultFunc(func() any {
			calls++
			return nil
		})),
	}})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}

	m := s.MustNew(map[string]any{"id": 1})
	for i := 0; i < 3; i++ {
		v, err := m.ValueOrDefault("tag")
		if err != nil {
			t.Fatalf("ValueOrDefault: %v", err)
		}
		eq(t, v, nil, "nil default")
	}
	eq(t, calls, 1, "generator calls")

	if err := m.Set("tag", nil); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := m.ValueOrDefault("tag"); err != nil {
		t.Fatalf("ValueOrDefault after Set: %v", err)
	}
	eq(t, calls, 2, "generator calls after Set")
}

func TestModel_NilValueTakesDefault(t *testing.T) {
	s := userSchema(t)
	m := s.MustNew(map[string]any{"id": 1, "name": nil})
	v, _ := m.ValueOrDefault("name")
	eq(t, v, any("anon"), "nil treated as unset")
}

func TestSchema_FromRow(t *testing.T) {
	s, err := Define(Entity{Name: "User", Fields: []*Field{
		IntegerField("id", PrimaryKey()),
		StringField("name"),
		BooleanField("admin"),
		FloatField("score", Column("Score_Col")),
	}})
	if err != nil {
		t.Fatalf("Define: %v", err)
	}
	m, err := s.fromRow(Row{
		"id":        int64(3),
		"name":      []byte("bob"),
		"admin":     int64(1),
		"score_col": []byte("2.5"),
		"extra":     "ignored",
	})
	if err != nil {
		t.Fatalf("fromRow: %v", err)
	}
	eq(t, m.MustGet("id"), any(int64(3)), "id")
	eq(t, m.MustGet("name"), any("bob"), "name")
	eq(t, m.MustGet("admin"), any(true), "admin")
	eq(t, m.MustGet("score"), any(2.5), "score")
	if len(m.Values()) != 4 {
		t.Fatalf("unexpected values: %v", m.Values())
	}
}
