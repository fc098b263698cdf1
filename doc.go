/*
Package xmodel is a minimal object-relational mapping layer over database/sql.
You declare an entity as a list of typed fields; xmodel compiles the SELECT,
INSERT, UPDATE and DELETE statements once and runs them through a bounded,
shared connection pool.

# Declaring entities

An entity is a name, an optional table, and fields in declaration order.
Exactly one field is the primary key:

	var User = xmodel.MustDefine(xmodel.Entity{
	    Name: "User",
	    Fields: []*xmodel.Field{
	        xmodel.IntegerField("id", xmodel.PrimaryKey()),
	        xmodel.StringField("name", xmodel.DefaultValue("anon")),
	        xmodel.IntegerField("age"),
	    },
	})

Define reports a missing or duplicate primary key as a *SchemaError; with
MustDefine in a package-level var the program fails at start-up, before any
row exists. The compiled *Schema is immutable.

Field kinds fix the storage type and a default: StringField (varchar(100),
none), BooleanField (boolean, false), IntegerField (bigint, 0), FloatField
(real, 0.0) and TextField (text, none). A default is a literal or a
generator (DefaultFunc, UUIDDefault) that runs once per row.

# Rows

A *Model holds one row's values by field name. Get and Set reject names the
entity does not declare with a *FieldError. ValueOrDefault fills an unset
field from its default and keeps the result, so generated ids are stable.

# Pool and statements

Open builds a *Pool from a Config (LoadConfig reads one with viper). The pool
caps live connections at MaxSize; Acquire blocks beyond that until a
connection is released or the context ends. Select and Execute take ?
placeholders, rewrite them for the driver, log the statement, and always give
the connection back, also when the driver fails or the context is cancelled.
Driver errors are returned unchanged and never retried.

# CRUD

	u := User.MustNew(map[string]any{"id": 1, "name": "alice"})
	if _, err := u.Save(ctx, pool); err != nil { ... }   // age saved as 0
	got, err := User.Find(ctx, pool, 1)                  // ErrNotFound if absent
	page, err := User.FindAll(ctx, pool, xmodel.Query{OrderBy: "id", Limit: [2]int{10, 5}})
	n, err := User.FindNumber(ctx, pool, "count(id)", "age > ?", 18)

Query.Where may use :name parameters bound from Query.Named (see BindNamed).
Model.Decode copies a row into a struct and Schema.Encode builds a row from
one, matching fields by db tag or name.

Save, Update and Delete expect exactly one affected row. Any other count is
an anomaly: by default it is logged at warn level and the call succeeds with
the count returned; with AnomalyFail (Config.Strict) it is an *AnomalyError.

xmodel does not do joins, transactions, migrations or identity caching, and
it rewrites nothing but placeholders.
*/
package xmodel
