// Package blog is a small blogging backend built on xmodel: users, blogs and
// comments, with handlers that take loosely typed arguments the way a web
// form or JSON body delivers them.
package blog

import (
	"time"

	"github.com/go-mizu/xmodel"
)

// Users, Blogs and Comments are the persisted entities. Ids are UUIDv7
// strings and created_at is the unix time in fractional seconds.
var (
	Users = xmodel.MustDefine(xmodel.Entity{Name: "User", Table: "users", Fields: []*xmodel.Field{
		idField(),
		xmodel.StringField("email", xmodel.ColumnType("varchar(50)"), xmodel.NotNull()),
		xmodel.StringField("passwd", xmodel.ColumnType("varchar(100)"), xmodel.NotNull()),
		xmodel.BooleanField("admin"),
		xmodel.StringField("name", xmodel.ColumnType("varchar(50)")),
		xmodel.StringField("image", xmodel.ColumnType("varchar(500)")),
		createdAtField(),
	}})

	Blogs = xmodel.MustDefine(xmodel.Entity{Name: "Blog", Table: "blogs", Fields: []*xmodel.Field{
		idField(),
		xmodel.StringField("user_id", xmodel.ColumnType("varchar(50)"), xmodel.NotNull()),
		xmodel.StringField("user_name", xmodel.ColumnType("varchar(50)")),
		xmodel.StringField("user_image", xmodel.ColumnType("varchar(500)")),
		xmodel.StringField("name", xmodel.ColumnType("varchar(50)")),
		xmodel.StringField("summary", xmodel.ColumnType("varchar(200)")),
		xmodel.TextField("content"),
		createdAtField(),
	}})

	Comments = xmodel.MustDefine(xmodel.Entity{Name: "Comment", Table: "comments", Fields: []*xmodel.Field{
		idField(),
		xmodel.StringField("blog_id", xmodel.ColumnType("varchar(50)"), xmodel.NotNull()),
		xmodel.StringField("user_id", xmodel.ColumnType("varchar(50)"), xmodel.NotNull()),
		xmodel.StringField("user_name", xmodel.ColumnType("varchar(50)")),
		xmodel.StringField("user_image", xmodel.ColumnType("varchar(500)")),
		xmodel.TextField("content"),
		createdAtField(),
	}})
)

// Schemas lists the entities in dependency order.
func Schemas() []*xmodel.Schema { return []*xmodel.Schema{Users, Blogs, Comments} }

func idField() *xmodel.Field {
	return xmodel.StringField("id", xmodel.PrimaryKey(), xmodel.UUIDDefault(), xmodel.ColumnType("varchar(50)"))
}

func createdAtField() *xmodel.Field {
	return xmodel.FloatField("created_at", xmodel.DefaultFunc(unixNow))
}

func unixNow() any { return float64(time.Now().UnixMicro()) / 1e6 }

// User is the public view of a users row. Passwd is never decoded into it.
type User struct {
	ID        string  `db:"id" json:"id"`
	Email     string  `db:"email" json:"email"`
	Admin     bool    `db:"admin" json:"admin"`
	Name      string  `db:"name" json:"name"`
	Image     string  `db:"image" json:"image"`
	CreatedAt float64 `db:"created_at" json:"created_at"`
}

type Blog struct {
	ID        string  `db:"id" json:"id"`
	UserID    string  `db:"user_id" json:"user_id"`
	UserName  string  `db:"user_name" json:"user_name"`
	UserImage string  `db:"user_image" json:"user_image"`
	Name      string  `db:"name" json:"name"`
	Summary   string  `db:"summary" json:"summary"`
	Content   string  `db:"content" json:"content"`
	CreatedAt float64 `db:"created_at" json:"created_at"`
}

type Comment struct {
	ID        string  `db:"id" json:"id"`
	BlogID    string  `db:"blog_id" json:"blog_id"`
	UserID    string  `db:"user_id" json:"user_id"`
	UserName  string  `db:"user_name" json:"user_name"`
	UserImage string  `db:"user_image" json:"user_image"`
	Content   string  `db:"content" json:"content"`
	CreatedAt float64 `db:"created_at" json:"created_at"`
}

func decodeAll[T any](models []*xmodel.Model) ([]T, error) {
	out := make([]T, 0, len(models))
	for _, m := range models {
		var v T
		if err := m.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
