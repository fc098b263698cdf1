package blog

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cast"
	"golang.org/x/crypto/bcrypt"

	"github.com/go-mizu/xmodel"
)

// Handler is the inbound shape of every service operation: arguments arrive
// as a loosely typed map (query string, form or JSON body) and the result is
// serialized by the caller.
type Handler func(ctx context.Context, args map[string]any) (any, error)

var reEmail = regexp.MustCompile(`^[a-z0-9.\-_]+@[a-z0-9\-_]+(\.[a-z0-9\-_]+){1,4}$`)

// Service implements the blog operations on top of an xmodel executor.
type Service struct {
	db         xmodel.Executor
	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTokenTTL sets how long issued tokens stay valid. Default 24h.
func WithTokenTTL(d time.Duration) Option { return func(s *Service) { s.tokenTTL = d } }

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option { return func(s *Service) { s.bcryptCost = cost } }

// WithLogger sets the service logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// NewService returns a Service storing rows through db and signing tokens
// with secret.
func NewService(db xmodel.Executor, secret []byte, opts ...Option) *Service {
	s := &Service{
		db:         db,
		secret:     secret,
		tokenTTL:   24 * time.Hour,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handlers maps operation names to their handlers.
func (s *Service) Handlers() map[string]Handler {
	return map[string]Handler{
		"register":       s.Register,
		"authenticate":   s.Authenticate,
		"create_blog":    s.CreateBlog,
		"list_blogs":     s.ListBlogs,
		"get_blog":       s.GetBlog,
		"delete_blog":    s.DeleteBlog,
		"create_comment": s.CreateComment,
	}
}

// Register creates a user from email, name and passwd.
func (s *Service) Register(ctx context.Context, args map[string]any) (any, error) {
	email := strings.ToLower(stringArg(args, "email"))
	name := stringArg(args, "name")
	passwd := stringArg(args, "passwd")
	switch {
	case name == "":
		return nil, invalidValue("name", "name is required")
	case !reEmail.MatchString(email):
		return nil, invalidValue("email", "email is invalid")
	case passwd == "":
		return nil, invalidValue("passwd", "password is required")
	}

	existing, err := Users.FindAll(ctx, s.db, xmodel.Query{Where: "email = ?", Args: []any{email}, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("looking up user %s: %w", email, err)
	}
	if len(existing) > 0 {
		return nil, &APIError{Code: CodeRegisterFailed, Field: "email", Message: "email is already in use"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passwd), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	sum := md5.Sum([]byte(email))
	u := Users.MustNew(map[string]any{
		"email":  email,
		"name":   name,
		"passwd": string(hash),
		"image":  "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=mm&s=120",
	})
	if _, err := u.Save(ctx, s.db); err != nil {
		return nil, fmt.Errorf("saving user %s: %w", email, err)
	}
	s.logger.Info("blog: user registered", "email", email)

	var out User
	if err := u.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Authenticate checks email and passwd and issues a signed token.
func (s *Service) Authenticate(ctx context.Context, args map[string]any) (any, error) {
	email := strings.ToLower(stringArg(args, "email"))
	passwd := stringArg(args, "passwd")
	if email == "" {
		return nil, invalidValue("email", "email is required")
	}
	if passwd == "" {
		return nil, invalidValue("passwd", "password is required")
	}

	found, err := Users.FindAll(ctx, s.db, xmodel.Query{Where: "email = ?", Args: []any{email}, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("looking up user %s: %w", email, err)
	}
	if len(found) == 0 {
		return nil, &APIError{Code: CodeSigninFailed, Field: "email", Message: "email not found"}
	}
	u := found[0]
	hash := cast.ToString(u.MustGet("passwd"))
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(passwd)); err != nil {
		return nil, &APIError{Code: CodeSigninFailed, Field: "passwd", Message: "invalid password"}
	}

	var user User
	if err := u.Decode(&user); err != nil {
		return nil, err
	}
	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"token": token, "user": user}, nil
}

// CreateBlog stores a blog written by the admin identified by token.
func (s *Service) CreateBlog(ctx context.Context, args map[string]any) (any, error) {
	author, err := s.requireAdmin(ctx, args)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(stringArg(args, "name"))
	summary := strings.TrimSpace(stringArg(args, "summary"))
	content := strings.TrimSpace(stringArg(args, "content"))
	switch {
	case name == "":
		return nil, invalidValue("name", "name cannot be empty")
	case summary == "":
		return nil, invalidValue("summary", "summary cannot be empty")
	case content == "":
		return nil, invalidValue("content", "content cannot be empty")
	}

	b := Blogs.MustNew(map[string]any{
		"user_id":    author.ID,
		"user_name":  author.Name,
		"user_image": author.Image,
		"name":       name,
		"summary":    summary,
		"content":    content,
	})
	if _, err := b.Save(ctx, s.db); err != nil {
		return nil, fmt.Errorf("saving blog: %w", err)
	}
	var out Blog
	if err := b.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// BlogList is one page of blogs, newest first.
type BlogList struct {
	Page  Page   `json:"page"`
	Blogs []Blog `json:"blogs"`
}

// ListBlogs returns the page selected by the optional page and size args.
func (s *Service) ListBlogs(ctx context.Context, args map[string]any) (any, error) {
	index, err := intArg(args, "page", 1)
	if err != nil {
		return nil, err
	}
	size, err := intArg(args, "size", DefaultPageSize)
	if err != nil {
		return nil, err
	}

	n, err := Blogs.FindNumber(ctx, s.db, "count(id)", "")
	if err != nil {
		return nil, fmt.Errorf("counting blogs: %w", err)
	}
	count, err := cast.ToIntE(n)
	if err != nil {
		return nil, fmt.Errorf("counting blogs: %w", err)
	}
	page := NewPage(count, index, size)
	out := BlogList{Page: page, Blogs: []Blog{}}
	if page.Empty() {
		return out, nil
	}

	models, err := Blogs.FindAll(ctx, s.db, xmodel.Query{OrderBy: "created_at desc", Limit: page.LimitArg()})
	if err != nil {
		return nil, fmt.Errorf("listing blogs: %w", err)
	}
	if out.Blogs, err = decodeAll[Blog](models); err != nil {
		return nil, err
	}
	return out, nil
}

// BlogDetail is a blog with its comments, newest first.
type BlogDetail struct {
	Blog     Blog      `json:"blog"`
	Comments []Comment `json:"comments"`
}

// GetBlog returns the blog with the given id and its comments.
func (s *Service) GetBlog(ctx context.Context, args map[string]any) (any, error) {
	id := stringArg(args, "id")
	if id == "" {
		return nil, invalidValue("id", "id is required")
	}
	b, err := s.findBlog(ctx, id)
	if err != nil {
		return nil, err
	}
	var out BlogDetail
	if err := b.Decode(&out.Blog); err != nil {
		return nil, err
	}
	comments, err := Comments.FindAll(ctx, s.db, xmodel.Query{
		Where:   "blog_id = :blog_id",
		Named:   map[string]any{"blog_id": id},
		OrderBy: "created_at desc",
	})
	if err != nil {
		return nil, fmt.Errorf("listing comments of %s: %w", id, err)
	}
	if out.Comments, err = decodeAll[Comment](comments); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteBlog removes a blog. Only admins may delete.
func (s *Service) DeleteBlog(ctx context.Context, args map[string]any) (any, error) {
	if _, err := s.requireAdmin(ctx, args); err != nil {
		return nil, err
	}
	id := stringArg(args, "id")
	if id == "" {
		return nil, invalidValue("id", "id is required")
	}
	b, err := s.findBlog(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := b.Delete(ctx, s.db); err != nil {
		return nil, fmt.Errorf("deleting blog %s: %w", id, err)
	}
	return map[string]any{"id": id}, nil
}

// CreateComment adds a comment by the token's user to blog_id.
func (s *Service) CreateComment(ctx context.Context, args map[string]any) (any, error) {
	author, err := s.requireUser(ctx, args)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(stringArg(args, "content"))
	if content == "" {
		return nil, invalidValue("content", "content cannot be empty")
	}
	blogID := stringArg(args, "blog_id")
	if _, err := s.findBlog(ctx, blogID); err != nil {
		return nil, err
	}

	c := Comments.MustNew(map[string]any{
		"blog_id":    blogID,
		"user_id":    author.ID,
		"user_name":  author.Name,
		"user_image": author.Image,
		"content":    content,
	})
	if _, err := c.Save(ctx, s.db); err != nil {
		return nil, fmt.Errorf("saving comment: %w", err)
	}
	var out Comment
	if err := c.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// GrantAdmin marks the user with the given email as an admin. It is an
// operator action and takes no token.
func (s *Service) GrantAdmin(ctx context.Context, email string) error {
	found, err := Users.FindAll(ctx, s.db, xmodel.Query{Where: "email = ?", Args: []any{strings.ToLower(email)}, Limit: 1})
	if err != nil {
		return fmt.Errorf("looking up user %s: %w", email, err)
	}
	if len(found) == 0 {
		return notFound("email", "no user with email "+email)
	}
	u := found[0]
	if err := u.Set("admin", true); err != nil {
		return err
	}
	if _, err := u.Update(ctx, s.db); err != nil {
		return fmt.Errorf("updating user %s: %w", email, err)
	}
	s.logger.Info("blog: admin granted", "email", email)
	return nil
}

func (s *Service) findBlog(ctx context.Context, id string) (*xmodel.Model, error) {
	b, err := Blogs.Find(ctx, s.db, id)
	if errors.Is(err, xmodel.ErrNotFound) {
		return nil, notFound("blog", "blog "+id+" not found")
	}
	if err != nil {
		return nil, fmt.Errorf("finding blog %s: %w", id, err)
	}
	return b, nil
}

func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(s.tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT token: %w", err)
	}
	return signed, nil
}

// requireUser resolves the token argument to a stored user.
func (s *Service) requireUser(ctx context.Context, args map[string]any) (User, error) {
	raw := stringArg(args, "token")
	if raw == "" {
		return User{}, forbidden("sign in required")
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		s.logger.Debug("blog: rejected token", "error", err)
		return User{}, forbidden("invalid token")
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return User{}, forbidden("invalid token")
	}

	m, err := Users.Find(ctx, s.db, sub)
	if errors.Is(err, xmodel.ErrNotFound) {
		return User{}, forbidden("unknown user")
	}
	if err != nil {
		return User{}, fmt.Errorf("finding user %s: %w", sub, err)
	}
	var u User
	if err := m.Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Service) requireAdmin(ctx context.Context, args map[string]any) (User, error) {
	u, err := s.requireUser(ctx, args)
	if err != nil {
		return User{}, err
	}
	if !u.Admin {
		return User{}, forbidden("admin required")
	}
	return u, nil
}

func stringArg(args map[string]any, key string) string {
	return cast.ToString(args[key])
}

func intArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil || v == "" {
		return def, nil
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, invalidValue(key, "must be an integer")
	}
	return n, nil
}
