// AngelaMos | 2026
// client.go

package backend

import (
	"context"
	"io"
	"time"
)

// Identity is the authenticated principal as the auth service reports it.
type Identity struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata"`
}

// MetadataString returns Metadata[key] when it is a non-empty string.
func (i Identity) MetadataString(key string) string {
	if i.Metadata == nil {
		return ""
	}
	if v, ok := i.Metadata[key].(string); ok {
		return v
	}
	return ""
}

type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         Identity
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type SignUpParams struct {
	Email    string
	Password string
	Metadata map[string]any
}

// SignUpResult carries the created identity. Session is nil when the
// deployment requires email confirmation before the first sign-in.
type SignUpResult struct {
	User    Identity
	Session *Session
}

type AuthAPI interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ProfileRow is a row of the users table.
type ProfileRow struct {
	ID        string     `json:"id"                   db:"id"`
	FullName  string     `json:"full_name"            db:"full_name"`
	Email     string     `json:"email"                db:"email"`
	Role      string     `json:"role"                 db:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ProfileStore reads and writes profile rows. GetProfile wraps
// core.ErrNotFound when the row does not exist.
type ProfileStore interface {
	GetProfile(ctx context.Context, id string) (*ProfileRow, error)
	InsertProfile(ctx context.Context, row ProfileRow) error
	UpsertProfile(ctx context.Context, row ProfileRow) error
}

// BookRow is a row of the books table.
type BookRow struct {
	ID            string    `json:"id"              db:"id"`
	Title         string    `json:"title"           db:"title"`
	Subject       string    `json:"subject"         db:"subject"`
	Semester      int       `json:"semester"        db:"semester"`
	Author        *string   `json:"author"          db:"author"`
	CoverImageURL *string   `json:"cover_image_url" db:"cover_image_url"`
	PDFURL        string    `json:"pdf_url"         db:"pdf_url"`
	FilePath      *string   `json:"file_path"       db:"file_path"`
	FileSize      *int64    `json:"file_size"       db:"file_size"`
	UploadedBy    *string   `json:"uploaded_by"     db:"uploaded_by"`
	CreatedAt     time.Time `json:"created_at"      db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"      db:"updated_at"`
}

type BookInsert struct {
	Title         string  `json:"title"`
	Subject       string  `json:"subject"`
	Semester      int     `json:"semester"`
	Author        *string `json:"author,omitempty"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`
	PDFURL        string  `json:"pdf_url"`
	FilePath      *string `json:"file_path,omitempty"`
	FileSize      *int64  `json:"file_size,omitempty"`
	UploadedBy    string  `json:"uploaded_by"`
}

// BookStore lists books newest first.
type BookStore interface {
	ListBooks(ctx context.Context) ([]BookRow, error)
	InsertBook(ctx context.Context, book BookInsert) (*BookRow, error)
	DeleteBook(ctx context.Context, id string) error
	CountBooks(ctx context.Context) (int, error)
}

type ObjectStore interface {
	// Configured is false when no bucket is set.
	Configured() bool
	Upload(
		ctx context.Context,
		path, contentType string,
		body io.Reader,
		size int64,
	) error
	PublicURL(path string) string
}

// Client is the capability set StudyVault needs from its backend.
type Client interface {
	Connected() bool
	Auth() AuthAPI
	Profiles() ProfileStore
	Books() BookStore
	Storage() ObjectStore
	Ping(ctx context.Context) error
}

type accessTokenKey struct{}

// WithAccessToken makes row and storage calls made with ctx run as the
// signed-in user instead of the anonymous role.
func WithAccessToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, accessTokenKey{}, token)
}

func AccessToken(ctx context.Context) string {
	if token, ok := ctx.Value(accessTokenKey{}).(string); ok {
		return token
	}
	return ""
}

type rowOverride struct {
	Client
	profiles ProfileStore
	books    BookStore
}

// WithRowStores returns c with its row stores replaced, e.g. by direct
// database repositories. Nil stores keep c's own.
func WithRowStores(c Client, profiles ProfileStore, books BookStore) Client {
	o := &rowOverride{Client: c, profiles: c.Profiles(), books: c.Books()}
	if profiles != nil {
		o.profiles = profiles
	}
	if books != nil {
		o.books = books
	}
	return o
}

func (o *rowOverride) Profiles() ProfileStore { return o.profiles }
func (o *rowOverride) Books() BookStore       { return o.books }
