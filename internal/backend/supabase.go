// AngelaMos | 2026
// supabase.go

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/studyvault/studyvault/internal/config"
	"github.com/studyvault/studyvault/internal/core"
)

const (
	mediaSingleObject = "application/vnd.pgrst.object+json"
	maxErrorBody      = 64 * 1024
)

// Supabase talks to a Supabase-compatible deployment over its REST
// surfaces: GoTrue under /auth/v1, PostgREST under /rest/v1 and Storage
// under /storage/v1.
type Supabase struct {
	baseURL string
	anonKey string
	bucket  string
	http    *http.Client
}

type Option func(*Supabase)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Supabase) {
		s.http = c
	}
}

// New returns the HTTP client when cfg carries both connection parameters
// and the disconnected stub otherwise.
func New(cfg config.BackendConfig, opts ...Option) Client {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return Disconnected()
	}
	return NewSupabase(cfg, opts...)
}

func NewSupabase(cfg config.BackendConfig, opts ...Option) *Supabase {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Supabase{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		bucket:  cfg.Bucket,
		http:    &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Supabase) Connected() bool        { return true }
func (s *Supabase) Auth() AuthAPI          { return supabaseAuth{s} }
func (s *Supabase) Profiles() ProfileStore { return supabaseProfiles{s} }
func (s *Supabase) Books() BookStore       { return supabaseBooks{s} }
func (s *Supabase) Storage() ObjectStore   { return supabaseStorage{s} }

func (s *Supabase) Ping(ctx context.Context) error {
	_, err := s.do(ctx, request{method: http.MethodHead, path: "/rest/v1/"})
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
		return nil
	}
	return err
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	raw     io.Reader
	size    int64
	headers map[string]string
	bearer  string
	out     any
}

type response struct {
	status int
	header http.Header
}

func (s *Supabase) do(ctx context.Context, req request) (_ *response, err error) {
	ctx, span := core.StartSpan(ctx, "backend "+req.method+" "+req.path,
		attribute.String("http.method", req.method),
		attribute.String("backend.path", req.path),
	)
	defer func() { core.EndSpan(span, err) }()

	target := s.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	switch {
	case req.raw != nil:
		body = req.raw
	case req.body != nil:
		payload, marshalErr := json.Marshal(req.body)
		if marshalErr != nil {
			return nil, fmt.Errorf("encode request: %w", marshalErr)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	bearer := req.bearer
	if bearer == "" {
		bearer = AccessToken(ctx)
	}
	if bearer == "" {
		bearer = s.anonKey
	}

	httpReq.Header.Set("apikey", s.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}
	if req.size > 0 {
		httpReq.ContentLength = req.size
	}

	resp, err := s.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // partial body is fine for diagnostics
		return nil, decodeError(resp.StatusCode, data)
	}

	if req.out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(req.out); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
		}
	}

	return &response{status: resp.StatusCode, header: resp.Header}, nil
}

type supabaseAuth struct{ s *Supabase }

type tokenResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"`
	ExpiresAt    int64    `json:"expires_at"`
	User         Identity `json:"user"`
}

func (t *tokenResponse) session() *Session {
	sess := &Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         t.User,
	}
	switch {
	case t.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		sess.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return sess
}

func (a supabaseAuth) SignInWithPassword(
	ctx context.Context,
	email, password string,
) (*Session, error) {
	var out tokenResponse
	_, err := a.s.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
		bearer: a.s.anonKey,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return out.session(), nil
}

func (a supabaseAuth) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var out tokenResponse
	_, err := a.s.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
		bearer: a.s.anonKey,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return out.session(), nil
}

// signUpResponse is a token response when the deployment auto-confirms and
// a bare user object when it does not.
type signUpResponse struct {
	tokenResponse
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata"`
}

func (a supabaseAuth) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	var out signUpResponse
	_, err := a.s.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body: map[string]any{
			"email":    params.Email,
			"password": params.Password,
			"data":     params.Metadata,
		},
		bearer: a.s.anonKey,
		out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	if out.AccessToken != "" {
		sess := out.session()
		return &SignUpResult{User: sess.User, Session: sess}, nil
	}

	return &SignUpResult{
		User: Identity{ID: out.ID, Email: out.Email, Metadata: out.Metadata},
	}, nil
}

func (a supabaseAuth) SignOut(ctx context.Context, accessToken string) error {
	_, err := a.s.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/logout",
		bearer: accessToken,
	})
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

type supabaseProfiles struct{ s *Supabase }

func (p supabaseProfiles) GetProfile(ctx context.Context, id string) (*ProfileRow, error) {
	var row ProfileRow
	_, err := p.s.do(ctx, request{
		method:  http.MethodGet,
		path:    "/rest/v1/users",
		query:   url.Values{"id": {"eq." + id}, "select": {"*"}},
		headers: map[string]string{"Accept": mediaSingleObject},
		out:     &row,
	})
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &row, nil
}

func (p supabaseProfiles) InsertProfile(ctx context.Context, row ProfileRow) error {
	_, err := p.s.do(ctx, request{
		method:  http.MethodPost,
		path:    "/rest/v1/users",
		body:    row,
		headers: map[string]string{"Prefer": "return=minimal"},
	})
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (p supabaseProfiles) UpsertProfile(ctx context.Context, row ProfileRow) error {
	now := time.Now().UTC()
	row.UpdatedAt = &now

	_, err := p.s.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/users",
		query:  url.Values{"on_conflict": {"id"}},
		body:   row,
		headers: map[string]string{
			"Prefer": "resolution=merge-duplicates,return=minimal",
		},
	})
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

type supabaseBooks struct{ s *Supabase }

func (b supabaseBooks) ListBooks(ctx context.Context) ([]BookRow, error) {
	var rows []BookRow
	_, err := b.s.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/books",
		query:  url.Values{"select": {"*"}, "order": {"created_at.desc"}},
		out:    &rows,
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return rows, nil
}

func (b supabaseBooks) InsertBook(ctx context.Context, book BookInsert) (*BookRow, error) {
	var row BookRow
	_, err := b.s.do(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/books",
		query:  url.Values{"select": {"*"}},
		body:   book,
		headers: map[string]string{
			"Prefer": "return=representation",
			"Accept": mediaSingleObject,
		},
		out: &row,
	})
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	return &row, nil
}

func (b supabaseBooks) DeleteBook(ctx context.Context, id string) error {
	_, err := b.s.do(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/books",
		query:  url.Values{"id": {"eq." + id}},
	})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

func (b supabaseBooks) CountBooks(ctx context.Context) (int, error) {
	resp, err := b.s.do(ctx, request{
		method:  http.MethodHead,
		path:    "/rest/v1/books",
		query:   url.Values{"select": {"id"}},
		headers: map[string]string{"Prefer": "count=exact"},
	})
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return parseContentRangeTotal(resp.header.Get("Content-Range"))
}

// parseContentRangeTotal reads the total from "0-24/3573" or "*/0".
func parseContentRangeTotal(header string) (int, error) {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0, fmt.Errorf("count books: missing content range")
	}
	total, err := strconv.Atoi(header[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("count books: parse content range %q: %w", header, err)
	}
	return total, nil
}

type supabaseStorage struct{ s *Supabase }

func (st supabaseStorage) Configured() bool {
	return st.s.bucket != ""
}

func (st supabaseStorage) Upload(
	ctx context.Context,
	path, contentType string,
	body io.Reader,
	size int64,
) error {
	_, err := st.s.do(ctx, request{
		method: http.MethodPost,
		path:   "/storage/v1/object/" + st.s.bucket + "/" + strings.TrimLeft(path, "/"),
		raw:    body,
		size:   size,
		headers: map[string]string{
			"Content-Type":  contentType,
			"Cache-Control": "3600",
			"x-upsert":      "false",
		},
	})
	if err != nil {
		return fmt.Errorf("upload object: %w", err)
	}
	return nil
}

func (st supabaseStorage) PublicURL(path string) string {
	return st.s.baseURL + "/storage/v1/object/public/" + st.s.bucket + "/" +
		strings.TrimLeft(path, "/")
}
