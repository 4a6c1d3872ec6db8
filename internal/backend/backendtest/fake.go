// AngelaMos | 2026
// fake.go

// Package backendtest provides an in-memory backend.Client for tests.
package backendtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/studyvault/studyvault/internal/backend"
)

type account struct {
	identity  backend.Identity
	password  string
	confirmed bool
}

// Fake emulates the auth service, the users and books tables and a storage
// bucket. The exported knobs must be set before the fake is shared.
type Fake struct {
	// ProfileDelay stalls GetProfile, honouring ctx.
	ProfileDelay time.Duration
	// ProfileErr, when set, is returned by GetProfile.
	ProfileErr error
	// UpsertErr, when set, is returned by UpsertProfile.
	UpsertErr error
	// ListErr, when set, is returned by ListBooks.
	ListErr error
	// ListDelay stalls ListBooks, honouring ctx.
	ListDelay time.Duration
	// DenyBookWrites rejects book inserts with a row-level security error.
	DenyBookWrites bool
	// RequireConfirmation makes SignUp return no session.
	RequireConfirmation bool
	// Bucket enables the storage bucket.
	Bucket bool
	// SessionTTL is the lifetime of issued sessions; zero means one hour.
	SessionTTL time.Duration
	// RefreshDelay stalls Refresh, honouring ctx.
	RefreshDelay time.Duration

	mu       sync.Mutex
	accounts map[string]*account
	profiles map[string]backend.ProfileRow
	books    []backend.BookRow
	objects  map[string][]byte
	access   map[string]string
	refresh  map[string]string
	seq      int
	signOuts  int
	upserts   int
	refreshes int
}

func New() *Fake {
	return &Fake{
		accounts: make(map[string]*account),
		profiles: make(map[string]backend.ProfileRow),
		objects:  make(map[string][]byte),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
	}
}

// AddAccount registers a confirmed account and returns its identity.
func (f *Fake) AddAccount(email, password string, metadata map[string]any) backend.Identity {
	return f.addAccount(email, password, metadata, true)
}

func (f *Fake) AddUnconfirmedAccount(email, password string) backend.Identity {
	return f.addAccount(email, password, nil, false)
}

func (f *Fake) addAccount(email, password string, metadata map[string]any, confirmed bool) backend.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	ident := backend.Identity{
		ID:       fmt.Sprintf("00000000-0000-4000-8000-%012d", f.seq),
		Email:    email,
		Metadata: metadata,
	}
	f.accounts[strings.ToLower(email)] = &account{
		identity:  ident,
		password:  password,
		confirmed: confirmed,
	}
	return ident
}

func (f *Fake) SetProfile(row backend.ProfileRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[row.ID] = row
}

func (f *Fake) Profile(id string) (backend.ProfileRow, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.profiles[id]
	return row, ok
}

func (f *Fake) ProfileCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles)
}

func (f *Fake) Upserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *Fake) SignOuts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}

// SeedBooks stores rows as if they had been inserted in the given order.
func (f *Fake) SeedBooks(rows ...backend.BookRow) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, row := range rows {
		f.seq++
		if row.ID == "" {
			row.ID = fmt.Sprintf("book-%d", f.seq)
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Date(2025, 1, 1, 0, 0, f.seq, 0, time.UTC)
		}
		f.books = append(f.books, row)
	}
}

func (f *Fake) Object(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[path]
	return data, ok
}

func (f *Fake) Connected() bool                { return true }
func (f *Fake) Auth() backend.AuthAPI          { return f }
func (f *Fake) Profiles() backend.ProfileStore { return f }
func (f *Fake) Books() backend.BookStore       { return f }
func (f *Fake) Storage() backend.ObjectStore   { return f }

func (f *Fake) Ping(context.Context) error { return nil }

func (f *Fake) SignInWithPassword(_ context.Context, email, password string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	acct, ok := f.accounts[strings.ToLower(email)]
	if !ok || acct.password != password {
		return nil, &backend.Error{
			Status:  http.StatusBadRequest,
			Code:    "invalid_credentials",
			Message: "Invalid login credentials",
		}
	}
	if !acct.confirmed {
		return nil, &backend.Error{
			Status:  http.StatusBadRequest,
			Code:    "email_not_confirmed",
			Message: "Email not confirmed",
		}
	}

	return f.issueLocked(acct.identity), nil
}

func (f *Fake) SignUp(_ context.Context, params backend.SignUpParams) (*backend.SignUpResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.Contains(params.Email, "@") {
		return nil, &backend.Error{
			Status:  http.StatusBadRequest,
			Code:    "email_address_invalid",
			Message: "Unable to validate email address: invalid format",
		}
	}
	if len(params.Password) < 6 {
		return nil, &backend.Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    "weak_password",
			Message: "Password should be at least 6 characters.",
		}
	}
	if _, exists := f.accounts[strings.ToLower(params.Email)]; exists {
		return nil, &backend.Error{
			Status:  http.StatusUnprocessableEntity,
			Code:    "user_already_exists",
			Message: "User already registered",
		}
	}

	f.seq++
	ident := backend.Identity{
		ID:       fmt.Sprintf("00000000-0000-4000-8000-%012d", f.seq),
		Email:    params.Email,
		Metadata: params.Metadata,
	}
	f.accounts[strings.ToLower(params.Email)] = &account{
		identity:  ident,
		password:  params.Password,
		confirmed: !f.RequireConfirmation,
	}

	if f.RequireConfirmation {
		return &backend.SignUpResult{User: ident}, nil
	}

	sess := f.issueLocked(ident)
	return &backend.SignUpResult{User: ident, Session: sess}, nil
}

// Refreshes counts Refresh calls, including rejected ones.
func (f *Fake) Refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *Fake) Refresh(ctx context.Context, refreshToken string) (*backend.Session, error) {
	f.mu.Lock()
	delay := f.RefreshDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.refreshes++

	userID, ok := f.refresh[refreshToken]
	if !ok {
		return nil, &backend.Error{
			Status:  http.StatusBadRequest,
			Code:    "refresh_token_not_found",
			Message: "Invalid Refresh Token: Refresh Token Not Found",
		}
	}
	delete(f.refresh, refreshToken)

	for _, acct := range f.accounts {
		if acct.identity.ID == userID {
			return f.issueLocked(acct.identity), nil
		}
	}
	return nil, &backend.Error{Status: http.StatusNotFound, Message: "User not found"}
}

func (f *Fake) SignOut(_ context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.signOuts++
	userID := f.access[accessToken]
	delete(f.access, accessToken)
	for token, id := range f.refresh {
		if id == userID {
			delete(f.refresh, token)
		}
	}
	return nil
}

func (f *Fake) issueLocked(ident backend.Identity) *backend.Session {
	f.seq++
	access := fmt.Sprintf("access-%d", f.seq)
	refresh := fmt.Sprintf("refresh-%d", f.seq)
	f.access[access] = ident.ID
	f.refresh[refresh] = ident.ID

	ttl := f.SessionTTL
	if ttl == 0 {
		ttl = time.Hour
	}

	return &backend.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(ttl),
		User:         ident,
	}
}

func (f *Fake) GetProfile(ctx context.Context, id string) (*backend.ProfileRow, error) {
	f.mu.Lock()
	delay, failure := f.ProfileDelay, f.ProfileErr
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failure != nil {
		return nil, failure
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.profiles[id]
	if !ok {
		return nil, &backend.Error{
			Status:  http.StatusNotAcceptable,
			Code:    "PGRST116",
			Message: "JSON object requested, multiple (or no) rows returned",
		}
	}
	return &row, nil
}

func (f *Fake) InsertProfile(_ context.Context, row backend.ProfileRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.profiles[row.ID]; exists {
		return &backend.Error{
			Status:  http.StatusConflict,
			Code:    "23505",
			Message: `duplicate key value violates unique constraint "users_pkey"`,
		}
	}
	f.profiles[row.ID] = row
	return nil
}

func (f *Fake) UpsertProfile(_ context.Context, row backend.ProfileRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpsertErr != nil {
		return f.UpsertErr
	}
	f.upserts++
	f.profiles[row.ID] = row
	return nil
}

func (f *Fake) ListBooks(ctx context.Context) ([]backend.BookRow, error) {
	f.mu.Lock()
	delay := f.ListDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListErr != nil {
		return nil, f.ListErr
	}

	rows := make([]backend.BookRow, len(f.books))
	copy(rows, f.books)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows, nil
}

func (f *Fake) InsertBook(ctx context.Context, book backend.BookInsert) (*backend.BookRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DenyBookWrites || f.access[backend.AccessToken(ctx)] == "" {
		return nil, &backend.Error{
			Status:  http.StatusForbidden,
			Code:    "42501",
			Message: `new row violates row-level security policy for table "books"`,
		}
	}

	f.seq++
	now := time.Date(2025, 1, 1, 0, 0, f.seq, 0, time.UTC)
	uploader := book.UploadedBy
	row := backend.BookRow{
		ID:            fmt.Sprintf("book-%d", f.seq),
		Title:         book.Title,
		Subject:       book.Subject,
		Semester:      book.Semester,
		Author:        book.Author,
		CoverImageURL: book.CoverImageURL,
		PDFURL:        book.PDFURL,
		FilePath:      book.FilePath,
		FileSize:      book.FileSize,
		UploadedBy:    &uploader,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.books = append(f.books, row)
	return &row, nil
}

func (f *Fake) DeleteBook(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, row := range f.books {
		if row.ID == id {
			f.books = append(f.books[:i], f.books[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *Fake) CountBooks(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.books), nil
}

func (f *Fake) Configured() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Bucket
}

func (f *Fake) Upload(_ context.Context, path, _ string, body io.Reader, _ int64) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = buf.Bytes()
	return nil
}

func (f *Fake) PublicURL(path string) string {
	return "https://backend.test/storage/v1/object/public/books/" + path
}
