// AngelaMos | 2026
// store.go

// Package filestore keeps raw uploaded files in a local SQLite database and
// hands out short-lived object URLs for them.
package filestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/studyvault/studyvault/internal/core"
)

const (
	objectURLPrefix = "blob:studyvault/"
	idPrefix        = "uploaded_"
)

type Record struct {
	ID         string
	Filename   string
	MimeType   string
	Size       int64
	Data       []byte
	UploadedAt time.Time
}

type FileInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	MimeType   string    `json:"mime_type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type fileRow struct {
	ID         string `db:"id"`
	Filename   string `db:"filename"`
	MimeType   string `db:"mime_type"`
	Size       int64  `db:"size"`
	Data       []byte `db:"data"`
	UploadedAt int64  `db:"uploaded_at"`
}

func (r fileRow) info() FileInfo {
	return FileInfo{
		ID:         r.ID,
		Filename:   r.Filename,
		MimeType:   r.MimeType,
		Size:       r.Size,
		UploadedAt: time.UnixMilli(r.UploadedAt).UTC(),
	}
}

type Store struct {
	db  *sqlx.DB
	now func() time.Time

	mu   sync.Mutex
	urls map[string]string
}

// Open creates or opens the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create filestore directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return open(dsn, 4)
}

// OpenMemory creates a private in-memory store, for tests and for running
// without a writable data directory.
func OpenMemory() (*Store, error) {
	return open(":memory:", 1)
}

func open(dsn string, maxConns int) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open filestore: %w", err)
	}
	db.SetMaxOpenConns(maxConns)

	if err := db.Ping(); err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on open failure
		return nil, fmt.Errorf("ping filestore: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on open failure
		return nil, fmt.Errorf("migrate filestore: %w", err)
	}

	return &Store{
		db:   db,
		now:  time.Now,
		urls: make(map[string]string),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save stores data and returns its generated id, uploaded_<unix-ms>_<random>.
func (s *Store) Save(ctx context.Context, filename, mimeType string, data []byte) (string, error) {
	suffix, err := core.RandomBase36(9)
	if err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	now := s.now()
	id := idPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "_" + suffix

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO files (id, filename, mime_type, size, data, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, filename, mimeType, len(data), data, now.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("save file: %w", err)
	}

	return id, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	var row fileRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, filename, mime_type, size, data, uploaded_at
		FROM files WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get file: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	info := row.info()
	return &Record{
		ID:         info.ID,
		Filename:   info.Filename,
		MimeType:   info.MimeType,
		Size:       info.Size,
		Data:       row.Data,
		UploadedAt: info.UploadedAt,
	}, nil
}

// Resolve mints a fresh object URL for id, or returns "" when no such file
// exists. Every URL handed out must be passed to Revoke.
func (s *Store) Resolve(ctx context.Context, id string) (string, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM files WHERE id = ?)`, id)
	if err != nil {
		return "", fmt.Errorf("resolve file: %w", err)
	}
	if !exists {
		return "", nil
	}

	url := objectURLPrefix + uuid.NewString()

	s.mu.Lock()
	s.urls[url] = id
	s.mu.Unlock()

	return url, nil
}

// OpenURL returns the file behind a live object URL.
func (s *Store) OpenURL(ctx context.Context, url string) (*Record, error) {
	s.mu.Lock()
	id, ok := s.urls[url]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("open url: %w", core.ErrNotFound)
	}
	return s.Get(ctx, id)
}

// Revoke invalidates url. Unknown URLs are ignored.
func (s *Store) Revoke(url string) {
	s.mu.Lock()
	delete(s.urls, url)
	s.mu.Unlock()
}

func (s *Store) LiveURLs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete file: %w", core.ErrNotFound)
	}

	s.mu.Lock()
	for url, target := range s.urls {
		if target == id {
			delete(s.urls, url)
		}
	}
	s.mu.Unlock()

	return nil
}

// List returns metadata for every stored file, newest first.
func (s *Store) List(ctx context.Context) ([]FileInfo, error) {
	return s.list(ctx, `
		SELECT id, filename, mime_type, size, uploaded_at
		FROM files ORDER BY uploaded_at DESC, id DESC`)
}

func (s *Store) FindByFilename(ctx context.Context, filename string) ([]FileInfo, error) {
	return s.list(ctx, `
		SELECT id, filename, mime_type, size, uploaded_at
		FROM files WHERE filename = ? ORDER BY uploaded_at DESC`, filename)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]FileInfo, error) {
	var rows []fileRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	out := make([]FileInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.info())
	}
	return out, nil
}

// ObjectURL rebuilds the object URL carried by token, the part after the
// prefix.
func ObjectURL(token string) string {
	return objectURLPrefix + token
}

// ObjectURLToken returns the path-safe part of an object URL, or "" when url
// was not minted by a Store.
func ObjectURLToken(url string) string {
	token, ok := strings.CutPrefix(url, objectURLPrefix)
	if !ok {
		return ""
	}
	return token
}

// IsDirectURL reports whether ref can be handed to a PDF viewer as is.
func IsDirectURL(ref string) bool {
	return strings.HasPrefix(ref, "data:") ||
		strings.HasPrefix(ref, "blob:") ||
		strings.HasPrefix(ref, "http")
}
