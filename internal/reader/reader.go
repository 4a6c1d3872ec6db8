// AngelaMos | 2026
// reader.go

package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
)

var ErrPDFNotFound = errors.New("pdf not found")

// Files is the part of the local file store the reader needs.
type Files interface {
	Resolve(ctx context.Context, id string) (string, error)
	Revoke(url string)
}

// Document is a book opened for reading.
type Document struct {
	BookID string `json:"book_id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	// Href is where the bytes can be fetched over HTTP when URL is an
	// object URL minted by the file store.
	Href string `json:"href,omitempty"`
}

// Reader resolves PDF references for one client and owns the object URL of
// the document currently open.
type Reader struct {
	files  Files
	logger *slog.Logger

	mu      sync.Mutex
	current *Document
	minted  string
}

func New(files Files, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{files: files, logger: logger}
}

// Open makes ref readable. Direct URLs pass through; anything else is a
// file store id. Opening a different book revokes the previous object URL.
func (r *Reader) Open(ctx context.Context, bookID, title, ref string) (*Document, error) {
	r.mu.Lock()
	if r.current != nil && r.current.BookID == bookID && r.minted != "" {
		doc := *r.current
		r.mu.Unlock()
		return &doc, nil
	}
	r.mu.Unlock()

	doc := &Document{BookID: bookID, Title: title}
	minted := ""

	if filestore.IsDirectURL(ref) {
		doc.URL = ref
	} else {
		if r.files == nil {
			return nil, notFound()
		}

		url, err := r.files.Resolve(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		if url == "" {
			r.logger.WarnContext(ctx, "pdf missing from local file store", "book_id", bookID, "ref", ref)
			return nil, notFound()
		}

		doc.URL = url
		doc.Href = "/v1/blobs/" + filestore.ObjectURLToken(url)
		minted = url
	}

	r.mu.Lock()
	previous := r.minted
	r.current = doc
	r.minted = minted
	r.mu.Unlock()

	if previous != "" {
		r.files.Revoke(previous)
	}

	out := *doc
	return &out, nil
}

// Current returns the open document, or nil.
func (r *Reader) Current() *Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current == nil {
		return nil
	}
	doc := *r.current
	return &doc
}

// Close revokes the object URL of the open document, if any.
func (r *Reader) Close() {
	r.mu.Lock()
	minted := r.minted
	r.current = nil
	r.minted = ""
	r.mu.Unlock()

	if minted != "" {
		r.files.Revoke(minted)
	}
}

func notFound() error {
	return core.NewAppError(ErrPDFNotFound, "PDF not found", http.StatusNotFound, "NOT_FOUND")
}
