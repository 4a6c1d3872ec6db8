// AngelaMos | 2026
// handler.go

package reader

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/studyvault/studyvault/internal/catalog"
	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
)

type Scope struct {
	Ctx     context.Context
	Catalog *catalog.State
	Reader  *Reader
}

type ScopeFunc func(r *http.Request) (*Scope, error)

// Blobs opens object URLs minted by the local file store.
type Blobs interface {
	OpenURL(ctx context.Context, url string) (*filestore.Record, error)
}

type Handler struct {
	scope ScopeFunc
	blobs Blobs
}

func NewHandler(scope ScopeFunc, blobs Blobs) *Handler {
	return &Handler{scope: scope, blobs: blobs}
}

func (h *Handler) RegisterRoutes(r chi.Router, authenticator func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/books/{bookID}/open", h.OpenBook)
		r.Delete("/reader", h.CloseReader)
		r.Get("/reader", h.Current)
	})

	r.Get("/blobs/{token}", h.ServeBlob)
}

func (h *Handler) OpenBook(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	book, ok := sc.Catalog.Find(chi.URLParam(r, "bookID"))
	if !ok {
		core.NotFound(w, "book")
		return
	}

	doc, err := sc.Reader.Open(sc.Ctx, book.ID, book.Title, book.PDFURL)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, doc)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	doc := sc.Reader.Current()
	if doc == nil {
		core.NotFound(w, "open document")
		return
	}
	core.OK(w, doc)
}

func (h *Handler) CloseReader(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	sc.Reader.Close()
	core.NoContent(w)
}

// ServeBlob streams the bytes behind a live object URL. The unguessable
// token is the capability, like a browser blob URL.
func (h *Handler) ServeBlob(w http.ResponseWriter, r *http.Request) {
	rec, err := h.blobs.OpenURL(r.Context(), filestore.ObjectURL(chi.URLParam(r, "token")))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.JSONError(w, notFound())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	w.Header().Set("Content-Type", rec.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(int64(len(rec.Data)), 10))
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("inline", map[string]string{"filename": rec.Filename}))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Data) //nolint:errcheck // client may have gone away
}
