// AngelaMos | 2026
// handler.go

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
	"github.com/studyvault/studyvault/internal/user"
)

// multipartOverhead leaves room for the form fields around the file.
const multipartOverhead = 1 << 20

// Scope is the part of a client workspace the catalog endpoints use.
type Scope struct {
	Ctx     context.Context
	User    *user.User
	Catalog *State
}

type ScopeFunc func(r *http.Request) (*Scope, error)

type Handler struct {
	scope     ScopeFunc
	uploader  *Uploader
	validator *validator.Validate
}

func NewHandler(scope ScopeFunc, uploader *Uploader) *Handler {
	return &Handler{
		scope:     scope,
		uploader:  uploader,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly, uploadLimit func(http.Handler) http.Handler,
) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/catalog", h.GetCatalog)
		r.Post("/catalog/reload", h.Reload)
		r.Put("/catalog/semester", h.SelectSemester)
		r.Get("/subjects", h.ListSubjects)
		r.Get("/books", h.ListBooks)
		r.Get("/books/{bookID}", h.GetBook)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.With(uploadLimit).Post("/books", h.AddBook)
			r.Delete("/books/{bookID}", h.DeleteBook)
		})
	})
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, CatalogResponse{
		Books:            sc.Catalog.Books(),
		Subjects:         sc.Catalog.Subjects(),
		Loading:          sc.Catalog.IsLoading(),
		SelectedSemester: sc.Catalog.SelectedSemester(),
	})
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	if err := sc.Catalog.Load(sc.Ctx); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, CatalogResponse{
		Books:            sc.Catalog.Books(),
		Subjects:         sc.Catalog.Subjects(),
		SelectedSemester: sc.Catalog.SelectedSemester(),
	})
}

func (h *Handler) SelectSemester(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	var req SelectSemesterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	if err := sc.Catalog.SelectSemester(req.Semester); err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, sc.Catalog.SubjectsForSemester(req.Semester))
}

// ListSubjects returns the subject buckets of ?semester=, defaulting to the
// selected semester.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	semester, ok := parseSemester(w, r.URL.Query().Get("semester"))
	if !ok {
		return
	}

	core.OK(w, sc.Catalog.SubjectsForSemester(semester))
}

// ListBooks serves three views: ?semester=&subject= lists one bucket,
// ?q= searches (optionally within ?semester=), and no query lists all.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	q := r.URL.Query()
	semester, ok := parseSemester(w, q.Get("semester"))
	if !ok {
		return
	}

	switch subject := q.Get("subject"); {
	case subject != "":
		if semester == 0 {
			core.BadRequest(w, "semester is required with subject")
			return
		}
		core.OK(w, sc.Catalog.Filter(semester, subject))
	case q.Has("q") || semester != 0:
		core.OK(w, sc.Catalog.Search(q.Get("q"), semester))
	default:
		core.OK(w, sc.Catalog.Books())
	}
}

func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
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

	core.OK(w, book)
}

// AddBook accepts a multipart form with a "file" part, or a pdf_url field
// pointing at an already hosted PDF.
func (h *Handler) AddBook(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	if !sc.User.IsAdmin() {
		core.Forbidden(w, "only administrators can upload books")
		return
	}

	if r.ContentLength > h.uploader.MaxFileSize()+multipartOverhead {
		core.JSONError(w, h.uploader.TooLarge())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.uploader.MaxFileSize()+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			core.JSONError(w, h.uploader.TooLarge())
			return
		}
		core.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	req := AddBookRequest{
		Title:      strings.TrimSpace(r.FormValue("title")),
		Subject:    strings.TrimSpace(r.FormValue("subject")),
		Author:     strings.TrimSpace(r.FormValue("author")),
		CoverImage: strings.TrimSpace(r.FormValue("cover_image")),
		PDFURL:     strings.TrimSpace(r.FormValue("pdf_url")),
	}
	req.Semester, _ = strconv.Atoi(r.FormValue("semester")) //nolint:errcheck // zero fails validation

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	nb := NewBook{
		Title:      req.Title,
		Subject:    req.Subject,
		Semester:   req.Semester,
		Author:     req.Author,
		CoverImage: req.CoverImage,
		PDFURL:     req.PDFURL,
	}

	var stored *Stored
	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close() //nolint:errcheck // read-only

		if err := h.uploader.CheckSize(header.Size); err != nil {
			core.JSONError(w, err)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			core.BadRequest(w, "could not read uploaded file")
			return
		}

		stored, err = h.uploader.Store(sc.Ctx, header.Filename, data)
		if err != nil {
			core.JSONError(w, err)
			return
		}

		nb.PDFURL = stored.PDFURL
		nb.FilePath = stored.FilePath
		nb.FileSize = stored.FileSize
	case nb.PDFURL != "" && filestore.IsDirectURL(nb.PDFURL):
	default:
		core.BadRequest(w, "Please select a valid PDF file")
		return
	}

	book, err := sc.Catalog.AddBook(sc.Ctx, sc.User, nb)
	if err != nil {
		h.uploader.Discard(sc.Ctx, stored)
		core.JSONError(w, err)
		return
	}

	core.Created(w, AddBookResponse{Book: book, Stored: stored})
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	if !sc.User.IsAdmin() {
		core.Forbidden(w, "only administrators can delete books")
		return
	}

	id := chi.URLParam(r, "bookID")
	book, known := sc.Catalog.Find(id)

	if err := sc.Catalog.DeleteBook(sc.Ctx, id); err != nil {
		core.JSONError(w, err)
		return
	}

	if known && !filestore.IsDirectURL(book.PDFURL) {
		h.uploader.Discard(sc.Ctx, &Stored{PDFURL: book.PDFURL, Location: LocationLocal})
	}

	core.NoContent(w)
}

// parseSemester reads an optional semester; it writes the error response
// itself and reports false when the value is invalid.
func parseSemester(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < MinSemester || n > MaxSemester {
		core.BadRequest(w, "semester must be between 1 and 8")
		return 0, false
	}
	return n, true
}
