// AngelaMos | 2026
// reader_test.go

package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
)

func newFiles(t *testing.T) *filestore.Store {
	t.Helper()
	s, err := filestore.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenDirectURLPassesThrough(t *testing.T) {
	files := newFiles(t)
	r := New(files, nil)

	for _, ref := range []string{
		"https://cdn.test/book.pdf",
		"http://cdn.test/book.pdf",
		"data:application/pdf;base64,JVBERi0=",
		"blob:https://app.test/123",
	} {
		doc, err := r.Open(context.Background(), "b1", "Book", ref)
		require.NoError(t, err)
		assert.Equal(t, ref, doc.URL)
		assert.Empty(t, doc.Href)
	}
	assert.Zero(t, files.LiveURLs())
}

func TestOpenLocalFileMintsAndRevokes(t *testing.T) {
	ctx := context.Background()
	files := newFiles(t)
	first, err := files.Save(ctx, "a.pdf", "application/pdf", []byte("%PDF-a"))
	require.NoError(t, err)
	second, err := files.Save(ctx, "b.pdf", "application/pdf", []byte("%PDF-b"))
	require.NoError(t, err)

	r := New(files, nil)

	docA, err := r.Open(ctx, "book-a", "A", first)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(docA.URL, "blob:"))
	assert.Equal(t, "/v1/blobs/"+filestore.ObjectURLToken(docA.URL), docA.Href)
	assert.Equal(t, 1, files.LiveURLs())

	again, err := r.Open(ctx, "book-a", "A", first)
	require.NoError(t, err)
	assert.Equal(t, docA.URL, again.URL)
	assert.Equal(t, 1, files.LiveURLs())

	docB, err := r.Open(ctx, "book-b", "B", second)
	require.NoError(t, err)
	assert.NotEqual(t, docA.URL, docB.URL)
	assert.Equal(t, 1, files.LiveURLs())

	_, err = files.OpenURL(ctx, docA.URL)
	assert.ErrorIs(t, err, core.ErrNotFound)

	r.Close()
	assert.Zero(t, files.LiveURLs())
	assert.Nil(t, r.Current())
}

func TestOpenMissingFile(t *testing.T) {
	r := New(newFiles(t), nil)

	_, err := r.Open(context.Background(), "b1", "Gone", "uploaded_1_missing")

	require.ErrorIs(t, err, ErrPDFNotFound)
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "PDF not found", appErr.Message)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestServeBlob(t *testing.T) {
	ctx := context.Background()
	files := newFiles(t)
	id, err := files.Save(ctx, "notes.pdf", "application/pdf", []byte("%PDF-1.7 body"))
	require.NoError(t, err)

	rd := New(files, nil)
	doc, err := rd.Open(ctx, "b1", "Notes", id)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Route("/v1", func(r chi.Router) {
		NewHandler(nil, files).RegisterRoutes(r, func(next http.Handler) http.Handler { return next })
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, doc.Href, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.7 body", rec.Body.String())

	rd.Close()
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, doc.Href, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
