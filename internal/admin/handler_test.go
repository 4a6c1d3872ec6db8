// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/backend/backendtest"
	"github.com/studyvault/studyvault/internal/catalog"
	"github.com/studyvault/studyvault/internal/filestore"
	"github.com/studyvault/studyvault/internal/user"
)

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func newRouter(t *testing.T, fake *backendtest.Fake) (chi.Router, *filestore.Store) {
	t.Helper()

	files, err := filestore.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = files.Close() })

	ident := fake.AddAccount("admin@example.com", "secret123", nil)
	sess, err := fake.SignInWithPassword(context.Background(), "admin@example.com", "secret123")
	require.NoError(t, err)
	fake.SetProfile(backend.ProfileRow{ID: ident.ID, Email: ident.Email, Role: "admin"})

	admin := &user.User{ID: ident.ID, Email: ident.Email, Role: user.RoleAdmin}
	state := catalog.NewState(catalog.StateConfig{Books: fake.Books()})

	h := NewHandler(HandlerConfig{
		Client: fake,
		Files:  files,
		Scope: func(r *http.Request) (*catalog.Scope, error) {
			return &catalog.Scope{
				Ctx:     backend.WithAccessToken(r.Context(), sess.AccessToken),
				User:    admin,
				Catalog: state,
			}, nil
		},
		Workspaces: func() int { return 3 },
	})

	pass := func(next http.Handler) http.Handler { return next }
	r := chi.NewRouter()
	h.RegisterRoutes(r, pass, pass)
	return r, files
}

func get[T any](t *testing.T, r http.Handler, path string) (int, T) {
	t.Helper()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body envelope[T]
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body.Data
}

func TestDiagnoseHealthyBackend(t *testing.T) {
	fake := backendtest.New()
	r, _ := newRouter(t, fake)

	code, report := get[DiagnosticsResponse](t, r, "/admin/diagnostics")

	require.Equal(t, http.StatusOK, code)
	assert.True(t, report.Session)
	assert.True(t, report.ProfileRow.OK)
	assert.Equal(t, "admin", report.ProfileRole)
	assert.True(t, report.BooksRead.OK)
	assert.True(t, report.BooksInsert.OK)
	assert.True(t, report.ProbeCleanedUp)

	n, err := fake.CountBooks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDiagnoseReportsRowLevelSecurity(t *testing.T) {
	fake := backendtest.New()
	fake.DenyBookWrites = true
	r, _ := newRouter(t, fake)

	code, report := get[DiagnosticsResponse](t, r, "/admin/diagnostics")

	require.Equal(t, http.StatusOK, code)
	assert.False(t, report.BooksInsert.OK)
	assert.Equal(t, "42501", report.BooksInsert.Code)
	assert.False(t, report.ProbeCleanedUp)
}

func TestStatsAndLocalFiles(t *testing.T) {
	fake := backendtest.New()
	fake.SeedBooks(backend.BookRow{Title: "A", Subject: "Maths", Semester: 1})
	r, files := newRouter(t, fake)

	id, err := files.Save(context.Background(), "a.pdf", "application/pdf", make([]byte, 1536))
	require.NoError(t, err)

	code, stats := get[SystemStatsResponse](t, r, "/admin/stats")
	require.Equal(t, http.StatusOK, code)
	require.NotNil(t, stats.Catalog.BackendBooks)
	assert.Equal(t, 1, *stats.Catalog.BackendBooks)
	assert.Equal(t, 3, stats.Sessions.InMemory)
	assert.Equal(t, 1, stats.Files.Count)
	assert.Equal(t, "1.5 KB", stats.Files.TotalSize)

	code, list := get[[]filestore.FileInfo](t, r, "/admin/files")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/files/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/admin/files/"+id, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
