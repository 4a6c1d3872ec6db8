// AngelaMos | 2026
// handler.go

package web

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/studyvault/studyvault/internal/core"
)

// Routes are the client-side pages. Each serves the single-page bundle.
var Routes = []string{
	"/",
	"/books",
	"/books/{semester}/{subject}",
	"/reader/{bookID}",
	"/admin",
	"/auth",
}

type Handler struct {
	staticDir string
	assets    http.Handler
	apiPrefix string
}

// NewHandler serves the bundle in staticDir. With an empty staticDir the
// page routes answer with a short JSON description of the service.
func NewHandler(staticDir, apiPrefix string) *Handler {
	h := &Handler{staticDir: staticDir, apiPrefix: apiPrefix}
	if staticDir != "" {
		h.assets = http.FileServer(http.Dir(staticDir))
	}
	return h
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	for _, route := range Routes {
		r.Get(route, h.Page)
	}
	if h.assets != nil {
		r.Get("/assets/*", h.assets.ServeHTTP)
		r.Get("/favicon.ico", h.assets.ServeHTTP)
	}
	r.NotFound(h.NotFound)
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	if h.staticDir == "" {
		core.OK(w, map[string]any{
			"service": "studyvault",
			"api":     h.apiPrefix,
			"pages":   Routes,
		})
		return
	}

	index := filepath.Join(h.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		core.NotFound(w, "index.html")
		return
	}

	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, index)
}

// NotFound keeps API misses as JSON and sends every other unknown page
// back to the dashboard.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, h.apiPrefix+"/") || r.Method != http.MethodGet {
		core.NotFound(w, "route")
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
