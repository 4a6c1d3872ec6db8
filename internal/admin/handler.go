// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/catalog"
	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
)

const probeTitle = "TEST_BOOK_DELETE_ME"

// SessionCounter reports how many client sessions are persisted and how
// many are held in memory.
type SessionCounter interface {
	Count(ctx context.Context) (int, error)
}

type HandlerConfig struct {
	Client     backend.Client
	Files      *filestore.Store
	Scope      catalog.ScopeFunc
	Sessions   SessionCounter
	Workspaces func() int
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	RedisPing  func(ctx context.Context) error
	DBPing     func(ctx context.Context) error
}

type Handler struct {
	client     backend.Client
	files      *filestore.Store
	scope      catalog.ScopeFunc
	sessions   SessionCounter
	workspaces func() int
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	redisPing  func(ctx context.Context) error
	dbPing     func(ctx context.Context) error
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		client:     cfg.Client,
		files:      cfg.Files,
		scope:      cfg.Scope,
		sessions:   cfg.Sessions,
		workspaces: cfg.Workspaces,
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		redisPing:  cfg.RedisPing,
		dbPing:     cfg.DBPing,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/stats", h.GetSystemStats)
		r.Get("/stats/runtime", h.GetRuntimeStats)
		r.Get("/diagnostics", h.Diagnose)
		r.Get("/files", h.ListFiles)
		r.Delete("/files/{fileID}", h.DeleteFile)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	ctx := sc.Ctx

	resp := SystemStatsResponse{
		Catalog: CatalogStats{
			BackendConnected: h.client.Connected(),
			LoadedBooks:      len(sc.Catalog.Books()),
			Subjects:         len(sc.Catalog.Subjects()),
		},
		Redis: RedisStatus{
			Healthy: pingOK(ctx, h.redisPing),
			Stats:   h.getRedisStats(),
		},
		Runtime: readRuntimeStats(),
	}

	if n, err := h.client.Books().CountBooks(ctx); err == nil {
		resp.Catalog.BackendBooks = &n
	}

	if h.sessions != nil {
		if n, err := h.sessions.Count(ctx); err == nil {
			resp.Sessions.Persisted = n
		}
	}
	if h.workspaces != nil {
		resp.Sessions.InMemory = h.workspaces()
	}

	if h.files != nil {
		resp.Files.LiveURLs = h.files.LiveURLs()
		if list, err := h.files.List(ctx); err == nil {
			resp.Files.Count = len(list)
			for _, f := range list {
				resp.Files.TotalBytes += f.Size
			}
			resp.Files.TotalSize = core.FormatFileSize(resp.Files.TotalBytes)
		}
	}

	if h.dbStats != nil {
		resp.Database = &DatabaseStatus{
			Healthy: pingOK(ctx, h.dbPing),
			Stats:   h.getDBStats(),
		}
	}

	core.OK(w, resp)
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, readRuntimeStats())
}

// Diagnose walks the same path an upload takes: session, profile row, a
// read of books and a throwaway insert that is deleted again.
func (h *Handler) Diagnose(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	ctx := sc.Ctx

	report := DiagnosticsResponse{
		BackendConnected: h.client.Connected(),
		Session:          backend.AccessToken(ctx) != "",
		UserID:           sc.User.ID,
		Email:            sc.User.Email,
		Role:             string(sc.User.Role),
	}

	row, err := h.client.Profiles().GetProfile(ctx, sc.User.ID)
	report.ProfileRow = probe(err)
	if row != nil {
		report.ProfileRole = row.Role
	}

	_, err = h.client.Books().ListBooks(ctx)
	report.BooksRead = probe(err)

	inserted, err := h.client.Books().InsertBook(ctx, backend.BookInsert{
		Title:      probeTitle,
		Subject:    "TEST",
		Semester:   1,
		PDFURL:     "test",
		UploadedBy: sc.User.ID,
	})
	report.BooksInsert = probe(err)
	if inserted != nil {
		report.ProbeCleanedUp = h.client.Books().DeleteBook(ctx, inserted.ID) == nil
	}

	core.OK(w, report)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		core.OK(w, []filestore.FileInfo{})
		return
	}

	files, err := h.files.List(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, files)
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		core.NotFound(w, "file")
		return
	}

	if err := h.files.Delete(r.Context(), chi.URLParam(r, "fileID")); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "file")
			return
		}
		core.InternalServerError(w, err)
		return
	}
	core.NoContent(w)
}

func pingOK(ctx context.Context, ping func(context.Context) error) bool {
	if ping == nil {
		return false
	}
	return ping(ctx) == nil
}

func probe(err error) ProbeResult {
	if err == nil {
		return ProbeResult{OK: true}
	}

	res := ProbeResult{Error: err.Error()}
	var berr *backend.Error
	if errors.As(err, &berr) {
		res.Code = berr.Code
	}
	return res
}

func readRuntimeStats() RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}
