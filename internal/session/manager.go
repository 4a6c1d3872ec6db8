// AngelaMos | 2026
// manager.go

package session

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/studyvault/studyvault/internal/auth"
	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/catalog"
	"github.com/studyvault/studyvault/internal/config"
	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/filestore"
	"github.com/studyvault/studyvault/internal/middleware"
	"github.com/studyvault/studyvault/internal/reader"
	"github.com/studyvault/studyvault/internal/sidebar"
	"github.com/studyvault/studyvault/internal/user"
)

const msgSessionExpired = "Your session has expired. Please log in again."

// TokenStores hands out the refresh-token store of one workspace.
type TokenStores interface {
	ForSession(sessionID string) backend.TokenStore
}

type Config struct {
	Client     backend.Client
	Resolver   *user.Resolver
	Tokens     TokenStores
	Files      *filestore.Store
	Auth       config.AuthConfig
	Catalog    config.CatalogConfig
	SessionTTL time.Duration
	Logger     *slog.Logger
}

// Manager owns the workspaces of all clients. A workspace evicted from
// memory, or lost in a restart, is restored from its persisted refresh
// token on the next request that names it.
type Manager struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu         sync.RWMutex
	workspaces map[string]*Workspace
	restores   singleflight.Group
}

func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
}

func (m *Manager) Connected() bool {
	return m.cfg.Client.Connected()
}

// Open creates a workspace under a new session id. Nothing is persisted
// until its backend session is established.
func (m *Manager) Open(ctx context.Context) (string, *auth.State, error) {
	sid, err := core.GenerateSessionID()
	if err != nil {
		return "", nil, err
	}

	ws := m.build(sid)
	ws.Auth.Initialize(ctx)
	m.store(ws)

	return sid, ws.Auth, nil
}

func (m *Manager) Lookup(ctx context.Context, sid string) (*auth.State, error) {
	ws, err := m.Get(ctx, sid)
	if err != nil {
		return nil, err
	}
	return ws.Auth, nil
}

// Get returns the workspace for sid, restoring it when it is not in
// memory. A restore that yields no signed-in user is unauthorized.
func (m *Manager) Get(ctx context.Context, sid string) (*Workspace, error) {
	if sid == "" {
		return nil, core.UnauthorizedError("")
	}

	m.mu.RLock()
	ws, ok := m.workspaces[sid]
	m.mu.RUnlock()
	if ok {
		ws.touch(m.now())
		return ws, nil
	}

	v, err, _ := m.restores.Do(sid, func() (any, error) {
		return m.restore(ctx, sid)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Workspace), nil
}

func (m *Manager) restore(ctx context.Context, sid string) (*Workspace, error) {
	m.mu.RLock()
	existing, ok := m.workspaces[sid]
	m.mu.RUnlock()
	if ok {
		return existing, nil
	}

	ws := m.build(sid)
	ws.Auth.Initialize(context.WithoutCancel(ctx))

	if ws.Auth.User() == nil {
		ws.close()
		return nil, core.UnauthorizedError(msgSessionExpired)
	}

	m.store(ws)
	m.logger.InfoContext(ctx, "workspace restored", "workspace", sid)
	return ws, nil
}

// Close drops the workspace from memory. Its persisted session is left
// alone; Logout clears that.
func (m *Manager) Close(_ context.Context, sid string) {
	m.mu.Lock()
	ws, ok := m.workspaces[sid]
	delete(m.workspaces, sid)
	m.mu.Unlock()

	if ok {
		ws.close()
	}
}

// Len returns the number of workspaces in memory.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workspaces)
}

// Evict closes workspaces unused for longer than idle and returns how many
// were closed.
func (m *Manager) Evict(idle time.Duration) int {
	now := m.now()

	m.mu.Lock()
	var stale []*Workspace
	for sid, ws := range m.workspaces {
		if ws.idleSince(now) > idle {
			stale = append(stale, ws)
			delete(m.workspaces, sid)
		}
	}
	m.mu.Unlock()

	for _, ws := range stale {
		ws.close()
	}
	return len(stale)
}

// Run evicts idle workspaces every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Evict(idle); n > 0 {
				m.logger.Debug("evicted idle workspaces", "count", n)
			}
		}
	}
}

// Shutdown closes every workspace.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := m.workspaces
	m.workspaces = make(map[string]*Workspace)
	m.mu.Unlock()

	for _, ws := range all {
		ws.close()
	}
}

func (m *Manager) build(sid string) *Workspace {
	logger := m.logger.With("workspace", sid)

	var tokens backend.TokenStore
	if m.cfg.Tokens != nil {
		tokens = m.cfg.Tokens.ForSession(sid)
	}

	var files reader.Files
	if m.cfg.Files != nil {
		files = m.cfg.Files
	}

	ws := &Workspace{
		ID: sid,
		Auth: auth.NewState(auth.StateConfig{
			Sessions:       backend.NewSessions(m.cfg.Client.Auth(), tokens, m.cfg.SessionTTL, logger),
			Resolver:       m.cfg.Resolver,
			Connected:      m.cfg.Client.Connected(),
			SessionTimeout: m.cfg.Auth.SessionTimeout,
			SafetyTimeout:  m.cfg.Auth.SafetyTimeout,
			Logger:         logger,
		}),
		Catalog: catalog.NewState(catalog.StateConfig{
			Books:        m.cfg.Client.Books(),
			Profiles:     m.cfg.Resolver,
			DefaultCover: m.cfg.Catalog.DefaultCoverURL,
			LoadTimeout:  m.cfg.Catalog.LoadTimeout,
			Logger:       logger,
		}),
		Sidebar:  sidebar.New(),
		Reader:   reader.New(files, logger),
		logger:   logger,
		lastSeen: m.now(),
	}
	ws.unsubscribe = ws.Auth.OnUserChange(ws.onUserChange)

	return ws
}

func (m *Manager) store(ws *Workspace) {
	m.mu.Lock()
	m.workspaces[ws.ID] = ws
	m.mu.Unlock()
}

// signedIn resolves the workspace of r and requires a user in it.
func (m *Manager) signedIn(r *http.Request) (*Workspace, *user.User, error) {
	ws, err := m.Get(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		return nil, nil, err
	}

	u := ws.Auth.User()
	if u == nil {
		return nil, nil, core.UnauthorizedError("not signed in")
	}
	return ws, u, nil
}

func (m *Manager) UserScope(r *http.Request) (context.Context, *user.User, error) {
	ws, u, err := m.signedIn(r)
	if err != nil {
		return nil, nil, err
	}
	return ws.Auth.AuthorizeFresh(r.Context()), u, nil
}

func (m *Manager) CatalogScope(r *http.Request) (*catalog.Scope, error) {
	ws, u, err := m.signedIn(r)
	if err != nil {
		return nil, err
	}
	return &catalog.Scope{
		Ctx:     ws.Auth.AuthorizeFresh(r.Context()),
		User:    u,
		Catalog: ws.Catalog,
	}, nil
}

func (m *Manager) ReaderScope(r *http.Request) (*reader.Scope, error) {
	ws, _, err := m.signedIn(r)
	if err != nil {
		return nil, err
	}
	return &reader.Scope{
		Ctx:     r.Context(),
		Catalog: ws.Catalog,
		Reader:  ws.Reader,
	}, nil
}

func (m *Manager) SidebarScope(r *http.Request) (*sidebar.State, error) {
	ws, err := m.Get(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		return nil, err
	}
	return ws.Sidebar, nil
}

var _ auth.Workspaces = (*Manager)(nil)
