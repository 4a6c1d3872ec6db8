// AngelaMos | 2026
// workspace.go

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/studyvault/studyvault/internal/auth"
	"github.com/studyvault/studyvault/internal/catalog"
	"github.com/studyvault/studyvault/internal/reader"
	"github.com/studyvault/studyvault/internal/sidebar"
	"github.com/studyvault/studyvault/internal/user"
)

// Workspace is everything one client holds: who is signed in, the book
// catalog, the sidebar flag and the open document.
type Workspace struct {
	ID      string
	Auth    *auth.State
	Catalog *catalog.State
	Sidebar *sidebar.State
	Reader  *reader.Reader

	logger      *slog.Logger
	unsubscribe func()

	mu       sync.Mutex
	lastSeen time.Time
}

// onUserChange keeps the catalog in step with the signed-in user.
func (w *Workspace) onUserChange(ctx context.Context, prev, next *user.User) {
	switch {
	case next != nil && (prev == nil || prev.ID != next.ID):
		loadCtx := w.Auth.Authorize(context.WithoutCancel(ctx))
		if err := w.Catalog.Load(loadCtx); err != nil {
			w.logger.WarnContext(ctx, "catalog load after sign-in failed",
				"workspace", w.ID,
				"error", err,
			)
		}
	case prev != nil && next == nil:
		w.Catalog.Reset()
		w.Reader.Close()
	}
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastSeen)
}

func (w *Workspace) close() {
	w.unsubscribe()
	w.Auth.Close()
	w.Reader.Close()
}
