// AngelaMos | 2026
// session.go

package backend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Listener is called outside any lock, on the goroutine that caused the
// change.
type Listener func(ctx context.Context, event Event, session *Session)

// TokenStore persists the refresh token of one session between process
// restarts. Load returns "" when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, refreshToken string, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Sessions holds the backend session of a single client and notifies
// listeners when it changes.
type Sessions struct {
	api    AuthAPI
	store  TokenStore
	ttl    time.Duration
	logger *slog.Logger

	refresh singleflight.Group

	mu        sync.Mutex
	current   *Session
	listeners map[int]Listener
	nextID    int
	now       func() time.Time
}

func NewSessions(api AuthAPI, store TokenStore, ttl time.Duration, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		api:       api,
		store:     store,
		ttl:       ttl,
		logger:    logger,
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
}

// OnChange registers fn and returns a func that removes it.
func (s *Sessions) OnChange(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Current returns the in-memory session without touching the network.
func (s *Sessions) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// GetSession returns the live session, refreshing an expired one or
// restoring one from the token store. It returns nil, nil when there is
// no session. Concurrent callers share one refresh, so a rotated refresh
// token is never presented twice.
func (s *Sessions) GetSession(ctx context.Context) (*Session, error) {
	if current := s.live(); current != nil {
		return current, nil
	}

	v, err, _ := s.refresh.Do("refresh", func() (any, error) {
		return s.refreshSession(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	sess, _ := v.(*Session)
	return sess, nil
}

func (s *Sessions) live() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && !s.current.Expired(s.now()) {
		return s.current
	}
	return nil
}

func (s *Sessions) refreshSession(ctx context.Context) (*Session, error) {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	if current != nil && !current.Expired(s.now()) {
		return current, nil
	}

	refreshToken := ""
	if current != nil {
		refreshToken = current.RefreshToken
	} else if s.store != nil {
		stored, err := s.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load stored session: %w", err)
		}
		refreshToken = stored
	}

	if refreshToken == "" {
		return nil, nil
	}

	sess, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		s.forget(ctx)
		if current != nil {
			s.emit(ctx, EventSignedOut, nil)
		}
		return nil, err
	}

	s.set(ctx, sess)
	if current != nil {
		s.emit(ctx, EventTokenRefreshed, sess)
	}

	return sess, nil
}

func (s *Sessions) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, err := s.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	s.set(ctx, sess)
	s.emit(ctx, EventSignedIn, sess)

	return sess, nil
}

func (s *Sessions) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	res, err := s.api.SignUp(ctx, params)
	if err != nil {
		return nil, err
	}

	if res.Session != nil {
		s.set(ctx, res.Session)
		s.emit(ctx, EventSignedIn, res.Session)
	}

	return res, nil
}

// SignOut drops the local session even when the remote call fails; the
// remote error is still returned.
func (s *Sessions) SignOut(ctx context.Context) error {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()

	var remoteErr error
	if current != nil {
		remoteErr = s.api.SignOut(ctx, current.AccessToken)
	}

	s.forget(ctx)
	s.emit(ctx, EventSignedOut, nil)

	return remoteErr
}

// Authorize returns ctx carrying the current access token, if any.
func (s *Sessions) Authorize(ctx context.Context) context.Context {
	if sess := s.Current(); sess != nil {
		return WithAccessToken(ctx, sess.AccessToken)
	}
	return ctx
}

func (s *Sessions) set(ctx context.Context, sess *Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if s.store == nil || sess.RefreshToken == "" {
		return
	}
	if err := s.store.Save(ctx, sess.RefreshToken, s.ttl); err != nil {
		s.logger.Warn("persist session failed", "error", err)
	}
}

func (s *Sessions) forget(ctx context.Context) {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("clear stored session failed", "error", err)
	}
}

func (s *Sessions) emit(ctx context.Context, event Event, sess *Session) {
	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, event, sess)
	}
}
