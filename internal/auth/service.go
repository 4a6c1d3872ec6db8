// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/user"
)

// UserListener observes transitions of the current user. prev and next may
// be nil.
type UserListener func(ctx context.Context, prev, next *user.User)

type StateConfig struct {
	Sessions       *backend.Sessions
	Resolver       *user.Resolver
	Connected      bool
	SessionTimeout time.Duration
	SafetyTimeout  time.Duration
	Logger         *slog.Logger
}

// State is the authentication state of one client: the current user, a
// loading flag and the backend session behind them.
type State struct {
	sessions       *backend.Sessions
	resolver       *user.Resolver
	connected      bool
	sessionTimeout time.Duration
	safetyTimeout  time.Duration
	logger         *slog.Logger

	mu        sync.RWMutex
	current   *user.User
	loading   bool
	pending   int
	listeners map[int]UserListener
	nextID    int

	unsubscribe func()
}

func NewState(cfg StateConfig) *State {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &State{
		sessions:       cfg.Sessions,
		resolver:       cfg.Resolver,
		connected:      cfg.Connected,
		sessionTimeout: cfg.SessionTimeout,
		safetyTimeout:  cfg.SafetyTimeout,
		logger:         logger,
		loading:        true,
		listeners:      make(map[int]UserListener),
	}
	s.unsubscribe = cfg.Sessions.OnChange(s.onSessionChange)

	return s
}

// Close stops reacting to session changes.
func (s *State) Close() {
	s.unsubscribe()
}

func (s *State) User() *user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	u := *s.current
	return &u
}

func (s *State) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *State) Connected() bool {
	return s.connected
}

// Authorize returns ctx carrying the backend access token of this client.
func (s *State) Authorize(ctx context.Context) context.Context {
	return s.sessions.Authorize(ctx)
}

// AuthorizeFresh is Authorize after refreshing an expired backend session.
// A failed refresh is logged and ctx carries whatever token remains.
func (s *State) AuthorizeFresh(ctx context.Context) context.Context {
	if s.connected {
		if _, err := s.sessions.GetSession(ctx); err != nil {
			s.logger.WarnContext(ctx, "session refresh failed", "error", err)
		}
	}
	return s.sessions.Authorize(ctx)
}

func (s *State) OnUserChange(fn UserListener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Initialize restores an existing session, if any, and derives its user.
// The loading flag is cleared once that settles or once the safety timeout
// passes, whichever is first; a restore still running then may set the
// user later.
func (s *State) Initialize(ctx context.Context) {
	if !s.connected {
		s.logger.WarnContext(ctx, "backend not configured, skipping session restore")
		s.setLoading(false)
		return
	}

	s.setLoading(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.restore(context.WithoutCancel(ctx))
	}()

	timer := time.NewTimer(s.safetyTimeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.logger.WarnContext(ctx, "auth initialization hit safety timeout",
			"timeout", s.safetyTimeout,
		)
	}

	s.setLoading(false)
}

func (s *State) restore(ctx context.Context) {
	sess, err := core.RaceTimeout(ctx, s.sessionTimeout, s.sessions.GetSession)
	if err != nil {
		s.logger.WarnContext(ctx, "session restore failed", "error", err)
		s.setUser(ctx, nil)
		return
	}

	if sess == nil {
		s.setUser(ctx, nil)
		return
	}

	s.setUser(ctx, s.resolver.Derive(s.sessions.Authorize(ctx), sess.User))
}

func (s *State) Login(ctx context.Context, email, password string) (*user.User, error) {
	if !s.connected {
		return nil, notConnectedError()
	}

	s.beginPending()
	defer s.endPending()

	sess, err := s.sessions.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		authErr := classifyLoginError(err)
		s.logger.InfoContext(ctx, "login failed", "kind", authErr.Kind, "error", err)
		return nil, authErr
	}

	u := s.resolver.Derive(s.sessions.Authorize(ctx), sess.User)
	s.setUser(ctx, u)

	s.logger.InfoContext(ctx, "user logged in", "user_id", u.ID, "role", u.Role)
	return s.User(), nil
}

func (s *State) Signup(ctx context.Context, name, email, password string) (*user.User, error) {
	if !s.connected {
		return nil, notConnectedError()
	}

	role := s.resolver.SignupRole(email)
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	s.beginPending()
	defer s.endPending()

	res, err := s.sessions.SignUp(ctx, backend.SignUpParams{
		Email:    email,
		Password: password,
		Metadata: map[string]any{
			"full_name": name,
			"role":      string(role),
		},
	})
	if err != nil {
		authErr := classifySignupError(err)
		s.logger.InfoContext(ctx, "signup failed", "kind", authErr.Kind, "error", err)
		return nil, authErr
	}

	u := &user.User{
		ID:    res.User.ID,
		Name:  name,
		Email: email,
		Role:  role,
	}

	profileCtx := ctx
	if res.Session != nil {
		profileCtx = backend.WithAccessToken(ctx, res.Session.AccessToken)
	}
	if err := s.resolver.SaveProfile(profileCtx, u); err != nil {
		s.logger.ErrorContext(ctx, "profile setup failed", "user_id", u.ID, "error", err)
		return nil, &Error{Kind: KindProfileSetup, Message: msgProfileSetup, Err: err}
	}

	s.setUser(ctx, u)

	s.logger.InfoContext(ctx, "user signed up",
		"user_id", u.ID,
		"role", u.Role,
		"confirmed", res.Session != nil,
	)
	return s.User(), nil
}

// Logout always clears the local user. A failing remote sign-out is only
// logged.
func (s *State) Logout(ctx context.Context) {
	prev := s.User()

	if err := s.sessions.SignOut(ctx); err != nil {
		s.logger.WarnContext(ctx, "remote sign-out failed", "error", err)
	}

	s.setUser(ctx, nil)

	if prev != nil {
		s.logger.InfoContext(ctx, "user logged out", "user_id", prev.ID)
	}
}

func (s *State) onSessionChange(ctx context.Context, event backend.Event, sess *backend.Session) {
	switch event {
	case backend.EventSignedIn:
		if sess == nil {
			return
		}

		s.mu.RLock()
		skip := s.pending > 0 || (s.current != nil && s.current.ID == sess.User.ID)
		s.mu.RUnlock()
		if skip {
			return
		}

		s.setUser(ctx, s.resolver.Derive(s.sessions.Authorize(ctx), sess.User))
	case backend.EventSignedOut:
		s.setUser(ctx, nil)
	case backend.EventTokenRefreshed:
	}
}

func (s *State) beginPending() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

func (s *State) endPending() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

func (s *State) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *State) setUser(ctx context.Context, next *user.User) {
	s.mu.Lock()
	prev := s.current
	s.current = next
	listeners := make([]UserListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	if prev == nil && next == nil {
		return
	}

	for _, fn := range listeners {
		fn(ctx, prev, next)
	}
}
