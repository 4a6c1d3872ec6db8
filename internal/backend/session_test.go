// AngelaMos | 2026
// session_test.go

package backend_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/backend/backendtest"
)

type memoryTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memoryTokens) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memoryTokens) Save(_ context.Context, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memoryTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func TestSessionsSignInEmitsAndPersists(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("ada@example.com", "secret1", nil)
	tokens := &memoryTokens{}
	s := backend.NewSessions(fake.Auth(), tokens, time.Hour, nil)

	var events []backend.Event
	unsubscribe := s.OnChange(func(_ context.Context, ev backend.Event, _ *backend.Session) {
		events = append(events, ev)
	})

	sess, err := s.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.RefreshToken, tokens.token)
	assert.Equal(t, []backend.Event{backend.EventSignedIn}, events)

	ctx := s.Authorize(context.Background())
	assert.Equal(t, sess.AccessToken, backend.AccessToken(ctx))

	unsubscribe()
	unsubscribe()
	require.NoError(t, s.SignOut(context.Background()))
	assert.Len(t, events, 1)
	assert.Empty(t, tokens.token)
	assert.Nil(t, s.Current())
}

func TestSessionsRestoreFromStore(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("ada@example.com", "secret1", nil)
	tokens := &memoryTokens{}

	first := backend.NewSessions(fake.Auth(), tokens, time.Hour, nil)
	_, err := first.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)

	restored := backend.NewSessions(fake.Auth(), tokens, time.Hour, nil)
	sess, err := restored.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "ada@example.com", sess.User.Email)
}

func TestSessionsNoStoredToken(t *testing.T) {
	s := backend.NewSessions(backendtest.New().Auth(), &memoryTokens{}, time.Hour, nil)

	sess, err := s.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionsRejectedRefreshClearsStore(t *testing.T) {
	tokens := &memoryTokens{token: "stale"}
	s := backend.NewSessions(backendtest.New().Auth(), tokens, time.Hour, nil)

	_, err := s.GetSession(context.Background())
	require.Error(t, err)
	assert.Empty(t, tokens.token)
}

func TestSessionsConcurrentRefreshSharesOneCall(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("ada@example.com", "secret1", nil)
	fake.SessionTTL = -time.Second
	tokens := &memoryTokens{}
	s := backend.NewSessions(fake.Auth(), tokens, time.Hour, nil)

	expired, err := s.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	fake.SessionTTL = time.Hour
	fake.RefreshDelay = 20 * time.Millisecond

	var wg sync.WaitGroup
	var mu sync.Mutex
	var events []backend.Event
	s.OnChange(func(_ context.Context, ev backend.Event, _ *backend.Session) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	const callers = 8
	results := make([]*backend.Session, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.GetSession(context.Background())
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.NotEqual(t, expired.AccessToken, results[i].AccessToken)
	}
	assert.Equal(t, 1, fake.Refreshes())
	assert.Equal(t, []backend.Event{backend.EventTokenRefreshed}, events)
	assert.Equal(t, results[0].RefreshToken, tokens.token)
}

func TestSessionsLostRefreshSignsOut(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("ada@example.com", "secret1", nil)
	fake.SessionTTL = -time.Second
	s := backend.NewSessions(fake.Auth(), &memoryTokens{}, time.Hour, nil)

	sess, err := s.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)

	_, err = fake.Auth().Refresh(context.Background(), sess.RefreshToken)
	require.NoError(t, err)

	var events []backend.Event
	s.OnChange(func(_ context.Context, ev backend.Event, _ *backend.Session) {
		events = append(events, ev)
	})

	_, err = s.GetSession(context.Background())
	require.Error(t, err)
	assert.Nil(t, s.Current())
	assert.Equal(t, []backend.Event{backend.EventSignedOut}, events)
}
