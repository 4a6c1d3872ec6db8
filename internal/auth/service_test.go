// AngelaMos | 2026
// service_test.go

package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/backend/backendtest"
	"github.com/studyvault/studyvault/internal/user"
)

type memTokens struct {
	mu    sync.Mutex
	token string
}

func (m *memTokens) Load(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *memTokens) Save(_ context.Context, token string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *memTokens) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func newState(t *testing.T, client backend.Client, tokens backend.TokenStore) *State {
	t.Helper()

	st := NewState(StateConfig{
		Sessions:       backend.NewSessions(client.Auth(), tokens, time.Hour, nil),
		Resolver:       user.NewResolver(client.Profiles(), "admin@example.com", time.Second, nil),
		Connected:      client.Connected(),
		SessionTimeout: time.Second,
		SafetyTimeout:  2 * time.Second,
	})
	t.Cleanup(st.Close)
	return st
}

func TestLoginUnknownCredentials(t *testing.T) {
	st := newState(t, backendtest.New(), &memTokens{})

	u, err := st.Login(context.Background(), "nobody@example.com", "wrong")

	require.Error(t, err)
	assert.Nil(t, u)
	assert.Nil(t, st.User())
	assert.Contains(t, err.Error(), "Invalid email or password")

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, KindInvalidCredentials, authErr.Kind)
}

func TestLoginUnconfirmedEmail(t *testing.T) {
	fake := backendtest.New()
	fake.AddUnconfirmedAccount("new@example.com", "secret1")
	st := newState(t, fake, &memTokens{})

	_, err := st.Login(context.Background(), "new@example.com", "secret1")

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, KindEmailNotConfirmed, authErr.Kind)
	assert.Equal(t, msgEmailNotConfirmed, authErr.Message)
}

func TestLoginDerivesProfileAndNotifies(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("ada@example.com", "secret1", map[string]any{"full_name": "Ada"})
	st := newState(t, fake, &memTokens{})

	var transitions [][2]*user.User
	st.OnUserChange(func(_ context.Context, prev, next *user.User) {
		transitions = append(transitions, [2]*user.User{prev, next})
	})

	u, err := st.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)

	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, user.RoleStudent, u.Role)
	assert.Equal(t, 1, fake.ProfileCount(), "missing profile is created on login")
	require.Len(t, transitions, 1, "signed-in event must not derive a second time")
	assert.Nil(t, transitions[0][0])
	assert.Equal(t, u.ID, transitions[0][1].ID)
}

func TestSignupAdminDetection(t *testing.T) {
	tests := []struct {
		email string
		role  user.Role
	}{
		{"admin@example.com", user.RoleAdmin},
		{"student@example.com", user.RoleStudent},
		{"Admin@Example.com", user.RoleStudent},
		{"ADMIN@EXAMPLE.COM", user.RoleStudent},
		{" admin@example.com", user.RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			fake := backendtest.New()
			st := newState(t, fake, &memTokens{})

			u, err := st.Signup(context.Background(), "Someone", tt.email, "secret1")
			require.NoError(t, err)
			assert.Equal(t, tt.role, u.Role)
			assert.Equal(t, tt.role, st.User().Role)

			row, ok := fake.Profile(u.ID)
			require.True(t, ok)
			assert.Equal(t, string(tt.role), row.Role)
			assert.Equal(t, "Someone", row.FullName)
		})
	}
}

func TestSignupErrors(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("taken@example.com", "secret1", nil)
	st := newState(t, fake, &memTokens{})

	tests := []struct {
		name     string
		email    string
		password string
		kind     Kind
		message  string
	}{
		{"duplicate", "taken@example.com", "secret1", KindDuplicateEmail, msgDuplicateEmail},
		{"weak password", "fresh@example.com", "123", KindWeakPassword, msgWeakPassword},
		{"invalid email", "not-an-email", "secret1", KindInvalidEmail, msgInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := st.Signup(context.Background(), "X", tt.email, tt.password)

			var authErr *Error
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.kind, authErr.Kind)
			assert.Equal(t, tt.message, authErr.Message)
			assert.Nil(t, st.User())
		})
	}
}

func TestSignupProfileFailure(t *testing.T) {
	fake := backendtest.New()
	fake.UpsertErr = errors.New("rls")
	st := newState(t, fake, &memTokens{})

	_, err := st.Signup(context.Background(), "X", "x@example.com", "secret1")

	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, KindProfileSetup, authErr.Kind)
	assert.Nil(t, st.User())
}

func TestDisconnectedBackendAsksToConnect(t *testing.T) {
	st := newState(t, backend.Disconnected(), &memTokens{})

	_, err := st.Login(context.Background(), "a@example.com", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")

	_, err = st.Signup(context.Background(), "A", "a@example.com", "secret1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")

	st.Initialize(context.Background())
	assert.False(t, st.IsLoading())
	assert.Nil(t, st.User())
}

func TestLogoutClearsUserEvenWhenSignedOut(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("ada@example.com", "secret1", nil)
	tokens := &memTokens{}
	st := newState(t, fake, tokens)

	_, err := st.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, tokens.token)

	st.Logout(context.Background())
	assert.Nil(t, st.User())
	assert.Empty(t, tokens.token)
	assert.Equal(t, 1, fake.SignOuts())
}

func TestInitializeRestoresPersistedSession(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("ada@example.com", "secret1", map[string]any{"full_name": "Ada"})
	tokens := &memTokens{}

	first := newState(t, fake, tokens)
	_, err := first.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)

	second := newState(t, fake, tokens)
	assert.True(t, second.IsLoading())

	second.Initialize(context.Background())
	assert.False(t, second.IsLoading())
	require.NotNil(t, second.User())
	assert.Equal(t, "Ada", second.User().Name)
}

func TestInitializeSafetyTimeoutClearsLoading(t *testing.T) {
	fake := backendtest.New()
	fake.AddAccount("ada@example.com", "secret1", nil)
	tokens := &memTokens{}

	first := newState(t, fake, tokens)
	_, err := first.Login(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)

	fake.ProfileDelay = 5 * time.Second
	st := NewState(StateConfig{
		Sessions:       backend.NewSessions(fake.Auth(), tokens, time.Hour, nil),
		Resolver:       user.NewResolver(fake.Profiles(), "admin@example.com", 5*time.Second, nil),
		Connected:      true,
		SessionTimeout: time.Second,
		SafetyTimeout:  50 * time.Millisecond,
	})
	defer st.Close()

	start := time.Now()
	st.Initialize(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, st.IsLoading())
}
