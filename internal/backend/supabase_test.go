// AngelaMos | 2026
// supabase_test.go

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault/internal/config"
	"github.com/studyvault/studyvault/internal/core"
)

func newTestSupabase(t *testing.T, handler http.HandlerFunc) *Supabase {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewSupabase(config.BackendConfig{
		URL:     srv.URL + "/",
		AnonKey: "anon-key",
		Bucket:  "books",
		Timeout: 5 * time.Second,
	})
}

func TestNewWithoutCredentialsIsDisconnected(t *testing.T) {
	c := New(config.BackendConfig{URL: "https://example.supabase.co"})

	assert.False(t, c.Connected())

	_, err := c.Auth().SignInWithPassword(context.Background(), "a@b.c", "secret")
	require.ErrorIs(t, err, core.ErrNotConnected)

	_, err = c.Books().ListBooks(context.Background())
	require.ErrorIs(t, err, core.ErrNotConnected)
	assert.False(t, c.Storage().Configured())
}

func TestSignInWithPassword(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"access_token": "at",
			"refresh_token": "rt",
			"expires_in": 3600,
			"user": {"id": "u1", "email": "ada@example.com",
			         "user_metadata": {"full_name": "Ada"}}
		}`)
	})

	sess, err := s.Auth().SignInWithPassword(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "rt", sess.RefreshToken)
	assert.Equal(t, "u1", sess.User.ID)
	assert.Equal(t, "Ada", sess.User.MetadataString("full_name"))
	assert.False(t, sess.Expired(time.Now()))
}

func TestSignInInvalidCredentials(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)
	})

	_, err := s.Auth().SignInWithPassword(context.Background(), "x@y.z", "bad")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.True(t, apiErr.HasCode("invalid_credentials", ""))
	assert.True(t, apiErr.HasCode("", "invalid login credentials"))
}

func TestSignUpWithoutSession(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		data, ok := body["data"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "student", data["role"])

		_, _ = io.WriteString(w, `{"id":"u2","email":"new@example.com","user_metadata":{"role":"student"}}`)
	})

	res, err := s.Auth().SignUp(context.Background(), SignUpParams{
		Email:    "new@example.com",
		Password: "secret1",
		Metadata: map[string]any{"role": "student"},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Session)
	assert.Equal(t, "u2", res.User.ID)
}

func TestGetProfileNoRows(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("id"))
		assert.Equal(t, mediaSingleObject, r.Header.Get("Accept"))

		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = io.WriteString(w, `{"code":"PGRST116","details":"The result contains 0 rows","hint":null,"message":"JSON object requested, multiple (or no) rows returned"}`)
	})

	_, err := s.Profiles().GetProfile(context.Background(), "u1")
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.NotErrorIs(t, err, core.ErrPermissionDenied)
}

func TestInsertBookRowLevelSecurity(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"code":"42501","message":"new row violates row-level security policy for table \"books\""}`)
	})

	ctx := WithAccessToken(context.Background(), "user-token")
	_, err := s.Books().InsertBook(ctx, BookInsert{Title: "T", Subject: "S", Semester: 1})
	require.ErrorIs(t, err, core.ErrPermissionDenied)
}

func TestListBooksOrdering(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[
			{"id":"b2","title":"Two","subject":"Math","semester":2,"pdf_url":"https://x/2.pdf","created_at":"2025-02-01T10:00:00Z","updated_at":"2025-02-01T10:00:00Z"},
			{"id":"b1","title":"One","subject":"Math","semester":1,"pdf_url":"https://x/1.pdf","created_at":"2025-01-01T10:00:00Z","updated_at":"2025-01-01T10:00:00Z"}
		]`)
	})

	rows, err := s.Books().ListBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b2", rows[0].ID)
	assert.Nil(t, rows[0].Author)
}

func TestCountBooks(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		w.Header().Set("Content-Range", "0-0/42")
	})

	n, err := s.Books().CountBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	total, err := parseContentRangeTotal("*/0")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUploadAndPublicURL(t *testing.T) {
	var got string
	s := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/books/123-abc.pdf", r.URL.Path)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		got = string(data)
		_, _ = io.WriteString(w, `{"Key":"books/123-abc.pdf"}`)
	})

	err := s.Storage().Upload(context.Background(), "123-abc.pdf", "application/pdf", strings.NewReader("%PDF-1.4"), 8)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", got)
	assert.True(t, strings.HasSuffix(s.Storage().PublicURL("123-abc.pdf"), "/storage/v1/object/public/books/123-abc.pdf"))
}

func TestPingTreatsClientErrorsAsReachable(t *testing.T) {
	s := newTestSupabase(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.NoError(t, s.Ping(context.Background()))

	down := newTestSupabase(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := down.Ping(context.Background())
	require.Error(t, err)

	var apiErr *Error
	assert.True(t, errors.As(err, &apiErr))
}

func TestDecodeErrorPlainText(t *testing.T) {
	e := decodeError(http.StatusBadGateway, []byte("upstream down"))
	assert.Equal(t, "upstream down", e.Message)
	assert.Empty(t, e.Code)

	e = decodeError(http.StatusInternalServerError, nil)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), e.Message)
}
