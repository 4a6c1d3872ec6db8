// AngelaMos | 2026
// store_test.go

package filestore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "notes.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "uploaded_"))

	rec, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "notes.pdf", rec.Filename)
	assert.Equal(t, "application/pdf", rec.MimeType)
	assert.Equal(t, int64(8), rec.Size)
	assert.Equal(t, []byte("%PDF-1.7"), rec.Data)
}

func TestGetMissing(t *testing.T) {
	_, err := newTestStore(t).Get(context.Background(), "uploaded_0_nope")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestResolveMintsFreshURLs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "a.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)

	first, err := s.Resolve(ctx, id)
	require.NoError(t, err)
	second, err := s.Resolve(ctx, id)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, IsDirectURL(first))
	assert.Equal(t, 2, s.LiveURLs())

	rec, err := s.OpenURL(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	s.Revoke(first)
	_, err = s.OpenURL(ctx, first)
	require.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, 1, s.LiveURLs())
}

func TestResolveMissingReturnsEmpty(t *testing.T) {
	url, err := newTestStore(t).Resolve(context.Background(), "uploaded_1_missing")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestDeleteRevokesURLs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "a.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)
	_, err = s.Resolve(ctx, id)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, id))
	assert.Zero(t, s.LiveURLs())
	require.ErrorIs(t, s.Delete(ctx, id), core.ErrNotFound)
}

func TestListAndFindByFilename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Save(ctx, "a.pdf", "application/pdf", []byte("1"))
	require.NoError(t, err)
	_, err = s.Save(ctx, "b.pdf", "application/pdf", []byte("22"))
	require.NoError(t, err)
	_, err = s.Save(ctx, "a.pdf", "application/pdf", []byte("333"))
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	named, err := s.FindByFilename(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Len(t, named, 2)
}

func TestReopenKeepsSchemaAndData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "files.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.Save(ctx, "a.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.GetContext(ctx, &version, `PRAGMA user_version`))
	assert.Equal(t, SchemaVersion(), version)

	_, err = s.Get(ctx, id)
	require.NoError(t, err)
}

func TestIsDirectURL(t *testing.T) {
	assert.True(t, IsDirectURL("https://cdn.example.com/a.pdf"))
	assert.True(t, IsDirectURL("data:application/pdf;base64,AAAA"))
	assert.True(t, IsDirectURL("blob:studyvault/123"))
	assert.False(t, IsDirectURL("uploaded_1700000000000_abc123xyz"))
}

func TestObjectURLToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "a.pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)
	url, err := s.Resolve(ctx, id)
	require.NoError(t, err)

	token := ObjectURLToken(url)
	require.NotEmpty(t, token)
	assert.Equal(t, url, ObjectURL(token))

	assert.Empty(t, ObjectURLToken("https://example.com/a.pdf"))
}
