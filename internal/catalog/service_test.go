// AngelaMos | 2026
// service_test.go

package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/backend/backendtest"
	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/user"
)

const testCover = "https://covers.test/default.jpg"

func newTestState(fake *backendtest.Fake) *State {
	return NewState(StateConfig{
		Books:        fake.Books(),
		Profiles:     user.NewResolver(fake.Profiles(), "admin@example.com", time.Second, nil),
		DefaultCover: testCover,
		LoadTimeout:  time.Second,
	})
}

// signedIn returns a context carrying a live access token for a new admin.
func signedIn(t *testing.T, fake *backendtest.Fake) (context.Context, *user.User) {
	t.Helper()

	ident := fake.AddAccount("admin@example.com", "secret123", nil)
	sess, err := fake.SignInWithPassword(context.Background(), "admin@example.com", "secret123")
	require.NoError(t, err)

	u := &user.User{ID: ident.ID, Name: "admin", Email: ident.Email, Role: user.RoleAdmin}
	return backend.WithAccessToken(context.Background(), sess.AccessToken), u
}

func strPtr(s string) *string { return &s }

func TestGroupPartitionsBySubjectAndSemester(t *testing.T) {
	books := []Book{
		{ID: "1", Subject: "Physics", Semester: 1},
		{ID: "2", Subject: "Maths", Semester: 1},
		{ID: "3", Subject: "Physics", Semester: 2},
		{ID: "4", Subject: "Physics", Semester: 1},
	}

	subjects := Group(books)

	require.Len(t, subjects, 3)
	assert.Equal(t, "Physics-1", subjects[0].ID)
	assert.Equal(t, []string{"1", "4"}, bookIDs(subjects[0].Books))
	assert.Equal(t, "Maths-1", subjects[1].ID)
	assert.Equal(t, "Physics-2", subjects[2].ID)
	assert.Equal(t, 2, subjects[2].Semester)

	total := 0
	for _, s := range subjects {
		total += len(s.Books)
	}
	assert.Equal(t, len(books), total)
}

func TestGroupEmpty(t *testing.T) {
	assert.Empty(t, Group(nil))
	assert.NotNil(t, Group(nil))
}

func TestLoadOrdersNewestFirstAndDefaultsCover(t *testing.T) {
	fake := backendtest.New()
	fake.SeedBooks(
		backend.BookRow{Title: "Old", Subject: "Physics", Semester: 1, PDFURL: "https://x/old.pdf"},
		backend.BookRow{
			Title:         "New",
			Subject:       "Physics",
			Semester:      1,
			PDFURL:        "https://x/new.pdf",
			CoverImageURL: strPtr("https://covers.test/new.jpg"),
			Author:        strPtr("Feynman"),
		},
	)

	s := newTestState(fake)
	require.NoError(t, s.Load(context.Background()))

	books := s.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "New", books[0].Title)
	assert.Equal(t, "https://covers.test/new.jpg", books[0].CoverImage)
	assert.Equal(t, "Feynman", books[0].Author)
	assert.Equal(t, testCover, books[1].CoverImage)
	assert.Equal(t, "2025-01-01", books[1].UploadDate)
	assert.False(t, s.IsLoading())

	subjects := s.Subjects()
	require.Len(t, subjects, 1)
	assert.Equal(t, []string{books[0].ID, books[1].ID}, bookIDs(subjects[0].Books))
}

func TestLoadTimeoutClearsLoadingAndKeepsCatalog(t *testing.T) {
	fake := backendtest.New()
	fake.SeedBooks(backend.BookRow{Title: "Kept", Subject: "Maths", Semester: 3})

	s := NewState(StateConfig{
		Books:        fake.Books(),
		Profiles:     user.NewResolver(fake.Profiles(), "admin@example.com", time.Second, nil),
		DefaultCover: testCover,
		LoadTimeout:  20 * time.Millisecond,
	})
	require.NoError(t, s.Load(context.Background()))

	fake.ListDelay = time.Second
	start := time.Now()
	err := s.Load(context.Background())

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.False(t, s.IsLoading())
	assert.Len(t, s.Books(), 1)
}

func TestLoadFailureKeepsPreviousContents(t *testing.T) {
	fake := backendtest.New()
	fake.SeedBooks(backend.BookRow{Title: "Kept", Subject: "Maths", Semester: 3})

	s := newTestState(fake)
	require.NoError(t, s.Load(context.Background()))

	fake.ListErr = errors.New("network down")
	err := s.Load(context.Background())

	require.Error(t, err)
	assert.Len(t, s.Books(), 1)
	assert.False(t, s.IsLoading())
}

func TestLoadDisconnected(t *testing.T) {
	s := NewState(StateConfig{Books: backend.Disconnected().Books()})

	err := s.Load(context.Background())

	assert.ErrorIs(t, err, core.ErrNotConnected)
	assert.Empty(t, s.Books())
}

func TestAddAndDeleteBook(t *testing.T) {
	fake := backendtest.New()
	fake.SeedBooks(backend.BookRow{Title: "Existing", Subject: "Chemistry", Semester: 2})
	s := newTestState(fake)
	require.NoError(t, s.Load(context.Background()))

	ctx, admin := signedIn(t, fake)
	book, err := s.AddBook(ctx, admin, NewBook{
		Title:    "Organic Chemistry",
		Subject:  "Chemistry",
		Semester: 2,
		PDFURL:   "https://x/organic.pdf",
	})
	require.NoError(t, err)

	assert.Equal(t, testCover, book.CoverImage)
	assert.Equal(t, book.ID, s.Books()[0].ID)
	subjects := s.SubjectsForSemester(2)
	require.Len(t, subjects, 1)
	assert.Len(t, subjects[0].Books, 2)

	_, hasProfile := fake.Profile(admin.ID)
	assert.True(t, hasProfile)

	require.NoError(t, s.DeleteBook(ctx, book.ID))
	_, found := s.Find(book.ID)
	assert.False(t, found)
	assert.Len(t, s.Books(), 1)

	count, err := fake.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAddBookRequiresUser(t *testing.T) {
	s := newTestState(backendtest.New())

	_, err := s.AddBook(context.Background(), nil, NewBook{Title: "x"})

	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestAddBookPermissionDenied(t *testing.T) {
	fake := backendtest.New()
	fake.DenyBookWrites = true
	s := newTestState(fake)
	ctx, admin := signedIn(t, fake)

	_, err := s.AddBook(ctx, admin, NewBook{Title: "Denied", Subject: "Art", Semester: 1, PDFURL: "https://x/a.pdf"})

	require.ErrorIs(t, err, core.ErrPermissionDenied)
	appErr, ok := core.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, msgPermissionDenied, appErr.Message)
	assert.Empty(t, s.Books())
}

func TestSemesterSelection(t *testing.T) {
	fake := backendtest.New()
	fake.SeedBooks(
		backend.BookRow{Title: "A", Subject: "Maths", Semester: 1},
		backend.BookRow{Title: "B", Subject: "Maths", Semester: 4},
		backend.BookRow{Title: "C", Subject: "Biology", Semester: 4},
	)
	s := newTestState(fake)
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, MinSemester, s.SelectedSemester())
	assert.Len(t, s.SubjectsForSemester(0), 1)

	require.NoError(t, s.SelectSemester(4))
	assert.Len(t, s.SubjectsForSemester(0), 2)

	assert.ErrorIs(t, s.SelectSemester(0), core.ErrInvalidInput)
	assert.ErrorIs(t, s.SelectSemester(9), core.ErrInvalidInput)
	assert.Equal(t, 4, s.SelectedSemester())

	assert.Len(t, s.Filter(4, "Maths"), 1)
	assert.Empty(t, s.Filter(2, "Maths"))
}

func TestSearch(t *testing.T) {
	fake := backendtest.New()
	fake.SeedBooks(
		backend.BookRow{Title: "Linear Algebra", Subject: "Maths", Semester: 1},
		backend.BookRow{Title: "Mechanics", Subject: "Physics", Semester: 2, Author: strPtr("Landau")},
	)
	s := newTestState(fake)
	require.NoError(t, s.Load(context.Background()))

	assert.Len(t, s.Search("algebra", 0), 1)
	assert.Len(t, s.Search("LANDAU", 0), 1)
	assert.Len(t, s.Search("physics", 1), 0)
	assert.Len(t, s.Search("", 2), 1)
	assert.Len(t, s.Search("  ", 0), 2)
}

func TestResetClearsCatalog(t *testing.T) {
	fake := backendtest.New()
	fake.SeedBooks(backend.BookRow{Title: "A", Subject: "Maths", Semester: 1})
	s := newTestState(fake)
	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.SelectSemester(3))

	s.Reset()

	assert.Empty(t, s.Books())
	assert.Empty(t, s.Subjects())
	assert.Equal(t, MinSemester, s.SelectedSemester())
}

func bookIDs(books []Book) []string {
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	return ids
}
