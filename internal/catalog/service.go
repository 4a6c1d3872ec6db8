// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/user"
)

const msgPermissionDenied = "Permission denied: You may not have the required permissions " +
	"to upload books. Please log out and log back in, or contact an administrator."

type StateConfig struct {
	Books        backend.BookStore
	Profiles     *user.Resolver
	DefaultCover string
	LoadTimeout  time.Duration
	Logger       *slog.Logger
}

// State is the book catalog of one client with its derived subject
// buckets. Every mutation recomputes the buckets in full.
type State struct {
	books        backend.BookStore
	profiles     *user.Resolver
	defaultCover string
	loadTimeout  time.Duration
	logger       *slog.Logger

	mu       sync.RWMutex
	items    []Book
	subjects []Subject
	loading  bool
	semester int
}

func NewState(cfg StateConfig) *State {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &State{
		books:        cfg.Books,
		profiles:     cfg.Profiles,
		defaultCover: cfg.DefaultCover,
		loadTimeout:  cfg.LoadTimeout,
		logger:       logger,
		subjects:     []Subject{},
		semester:     MinSemester,
	}
}

// Load replaces the catalog with the backend's books, newest first. On
// failure the previous contents stay and the error is returned for logging.
func (s *State) Load(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	rows, err := s.books.ListBooks(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "load catalog failed", "error", err)
		return fmt.Errorf("load catalog: %w", err)
	}

	items := make([]Book, 0, len(rows))
	for _, row := range rows {
		items = append(items, bookFromRow(row, s.defaultCover))
	}

	s.mu.Lock()
	s.items = items
	s.subjects = Group(items)
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "catalog loaded", "books", len(items))
	return nil
}

func (s *State) AddBook(ctx context.Context, uploader *user.User, nb NewBook) (*Book, error) {
	if uploader == nil {
		return nil, core.UnauthorizedError("You must be logged in to upload books.")
	}

	if err := s.profiles.EnsureProfile(ctx, uploader); err != nil {
		s.logger.WarnContext(ctx, "could not ensure uploader profile",
			"user_id", uploader.ID,
			"error", err,
		)
	}

	row, err := s.books.InsertBook(ctx, nb.insert(uploader.ID))
	if err != nil {
		if errors.Is(err, core.ErrPermissionDenied) {
			s.logger.WarnContext(ctx, "book insert rejected by row-level security",
				"user_id", uploader.ID,
				"error", err,
			)
			return nil, core.PermissionDeniedError(msgPermissionDenied)
		}
		return nil, fmt.Errorf("add book: %w", err)
	}

	book := bookFromRow(*row, s.defaultCover)

	s.mu.Lock()
	s.items = append([]Book{book}, s.items...)
	s.subjects = Group(s.items)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "book added",
		"book_id", book.ID,
		"subject", book.Subject,
		"semester", book.Semester,
	)
	return &book, nil
}

func (s *State) DeleteBook(ctx context.Context, id string) error {
	if err := s.books.DeleteBook(ctx, id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	s.mu.Lock()
	s.items = slices.DeleteFunc(s.items, func(b Book) bool { return b.ID == id })
	s.subjects = Group(s.items)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "book deleted", "book_id", id)
	return nil
}

// Reset empties the catalog, e.g. after sign-out.
func (s *State) Reset() {
	s.mu.Lock()
	s.items = nil
	s.subjects = []Subject{}
	s.semester = MinSemester
	s.mu.Unlock()
}

func (s *State) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *State) Books() []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *State) Subjects() []Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSubjects(s.subjects)
}

func (s *State) Find(id string) (Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.items {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

func (s *State) SelectSemester(semester int) error {
	if semester < MinSemester || semester > MaxSemester {
		return core.ValidationError(fmt.Sprintf(
			"semester must be between %d and %d", MinSemester, MaxSemester))
	}

	s.mu.Lock()
	s.semester = semester
	s.mu.Unlock()
	return nil
}

func (s *State) SelectedSemester() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.semester
}

// SubjectsForSemester returns the buckets of one semester, in catalog
// order. A semester of 0 means the selected one.
func (s *State) SubjectsForSemester(semester int) []Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if semester == 0 {
		semester = s.semester
	}

	out := make([]Subject, 0)
	for _, sub := range s.subjects {
		if sub.Semester == semester {
			out = append(out, cloneSubject(sub))
		}
	}
	return out
}

// Filter returns the books of one subject in one semester.
func (s *State) Filter(semester int, subject string) []Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Book, 0)
	for _, b := range s.items {
		if b.Semester == semester && b.Subject == subject {
			out = append(out, b)
		}
	}
	return out
}

// Search matches term case-insensitively against title, subject and
// author. semester 0 matches every semester.
func (s *State) Search(term string, semester int) []Book {
	term = strings.ToLower(strings.TrimSpace(term))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Book, 0)
	for _, b := range s.items {
		if semester != 0 && b.Semester != semester {
			continue
		}
		if term == "" ||
			strings.Contains(strings.ToLower(b.Title), term) ||
			strings.Contains(strings.ToLower(b.Subject), term) ||
			strings.Contains(strings.ToLower(b.Author), term) {
			out = append(out, b)
		}
	}
	return out
}

func (s *State) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func cloneSubject(sub Subject) Subject {
	sub.Books = slices.Clone(sub.Books)
	return sub
}

func cloneSubjects(subjects []Subject) []Subject {
	out := make([]Subject, len(subjects))
	for i, sub := range subjects {
		out[i] = cloneSubject(sub)
	}
	return out
}
