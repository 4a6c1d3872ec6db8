// AngelaMos | 2026
// entity.go

package catalog

import (
	"strconv"

	"github.com/studyvault/studyvault/internal/backend"
)

const (
	MinSemester = 1
	MaxSemester = 8
)

type Book struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Subject    string `json:"subject"`
	Semester   int    `json:"semester"`
	CoverImage string `json:"coverImage"`
	PDFURL     string `json:"pdfUrl"`
	Author     string `json:"author,omitempty"`
	UploadDate string `json:"uploadDate"`
	FileSize   int64  `json:"fileSize,omitempty"`
}

// Subject groups the books of one subject name within one semester.
type Subject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Semester int    `json:"semester"`
	Books    []Book `json:"books"`
}

// NewBook is what an uploader supplies; the backend assigns id and dates.
type NewBook struct {
	Title      string
	Subject    string
	Semester   int
	Author     string
	CoverImage string
	PDFURL     string
	FilePath   string
	FileSize   int64
}

func SubjectID(name string, semester int) string {
	return name + "-" + strconv.Itoa(semester)
}

func bookFromRow(row backend.BookRow, defaultCover string) Book {
	b := Book{
		ID:         row.ID,
		Title:      row.Title,
		Subject:    row.Subject,
		Semester:   row.Semester,
		CoverImage: defaultCover,
		PDFURL:     row.PDFURL,
		UploadDate: row.CreatedAt.UTC().Format("2006-01-02"),
	}
	if row.CoverImageURL != nil && *row.CoverImageURL != "" {
		b.CoverImage = *row.CoverImageURL
	}
	if row.Author != nil {
		b.Author = *row.Author
	}
	if row.FileSize != nil {
		b.FileSize = *row.FileSize
	}
	return b
}

func (nb NewBook) insert(uploaderID string) backend.BookInsert {
	ins := backend.BookInsert{
		Title:      nb.Title,
		Subject:    nb.Subject,
		Semester:   nb.Semester,
		PDFURL:     nb.PDFURL,
		UploadedBy: uploaderID,
	}
	if nb.Author != "" {
		ins.Author = &nb.Author
	}
	if nb.CoverImage != "" {
		ins.CoverImageURL = &nb.CoverImage
	}
	if nb.FilePath != "" {
		ins.FilePath = &nb.FilePath
	}
	if nb.FileSize > 0 {
		ins.FileSize = &nb.FileSize
	}
	return ins
}

// Group buckets books by (subject, semester). Buckets appear in the order
// their first book appears and keep the books' relative order, so grouping
// a newest-first list yields newest-first buckets.
func Group(books []Book) []Subject {
	index := make(map[string]int)
	subjects := make([]Subject, 0)

	for _, b := range books {
		id := SubjectID(b.Subject, b.Semester)
		i, ok := index[id]
		if !ok {
			i = len(subjects)
			index[id] = i
			subjects = append(subjects, Subject{
				ID:       id,
				Name:     b.Subject,
				Semester: b.Semester,
			})
		}
		subjects[i].Books = append(subjects[i].Books, b)
	}

	return subjects
}
