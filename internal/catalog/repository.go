// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/core"
)

const bookColumns = `id, title, subject, semester, author, cover_image_url,
	pdf_url, file_path, file_size, uploaded_by, created_at, updated_at`

// repository reads and writes book rows over a direct Postgres connection.
type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) backend.BookStore {
	return &repository{db: db}
}

func (r *repository) ListBooks(ctx context.Context) ([]backend.BookRow, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY created_at DESC`

	var rows []backend.BookRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, core.WrapDBError("list books", err)
	}
	return rows, nil
}

func (r *repository) InsertBook(ctx context.Context, book backend.BookInsert) (*backend.BookRow, error) {
	query := `
		INSERT INTO books (title, subject, semester, author, cover_image_url,
		                   pdf_url, file_path, file_size, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + bookColumns

	var row backend.BookRow
	err := r.db.GetContext(ctx, &row, query,
		book.Title,
		book.Subject,
		book.Semester,
		book.Author,
		book.CoverImageURL,
		book.PDFURL,
		book.FilePath,
		book.FileSize,
		book.UploadedBy,
	)
	if err != nil {
		return nil, core.WrapDBError("insert book", err)
	}
	return &row, nil
}

func (r *repository) DeleteBook(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	return core.WrapDBError("delete book", err)
}

func (r *repository) CountBooks(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM books`); err != nil {
		return 0, core.WrapDBError("count books", err)
	}
	return n, nil
}
