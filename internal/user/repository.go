// AngelaMos | 2026
// repository.go

package user

import (
	"context"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/core"
)

// repository reads and writes profile rows over a direct Postgres
// connection. It is used instead of the REST API when database.url is set.
type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) backend.ProfileStore {
	return &repository{db: db}
}

func (r *repository) GetProfile(ctx context.Context, id string) (*backend.ProfileRow, error) {
	query := `
		SELECT id, full_name, email, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	var row backend.ProfileRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, core.WrapDBError("get profile", err)
	}

	return &row, nil
}

func (r *repository) InsertProfile(ctx context.Context, row backend.ProfileRow) error {
	query := `
		INSERT INTO users (id, full_name, email, role)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, row.ID, row.FullName, row.Email, row.Role)
	return core.WrapDBError("insert profile", err)
}

func (r *repository) UpsertProfile(ctx context.Context, row backend.ProfileRow) error {
	query := `
		INSERT INTO users (id, full_name, email, role)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    email = EXCLUDED.email,
		    role = EXCLUDED.role,
		    updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query, row.ID, row.FullName, row.Email, row.Role)
	return core.WrapDBError("upsert profile", err)
}
