// AngelaMos | 2026
// dto.go

package user

import (
	"time"

	"github.com/studyvault/studyvault/internal/backend"
)

type ProfileResponse struct {
	ID        string     `json:"id"`
	FullName  string     `json:"full_name"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func ToProfileResponse(row *backend.ProfileRow) ProfileResponse {
	return ProfileResponse{
		ID:        row.ID,
		FullName:  row.FullName,
		Email:     row.Email,
		Role:      ParseRole(row.Role),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
