// AngelaMos | 2026
// entity.go

package user

import (
	"strings"

	"github.com/studyvault/studyvault/internal/backend"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole maps anything other than "admin" to RoleStudent.
func ParseRole(s string) Role {
	if Role(strings.ToLower(strings.TrimSpace(s))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStudent
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName picks full_name, then name, then the local part of the email,
// then "User".
func DisplayName(ident backend.Identity) string {
	if name := strings.TrimSpace(ident.MetadataString("full_name")); name != "" {
		return name
	}
	if name := strings.TrimSpace(ident.MetadataString("name")); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(ident.Email, "@"); local != "" {
		return local
	}
	return "User"
}

func fromRow(row *backend.ProfileRow, ident backend.Identity) *User {
	u := &User{
		ID:    row.ID,
		Name:  row.FullName,
		Email: row.Email,
		Role:  ParseRole(row.Role),
	}
	if u.ID == "" {
		u.ID = ident.ID
	}
	if u.Name == "" {
		u.Name = DisplayName(ident)
	}
	if u.Email == "" {
		u.Email = ident.Email
	}
	return u
}
