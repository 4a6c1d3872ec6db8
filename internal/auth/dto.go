// AngelaMos | 2026
// dto.go

package auth

import (
	"github.com/studyvault/studyvault/internal/user"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// SignupRequest leaves email format and password strength to the auth
// service so that its messages reach the form.
type SignupRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=100"`
	Email    string `json:"email"    validate:"required,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type AuthResponse struct {
	User   *user.User    `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

type StatusResponse struct {
	Loading          bool       `json:"loading"`
	Authenticated    bool       `json:"authenticated"`
	BackendConnected bool       `json:"backend_connected"`
	User             *user.User `json:"user,omitempty"`
}
