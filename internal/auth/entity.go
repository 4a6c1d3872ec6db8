// AngelaMos | 2026
// entity.go

package auth

import (
	"errors"
	"net/http"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/core"
)

type Kind string

const (
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindEmailNotConfirmed  Kind = "EMAIL_NOT_CONFIRMED"
	KindDuplicateEmail     Kind = "EMAIL_EXISTS"
	KindWeakPassword       Kind = "WEAK_PASSWORD"
	KindInvalidEmail       Kind = "INVALID_EMAIL"
	KindProfileSetup       Kind = "PROFILE_SETUP_FAILED"
	KindNotConnected       Kind = "NOT_CONNECTED"
	KindUnexpected         Kind = "UNEXPECTED"
)

const (
	msgInvalidCredentials = "Invalid email or password. Please check your credentials."
	msgEmailNotConfirmed  = "Please check your email and confirm your account before logging in."
	msgDuplicateEmail     = "An account with this email already exists. Please log in instead."
	msgWeakPassword       = "Password must be at least 6 characters long."
	msgInvalidEmail       = "Please enter a valid email address."
	msgProfileSetup       = "Account created but failed to set up profile. Please try logging in."
	msgLoginFailed        = "Login failed. Please try again."
	msgUnexpected         = "An unexpected error occurred. Please try again."
)

// Error is a login or signup failure with a message fit for the form.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindEmailNotConfirmed:
		return http.StatusForbidden
	case KindDuplicateEmail:
		return http.StatusConflict
	case KindWeakPassword, KindInvalidEmail:
		return http.StatusUnprocessableEntity
	case KindNotConnected:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (e *Error) AppError() *core.AppError {
	return core.NewAppError(e, e.Message, e.StatusCode(), string(e.Kind))
}

func notConnectedError() *Error {
	return &Error{Kind: KindNotConnected, Message: core.NotConnectedMessage, Err: core.ErrNotConnected}
}

func classifyLoginError(err error) *Error {
	if errors.Is(err, core.ErrNotConnected) {
		return notConnectedError()
	}

	var apiErr *backend.Error
	if !errors.As(err, &apiErr) {
		return &Error{Kind: KindUnexpected, Message: msgUnexpected, Err: err}
	}

	switch {
	case apiErr.HasCode("invalid_credentials", "invalid login credentials"):
		return &Error{Kind: KindInvalidCredentials, Message: msgInvalidCredentials, Err: err}
	case apiErr.HasCode("email_not_confirmed", "email not confirmed"):
		return &Error{Kind: KindEmailNotConfirmed, Message: msgEmailNotConfirmed, Err: err}
	default:
		return &Error{Kind: KindUnexpected, Message: msgLoginFailed, Err: err}
	}
}

func classifySignupError(err error) *Error {
	if errors.Is(err, core.ErrNotConnected) {
		return notConnectedError()
	}

	var apiErr *backend.Error
	if !errors.As(err, &apiErr) {
		return &Error{Kind: KindUnexpected, Message: msgUnexpected, Err: err}
	}

	switch {
	case apiErr.HasCode("user_already_exists", "already registered"),
		apiErr.HasCode("email_exists", ""):
		return &Error{Kind: KindDuplicateEmail, Message: msgDuplicateEmail, Err: err}
	case apiErr.HasCode("weak_password", "password should be at least"):
		return &Error{Kind: KindWeakPassword, Message: msgWeakPassword, Err: err}
	case apiErr.HasCode("email_address_invalid", "invalid email"),
		apiErr.HasCode("validation_failed", "unable to validate email"):
		return &Error{Kind: KindInvalidEmail, Message: msgInvalidEmail, Err: err}
	default:
		return &Error{Kind: KindUnexpected, Message: msgUnexpected, Err: err}
	}
}
