// AngelaMos | 2026
// errors.go

package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/studyvault/studyvault/internal/core"
)

const (
	codeNoRows           = "PGRST116"
	codeInsufficientPriv = "42501"
	codeUniqueViolation  = "23505"
)

// Error is a failure reported by the backend itself, as opposed to a
// transport failure.
type Error struct {
	Status  int
	Code    string
	Message string
	Details string
	Hint    string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message)
}

// Is lets callers test backend errors against the core sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case core.ErrNotFound:
		return e.Code == codeNoRows
	case core.ErrPermissionDenied:
		return e.Code == codeInsufficientPriv ||
			strings.Contains(strings.ToLower(e.Message), "row-level security policy")
	case core.ErrDuplicateKey:
		return e.Code == codeUniqueViolation
	case core.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

// HasCode matches the machine code or, for older auth servers that only send
// prose, a case-insensitive fragment of the message.
func (e *Error) HasCode(code, messageFragment string) bool {
	if code != "" && strings.EqualFold(e.Code, code) {
		return true
	}
	return messageFragment != "" &&
		strings.Contains(strings.ToLower(e.Message), strings.ToLower(messageFragment))
}

type errorBody struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Message          string          `json:"message"`
	Msg              string          `json:"msg"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
}

// decodeError understands PostgREST, GoTrue and Storage error bodies.
func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		e.Message = strings.TrimSpace(string(body))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	e.Code = firstNonEmpty(b.ErrorCode, rawCode(b.Code), b.Error)
	e.Message = firstNonEmpty(b.Msg, b.Message, b.ErrorDescription, b.Error, http.StatusText(status))
	e.Details = b.Details
	e.Hint = b.Hint

	return e
}

// rawCode accepts both "PGRST116" and 400 style codes. Numeric codes merely
// repeat the HTTP status and are dropped.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
