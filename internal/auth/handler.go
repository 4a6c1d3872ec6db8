// AngelaMos | 2026
// handler.go

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/studyvault/studyvault/internal/core"
	"github.com/studyvault/studyvault/internal/middleware"
	"github.com/studyvault/studyvault/internal/user"
)

// Workspaces creates and finds the per-client state an API token points at.
type Workspaces interface {
	Open(ctx context.Context) (sessionID string, state *State, err error)
	Lookup(ctx context.Context, sessionID string) (*State, error)
	Close(ctx context.Context, sessionID string)
	Connected() bool
}

type Handler struct {
	workspaces Workspaces
	jwt        *JWTManager
	validator  *validator.Validate
}

func NewHandler(workspaces Workspaces, jwt *JWTManager) *Handler {
	return &Handler{
		workspaces: workspaces,
		jwt:        jwt,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth, rateLimit func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			r.Post("/login", h.Login)
			r.Post("/signup", h.Signup)
		})

		r.With(optionalAuth).Get("/status", h.Status)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/me", h.GetMe)
			r.Post("/logout", h.Logout)
		})
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	h.authenticate(w, r, http.StatusOK, func(ctx context.Context, st *State) (*user.User, error) {
		return st.Login(ctx, req.Email, req.Password)
	})
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	h.authenticate(w, r, http.StatusCreated, func(ctx context.Context, st *State) (*user.User, error) {
		return st.Signup(ctx, req.Name, req.Email, req.Password)
	})
}

// authenticate runs fn against a fresh workspace and, on success, hands
// out an API token bound to it.
func (h *Handler) authenticate(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	fn func(ctx context.Context, st *State) (*user.User, error),
) {
	ctx := r.Context()

	sid, st, err := h.workspaces.Open(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	u, err := fn(ctx, st)
	if err != nil {
		h.workspaces.Close(ctx, sid)
		writeAuthError(w, err)
		return
	}

	token, err := h.jwt.CreateAccessToken(AccessTokenClaims{
		UserID:    u.ID,
		Role:      string(u.Role),
		SessionID: sid,
	})
	if err != nil {
		h.workspaces.Close(ctx, sid)
		core.InternalServerError(w, err)
		return
	}

	core.JSON(w, status, AuthResponse{
		User: u,
		Tokens: TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int(h.jwt.AccessTokenTTL().Seconds()),
		},
	})
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	st, err := h.workspaces.Lookup(r.Context(), middleware.GetSessionID(r.Context()))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	u := st.User()
	if u == nil {
		core.Unauthorized(w, "not signed in")
		return
	}

	core.OK(w, u)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{BackendConnected: h.workspaces.Connected()}

	if sid := middleware.GetSessionID(r.Context()); sid != "" {
		if st, err := h.workspaces.Lookup(r.Context(), sid); err == nil {
			resp.Loading = st.IsLoading()
			resp.User = st.User()
			resp.Authenticated = resp.User != nil
		}
	}

	core.OK(w, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.GetSessionID(ctx)

	if st, err := h.workspaces.Lookup(ctx, sid); err == nil {
		st.Logout(ctx)
	}
	h.workspaces.Close(ctx, sid)

	core.NoContent(w)
}

func writeAuthError(w http.ResponseWriter, err error) {
	var authErr *Error
	if errors.As(err, &authErr) {
		core.JSONError(w, authErr.AppError())
		return
	}
	core.JSONError(w, err)
}
