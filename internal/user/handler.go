// AngelaMos | 2026
// handler.go

package user

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studyvault/studyvault/internal/core"
)

// ScopeFunc resolves the signed-in user of a request together with a
// context authorised for backend row access.
type ScopeFunc func(r *http.Request) (context.Context, *User, error)

type Handler struct {
	resolver *Resolver
	scope    ScopeFunc
}

func NewHandler(resolver *Resolver, scope ScopeFunc) *Handler {
	return &Handler{resolver: resolver, scope: scope}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/users", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
	})
}

// GetMe returns the stored profile row of the caller.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx, u, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	row, err := h.resolver.Profiles().GetProfile(ctx, u.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "profile")
			return
		}
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToProfileResponse(row))
}
