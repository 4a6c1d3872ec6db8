// AngelaMos | 2026
// handler.go

package sidebar

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/studyvault/studyvault/internal/core"
)

const (
	ActionOpen   = "open"
	ActionClose  = "close"
	ActionToggle = "toggle"
	ActionResize = "resize"
)

type Snapshot struct {
	Open   bool `json:"open"`
	Width  int  `json:"width,omitempty"`
	Mobile bool `json:"mobile"`
}

type ActionRequest struct {
	Action string `json:"action" validate:"required,oneof=open close toggle resize"`
	Width  int    `json:"width"  validate:"required_if=Action resize,min=0,max=100000"`
}

type ScopeFunc func(r *http.Request) (*State, error)

type Handler struct {
	scope     ScopeFunc
	validator *validator.Validate
}

func NewHandler(scope ScopeFunc) *Handler {
	return &Handler{
		scope:     scope,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, authenticator func(http.Handler) http.Handler) {
	r.Route("/ui/sidebar", func(r chi.Router) {
		r.Use(authenticator)
		r.Get("/", h.Get)
		r.Post("/", h.Apply)
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}
	core.OK(w, state.Snapshot())
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	state, err := h.scope(r)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	switch req.Action {
	case ActionOpen:
		state.Open()
	case ActionClose:
		state.Close()
	case ActionToggle:
		state.Toggle()
	case ActionResize:
		state.Resize(req.Width)
	}

	core.OK(w, state.Snapshot())
}
