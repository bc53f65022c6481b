package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/teamclash/internal/adapters/repository"
)

type createUserRequest struct {
	ID   string `json:"id" validate:"omitempty,max=64"`
	Team string `json:"team" validate:"required,notblank"`
}

type adjustCurrencyRequest struct {
	Delta *int64 `json:"delta" validate:"required"`
}

// UsersHandler manages ledger users.
type UsersHandler struct {
	deps UserDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleCreate handles POST /admin/users.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"
	var req createUserRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeFailure(r.Context(), w, err)
		return
	}
	user, err := h.deps.CreateUser(r.Context(), strings.TrimSpace(req.ID), req.Team)
	if errors.Is(err, repository.ErrDuplicateUser) {
		writeFailure(r.Context(), w, WrapKind(op, ErrConflict, err))
		return
	}
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleGet handles GET /admin/users/{id}.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.deps.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(r.Context(), w, Wrap("api.get_user", err))
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleAdjust handles POST /admin/users/{id}/currency.
func (h *UsersHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	const op = "api.adjust_currency"
	var req adjustCurrencyRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeFailure(r.Context(), w, err)
		return
	}
	user, err := h.deps.AdjustCurrency(r.Context(), r.PathValue("id"), *req.Delta)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
