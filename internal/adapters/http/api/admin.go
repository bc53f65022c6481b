package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/teamclash/internal/domain/model"
)

const defaultListLimit = 20

// hintRequest is one hint in a create-event body.
type hintRequest struct {
	Threshold *int64 `json:"threshold" validate:"required,gte=0"`
	Title     string `json:"title" validate:"required,notblank,max=200"`
	Content   string `json:"content" validate:"max=4000"`
}

// createEventRequest mirrors the OpenAPI schema for POST /admin/events.
type createEventRequest struct {
	Name         string        `json:"name" validate:"required,notblank,max=200"`
	StartAt      string        `json:"startAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndAt        string        `json:"endAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Hints        []hintRequest `json:"hints" validate:"max=100,dive"`
	RewardAmount *int64        `json:"rewardAmount" validate:"omitempty,gte=0"`
}

func (req createEventRequest) toModel() (model.NewEvent, error) {
	start, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return model.NewEvent{}, err
	}
	end, err := time.Parse(time.RFC3339, req.EndAt)
	if err != nil {
		return model.NewEvent{}, err
	}
	hints := make([]model.Hint, 0, len(req.Hints))
	for _, h := range req.Hints {
		hints = append(hints, model.Hint{Threshold: *h.Threshold, Title: strings.TrimSpace(h.Title), Content: h.Content})
	}
	return model.NewEvent{
		Name:         strings.TrimSpace(req.Name),
		StartAt:      start,
		EndAt:        end,
		Hints:        hints,
		RewardAmount: req.RewardAmount,
	}, nil
}

// AdminHandler serves teacher views and event management.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleActive handles GET /admin/status/active.
func (h *AdminHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.AdminActiveStatus(r.Context())
	if err != nil {
		writeFailure(r.Context(), w, Wrap("api.admin_status_active", err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleEventStatus handles GET /admin/events/{id}/status.
func (h *AdminHandler) HandleEventStatus(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.AdminEventStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(r.Context(), w, Wrap("api.admin_event_status", err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleCreateEvent handles POST /admin/events.
func (h *AdminHandler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_event"
	var req createEventRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeFailure(r.Context(), w, err)
		return
	}
	in, err := req.toModel()
	if err != nil {
		writeFailure(r.Context(), w, WrapKind(op, ErrBadRequest, err))
		return
	}
	rec, err := h.deps.CreateEvent(r.Context(), in)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleListEvents handles GET /admin/events?limit=N.
func (h *AdminHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeFailure(r.Context(), w, WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}
	list, err := h.deps.ListEvents(r.Context(), limit)
	if err != nil {
		writeFailure(r.Context(), w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleRunSettlement handles POST /admin/settlement/run.
func (h *AdminHandler) HandleRunSettlement(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.RunSettlement(r.Context())
	if err != nil {
		writeFailure(r.Context(), w, Wrap("api.run_settlement", err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleStandings handles GET /admin/standings.
func (h *AdminHandler) HandleStandings(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Standings(r.Context())
	if err != nil {
		writeFailure(r.Context(), w, Wrap("api.standings", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
