package api

import (
	"net/http"
)

// StatusHandler serves the student status views.
type StatusHandler struct {
	deps StatusDependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps StatusDependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

// HandleActive handles GET /status/active.
func (h *StatusHandler) HandleActive(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.ActiveStatus(r.Context(), r.Header.Get(HeaderTeam))
	if err != nil {
		writeFailure(r.Context(), w, Wrap("api.status_active", err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleEvent handles GET /status/events/{id}.
func (h *StatusHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	view, err := h.deps.EventStatus(r.Context(), r.PathValue("id"), r.Header.Get(HeaderTeam))
	if err != nil {
		writeFailure(r.Context(), w, Wrap("api.status_event", err))
		return
	}
	writeJSON(w, http.StatusOK, view)
}
