// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/teamclash/internal/adapters/repository"
	service "github.com/okian/teamclash/internal/app"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/types"
	"github.com/okian/teamclash/internal/settlement"
	"github.com/okian/teamclash/pkg/logger"
)

// Request headers set by the auth collaborator in front of this service.
const (
	HeaderTeam = "X-Team"
	HeaderRole = "X-Role"

	roleTeacher  = "teacher"
	maxBodyBytes = 1 << 20
)

// StatusDependencies serve the student-facing status views.
type StatusDependencies interface {
	ActiveStatus(ctx context.Context, callerTeam string) (types.StatusView, error)
	EventStatus(ctx context.Context, eventID, callerTeam string) (types.StatusView, error)
}

// AdminDependencies serve teacher views and event management.
type AdminDependencies interface {
	AdminActiveStatus(ctx context.Context) (types.AdminStatusView, error)
	AdminEventStatus(ctx context.Context, eventID string) (types.AdminStatusView, error)
	CreateEvent(ctx context.Context, in model.NewEvent) (types.EventRecord, error)
	ListEvents(ctx context.Context, limit int) ([]types.EventRecord, error)
	RunSettlement(ctx context.Context) (types.SettlementReport, error)
	Standings(ctx context.Context) (types.StatsView, error)
}

// UserDependencies manage ledger users.
type UserDependencies interface {
	CreateUser(ctx context.Context, id, team string) (types.UserView, error)
	GetUser(ctx context.Context, id string) (types.UserView, error)
	AdjustCurrency(ctx context.Context, id string, delta int64) (types.UserView, error)
}

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatusDependencies
	AdminDependencies
	UserDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	statusHandler *StatusHandler
	adminHandler  *AdminHandler
	usersHandler  *UsersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		statusHandler: NewStatusHandler(deps),
		adminHandler:  NewAdminHandler(deps),
		usersHandler:  NewUsersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /status/active", MetricsMiddleware(s.statusHandler.HandleActive, "status_active"))
	mux.HandleFunc("GET /status/events/{id}", MetricsMiddleware(s.statusHandler.HandleEvent, "status_event"))

	admin := func(h http.HandlerFunc, endpoint string) http.HandlerFunc {
		return MetricsMiddleware(RequireTeacher(h), endpoint)
	}
	mux.HandleFunc("GET /admin/status/active", admin(s.adminHandler.HandleActive, "admin_status_active"))
	mux.HandleFunc("GET /admin/events/{id}/status", admin(s.adminHandler.HandleEventStatus, "admin_event_status"))
	mux.HandleFunc("POST /admin/events", admin(s.adminHandler.HandleCreateEvent, "admin_create_event"))
	mux.HandleFunc("GET /admin/events", admin(s.adminHandler.HandleListEvents, "admin_list_events"))
	mux.HandleFunc("POST /admin/settlement/run", admin(s.adminHandler.HandleRunSettlement, "admin_settlement_run"))
	mux.HandleFunc("GET /admin/standings", admin(s.adminHandler.HandleStandings, "admin_standings"))

	mux.HandleFunc("POST /admin/users", admin(s.usersHandler.HandleCreate, "admin_create_user"))
	mux.HandleFunc("GET /admin/users/{id}", admin(s.usersHandler.HandleGet, "admin_get_user"))
	mux.HandleFunc("POST /admin/users/{id}/currency", admin(s.usersHandler.HandleAdjust, "admin_adjust_currency"))

	logger.Get().Debug(ctx, "http routes registered")
}

type errorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []fieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	resp := errorResponse{Code: code, Message: msg}
	var verr *validationError
	if errors.As(err, &verr) {
		resp.Fields = verr.fields
	}
	writeJSON(w, status, resp)
}

// writeFailure maps a handler or service error onto a status code.
// Unclassified causes are logged and never echoed to the client.
func writeFailure(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Error(ctx, "request failed", logger.Error(err))
	}
	if status == http.StatusInternalServerError {
		err = ErrInternal
	}
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case isNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidEvent),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, repository.ErrUnknownTeam):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrInsufficientBalance):
		return http.StatusConflict, "insufficient_balance"
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, service.ErrNotStarted),
		errors.Is(err, settlement.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, repository.ErrNotFound)
}

// decodeJSON reads a bounded request body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := validateStruct(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
