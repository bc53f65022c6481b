// Package repository defines the ledger and event store interfaces and their
// in-memory and Postgres backends.
package repository

import (
	"context"
	"time"

	"github.com/okian/teamclash/internal/domain/model"
)

// Ledger provides access to user balances and scores.
type Ledger interface {
	// SumCurrencyByTeam returns the sum of currency balances per team.
	// Teams without users are absent from the result.
	SumCurrencyByTeam(ctx context.Context) (map[model.Team]int64, error)

	// IncrementScoreForTeam adds amount to the score of every member of team
	// with a single targeted update. Returns the number of users paid.
	IncrementScoreForTeam(ctx context.Context, team model.Team, amount int64) (int64, error)

	// CreateUser registers a user. Returns ErrDuplicateUser if the id exists.
	CreateUser(ctx context.Context, u model.User) (model.User, error)

	// GetUser returns ErrNotFound if the user is unknown.
	GetUser(ctx context.Context, id string) (model.User, error)

	// AdjustCurrency adds delta to the user's balance. Returns
	// ErrInsufficientBalance if the balance would drop below zero.
	AdjustCurrency(ctx context.Context, id string, delta int64) (model.User, error)

	CountUsers(ctx context.Context) (int64, error)
}

// EventStore provides access to event records.
type EventStore interface {
	CreateEvent(ctx context.Context, ev model.Event) (model.Event, error)

	// GetEvent returns ErrNotFound if the event is unknown.
	GetEvent(ctx context.Context, id string) (model.Event, error)

	// FindActive returns the event whose window contains now. When windows
	// overlap the latest start wins. Returns ErrNotFound if none is active.
	FindActive(ctx context.Context, now time.Time) (model.Event, error)

	// FindSettlementCandidates returns up to limit unsettled events that ended
	// strictly before now, earliest end first.
	FindSettlementCandidates(ctx context.Context, now time.Time, limit int) ([]model.Event, error)

	// TrySettle records the outcome only if the event is unsettled. It does
	// not pay anyone. Returns false if the event was already settled.
	TrySettle(ctx context.Context, id string, outcome model.Outcome) (bool, error)

	// Settle records the outcome and pays the winning team in one atomic
	// step. Returns applied=false and pays nothing if the event was already
	// settled.
	Settle(ctx context.Context, id string, outcome model.Outcome) (applied bool, paid int64, err error)

	// ListEvents returns up to limit events, newest first.
	ListEvents(ctx context.Context, limit int) ([]model.Event, error)

	CountEvents(ctx context.Context) (int64, error)
}

// Store is a full backend.
type Store interface {
	Ledger
	EventStore
	Close() error
}
