package service

import (
	"context"
	"fmt"

	"github.com/okian/teamclash/internal/adapters/repository"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/types"
	"github.com/okian/teamclash/pkg/logger"
	"github.com/okian/teamclash/pkg/metrics"
)

// CreateEvent schedules a new event. A nil reward amount takes the default.
func (s *Service) CreateEvent(ctx context.Context, in model.NewEvent) (types.EventRecord, error) {
	store, _, err := s.deps()
	if err != nil {
		return types.EventRecord{}, err
	}

	reward := s.defaultReward
	if in.RewardAmount != nil {
		reward = *in.RewardAmount
	}
	ev, err := store.CreateEvent(ctx, model.Event{
		Name:         in.Name,
		StartAt:      in.StartAt,
		EndAt:        in.EndAt,
		Hints:        in.Hints,
		RewardAmount: reward,
	})
	if err != nil {
		return types.EventRecord{}, err
	}

	s.logger.Info(ctx, "event created",
		logger.String("eventID", ev.ID),
		logger.String("name", ev.Name),
		logger.Time("startAt", ev.StartAt),
		logger.Time("endAt", ev.EndAt),
		logger.Int("hints", len(ev.Hints)),
		logger.Int64("rewardAmount", ev.RewardAmount),
	)
	return eventRecord(&ev), nil
}

// ListEvents returns up to limit events, newest first. The limit is capped
// by the configured maximum.
func (s *Service) ListEvents(ctx context.Context, limit int) ([]types.EventRecord, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	if limit > s.maxEventsLimit {
		limit = s.maxEventsLimit
	}

	events, err := store.ListEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.EventRecord, 0, len(events))
	for i := range events {
		out = append(out, eventRecord(&events[i]))
	}
	return out, nil
}

// RunSettlement runs one settlement pass now.
func (s *Service) RunSettlement(ctx context.Context) (types.SettlementReport, error) {
	s.mu.RLock()
	started, scheduler := s.started, s.scheduler
	s.mu.RUnlock()
	if !started {
		return types.SettlementReport{}, ErrNotStarted
	}

	report, err := scheduler.Tick(ctx)
	if err != nil {
		return types.SettlementReport{}, err
	}
	return settlementReport(report), nil
}

// CreateUser registers a ledger entry for team.
func (s *Service) CreateUser(ctx context.Context, id, team string) (types.UserView, error) {
	store, _, err := s.deps()
	if err != nil {
		return types.UserView{}, err
	}
	t, ok := model.ParseTeam(team, s.teams)
	if !ok {
		return types.UserView{}, fmt.Errorf("team %q: %w", team, repository.ErrUnknownTeam)
	}

	u, err := store.CreateUser(ctx, model.User{ID: id, Team: t})
	if err != nil {
		return types.UserView{}, err
	}
	s.logger.Info(ctx, "user registered", logger.String("userID", u.ID), logger.String("team", string(u.Team)))
	return userView(u), nil
}

// GetUser returns a ledger entry.
func (s *Service) GetUser(ctx context.Context, id string) (types.UserView, error) {
	store, _, err := s.deps()
	if err != nil {
		return types.UserView{}, err
	}
	u, err := store.GetUser(ctx, id)
	if err != nil {
		return types.UserView{}, err
	}
	return userView(u), nil
}

// AdjustCurrency applies a signed delta to a user's balance.
func (s *Service) AdjustCurrency(ctx context.Context, id string, delta int64) (types.UserView, error) {
	store, _, err := s.deps()
	if err != nil {
		return types.UserView{}, err
	}
	u, err := store.AdjustCurrency(ctx, id, delta)
	if err != nil {
		return types.UserView{}, err
	}
	metrics.RecordCurrencyAdjustment()
	s.logger.Debug(ctx, "currency adjusted",
		logger.String("userID", id),
		logger.Int64("delta", delta),
		logger.Int64("balance", u.CurrencyBalance),
	)
	return userView(u), nil
}
