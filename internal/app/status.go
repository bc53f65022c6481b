package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/teamclash/internal/adapters/repository"
	"github.com/okian/teamclash/internal/domain/hints"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/standings"
	"github.com/okian/teamclash/internal/domain/types"
	"github.com/okian/teamclash/pkg/metrics"
)

// ActiveStatus returns the status of the event running now as seen by
// callerTeam. When no event is running the view has a nil Event.
func (s *Service) ActiveStatus(ctx context.Context, callerTeam string) (types.StatusView, error) {
	metrics.RecordStatusRequest("student")
	store, agg, err := s.deps()
	if err != nil {
		return types.StatusView{}, err
	}

	now := s.now().UTC()
	ev, err := store.FindActive(ctx, now)
	if errors.Is(err, repository.ErrNotFound) {
		return s.studentView(ctx, agg, nil, callerTeam, now)
	}
	if err != nil {
		return types.StatusView{}, fmt.Errorf("find active event: %w", err)
	}
	return s.studentView(ctx, agg, &ev, callerTeam, now)
}

// EventStatus returns the status of any event as seen by callerTeam.
func (s *Service) EventStatus(ctx context.Context, eventID, callerTeam string) (types.StatusView, error) {
	metrics.RecordStatusRequest("student")
	store, agg, err := s.deps()
	if err != nil {
		return types.StatusView{}, err
	}

	ev, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return types.StatusView{}, err
	}
	return s.studentView(ctx, agg, &ev, callerTeam, s.now().UTC())
}

// AdminActiveStatus returns the privileged status of the event running now.
func (s *Service) AdminActiveStatus(ctx context.Context) (types.AdminStatusView, error) {
	metrics.RecordStatusRequest("admin")
	store, agg, err := s.deps()
	if err != nil {
		return types.AdminStatusView{}, err
	}

	now := s.now().UTC()
	ev, err := store.FindActive(ctx, now)
	if errors.Is(err, repository.ErrNotFound) {
		return s.adminView(ctx, agg, nil, now)
	}
	if err != nil {
		return types.AdminStatusView{}, fmt.Errorf("find active event: %w", err)
	}
	return s.adminView(ctx, agg, &ev, now)
}

// AdminEventStatus returns the privileged status of any event.
func (s *Service) AdminEventStatus(ctx context.Context, eventID string) (types.AdminStatusView, error) {
	metrics.RecordStatusRequest("admin")
	store, agg, err := s.deps()
	if err != nil {
		return types.AdminStatusView{}, err
	}

	ev, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return types.AdminStatusView{}, err
	}
	return s.adminView(ctx, agg, &ev, s.now().UTC())
}

// Standings returns the live aggregate.
func (s *Service) Standings(ctx context.Context) (types.StatsView, error) {
	_, agg, err := s.deps()
	if err != nil {
		return types.StatsView{}, err
	}
	st, err := agg.Current(ctx)
	if err != nil {
		return types.StatsView{}, err
	}
	return *statsView(st), nil
}

// eventStandings returns the frozen snapshot for settled events and one
// fresh aggregate otherwise.
func (s *Service) eventStandings(ctx context.Context, agg *standings.Aggregator, ev *model.Event) (standings.Standings, error) {
	if ev.Settled() && ev.FinalSnapshot != nil {
		return standings.FromSnapshot(s.teams, *ev.FinalSnapshot), nil
	}
	st, err := agg.Current(ctx)
	if err != nil {
		return standings.Standings{}, fmt.Errorf("aggregate standings: %w", err)
	}
	return st, nil
}

func (s *Service) studentView(ctx context.Context, agg *standings.Aggregator, ev *model.Event, callerTeam string, now time.Time) (types.StatusView, error) {
	team, _ := model.ParseTeam(callerTeam, s.teams)
	view := types.StatusView{
		Now:        now,
		Hints:      []types.HintView{},
		CallerTeam: string(team),
	}
	if ev == nil {
		return view, nil
	}

	st, err := s.eventStandings(ctx, agg, ev)
	if err != nil {
		return types.StatusView{}, err
	}

	for _, h := range hints.ForTeam(ev.Hints, st, team) {
		view.Hints = append(view.Hints, types.HintView{
			Threshold: h.Threshold,
			Title:     h.Title,
			Unlocked:  h.Unlocked,
			Content:   h.Content,
		})
	}

	view.Event = eventView(ev)
	view.RemainingMs = ev.Remaining(now).Milliseconds()
	view.Stats = statsView(st)
	view.Winner = winnerView(ev.Winner)
	view.Final = ev.Settled()
	return view, nil
}

func (s *Service) adminView(ctx context.Context, agg *standings.Aggregator, ev *model.Event, now time.Time) (types.AdminStatusView, error) {
	view := types.AdminStatusView{
		Now:                now,
		Hints:              []types.AdminHintView{},
		UnlockedThresholds: map[string][]int64{},
	}
	if ev == nil {
		return view, nil
	}

	st, err := s.eventStandings(ctx, agg, ev)
	if err != nil {
		return types.AdminStatusView{}, err
	}

	for team, reached := range hints.UnlockedThresholds(ev.Hints, st) {
		view.UnlockedThresholds[string(team)] = reached
	}
	view.Event = eventView(ev)
	view.RemainingMs = ev.Remaining(now).Milliseconds()
	view.Stats = statsView(st)
	view.Hints = adminHints(ev.Hints)
	view.Winner = winnerView(ev.Winner)
	view.Final = ev.Settled()
	view.SettledAt = ev.SettledAt
	view.RewardAmount = ev.RewardAmount
	view.RewardedUsers = ev.RewardedUsers
	if ev.FinalSnapshot != nil {
		view.FinalSnapshot = statsView(standings.FromSnapshot(s.teams, *ev.FinalSnapshot))
	}
	return view, nil
}
