package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/pkg/metrics"
)

// MemoryStore keeps users and events in process memory. Every mutation runs
// under one lock, so Settle is atomic with respect to all other calls.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]model.User
	events map[string]model.Event
	now    func() time.Time

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryStore constructs a memory store and starts its metrics updater.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		users:                 make(map[string]model.User),
		events:                make(map[string]model.Event),
		now:                   time.Now,
		metricsUpdateInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) SumCurrencyByTeam(ctx context.Context) (map[model.Team]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	sums := make(map[model.Team]int64)
	for _, u := range s.users {
		sums[u.Team] += u.CurrencyBalance
	}
	return sums, nil
}

func (s *MemoryStore) IncrementScoreForTeam(ctx context.Context, team model.Team, amount int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incrementScoreLocked(team, amount), nil
}

func (s *MemoryStore) incrementScoreLocked(team model.Team, amount int64) int64 {
	var n int64
	for id, u := range s.users {
		if u.Team != team {
			continue
		}
		u.Score += amount
		s.users[id] = u
		n++
	}
	return n
}

func (s *MemoryStore) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CurrencyBalance < 0 || u.Score < 0 {
		return model.User{}, fmt.Errorf("user %s: %w", u.ID, ErrInsufficientBalance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return model.User{}, fmt.Errorf("user %s: %w", u.ID, ErrDuplicateUser)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

func (s *MemoryStore) AdjustCurrency(ctx context.Context, id string, delta int64) (model.User, error) {
	if err := ctx.Err(); err != nil {
		return model.User{}, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if u.CurrencyBalance+delta < 0 {
		return model.User{}, fmt.Errorf("user %s: %w", id, ErrInsufficientBalance)
	}
	u.CurrencyBalance += delta
	s.users[id] = u
	return u, nil
}

func (s *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *MemoryStore) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	ev, err := prepareEvent(ev, s.now)
	if err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[ev.ID]; ok {
		return model.Event{}, fmt.Errorf("event %s already exists: %w", ev.ID, ErrInvalidEvent)
	}
	s.events[ev.ID] = ev.Clone()
	return ev, nil
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return model.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return ev.Clone(), nil
}

func (s *MemoryStore) FindActive(ctx context.Context, now time.Time) (model.Event, error) {
	if err := ctx.Err(); err != nil {
		return model.Event{}, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		best  model.Event
		found bool
	)
	for _, ev := range s.events {
		if !ev.ActiveAt(now) {
			continue
		}
		if !found || activeBefore(ev, best) {
			best, found = ev, true
		}
	}
	if !found {
		return model.Event{}, fmt.Errorf("active event: %w", ErrNotFound)
	}
	return best.Clone(), nil
}

// activeBefore orders overlapping active events: latest start, then latest
// creation, then id.
func activeBefore(a, b model.Event) bool {
	if !a.StartAt.Equal(b.StartAt) {
		return a.StartAt.After(b.StartAt)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *MemoryStore) FindSettlementCandidates(ctx context.Context, now time.Time, limit int) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	s.mu.RLock()
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if ev.Settled() || !ev.EndAt.Before(now) {
			continue
		}
		out = append(out, ev.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndAt.Equal(out[j].EndAt) {
			return out[i].EndAt.Before(out[j].EndAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) TrySettle(ctx context.Context, id string, outcome model.Outcome) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markSettledLocked(id, outcome, 0)
}

func (s *MemoryStore) Settle(ctx context.Context, id string, outcome model.Outcome) (bool, int64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return false, 0, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if ev.Settled() {
		return false, 0, nil
	}

	var paid int64
	if team, ok := outcome.Winner.Team(); ok && outcome.RewardAmount > 0 {
		paid = s.incrementScoreLocked(team, outcome.RewardAmount)
	}
	applied, err := s.markSettledLocked(id, outcome, paid)
	return applied, paid, err
}

func (s *MemoryStore) markSettledLocked(id string, outcome model.Outcome, paid int64) (bool, error) {
	ev, ok := s.events[id]
	if !ok {
		return false, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if ev.Settled() {
		return false, nil
	}
	settledAt := outcome.SettledAt.UTC()
	ev.Winner = outcome.Winner
	ev.SettledAt = &settledAt
	ev.FinalSnapshot = outcome.Snapshot.Clone()
	ev.RewardAmount = outcome.RewardAmount
	ev.RewardedUsers = paid
	s.events[id] = ev
	return true, nil
}

func (s *MemoryStore) ListEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	out := make([]model.Event, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) CountEvents(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

// startMetricsUpdater starts a background goroutine that publishes store sizes.
func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	users, events := len(s.users), len(s.events)
	s.mu.RUnlock()
	metrics.UpdateUsersTotal(users)
	metrics.UpdateEventsTotal(events)
}

// prepareEvent validates a new event and fills in generated fields.
func prepareEvent(ev model.Event, now func() time.Time) (model.Event, error) {
	if ev.Name == "" {
		return model.Event{}, fmt.Errorf("name is required: %w", ErrInvalidEvent)
	}
	if !ev.EndAt.After(ev.StartAt) {
		return model.Event{}, fmt.Errorf("end must be after start: %w", ErrInvalidEvent)
	}
	if ev.RewardAmount < 0 {
		return model.Event{}, fmt.Errorf("negative reward amount: %w", ErrInvalidEvent)
	}
	for _, h := range ev.Hints {
		if h.Threshold < 0 {
			return model.Event{}, fmt.Errorf("negative hint threshold: %w", ErrInvalidEvent)
		}
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now().UTC()
	}
	ev.StartAt = ev.StartAt.UTC()
	ev.EndAt = ev.EndAt.UTC()
	if ev.Hints == nil {
		ev.Hints = []model.Hint{}
	}
	ev.Winner = model.WinnerNone
	ev.SettledAt = nil
	ev.FinalSnapshot = nil
	ev.RewardedUsers = 0
	return ev, nil
}
