// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/teamclash/internal/adapters/repository"
	"github.com/okian/teamclash/internal/domain/dedupe"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/standings"
	"github.com/okian/teamclash/internal/settlement"
	"github.com/okian/teamclash/pkg/logger"
	"github.com/okian/teamclash/pkg/metrics"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Service implements the API dependencies for the competition system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	guard     dedupe.Deduper
	agg       *standings.Aggregator
	scheduler *settlement.Scheduler

	// Configuration
	storeKind             string
	dsn                   string
	teams                 []model.Team
	defaultReward         int64
	maxEventsLimit        int
	dedupeSize            int
	settlementInterval    time.Duration
	settlementTimeout     time.Duration
	settlementBatchSize   int
	settlementConcurrency int
	now                   func() time.Time

	// State
	started   bool
	ownsStore bool
	loop      bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a ready backend. The service will not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithPostgres selects the Postgres backend at dsn.
func WithPostgres(dsn string) Option {
	return func(s *Service) {
		if dsn != "" {
			s.storeKind = StorePostgres
			s.dsn = dsn
		}
	}
}

// WithTeams sets the ordered team set.
func WithTeams(teams []model.Team) Option {
	return func(s *Service) {
		if len(teams) > 0 {
			s.teams = append([]model.Team(nil), teams...)
		}
	}
}

// WithDefaultReward sets the reward used when an event does not set its own.
func WithDefaultReward(amount int64) Option {
	return func(s *Service) {
		if amount >= 0 {
			s.defaultReward = amount
		}
	}
}

// WithMaxEventsLimit caps the page size of event listings.
func WithMaxEventsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxEventsLimit = n
		}
	}
}

// WithDedupeSize caps the number of events settled at the same time.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithSettlementInterval sets the background pass interval. Zero or less
// disables the background loop; passes then only run on demand.
func WithSettlementInterval(d time.Duration) Option {
	return func(s *Service) {
		s.settlementInterval = d
	}
}

// WithSettlementTimeout bounds store calls for one event.
func WithSettlementTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.settlementTimeout = d
		}
	}
}

// WithSettlementBatchSize caps how many events one pass picks up.
func WithSettlementBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.settlementBatchSize = n
		}
	}
}

// WithSettlementConcurrency sets how many events are settled at once.
func WithSettlementConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.settlementConcurrency = n
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeKind:             StoreMemory,
		teams:                 []model.Team{"cat", "dog"},
		defaultReward:         model.DefaultRewardAmount,
		maxEventsLimit:        100,
		dedupeSize:            1000,
		settlementInterval:    time.Minute,
		settlementTimeout:     10 * time.Second,
		settlementBatchSize:   50,
		settlementConcurrency: 4,
		now:                   time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the backend and starts the settlement scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting competition service...")

	for _, t := range s.teams {
		if t == "" || t.Reserved() {
			return fmt.Errorf("%w: team %q", ErrInvalidTeams, t)
		}
	}

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
		s.ownsStore = true
	}

	s.guard = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.agg = standings.NewAggregator(s.store, s.teams)
	s.scheduler = settlement.New(s.store,
		settlement.WithTeams(s.teams),
		settlement.WithClock(s.now),
		settlement.WithGuard(s.guard),
		settlement.WithInterval(s.settlementInterval),
		settlement.WithTimeout(s.settlementTimeout),
		settlement.WithBatchSize(s.settlementBatchSize),
		settlement.WithConcurrency(s.settlementConcurrency),
		settlement.WithLogger(s.logger.Named("settlement")),
	)

	if s.settlementInterval > 0 {
		if err := s.scheduler.Start(ctx); err != nil {
			s.closeStore()
			return fmt.Errorf("start settlement scheduler: %w", err)
		}
		s.loop = true
	}

	s.started = true
	s.logger.Info(ctx, "competition service started",
		logger.String("store", s.storeKind),
		logger.Any("teams", s.teams),
		logger.Int64("defaultReward", s.defaultReward),
		logger.Duration("settlementInterval", s.settlementInterval),
	)

	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeKind {
	case StorePostgres:
		store, err := repository.OpenPostgres(ctx, s.dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		s.logger.Info(ctx, "using postgres store")
		return store, nil
	default:
		s.logger.Info(ctx, "using memory store")
		return repository.NewMemoryStore(ctx), nil
	}
}

func (s *Service) closeStore() {
	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping competition service...")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.closeStore()

	s.started = false
	s.loop = false
	s.logger.Info(context.Background(), "competition service stopped")
}

// deps returns the running components or ErrNotStarted.
func (s *Service) deps() (repository.Store, *standings.Aggregator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.agg, nil
}

// Teams returns the configured teams in order.
func (s *Service) Teams() []model.Team {
	return append([]model.Team(nil), s.teams...)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	teams := make([]string, len(s.teams))
	for i, t := range s.teams {
		teams[i] = string(t)
	}
	stats := map[string]interface{}{
		"started":              s.started,
		"store":                s.storeKind,
		"teams":                teams,
		"defaultRewardAmount":  s.defaultReward,
		"settlementIntervalMs": s.settlementInterval.Milliseconds(),
		"settlementLoop":       s.loop,
	}

	if s.started {
		ctx := context.Background()
		if n, err := s.store.CountUsers(ctx); err == nil {
			stats["users"] = n
			metrics.UpdateUsersTotal(int(n))
		}
		if n, err := s.store.CountEvents(ctx); err == nil {
			stats["events"] = n
			metrics.UpdateEventsTotal(int(n))
		}
		stats["settlementsInFlight"] = s.guard.Size()
	}

	return stats
}
