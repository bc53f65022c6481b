// Package settlement closes out ended events: it freezes the standings,
// decides the winner and pays the winning team exactly once.
package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/teamclash/internal/domain/dedupe"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/standings"
	"github.com/okian/teamclash/pkg/logger"
	"github.com/okian/teamclash/pkg/metrics"
)

// Default scheduler configuration.
const (
	defaultInterval    = time.Minute
	defaultBatchSize   = 50
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 4
)

// Result statuses.
const (
	StatusSettled = "settled"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Store is what the scheduler needs from the backend.
type Store interface {
	standings.Summer
	FindSettlementCandidates(ctx context.Context, now time.Time, limit int) ([]model.Event, error)
	Settle(ctx context.Context, id string, outcome model.Outcome) (applied bool, paid int64, err error)
}

// Result is the outcome of one event within a pass.
type Result struct {
	EventID       string
	Status        string
	Winner        model.Winner
	RewardedUsers int64
	Err           error
}

// Report summarizes a pass.
type Report struct {
	Candidates int
	Settled    int
	Skipped    int
	Failed     int
	Results    []Result
}

// Scheduler runs settlement passes on a ticker and on demand.
type Scheduler struct {
	store       Store
	agg         *standings.Aggregator
	guard       dedupe.Deduper
	logger      logger.Logger
	now         func() time.Time
	teams       []model.Team
	interval    time.Duration
	batchSize   int
	timeout     time.Duration
	concurrency int

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New creates a scheduler over store.
func New(store Store, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		logger:      logger.Get().Named("settlement"),
		now:         time.Now,
		teams:       []model.Team{"cat", "dog"},
		interval:    defaultInterval,
		batchSize:   defaultBatchSize,
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.guard == nil {
		s.guard = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
	}
	s.agg = standings.NewAggregator(store, s.teams)
	return s
}

// Start launches the background loop. The first pass runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.running {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	metrics.UpdateSchedulerRunning(true)

	go s.loop(loopCtx, s.done)

	s.logger.Info(ctx, "settlement scheduler started",
		logger.Duration("interval", s.interval),
		logger.Int("batchSize", s.batchSize),
		logger.Int("concurrency", s.concurrency),
	)
	return nil
}

// Stop stops the loop and waits for an in-progress pass to finish.
// Later calls to Start or Tick return ErrStopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.running = false
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	metrics.UpdateSchedulerRunning(false)
	s.logger.Info(context.Background(), "settlement scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runPass(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *Scheduler) runPass(ctx context.Context) {
	if _, err := s.tick(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error(ctx, "settlement pass failed", logger.Error(err))
	}
}

// Tick runs one pass synchronously.
func (s *Scheduler) Tick(ctx context.Context) (Report, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return Report{}, ErrStopped
	}
	return s.tick(ctx)
}

func (s *Scheduler) tick(ctx context.Context) (Report, error) {
	start := time.Now()
	defer func() { metrics.RecordSettlementTickLatency(metrics.SinceMs(start)) }()
	metrics.RecordSettlementTick()

	now := s.now()
	candidates, err := s.store.FindSettlementCandidates(ctx, now, s.batchSize)
	if err != nil {
		metrics.RecordSettlementError()
		metrics.RecordErrorByComponent("settlement", "store_error")
		return Report{}, fmt.Errorf("find settlement candidates: %w", err)
	}

	report := Report{
		Candidates: len(candidates),
		Results:    make([]Result, len(candidates)),
	}
	if len(candidates) == 0 {
		metrics.UpdatePendingSettlements(0)
		return report, nil
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, ev := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, ev model.Event) {
			defer wg.Done()
			defer func() { <-sem }()
			report.Results[i] = s.settleOne(ctx, ev, now)
		}(i, ev)
	}
	wg.Wait()

	for _, r := range report.Results {
		switch r.Status {
		case StatusSettled:
			report.Settled++
		case StatusSkipped:
			report.Skipped++
		case StatusFailed:
			report.Failed++
		}
	}
	metrics.UpdatePendingSettlements(report.Candidates - report.Settled - report.Skipped)

	if report.Settled > 0 || report.Failed > 0 {
		s.logger.Info(ctx, "settlement pass complete",
			logger.Int("candidates", report.Candidates),
			logger.Int("settled", report.Settled),
			logger.Int("skipped", report.Skipped),
			logger.Int("failed", report.Failed),
		)
	}
	return report, nil
}

// settleOne settles a single event. It never panics and never returns an
// error: failures are reported in the Result and the event stays pending.
func (s *Scheduler) settleOne(ctx context.Context, ev model.Event, now time.Time) (res Result) {
	res.EventID = ev.ID
	log := s.logger.With(logger.String("eventID", ev.ID))

	if s.guard.SeenAndRecord(ctx, ev.ID) {
		metrics.RecordSettlementSkipped()
		log.Debug(ctx, "event already being settled")
		res.Status = StatusSkipped
		return res
	}
	defer s.guard.Unrecord(ctx, ev.ID)

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("settle event %s: panic: %v", ev.ID, p)
		}
		if res.Status == StatusFailed {
			metrics.RecordSettlementError()
			metrics.RecordErrorByComponent("settlement", "settle_error")
			metrics.RecordErrorByType("settle_error", "high")
			log.Error(ctx, "settlement failed", logger.Error(res.Err))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	st, err := s.agg.Current(ctx)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		return res
	}
	winner := standings.DecideWinner(st)
	outcome := model.Outcome{
		Winner:       winner,
		Snapshot:     st.Snapshot(),
		SettledAt:    now,
		RewardAmount: ev.RewardAmount,
	}

	applied, paid, err := s.store.Settle(ctx, ev.ID, outcome)
	if err != nil {
		res.Status, res.Err = StatusFailed, fmt.Errorf("settle event %s: %w", ev.ID, err)
		return res
	}
	if !applied {
		metrics.RecordSettlementSkipped()
		log.Info(ctx, "event was settled elsewhere")
		res.Status = StatusSkipped
		return res
	}

	metrics.RecordSettlement(string(winner))
	metrics.RecordRewardedUsers(paid)
	metrics.RecordSettlementLatency(metrics.SinceMs(start))
	log.Info(ctx, "event settled",
		logger.String("winner", string(winner)),
		logger.Int64("grandTotal", st.GrandTotal),
		logger.Int64("rewardAmount", ev.RewardAmount),
		logger.Int64("rewardedUsers", paid),
	)

	res.Status = StatusSettled
	res.Winner = winner
	res.RewardedUsers = paid
	return res
}
