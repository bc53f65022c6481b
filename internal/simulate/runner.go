package simulate

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/teamclash/internal/domain/types"
	"github.com/okian/teamclash/pkg/logger"
)

// Run registers users, runs one short event through settlement, and checks
// redaction, the frozen snapshot, and single payout over HTTP.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("simulate")
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting teamclash simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("usersPerTeam", cfg.UsersPerTeam),
		logger.Int("workers", cfg.Workers),
		logger.Duration("eventDuration", cfg.EventDuration))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	// Step 2: Register and fund users
	teams := cfg.Teams
	if len(teams) == 0 {
		var err error
		if teams, err = serverTeams(ctx, client); err != nil {
			return stats, fmt.Errorf("%w: %w", ErrSetup, err)
		}
	}
	planned, err := planUsers(teams, cfg.UsersPerTeam, cfg.MaxCurrency)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if err := registerUsers(ctx, client, cfg.Workers, planned, stats); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	// Step 3: Create a short event with hints around the current totals
	var live types.StatsView
	if err := client.Teacher(ctx, http.MethodGet, "/admin/standings", nil, &live); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	ev, err := createEvent(ctx, client, cfg, live)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	stats.EventID = ev.ID
	log.Info(ctx, "event created", logger.String("eventId", ev.ID), logger.Time("endAt", ev.EndAt))

	// Step 4: Check what each team sees while the event runs
	if err := checkStudentViews(ctx, client, ev.ID, teams, stats); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}

	// Step 5: Wait for the event to end, then settle
	if err := sleepUntil(ctx, ev.EndAt.Add(settleMargin)); err != nil {
		return stats, err
	}
	var expected types.StatsView
	if err := client.Teacher(ctx, http.MethodGet, "/admin/standings", nil, &expected); err != nil {
		return stats, err
	}
	var report types.SettlementReport
	if err := client.Teacher(ctx, http.MethodPost, "/admin/settlement/run", nil, &report); err != nil {
		return stats, err
	}
	if cfg.Verbose {
		log.Info(ctx, "settlement pass", logger.Int("candidates", report.Candidates),
			logger.Int("settled", report.Settled), logger.Int("failed", report.Failed))
	}

	// Step 6: Verify winner, snapshot and payouts
	var final types.AdminStatusView
	if err := client.Teacher(ctx, http.MethodGet, "/admin/events/"+ev.ID+"/status", nil, &final); err != nil {
		return stats, err
	}
	if err := verifySettlement(final, expected); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	stats.Winner = types.WinnerName(final.Winner)
	stats.RewardedUsers = final.RewardedUsers
	if err := checkPayouts(ctx, client, planned, stats.Winner, final.RewardAmount); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrVerification, err)
	}

	// Step 7: A second pass must not pay again
	var again types.SettlementReport
	if err := client.Teacher(ctx, http.MethodPost, "/admin/settlement/run", nil, &again); err != nil {
		return stats, err
	}
	for _, res := range again.Results {
		if res.EventID == ev.ID && res.Status == "settled" {
			return stats, fmt.Errorf("%w: event %s settled twice", ErrVerification, ev.ID)
		}
	}
	if err := checkPayouts(ctx, client, planned, stats.Winner, final.RewardAmount); err != nil {
		return stats, fmt.Errorf("%w: after second pass: %w", ErrVerification, err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *Client) error {
	// Any 200 is healthy; the endpoint returns Prometheus metrics.
	return client.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// serverTeams reads the configured teams from /stats.
func serverTeams(ctx context.Context, client *Client) ([]string, error) {
	var stats struct {
		Teams []string `json:"teams"`
	}
	if err := client.do(ctx, http.MethodGet, "/stats", nil, nil, &stats); err != nil {
		return nil, err
	}
	if len(stats.Teams) == 0 {
		return nil, fmt.Errorf("service reported no teams")
	}
	return stats.Teams, nil
}

// registerUsers creates and funds users concurrently.
func registerUsers(ctx context.Context, client *Client, workers int, users []plannedUser, stats *Stats) error {
	var adjusted, adjustFailed int64
	ok, failed, err := forEach(ctx, workers, users, func(ctx context.Context, u plannedUser) error {
		body := map[string]string{"id": u.ID, "team": u.Team}
		if err := client.Teacher(ctx, http.MethodPost, "/admin/users", body, nil); err != nil {
			return err
		}
		if u.Currency == 0 {
			return nil
		}
		path := "/admin/users/" + u.ID + "/currency"
		if err := client.Teacher(ctx, http.MethodPost, path, map[string]int64{"delta": u.Currency}, nil); err != nil {
			atomic.AddInt64(&adjustFailed, 1)
			return err
		}
		atomic.AddInt64(&adjusted, 1)
		return nil
	})
	stats.UsersRegistered = ok
	stats.UsersFailed = failed
	stats.Adjustments = int(atomic.LoadInt64(&adjusted))
	stats.AdjustmentsFailed = int(atomic.LoadInt64(&adjustFailed))
	return err
}

func createEvent(ctx context.Context, client *Client, cfg *Config, live types.StatsView) (types.EventRecord, error) {
	now := time.Now().UTC()
	body := map[string]any{
		"name":    "simulated event " + now.Format(time.RFC3339),
		"startAt": now.Add(-eventLeadIn).Format(time.RFC3339Nano),
		"endAt":   now.Add(cfg.EventDuration).Format(time.RFC3339Nano),
		"hints":   planHints(live),
	}
	if cfg.RewardAmount >= 0 {
		body["rewardAmount"] = cfg.RewardAmount
	}
	var rec types.EventRecord
	err := client.Teacher(ctx, http.MethodPost, "/admin/events", body, &rec)
	return rec, err
}

// checkStudentViews reads the event as every team and as an outsider.
func checkStudentViews(ctx context.Context, client *Client, eventID string, teams []string, stats *Stats) error {
	path := "/status/events/" + eventID
	for _, team := range teams {
		var view types.StatusView
		if err := client.Student(ctx, team, http.MethodGet, path, nil, &view); err != nil {
			return err
		}
		stats.StatusChecks++
		if err := verifyStudentView(view, team, true); err != nil {
			return err
		}
	}
	var outsider types.StatusView
	if err := client.Student(ctx, "", http.MethodGet, path, nil, &outsider); err != nil {
		return err
	}
	stats.StatusChecks++
	return verifyStudentView(outsider, "", false)
}

// checkPayouts reads every planned user back and checks its score.
func checkPayouts(ctx context.Context, client *Client, planned []plannedUser, winner string, reward int64) error {
	users := make([]types.UserView, 0, len(planned))
	for _, p := range planned {
		var u types.UserView
		if err := client.Teacher(ctx, http.MethodGet, "/admin/users/"+p.ID, nil, &u); err != nil {
			return err
		}
		users = append(users, u)
	}
	return verifyPayouts(users, winner, reward)
}

// forEach runs fn over items with a bounded worker pool and returns the first error.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) (int, int, error) {
	if workers <= 0 {
		workers = 1
	}
	var (
		ok, failed int64
		firstErr   error
		errOnce    sync.Once
		wg         sync.WaitGroup
	)
	ch := make(chan T, workers*2)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range ch {
				if err := fn(ctx, item); err != nil {
					atomic.AddInt64(&failed, 1)
					errOnce.Do(func() { firstErr = err })
					continue
				}
				atomic.AddInt64(&ok, 1)
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, item := range items {
			select {
			case <-ctx.Done():
				return
			case ch <- item:
			}
		}
	}()

	wg.Wait()
	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	return int(ok), int(failed), firstErr
}

func sleepUntil(ctx context.Context, t time.Time) error {
	d := time.Until(t)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("usersRegistered", stats.UsersRegistered),
		logger.Int("usersFailed", stats.UsersFailed),
		logger.Int("adjustments", stats.Adjustments),
		logger.Int("adjustmentsFailed", stats.AdjustmentsFailed),
		logger.Int("statusChecks", stats.StatusChecks),
		logger.String("eventId", stats.EventID),
		logger.String("winner", stats.Winner),
		logger.Int64("rewardedUsers", stats.RewardedUsers),
		logger.Duration("duration", stats.Duration))
}
