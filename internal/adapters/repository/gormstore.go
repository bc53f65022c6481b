package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/pkg/metrics"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// userRecord is the users table.
type userRecord struct {
	ID              string `gorm:"primaryKey;size:64"`
	Team            string `gorm:"size:32;not null;index"`
	CurrencyBalance int64  `gorm:"not null;default:0;check:currency_balance >= 0"`
	Score           int64  `gorm:"not null;default:0"`
	CreatedAt       time.Time
}

func (userRecord) TableName() string { return "users" }

// eventRecord is the events table. Hints and the final snapshot are JSON columns.
type eventRecord struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Name          string    `gorm:"size:200;not null"`
	StartAt       time.Time `gorm:"not null;index"`
	EndAt         time.Time `gorm:"not null;index"`
	Hints         datatypes.JSON
	RewardAmount  int64      `gorm:"not null;default:0"`
	Winner        string     `gorm:"size:32"`
	SettledAt     *time.Time `gorm:"index"`
	FinalSnapshot datatypes.JSON
	RewardedUsers int64 `gorm:"not null;default:0"`
	CreatedAt     time.Time
}

func (eventRecord) TableName() string { return "events" }

// GormStore is a Postgres-backed Store.
type GormStore struct {
	db          *gorm.DB
	now         func() time.Time
	autoMigrate bool
	logLevel    logger.LogLevel
}

// OpenPostgres connects to dsn and returns a store over it.
func OpenPostgres(ctx context.Context, dsn string, opts ...GormOption) (*GormStore, error) {
	s := newGormStore(opts...)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(s.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s.db = db
	if err := s.init(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// NewGormStore wraps an existing connection.
func NewGormStore(ctx context.Context, db *gorm.DB, opts ...GormOption) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("gorm db is required")
	}
	s := newGormStore(opts...)
	s.db = db
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newGormStore(opts ...GormOption) *GormStore {
	s := &GormStore{
		now:         time.Now,
		autoMigrate: true,
		logLevel:    logger.Silent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GormStore) init(ctx context.Context) error {
	if !s.autoMigrate {
		return nil
	}
	if err := s.db.WithContext(ctx).AutoMigrate(&userRecord{}, &eventRecord{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) SumCurrencyByTeam(ctx context.Context) (map[model.Team]int64, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	var rows []struct {
		Team  string
		Total int64
	}
	err := s.db.WithContext(ctx).Model(&userRecord{}).
		Select("team, COALESCE(SUM(currency_balance), 0) AS total").
		Group("team").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("sum currency by team: %w", err)
	}
	sums := make(map[model.Team]int64, len(rows))
	for _, r := range rows {
		sums[model.Team(r.Team)] = r.Total
	}
	return sums, nil
}

func (s *GormStore) IncrementScoreForTeam(ctx context.Context, team model.Team, amount int64) (int64, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	return incrementScore(s.db.WithContext(ctx), team, amount)
}

func incrementScore(db *gorm.DB, team model.Team, amount int64) (int64, error) {
	res := db.Model(&userRecord{}).
		Where("team = ?", string(team)).
		UpdateColumn("score", gorm.Expr("score + ?", amount))
	if res.Error != nil {
		return 0, fmt.Errorf("increment score for %s: %w", team, res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CurrencyBalance < 0 || u.Score < 0 {
		return model.User{}, fmt.Errorf("user %s: %w", u.ID, ErrInsufficientBalance)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	rec := userRecord{
		ID:              u.ID,
		Team:            string(u.Team),
		CurrencyBalance: u.CurrencyBalance,
		Score:           u.Score,
		CreatedAt:       u.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicateKey(err) {
			return model.User{}, fmt.Errorf("user %s: %w", u.ID, ErrDuplicateUser)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return rec.toModel(), nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (model.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return rec.toModel(), nil
}

func (s *GormStore) AdjustCurrency(ctx context.Context, id string, delta int64) (model.User, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	var out model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userRecord{}).
			Where("id = ? AND currency_balance + ? >= 0", id, delta).
			UpdateColumn("currency_balance", gorm.Expr("currency_balance + ?", delta))
		if res.Error != nil {
			return fmt.Errorf("adjust currency: %w", res.Error)
		}

		var rec userRecord
		if err := tx.Where("id = ?", id).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("reload user: %w", err)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s: %w", id, ErrInsufficientBalance)
		}
		out = rec.toModel()
		return nil
	})
	return out, err
}

func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&userRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (s *GormStore) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	ev, err := prepareEvent(ev, s.now)
	if err != nil {
		return model.Event{}, err
	}
	rec, err := eventToRecord(ev)
	if err != nil {
		return model.Event{}, err
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicateKey(err) {
			return model.Event{}, fmt.Errorf("event %s already exists: %w", ev.ID, ErrInvalidEvent)
		}
		return model.Event{}, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

func (s *GormStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	var rec eventRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return model.Event{}, fmt.Errorf("get event: %w", err)
	}
	return rec.toModel()
}

func (s *GormStore) FindActive(ctx context.Context, now time.Time) (model.Event, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	var rec eventRecord
	err := s.db.WithContext(ctx).
		Where("start_at <= ? AND end_at >= ?", now, now).
		Order("start_at DESC").Order("created_at DESC").Order("id DESC").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Event{}, fmt.Errorf("active event: %w", ErrNotFound)
		}
		return model.Event{}, fmt.Errorf("find active event: %w", err)
	}
	return rec.toModel()
}

func (s *GormStore) FindSettlementCandidates(ctx context.Context, now time.Time, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryQueryLatency(metrics.SinceMs(start)) }()

	var recs []eventRecord
	err := s.db.WithContext(ctx).
		Where("end_at < ? AND settled_at IS NULL", now).
		Order("end_at ASC").Order("id ASC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find settlement candidates: %w", err)
	}
	return recordsToEvents(recs)
}

func (s *GormStore) TrySettle(ctx context.Context, id string, outcome model.Outcome) (bool, error) {
	var applied bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = markSettled(tx, id, outcome)
		return err
	})
	return applied, err
}

func (s *GormStore) Settle(ctx context.Context, id string, outcome model.Outcome) (bool, int64, error) {
	start := time.Now()
	defer func() { metrics.RecordRepositoryUpdateLatency(metrics.SinceMs(start)) }()

	var (
		applied bool
		paid    int64
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := markSettled(tx, id, outcome)
		if err != nil || !ok {
			return err
		}
		if team, isTeam := outcome.Winner.Team(); isTeam && outcome.RewardAmount > 0 {
			if paid, err = incrementScore(tx, team, outcome.RewardAmount); err != nil {
				return err
			}
		}
		if err := tx.Model(&eventRecord{}).Where("id = ?", id).
			UpdateColumn("rewarded_users", paid).Error; err != nil {
			return fmt.Errorf("record rewarded users: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return applied, paid, nil
}

// markSettled is the compare-and-set on settled_at. The row lock taken by
// the update holds until the surrounding transaction ends.
func markSettled(tx *gorm.DB, id string, outcome model.Outcome) (bool, error) {
	snap, err := json.Marshal(outcome.Snapshot)
	if err != nil {
		return false, fmt.Errorf("encode snapshot: %w", err)
	}
	res := tx.Model(&eventRecord{}).
		Where("id = ? AND settled_at IS NULL", id).
		Updates(map[string]any{
			"winner":         string(outcome.Winner),
			"settled_at":     outcome.SettledAt.UTC(),
			"final_snapshot": datatypes.JSON(snap),
			"reward_amount":  outcome.RewardAmount,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark settled: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	var n int64
	if err := tx.Model(&eventRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check event: %w", err)
	}
	if n == 0 {
		return false, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return false, nil
}

func (s *GormStore) ListEvents(ctx context.Context, limit int) ([]model.Event, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	var recs []eventRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return recordsToEvents(recs)
}

func (s *GormStore) CountEvents(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&eventRecord{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (r userRecord) toModel() model.User {
	return model.User{
		ID:              r.ID,
		Team:            model.Team(r.Team),
		CurrencyBalance: r.CurrencyBalance,
		Score:           r.Score,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

func eventToRecord(ev model.Event) (eventRecord, error) {
	hints, err := json.Marshal(ev.Hints)
	if err != nil {
		return eventRecord{}, fmt.Errorf("encode hints: %w", err)
	}
	rec := eventRecord{
		ID:            ev.ID,
		Name:          ev.Name,
		StartAt:       ev.StartAt,
		EndAt:         ev.EndAt,
		Hints:         datatypes.JSON(hints),
		RewardAmount:  ev.RewardAmount,
		Winner:        string(ev.Winner),
		SettledAt:     ev.SettledAt,
		RewardedUsers: ev.RewardedUsers,
		CreatedAt:     ev.CreatedAt,
	}
	if ev.FinalSnapshot != nil {
		snap, err := json.Marshal(ev.FinalSnapshot)
		if err != nil {
			return eventRecord{}, fmt.Errorf("encode snapshot: %w", err)
		}
		rec.FinalSnapshot = datatypes.JSON(snap)
	}
	return rec, nil
}

func (r eventRecord) toModel() (model.Event, error) {
	ev := model.Event{
		ID:            r.ID,
		Name:          r.Name,
		StartAt:       r.StartAt.UTC(),
		EndAt:         r.EndAt.UTC(),
		Hints:         []model.Hint{},
		RewardAmount:  r.RewardAmount,
		Winner:        model.Winner(r.Winner),
		RewardedUsers: r.RewardedUsers,
		CreatedAt:     r.CreatedAt.UTC(),
	}
	if len(r.Hints) > 0 {
		if err := json.Unmarshal(r.Hints, &ev.Hints); err != nil {
			return model.Event{}, fmt.Errorf("decode hints for %s: %w", r.ID, err)
		}
	}
	if r.SettledAt != nil {
		t := r.SettledAt.UTC()
		ev.SettledAt = &t
	}
	if len(r.FinalSnapshot) > 0 && string(r.FinalSnapshot) != "null" {
		var snap model.Snapshot
		if err := json.Unmarshal(r.FinalSnapshot, &snap); err != nil {
			return model.Event{}, fmt.Errorf("decode snapshot for %s: %w", r.ID, err)
		}
		ev.FinalSnapshot = &snap
	}
	return ev, nil
}

func recordsToEvents(recs []eventRecord) ([]model.Event, error) {
	out := make([]model.Event, 0, len(recs))
	for _, r := range recs {
		ev, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") || strings.Contains(msg, "duplicate key")
}
