// Package types contains the API view types shared by the service and transport layers.
package types

import "time"

// EventView is the public summary of an event.
type EventView struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

// StatsView holds per-team totals and percentages.
type StatsView struct {
	Totals   map[string]int64   `json:"totals"`
	Total    int64              `json:"total"`
	Percents map[string]float64 `json:"percents"`
}

// HintView is a hint as seen by one team. Content is empty while locked.
type HintView struct {
	Threshold int64  `json:"threshold"`
	Title     string `json:"title"`
	Unlocked  bool   `json:"unlocked"`
	Content   string `json:"content"`
}

// StatusView is the student-facing event status.
type StatusView struct {
	Event       *EventView `json:"event"`
	Now         time.Time  `json:"now"`
	RemainingMs int64      `json:"remainingMs"`
	Stats       *StatsView `json:"stats"`
	Hints       []HintView `json:"hints"`
	CallerTeam  string     `json:"callerTeam"`
	Winner      *string    `json:"winner"`
	Final       bool       `json:"final"`
}

// AdminHintView is a hint with its full content.
type AdminHintView struct {
	Threshold int64  `json:"threshold"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// AdminStatusView is the teacher-facing event status.
type AdminStatusView struct {
	Event              *EventView         `json:"event"`
	Now                time.Time          `json:"now"`
	RemainingMs        int64              `json:"remainingMs"`
	Stats              *StatsView         `json:"stats"`
	Hints              []AdminHintView    `json:"hints"`
	UnlockedThresholds map[string][]int64 `json:"unlockedThresholds"`
	Winner             *string            `json:"winner"`
	Final              bool               `json:"final"`
	FinalSnapshot      *StatsView         `json:"finalSnapshot"`
	SettledAt          *time.Time         `json:"settledAt"`
	RewardAmount       int64              `json:"rewardAmount"`
	RewardedUsers      int64              `json:"rewardedUsers"`
}

// EventRecord is an event as listed to teachers.
type EventRecord struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	StartAt       time.Time       `json:"startAt"`
	EndAt         time.Time       `json:"endAt"`
	Hints         []AdminHintView `json:"hints"`
	RewardAmount  int64           `json:"rewardAmount"`
	Winner        *string         `json:"winner"`
	SettledAt     *time.Time      `json:"settledAt"`
	RewardedUsers int64           `json:"rewardedUsers"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// UserView is a ledger entry.
type UserView struct {
	ID              string    `json:"id"`
	Team            string    `json:"team"`
	CurrencyBalance int64     `json:"currencyBalance"`
	Score           int64     `json:"score"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SettlementResult is the outcome for one event in a settlement pass.
type SettlementResult struct {
	EventID       string `json:"eventId"`
	Status        string `json:"status"`
	Winner        string `json:"winner,omitempty"`
	RewardedUsers int64  `json:"rewardedUsers"`
	Error         string `json:"error,omitempty"`
}

// SettlementReport summarizes a settlement pass.
type SettlementReport struct {
	Candidates int                `json:"candidates"`
	Settled    int                `json:"settled"`
	Skipped    int                `json:"skipped"`
	Failed     int                `json:"failed"`
	Results    []SettlementResult `json:"results"`
}

// WinnerName returns the settled outcome, or "" while the event is pending.
func WinnerName(w *string) string {
	if w == nil {
		return ""
	}
	return *w
}
