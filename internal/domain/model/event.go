// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// DefaultRewardAmount is the score paid to each winning-team member when an
// event does not configure its own amount.
const DefaultRewardAmount int64 = 200

// Team identifies a faction. Users belong to exactly one team for life.
type Team string

// Reserved reports whether t collides with an outcome sentinel.
func (t Team) Reserved() bool { return Winner(t) == WinnerDraw }

// Winner records an event outcome: a team, WinnerDraw, or WinnerNone while pending.
type Winner string

// Winner sentinels.
const (
	WinnerNone Winner = ""
	WinnerDraw Winner = "draw"
)

// IsDraw reports whether the outcome is a tie.
func (w Winner) IsDraw() bool { return w == WinnerDraw }

// Team returns the winning team and true, or false for draws and pending events.
func (w Winner) Team() (Team, bool) {
	if w == WinnerNone || w.IsDraw() {
		return "", false
	}
	return Team(w), true
}

// Hint is a piece of content a team unlocks once its currency total reaches Threshold.
type Hint struct {
	Threshold int64  `json:"threshold"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

// Snapshot is the aggregate frozen at settlement time.
type Snapshot struct {
	Totals     map[Team]int64   `json:"totals"`
	GrandTotal int64            `json:"grandTotal"`
	Percents   map[Team]float64 `json:"percents"`
}

// Clone returns a deep copy so callers never share the frozen maps.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{
		Totals:     make(map[Team]int64, len(s.Totals)),
		GrandTotal: s.GrandTotal,
		Percents:   make(map[Team]float64, len(s.Percents)),
	}
	for k, v := range s.Totals {
		out.Totals[k] = v
	}
	for k, v := range s.Percents {
		out.Percents[k] = v
	}
	return out
}

// Event is a timed team competition.
type Event struct {
	ID            string
	Name          string
	StartAt       time.Time
	EndAt         time.Time
	Hints         []Hint
	RewardAmount  int64
	Winner        Winner
	SettledAt     *time.Time
	FinalSnapshot *Snapshot
	RewardedUsers int64
	CreatedAt     time.Time
}

// Settled reports whether the event has been closed out.
func (e Event) Settled() bool { return e.SettledAt != nil }

// ActiveAt reports whether t falls inside [StartAt, EndAt].
func (e Event) ActiveAt(t time.Time) bool {
	return !t.Before(e.StartAt) && !t.After(e.EndAt)
}

// Remaining returns max(0, EndAt - now).
func (e Event) Remaining(now time.Time) time.Duration {
	if d := e.EndAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	out := e
	if e.Hints != nil {
		out.Hints = append([]Hint(nil), e.Hints...)
	}
	if e.SettledAt != nil {
		t := *e.SettledAt
		out.SettledAt = &t
	}
	out.FinalSnapshot = e.FinalSnapshot.Clone()
	return out
}

// NewEvent carries validated input for creating an event.
type NewEvent struct {
	Name         string
	StartAt      time.Time
	EndAt        time.Time
	Hints        []Hint
	RewardAmount *int64
}

// Outcome is everything written to an event at settlement, in one commit.
type Outcome struct {
	Winner       Winner
	Snapshot     Snapshot
	SettledAt    time.Time
	RewardAmount int64
}

// User is a ledger entry.
type User struct {
	ID              string
	Team            Team
	CurrencyBalance int64
	Score           int64
	CreatedAt       time.Time
}

// ParseTeam normalizes raw and reports whether it names one of teams.
func ParseTeam(raw string, teams []Team) (Team, bool) {
	t := Team(strings.ToLower(strings.TrimSpace(raw)))
	if t == "" {
		return "", false
	}
	for _, known := range teams {
		if known == t {
			return t, true
		}
	}
	return "", false
}
