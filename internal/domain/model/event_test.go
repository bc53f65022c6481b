package model_test

import (
	"testing"
	"time"

	"github.com/okian/teamclash/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestWinner(t *testing.T) {
	Convey("Given winner values", t, func() {
		Convey("A team winner should expose its team", func() {
			team, ok := model.Winner("cat").Team()
			So(ok, ShouldBeTrue)
			So(team, ShouldEqual, model.Team("cat"))
			So(model.Winner("cat").IsDraw(), ShouldBeFalse)
		})

		Convey("Draw and unset winners should not expose a team", func() {
			_, ok := model.WinnerDraw.Team()
			So(ok, ShouldBeFalse)
			So(model.WinnerDraw.IsDraw(), ShouldBeTrue)

			_, ok = model.WinnerNone.Team()
			So(ok, ShouldBeFalse)
		})
	})
}

func TestEventWindow(t *testing.T) {
	Convey("Given an event from 10:00 to 11:00", t, func() {
		start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
		ev := model.Event{StartAt: start, EndAt: start.Add(time.Hour)}

		Convey("Both window edges should count as active", func() {
			So(ev.ActiveAt(start), ShouldBeTrue)
			So(ev.ActiveAt(start.Add(time.Hour)), ShouldBeTrue)
			So(ev.ActiveAt(start.Add(-time.Nanosecond)), ShouldBeFalse)
			So(ev.ActiveAt(start.Add(time.Hour+time.Nanosecond)), ShouldBeFalse)
		})

		Convey("Remaining should clamp at zero after the end", func() {
			So(ev.Remaining(start.Add(15*time.Minute)), ShouldEqual, 45*time.Minute)
			So(ev.Remaining(start.Add(2*time.Hour)), ShouldEqual, time.Duration(0))
		})
	})
}

func TestEventClone(t *testing.T) {
	Convey("Given a settled event", t, func() {
		settledAt := time.Now()
		ev := model.Event{
			ID:        "e-1",
			Hints:     []model.Hint{{Threshold: 10, Title: "t", Content: "c"}},
			SettledAt: &settledAt,
			FinalSnapshot: &model.Snapshot{
				Totals:     map[model.Team]int64{"cat": 5},
				GrandTotal: 5,
				Percents:   map[model.Team]float64{"cat": 100},
			},
		}

		Convey("Mutating the clone should leave the original untouched", func() {
			c := ev.Clone()
			c.Hints[0].Content = "changed"
			c.FinalSnapshot.Totals["cat"] = 99
			*c.SettledAt = settledAt.Add(time.Hour)

			So(ev.Hints[0].Content, ShouldEqual, "c")
			So(ev.FinalSnapshot.Totals[model.Team("cat")], ShouldEqual, 5)
			So(ev.SettledAt.Equal(settledAt), ShouldBeTrue)
			So(ev.Settled(), ShouldBeTrue)
		})
	})
}

func TestParseTeam(t *testing.T) {
	Convey("Given the configured teams cat and dog", t, func() {
		teams := []model.Team{"cat", "dog"}

		Convey("Known teams should parse case-insensitively", func() {
			team, ok := model.ParseTeam("  Dog ", teams)
			So(ok, ShouldBeTrue)
			So(team, ShouldEqual, model.Team("dog"))
		})

		Convey("Unknown or empty teams should be rejected", func() {
			_, ok := model.ParseTeam("owl", teams)
			So(ok, ShouldBeFalse)
			_, ok = model.ParseTeam("", teams)
			So(ok, ShouldBeFalse)
		})
	})
}
