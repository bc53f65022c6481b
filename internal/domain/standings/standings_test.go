package standings_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/standings"
	. "github.com/smartystreets/goconvey/convey"
)

var catDog = []model.Team{"cat", "dog"}

type fakeSummer struct {
	sums  map[model.Team]int64
	err   error
	calls int
}

func (f *fakeSummer) SumCurrencyByTeam(context.Context) (map[model.Team]int64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sums, nil
}

func TestCompute(t *testing.T) {
	Convey("Given balances cat=1200 and dog=800", t, func() {
		s := standings.Compute(catDog, map[model.Team]int64{"cat": 1200, "dog": 800})

		Convey("Then totals and percentages should match", func() {
			So(s.GrandTotal, ShouldEqual, 2000)
			So(s.Teams[0].Team, ShouldEqual, model.Team("cat"))
			So(s.Teams[0].Total, ShouldEqual, 1200)
			So(s.Teams[0].Percent, ShouldEqual, 60.0)
			So(s.Teams[1].Percent, ShouldEqual, 40.0)
		})

		Convey("And the grand total should equal the sum of team totals", func() {
			var sum int64
			for _, ts := range s.Teams {
				sum += ts.Total
			}
			So(sum, ShouldEqual, s.GrandTotal)
		})
	})

	Convey("Given an empty ledger", t, func() {
		s := standings.Compute(catDog, nil)

		Convey("Then every team should appear with zeros", func() {
			So(len(s.Teams), ShouldEqual, 2)
			So(s.GrandTotal, ShouldEqual, 0)
			for _, ts := range s.Teams {
				So(ts.Total, ShouldEqual, 0)
				So(ts.Percent, ShouldEqual, 0)
			}
		})
	})

	Convey("Given sums for an unconfigured team", t, func() {
		s := standings.Compute(catDog, map[model.Team]int64{"cat": 10, "owl": 90})

		Convey("Then the extra team should be ignored", func() {
			So(s.GrandTotal, ShouldEqual, 10)
			_, ok := s.Total("owl")
			So(ok, ShouldBeFalse)
			So(s.Percents()[model.Team("cat")], ShouldEqual, 100.0)
		})
	})

	Convey("Given a three-way split", t, func() {
		s := standings.Compute([]model.Team{"a", "b", "c"}, map[model.Team]int64{"a": 1, "b": 1, "c": 1})

		Convey("Then each percent should round to one decimal", func() {
			for _, ts := range s.Teams {
				So(ts.Percent, ShouldEqual, 33.3)
			}
		})
	})
}

func TestPercent(t *testing.T) {
	Convey("Given totals that land on a half tenth", t, func() {
		Convey("Then rounding should go away from zero", func() {
			So(standings.Percent(1, 8), ShouldEqual, 12.5)
			So(standings.Percent(1, 16), ShouldEqual, 6.3)
			So(standings.Percent(2, 3), ShouldEqual, 66.7)
		})

		Convey("And a zero grand total should yield zero", func() {
			So(standings.Percent(0, 0), ShouldEqual, 0)
		})
	})
}

func TestDecideWinner(t *testing.T) {
	Convey("Given decided standings", t, func() {
		Convey("A strictly higher total should win", func() {
			s := standings.Compute(catDog, map[model.Team]int64{"cat": 1200, "dog": 800})
			So(standings.DecideWinner(s), ShouldEqual, model.Winner("cat"))
		})

		Convey("A later team with the higher total should win", func() {
			s := standings.Compute(catDog, map[model.Team]int64{"cat": 100, "dog": 101})
			So(standings.DecideWinner(s), ShouldEqual, model.Winner("dog"))
		})
	})

	Convey("Given tied standings", t, func() {
		Convey("Equal totals should be a draw", func() {
			s := standings.Compute(catDog, map[model.Team]int64{"cat": 800, "dog": 800})
			So(standings.DecideWinner(s), ShouldEqual, model.WinnerDraw)
		})

		Convey("All zero should be a draw", func() {
			s := standings.Compute(catDog, nil)
			So(standings.DecideWinner(s), ShouldEqual, model.WinnerDraw)
		})

		Convey("A tie below a strict leader should not matter", func() {
			s := standings.Compute([]model.Team{"a", "b", "c"}, map[model.Team]int64{"a": 5, "b": 5, "c": 9})
			So(standings.DecideWinner(s), ShouldEqual, model.Winner("c"))
		})

		Convey("A tie at the top among three teams should be a draw", func() {
			s := standings.Compute([]model.Team{"a", "b", "c"}, map[model.Team]int64{"a": 9, "b": 5, "c": 9})
			So(standings.DecideWinner(s), ShouldEqual, model.WinnerDraw)
		})

		Convey("Equal rounded percents with different totals should not be a draw", func() {
			s := standings.Compute(catDog, map[model.Team]int64{"cat": 100000, "dog": 100001})
			So(s.Teams[0].Percent, ShouldEqual, s.Teams[1].Percent)
			So(standings.DecideWinner(s), ShouldEqual, model.Winner("dog"))
		})
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	Convey("Given computed standings", t, func() {
		s := standings.Compute(catDog, map[model.Team]int64{"cat": 3, "dog": 1})

		Convey("Then rebuilding from the snapshot should preserve every line", func() {
			rebuilt := standings.FromSnapshot(catDog, s.Snapshot())
			So(rebuilt, ShouldResemble, s)
		})
	})
}

func TestAggregator(t *testing.T) {
	Convey("Given an aggregator over a fake ledger", t, func() {
		ledger := &fakeSummer{sums: map[model.Team]int64{"cat": 7, "dog": 3}}
		agg := standings.NewAggregator(ledger, catDog)

		Convey("When computing current standings", func() {
			s, err := agg.Current(context.Background())

			Convey("Then it should read the ledger once", func() {
				So(err, ShouldBeNil)
				So(ledger.calls, ShouldEqual, 1)
				So(s.GrandTotal, ShouldEqual, 10)
				So(s.Percents()[model.Team("cat")], ShouldEqual, 70.0)
			})
		})

		Convey("When the ledger fails", func() {
			ledger.err = errors.New("connection refused")
			_, err := agg.Current(context.Background())

			Convey("Then the error should be wrapped", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ledger.err), ShouldBeTrue)
			})
		})

		Convey("Teams should return a copy", func() {
			teams := agg.Teams()
			teams[0] = "owl"
			So(agg.Teams()[0], ShouldEqual, model.Team("cat"))
		})
	})
}
