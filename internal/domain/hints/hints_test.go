package hints_test

import (
	"testing"

	"github.com/okian/teamclash/internal/domain/hints"
	"github.com/okian/teamclash/internal/domain/model"
	"github.com/okian/teamclash/internal/domain/standings"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolve(t *testing.T) {
	Convey("Given a single hint with threshold 500", t, func() {
		list := []model.Hint{{Threshold: 500, Title: "Secret", Content: "look under the desk"}}

		Convey("When the team total is 499", func() {
			views := hints.Resolve(list, 499, true)

			Convey("Then the hint should be locked with no content", func() {
				So(len(views), ShouldEqual, 1)
				So(views[0].Unlocked, ShouldBeFalse)
				So(views[0].Content, ShouldEqual, "")
				So(views[0].Title, ShouldEqual, "Secret")
				So(views[0].Threshold, ShouldEqual, 500)
			})
		})

		Convey("When the team total is exactly 500", func() {
			views := hints.Resolve(list, 500, true)

			Convey("Then the hint should be unlocked with content", func() {
				So(views[0].Unlocked, ShouldBeTrue)
				So(views[0].Content, ShouldEqual, "look under the desk")
			})
		})

		Convey("When the team is unknown", func() {
			views := hints.Resolve(list, 10000, false)

			Convey("Then the hint should stay locked", func() {
				So(views[0].Unlocked, ShouldBeFalse)
				So(views[0].Content, ShouldEqual, "")
			})
		})
	})

	Convey("Given no hints", t, func() {
		Convey("Then the result should be an empty, non-nil slice", func() {
			views := hints.Resolve(nil, 100, true)
			So(views, ShouldNotBeNil)
			So(len(views), ShouldEqual, 0)
		})
	})

	Convey("Given unsorted hints with a duplicate threshold", t, func() {
		list := []model.Hint{
			{Threshold: 300, Title: "c", Content: "C"},
			{Threshold: 100, Title: "a", Content: "A"},
			{Threshold: 300, Title: "d", Content: "D"},
			{Threshold: 0, Title: "free", Content: "F"},
		}

		Convey("Then order should be preserved and each hint judged independently", func() {
			views := hints.Resolve(list, 150, true)
			So(views[0].Title, ShouldEqual, "c")
			So(views[0].Unlocked, ShouldBeFalse)
			So(views[1].Unlocked, ShouldBeTrue)
			So(views[2].Unlocked, ShouldBeFalse)
			So(views[3].Unlocked, ShouldBeTrue)
			So(views[3].Content, ShouldEqual, "F")
		})
	})
}

func TestForTeam(t *testing.T) {
	Convey("Given standings cat=600 and dog=200", t, func() {
		s := standings.Compute([]model.Team{"cat", "dog"}, map[model.Team]int64{"cat": 600, "dog": 200})
		list := []model.Hint{{Threshold: 500, Title: "t", Content: "c"}}

		Convey("Then each team should see its own unlock state", func() {
			So(hints.ForTeam(list, s, "cat")[0].Unlocked, ShouldBeTrue)
			So(hints.ForTeam(list, s, "dog")[0].Unlocked, ShouldBeFalse)
		})

		Convey("Then a team outside the standings should see nothing unlocked", func() {
			v := hints.ForTeam(list, s, "owl")
			So(v[0].Unlocked, ShouldBeFalse)
			So(v[0].Content, ShouldEqual, "")
		})
	})
}

func TestUnlockedThresholds(t *testing.T) {
	Convey("Given standings and unsorted hints", t, func() {
		s := standings.Compute([]model.Team{"cat", "dog"}, map[model.Team]int64{"cat": 350, "dog": 50})
		list := []model.Hint{
			{Threshold: 300}, {Threshold: 100}, {Threshold: 300}, {Threshold: 1000},
		}

		Convey("Then each team should get its reached thresholds ascending and distinct", func() {
			got := hints.UnlockedThresholds(list, s)
			So(got[model.Team("cat")], ShouldResemble, []int64{100, 300})
			So(got[model.Team("dog")], ShouldResemble, []int64{})
		})
	})
}
