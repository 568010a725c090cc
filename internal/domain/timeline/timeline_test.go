package timeline_test

import (
	"testing"
	"time"

	"github.com/okian/liftprogress/internal/domain/model"
	"github.com/okian/liftprogress/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	getTotal = func(r *model.FeatureRow) *float64 { return r.Total }
	setProg  = func(r *model.FeatureRow, v *float64) { r.TotalProgress = v }
	setRoll  = func(r *model.FeatureRow, v *float64) { r.RollingAvgTotal = v }
	setPrev  = func(r *model.FeatureRow, v *float64) { r.PreviousTotal = v }
)

func row(key, date string, total *float64) model.FeatureRow {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	r := model.FeatureRow{}
	r.PrimaryKey = key
	r.Date = d
	r.Total = total
	return r
}

func TestOrder(t *testing.T) {
	Convey("Given unordered rows for two athletes", t, func() {
		in := []model.FeatureRow{
			row("b", "2020-01-01", model.Float(300)),
			row("a", "2021-01-01", model.Float(410)),
			row("a", "2020-01-01", model.Float(400)),
		}

		Convey("When ordering", func() {
			tl := timeline.Order(in)

			Convey("Then rows are sorted by key and date with partitions", func() {
				rows := tl.Rows()
				So(tl.Len(), ShouldEqual, 3)
				So(tl.Athletes(), ShouldEqual, 2)
				So(rows[0].PrimaryKey, ShouldEqual, "a")
				So(*rows[0].Total, ShouldEqual, 400)
				So(rows[2].PrimaryKey, ShouldEqual, "b")
				So(in[0].PrimaryKey, ShouldEqual, "b")

				var sizes []int
				tl.Each(func(part []model.FeatureRow) { sizes = append(sizes, len(part)) })
				So(sizes, ShouldResemble, []int{2, 1})
			})
		})
	})
}

func TestTimeSinceLast(t *testing.T) {
	Convey("Given two athletes", t, func() {
		tl := timeline.Order([]model.FeatureRow{
			row("a", "2020-01-01", nil),
			row("a", "2020-03-01", nil),
			row("b", "2020-02-15", nil),
			row("a", "2020-03-13", nil),
		})
		tl.TimeSinceLast()
		tl.CumulativeCount()
		tl.Tenure()
		rows := tl.Rows()

		Convey("Then first rows are nil and later rows use their own predecessor", func() {
			So(rows[0].TimeSinceLastCompDays, ShouldBeNil)
			So(*rows[1].TimeSinceLastCompDays, ShouldEqual, 60)
			So(*rows[2].TimeSinceLastCompDays, ShouldEqual, 12)
			So(*rows[1].TimeSinceLastCompYears, ShouldAlmostEqual, 60/365.25)
			So(rows[3].PrimaryKey, ShouldEqual, "b")
			So(rows[3].TimeSinceLastCompDays, ShouldBeNil)
		})

		Convey("Then counts and tenure restart per athlete", func() {
			So(rows[2].CumulativeComps, ShouldEqual, 3)
			So(rows[2].TenureDays, ShouldEqual, 72)
			So(rows[3].CumulativeComps, ShouldEqual, 1)
			So(rows[3].TenureDays, ShouldEqual, 0)
		})
	})
}

func TestProgressRate(t *testing.T) {
	Convey("Given totals four years apart", t, func() {
		tl := timeline.Order([]model.FeatureRow{
			row("a", "2016-01-01", model.Float(500)),
			row("a", "2020-01-01", model.Float(580)),
		})
		tl.TimeSinceLast()
		tl.ProgressRate(30, getTotal, setProg)

		Convey("Then progress is the change per year", func() {
			rows := tl.Rows()
			So(rows[0].TotalProgress, ShouldBeNil)
			So(*rows[1].TimeSinceLastCompDays, ShouldEqual, 1461)
			So(*rows[1].TotalProgress, ShouldAlmostEqual, 20.0)
		})
	})

	Convey("Given a gap of exactly one year in years", t, func() {
		tl := timeline.Order([]model.FeatureRow{
			row("a", "2019-01-01", model.Float(500)),
			row("a", "2020-01-01", model.Float(520)),
		})
		rows := tl.Rows()
		rows[1].TimeSinceLastCompDays = model.Int(365)
		rows[1].TimeSinceLastCompYears = model.Float(365.25 / timeline.DaysInYear)
		tl.ProgressRate(30, getTotal, setProg)

		Convey("Then 500 to 520 is 20 per year", func() {
			So(*rows[1].TotalProgress, ShouldEqual, 20.0)
		})
	})

	Convey("Given two meets 12 days apart", t, func() {
		tl := timeline.Order([]model.FeatureRow{
			row("a", "2020-01-01", model.Float(500)),
			row("a", "2020-01-13", model.Float(520)),
			row("a", "2020-06-13", nil),
		})
		tl.TimeSinceLast()
		tl.ProgressRate(30, getTotal, setProg)

		Convey("Then the short gap and the missing value are nil", func() {
			rows := tl.Rows()
			So(*rows[1].TimeSinceLastCompDays, ShouldEqual, 12)
			So(rows[1].TotalProgress, ShouldBeNil)
			So(rows[2].TotalProgress, ShouldBeNil)
		})
	})
}

func TestRollingAverage(t *testing.T) {
	Convey("Given five results for one athlete and two for another", t, func() {
		tl := timeline.Order([]model.FeatureRow{
			row("a", "2020-01-01", model.Float(300)),
			row("a", "2020-04-01", model.Float(330)),
			row("a", "2020-07-01", model.Float(360)),
			row("a", "2020-10-01", nil),
			row("a", "2021-01-01", model.Float(390)),
			row("b", "2020-01-01", model.Float(1000)),
			row("b", "2020-02-01", model.Float(1000)),
		})
		tl.RollingAverage(3, getTotal, setRoll)
		rows := tl.Rows()

		Convey("Then the first two rows are nil and the third is the mean", func() {
			So(rows[0].RollingAvgTotal, ShouldBeNil)
			So(rows[1].RollingAvgTotal, ShouldBeNil)
			So(*rows[2].RollingAvgTotal, ShouldEqual, 330)
		})

		Convey("Then windows with a missing value are nil", func() {
			So(rows[3].RollingAvgTotal, ShouldBeNil)
			So(rows[4].RollingAvgTotal, ShouldBeNil)
		})

		Convey("Then windows never reach into another athlete", func() {
			So(rows[5].RollingAvgTotal, ShouldBeNil)
			So(rows[6].RollingAvgTotal, ShouldBeNil)
		})
	})
}

func TestLagAndChange(t *testing.T) {
	Convey("Given an athlete's totals", t, func() {
		tl := timeline.Order([]model.FeatureRow{
			row("a", "2020-01-01", model.Float(300)),
			row("a", "2020-04-01", model.Float(320)),
			row("b", "2020-04-01", model.Float(200)),
		})
		tl.Lag(getTotal, setPrev)
		tl.Change(getTotal, func(r *model.FeatureRow, v *float64) { r.BodyweightChange = v })
		rows := tl.Rows()

		Convey("Then previous values stay within the athlete", func() {
			So(rows[0].PreviousTotal, ShouldBeNil)
			So(*rows[1].PreviousTotal, ShouldEqual, 300)
			So(rows[2].PreviousTotal, ShouldBeNil)
			So(*rows[1].BodyweightChange, ShouldEqual, 20)
			So(rows[2].BodyweightChange, ShouldBeNil)
		})
	})
}
