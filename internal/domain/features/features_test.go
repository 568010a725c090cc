package features_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/liftprogress/internal/domain/features"
	"github.com/okian/liftprogress/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rec(key, name, sex string, yob int, date, meet, country string, total, bw float64) model.RawRecord {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	r := model.RawRecord{}
	r.Name = name
	r.Sex = sex
	r.SexCategory = sex
	r.Date = d
	r.MeetName = meet
	r.MeetCountry = country
	r.Event = "SBD"
	r.Tested = "Yes"
	r.Equipment = "Raw"
	r.Total = model.Float(total)
	r.Bodyweight = model.Float(bw)
	r.PrimaryKey = key
	r.YearOfBirth = model.Int(yob)
	r.OriginCountry = "AUS"
	return r
}

func fixture() []model.RawRecord {
	sam := "sam-lee-m-1990"
	tom := "tom-wu-m-1985"
	rows := []model.RawRecord{
		rec(sam, "Sam Lee", "M", 1990, "2018-01-01", "Club Open", "AUS", 500, 80),
		rec(sam, "Sam Lee", "M", 1990, "2018-01-13", "State Titles", "AUS", 520, 81),
		rec(sam, "Sam Lee", "M", 1990, "2019-01-13", "Nationals", "NZL", 560, 82),
		rec(tom, "Tom Wu", "M", 1985, "2018-01-01", "Club Open", "AUS", 450, 79),
		rec(tom, "Tom Wu", "M", 1985, "2018-01-13", "State Titles", "AUS", 540, 80),
		rec(tom, "Tom Wu", "M", 1985, "2019-01-13", "Nationals", "NZL", 500, 81),
		rec("al-m-1980", "Al", "M", 1980, "2018-01-01", "Club Open", "AUS", 400, 90),
		rec("al-m-1980", "Al", "M", 1980, "2018-06-01", "Club Open", "AUS", 410, 90),
		rec("sam-lee-m-1991", "Sam Lee", "M", 1991, "2017-01-01", "Club Open", "AUS", 300, 70),
	}
	bench := rec(sam, "Sam Lee", "M", 1990, "2018-03-01", "Bench Only", "AUS", 150, 80)
	bench.Event = "B"
	rows = append(rows, bench)
	rows[0].Squat = model.Float(200)
	return rows
}

func TestBuilderBuild(t *testing.T) {
	Convey("Given a raw table", t, func() {
		ctx := context.Background()
		b := features.NewBuilder()

		Convey("When building features", func() {
			rows, stats, err := b.Build(ctx, fixture())
			So(err, ShouldBeNil)

			Convey("Then filters are counted", func() {
				So(stats.In, ShouldEqual, 10)
				So(stats.OtherEvents, ShouldEqual, 1)
				So(stats.DuplicateIdentity, ShouldEqual, 1)
				So(stats.DroppedKeys, ShouldResemble, []string{"sam-lee-m-1991"})
				So(stats.FewCompetitions, ShouldEqual, 2)
				So(stats.Out, ShouldEqual, 6)
				So(stats.Athletes, ShouldEqual, 2)
				So(len(rows), ShouldEqual, 6)
			})

			Convey("Then temporal features follow each athlete", func() {
				So(rows[0].PrimaryKey, ShouldEqual, "sam-lee-m-1990")
				So(rows[0].TimeSinceLastCompDays, ShouldBeNil)
				So(*rows[1].TimeSinceLastCompDays, ShouldEqual, 12)
				So(*rows[2].TimeSinceLastCompDays, ShouldEqual, 365)
				So(rows[2].CumulativeComps, ShouldEqual, 3)
				So(rows[2].TenureDays, ShouldEqual, 377)
				So(rows[3].TimeSinceLastCompDays, ShouldBeNil)
			})

			Convey("Then progress is guarded against short gaps", func() {
				So(rows[0].TotalProgress, ShouldBeNil)
				So(rows[1].TotalProgress, ShouldBeNil)
				So(*rows[2].TotalProgress, ShouldAlmostEqual, 40*365.25/365, 1e-9)
				So(*rows[2].PreviousTotal, ShouldEqual, 520)
			})

			Convey("Then context features are classified", func() {
				So(rows[0].MeetType, ShouldEqual, "local")
				So(rows[1].MeetType, ShouldEqual, "state")
				So(rows[2].MeetType, ShouldEqual, "national")
				So(rows[0].IPFWeightClass, ShouldEqual, "83")
				So(rows[0].IsOriginCountry, ShouldBeTrue)
				So(rows[2].IsOriginCountry, ShouldBeFalse)
				So(*rows[1].BodyweightChange, ShouldEqual, 1)
			})

			Convey("Then strength features are derived", func() {
				So(*rows[0].SquatRatio, ShouldEqual, 0.4)
				So(rows[1].SquatRatio, ShouldBeNil)
				So(rows[1].RollingAvgTotal, ShouldBeNil)
				So(*rows[2].RollingAvgTotal, ShouldAlmostEqual, 1580.0/3)
				So(rows[2].PrevRollingAvgTotal, ShouldBeNil)
				So(*rows[0].TotalPerBodyweight, ShouldEqual, 6.25)
				So(*rows[0].TotalPercentileRank, ShouldAlmostEqual, 2.5/6*100)
				So(*rows[2].TotalPercentileRank, ShouldEqual, 100)
				So(*rows[1].PrevTotalPercentileRank, ShouldAlmostEqual, 2.5/6*100)
				So(*rows[0].SegmentMeanTotal, ShouldAlmostEqual, 3070.0/6)
				So(*rows[0].TotalVsSegmentMean, ShouldAlmostEqual, 500/(3070.0/6))
			})

			Convey("Then ratings carry across meets", func() {
				So(rows[0].EloRating, ShouldEqual, 1500)
				So(*rows[0].EloChange, ShouldEqual, 16)
				So(*rows[3].EloChange, ShouldEqual, -16)
				So(rows[1].EloRating, ShouldEqual, 1516)
				So(rows[1].MeetFieldElo, ShouldEqual, 1500)
				So(rows[4].EloRating, ShouldEqual, 1484)
				So(*rows[4].EloChange, ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestPercentileRank(t *testing.T) {
	Convey("Given totals across two segments", t, func() {
		mk := func(sex, wc string, total *float64) model.FeatureRow {
			r := model.FeatureRow{}
			r.SexCategory = sex
			r.IPFWeightClass = wc
			r.Total = total
			return r
		}
		rows := []model.FeatureRow{
			mk("M", "83", model.Float(300)),
			mk("M", "83", model.Float(200)),
			mk("M", "83", model.Float(200)),
			mk("M", "83", model.Float(100)),
			mk("M", "83", nil),
			mk("F", "63", model.Float(250)),
		}
		get := func(r *model.FeatureRow) *float64 { return r.Total }

		Convey("When ranking", func() {
			features.PercentileRank(rows, get, func(r *model.FeatureRow, v *float64) { r.TotalPercentileRank = v })

			Convey("Then ranks are averaged and scaled by the value count", func() {
				So(*rows[3].TotalPercentileRank, ShouldEqual, 25)
				So(*rows[1].TotalPercentileRank, ShouldEqual, 62.5)
				So(*rows[2].TotalPercentileRank, ShouldEqual, 62.5)
				So(*rows[0].TotalPercentileRank, ShouldEqual, 100)
				So(rows[4].TotalPercentileRank, ShouldBeNil)
				So(*rows[5].TotalPercentileRank, ShouldEqual, 100)
			})
		})

		Convey("When taking segment means", func() {
			features.SegmentMean(rows, get,
				func(r *model.FeatureRow, v *float64) { r.SegmentMeanTotal = v },
				func(r *model.FeatureRow, v *float64) { r.TotalVsSegmentMean = v },
			)

			Convey("Then each row sees its own segment", func() {
				So(*rows[0].SegmentMeanTotal, ShouldEqual, 200)
				So(*rows[0].TotalVsSegmentMean, ShouldEqual, 1.5)
				So(*rows[4].SegmentMeanTotal, ShouldEqual, 200)
				So(rows[4].TotalVsSegmentMean, ShouldBeNil)
				So(*rows[5].TotalVsSegmentMean, ShouldEqual, 1)
			})
		})
	})
}
