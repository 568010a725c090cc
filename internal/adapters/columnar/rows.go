package columnar

import (
	"time"

	"github.com/okian/liftprogress/internal/domain/model"
	"github.com/okian/liftprogress/internal/domain/summary"
)

const dateLayout = "2006-01-02"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// LandingRow is one ingested source row.
type LandingRow struct {
	Name             string   `parquet:"name"`
	Sex              string   `parquet:"sex"`
	Age              *float64 `parquet:"age,optional"`
	AgeClass         string   `parquet:"age_class"`
	Bodyweight       *float64 `parquet:"bodyweight,optional"`
	Date             string   `parquet:"date"`
	MeetName         string   `parquet:"meet_name"`
	MeetCountry      string   `parquet:"meet_country"`
	MeetState        string   `parquet:"meet_state"`
	Federation       string   `parquet:"federation"`
	ParentFederation string   `parquet:"parent_federation"`
	Country          string   `parquet:"country"`
	State            string   `parquet:"state"`
	Equipment        string   `parquet:"equipment"`
	Tested           string   `parquet:"tested"`
	Event            string   `parquet:"event"`
	WeightClassKg    string   `parquet:"weight_class_kg"`
	Squat            *float64 `parquet:"squat,optional"`
	Bench            *float64 `parquet:"bench,optional"`
	Deadlift         *float64 `parquet:"deadlift,optional"`
	Total            *float64 `parquet:"total,optional"`
	Wilks            *float64 `parquet:"wilks,optional"`
	Place            string   `parquet:"place"`
}

// FromRecords converts records to landing rows.
func FromRecords(recs []model.CompetitionRecord) []LandingRow {
	out := make([]LandingRow, len(recs))
	for i, r := range recs {
		out[i] = landingRow(r)
	}
	return out
}

// ToRecords converts landing rows to records.
func ToRecords(rows []LandingRow) []model.CompetitionRecord {
	out := make([]model.CompetitionRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out
}

func landingRow(r model.CompetitionRecord) LandingRow {
	return LandingRow{
		Name:             r.Name,
		Sex:              r.Sex,
		Age:              r.Age,
		AgeClass:         r.AgeClass,
		Bodyweight:       r.Bodyweight,
		Date:             formatDate(r.Date),
		MeetName:         r.MeetName,
		MeetCountry:      r.MeetCountry,
		MeetState:        r.MeetState,
		Federation:       r.Federation,
		ParentFederation: r.ParentFederation,
		Country:          r.Country,
		State:            r.State,
		Equipment:        r.Equipment,
		Tested:           r.Tested,
		Event:            r.Event,
		WeightClassKg:    r.WeightClassKg,
		Squat:            r.Squat,
		Bench:            r.Bench,
		Deadlift:         r.Deadlift,
		Total:            r.Total,
		Wilks:            r.Wilks,
		Place:            r.Place,
	}
}

func (r LandingRow) record() model.CompetitionRecord {
	return model.CompetitionRecord{
		Name:             r.Name,
		Sex:              r.Sex,
		Age:              r.Age,
		AgeClass:         r.AgeClass,
		Bodyweight:       r.Bodyweight,
		Date:             parseDate(r.Date),
		MeetName:         r.MeetName,
		MeetCountry:      r.MeetCountry,
		MeetState:        r.MeetState,
		Federation:       r.Federation,
		ParentFederation: r.ParentFederation,
		Country:          r.Country,
		State:            r.State,
		Equipment:        r.Equipment,
		Tested:           r.Tested,
		Event:            r.Event,
		WeightClassKg:    r.WeightClassKg,
		Squat:            r.Squat,
		Bench:            r.Bench,
		Deadlift:         r.Deadlift,
		Total:            r.Total,
		Wilks:            r.Wilks,
		Place:            r.Place,
	}
}

// RawRow is a landing row with its resolved identity. Columns are
// declared flat: optional columns of an embedded struct read back as zero.
type RawRow struct {
	Name             string   `parquet:"name"`
	Sex              string   `parquet:"sex"`
	Age              *float64 `parquet:"age,optional"`
	AgeClass         string   `parquet:"age_class"`
	Bodyweight       *float64 `parquet:"bodyweight,optional"`
	Date             string   `parquet:"date"`
	MeetName         string   `parquet:"meet_name"`
	MeetCountry      string   `parquet:"meet_country"`
	MeetState        string   `parquet:"meet_state"`
	Federation       string   `parquet:"federation"`
	ParentFederation string   `parquet:"parent_federation"`
	Country          string   `parquet:"country"`
	State            string   `parquet:"state"`
	Equipment        string   `parquet:"equipment"`
	Tested           string   `parquet:"tested"`
	Event            string   `parquet:"event"`
	WeightClassKg    string   `parquet:"weight_class_kg"`
	Squat            *float64 `parquet:"squat,optional"`
	Bench            *float64 `parquet:"bench,optional"`
	Deadlift         *float64 `parquet:"deadlift,optional"`
	Total            *float64 `parquet:"total,optional"`
	Wilks            *float64 `parquet:"wilks,optional"`
	Place            string   `parquet:"place"`

	PrimaryKey    string `parquet:"primary_key"`
	YearOfBirth   *int   `parquet:"year_of_birth,optional"`
	OriginCountry string `parquet:"origin_country"`
	EventYear     int    `parquet:"event_year"`
	SexCategory   string `parquet:"sex_category"`
}

// FromRaw converts raw records to raw rows.
func FromRaw(recs []model.RawRecord) []RawRow {
	out := make([]RawRow, len(recs))
	for i := range recs {
		out[i] = rawRow(&recs[i])
	}
	return out
}

// ToRaw converts raw rows to raw records.
func ToRaw(rows []RawRow) []model.RawRecord {
	out := make([]model.RawRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].record()
	}
	return out
}

func rawRow(r *model.RawRecord) RawRow {
	l := landingRow(r.CompetitionRecord)
	return RawRow{
		Name:             l.Name,
		Sex:              l.Sex,
		Age:              l.Age,
		AgeClass:         l.AgeClass,
		Bodyweight:       l.Bodyweight,
		Date:             l.Date,
		MeetName:         l.MeetName,
		MeetCountry:      l.MeetCountry,
		MeetState:        l.MeetState,
		Federation:       l.Federation,
		ParentFederation: l.ParentFederation,
		Country:          l.Country,
		State:            l.State,
		Equipment:        l.Equipment,
		Tested:           l.Tested,
		Event:            l.Event,
		WeightClassKg:    l.WeightClassKg,
		Squat:            l.Squat,
		Bench:            l.Bench,
		Deadlift:         l.Deadlift,
		Total:            l.Total,
		Wilks:            l.Wilks,
		Place:            l.Place,
		PrimaryKey:       r.PrimaryKey,
		YearOfBirth:      r.YearOfBirth,
		OriginCountry:    r.OriginCountry,
		EventYear:        r.EventYear,
		SexCategory:      r.SexCategory,
	}
}

func (r *RawRow) landing() LandingRow {
	return LandingRow{
		Name:             r.Name,
		Sex:              r.Sex,
		Age:              r.Age,
		AgeClass:         r.AgeClass,
		Bodyweight:       r.Bodyweight,
		Date:             r.Date,
		MeetName:         r.MeetName,
		MeetCountry:      r.MeetCountry,
		MeetState:        r.MeetState,
		Federation:       r.Federation,
		ParentFederation: r.ParentFederation,
		Country:          r.Country,
		State:            r.State,
		Equipment:        r.Equipment,
		Tested:           r.Tested,
		Event:            r.Event,
		WeightClassKg:    r.WeightClassKg,
		Squat:            r.Squat,
		Bench:            r.Bench,
		Deadlift:         r.Deadlift,
		Total:            r.Total,
		Wilks:            r.Wilks,
		Place:            r.Place,
	}
}

func (r *RawRow) record() model.RawRecord {
	return model.RawRecord{
		CompetitionRecord: r.landing().record(),
		Identity: model.Identity{
			PrimaryKey:    r.PrimaryKey,
			YearOfBirth:   r.YearOfBirth,
			OriginCountry: r.OriginCountry,
		},
		EventYear:   r.EventYear,
		SexCategory: r.SexCategory,
	}
}

// BaseRow is one row of the base table, the raw columns followed by the
// derived features.
type BaseRow struct {
	Name             string   `parquet:"name"`
	Sex              string   `parquet:"sex"`
	Age              *float64 `parquet:"age,optional"`
	AgeClass         string   `parquet:"age_class"`
	Bodyweight       *float64 `parquet:"bodyweight,optional"`
	Date             string   `parquet:"date"`
	MeetName         string   `parquet:"meet_name"`
	MeetCountry      string   `parquet:"meet_country"`
	MeetState        string   `parquet:"meet_state"`
	Federation       string   `parquet:"federation"`
	ParentFederation string   `parquet:"parent_federation"`
	Country          string   `parquet:"country"`
	State            string   `parquet:"state"`
	Equipment        string   `parquet:"equipment"`
	Tested           string   `parquet:"tested"`
	Event            string   `parquet:"event"`
	WeightClassKg    string   `parquet:"weight_class_kg"`
	Squat            *float64 `parquet:"squat,optional"`
	Bench            *float64 `parquet:"bench,optional"`
	Deadlift         *float64 `parquet:"deadlift,optional"`
	Total            *float64 `parquet:"total,optional"`
	Wilks            *float64 `parquet:"wilks,optional"`
	Place            string   `parquet:"place"`

	PrimaryKey    string `parquet:"primary_key"`
	YearOfBirth   *int   `parquet:"year_of_birth,optional"`
	OriginCountry string `parquet:"origin_country"`
	EventYear     int    `parquet:"event_year"`
	SexCategory   string `parquet:"sex_category"`

	TimeSinceLastCompDays  *int     `parquet:"time_since_last_comp_days,optional"`
	TimeSinceLastCompYears *float64 `parquet:"time_since_last_comp_years,optional"`
	CumulativeComps        int      `parquet:"cumulative_comps"`
	TenureDays             int      `parquet:"tenure_days"`

	MeetType        string `parquet:"meet_type"`
	IPFWeightClass  string `parquet:"ipf_weight_class"`
	IsOriginCountry bool   `parquet:"is_origin_country"`

	BodyweightChange *float64 `parquet:"bodyweight_change,optional"`

	SquatRatio    *float64 `parquet:"squat_ratio,optional"`
	BenchRatio    *float64 `parquet:"bench_ratio,optional"`
	DeadliftRatio *float64 `parquet:"deadlift_ratio,optional"`

	RollingAvgSquat    *float64 `parquet:"rolling_avg_squat_3,optional"`
	RollingAvgBench    *float64 `parquet:"rolling_avg_bench_3,optional"`
	RollingAvgDeadlift *float64 `parquet:"rolling_avg_deadlift_3,optional"`
	RollingAvgTotal    *float64 `parquet:"rolling_avg_total_3,optional"`

	TotalPerBodyweight  *float64 `parquet:"total_per_bw,optional"`
	TotalPercentileRank *float64 `parquet:"total_percentile_rank,optional"`
	SegmentMeanTotal    *float64 `parquet:"segment_mean_total,optional"`
	TotalVsSegmentMean  *float64 `parquet:"total_vs_segment_mean,optional"`

	SquatProgress    *float64 `parquet:"squat_progress,optional"`
	BenchProgress    *float64 `parquet:"bench_progress,optional"`
	DeadliftProgress *float64 `parquet:"deadlift_progress,optional"`
	TotalProgress    *float64 `parquet:"total_progress,optional"`
	WilksProgress    *float64 `parquet:"wilks_progress,optional"`

	PreviousSquat    *float64 `parquet:"previous_squat,optional"`
	PreviousBench    *float64 `parquet:"previous_bench,optional"`
	PreviousDeadlift *float64 `parquet:"previous_deadlift,optional"`
	PreviousTotal    *float64 `parquet:"previous_total,optional"`
	PreviousWilks    *float64 `parquet:"previous_wilks,optional"`

	PrevSquatRatio          *float64 `parquet:"prev_squat_ratio,optional"`
	PrevBenchRatio          *float64 `parquet:"prev_bench_ratio,optional"`
	PrevDeadliftRatio       *float64 `parquet:"prev_deadlift_ratio,optional"`
	PrevRollingAvgSquat     *float64 `parquet:"prev_rolling_avg_squat_3,optional"`
	PrevRollingAvgBench     *float64 `parquet:"prev_rolling_avg_bench_3,optional"`
	PrevRollingAvgDeadlift  *float64 `parquet:"prev_rolling_avg_deadlift_3,optional"`
	PrevRollingAvgTotal     *float64 `parquet:"prev_rolling_avg_total_3,optional"`
	PrevTotalPercentileRank *float64 `parquet:"prev_total_percentile_rank,optional"`
	PrevTotalPerBodyweight  *float64 `parquet:"prev_total_per_bw,optional"`
	PrevTotalVsSegmentMean  *float64 `parquet:"prev_total_vs_segment_mean,optional"`

	EloRating    float64  `parquet:"elo_rating"`
	EloChange    *float64 `parquet:"elo_change,optional"`
	MeetFieldElo float64  `parquet:"meet_field_elo"`
}

func (b *BaseRow) setRaw(r *RawRow) {
	b.Name = r.Name
	b.Sex = r.Sex
	b.Age = r.Age
	b.AgeClass = r.AgeClass
	b.Bodyweight = r.Bodyweight
	b.Date = r.Date
	b.MeetName = r.MeetName
	b.MeetCountry = r.MeetCountry
	b.MeetState = r.MeetState
	b.Federation = r.Federation
	b.ParentFederation = r.ParentFederation
	b.Country = r.Country
	b.State = r.State
	b.Equipment = r.Equipment
	b.Tested = r.Tested
	b.Event = r.Event
	b.WeightClassKg = r.WeightClassKg
	b.Squat = r.Squat
	b.Bench = r.Bench
	b.Deadlift = r.Deadlift
	b.Total = r.Total
	b.Wilks = r.Wilks
	b.Place = r.Place
	b.PrimaryKey = r.PrimaryKey
	b.YearOfBirth = r.YearOfBirth
	b.OriginCountry = r.OriginCountry
	b.EventYear = r.EventYear
	b.SexCategory = r.SexCategory
}

func (b *BaseRow) raw() RawRow {
	return RawRow{
		Name:             b.Name,
		Sex:              b.Sex,
		Age:              b.Age,
		AgeClass:         b.AgeClass,
		Bodyweight:       b.Bodyweight,
		Date:             b.Date,
		MeetName:         b.MeetName,
		MeetCountry:      b.MeetCountry,
		MeetState:        b.MeetState,
		Federation:       b.Federation,
		ParentFederation: b.ParentFederation,
		Country:          b.Country,
		State:            b.State,
		Equipment:        b.Equipment,
		Tested:           b.Tested,
		Event:            b.Event,
		WeightClassKg:    b.WeightClassKg,
		Squat:            b.Squat,
		Bench:            b.Bench,
		Deadlift:         b.Deadlift,
		Total:            b.Total,
		Wilks:            b.Wilks,
		Place:            b.Place,
		PrimaryKey:       b.PrimaryKey,
		YearOfBirth:      b.YearOfBirth,
		OriginCountry:    b.OriginCountry,
		EventYear:        b.EventYear,
		SexCategory:      b.SexCategory,
	}
}

// FromFeatures converts base table rows for writing.
func FromFeatures(rows []model.FeatureRow) []BaseRow {
	out := make([]BaseRow, len(rows))
	for i := range rows {
		f := &rows[i]
		out[i] = BaseRow{
			TimeSinceLastCompDays:   f.TimeSinceLastCompDays,
			TimeSinceLastCompYears:  f.TimeSinceLastCompYears,
			CumulativeComps:         f.CumulativeComps,
			TenureDays:              f.TenureDays,
			MeetType:                f.MeetType,
			IPFWeightClass:          f.IPFWeightClass,
			IsOriginCountry:         f.IsOriginCountry,
			BodyweightChange:        f.BodyweightChange,
			SquatRatio:              f.SquatRatio,
			BenchRatio:              f.BenchRatio,
			DeadliftRatio:           f.DeadliftRatio,
			RollingAvgSquat:         f.RollingAvgSquat,
			RollingAvgBench:         f.RollingAvgBench,
			RollingAvgDeadlift:      f.RollingAvgDeadlift,
			RollingAvgTotal:         f.RollingAvgTotal,
			TotalPerBodyweight:      f.TotalPerBodyweight,
			TotalPercentileRank:     f.TotalPercentileRank,
			SegmentMeanTotal:        f.SegmentMeanTotal,
			TotalVsSegmentMean:      f.TotalVsSegmentMean,
			SquatProgress:           f.SquatProgress,
			BenchProgress:           f.BenchProgress,
			DeadliftProgress:        f.DeadliftProgress,
			TotalProgress:           f.TotalProgress,
			WilksProgress:           f.WilksProgress,
			PreviousSquat:           f.PreviousSquat,
			PreviousBench:           f.PreviousBench,
			PreviousDeadlift:        f.PreviousDeadlift,
			PreviousTotal:           f.PreviousTotal,
			PreviousWilks:           f.PreviousWilks,
			PrevSquatRatio:          f.PrevSquatRatio,
			PrevBenchRatio:          f.PrevBenchRatio,
			PrevDeadliftRatio:       f.PrevDeadliftRatio,
			PrevRollingAvgSquat:     f.PrevRollingAvgSquat,
			PrevRollingAvgBench:     f.PrevRollingAvgBench,
			PrevRollingAvgDeadlift:  f.PrevRollingAvgDeadlift,
			PrevRollingAvgTotal:     f.PrevRollingAvgTotal,
			PrevTotalPercentileRank: f.PrevTotalPercentileRank,
			PrevTotalPerBodyweight:  f.PrevTotalPerBodyweight,
			PrevTotalVsSegmentMean:  f.PrevTotalVsSegmentMean,
			EloRating:               f.EloRating,
			EloChange:               f.EloChange,
			MeetFieldElo:            f.MeetFieldElo,
		}
		raw := rawRow(&f.RawRecord)
		out[i].setRaw(&raw)
	}
	return out
}

// ToFeatures converts base table rows read from a file.
func ToFeatures(rows []BaseRow) []model.FeatureRow {
	out := make([]model.FeatureRow, len(rows))
	for i := range rows {
		b := &rows[i]
		raw := b.raw()
		out[i] = model.FeatureRow{
			RawRecord:               raw.record(),
			TimeSinceLastCompDays:   b.TimeSinceLastCompDays,
			TimeSinceLastCompYears:  b.TimeSinceLastCompYears,
			CumulativeComps:         b.CumulativeComps,
			TenureDays:              b.TenureDays,
			MeetType:                b.MeetType,
			IPFWeightClass:          b.IPFWeightClass,
			IsOriginCountry:         b.IsOriginCountry,
			BodyweightChange:        b.BodyweightChange,
			SquatRatio:              b.SquatRatio,
			BenchRatio:              b.BenchRatio,
			DeadliftRatio:           b.DeadliftRatio,
			RollingAvgSquat:         b.RollingAvgSquat,
			RollingAvgBench:         b.RollingAvgBench,
			RollingAvgDeadlift:      b.RollingAvgDeadlift,
			RollingAvgTotal:         b.RollingAvgTotal,
			TotalPerBodyweight:      b.TotalPerBodyweight,
			TotalPercentileRank:     b.TotalPercentileRank,
			SegmentMeanTotal:        b.SegmentMeanTotal,
			TotalVsSegmentMean:      b.TotalVsSegmentMean,
			SquatProgress:           b.SquatProgress,
			BenchProgress:           b.BenchProgress,
			DeadliftProgress:        b.DeadliftProgress,
			TotalProgress:           b.TotalProgress,
			WilksProgress:           b.WilksProgress,
			PreviousSquat:           b.PreviousSquat,
			PreviousBench:           b.PreviousBench,
			PreviousDeadlift:        b.PreviousDeadlift,
			PreviousTotal:           b.PreviousTotal,
			PreviousWilks:           b.PreviousWilks,
			PrevSquatRatio:          b.PrevSquatRatio,
			PrevBenchRatio:          b.PrevBenchRatio,
			PrevDeadliftRatio:       b.PrevDeadliftRatio,
			PrevRollingAvgSquat:     b.PrevRollingAvgSquat,
			PrevRollingAvgBench:     b.PrevRollingAvgBench,
			PrevRollingAvgDeadlift:  b.PrevRollingAvgDeadlift,
			PrevRollingAvgTotal:     b.PrevRollingAvgTotal,
			PrevTotalPercentileRank: b.PrevTotalPercentileRank,
			PrevTotalPerBodyweight:  b.PrevTotalPerBodyweight,
			PrevTotalVsSegmentMean:  b.PrevTotalVsSegmentMean,
			EloRating:               b.EloRating,
			EloChange:               b.EloChange,
			MeetFieldElo:            b.MeetFieldElo,
		}
	}
	return out
}

// StatRow is one long-format summary row.
type StatRow struct {
	Sex             string   `parquet:"sex"`
	WeightClass     string   `parquet:"ipf_weight_class"`
	ExperienceLevel string   `parquet:"experience_level"`
	TenureBucket    string   `parquet:"tenure_bucket"`
	CompIndex       int      `parquet:"cumulative_comps"`
	Metric          string   `parquet:"metric"`
	P25             *float64 `parquet:"p25,optional"`
	Median          *float64 `parquet:"median,optional"`
	P75             *float64 `parquet:"p75,optional"`
	SampleSize      int      `parquet:"sample_size"`
}

// FromStats converts summary rows for writing.
func FromStats(rows []summary.GroupStat) []StatRow {
	out := make([]StatRow, len(rows))
	for i, r := range rows {
		out[i] = StatRow(r)
	}
	return out
}

// QualityRow is one metric of the data quality report.
type QualityRow struct {
	Metric string `parquet:"metric"`
	Value  string `parquet:"value"`
}

// FromQuality converts the data quality report for writing.
func FromQuality(rows []summary.QualityRow) []QualityRow {
	out := make([]QualityRow, len(rows))
	for i, r := range rows {
		out[i] = QualityRow(r)
	}
	return out
}

// MilestoneRow is one milestone survival point.
type MilestoneRow struct {
	Sex             string  `parquet:"sex"`
	WeightClass     string  `parquet:"ipf_weight_class"`
	ThresholdKg     float64 `parquet:"milestone_kg"`
	CompIndex       int     `parquet:"cumulative_comps"`
	Reached         int     `parquet:"lifters_reached"`
	TotalLifters    int     `parquet:"total_lifters"`
	FractionReached float64 `parquet:"fraction_reached"`
}

// FromMilestones converts milestone survival points for writing.
func FromMilestones(rows []summary.Milestone) []MilestoneRow {
	out := make([]MilestoneRow, len(rows))
	for i, r := range rows {
		out[i] = MilestoneRow(r)
	}
	return out
}
