// Package model contains domain models passed between layers.
package model

import "time"

// Sentinel category values for missing fields.
const (
	SexUnknown         = "unknown"
	WeightClassUnknown = "unknown"
)

// CompetitionRecord is one (athlete, meet, event) observation as ingested.
// Source fields are never mutated after ingestion. Nullable numerics are nil.
type CompetitionRecord struct {
	Name             string
	Sex              string
	Age              *float64
	AgeClass         string
	Bodyweight       *float64
	Date             time.Time
	MeetName         string
	MeetCountry      string
	MeetState        string
	Federation       string
	ParentFederation string
	Country          string
	State            string
	Equipment        string
	Tested           string
	Event            string
	WeightClassKg    string
	Squat            *float64
	Bench            *float64
	Deadlift         *float64
	Total            *float64
	Wilks            *float64
	Place            string
}

// Identity is the derived athlete identity attached to every raw row.
type Identity struct {
	PrimaryKey    string
	YearOfBirth   *int
	OriginCountry string
}

// RawRecord is a cleaned record annotated with its identity.
type RawRecord struct {
	CompetitionRecord
	Identity

	EventYear int
	// SexCategory is Sex, or SexUnknown when the source left it empty.
	SexCategory string
}

// FeatureRow is one row of the base table: a raw record plus every
// longitudinal and competitive-context feature.
type FeatureRow struct {
	RawRecord

	TimeSinceLastCompDays  *int
	TimeSinceLastCompYears *float64
	CumulativeComps        int
	TenureDays             int

	MeetType        string
	IPFWeightClass  string
	IsOriginCountry bool

	BodyweightChange *float64

	SquatRatio    *float64
	BenchRatio    *float64
	DeadliftRatio *float64

	RollingAvgSquat    *float64
	RollingAvgBench    *float64
	RollingAvgDeadlift *float64
	RollingAvgTotal    *float64

	TotalPerBodyweight  *float64
	TotalPercentileRank *float64
	SegmentMeanTotal    *float64
	TotalVsSegmentMean  *float64

	SquatProgress    *float64
	BenchProgress    *float64
	DeadliftProgress *float64
	TotalProgress    *float64
	WilksProgress    *float64

	PreviousSquat    *float64
	PreviousBench    *float64
	PreviousDeadlift *float64
	PreviousTotal    *float64
	PreviousWilks    *float64

	PrevSquatRatio          *float64
	PrevBenchRatio          *float64
	PrevDeadliftRatio       *float64
	PrevRollingAvgSquat     *float64
	PrevRollingAvgBench     *float64
	PrevRollingAvgDeadlift  *float64
	PrevRollingAvgTotal     *float64
	PrevTotalPercentileRank *float64
	PrevTotalPerBodyweight  *float64
	PrevTotalVsSegmentMean  *float64

	EloRating    float64
	EloChange    *float64
	MeetFieldElo float64
}
