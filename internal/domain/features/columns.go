package features

import (
	"github.com/okian/liftprogress/internal/domain/model"
	"github.com/okian/liftprogress/internal/domain/timeline"
)

// derived reads a source metric and writes the feature computed from it.
type derived struct {
	src timeline.Getter
	dst timeline.Setter
}

func squat(r *model.FeatureRow) *float64    { return r.Squat }
func bench(r *model.FeatureRow) *float64    { return r.Bench }
func deadlift(r *model.FeatureRow) *float64 { return r.Deadlift }
func total(r *model.FeatureRow) *float64    { return r.Total }
func wilks(r *model.FeatureRow) *float64    { return r.Wilks }

var progressColumns = []derived{
	{squat, func(r *model.FeatureRow, v *float64) { r.SquatProgress = v }},
	{bench, func(r *model.FeatureRow, v *float64) { r.BenchProgress = v }},
	{deadlift, func(r *model.FeatureRow, v *float64) { r.DeadliftProgress = v }},
	{total, func(r *model.FeatureRow, v *float64) { r.TotalProgress = v }},
	{wilks, func(r *model.FeatureRow, v *float64) { r.WilksProgress = v }},
}

var previousColumns = []derived{
	{squat, func(r *model.FeatureRow, v *float64) { r.PreviousSquat = v }},
	{bench, func(r *model.FeatureRow, v *float64) { r.PreviousBench = v }},
	{deadlift, func(r *model.FeatureRow, v *float64) { r.PreviousDeadlift = v }},
	{total, func(r *model.FeatureRow, v *float64) { r.PreviousTotal = v }},
	{wilks, func(r *model.FeatureRow, v *float64) { r.PreviousWilks = v }},
}

var rollingColumns = []derived{
	{total, func(r *model.FeatureRow, v *float64) { r.RollingAvgTotal = v }},
	{squat, func(r *model.FeatureRow, v *float64) { r.RollingAvgSquat = v }},
	{bench, func(r *model.FeatureRow, v *float64) { r.RollingAvgBench = v }},
	{deadlift, func(r *model.FeatureRow, v *float64) { r.RollingAvgDeadlift = v }},
}

// laggedColumns describe the current meet's outcome; their prev_ variants
// only carry information from before the meet.
var laggedColumns = []derived{
	{
		func(r *model.FeatureRow) *float64 { return r.SquatRatio },
		func(r *model.FeatureRow, v *float64) { r.PrevSquatRatio = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.BenchRatio },
		func(r *model.FeatureRow, v *float64) { r.PrevBenchRatio = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.DeadliftRatio },
		func(r *model.FeatureRow, v *float64) { r.PrevDeadliftRatio = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.RollingAvgSquat },
		func(r *model.FeatureRow, v *float64) { r.PrevRollingAvgSquat = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.RollingAvgBench },
		func(r *model.FeatureRow, v *float64) { r.PrevRollingAvgBench = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.RollingAvgDeadlift },
		func(r *model.FeatureRow, v *float64) { r.PrevRollingAvgDeadlift = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.RollingAvgTotal },
		func(r *model.FeatureRow, v *float64) { r.PrevRollingAvgTotal = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.TotalPercentileRank },
		func(r *model.FeatureRow, v *float64) { r.PrevTotalPercentileRank = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.TotalPerBodyweight },
		func(r *model.FeatureRow, v *float64) { r.PrevTotalPerBodyweight = v },
	},
	{
		func(r *model.FeatureRow) *float64 { return r.TotalVsSegmentMean },
		func(r *model.FeatureRow, v *float64) { r.PrevTotalVsSegmentMean = v },
	},
}
