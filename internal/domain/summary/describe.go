package summary

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/okian/liftprogress/internal/domain/model"
)

// Describe table names.
const (
	DescribeByWeightClass      = "describe_by_weight_class"
	DescribeByExperience       = "describe_by_experience"
	DescribeBySexWCExperience  = "describe_by_sex_wc_experience"
	DescribeQuality            = "describe_quality"
	nullRateReportingThreshold = 0.01
)

var progressMetrics = []metric{
	{"squat_progress", func(r *model.FeatureRow) *float64 { return r.SquatProgress }},
	{"bench_progress", func(r *model.FeatureRow) *float64 { return r.BenchProgress }},
	{"deadlift_progress", func(r *model.FeatureRow) *float64 { return r.DeadliftProgress }},
	{"total_progress", func(r *model.FeatureRow) *float64 { return r.TotalProgress }},
	{"wilks_progress", func(r *model.FeatureRow) *float64 { return r.WilksProgress }},
}

func validProgress(r *model.FeatureRow) bool {
	v, ok := model.Value(r.TotalProgress)
	return ok && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Describe returns the progress distributions by (sex, weight class), by
// experience level, and by (sex, weight class, experience level). Only rows
// with a finite total progress are described.
func Describe(rows []model.FeatureRow) []Table {
	bySexWC := aggregation{
		filter:  func(r *model.FeatureRow) bool { return validProgress(r) && cohort(r) },
		key:     func(r *model.FeatureRow) groupKey { return groupKey{sex: r.SexCategory, weightClass: r.IPFWeightClass} },
		metrics: progressMetrics,
	}
	byExperience := aggregation{
		filter:  validProgress,
		key:     func(r *model.FeatureRow) groupKey { return groupKey{experience: ExperienceLevel(r.CumulativeComps)} },
		metrics: progressMetrics,
	}
	bySexWCExperience := aggregation{
		filter: func(r *model.FeatureRow) bool { return validProgress(r) && cohort(r) },
		key: func(r *model.FeatureRow) groupKey {
			return groupKey{sex: r.SexCategory, weightClass: r.IPFWeightClass, experience: ExperienceLevel(r.CumulativeComps)}
		},
		metrics: progressMetrics,
	}
	return []Table{
		{Name: DescribeByWeightClass, Rows: bySexWC.run(rows)},
		{Name: DescribeByExperience, Rows: byExperience.run(rows)},
		{Name: DescribeBySexWCExperience, Rows: bySexWCExperience.run(rows)},
	}
}

// QualityRow is one metric of the data quality report.
type QualityRow struct {
	Metric string
	Value  string
}

var nullableColumns = []metric{
	{"age", func(r *model.FeatureRow) *float64 { return r.Age }},
	{"bodyweight", func(r *model.FeatureRow) *float64 { return r.Bodyweight }},
	{"squat", func(r *model.FeatureRow) *float64 { return r.Squat }},
	{"bench", func(r *model.FeatureRow) *float64 { return r.Bench }},
	{"deadlift", func(r *model.FeatureRow) *float64 { return r.Deadlift }},
	{"total", func(r *model.FeatureRow) *float64 { return r.Total }},
	{"wilks", func(r *model.FeatureRow) *float64 { return r.Wilks }},
	{"time_since_last_comp_years", func(r *model.FeatureRow) *float64 { return r.TimeSinceLastCompYears }},
	{"bodyweight_change", func(r *model.FeatureRow) *float64 { return r.BodyweightChange }},
	{"squat_ratio", func(r *model.FeatureRow) *float64 { return r.SquatRatio }},
	{"rolling_avg_total_3", func(r *model.FeatureRow) *float64 { return r.RollingAvgTotal }},
	{"total_percentile_rank", func(r *model.FeatureRow) *float64 { return r.TotalPercentileRank }},
	{"total_progress", func(r *model.FeatureRow) *float64 { return r.TotalProgress }},
	{"wilks_progress", func(r *model.FeatureRow) *float64 { return r.WilksProgress }},
	{"elo_change", func(r *model.FeatureRow) *float64 { return r.EloChange }},
}

// DataQuality reports row and athlete counts, the date range, the mean
// competitions per athlete and the columns with more than 1% nulls.
func DataQuality(rows []model.FeatureRow) []QualityRow {
	n := len(rows)
	athletes := make(map[string]struct{})
	var first, last string
	for i := range rows {
		athletes[rows[i].PrimaryKey] = struct{}{}
		d := rows[i].Date.Format("2006-01-02")
		if first == "" || d < first {
			first = d
		}
		if last == "" || d > last {
			last = d
		}
	}

	mean := 0.0
	if len(athletes) > 0 {
		mean = float64(n) / float64(len(athletes))
	}

	var nulls []string
	if n > 0 {
		for _, c := range nullableColumns {
			missing := 0
			for i := range rows {
				if c.get(&rows[i]) == nil {
					missing++
				}
			}
			if rate := float64(missing) / float64(n); rate > nullRateReportingThreshold {
				nulls = append(nulls, fmt.Sprintf("%s=%.4f", c.name, rate))
			}
		}
	}
	slices.Sort(nulls)

	return []QualityRow{
		{Metric: "total_records", Value: strconv.Itoa(n)},
		{Metric: "unique_lifters", Value: strconv.Itoa(len(athletes))},
		{Metric: "date_range_start", Value: first},
		{Metric: "date_range_end", Value: last},
		{Metric: "mean_comps_per_lifter", Value: strconv.FormatFloat(mean, 'f', 2, 64)},
		{Metric: "columns_with_gt_1pct_nulls", Value: strings.Join(nulls, ";")},
	}
}
