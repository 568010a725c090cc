package summary

import (
	"cmp"
	"slices"

	"github.com/okian/liftprogress/internal/domain/model"
)

// Analysis table names.
const (
	CareerTrajectory   = "career_trajectory"
	CompIndexedGrowth  = "comp_indexed_growth"
	PercentileMovement = "percentile_movement"
	RollingAverages    = "rolling_averages"
	LiftRatios         = "lift_ratios"
	WilksTrajectory    = "wilks_trajectory"
)

func floatMetric(name string, get func(r *model.FeatureRow) *float64) metric {
	return metric{name: name, get: get}
}

var (
	totalMetric    = floatMetric("total", func(r *model.FeatureRow) *float64 { return r.Total })
	squatMetric    = floatMetric("squat", func(r *model.FeatureRow) *float64 { return r.Squat })
	benchMetric    = floatMetric("bench", func(r *model.FeatureRow) *float64 { return r.Bench })
	deadliftMetric = floatMetric("deadlift", func(r *model.FeatureRow) *float64 { return r.Deadlift })
	wilksMetric    = floatMetric("wilks", func(r *model.FeatureRow) *float64 { return r.Wilks })
)

func indexed(r *model.FeatureRow) bool {
	return cohort(r) && r.CumulativeComps <= MaxCompIndex
}

func byComp(r *model.FeatureRow) groupKey {
	return groupKey{sex: r.SexCategory, weightClass: r.IPFWeightClass, comp: r.CumulativeComps}
}

// Analyses returns the cohort tables of the dashboard. Every table is
// restricted to rows with a binary sex and a known weight class.
func Analyses(rows []model.FeatureRow) []Table {
	specs := []struct {
		name string
		agg  aggregation
	}{
		{CareerTrajectory, aggregation{
			filter: cohort,
			key: func(r *model.FeatureRow) groupKey {
				return groupKey{sex: r.SexCategory, weightClass: r.IPFWeightClass, bucket: TenureBucket(r.TenureDays)}
			},
			metrics: []metric{totalMetric},
		}},
		{CompIndexedGrowth, aggregation{
			filter:  indexed,
			key:     byComp,
			metrics: []metric{totalMetric, squatMetric, benchMetric, deadliftMetric},
		}},
		{PercentileMovement, aggregation{
			filter: indexed,
			key:    byComp,
			metrics: []metric{floatMetric("total_percentile_rank", func(r *model.FeatureRow) *float64 {
				return r.TotalPercentileRank
			})},
		}},
		{RollingAverages, aggregation{
			filter: func(r *model.FeatureRow) bool { return indexed(r) && r.RollingAvgTotal != nil },
			key:    byComp,
			metrics: []metric{
				floatMetric("rolling_avg_total", func(r *model.FeatureRow) *float64 { return r.RollingAvgTotal }),
				floatMetric("rolling_avg_squat", func(r *model.FeatureRow) *float64 { return r.RollingAvgSquat }),
				floatMetric("rolling_avg_bench", func(r *model.FeatureRow) *float64 { return r.RollingAvgBench }),
				floatMetric("rolling_avg_deadlift", func(r *model.FeatureRow) *float64 { return r.RollingAvgDeadlift }),
			},
		}},
		{LiftRatios, aggregation{
			filter: func(r *model.FeatureRow) bool { return cohort(r) && r.SquatRatio != nil },
			key: func(r *model.FeatureRow) groupKey {
				return groupKey{sex: r.SexCategory, weightClass: r.IPFWeightClass, experience: ExperienceLevel(r.CumulativeComps)}
			},
			metrics: []metric{
				floatMetric("squat_ratio", func(r *model.FeatureRow) *float64 { return r.SquatRatio }),
				floatMetric("bench_ratio", func(r *model.FeatureRow) *float64 { return r.BenchRatio }),
				floatMetric("deadlift_ratio", func(r *model.FeatureRow) *float64 { return r.DeadliftRatio }),
			},
		}},
		{WilksTrajectory, aggregation{
			filter:  func(r *model.FeatureRow) bool { return indexed(r) && r.Wilks != nil },
			key:     byComp,
			metrics: []metric{wilksMetric},
		}},
	}

	out := make([]Table, 0, len(specs))
	for _, s := range specs {
		out = append(out, Table{Name: s.name, Rows: s.agg.run(rows)})
	}
	return out
}

// Milestone is the share of a cohort whose best total reached a threshold
// within the first CompIndex competitions.
type Milestone struct {
	Sex             string
	WeightClass     string
	ThresholdKg     float64
	CompIndex       int
	Reached         int
	TotalLifters    int
	FractionReached float64
}

// DefaultMilestones are the total thresholds in kg per sex.
func DefaultMilestones() map[string][]float64 {
	return map[string][]float64{
		"M": {400, 500, 600, 700},
		"F": {250, 300, 350, 400},
	}
}

// MilestoneSurvival reports, per (sex, weight class), threshold and
// competition index, the share of athletes whose running best total reached
// the threshold by that competition. Each athlete counts once, from the
// first competition that reached it.
func MilestoneSurvival(rows []model.FeatureRow, thresholds map[string][]float64) []Milestone {
	type athlete struct {
		sex, wc string
		totals  map[int]float64
	}
	athletes := make(map[string]*athlete)
	for i := range rows {
		r := &rows[i]
		if !indexed(r) {
			continue
		}
		a, ok := athletes[r.PrimaryKey]
		if !ok {
			a = &athlete{sex: r.SexCategory, wc: r.IPFWeightClass, totals: make(map[int]float64)}
			athletes[r.PrimaryKey] = a
		}
		if v, ok := model.Value(r.Total); ok {
			a.totals[r.CumulativeComps] = max(a.totals[r.CumulativeComps], v)
		}
	}

	type cohortKey struct{ sex, wc string }
	type cell struct {
		lifters int
		firsts  map[float64][]int
	}
	cells := make(map[cohortKey]*cell)
	for _, a := range athletes {
		k := cohortKey{a.sex, a.wc}
		c, ok := cells[k]
		if !ok {
			c = &cell{firsts: make(map[float64][]int)}
			cells[k] = c
		}
		c.lifters++

		comps := make([]int, 0, len(a.totals))
		for n := range a.totals {
			comps = append(comps, n)
		}
		slices.Sort(comps)
		for _, t := range thresholds[a.sex] {
			best := 0.0
			for _, n := range comps {
				best = max(best, a.totals[n])
				if best >= t {
					c.firsts[t] = append(c.firsts[t], n)
					break
				}
			}
		}
	}

	keys := make([]cohortKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b cohortKey) int {
		if c := cmp.Compare(a.sex, b.sex); c != 0 {
			return c
		}
		return cmp.Compare(a.wc, b.wc)
	})

	var out []Milestone
	for _, k := range keys {
		c := cells[k]
		for _, t := range thresholds[k.sex] {
			firsts := c.firsts[t]
			for n := 1; n <= MaxCompIndex; n++ {
				reached := 0
				for _, f := range firsts {
					if f <= n {
						reached++
					}
				}
				out = append(out, Milestone{
					Sex:             k.sex,
					WeightClass:     k.wc,
					ThresholdKg:     t,
					CompIndex:       n,
					Reached:         reached,
					TotalLifters:    c.lifters,
					FractionReached: float64(reached) / float64(c.lifters),
				})
			}
		}
	}
	return out
}
