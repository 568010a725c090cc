// Package summary aggregates the base table into cohort statistics for the
// dashboard: progress distributions, data quality and long-format analyses.
package summary

import (
	"cmp"
	"math"
	"slices"

	"github.com/okian/liftprogress/internal/domain/model"
)

// MaxCompIndex bounds the competition-indexed analyses.
const MaxCompIndex = 20

// GroupStat is one long-format row: the distribution of one metric within
// one cohort. Dimensions a table does not group by are left empty.
type GroupStat struct {
	Sex             string
	WeightClass     string
	ExperienceLevel string
	TenureBucket    string
	CompIndex       int
	Metric          string
	P25             *float64
	Median          *float64
	P75             *float64
	SampleSize      int
}

// Table is a named set of group statistics.
type Table struct {
	Name string
	Rows []GroupStat
}

// Experience levels by competition count.
const (
	Novice       = "novice (1-3)"
	Intermediate = "intermediate (4-8)"
	Experienced  = "experienced (9-15)"
	Veteran      = "veteran (16+)"
)

// ExperienceLevel buckets a cumulative competition count.
func ExperienceLevel(comps int) string {
	switch {
	case comps <= 3:
		return Novice
	case comps <= 8:
		return Intermediate
	case comps <= 15:
		return Experienced
	default:
		return Veteran
	}
}

var tenureBounds = []int{180, 365, 730, 1095, 1825, 2555, 3650}

var tenureLabels = []string{"0-6mo", "6-12mo", "1-2yr", "2-3yr", "3-5yr", "5-7yr", "7-10yr", "10yr+"}

// TenureBucket labels a tenure in days. Buckets are closed on the right.
func TenureBucket(days int) string {
	for i, b := range tenureBounds {
		if days <= b {
			return tenureLabels[i]
		}
	}
	return tenureLabels[len(tenureLabels)-1]
}

// Quantile returns the q-quantile of sorted values by linear interpolation
// between closest ranks. It returns nil for no values.
func Quantile(sorted []float64, q float64) *float64 {
	n := len(sorted)
	if n == 0 {
		return nil
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	v := sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
	return model.Float(v)
}

type metric struct {
	name string
	get  func(r *model.FeatureRow) *float64
}

type groupKey struct {
	sex, weightClass, experience, bucket string
	comp                                 int
}

type aggregation struct {
	filter  func(r *model.FeatureRow) bool
	key     func(r *model.FeatureRow) groupKey
	metrics []metric
}

// run groups the filtered rows and describes every metric per group. Rows
// are sorted by the group dimensions then by metric order.
func (a aggregation) run(rows []model.FeatureRow) []GroupStat {
	values := make(map[groupKey][][]float64)
	for i := range rows {
		r := &rows[i]
		if a.filter != nil && !a.filter(r) {
			continue
		}
		k := a.key(r)
		vs, ok := values[k]
		if !ok {
			vs = make([][]float64, len(a.metrics))
			values[k] = vs
		}
		for m, mt := range a.metrics {
			if v, ok := model.Value(mt.get(r)); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
				vs[m] = append(vs[m], v)
			}
		}
	}

	keys := make([]groupKey, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)

	out := make([]GroupStat, 0, len(keys)*len(a.metrics))
	for _, k := range keys {
		for m, mt := range a.metrics {
			vs := values[k][m]
			slices.Sort(vs)
			out = append(out, GroupStat{
				Sex:             k.sex,
				WeightClass:     k.weightClass,
				ExperienceLevel: k.experience,
				TenureBucket:    k.bucket,
				CompIndex:       k.comp,
				Metric:          mt.name,
				P25:             Quantile(vs, 0.25),
				Median:          Quantile(vs, 0.5),
				P75:             Quantile(vs, 0.75),
				SampleSize:      len(vs),
			})
		}
	}
	return out
}

func compareKeys(a, b groupKey) int {
	if c := cmp.Compare(a.sex, b.sex); c != 0 {
		return c
	}
	if c := cmp.Compare(a.weightClass, b.weightClass); c != 0 {
		return c
	}
	if c := cmp.Compare(a.experience, b.experience); c != 0 {
		return c
	}
	if c := cmp.Compare(bucketIndex(a.bucket), bucketIndex(b.bucket)); c != 0 {
		return c
	}
	return cmp.Compare(a.comp, b.comp)
}

func bucketIndex(label string) int {
	return slices.Index(tenureLabels, label)
}

// cohort reports whether a row has a known binary sex and weight class.
func cohort(r *model.FeatureRow) bool {
	return (r.SexCategory == "M" || r.SexCategory == "F") && r.IPFWeightClass != model.WeightClassUnknown
}
