// Package timeline orders competition rows per athlete and computes the
// features defined over that order. Every feature is partitioned by primary
// key and never reads a neighbouring athlete's rows.
package timeline

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/okian/liftprogress/internal/domain/model"
)

// DaysInYear converts day gaps to years.
const DaysInYear = 365.25

// Getter reads a nullable metric from a row.
type Getter func(r *model.FeatureRow) *float64

// Setter writes a nullable feature to a row.
type Setter func(r *model.FeatureRow, v *float64)

// OrderedTimeline is a table sorted by (primary key, date) with its athlete
// partitions. Order is the only constructor.
type OrderedTimeline struct {
	rows   []model.FeatureRow
	starts []int
}

// Order copies rows, stable-sorts them by (primary key, date) and records
// where each athlete's partition starts.
func Order(rows []model.FeatureRow) OrderedTimeline {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b model.FeatureRow) int {
		if c := cmp.Compare(a.PrimaryKey, b.PrimaryKey); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})

	var starts []int
	for i := range sorted {
		if i == 0 || sorted[i].PrimaryKey != sorted[i-1].PrimaryKey {
			starts = append(starts, i)
		}
	}
	return OrderedTimeline{rows: sorted, starts: starts}
}

// Rows returns the ordered rows. Features written through the timeline are
// visible here.
func (t OrderedTimeline) Rows() []model.FeatureRow { return t.rows }

// Len returns the number of rows.
func (t OrderedTimeline) Len() int { return len(t.rows) }

// Athletes returns the number of partitions.
func (t OrderedTimeline) Athletes() int { return len(t.starts) }

// Each calls fn with every athlete's partition in key order.
func (t OrderedTimeline) Each(fn func(part []model.FeatureRow)) {
	for i, s := range t.starts {
		end := len(t.rows)
		if i+1 < len(t.starts) {
			end = t.starts[i+1]
		}
		fn(t.rows[s:end])
	}
}

// TimeSinceLast sets the day and year gap to the previous competition. The
// first row of every athlete stays nil.
func (t OrderedTimeline) TimeSinceLast() {
	t.Each(func(part []model.FeatureRow) {
		for i := range part {
			if i == 0 {
				part[i].TimeSinceLastCompDays = nil
				part[i].TimeSinceLastCompYears = nil
				continue
			}
			days := daysBetween(part[i-1].Date, part[i].Date)
			part[i].TimeSinceLastCompDays = model.Int(days)
			part[i].TimeSinceLastCompYears = model.Float(float64(days) / DaysInYear)
		}
	})
}

func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}

// CumulativeCount numbers each athlete's competitions from 1.
func (t OrderedTimeline) CumulativeCount() {
	t.Each(func(part []model.FeatureRow) {
		for i := range part {
			part[i].CumulativeComps = i + 1
		}
	})
}

// Tenure sets the days elapsed since the athlete's first competition.
func (t OrderedTimeline) Tenure() {
	t.Each(func(part []model.FeatureRow) {
		for i := range part {
			part[i].TenureDays = daysBetween(part[0].Date, part[i].Date)
		}
	})
}

// Lag sets each row to the previous row's metric. First rows get nil.
func (t OrderedTimeline) Lag(get Getter, set Setter) {
	t.Each(func(part []model.FeatureRow) {
		for i := len(part) - 1; i >= 0; i-- {
			if i == 0 {
				set(&part[i], nil)
				continue
			}
			set(&part[i], copyOf(get(&part[i-1])))
		}
	})
}

// Change sets each row to its metric minus the previous row's.
func (t OrderedTimeline) Change(get Getter, set Setter) {
	t.Each(func(part []model.FeatureRow) {
		for i := len(part) - 1; i >= 0; i-- {
			if i == 0 {
				set(&part[i], nil)
				continue
			}
			set(&part[i], model.Sub(get(&part[i]), get(&part[i-1])))
		}
	})
}

// RollingAverage sets the trailing mean of the last window rows. A window
// with fewer rows or any nil value yields nil.
func (t OrderedTimeline) RollingAverage(window int, get Getter, set Setter) {
	if window < 1 {
		return
	}
	t.Each(func(part []model.FeatureRow) {
		vals := make([]*float64, len(part))
		for i := range part {
			vals[i] = get(&part[i])
		}
		for i := range part {
			set(&part[i], trailingMean(vals, i, window))
		}
	})
}

func trailingMean(vals []*float64, end, window int) *float64 {
	if end+1 < window {
		return nil
	}
	var sum float64
	for _, v := range vals[end+1-window : end+1] {
		if v == nil {
			return nil
		}
		sum += *v
	}
	return model.Float(sum / float64(window))
}

// ProgressRate sets the change of a metric per year since the previous
// competition. It reads the gap written by TimeSinceLast and yields nil on
// first rows, missing values, and gaps shorter than minDays.
func (t OrderedTimeline) ProgressRate(minDays int, get Getter, set Setter) {
	t.Each(func(part []model.FeatureRow) {
		for i := len(part) - 1; i >= 0; i-- {
			r := &part[i]
			if i == 0 || r.TimeSinceLastCompDays == nil || *r.TimeSinceLastCompDays < minDays {
				set(r, nil)
				continue
			}
			set(r, model.Div(model.Sub(get(r), get(&part[i-1])), r.TimeSinceLastCompYears))
		}
	})
}

func copyOf(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return model.Float(*p)
}
