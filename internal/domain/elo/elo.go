// Package elo computes the meet-by-meet skill rating. A sweep folds over
// meets in date order; within a meet every (sex, weight class) segment is
// rated against its own field average.
package elo

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/liftprogress/internal/domain/classify"
)

// Default rating configuration constants.
const (
	DefaultBaseK   = 32.0
	defaultWorkers = 4
	minSegmentSize = 2
)

// DefaultTierMultipliers scales K by meet tier.
func DefaultTierMultipliers() map[classify.Tier]float64 {
	return map[classify.Tier]float64{
		classify.International: 2.0,
		classify.National:      1.5,
		classify.State:         1.25,
		classify.Local:         1.0,
	}
}

// Competitor is one row of the table entering the sweep.
type Competitor struct {
	PrimaryKey  string
	MeetName    string
	Date        time.Time
	Sex         string
	WeightClass string
	Tier        classify.Tier
	Total       *float64
}

// Result is the rating output for the competitor at the same index.
// Change is nil when the row's segment was not rated.
type Result struct {
	PreMeetRating float64
	Change        *float64
	FieldAverage  float64
}

// MeetSummary describes one processed meet.
type MeetSummary struct {
	MeetName        string
	Date            time.Time
	Rows            int
	RatedSegments   int
	SkippedSegments int
}

// Option applies a configuration option to the Rater.
type Option func(*Rater)

// WithBaseK sets the K factor before the tier multiplier.
func WithBaseK(k float64) Option {
	return func(r *Rater) {
		if k > 0 {
			r.baseK = k
		}
	}
}

// WithTierMultipliers sets the K multiplier per meet tier. Tiers missing
// from m keep a multiplier of 1.
func WithTierMultipliers(m map[classify.Tier]float64) Option {
	return func(r *Rater) {
		r.multipliers = make(map[classify.Tier]float64, len(m))
		for tier, v := range m {
			if v > 0 {
				r.multipliers[tier] = v
			}
		}
	}
}

// WithWorkers bounds how many segments of one meet are computed at once.
func WithWorkers(n int) Option {
	return func(r *Rater) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithMeetHook registers fn to be called after every meet is applied.
func WithMeetHook(fn func(MeetSummary)) Option {
	return func(r *Rater) {
		r.hook = fn
	}
}

// Rater runs rating sweeps.
type Rater struct {
	baseK       float64
	multipliers map[classify.Tier]float64
	workers     int
	hook        func(MeetSummary)
}

// NewRater creates a Rater with configuration options.
func NewRater(opts ...Option) *Rater {
	r := &Rater{
		baseK:       DefaultBaseK,
		multipliers: DefaultTierMultipliers(),
		workers:     defaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// K returns the K factor for a meet tier.
func (r *Rater) K(tier classify.Tier) float64 {
	m, ok := r.multipliers[tier]
	if !ok {
		m = 1
	}
	return r.baseK * m
}

type meetKey struct {
	name string
	date time.Time
}

// Sweep rates every competitor, meet by meet in ascending date order with the
// meet name breaking ties. A nil state starts from DefaultSeedRating. The
// returned results line up with competitors by index, and the returned state
// holds the ratings after the last meet.
func (r *Rater) Sweep(ctx context.Context, state *State, competitors []Competitor) (*State, []Result, error) {
	if state == nil {
		state = NewState(DefaultSeedRating)
	}

	meets := make(map[meetKey][]int)
	for i, c := range competitors {
		k := meetKey{name: c.MeetName, date: day(c.Date)}
		meets[k] = append(meets[k], i)
	}
	keys := make([]meetKey, 0, len(meets))
	for k := range meets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b meetKey) int {
		if c := a.date.Compare(b.date); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	results := make([]Result, len(competitors))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return state, nil, fmt.Errorf("rating sweep cancelled: %w", err)
		}
		idx := meets[k]
		meet := make([]Competitor, len(idx))
		for j, i := range idx {
			meet[j] = competitors[i]
		}
		out, summary, err := r.ProcessMeet(ctx, state, meet)
		if err != nil {
			return state, nil, err
		}
		for j, i := range idx {
			results[i] = out[j]
		}
		if r.hook != nil {
			r.hook(summary)
		}
	}
	return state, results, nil
}

type segmentKey struct {
	sex         string
	weightClass string
}

// ProcessMeet rates one meet against state and then applies the rating
// changes to it. Segments are computed concurrently against the ratings as
// they were before the meet; the updates are applied after all segments
// finish, in segment order.
func (r *Rater) ProcessMeet(ctx context.Context, state *State, meet []Competitor) ([]Result, MeetSummary, error) {
	summary := MeetSummary{Rows: len(meet)}
	if len(meet) > 0 {
		summary.MeetName = meet[0].MeetName
		summary.Date = day(meet[0].Date)
	}

	segments := make(map[segmentKey][]int)
	for i, c := range meet {
		k := segmentKey{sex: c.Sex, weightClass: c.WeightClass}
		segments[k] = append(segments[k], i)
	}
	keys := make([]segmentKey, 0, len(segments))
	for k := range segments {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b segmentKey) int {
		if c := cmp.Compare(a.sex, b.sex); c != 0 {
			return c
		}
		return cmp.Compare(a.weightClass, b.weightClass)
	})

	results := make([]Result, len(meet))
	updates := make([][]update, len(keys))
	rated := make([]bool, len(keys))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for s, k := range keys {
		idx := segments[k]
		g.Go(func() error {
			updates[s], rated[s] = r.rateSegment(state, meet, idx, results)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, summary, err
	}

	for s := range keys {
		if rated[s] {
			summary.RatedSegments++
		} else {
			summary.SkippedSegments++
		}
		state.apply(updates[s])
	}
	return results, summary, nil
}

// rateSegment writes the results of the rows at idx and returns their rating
// changes. It only reads state. Rows without a total, and every row of a
// segment with fewer than two totals, keep their current rating.
func (r *Rater) rateSegment(state *State, meet []Competitor, idx []int, results []Result) ([]update, bool) {
	var field []int
	for _, i := range idx {
		if meet[i].Total != nil && !math.IsNaN(*meet[i].Total) {
			field = append(field, i)
		}
	}
	if len(field) < minSegmentSize {
		for _, i := range idx {
			rating := state.Rating(meet[i].PrimaryKey)
			results[i] = Result{PreMeetRating: rating, FieldAverage: rating}
		}
		return nil, false
	}

	var sum float64
	for _, i := range field {
		sum += state.Rating(meet[i].PrimaryKey)
	}
	avg := sum / float64(len(field))

	totals := make([]float64, len(field))
	for j, i := range field {
		totals[j] = *meet[i].Total
	}
	actual := ActualScores(totals)
	k := r.K(meet[field[0]].Tier)

	updates := make([]update, 0, len(field))
	inField := make(map[int]struct{}, len(field))
	for j, i := range field {
		inField[i] = struct{}{}
		pre := state.Rating(meet[i].PrimaryKey)
		change := k * (actual[j] - ExpectedScore(pre, avg))
		results[i] = Result{PreMeetRating: pre, Change: &change, FieldAverage: avg}
		updates = append(updates, update{key: meet[i].PrimaryKey, change: change})
	}
	for _, i := range idx {
		if _, ok := inField[i]; ok {
			continue
		}
		rating := state.Rating(meet[i].PrimaryKey)
		results[i] = Result{PreMeetRating: rating, FieldAverage: rating}
	}
	return updates, true
}

// ExpectedScore is the logistic expectation of a rating against a field
// average.
func ExpectedScore(rating, fieldAverage float64) float64 {
	return 1 / (1 + math.Pow(10, (fieldAverage-rating)/400))
}

// ActualScores maps totals to scores in [0,1] by ascending rank: the lowest
// total scores 0 and the highest 1. Tied totals share their mean position.
// At least two totals are required.
func ActualScores(totals []float64) []float64 {
	n := len(totals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(totals[a], totals[b]) })

	scores := make([]float64, n)
	for start := 0; start < n; {
		end := start
		for end+1 < n && totals[order[end+1]] == totals[order[start]] {
			end++
		}
		pos := float64(start+end) / 2
		for p := start; p <= end; p++ {
			scores[order[p]] = pos / float64(n-1)
		}
		start = end + 1
	}
	return scores
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
