// Package features builds the base table: one row per athlete and
// competition with longitudinal and competitive-context features.
package features

import (
	"context"
	"fmt"

	"github.com/okian/liftprogress/internal/domain/classify"
	"github.com/okian/liftprogress/internal/domain/elo"
	"github.com/okian/liftprogress/internal/domain/identity"
	"github.com/okian/liftprogress/internal/domain/model"
	"github.com/okian/liftprogress/internal/domain/timeline"
	"github.com/okian/liftprogress/pkg/logger"
)

// Default base stage configuration constants.
const (
	DefaultEvent               = "SBD"
	DefaultTested              = "Yes"
	DefaultEquipment           = "Raw"
	DefaultMinCompetitions     = 3
	DefaultMinDaysBetweenComps = 30
	DefaultRollingWindow       = 3
)

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithEventFilter keeps only rows of the given event, tested flag and
// equipment. Empty values keep the default.
func WithEventFilter(event, tested, equipment string) Option {
	return func(b *Builder) {
		if event != "" {
			b.event = event
		}
		if tested != "" {
			b.tested = tested
		}
		if equipment != "" {
			b.equipment = equipment
		}
	}
}

// WithDuplicateYearWindow sets the birth year window of duplicate identities.
func WithDuplicateYearWindow(years int) Option {
	return func(b *Builder) {
		if years >= 0 {
			b.yearWindow = years
		}
	}
}

// WithMinCompetitions drops athletes with fewer records.
func WithMinCompetitions(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.minComps = n
		}
	}
}

// WithMinDaysBetweenComps nulls progress rates over shorter gaps.
func WithMinDaysBetweenComps(days int) Option {
	return func(b *Builder) {
		if days >= 0 {
			b.minDays = days
		}
	}
}

// WithRollingWindow sets the rolling average window.
func WithRollingWindow(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.window = n
		}
	}
}

// WithRater sets the rating engine and the seed of each sweep's state.
func WithRater(r *elo.Rater, seed float64) Option {
	return func(b *Builder) {
		if r != nil {
			b.rater = r
		}
		if seed > 0 {
			b.seed = seed
		}
	}
}

// WithLogger sets the logger used for step summaries.
func WithLogger(l logger.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// Stats counts what the base stage kept and dropped.
type Stats struct {
	In                 int
	OtherEvents        int
	DuplicateIdentity  int
	DroppedKeys        []string
	FewCompetitions    int
	Out                int
	Athletes           int
	UnknownWeightClass int
}

// Builder runs the base stage.
type Builder struct {
	event, tested, equipment string
	yearWindow               int
	minComps                 int
	minDays                  int
	window                   int
	rater                    *elo.Rater
	seed                     float64
	log                      logger.Logger
}

// NewBuilder creates a Builder with configuration options.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		event:      DefaultEvent,
		tested:     DefaultTested,
		equipment:  DefaultEquipment,
		yearWindow: identity.DefaultDuplicateYearWindow,
		minComps:   DefaultMinCompetitions,
		minDays:    DefaultMinDaysBetweenComps,
		window:     DefaultRollingWindow,
		seed:       elo.DefaultSeedRating,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.rater == nil {
		b.rater = elo.NewRater()
	}
	return b
}

// Build turns the raw table into the base table.
func (b *Builder) Build(ctx context.Context, raw []model.RawRecord) ([]model.FeatureRow, Stats, error) {
	stats := Stats{In: len(raw)}

	events := make([]model.RawRecord, 0, len(raw))
	for _, r := range raw {
		if r.Event == b.event && r.Tested == b.tested && r.Equipment == b.equipment {
			events = append(events, r)
		}
	}
	stats.OtherEvents = len(raw) - len(events)

	resolved, dropped := identity.ResolveDuplicateIdentities(events, b.yearWindow)
	stats.DuplicateIdentity = len(events) - len(resolved)
	stats.DroppedKeys = dropped

	counts := make(map[string]int)
	for _, r := range resolved {
		counts[r.PrimaryKey]++
	}
	rows := make([]model.FeatureRow, 0, len(resolved))
	for _, r := range resolved {
		if counts[r.PrimaryKey] >= b.minComps {
			rows = append(rows, model.FeatureRow{RawRecord: r})
		}
	}
	stats.FewCompetitions = len(resolved) - len(rows)

	tl := timeline.Order(rows)
	b.addTemporal(tl)
	b.addContext(tl.Rows(), &stats)
	b.addStrength(tl)
	for _, c := range progressColumns {
		tl.ProgressRate(b.minDays, c.src, c.dst)
	}
	for _, c := range previousColumns {
		tl.Lag(c.src, c.dst)
	}
	for _, c := range laggedColumns {
		tl.Lag(c.src, c.dst)
	}

	out := tl.Rows()
	if err := b.addRatings(ctx, out); err != nil {
		return nil, stats, err
	}

	stats.Out = len(out)
	stats.Athletes = tl.Athletes()
	b.log.Info(ctx, "features built",
		logger.Int("rows_in", stats.In),
		logger.Int("other_events", stats.OtherEvents),
		logger.Int("duplicate_identity_rows", stats.DuplicateIdentity),
		logger.Int("duplicate_identity_keys", len(stats.DroppedKeys)),
		logger.Int("few_competitions", stats.FewCompetitions),
		logger.Int("unknown_weight_class", stats.UnknownWeightClass),
		logger.Int("rows_out", stats.Out),
		logger.Int("athletes", stats.Athletes),
	)
	return out, stats, nil
}

func (b *Builder) addTemporal(tl timeline.OrderedTimeline) {
	tl.TimeSinceLast()
	tl.CumulativeCount()
	tl.Tenure()
}

func (b *Builder) addContext(rows []model.FeatureRow, stats *Stats) {
	for i := range rows {
		r := &rows[i]
		r.MeetType = classify.ClassifyMeetTier(r.MeetName).String()
		r.IPFWeightClass = classify.ClassifyIPFWeightClass(r.SexCategory, r.Bodyweight)
		if r.IPFWeightClass == model.WeightClassUnknown {
			stats.UnknownWeightClass++
		}
		r.IsOriginCountry = r.MeetCountry == r.OriginCountry
	}
}

func (b *Builder) addStrength(tl timeline.OrderedTimeline) {
	tl.Change(
		func(r *model.FeatureRow) *float64 { return r.Bodyweight },
		func(r *model.FeatureRow, v *float64) { r.BodyweightChange = v },
	)

	rows := tl.Rows()
	for i := range rows {
		r := &rows[i]
		r.SquatRatio = model.Div(r.Squat, r.Total)
		r.BenchRatio = model.Div(r.Bench, r.Total)
		r.DeadliftRatio = model.Div(r.Deadlift, r.Total)
	}

	for _, c := range rollingColumns {
		tl.RollingAverage(b.window, c.src, c.dst)
	}

	for i := range rows {
		rows[i].TotalPerBodyweight = model.Div(rows[i].Total, rows[i].Bodyweight)
	}

	PercentileRank(rows, total, func(r *model.FeatureRow, v *float64) { r.TotalPercentileRank = v })
	SegmentMean(rows, total,
		func(r *model.FeatureRow, v *float64) { r.SegmentMeanTotal = v },
		func(r *model.FeatureRow, v *float64) { r.TotalVsSegmentMean = v },
	)
}

func (b *Builder) addRatings(ctx context.Context, rows []model.FeatureRow) error {
	competitors := make([]elo.Competitor, len(rows))
	for i := range rows {
		r := &rows[i]
		competitors[i] = elo.Competitor{
			PrimaryKey:  r.PrimaryKey,
			MeetName:    r.MeetName,
			Date:        r.Date,
			Sex:         r.SexCategory,
			WeightClass: r.IPFWeightClass,
			Tier:        classify.ParseTier(r.MeetType),
			Total:       r.Total,
		}
	}

	state, results, err := b.rater.Sweep(ctx, elo.NewState(b.seed), competitors)
	if err != nil {
		return fmt.Errorf("elo sweep: %w", err)
	}
	for i := range rows {
		rows[i].EloRating = results[i].PreMeetRating
		rows[i].EloChange = results[i].Change
		rows[i].MeetFieldElo = results[i].FieldAverage
	}
	b.log.Debug(ctx, "elo sweep finished", logger.Int("rated_athletes", state.Len()))
	return nil
}
