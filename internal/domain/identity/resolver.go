package identity

import (
	"context"
	"strings"

	"github.com/okian/liftprogress/internal/domain/model"
	"github.com/okian/liftprogress/pkg/logger"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithAgeTolerance sets the birth year tolerance in years.
func WithAgeTolerance(years float64) Option {
	return func(r *Resolver) {
		if years >= 0 {
			r.tolerance = years
		}
	}
}

// WithLogger sets the logger used for step summaries.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// Stats counts what the raw stage kept and dropped.
type Stats struct {
	In           int
	InvalidPlace int
	Undated      int
	Duplicates   int
	UnknownSex   int
	Out          int
	Identities   int
}

// Resolver runs the raw stage: it cleans rows, derives identities,
// deduplicates and attaches origin countries.
type Resolver struct {
	tolerance float64
	log       logger.Logger
}

// NewResolver creates a Resolver with configuration options.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{tolerance: DefaultAgeToleranceYears, log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve turns ingested records into the raw table. Row problems are
// filtered and counted; only invariant violations return an error.
func (r *Resolver) Resolve(ctx context.Context, records []model.CompetitionRecord) ([]model.RawRecord, Stats, error) {
	stats := Stats{In: len(records)}

	valid := FilterValidRows(records)
	stats.InvalidPlace = len(records) - len(valid)

	annotated := make([]model.RawRecord, 0, len(valid))
	for _, rec := range valid {
		if rec.Date.IsZero() {
			stats.Undated++
			continue
		}
		row := model.RawRecord{CompetitionRecord: rec, EventYear: rec.Date.Year()}
		row.SexCategory = strings.TrimSpace(rec.Sex)
		if row.SexCategory == "" {
			row.SexCategory = model.SexUnknown
			stats.UnknownSex++
		}
		row.YearOfBirth = EstimateYearOfBirth(row.EventYear, rec.Age, r.tolerance)
		row.PrimaryKey = BuildPrimaryKey(rec.Name, row.SexCategory, row.YearOfBirth)
		annotated = append(annotated, row)
	}

	deduped := Deduplicate(ctx, annotated)
	stats.Duplicates = len(annotated) - len(deduped)

	out := AssignOriginCountry(deduped)
	if err := CheckRowCount("join", len(deduped), len(out)); err != nil {
		return nil, stats, err
	}
	if err := CheckOriginCountry(out); err != nil {
		return nil, stats, err
	}

	stats.Out = len(out)
	stats.Identities = countKeys(out)

	r.log.Info(ctx, "identities resolved",
		logger.Int("rows_in", stats.In),
		logger.Int("invalid_place", stats.InvalidPlace),
		logger.Int("undated", stats.Undated),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("unknown_sex", stats.UnknownSex),
		logger.Int("rows_out", stats.Out),
		logger.Int("identities", stats.Identities),
	)
	return out, stats, nil
}

func countKeys(records []model.RawRecord) int {
	n := 0
	for i := range records {
		if i == 0 || records[i].PrimaryKey != records[i-1].PrimaryKey {
			n++
		}
	}
	return n
}
