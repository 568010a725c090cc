package service

import (
	"context"
	"strings"
	"time"

	"github.com/okian/liftprogress/internal/adapters/ingest"
	"github.com/okian/liftprogress/internal/adapters/objectstore"
	"github.com/okian/liftprogress/internal/config"
	"github.com/okian/liftprogress/internal/domain/classify"
	"github.com/okian/liftprogress/internal/domain/elo"
	"github.com/okian/liftprogress/internal/domain/features"
	"github.com/okian/liftprogress/internal/domain/identity"
	"github.com/okian/liftprogress/pkg/logger"
	"github.com/okian/liftprogress/pkg/metrics"
)

// NewStore builds the object store selected by cfg.
func NewStore(ctx context.Context, cfg *config.Config) (objectstore.Store, error) {
	switch cfg.Store {
	case config.StoreFile:
		return objectstore.NewFileStore(cfg.StoreDir), nil
	case config.StoreMemory:
		return objectstore.NewMemoryStore(), nil
	default:
		return objectstore.NewS3Store(ctx, cfg.Bucket,
			objectstore.WithRegion(cfg.Region),
			objectstore.WithEndpoint(cfg.Endpoint),
			objectstore.WithPublicRead(cfg.PublicRead),
		)
	}
}

// FromConfig builds a Pipeline whose stages follow cfg.
func FromConfig(ctx context.Context, cfg *config.Config, store objectstore.Store, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	rater := elo.NewRater(
		elo.WithBaseK(cfg.EloBaseK),
		elo.WithTierMultipliers(tierMultipliers(ctx, cfg.EloTierMultipliers, log)),
		elo.WithWorkers(cfg.EloSegmentWorkers),
		elo.WithMeetHook(func(s elo.MeetSummary) {
			metrics.RecordEloMeet()
			metrics.RecordEloSegments(s.RatedSegments, s.SkippedSegments)
		}),
	)
	return NewPipeline(store,
		WithLogger(log),
		WithArchiveURL(cfg.ArchiveURL),
		WithDataDir(cfg.DataDir),
		WithFileName(cfg.FileName),
		WithKeepLocal(cfg.KeepLocal),
		WithFetcher(ingest.NewFetcher(ingest.WithTimeout(time.Duration(cfg.HTTPTimeoutSeconds)*time.Second))),
		WithResolver(identity.NewResolver(
			identity.WithAgeTolerance(cfg.AgeToleranceYears),
			identity.WithLogger(log.Named("identity")),
		)),
		WithBuilder(features.NewBuilder(
			features.WithEventFilter(cfg.Event, cfg.Tested, cfg.Equipment),
			features.WithDuplicateYearWindow(cfg.DuplicateNameYearWindow),
			features.WithMinCompetitions(cfg.MinCompetitions),
			features.WithMinDaysBetweenComps(cfg.MinDaysBetweenComps),
			features.WithRollingWindow(cfg.RollingWindow),
			features.WithRater(rater, cfg.EloSeedRating),
			features.WithLogger(log.Named("features")),
		)),
	)
}

// tierMultipliers maps configured tier labels to tiers, skipping labels
// that name no tier.
func tierMultipliers(ctx context.Context, m map[string]float64, log logger.Logger) map[classify.Tier]float64 {
	out := make(map[classify.Tier]float64, len(m))
	for label, v := range m {
		tier := classify.ParseTier(label)
		if tier.String() != strings.ToLower(strings.TrimSpace(label)) {
			log.Warn(ctx, "ignoring unknown meet tier", logger.String("tier", label))
			continue
		}
		out[tier] = v
	}
	return out
}
