// Package service runs the batch pipeline: it wires the ingest, identity,
// feature and summary stages to the columnar codec and the object store.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/okian/liftprogress/internal/adapters/columnar"
	"github.com/okian/liftprogress/internal/adapters/ingest"
	"github.com/okian/liftprogress/internal/adapters/objectstore"
	"github.com/okian/liftprogress/internal/config"
	"github.com/okian/liftprogress/internal/domain/features"
	"github.com/okian/liftprogress/internal/domain/identity"
	"github.com/okian/liftprogress/internal/domain/summary"
	"github.com/okian/liftprogress/pkg/logger"
	"github.com/okian/liftprogress/pkg/metrics"
)

// Object store layers.
const (
	LayerLanding = "landing"
	LayerRaw     = "raw"
	LayerBase    = "base"
	layerExtract = "extract"
)

const (
	defaultFileName     = "openpowerlifting-latest.parquet"
	defaultDataDir      = "data"
	qualityFile         = summary.DescribeQuality + ".parquet"
	milestoneFile       = "analysis_milestone_survival.parquet"
	analysisFilePrefix  = "analysis_"
	parquetExt          = ".parquet"
	defaultArchiveFile  = "openpowerlifting-latest.zip"
	defaultHTTPTimeout  = 5 * time.Minute
	stageLogDurationKey = "duration"
)

// Pipeline runs the stages of one batch.
type Pipeline struct {
	store    objectstore.Store
	fetcher  *ingest.Fetcher
	resolver *identity.Resolver
	builder  *features.Builder

	archiveURL string
	dataDir    string
	fileName   string
	keepLocal  bool
	runID      string

	log logger.Logger
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithFetcher sets the archive downloader.
func WithFetcher(f *ingest.Fetcher) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.fetcher = f
		}
	}
}

// WithResolver sets the raw stage.
func WithResolver(r *identity.Resolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithBuilder sets the base stage.
func WithBuilder(b *features.Builder) Option {
	return func(p *Pipeline) {
		if b != nil {
			p.builder = b
		}
	}
}

// WithArchiveURL sets the zip downloaded by the ingest stage.
func WithArchiveURL(url string) Option {
	return func(p *Pipeline) {
		if url != "" {
			p.archiveURL = url
		}
	}
}

// WithDataDir sets the local root for columnar files.
func WithDataDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.dataDir = dir
		}
	}
}

// WithFileName sets the file name of the landing, raw and base layers.
func WithFileName(name string) Option {
	return func(p *Pipeline) {
		if name != "" {
			p.fileName = name
		}
	}
}

// WithKeepLocal keeps local files after upload.
func WithKeepLocal(keep bool) Option {
	return func(p *Pipeline) {
		p.keepLocal = keep
	}
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.runID = id
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPipeline constructs a Pipeline publishing to store.
func NewPipeline(store objectstore.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		archiveURL: config.DefaultArchiveURL,
		dataDir:    defaultDataDir,
		fileName:   defaultFileName,
		runID:      uuid.NewString(),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = ingest.NewFetcher(ingest.WithTimeout(defaultHTTPTimeout))
	}
	if p.resolver == nil {
		p.resolver = identity.NewResolver(identity.WithLogger(p.log))
	}
	if p.builder == nil {
		p.builder = features.NewBuilder(features.WithLogger(p.log))
	}
	return p
}

// RunID returns the id attached to this pipeline's logs and uploads.
func (p *Pipeline) RunID() string { return p.runID }

// Run executes stages in order. The first failing stage stops the run.
func (p *Pipeline) Run(ctx context.Context, stages ...string) error {
	ctx = objectstore.WithRunID(ctx, p.runID)
	log := p.log.With(logger.String("run_id", p.runID))

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Info(ctx, "stage started", logger.String("stage", stage))
		start := time.Now()
		err := p.runStage(ctx, stage)
		elapsed := time.Since(start)
		metrics.ObserveStageDuration(stage, elapsed.Seconds())
		if err != nil {
			metrics.RecordStageFailure(stage)
			var ie *identity.InvariantError
			if errors.As(err, &ie) {
				metrics.RecordInvariantViolation(ie.Check)
			}
			log.Error(ctx, "stage failed", logger.String("stage", stage), logger.Error(err))
			return fmt.Errorf("stage %s: %w", stage, err)
		}
		log.Info(ctx, "stage finished", logger.String("stage", stage), logger.Duration(stageLogDurationKey, elapsed))
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, stage string) error {
	switch stage {
	case config.StageIngest:
		return p.ingest(ctx)
	case config.StageRaw:
		return p.raw(ctx)
	case config.StageBase:
		return p.base(ctx)
	case config.StageDescribe:
		return p.describe(ctx)
	case config.StageAnalyses:
		return p.analyses(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
}

func (p *Pipeline) ingest(ctx context.Context) error {
	name := path.Base(p.archiveURL)
	if name == "." || name == "/" {
		name = defaultArchiveFile
	}
	dir := filepath.Join(p.dataDir, layerExtract)
	archivePath := filepath.Join(dir, name)
	if !p.keepLocal {
		defer os.RemoveAll(dir)
	}

	n, err := p.fetcher.Download(ctx, p.archiveURL, archivePath)
	if err != nil {
		return err
	}
	p.log.Info(ctx, "archive downloaded", logger.String("url", p.archiveURL), logger.Int64("bytes", n))

	archive, err := ingest.OpenArchive(archivePath)
	if err != nil {
		return err
	}
	defer archive.Close()

	csvName, rc, err := archive.ExtractCSV()
	if err != nil {
		return err
	}
	defer rc.Close()

	records, err := ingest.Decode(rc)
	if err != nil {
		return fmt.Errorf("decode %s: %w", csvName, err)
	}
	metrics.SetStageRows(config.StageIngest, len(records), len(records))
	p.log.Info(ctx, "csv decoded", logger.String("file", csvName), logger.Int("rows", len(records)))

	return publish(ctx, p, LayerLanding, p.fileName, columnar.FromRecords(records))
}

func (p *Pipeline) raw(ctx context.Context) error {
	rows, err := load[columnar.LandingRow](ctx, p, LayerLanding, p.fileName)
	if err != nil {
		return err
	}
	out, stats, err := p.resolver.Resolve(ctx, columnar.ToRecords(rows))
	if err != nil {
		return err
	}
	metrics.SetStageRows(config.StageRaw, stats.In, stats.Out)
	metrics.RecordRowsDropped(config.StageRaw, "invalid_place", stats.InvalidPlace)
	metrics.RecordRowsDropped(config.StageRaw, "undated", stats.Undated)
	metrics.RecordRowsDropped(config.StageRaw, "duplicate", stats.Duplicates)
	metrics.UpdateIdentities(stats.Identities)

	return publish(ctx, p, LayerRaw, p.fileName, columnar.FromRaw(out))
}

func (p *Pipeline) base(ctx context.Context) error {
	rows, err := load[columnar.RawRow](ctx, p, LayerRaw, p.fileName)
	if err != nil {
		return err
	}
	out, stats, err := p.builder.Build(ctx, columnar.ToRaw(rows))
	if err != nil {
		return err
	}
	metrics.SetStageRows(config.StageBase, stats.In, stats.Out)
	metrics.RecordRowsDropped(config.StageBase, "other_events", stats.OtherEvents)
	metrics.RecordRowsDropped(config.StageBase, "duplicate_identity", stats.DuplicateIdentity)
	metrics.RecordRowsDropped(config.StageBase, "few_competitions", stats.FewCompetitions)
	metrics.RecordIdentityCollisions(len(stats.DroppedKeys))

	return publish(ctx, p, LayerBase, p.fileName, columnar.FromFeatures(out))
}

func (p *Pipeline) describe(ctx context.Context) error {
	rows, err := load[columnar.BaseRow](ctx, p, LayerBase, p.fileName)
	if err != nil {
		return err
	}
	base := columnar.ToFeatures(rows)

	out := 0
	for _, t := range summary.Describe(base) {
		if err := publish(ctx, p, LayerBase, t.Name+parquetExt, columnar.FromStats(t.Rows)); err != nil {
			return err
		}
		out += len(t.Rows)
	}
	quality := summary.DataQuality(base)
	if err := publish(ctx, p, LayerBase, qualityFile, columnar.FromQuality(quality)); err != nil {
		return err
	}
	metrics.SetStageRows(config.StageDescribe, len(base), out+len(quality))
	return nil
}

func (p *Pipeline) analyses(ctx context.Context) error {
	rows, err := load[columnar.BaseRow](ctx, p, LayerBase, p.fileName)
	if err != nil {
		return err
	}
	base := columnar.ToFeatures(rows)

	out := 0
	for _, t := range summary.Analyses(base) {
		if err := publish(ctx, p, LayerBase, analysisFilePrefix+t.Name+parquetExt, columnar.FromStats(t.Rows)); err != nil {
			return err
		}
		out += len(t.Rows)
	}
	milestones := summary.MilestoneSurvival(base, summary.DefaultMilestones())
	if err := publish(ctx, p, LayerBase, milestoneFile, columnar.FromMilestones(milestones)); err != nil {
		return err
	}
	metrics.SetStageRows(config.StageAnalyses, len(base), out+len(milestones))
	return nil
}

// publish writes rows to the local layer directory, uploads the file and
// removes the local copy unless it is kept.
func publish[T any](ctx context.Context, p *Pipeline, layer, file string, rows []T) error {
	local := filepath.Join(p.dataDir, layer, file)
	b, err := columnar.WriteFile(local, rows)
	if err != nil {
		return err
	}
	key := objectstore.Key(layer, file)
	if err := p.store.Put(ctx, key, b); err != nil {
		return err
	}
	metrics.RecordStoreWrite(layer, len(b))
	p.log.Info(ctx, "layer published", logger.String("key", key), logger.Int("rows", len(rows)), logger.Int("bytes", len(b)))

	if !p.keepLocal {
		if err := os.Remove(local); err != nil {
			p.log.Warn(ctx, "local cleanup failed", logger.String("path", local), logger.Error(err))
		}
	}
	return nil
}

func load[T any](ctx context.Context, p *Pipeline, layer, file string) ([]T, error) {
	key := objectstore.Key(layer, file)
	b, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return columnar.Decode[T](b)
}
