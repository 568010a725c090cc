// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and POWERLIFT_ env vars on top of the defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
)

// Stage names accepted in Config.Stages.
const (
	StageIngest   = "ingest"
	StageRaw      = "raw"
	StageBase     = "base"
	StageDescribe = "describe"
	StageAnalyses = "analyses"
)

// Store backends accepted in Config.Store.
const (
	StoreS3     = "s3"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// DefaultArchiveURL is the published OpenPowerlifting bulk export.
const DefaultArchiveURL = "https://openpowerlifting.gitlab.io/opl-csv/files/openpowerlifting-latest.zip"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// ArchiveURL is the zip downloaded by the ingest stage.
	ArchiveURL string `koanf:"archive_url"`

	// HTTPTimeoutSeconds bounds the archive download.
	HTTPTimeoutSeconds int `koanf:"http_timeout_seconds"`

	// DataDir is the local root for columnar files, one sub-directory per layer.
	DataDir string `koanf:"data_dir"`

	// FileName is the columnar file name shared by the landing, raw and base layers.
	FileName string `koanf:"file_name"`

	// KeepLocal keeps local files after they are uploaded.
	KeepLocal bool `koanf:"keep_local"`

	// Store selects the object store backend: s3, file or memory.
	Store string `koanf:"store"`

	// StoreDir is the root directory of the file store.
	StoreDir string `koanf:"store_dir"`

	// Bucket, Region and Endpoint configure the S3 store. Endpoint is optional
	// and switches the client to path-style addressing.
	Bucket   string `koanf:"bucket"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`

	// PublicRead uploads objects with the public-read canned ACL.
	PublicRead bool `koanf:"public_read"`

	// Stages lists the stages to run, in order.
	Stages []string `koanf:"stages"`

	// Event, Tested and Equipment select the rows kept by the base stage.
	Event     string `koanf:"event"`
	Tested    string `koanf:"tested"`
	Equipment string `koanf:"equipment"`

	// AgeToleranceYears widens the birth year bounds around the reported age.
	AgeToleranceYears float64 `koanf:"age_tolerance_years"`

	// DuplicateNameYearWindow is the birth year distance under which two keys
	// with the same name are treated as one athlete.
	DuplicateNameYearWindow int `koanf:"duplicate_name_year_window"`

	// MinCompetitions drops athletes with fewer records from the base stage.
	MinCompetitions int `koanf:"min_competitions"`

	// MinDaysBetweenComps nulls progress rates for shorter gaps.
	MinDaysBetweenComps int `koanf:"min_days_between_comps"`

	// RollingWindow is the trailing window of the rolling averages.
	RollingWindow int `koanf:"rolling_window"`

	// EloSeedRating is the rating of an athlete on first appearance.
	EloSeedRating float64 `koanf:"elo_seed_rating"`

	// EloBaseK is multiplied by the meet tier multiplier to get K.
	EloBaseK float64 `koanf:"elo_base_k"`

	// EloTierMultipliers maps meet tiers to K multipliers.
	EloTierMultipliers map[string]float64 `koanf:"elo_tier_multipliers"`

	// EloSegmentWorkers bounds the per-meet segment fan-out.
	EloSegmentWorkers int `koanf:"elo_segment_workers"`

	// MetricsTextfile, when set, receives the Prometheus exposition at exit.
	MetricsTextfile string `koanf:"metrics_textfile"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		ArchiveURL:              DefaultArchiveURL,
		HTTPTimeoutSeconds:      300,
		DataDir:                 "data",
		FileName:                "openpowerlifting-latest.parquet",
		Store:                   StoreS3,
		StoreDir:                "store",
		Bucket:                  "powerlifting-ml-progress",
		Region:                  "ap-southeast-2",
		PublicRead:              true,
		Stages:                  []string{StageIngest, StageRaw, StageBase, StageDescribe, StageAnalyses},
		Event:                   "SBD",
		Tested:                  "Yes",
		Equipment:               "Raw",
		AgeToleranceYears:       2,
		DuplicateNameYearWindow: 3,
		MinCompetitions:         3,
		MinDaysBetweenComps:     30,
		RollingWindow:           3,
		EloSeedRating:           1500,
		EloBaseK:                32,
		EloTierMultipliers: map[string]float64{
			"international": 2.0,
			"national":      1.5,
			"state":         1.25,
			"local":         1.0,
		},
		EloSegmentWorkers: runtime.NumCPU(),
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreS3, StoreFile, StoreMemory:
	default:
		return invalid("unknown store %q", c.Store)
	}
	if c.Store == StoreS3 && c.Bucket == "" {
		return invalid("bucket must not be empty for the s3 store")
	}
	if len(c.Stages) == 0 {
		return invalid("stages must not be empty")
	}
	known := []string{StageIngest, StageRaw, StageBase, StageDescribe, StageAnalyses}
	for _, s := range c.Stages {
		if !slices.Contains(known, strings.TrimSpace(s)) {
			return invalid("unknown stage %q", s)
		}
	}
	if slices.Contains(c.Stages, StageIngest) && c.ArchiveURL == "" {
		return invalid("archive_url must not be empty")
	}
	if c.FileName == "" {
		return invalid("file_name must not be empty")
	}
	if c.AgeToleranceYears < 0 {
		return invalid("age_tolerance_years must not be negative")
	}
	if c.DuplicateNameYearWindow < 0 {
		return invalid("duplicate_name_year_window must not be negative")
	}
	if c.MinCompetitions < 1 || c.RollingWindow < 1 {
		return invalid("min_competitions and rolling_window must be positive")
	}
	if c.EloSeedRating <= 0 || c.EloBaseK <= 0 {
		return invalid("elo_seed_rating and elo_base_k must be positive")
	}
	if c.EloSegmentWorkers < 1 {
		return invalid("elo_segment_workers must be positive")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
