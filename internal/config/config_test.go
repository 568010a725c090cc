package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/liftprogress/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the pipeline defaults", func() {
			convey.So(cfg.ArchiveURL, convey.ShouldEqual, config.DefaultArchiveURL)
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreS3)
			convey.So(cfg.Bucket, convey.ShouldEqual, "powerlifting-ml-progress")
			convey.So(cfg.Stages, convey.ShouldResemble, []string{"ingest", "raw", "base", "describe", "analyses"})
			convey.So(cfg.AgeToleranceYears, convey.ShouldEqual, 2)
			convey.So(cfg.DuplicateNameYearWindow, convey.ShouldEqual, 3)
			convey.So(cfg.MinDaysBetweenComps, convey.ShouldEqual, 30)
			convey.So(cfg.RollingWindow, convey.ShouldEqual, 3)
			convey.So(cfg.EloSeedRating, convey.ShouldEqual, 1500)
			convey.So(cfg.EloBaseK, convey.ShouldEqual, 32)
			convey.So(cfg.EloTierMultipliers["international"], convey.ShouldEqual, 2.0)
			convey.So(cfg.EloSegmentWorkers, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(c *config.Config){
			"unknown store":      func(c *config.Config) { c.Store = "ftp" },
			"empty bucket":       func(c *config.Config) { c.Bucket = "" },
			"unknown stage":      func(c *config.Config) { c.Stages = []string{"raw", "train"} },
			"no stages":          func(c *config.Config) { c.Stages = nil },
			"empty archive":      func(c *config.Config) { c.ArchiveURL = "" },
			"zero window":        func(c *config.Config) { c.RollingWindow = 0 },
			"negative tolerance": func(c *config.Config) { c.AgeToleranceYears = -1 },
			"zero k":             func(c *config.Config) { c.EloBaseK = 0 },
			"zero workers":       func(c *config.Config) { c.EloSegmentWorkers = 0 },
		}

		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("An empty archive is fine when ingest does not run", func() {
			cfg := config.New()
			cfg.ArchiveURL = ""
			cfg.Stages = []string{"raw", "base"}
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
