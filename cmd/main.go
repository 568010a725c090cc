package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	app "github.com/okian/liftprogress/internal/app"
	"github.com/okian/liftprogress/internal/config"
	"github.com/okian/liftprogress/pkg/logger"
	"github.com/okian/liftprogress/pkg/metrics"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	err = run(ctx, cfg, loggerInstance)
	writeMetrics(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Fatal(ctx, "pipeline failed", logger.Error(err))
	}
	loggerInstance.Info(ctx, "pipeline finished")
}

// run builds the store and pipeline from cfg and runs the configured stages.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := app.NewStore(ctx, cfg)
	if err != nil {
		return err
	}
	p := app.FromConfig(ctx, cfg, store, log.Named("pipeline"))
	log.Info(ctx, "pipeline starting",
		logger.String("run_id", p.RunID()),
		logger.String("stages", strings.Join(cfg.Stages, ",")),
		logger.String("store", cfg.Store),
	)
	return p.Run(ctx, cfg.Stages...)
}

// writeMetrics dumps the registry for the textfile collector, if configured.
func writeMetrics(ctx context.Context, cfg *config.Config, log logger.Logger) {
	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		log.Warn(ctx, "metrics textfile not written", logger.String("path", cfg.MetricsTextfile), logger.Error(err))
	}
}
