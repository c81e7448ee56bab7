package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/pgnscraper/internal/model"
	"github.com/nao1215/pgnscraper/internal/report"
)

// CancelledReason is recorded for seeds that were never started.
const CancelledReason = "cancelled"

// Driver processes seeds sequentially and persists the failure list.
type Driver struct {
	pipeline  *Pipeline
	failures  *model.FailureLog
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithDriverLogger sets the logger for run-level messages.
func WithDriverLogger(logger *slog.Logger) DriverOption {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) DriverOption {
	return func(d *Driver) {
		d.now = now
	}
}

// NewDriver creates a Driver that runs p for each seed and writes the
// failure list into outputDir.
func NewDriver(p *Pipeline, failures *model.FailureLog, outputDir string, opts ...DriverOption) *Driver {
	d := &Driver{
		pipeline:  p,
		failures:  failures,
		outputDir: outputDir,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewCrawlPipeline builds the standard discover-then-download pipeline.
func NewCrawlPipeline(discoverer Discoverer, downloader Downloader, progress io.Writer, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(NewDiscoverStep(discoverer), NewDownloadStep(downloader, progress))
	return p
}

// Run processes seeds in order. After ctx is cancelled the remaining seeds
// are marked cancelled and not started. The failure list is written in
// every case; an error is returned only if that write fails.
func (d *Driver) Run(ctx context.Context, seeds []string) (*model.RunReport, error) {
	run := &model.RunReport{StartedAt: d.now()}

	for i, seed := range seeds {
		if ctx.Err() != nil {
			for _, rest := range seeds[i:] {
				run.Seeds = append(run.Seeds, &model.SeedResult{Seed: rest, Skipped: CancelledReason})
			}
			break
		}

		start := d.now()
		state := NewSeedState(seed)
		d.logger.Info("crawling seed", "seed", seed, "index", i+1, "total", len(seeds))

		if err := d.pipeline.Execute(ctx, state); err != nil && ctx.Err() == nil {
			d.logger.Error("seed failed", "seed", seed, "error", err)
		}
		state.Result.Elapsed = d.now().Sub(start)
		run.Seeds = append(run.Seeds, state.Result)
	}

	run.Interrupted = ctx.Err() != nil
	run.Failures = d.failures.Entries()

	path, err := report.WriteFailureFile(d.outputDir, run)
	run.FinishedAt = d.now()
	if err != nil {
		return run, fmt.Errorf("failed to write failure list: %w", err)
	}

	d.logger.Info("crawl finished",
		"seeds", len(run.Seeds),
		"failures", len(run.Failures),
		"failure_file", path,
		"interrupted", run.Interrupted,
	)
	return run, nil
}
