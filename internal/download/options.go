package download

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/nao1215/pgnscraper/internal/model"
)

// Defaults for a Downloader.
const (
	DefaultWorkers     = 6
	DefaultMaxAttempts = 3
	DefaultBackoffBase = time.Second
)

// Sleeper blocks for d or until ctx is done, returning ctx.Err() in the
// latter case. Tests replace it to observe backoff without waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// Recorder observes download activity. It is implemented by the metrics
// package; the zero Downloader uses a no-op recorder.
type Recorder interface {
	// RecordAttempt is called after every GET with its classified status.
	RecordAttempt(status model.FetchStatus)
	// RecordOutcome is called once per link with its terminal outcome.
	RecordOutcome(outcome model.DownloadOutcome)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(model.FetchStatus)     {}
func (nopRecorder) RecordOutcome(model.DownloadOutcome) {}

// Option configures a Downloader.
type Option func(*Downloader)

// WithWorkers sets how many links download in parallel.
func WithWorkers(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithMaxAttempts sets how many GET requests a link gets before giving up.
func WithMaxAttempts(n int) Option {
	return func(d *Downloader) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the delay before the second attempt. Each further
// delay doubles.
func WithBackoffBase(base time.Duration) Option {
	return func(d *Downloader) {
		if base >= 0 {
			d.backoffBase = base
		}
	}
}

// WithSleeper replaces the backoff clock.
func WithSleeper(s Sleeper) Option {
	return func(d *Downloader) {
		if s != nil {
			d.sleep = s
		}
	}
}

// WithOutputDir sets the root directory for downloaded files.
func WithOutputDir(dir string) Option {
	return func(d *Downloader) {
		if dir != "" {
			d.outputDir = dir
		}
	}
}

// WithAllowUnicode keeps Unicode letters in directory and file names.
func WithAllowUnicode(allow bool) Option {
	return func(d *Downloader) {
		d.allowUnicode = allow
	}
}

// WithLogger sets the logger for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(d *Downloader) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithProgress writes one "Downloaded file <name>" line per saved file to w.
func WithProgress(w io.Writer) Option {
	return func(d *Downloader) {
		d.progress = w
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
