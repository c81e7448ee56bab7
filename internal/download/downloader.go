package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pgnscraper/internal/model"
)

// Getter performs a GET request. *crawler.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (*http.Response, error)
}

// Downloader fans links out to a bounded worker pool.
type Downloader struct {
	getter   Getter
	failures *model.FailureLog

	workers      int
	maxAttempts  int
	backoffBase  time.Duration
	sleep        Sleeper
	outputDir    string
	allowUnicode bool
	logger       *slog.Logger
	recorder     Recorder

	progress   io.Writer
	progressMu sync.Mutex
}

// New returns a Downloader that records failures in failures.
func New(getter Getter, failures *model.FailureLog, opts ...Option) *Downloader {
	d := &Downloader{
		getter:      getter,
		failures:    failures,
		workers:     DefaultWorkers,
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
		sleep:       sleepContext,
		outputDir:   ".",
		logger:      slog.Default(),
		recorder:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Summary aggregates the outcomes of one DownloadAll call.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
	Cancelled int

	// Outcomes holds one entry per link, ordered by link.
	Outcomes []model.DownloadOutcome
}

func (s *Summary) add(o model.DownloadOutcome) {
	switch o.Kind {
	case model.OutcomeSuccess:
		s.Succeeded++
	case model.OutcomeSkipped:
		s.Skipped++
	case model.OutcomeFailed:
		s.Failed++
	case model.OutcomeCancelled:
		s.Cancelled++
	}
}

// DownloadAll downloads every link, at most Workers at a time, and returns
// once all of them are finished. After ctx is cancelled no further link is
// started; links already in flight complete their current attempt.
func (d *Downloader) DownloadAll(ctx context.Context, seedURL string, links model.LinkSet) Summary {
	ordered := links.Sorted()
	outcomes := make([]model.DownloadOutcome, len(ordered))

	var g errgroup.Group
	g.SetLimit(d.workers)

	for i, link := range ordered {
		g.Go(func() error {
			if ctx.Err() != nil {
				outcomes[i] = model.DownloadOutcome{Kind: model.OutcomeCancelled, URL: link}
				return nil
			}
			outcomes[i] = d.DownloadOne(ctx, seedURL, link)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	summary := Summary{Outcomes: outcomes}
	for _, o := range outcomes {
		summary.add(o)
	}

	d.logger.Debug("downloads finished",
		"seed", seedURL,
		"succeeded", summary.Succeeded,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"cancelled", summary.Cancelled,
	)
	return summary
}

func (d *Downloader) reportSaved(name string) {
	if d.progress == nil {
		return
	}
	d.progressMu.Lock()
	defer d.progressMu.Unlock()
	fmt.Fprintf(d.progress, "Downloaded file %s\n", name)
}
