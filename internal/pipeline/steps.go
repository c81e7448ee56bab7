package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/nao1215/pgnscraper/internal/crawler"
	"github.com/nao1215/pgnscraper/internal/download"
	"github.com/nao1215/pgnscraper/internal/model"
)

// Discoverer finds file links on a page. *crawler.Fetcher satisfies it.
type Discoverer interface {
	Discover(ctx context.Context, pageURL string) crawler.Discovery
}

// Downloader downloads a set of links. *download.Downloader satisfies it.
type Downloader interface {
	DownloadAll(ctx context.Context, seedURL string, links model.LinkSet) download.Summary
}

const (
	// NoFilesReason is recorded for a seed without any file links.
	NoFilesReason = "no files found"
	// RobotsReason is recorded for a seed page that robots.txt disallows.
	RobotsReason = "disallowed by robots.txt"
)

// DiscoverStep fills SeedState.Links. A seed that is itself a file link is
// used as the only candidate without being fetched as a page.
type DiscoverStep struct {
	discoverer Discoverer
}

// NewDiscoverStep creates a DiscoverStep.
func NewDiscoverStep(d Discoverer) *DiscoverStep {
	return &DiscoverStep{discoverer: d}
}

// Name implements Step.
func (s *DiscoverStep) Name() string { return "discover" }

// Do implements Step.
func (s *DiscoverStep) Do(ctx context.Context, state *SeedState) error {
	if crawler.HasFileSuffix(state.Seed) {
		state.Links = model.NewLinkSet(state.Seed)
		state.Result.Direct = true
	} else {
		d := s.discoverer.Discover(ctx, state.Seed)
		state.Links = d.Links
		state.Result.Title = d.Title
		if d.Disallowed {
			state.Result.Skipped = RobotsReason
		}
	}
	state.Result.Links = state.Links.Len()
	return nil
}

// DownloadStep downloads SeedState.Links. An empty set is reported on the
// progress writer and the seed is marked as skipped, unless an earlier step
// already skipped it.
type DownloadStep struct {
	downloader Downloader
	progress   io.Writer
}

// NewDownloadStep creates a DownloadStep printing progress lines to w.
func NewDownloadStep(d Downloader, w io.Writer) *DownloadStep {
	if w == nil {
		w = io.Discard
	}
	return &DownloadStep{downloader: d, progress: w}
}

// Name implements Step.
func (s *DownloadStep) Name() string { return "download" }

// Do implements Step.
func (s *DownloadStep) Do(ctx context.Context, state *SeedState) error {
	if state.Result.Skipped != "" {
		fmt.Fprintf(s.progress, "Skipped %s: %s\n", state.Seed, state.Result.Skipped)
		return nil
	}
	if state.Links.Len() == 0 {
		fmt.Fprintf(s.progress, "No files found on %s\n", state.Seed)
		state.Result.Skipped = NoFilesReason
		return nil
	}

	summary := s.downloader.DownloadAll(ctx, state.Seed, state.Links)
	state.Result.Outcomes = summary.Outcomes
	return nil
}
