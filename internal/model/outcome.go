package model

import "time"

// OutcomeKind is the terminal state of a single link download.
type OutcomeKind int

const (
	// OutcomeSuccess means the file was written to disk.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeSkipped means the link answered 404.
	OutcomeSkipped
	// OutcomeFailed means retries were exhausted or the file could not be written.
	OutcomeFailed
	// OutcomeCancelled means the run was interrupted before the link was attempted.
	OutcomeCancelled
)

// String returns a lowercase name for the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DownloadOutcome is the result of downloading one link.
type DownloadOutcome struct {
	// Kind is the terminal state.
	Kind OutcomeKind `json:"kind"`

	// URL is the absolute URL that was requested.
	URL string `json:"url"`

	// Path is the local file path for OutcomeSuccess.
	Path string `json:"path,omitempty"`

	// Bytes is the size of the saved file.
	Bytes int64 `json:"bytes,omitempty"`

	// Failure holds the last failure for OutcomeSkipped and OutcomeFailed.
	Failure *Failure `json:"failure,omitempty"`

	// Attempts is the number of GET requests made.
	Attempts int `json:"attempts"`

	// Elapsed is the wall time spent on the link including backoff.
	Elapsed time.Duration `json:"elapsed"`
}

// SeedResult summarises the processing of a single seed URL.
type SeedResult struct {
	// Seed is the seed URL as configured.
	Seed string `json:"seed"`

	// Direct is true when the seed itself was a file link.
	Direct bool `json:"direct"`

	// Title is the seed page title, empty for direct links and unparsed pages.
	Title string `json:"title,omitempty"`

	// Links is the number of candidate links discovered.
	Links int `json:"links"`

	// Outcomes holds one entry per attempted link.
	Outcomes []DownloadOutcome `json:"outcomes,omitempty"`

	// Skipped is set when the seed was not crawled (robots.txt, no files, cancellation).
	Skipped string `json:"skipped,omitempty"`

	// Elapsed is the time spent on discovery and downloads.
	Elapsed time.Duration `json:"elapsed"`
}

// Count returns how many outcomes have the given kind.
func (r *SeedResult) Count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// RunReport is everything a crawl run produced.
type RunReport struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is when the failure file was written.
	FinishedAt time.Time `json:"finishedAt"`

	// Seeds holds one result per processed seed, in order.
	Seeds []*SeedResult `json:"seeds"`

	// Failures is the final failure log snapshot.
	Failures []FailureEntry `json:"failures"`

	// FailureFile is the path of the plain-text failure report.
	FailureFile string `json:"failureFile"`

	// Interrupted is true when the run was cancelled.
	Interrupted bool `json:"interrupted"`
}

// Totals sums outcome counts across all seeds.
func (r *RunReport) Totals() (downloaded, skipped, failed int) {
	for _, s := range r.Seeds {
		downloaded += s.Count(OutcomeSuccess)
		skipped += s.Count(OutcomeSkipped)
		failed += s.Count(OutcomeFailed)
	}
	return downloaded, skipped, failed
}
