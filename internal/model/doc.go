// Package model defines the data passed between the crawler, the download
// orchestrator and the report writers.
//
// The types are plain values: a LinkSet of candidate file URLs found on a
// page, the FetchResult of a single GET, the DownloadOutcome of one link and
// the FailureLog that accumulates failed URLs for a whole run.
//
// FailureLog is the only type here that is shared between goroutines. It is
// guarded by a mutex, so workers may call Record concurrently.
package model
