package model

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// FailureKind is the category of a recorded failure.
type FailureKind int

const (
	// FailureNotFound is a 404 on a download link.
	FailureNotFound FailureKind = iota
	// FailureHTTP is any other non-200 status.
	FailureHTTP
	// FailureNetwork is a transport error.
	FailureNetwork
	// FailureWrite is a local filesystem error while saving a file.
	FailureWrite
)

// String returns the name stored in the history database.
func (k FailureKind) String() string {
	switch k {
	case FailureNotFound:
		return "not_found"
	case FailureHTTP:
		return "http_error"
	case FailureNetwork:
		return "network_error"
	case FailureWrite:
		return "write_error"
	default:
		return "unknown"
	}
}

// ParseFailureKind is the inverse of FailureKind.String.
func ParseFailureKind(s string) (FailureKind, error) {
	switch s {
	case "not_found":
		return FailureNotFound, nil
	case "http_error":
		return FailureHTTP, nil
	case "network_error":
		return FailureNetwork, nil
	case "write_error":
		return FailureWrite, nil
	default:
		return 0, fmt.Errorf("unknown failure kind %q", s)
	}
}

// Failure describes why a URL could not be fetched or saved.
type Failure struct {
	Kind FailureKind `json:"kind"`

	// Code is the last HTTP status seen, zero when no response arrived.
	Code int `json:"code,omitempty"`

	// Reason is a human-readable detail (error text for network and
	// write failures).
	Reason string `json:"reason,omitempty"`
}

// HTTPFailure returns the failure for a non-200, non-404 status.
func HTTPFailure(code int) Failure {
	return Failure{Kind: FailureHTTP, Code: code, Reason: strconv.Itoa(code)}
}

// NetworkFailure returns the failure for a transport error.
func NetworkFailure(err error) Failure {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return Failure{Kind: FailureNetwork, Reason: reason}
}

// WriteFailure returns the failure for a filesystem error.
func WriteFailure(err error) Failure {
	return Failure{Kind: FailureWrite, Reason: err.Error()}
}

// String renders the failure the way it appears in logs and reports:
// the status code for HTTP failures, otherwise "kind: reason".
func (f Failure) String() string {
	switch f.Kind {
	case FailureNotFound, FailureHTTP:
		return strconv.Itoa(f.Code)
	case FailureNetwork:
		return "network: " + f.Reason
	case FailureWrite:
		return "write: " + f.Reason
	default:
		return f.Reason
	}
}

// FailureEntry is a single URL with its last recorded failure.
type FailureEntry struct {
	URL     string  `json:"url"`
	Failure Failure `json:"failure"`
}

// FailureLog accumulates failed URLs for a run.
// A URL maps to the latest failure recorded for it; entries are never removed.
type FailureLog struct {
	mu      sync.Mutex
	entries map[string]Failure
}

// NewFailureLog returns an empty FailureLog.
func NewFailureLog() *FailureLog {
	return &FailureLog{entries: make(map[string]Failure)}
}

// Record stores f for url, replacing any earlier failure for the same URL.
func (l *FailureLog) Record(url string, f Failure) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[url] = f
}

// Get returns the failure recorded for url.
func (l *FailureLog) Get(url string) (Failure, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.entries[url]
	return f, ok
}

// Len returns the number of failed URLs.
func (l *FailureLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a snapshot of the log sorted by URL.
func (l *FailureLog) Entries() []FailureEntry {
	l.mu.Lock()
	out := make([]FailureEntry, 0, len(l.entries))
	for u, f := range l.entries {
		out = append(out, FailureEntry{URL: u, Failure: f})
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}
