package model

import (
	"net/http"
	"strconv"
)

// FetchStatus classifies the result of a GET request.
type FetchStatus int

const (
	// StatusOK means the server answered 200.
	StatusOK FetchStatus = iota

	// StatusNotFound means the server answered 404. This is an absence,
	// not a failure, and is never retried.
	StatusNotFound

	// StatusHTTPError means any other status code.
	StatusHTTPError

	// StatusNetworkError means no response was received (connection
	// refused, timeout, body read error, ...).
	StatusNetworkError
)

// String returns a short name for the status.
func (s FetchStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusHTTPError:
		return "http_error"
	case StatusNetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// ClassifyStatus maps an HTTP status code to a FetchStatus.
func ClassifyStatus(code int) FetchStatus {
	switch code {
	case http.StatusOK:
		return StatusOK
	case http.StatusNotFound:
		return StatusNotFound
	default:
		return StatusHTTPError
	}
}

// FetchResult is the outcome of fetching a page.
type FetchResult struct {
	// URL is the requested URL.
	URL string

	// Status is the classified outcome.
	Status FetchStatus

	// Code is the HTTP status code. Zero for StatusNetworkError.
	Code int

	// Body is the response body, decoded to UTF-8. Nil unless Status is StatusOK.
	Body []byte

	// Header holds the response headers when a response was received.
	Header http.Header

	// Err is the transport error for StatusNetworkError.
	Err error
}

// Failure converts a non-OK result into the Failure recorded in a FailureLog.
// It returns nil for StatusOK.
func (r FetchResult) Failure() *Failure {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusNotFound:
		return &Failure{Kind: FailureNotFound, Code: http.StatusNotFound}
	case StatusNetworkError:
		f := NetworkFailure(r.Err)
		return &f
	default:
		return &Failure{Kind: FailureHTTP, Code: r.Code, Reason: strconv.Itoa(r.Code)}
	}
}
