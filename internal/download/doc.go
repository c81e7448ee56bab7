// Package download fetches discovered file links concurrently and writes
// them below the output directory.
//
// Each link runs an explicit retry state machine:
//
//	Attempting -> BackingOff -> Attempting ...
//	Attempting -> Succeeded | NotFound | WriteFailed
//	BackingOff -> Exhausted | Aborted
//
// A 404 is terminal and never retried. Any other non-200 status and any
// network error are recorded in the FailureLog and retried after an
// exponential backoff (base, 2*base, ...). No backoff follows the last
// attempt.
//
// Files land in <output>/<sanitized seed host>/<sanitized filename>. The
// body is streamed into a temporary file in the same directory and renamed
// into place, so an interrupted or failed download never leaves a partial
// file under the final name.
package download
