// Package log builds the slog loggers used by pgnscraper.
//
// Loggers returned by NewLogger wrap a text or JSON handler with
// RedactingHandler, which masks credentials before they reach the output:
//   - attributes named like a credential (cookie, authorization, token, ...)
//   - values that look like bearer/basic auth or JWTs
//   - credential query parameters inside URL values, so a download link
//     such as https://host/file.zip?token=abc is logged as
//     https://host/file.zip?token=REDACTED
//
// Site configuration may carry cookies and custom headers, and those end up
// in debug output; this package keeps them out of shared logs.
//
//	logger := log.NewLogger(os.Stderr, verbose, false)
//	slog.SetDefault(logger)
package log
