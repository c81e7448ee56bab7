package report

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/pgnscraper/internal/model"
)

// FailureFileName is the fixed name of the failure list in the output directory.
const FailureFileName = "failed_urls"

// FailureListWriter writes the URLs of a report's failures separated by
// "\n" with no trailing newline. The order is that of model.FailureLog.Entries.
type FailureListWriter struct {
	baseWriter
}

// NewFailureListWriter creates a FailureListWriter.
func NewFailureListWriter(output io.Writer) *FailureListWriter {
	return &FailureListWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *FailureListWriter) Write(report *model.RunReport) (int, error) {
	urls := make([]string, len(report.Failures))
	for i, e := range report.Failures {
		urls[i] = e.URL
	}
	return io.WriteString(w.output, strings.Join(urls, "\n"))
}

// WriteFailureFile writes the failure list of report to
// <dir>/failed_urls, replacing any previous file, and records the path in
// report.FailureFile. An empty failure log produces an empty file.
func WriteFailureFile(dir string, report *model.RunReport) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FailureFileName)

	f, err := os.Create(path) //nolint:gosec // path is built from the configured output directory
	if err != nil {
		return "", err
	}
	if _, err := NewFailureListWriter(f).Write(report); err != nil {
		_ = f.Close() //nolint:errcheck // write error takes precedence
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	report.FailureFile = path
	return path, nil
}
