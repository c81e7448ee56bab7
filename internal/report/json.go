package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pgnscraper/internal/model"
)

// JSONWriter outputs the complete RunReport as JSON.
type JSONWriter struct {
	baseWriter
	version      string
	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter stamping reports with version.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output), version: version}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a RunReport with metadata.
type JSONReport struct {
	Version    string           `json:"version"`
	Downloaded int              `json:"downloaded"`
	Skipped    int              `json:"skipped"`
	Failed     int              `json:"failed"`
	Report     *model.RunReport `json:"report"`
}

// Write implements Writer.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	downloaded, skipped, failed := report.Totals()
	wrapped := JSONReport{
		Version:    w.version,
		Downloaded: downloaded,
		Skipped:    skipped,
		Failed:     failed,
		Report:     report,
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(wrapped, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(wrapped)
	}
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return w.output.Write(data)
}
