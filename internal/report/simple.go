package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/pgnscraper/internal/model"
)

// SimpleWriter prints a short run summary for the terminal.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	downloaded, skipped, failed := report.Totals()
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&sb, "Seeds:      %d\n", len(report.Seeds))
	fmt.Fprintf(&sb, "Downloaded: %d\n", downloaded)
	fmt.Fprintf(&sb, "Not found:  %d\n", skipped)
	fmt.Fprintf(&sb, "Failed:     %d\n", failed)
	fmt.Fprintf(&sb, "Duration:   %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	if report.Interrupted {
		sb.WriteString("Status:     interrupted\n")
	}

	for _, seed := range report.Seeds {
		if seed.Skipped != "" {
			fmt.Fprintf(&sb, "  %s: %s\n", seed.Seed, seed.Skipped)
			continue
		}
		fmt.Fprintf(&sb, "  %s: %d link(s), %d downloaded\n",
			seed.Seed, seed.Links, seed.Count(model.OutcomeSuccess))
	}

	if len(report.Failures) > 0 {
		fmt.Fprintf(&sb, "\n%d URL(s) failed", len(report.Failures))
		if report.FailureFile != "" {
			fmt.Fprintf(&sb, ", see %s", report.FailureFile)
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}
