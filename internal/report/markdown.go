package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/pgnscraper/internal/model"
)

// MarkdownWriter outputs a run summary in GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write implements Writer.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeAlert(md, report)
	w.writeChart(md, report)
	w.writeSeeds(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	downloaded, skipped, failed := report.Totals()

	md.H1("pgnscraper Run Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", report.StartedAt.Format(time.RFC3339)},
			{"Duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String()},
			{"Seeds", strconv.Itoa(len(report.Seeds))},
			{"Downloaded", strconv.Itoa(downloaded)},
			{"Not found", strconv.Itoa(skipped)},
			{"Failed", strconv.Itoa(failed)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	_, _, failed := report.Totals()
	switch {
	case report.Interrupted:
		md.Warningf("The run was interrupted. Links that had not started were not downloaded.")
	case failed > 0:
		md.Importantf("%d file(s) could not be downloaded. Their URLs are listed in %s.", failed, FailureFileName)
	case len(report.Failures) > 0:
		md.Note("Some pages or files reported errors; see the failures section.")
	default:
		md.Tip("All discovered files were downloaded.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeChart(md *markdown.Markdown, report *model.RunReport) {
	downloaded, skipped, failed := report.Totals()
	if downloaded+skipped+failed == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Download Outcomes"),
		piechart.WithShowData(true),
	)
	if downloaded > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(downloaded))
	}
	if skipped > 0 {
		chart.LabelAndIntValue("Not found", uint64(skipped))
	}
	if failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(failed))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeSeeds(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Seeds")
	md.PlainText("")

	rows := make([][]string, len(report.Seeds))
	for i, s := range report.Seeds {
		note := s.Skipped
		if note == "" && s.Direct {
			note = "direct file link"
		}
		if note == "" {
			note = truncateString(s.Title, 40)
		}
		if note == "" {
			note = "-"
		}
		rows[i] = []string{
			truncateString(s.Seed, 60),
			strconv.Itoa(s.Links),
			strconv.Itoa(s.Count(model.OutcomeSuccess)),
			strconv.Itoa(s.Count(model.OutcomeSkipped)),
			strconv.Itoa(s.Count(model.OutcomeFailed)),
			note,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Seed", "Links", "Downloaded", "Not found", "Failed", "Note"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Failures")
	md.PlainText("")

	if len(report.Failures) == 0 {
		md.PlainText("No failures recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Failures))
	for i, e := range report.Failures {
		rows[i] = []string{truncateString(e.URL, 80), e.Failure.Kind.String(), truncateString(e.Failure.String(), 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Last error"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pgnscraper](https://github.com/nao1215/pgnscraper)*")
}

// truncateString truncates s to maxLen bytes with an ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
