package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/pgnscraper/internal/model"
)

func createTestReport() *model.RunReport {
	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.RunReport{
		StartedAt:  started,
		FinishedAt: started.Add(90 * time.Second),
		Seeds: []*model.SeedResult{
			{
				Seed:  "https://www.pgnmentor.com/files.html",
				Title: "PGN Mentor Files",
				Links: 3,
				Outcomes: []model.DownloadOutcome{
					{Kind: model.OutcomeSuccess, URL: "https://www.pgnmentor.com/players/Tal.zip", Attempts: 1},
					{Kind: model.OutcomeSkipped, URL: "https://www.pgnmentor.com/players/Gone.zip", Attempts: 1},
					{Kind: model.OutcomeFailed, URL: "https://www.pgnmentor.com/players/Broken.zip", Attempts: 3},
				},
			},
			{Seed: "https://example.com/", Skipped: "no files found"},
		},
		Failures: []model.FailureEntry{
			{URL: "https://www.pgnmentor.com/players/Broken.zip", Failure: model.HTTPFailure(500)},
			{URL: "https://www.pgnmentor.com/players/Gone.zip", Failure: model.Failure{Kind: model.FailureNotFound, Code: 404}},
		},
	}
}

func TestFailureListWriter(t *testing.T) {
	t.Parallel()

	t.Run("joins urls without trailing newline", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFailureListWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "https://www.pgnmentor.com/players/Broken.zip\nhttps://www.pgnmentor.com/players/Gone.zip"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("empty log writes nothing", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewFailureListWriter(&buf).Write(&model.RunReport{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("expected empty output, got %q", buf.String())
		}
	})
}

func TestWriteFailureFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, FailureFileName)
	if err := os.WriteFile(path, []byte("stale\nentries\nfrom\nlast\nrun\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	report := &model.RunReport{Failures: []model.FailureEntry{{URL: "https://x.org/a.pgn"}}}
	got, err := WriteFailureFile(dir, report)
	if err != nil {
		t.Fatalf("WriteFailureFile: %v", err)
	}
	if got != path || report.FailureFile != path {
		t.Errorf("path = %q, report.FailureFile = %q, want %q", got, report.FailureFile, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "https://x.org/a.pgn" {
		t.Errorf("file was not overwritten: %q", data)
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	report := createTestReport()
	report.FailureFile = "out/failed_urls"
	if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"CRAWL SUMMARY",
		"Downloaded: 1",
		"Not found:  1",
		"Failed:     1",
		"Duration:   1m30s",
		"https://example.com/: no files found",
		"2 URL(s) failed, see out/failed_urls",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\n%s", want, output)
		}
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# pgnscraper Run Summary",
			"## Seeds",
			"## Failures",
			"```mermaid",
			"Download Outcomes",
			"https://www.pgnmentor.com/players/Broken.zip",
			"no files found",
			"PGN Mentor Files",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("empty run has no chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(&model.RunReport{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("did not expect a chart for an empty run")
		}
		if !strings.Contains(buf.String(), "No failures recorded.") {
			t.Error("expected empty failures note")
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewJSONWriter(&buf, "v1.2.3", WithPrettyPrint()).Write(createTestReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded JSONReport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Version != "v1.2.3" || decoded.Downloaded != 1 || decoded.Failed != 1 {
		t.Errorf("unexpected header: %+v", decoded)
	}
	if len(decoded.Report.Failures) != 2 || decoded.Report.Failures[0].Failure.Code != 500 {
		t.Errorf("failures not round-tripped: %+v", decoded.Report.Failures)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestNewWriter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format  Format
		want    string
		wantErr bool
	}{
		{FormatSimple, "*report.SimpleWriter", false},
		{"", "*report.SimpleWriter", false},
		{FormatMarkdown, "*report.MarkdownWriter", false},
		{"MD", "*report.MarkdownWriter", false},
		{FormatJSON, "*report.JSONWriter", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		w, err := NewWriter(tt.format, &bytes.Buffer{}, "dev")
		if (err != nil) != tt.wantErr {
			t.Errorf("NewWriter(%q) error = %v", tt.format, err)
			continue
		}
		if err == nil {
			if got := typeName(w); got != tt.want {
				t.Errorf("NewWriter(%q) = %s, want %s", tt.format, got, tt.want)
			}
		}
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *SimpleWriter:
		return "*report.SimpleWriter"
	case *MarkdownWriter:
		return "*report.MarkdownWriter"
	case *JSONWriter:
		return "*report.JSONWriter"
	default:
		return "unknown"
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	n, err := NewMultiWriter(NewFailureListWriter(&a), NewFailureListWriter(&b)).Write(createTestReport())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() || a.String() != b.String() {
		t.Errorf("n = %d, a = %q, b = %q", n, a.String(), b.String())
	}
}
