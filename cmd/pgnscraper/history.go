package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pgnscraper/internal/config"
	"github.com/nao1215/pgnscraper/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past crawl runs",
		Long: `History lists crawl runs recorded in the history database
(~/.local/share/pgnscraper/pgnscraper.db on Linux).

Examples:
  # List the last 20 runs
  pgnscraper history

  # Show the failed URLs of run 7
  pgnscraper history --run 7

  # URLs that failed in at least 3 runs
  pgnscraper history --recurring 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("run", "r", 0, "Show the failures of one run")
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to list (0 for all)")
	cmd.Flags().Int("recurring", 0, "List URLs that failed in at least this many runs")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	recurring, err := cmd.Flags().GetInt("recurring")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no crawl history: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case runID > 0:
		entries, err := db.RunFailures(ctx, runID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(out, "Run %d has no failures\n", runID)
			return nil
		}
		tw := newTable(out, "URL", "FAILURE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\n", e.URL, e.Failure)
		}
		return tw.Flush()

	case recurring > 0:
		counts, err := db.RecurringFailures(ctx, recurring)
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			fmt.Fprintf(out, "No URL failed in %d or more runs\n", recurring)
			return nil
		}
		tw := newTable(out, "URL", "RUNS", "LAST", "SEEN")
		for _, c := range counts {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.URL, c.Runs, c.LastKind, formatTime(c.LastSeen))
		}
		return tw.Flush()

	default:
		runs, err := db.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded")
			return nil
		}
		tw := newTable(out, "ID", "STARTED", "DURATION", "DOWNLOADED", "SKIPPED", "FAILED", "SEEDS")
		for _, r := range runs {
			seeds := strings.Join(r.Seeds, ", ")
			if r.Interrupted {
				seeds += " (interrupted)"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
				r.ID, formatTime(r.StartedAt), r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
				r.Downloaded, r.Skipped, r.Failed, seeds)
		}
		return tw.Flush()
	}
}

func newTable(w io.Writer, headers ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	return tw
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
