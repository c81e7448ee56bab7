package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/pgnscraper/internal/config"
	"github.com/nao1215/pgnscraper/internal/crawler"
	"github.com/nao1215/pgnscraper/internal/database"
	"github.com/nao1215/pgnscraper/internal/download"
	"github.com/nao1215/pgnscraper/internal/log"
	"github.com/nao1215/pgnscraper/internal/metrics"
	"github.com/nao1215/pgnscraper/internal/model"
	"github.com/nao1215/pgnscraper/internal/pipeline"
	"github.com/nao1215/pgnscraper/internal/report"
	"github.com/nao1215/pgnscraper/internal/transport"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl seed pages and download linked game files",
		Long: `Crawl fetches each seed page, collects links to chess game files
(.pgn, .zip, .cbv, .si4, ...) from the page and its frames, and downloads
them in parallel.

Seeds come from the arguments, else from the configuration file, else the
built-in default (` + config.DefaultSeed + `).

Each link gets up to --retries attempts with exponential backoff. A 404 is
not retried. URLs that still fail are written to <output>/failed_urls.
Press Ctrl+C to stop: downloads in progress finish, nothing new starts.

Examples:
  # Crawl the default seed into the current directory
  pgnscraper crawl

  # Crawl two pages into ./games with 10 parallel downloads
  pgnscraper crawl -o games -w 10 https://example.com/a.html https://example.com/b.html

  # Route traffic through an embedded Tor daemon
  pgnscraper crawl --tor http://<v3-address>.onion/chess/

  # Write a Markdown summary and expose metrics
  pgnscraper crawl --summary run.md --metrics-addr :9090`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultOutputDir,
		"Root directory for downloaded files and failed_urls")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of parallel downloads per seed")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxAttempts,
		"Attempts per download link")
	cmd.Flags().Duration("backoff", config.DefaultBackoffBase,
		"Delay before the second attempt; doubles after each failure")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for a single request including the body transfer")
	cmd.Flags().Float64("rate", 0,
		"Maximum requests per second across all workers (0 for unlimited)")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: a desktop browser string)")
	cmd.Flags().Bool("allow-unicode", false,
		"Keep Unicode letters in saved file and directory names")
	cmd.Flags().Bool("respect-robots", false,
		"Skip seed pages disallowed by robots.txt")

	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and route requests through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	cmd.Flags().StringP("summary", "s", "",
		"Write a run summary to this file (Markdown, or JSON with --json)")
	cmd.Flags().BoolP("json", "j", false,
		"Use JSON for the run summary")
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"History database directory")
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address during the run (e.g., :9090)")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pgnscraper in current or home directory)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout())
}

// getBoolFlag reads a flag from the command or the root's persistent flags.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	return log.NewLogger(cmd.ErrOrStderr(), verbose, getBoolFlag(cmd, "log-json"))
}

// buildConfig creates a Config from flags and the configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.OutputDir, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Workers, err = flags.GetInt("workers"); err != nil {
		return nil, err
	}
	if cfg.MaxAttempts, err = flags.GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.BackoffBase, err = flags.GetDuration("backoff"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RatePerSecond, err = flags.GetFloat64("rate"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.AllowUnicode, err = flags.GetBool("allow-unicode"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.SummaryFile, err = flags.GetString("summary"); err != nil {
		return nil, err
	}
	if cfg.JSONSummary, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")

	cfg.Seeds = append(cfg.Seeds, args...)

	// An explicit --config must exist; the search locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file, flags.Changed)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.UseDefaultSeed()
	return cfg, nil
}

// runCrawl wires the components together and executes one run.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	logger.Info("starting crawl",
		"seeds", len(cfg.Seeds),
		"output", cfg.OutputDir,
		"workers", cfg.Workers,
		"tor", cfg.UseTor,
		"proxy", cfg.ProxyAddress != "",
		"history", cfg.SaveHistory,
	)

	clientOpts := transport.Options{
		Timeout:         cfg.Timeout,
		UserAgent:       cfg.UserAgent,
		ProxyAddress:    cfg.ProxyAddress,
		RatePerSecond:   cfg.RatePerSecond,
		MaxConnsPerHost: cfg.Workers,
		Overrides:       cfg.SiteConfigs.HostOverrides(),
	}

	if cfg.UseTor {
		embedded, err := startEmbeddedTor(ctx, cfg, logger, stdout)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		if err := embedded.Apply(&clientOpts); err != nil {
			return err
		}
	} else if cfg.ProxyAddress != "" {
		if err := checkProxy(ctx, cfg.ProxyAddress); err != nil {
			return err
		}
		logger.Info("SOCKS5 proxy verified", "address", cfg.ProxyAddress)
	}

	proxied := clientOpts.ProxyAddress != ""
	for _, seed := range cfg.Seeds {
		if _, err := transport.CheckSeed(seed, proxied); err != nil {
			return err
		}
	}

	client, err := transport.NewHTTPClient(clientOpts)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	var recorder download.Recorder
	if cfg.MetricsAddr != "" {
		collector := metrics.NewCollector()
		srv, err := metrics.Listen(cfg.MetricsAddr, collector, logger)
		if err != nil {
			return err
		}
		metricsCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := srv.Serve(metricsCtx); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			cancel()
			<-done
		}()
		recorder = collector
	}

	var history *database.HistoryDB
	if cfg.SaveHistory {
		history, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer history.Close()
		logger.Debug("history database opened", "path", cfg.DatabasePath())
	}

	failures := model.NewFailureLog()

	fetcherOpts := []crawler.FetcherOption{crawler.WithLogger(logger)}
	if cfg.RespectRobots {
		ua := cfg.UserAgent
		if ua == "" {
			ua = transport.DefaultUserAgent
		}
		fetcherOpts = append(fetcherOpts, crawler.WithRobots(ua))
	}
	fetcher := crawler.NewFetcher(client, failures, fetcherOpts...)

	downloadOpts := []download.Option{
		download.WithWorkers(cfg.Workers),
		download.WithMaxAttempts(cfg.MaxAttempts),
		download.WithBackoffBase(cfg.BackoffBase),
		download.WithOutputDir(cfg.OutputDir),
		download.WithAllowUnicode(cfg.AllowUnicode),
		download.WithLogger(logger),
		download.WithProgress(stdout),
	}
	if recorder != nil {
		downloadOpts = append(downloadOpts, download.WithRecorder(recorder))
	}
	downloader := download.New(fetcher, failures, downloadOpts...)

	p := pipeline.NewCrawlPipeline(fetcher, downloader, stdout, pipeline.WithLogger(logger))
	driver := pipeline.NewDriver(p, failures, cfg.OutputDir, pipeline.WithDriverLogger(logger))

	run, runErr := driver.Run(ctx, cfg.Seeds)
	if run == nil {
		return runErr
	}

	if err := outputSummary(cfg, run, stdout); err != nil {
		logger.Error("failed to write summary", "error", err)
	}

	// An interrupted run is still recorded.
	if err := saveHistory(context.WithoutCancel(ctx), history, run, logger); err != nil {
		logger.Error("failed to save run history", "error", err)
	}

	if runErr != nil {
		return runErr
	}
	if run.Interrupted {
		fmt.Fprintln(stdout, "Interrupted: remaining seeds were not crawled")
	}
	return nil
}

// checkProxy validates the proxy address and performs a SOCKS5 handshake.
func checkProxy(ctx context.Context, address string) error {
	if !transport.IsValidProxyAddress(address) {
		return fmt.Errorf("%w: %s", transport.ErrInvalidProxyAddress, address)
	}
	if err := transport.CheckProxy(ctx, address).Err(); err != nil {
		return fmt.Errorf("proxy check failed for %s: %w", address, err)
	}
	return nil
}

// startEmbeddedTor bootstraps a Tor daemon and verifies its SOCKS port.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*transport.EmbeddedTor, error) {
	fmt.Fprintln(stdout, "Starting embedded Tor daemon...")
	fmt.Fprintf(stdout, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	if err := transport.CheckProxy(ctx, embedded.SocksAddr()).Err(); err != nil {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("embedded Tor proxy check failed: %w", err)
	}

	logger.Info("embedded Tor daemon started", "socksAddr", embedded.SocksAddr())
	return embedded, nil
}

// outputSummary prints the console summary and writes the optional summary file.
func outputSummary(cfg *config.Config, run *model.RunReport, stdout io.Writer) error {
	if cfg.JSONSummary && cfg.SummaryFile == "" {
		_, err := report.NewJSONWriter(stdout, getVersion(), report.WithPrettyPrint()).Write(run)
		return err
	}

	if _, err := report.NewSimpleWriter(stdout).Write(run); err != nil {
		return err
	}
	if cfg.SummaryFile == "" {
		return nil
	}

	format := report.FormatMarkdown
	if cfg.JSONSummary {
		format = report.FormatJSON
	}

	dir := filepath.Dir(cfg.SummaryFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.SummaryFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}

	w, err := report.NewWriter(format, f, getVersion())
	if err != nil {
		_ = f.Close()
		return err
	}
	if _, err := w.Write(run); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// saveHistory records run in db. A nil db means history is disabled.
func saveHistory(ctx context.Context, db *database.HistoryDB, run *model.RunReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}

	id, err := db.SaveRun(ctx, run)
	if err != nil {
		return err
	}
	logger.Info("run saved to history", "run", id, "db", db.Path())
	return nil
}
