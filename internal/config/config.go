package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/pgnscraper/internal/database"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pgnscraper"

	// DefaultSeed is crawled when no seed is configured.
	DefaultSeed = "https://www.pgnmentor.com/files.html"

	// DefaultOutputDir is where host directories and the failure list go.
	DefaultOutputDir = "."

	// DefaultWorkers is the number of parallel downloads per seed.
	DefaultWorkers = 6

	// DefaultMaxAttempts is the number of GET requests per link.
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is the delay before the second attempt; it doubles after.
	DefaultBackoffBase = time.Second

	// DefaultTimeout bounds a single request including the body transfer.
	// Large archives over slow links need minutes.
	DefaultTimeout = 5 * time.Minute

	// DefaultTorStartupTimeout is the bootstrap limit for the embedded Tor daemon.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds every setting of a crawl run. It is built from defaults,
// then the config file, then command-line flags.
type Config struct {
	// Seeds are the pages (or direct file links) to crawl, in order.
	Seeds []string

	// OutputDir is the root for downloaded files and the failure list.
	OutputDir string

	// Workers is the number of links downloaded in parallel.
	Workers int

	// MaxAttempts is the number of GET requests a link gets.
	MaxAttempts int

	// BackoffBase is the first retry delay.
	BackoffBase time.Duration

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RatePerSecond limits requests across all workers. Zero is unlimited.
	RatePerSecond float64

	// UserAgent overrides the browser User-Agent. Empty keeps the default.
	UserAgent string

	// AllowUnicode keeps Unicode letters in saved file and directory names.
	AllowUnicode bool

	// RespectRobots skips seed pages disallowed by robots.txt.
	RespectRobots bool

	// ProxyAddress routes traffic through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes traffic through it.
	UseTor bool

	// TorStartupTimeout bounds embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// SummaryFile receives a Markdown (or JSON) run summary when set.
	SummaryFile string

	// JSONSummary switches the summary format to JSON.
	JSONSummary bool

	// SaveHistory records the run in the history database.
	SaveHistory bool

	// DBDir is the directory of the history database.
	DBDir string

	// MetricsAddr serves Prometheus metrics on this address when set.
	MetricsAddr string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit config file. Empty means search.
	ConfigFilePath string

	// SiteConfigs is the loaded config file, nil when none was found.
	SiteConfigs *File
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:         DefaultOutputDir,
		Workers:           DefaultWorkers,
		MaxAttempts:       DefaultMaxAttempts,
		BackoffBase:       DefaultBackoffBase,
		Timeout:           DefaultTimeout,
		TorStartupTimeout: DefaultTorStartupTimeout,
		SaveHistory:       true,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for pgnscraper
// (~/.local/share/pgnscraper on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pgnscraper.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DatabasePath returns the history database path inside DBDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DBDir, database.FileName)
}

// ApplyFile fills settings from the config file that were not set on
// the command line. changed reports whether a flag was given explicitly.
func (c *Config) ApplyFile(f *File, changed func(flag string) bool) {
	if f == nil {
		return
	}
	c.SiteConfigs = f
	if len(c.Seeds) == 0 {
		c.Seeds = append(c.Seeds, f.Seeds...)
	}
	if f.Output != "" && !changed("output") {
		c.OutputDir = f.Output
	}
	if f.Workers > 0 && !changed("workers") {
		c.Workers = f.Workers
	}
	if f.AllowUnicode && !changed("allow-unicode") {
		c.AllowUnicode = true
	}
	if f.UserAgent != "" && !changed("user-agent") {
		c.UserAgent = f.UserAgent
	}
}

// UseDefaultSeed adds DefaultSeed when no seed is configured.
func (c *Config) UseDefaultSeed() {
	if len(c.Seeds) == 0 {
		c.Seeds = []string{DefaultSeed}
	}
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	for _, seed := range c.Seeds {
		u, err := url.Parse(seed)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
		}
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidRetries
	}
	if c.BackoffBase < 0 {
		return ErrInvalidBackoff
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RatePerSecond < 0 {
		return ErrInvalidRate
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingProxy
	}
	return nil
}
