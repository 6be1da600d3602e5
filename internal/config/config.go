package config

import (
	"math"
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/time/rate"

	"github.com/nao1215/boardcrawl/internal/session"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths.
	AppName = "boardcrawl"

	// DefaultWorkers is the number of concurrent sessions. It matches the
	// process count the leaderboard tolerated in practice.
	DefaultWorkers = 24

	// MaxWorkers bounds the worker pool.
	MaxWorkers = 128

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = session.DefaultTimeout

	// DefaultPageSize is the number of rows per leaderboard page.
	DefaultPageSize = session.DefaultPageSize

	// DefaultOutputDir is where CSV exports are written.
	DefaultOutputDir = "."
)

// BirthDate is the date submitted to the age gate.
type BirthDate struct {
	Month int `yaml:"month"`
	Day   int `yaml:"day"`
	Year  int `yaml:"year"`
}

// Config holds every option of a crawl. It is built from defaults, then
// the configuration file, then command line flags.
type Config struct {
	// BaseURL is the scheme and host of the leaderboard site.
	BaseURL string

	// EntryPath is the leaderboard page path.
	EntryPath string

	// GatePath is the age gate form target including its query string.
	GatePath string

	// Workers is the number of concurrent sessions.
	Workers int

	// PageSize is the number of rows per page, used to compute rank jumps.
	PageSize int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Rate limits requests per second across all workers. Zero disables
	// pacing.
	Rate float64

	// BirthDate is submitted to the age gate.
	BirthDate BirthDate

	// Headers replace the default request headers when set.
	Headers map[string]string

	// OutputDir receives the CSV export.
	OutputDir string

	// Sequential walks the pages with a single session.
	Sequential bool

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON selects JSON log output.
	LogJSON bool

	// ConfigFilePath is an explicit configuration file.
	ConfigFilePath string

	// DBDir holds the run history database. Empty disables history.
	DBDir string

	// SummaryMarkdown is a file to write a Markdown run summary to.
	SummaryMarkdown string

	// MetricsAddr is the listen address of the Prometheus endpoint.
	// Empty disables it.
	MetricsAddr string

	// TraceEndpoint is the OTLP/HTTP traces URL. Empty disables tracing.
	TraceEndpoint string
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		BaseURL:   session.DefaultBaseURL,
		EntryPath: session.DefaultEntryPath,
		GatePath:  session.DefaultGatePath,
		Workers:   DefaultWorkers,
		PageSize:  DefaultPageSize,
		Timeout:   DefaultTimeout,
		BirthDate: BirthDate{
			Month: session.DefaultBirthDate.Month,
			Day:   session.DefaultBirthDate.Day,
			Year:  session.DefaultBirthDate.Year,
		},
		Headers:   session.DefaultHeaders(),
		OutputDir: DefaultOutputDir,
		DBDir:     XDGDataDir(),
	}
}

// XDGDataDir returns the data directory, which holds the history database.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the configuration directory.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrNoBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	if c.Workers < 1 || c.Workers > MaxWorkers {
		return ErrInvalidWorkers
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}
	if c.Rate < 0 || math.IsNaN(c.Rate) {
		return ErrInvalidRate
	}
	if !c.BirthDate.valid() {
		return ErrInvalidBirthDate
	}
	return nil
}

func (b BirthDate) valid() bool {
	if b.Year < 1900 || b.Month < 1 || b.Month > 12 || b.Day < 1 {
		return false
	}
	d := time.Date(b.Year, time.Month(b.Month), b.Day, 0, 0, 0, 0, time.UTC)
	return d.Day() == b.Day && d.Before(time.Now())
}

// Session returns the session configuration derived from c.
func (c *Config) Session() session.Config {
	return session.Config{
		BaseURL:   c.BaseURL,
		EntryPath: c.EntryPath,
		GatePath:  c.GatePath,
		PageSize:  c.PageSize,
		Timeout:   c.Timeout,
		BirthDate: session.BirthDate{
			Month: c.BirthDate.Month,
			Day:   c.BirthDate.Day,
			Year:  c.BirthDate.Year,
		},
		Headers: c.Headers,
	}
}

// Limiter returns the shared request limiter, or nil when Rate is zero.
func (c *Config) Limiter() *rate.Limiter {
	if c.Rate <= 0 {
		return nil
	}
	// No pool holds more than MaxWorkers sessions, so a larger burst is
	// never used.
	burst := MaxWorkers
	if c.Rate < MaxWorkers {
		burst = max(int(c.Rate), 1)
	}
	return rate.NewLimiter(rate.Limit(c.Rate), burst)
}
