package session

import "time"

// Defaults for the production leaderboard.
const (
	DefaultBaseURL   = "http://www.socom.com"
	DefaultEntryPath = "/en-us/Leaderboards/SOCOM4"
	DefaultGatePath  = "/?url=%2fen-us%2fLeaderboards%2fSOCOM4"
	DefaultPageSize  = 20
	DefaultTimeout   = 60 * time.Second
	MaxRedirects     = 10
)

// BirthDate is the date submitted to the age gate.
type BirthDate struct {
	Month int
	Day   int
	Year  int
}

// DefaultBirthDate is an adult birth date accepted by the gate.
var DefaultBirthDate = BirthDate{Month: 7, Day: 21, Year: 1986}

// Config describes the target site and request parameters.
type Config struct {
	// BaseURL is the scheme and host of the site.
	BaseURL string

	// EntryPath is the leaderboard page.
	EntryPath string

	// GatePath is the age gate form target, including its query.
	GatePath string

	// PageSize is the number of rows per leaderboard page.
	PageSize int

	// Timeout bounds every HTTP call.
	Timeout time.Duration

	// BirthDate is submitted to the age gate.
	BirthDate BirthDate

	// Headers are sent with every request.
	Headers map[string]string
}

// DefaultHeaders returns the static header block sent by a desktop browser.
// Accept-Encoding is left to the transport so compressed bodies are
// decoded transparently.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:6.0) Gecko/20100101 Firefox/6.0 Iceweasel/6.0",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-us,en;q=0.5",
		"Accept-Charset":  "ISO-8859-1,utf-8;q=0.7,*;q=0.7",
		"Cache-Control":   "no-cache",
	}
}

// DefaultConfig returns the configuration for the production site.
func DefaultConfig() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		EntryPath: DefaultEntryPath,
		GatePath:  DefaultGatePath,
		PageSize:  DefaultPageSize,
		Timeout:   DefaultTimeout,
		BirthDate: DefaultBirthDate,
		Headers:   DefaultHeaders(),
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.EntryPath == "" {
		c.EntryPath = d.EntryPath
	}
	if c.GatePath == "" {
		c.GatePath = d.GatePath
	}
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.BirthDate == (BirthDate{}) {
		c.BirthDate = d.BirthDate
	}
	if c.Headers == nil {
		c.Headers = d.Headers
	}
	return c
}
