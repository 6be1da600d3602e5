package config

import "time"

// File is the structure of the .boardcrawl configuration file.
// Zero values leave the corresponding Config field untouched.
type File struct {
	BaseURL    string            `yaml:"baseURL,omitempty"`
	EntryPath  string            `yaml:"entryPath,omitempty"`
	GatePath   string            `yaml:"gatePath,omitempty"`
	Workers    int               `yaml:"workers,omitempty"`
	PageSize   int               `yaml:"pageSize,omitempty"`
	Timeout    time.Duration     `yaml:"timeout,omitempty"`
	Rate       float64           `yaml:"rate,omitempty"`
	BirthDate  BirthDate         `yaml:"birthDate,omitempty"`
	Headers    map[string]string `yaml:"headers,omitempty"`
	OutputDir  string            `yaml:"outputDir,omitempty"`
	Sequential bool              `yaml:"sequential,omitempty"`
}

// Apply copies the set fields of f onto c. Headers are merged key by key.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	if f.BaseURL != "" {
		c.BaseURL = f.BaseURL
	}
	if f.EntryPath != "" {
		c.EntryPath = f.EntryPath
	}
	if f.GatePath != "" {
		c.GatePath = f.GatePath
	}
	if f.Workers != 0 {
		c.Workers = f.Workers
	}
	if f.PageSize != 0 {
		c.PageSize = f.PageSize
	}
	if f.Timeout != 0 {
		c.Timeout = f.Timeout
	}
	if f.Rate != 0 {
		c.Rate = f.Rate
	}
	if f.BirthDate != (BirthDate{}) {
		c.BirthDate = f.BirthDate
	}
	if len(f.Headers) > 0 {
		merged := make(map[string]string, len(c.Headers)+len(f.Headers))
		for k, v := range c.Headers {
			merged[k] = v
		}
		for k, v := range f.Headers {
			merged[k] = v
		}
		c.Headers = merged
	}
	if f.OutputDir != "" {
		c.OutputDir = f.OutputDir
	}
	if f.Sequential {
		c.Sequential = true
	}
}
