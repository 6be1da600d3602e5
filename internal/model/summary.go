package model

import (
	"time"

	"github.com/google/uuid"
)

// RunSummary holds the statistics of one crawl. It is produced whether the
// crawl completed or was aborted.
type RunSummary struct {
	// ID uniquely identifies the run in logs and the history database.
	ID string `json:"id"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the wall-clock duration of the crawl.
	Elapsed time.Duration `json:"elapsed"`

	// Mode is "concurrent" or "sequential".
	Mode string `json:"mode"`

	// Workers is the number of workers that took part.
	Workers int `json:"workers"`

	// Manifest is the discovered page and record count.
	Manifest CrawlManifest `json:"manifest"`

	// Requests is the number of HTTP requests issued.
	Requests int64 `json:"requests"`

	// PagesFetched counts leaderboard pages whose rows were merged.
	PagesFetched int64 `json:"pages_fetched"`

	// Players is the number of unique players collected.
	Players int `json:"players"`

	// Duplicates counts upserts that replaced an existing player.
	Duplicates int64 `json:"duplicates"`

	// ParseFailures counts skipped row blocks.
	ParseFailures int64 `json:"parse_failures"`

	// Error is the abort reason; empty for a complete run.
	Error string `json:"error,omitempty"`

	// ExportFile is the path of the CSV written for this run, if any.
	ExportFile string `json:"export_file,omitempty"`
}

// NewRunSummary returns a summary with a fresh ID and start time.
func NewRunSummary(mode string, workers int) *RunSummary {
	return &RunSummary{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Mode:      mode,
		Workers:   workers,
	}
}

// Aborted reports whether the run stopped before draining all pages.
func (s *RunSummary) Aborted() bool {
	return s.Error != ""
}

// ElapsedSeconds returns the elapsed time truncated to whole seconds.
func (s *RunSummary) ElapsedSeconds() int64 {
	return int64(s.Elapsed / time.Second)
}
