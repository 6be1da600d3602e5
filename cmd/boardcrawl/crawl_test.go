package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/boardcrawl/internal/config"
	"github.com/nao1215/boardcrawl/internal/database"
	"github.com/nao1215/boardcrawl/internal/fakesite"
	"github.com/nao1215/boardcrawl/internal/metrics"
	"github.com/nao1215/boardcrawl/internal/session"
)

var progressLine = regexp.MustCompile(`(?m)^\s*\d+: \d{3} - \(`)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testConfig returns a configuration pointing at site with all outputs
// under temporary directories.
func testConfig(t *testing.T, site *fakesite.Server, workers int) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.BaseURL = site.URL
	cfg.Workers = workers
	cfg.Timeout = 5 * time.Second
	cfg.OutputDir = t.TempDir()
	cfg.DBDir = t.TempDir()
	return cfg
}

// exportedLines returns the lines of the single CSV file in dir.
func exportedLines(t *testing.T, dir string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(dir, "output-*.csv"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one export file, found %v", matches)
	}

	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

// TestRunCrawl tests complete crawls against the fake leaderboard.
func TestRunCrawl(t *testing.T) {
	t.Parallel()

	t.Run("concurrent crawl exports every player", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{Records: 45, PageSize: 20})
		defer site.Close()

		cfg := testConfig(t, site, 4)
		cfg.SummaryMarkdown = filepath.Join(t.TempDir(), "reports", "summary.md")

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, &out, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}

		output := out.String()
		if got := len(progressLine.FindAllString(output, -1)); got != 14 {
			t.Errorf("expected 14 progress lines, got %d:\n%s", got, output)
		}
		if !strings.Contains(output, "(initial page request)") {
			t.Error("expected initial request in progress output")
		}
		if !strings.Contains(output, "elapsed(  14 requests,     45 players)") {
			t.Errorf("expected banner, got:\n%s", output)
		}
		if !strings.Contains(output, "Outputting the playerdata to ") {
			t.Error("expected export message")
		}

		lines := exportedLines(t, cfg.OutputDir)
		if len(lines) != 45 {
			t.Fatalf("expected 45 exported lines, got %d", len(lines))
		}
		for _, line := range lines {
			if n := len(strings.Split(line, ",")); n != 9 {
				t.Fatalf("expected 9 fields, got %d in %q", n, line)
			}
		}

		md, err := os.ReadFile(cfg.SummaryMarkdown)
		if err != nil {
			t.Fatalf("failed to read summary: %v", err)
		}
		if !strings.Contains(string(md), "# Leaderboard Crawl Report") {
			t.Error("expected markdown summary header")
		}

		db, err := database.Open(cfg.DBDir, database.Options{})
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()
		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("expected 1 recorded run, got %d", len(runs))
		}
		if runs[0].Players != 45 || runs[0].Requests != 14 || runs[0].Aborted() {
			t.Errorf("unexpected recorded run: %+v", runs[0].RunSummary)
		}
		if runs[0].ExportFile == "" {
			t.Error("expected export file in recorded run")
		}
	})

	t.Run("transport failure still exports partial data", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{Records: 45, PageSize: 20, FailPage: 2})
		defer site.Close()

		cfg := testConfig(t, site, 1)

		var out bytes.Buffer
		err := runCrawl(context.Background(), cfg, &out, discardLogger())
		if !errors.Is(err, session.ErrTransport) {
			t.Fatalf("expected transport error, got %v", err)
		}

		output := out.String()
		if !strings.Contains(output, "There has been an error with the following request:") {
			t.Errorf("expected abort report, got:\n%s", output)
		}
		want := fmt.Sprintf("   4: 500 - %s%s", site.URL, fakesite.EntryPath)
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
		if !strings.Contains(output, "20 players)") {
			t.Errorf("expected partial player count in banner, got:\n%s", output)
		}

		if lines := exportedLines(t, cfg.OutputDir); len(lines) != 20 {
			t.Errorf("expected 20 exported lines, got %d", len(lines))
		}

		db, err := database.Open(cfg.DBDir, database.Options{})
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()
		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil || len(runs) != 1 {
			t.Fatalf("expected one recorded run, got %d (%v)", len(runs), err)
		}
		if !runs[0].Aborted() {
			t.Error("expected recorded run to be aborted")
		}
	})

	t.Run("sequential crawl uses the next button", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{Records: 45, PageSize: 20})
		defer site.Close()

		cfg := testConfig(t, site, config.DefaultWorkers)
		cfg.Sequential = true
		cfg.DBDir = ""

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, &out, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}

		output := out.String()
		if got := len(progressLine.FindAllString(output, -1)); got != 5 {
			t.Errorf("expected 5 progress lines, got %d:\n%s", got, output)
		}
		if !strings.Contains(output, "(next leaderboard page 3)") {
			t.Errorf("expected next page progress, got:\n%s", output)
		}
		if lines := exportedLines(t, cfg.OutputDir); len(lines) != 45 {
			t.Errorf("expected 45 exported lines, got %d", len(lines))
		}
	})

	t.Run("trace endpoint receives spans", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{Records: 5})
		defer site.Close()

		var posts atomic.Int64
		collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
				posts.Add(1)
			}
			w.Header().Set("Content-Type", "application/x-protobuf")
			w.WriteHeader(http.StatusOK)
		}))
		defer collector.Close()

		cfg := testConfig(t, site, 1)
		cfg.DBDir = ""
		cfg.TraceEndpoint = collector.URL + "/v1/traces"

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, &out, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		if posts.Load() == 0 {
			t.Error("expected spans to be exported after the crawl")
		}
	})

	t.Run("unwritable output directory is not fatal", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{Records: 5})
		defer site.Close()

		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, nil, 0o600); err != nil {
			t.Fatalf("failed to create blocker: %v", err)
		}

		cfg := testConfig(t, site, 1)
		cfg.OutputDir = filepath.Join(blocker, "out")

		var out bytes.Buffer
		if err := runCrawl(context.Background(), cfg, &out, discardLogger()); err != nil {
			t.Fatalf("runCrawl() error = %v", err)
		}
		if !strings.Contains(out.String(), "There was an issue writing to") {
			t.Errorf("expected export failure report, got:\n%s", out.String())
		}
	})
}

// TestCrawlCmd tests the crawl command through cobra.
func TestCrawlCmd(t *testing.T) {
	t.Parallel()

	site := fakesite.New(fakesite.Options{Records: 30, PageSize: 20})
	defer site.Close()

	configPath := filepath.Join(t.TempDir(), ".boardcrawl")
	if err := os.WriteFile(configPath, []byte("workers: 2\ntimeout: 5s\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	outDir := t.TempDir()

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{
		"crawl",
		"--config", configPath,
		"--base-url", site.URL,
		"--output-dir", outDir,
		"--db-dir", t.TempDir(),
		"--metrics-addr", "127.0.0.1:0",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("crawl failed: %v\nstderr:\n%s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "elapsed(   7 requests,     30 players)") {
		t.Errorf("expected banner, got:\n%s", stdout.String())
	}
	if lines := exportedLines(t, outDir); len(lines) != 30 {
		t.Errorf("expected 30 exported lines, got %d", len(lines))
	}
}

// TestBuildConfig tests the precedence of defaults, file and flags.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), ".boardcrawl")
	content := "workers: 6\nrate: 2.5\noutputDir: from-file\nheaders:\n  X-Test: yes\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	tests := []struct {
		name    string
		args    []string
		check   func(t *testing.T, cfg *config.Config)
		wantErr error
	}{
		{
			name: "file values apply",
			args: []string{"--config", configPath},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Workers != 6 || cfg.Rate != 2.5 || cfg.OutputDir != "from-file" {
					t.Errorf("file values not applied: %+v", cfg)
				}
				if cfg.Headers["X-Test"] != "yes" || cfg.Headers["User-Agent"] == "" {
					t.Errorf("headers not merged: %v", cfg.Headers)
				}
			},
		},
		{
			name: "flags override file",
			args: []string{"--config", configPath, "--workers", "3", "-o", "from-flag", "--sequential"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Workers != 3 || cfg.OutputDir != "from-flag" || !cfg.Sequential {
					t.Errorf("flags not applied: %+v", cfg)
				}
				if cfg.Rate != 2.5 {
					t.Errorf("unset flag overrode file value: rate %v", cfg.Rate)
				}
			},
		},
		{
			name: "no-db clears the database directory",
			args: []string{"--config", configPath, "--no-db"},
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.DBDir != "" {
					t.Errorf("expected empty DBDir, got %q", cfg.DBDir)
				}
			},
		},
		{
			name:    "missing explicit file",
			args:    []string{"--config", filepath.Join(t.TempDir(), "missing.yaml")},
			wantErr: config.ErrConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewCrawlCmd()
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error = %v", err)
			}
			cfg, err := buildConfig(cmd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildConfig() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

// TestPrintAbort tests the abort report for each failure kind.
func TestPrintAbort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "transport",
			err: fmt.Errorf("worker 2: page 7: %w", &session.TransportError{
				Step: session.StepRank, Method: http.MethodPost, URL: "http://example.test/lb", StatusCode: 503, Seq: 42,
			}),
			want: "  42: 503 - http://example.test/lb",
		},
		{
			name: "protocol",
			err:  &session.ProtocolError{Step: session.StepFirstPage, Field: "__VIEWSTATE", Reason: "missing"},
			want: "unexpected page",
		},
		{name: "interrupted", err: context.Canceled, want: "interrupted"},
		{name: "other", err: errors.New("boom"), want: "The crawl stopped: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			printAbort(&buf, tt.err)
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, buf.String())
			}
		})
	}
}

// TestProgressPrinter tests the per-request progress lines.
func TestProgressPrinter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := newProgressPrinter(&buf)

	p.ObserveRequest(session.RequestEvent{Seq: 1, Status: 200, Step: session.StepInitial, URL: "http://example.test/lb"})
	p.ObserveRequest(session.RequestEvent{Seq: 12, Status: 200, Step: session.StepRank, Page: 5, URL: "http://example.test/lb"})
	p.ObserveRequest(session.RequestEvent{Seq: 13, Status: 500, Step: session.StepRank, Page: 6, Err: errors.New("failed")})

	want := "   1: 200 - (initial page request)http://example.test/lb\n" +
		"  12: 200 - (leaderboard page 5)http://example.test/lb\n"
	if buf.String() != want {
		t.Errorf("progress output = %q, want %q", buf.String(), want)
	}
}

// TestServeMetrics tests the metrics endpoint.
func TestServeMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.PageFetched()

	addr, stop, err := serveMetrics("127.0.0.1:0", m, discardLogger())
	if err != nil {
		t.Fatalf("serveMetrics() error = %v", err)
	}
	defer stop()

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "boardcrawl_crawler_pages_fetched_total 1") {
		t.Errorf("expected page counter in metrics, got:\n%s", body)
	}
}
