package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/nao1215/boardcrawl/internal/config"
	"github.com/nao1215/boardcrawl/internal/crawler"
	"github.com/nao1215/boardcrawl/internal/database"
	"github.com/nao1215/boardcrawl/internal/export"
	applog "github.com/nao1215/boardcrawl/internal/log"
	"github.com/nao1215/boardcrawl/internal/metrics"
	"github.com/nao1215/boardcrawl/internal/model"
	"github.com/nao1215/boardcrawl/internal/report"
	"github.com/nao1215/boardcrawl/internal/session"
	"github.com/nao1215/boardcrawl/internal/telemetry"
)

// topPlayers is the number of players listed in the Markdown summary.
const topPlayers = 10

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Collect the whole leaderboard into a CSV file",
		Long: `Crawl opens one session per worker. Every session passes the age gate and
loads the first leaderboard page; once all of them have reported the page
count, the remaining pages are shared out through a queue. Each request is
printed as it completes:

     7: 200 - (leaderboard page 3)http://www.socom.com/en-us/Leaderboards/SOCOM4

The collected players are written to output-<timestamp>-<pid>.csv, even when
the crawl aborts, and the run is recorded in the history database.

Examples:
  # Crawl with the default 24 workers
  boardcrawl crawl

  # Fewer workers, at most 5 requests per second
  boardcrawl crawl --workers 4 --rate 5

  # Walk the pages one by one with a single session
  boardcrawl crawl --sequential

  # Write a Markdown summary and expose Prometheus metrics while crawling
  boardcrawl crawl -m summary.md --metrics-addr 127.0.0.1:9100

  # Send request spans to a local OpenTelemetry collector
  boardcrawl crawl --trace-endpoint http://localhost:4318/v1/traces`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent sessions")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Float64P("rate", "r", 0,
		"Maximum requests per second across all workers (0 = unlimited)")
	cmd.Flags().Int("page-size", config.DefaultPageSize,
		"Rows per leaderboard page")
	cmd.Flags().BoolP("sequential", "s", false,
		"Walk pages with a single session using the pager's next button")
	cmd.Flags().String("base-url", "",
		"Leaderboard site address (default "+session.DefaultBaseURL+")")

	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputDir,
		"Directory for the CSV export")
	cmd.Flags().StringP("summary-markdown", "m", "",
		"Write a Markdown run summary to this file")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .boardcrawl in current or home directory)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run history database")
	cmd.Flags().Bool("no-db", false,
		"Do not record the run in the history database")

	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address during the crawl")
	cmd.Flags().String("trace-endpoint", "",
		"Export OpenTelemetry spans to this OTLP/HTTP traces URL")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := applog.New(cmd.ErrOrStderr(), applog.Options{Verbose: cfg.Verbose, JSON: cfg.LogJSON})
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig layers defaults, the configuration file and explicitly set
// flags, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rate") {
		if cfg.Rate, err = flags.GetFloat64("rate"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("page-size") {
		if cfg.PageSize, err = flags.GetInt("page-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("sequential") {
		if cfg.Sequential, err = flags.GetBool("sequential"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("base-url") {
		if cfg.BaseURL, err = flags.GetString("base-url"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output-dir") {
		if cfg.OutputDir, err = flags.GetString("output-dir"); err != nil {
			return nil, err
		}
	}

	if cfg.SummaryMarkdown, err = flags.GetString("summary-markdown"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	if noDB {
		cfg.DBDir = ""
	}
	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	if cfg.TraceEndpoint, err = flags.GetString("trace-endpoint"); err != nil {
		return nil, err
	}
	if cfg.LogJSON, err = flags.GetBool("log-json"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// runCrawl performs one crawl and everything that follows it: the abort
// report, the banner, the CSV export, the history record and the
// optional Markdown summary. It returns an error when the crawl aborted.
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	m := metrics.New()
	if cfg.MetricsAddr != "" {
		_, stop, err := serveMetrics(cfg.MetricsAddr, m, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	var sessionOpts []session.Option
	if cfg.TraceEndpoint != "" {
		tel, err := telemetry.Setup(ctx, cfg.TraceEndpoint, getVersion())
		if err != nil {
			return err
		}
		defer shutdownTelemetry(tel, logger)

		var span trace.Span
		ctx, span = tel.Tracer().Start(ctx, "boardcrawl.crawl")
		defer span.End()
		sessionOpts = append(sessionOpts, session.WithTracer(tel.Tracer()))
	}

	mode, workers := crawler.ModeConcurrent, cfg.Workers
	if cfg.Sequential {
		mode, workers = crawler.ModeSequential, 1
	}
	summary := model.NewRunSummary(mode, workers)
	logger = logger.With("run", summary.ID)

	counter := &session.Counter{}
	limiter := cfg.Limiter()
	observer := session.Observers{newProgressPrinter(out), m}
	sessionCfg := cfg.Session()

	factory := func(_ context.Context, worker int) (crawler.Session, error) {
		opts := append([]session.Option{
			session.WithLogger(logger.With("worker", worker)),
			session.WithCounter(counter),
			session.WithObserver(observer),
			session.WithLimiter(limiter),
		}, sessionOpts...)
		client, err := session.New(sessionCfg, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	c, err := crawler.New(factory,
		crawler.WithWorkers(cfg.Workers),
		crawler.WithSequential(cfg.Sequential),
		crawler.WithLogger(logger),
		crawler.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	logger.Info("starting crawl", "mode", mode, "workers", workers, "baseURL", cfg.BaseURL)
	res, runErr := c.Run(ctx)

	summary.Elapsed = res.Elapsed
	summary.Manifest = res.Manifest
	summary.Requests = counter.Load()
	summary.PagesFetched = res.PagesFetched
	summary.Players = len(res.Players)
	summary.Duplicates = res.Duplicates
	summary.ParseFailures = res.ParseFailures
	if runErr != nil {
		summary.Error = runErr.Error()
		printAbort(out, runErr)
	}

	if _, err := report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose)).Write(summary); err != nil {
		logger.Error("failed to print summary", "error", err)
	}

	summary.ExportFile = exportPlayers(out, cfg.OutputDir, res.Players, logger)
	saveHistory(ctx, cfg.DBDir, summary, res.Players, out, logger)

	if cfg.SummaryMarkdown != "" {
		newWriter := func(w io.Writer) report.Writer {
			return report.NewMarkdownWriter(w, report.WithTopPlayers(res.Players, topPlayers))
		}
		if err := writeReportFile(cfg.SummaryMarkdown, summary, newWriter); err != nil {
			logger.Error("failed to write markdown summary", "path", cfg.SummaryMarkdown, "error", err)
			fmt.Fprintf(out, "There was an issue writing to %s\n", cfg.SummaryMarkdown)
		}
	}

	if runErr != nil {
		return fmt.Errorf("crawl aborted: %w", runErr)
	}
	return nil
}

// shutdownTelemetry flushes the spans of the crawl.
func shutdownTelemetry(tel *telemetry.Telemetry, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tel.Shutdown(ctx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}
}

// printAbort describes why the crawl stopped. Transport failures name the
// request that failed by its sequence number.
func printAbort(w io.Writer, err error) {
	fmt.Fprintln(w)

	var terr *session.TransportError
	var perr *session.ProtocolError
	switch {
	case errors.As(err, &terr):
		fmt.Fprintln(w, "There has been an error with the following request:")
		fmt.Fprintf(w, "%4d: %d - %s\n", terr.Seq, terr.StatusCode, terr.URL)
		fmt.Fprintf(w, "      %v\n", err)
	case errors.As(err, &perr):
		fmt.Fprintln(w, "The leaderboard returned an unexpected page:")
		fmt.Fprintf(w, "      %v\n", err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "The crawl was interrupted.")
	default:
		fmt.Fprintf(w, "The crawl stopped: %v\n", err)
	}
}

// exportPlayers writes the CSV file and returns its path, or an empty
// string when nothing could be written. Failures are reported, never
// returned.
func exportPlayers(w io.Writer, dir string, players map[string]model.PlayerRecord, logger *slog.Logger) string {
	path, err := export.WriteFile(dir, players)
	if path != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Outputting the playerdata to %s\n", path)
	}
	if err != nil {
		logger.Error("export failed", "dir", dir, "error", err)
		if path == "" {
			fmt.Fprintf(w, "There was an issue writing to %s\n", dir)
		} else {
			fmt.Fprintf(w, "There was an issue writing to %s\n", path)
		}
		return ""
	}
	return path
}

// saveHistory records the run. An empty dbDir disables it.
func saveHistory(ctx context.Context, dbDir string, s *model.RunSummary, players map[string]model.PlayerRecord, w io.Writer, logger *slog.Logger) {
	if dbDir == "" {
		return
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		logger.Error("failed to open history database", "dir", dbDir, "error", err)
		fmt.Fprintf(w, "There was an issue recording the run: %v\n", err)
		return
	}
	defer db.Close()

	// An interrupted crawl is still recorded.
	digest, err := db.SaveRun(context.WithoutCancel(ctx), s, players)
	if err != nil {
		logger.Error("failed to save run", "error", err)
		fmt.Fprintf(w, "There was an issue recording the run: %v\n", err)
		return
	}
	logger.Info("run recorded", "db", db.Path(), "digest", digest)
}

// writeReportFile renders s into path with the writer newWriter builds
// for the file.
func writeReportFile(path string, s *model.RunSummary, newWriter func(io.Writer) report.Writer) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	_, err = newWriter(f).Write(s)
	return err
}
