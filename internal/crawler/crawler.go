package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/boardcrawl/internal/codec"
	"github.com/nao1215/boardcrawl/internal/metrics"
	"github.com/nao1215/boardcrawl/internal/model"
)

// Worker limits.
const (
	DefaultWorkers = 24
	MaxWorkers     = 128
)

// Crawl modes.
const (
	ModeConcurrent = "concurrent"
	ModeSequential = "sequential"
)

// Session is the part of session.Client the crawler drives.
type Session interface {
	Bootstrap(ctx context.Context) (string, error)
	RequestPage(ctx context.Context, page int) (string, error)
	RequestNextPage(ctx context.Context) (string, error)
}

// SessionFactory creates the session for one worker. Worker ids start at 1.
type SessionFactory func(ctx context.Context, worker int) (Session, error)

// Result is the outcome of a crawl. Run returns it even when the crawl
// aborted, holding whatever was collected.
type Result struct {
	// Mode is ModeConcurrent or ModeSequential.
	Mode string

	// Workers is the number of workers started.
	Workers int

	// Manifest is the merged manifest reported during discovery.
	Manifest model.CrawlManifest

	// Players is a snapshot of the result store.
	Players map[string]model.PlayerRecord

	// PagesFetched counts pages whose rows were merged.
	PagesFetched int64

	// ParseFailures counts skipped row blocks.
	ParseFailures int64

	// Duplicates counts players seen more than once.
	Duplicates int64

	// Elapsed is the wall-clock time of the crawl.
	Elapsed time.Duration
}

// Crawler collects a whole leaderboard with a pool of sessions.
type Crawler struct {
	// factory creates one session per worker.
	factory SessionFactory

	// workers is the pool size in concurrent mode.
	workers int

	// sequential selects the single-session next-page walk.
	sequential bool

	codec   codec.Codec
	logger  *slog.Logger
	metrics *metrics.Metrics
	store   *ResultStore
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithWorkers sets the number of concurrent sessions.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		c.workers = n
	}
}

// WithCodec sets the codec used to read pages.
func WithCodec(cd codec.Codec) Option {
	return func(c *Crawler) {
		c.codec = cd
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithMetrics records crawl statistics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) {
		c.metrics = m
	}
}

// WithSequential walks the pages with one session using the pager's next
// control instead of concurrent rank jumps.
func WithSequential(sequential bool) Option {
	return func(c *Crawler) {
		c.sequential = sequential
	}
}

// New creates a Crawler.
func New(factory SessionFactory, opts ...Option) (*Crawler, error) {
	if factory == nil {
		return nil, ErrNoSessionFactory
	}

	c := &Crawler{
		factory: factory,
		workers: DefaultWorkers,
		codec:   codec.New(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.workers < 1 || c.workers > MaxWorkers {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, c.workers)
	}
	if c.sequential {
		c.workers = 1
	}
	c.store = NewResultStore(
		WithStoreLogger(c.logger),
		WithDuplicateHook(func(_, _ model.PlayerRecord) {
			c.metrics.DuplicateObserved()
		}),
	)
	return c, nil
}

// run is the shared state of one Run call.
type run struct {
	pages         atomic.Int64
	parseFailures atomic.Int64

	mu       sync.Mutex
	manifest model.CrawlManifest
}

func (r *run) setManifest(m model.CrawlManifest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.manifest = r.manifest.Max(m)
}

func (r *run) getManifest() model.CrawlManifest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.manifest
}

// Run crawls every page. The first transport or protocol error cancels all
// workers and is returned together with the partial Result.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	r := &run{}

	var err error
	mode := ModeConcurrent
	if c.sequential {
		mode = ModeSequential
		err = c.runSequential(ctx, r)
	} else {
		err = c.runConcurrent(ctx, r)
	}

	res := &Result{
		Mode:          mode,
		Workers:       c.workers,
		Manifest:      r.getManifest(),
		Players:       c.store.Snapshot(),
		PagesFetched:  r.pages.Load(),
		ParseFailures: r.parseFailures.Load(),
		Duplicates:    c.store.Duplicates(),
		Elapsed:       time.Since(start),
	}
	if err != nil {
		c.logger.Error("crawl aborted", "error", err, "players", len(res.Players), "pages", res.PagesFetched)
		return res, err
	}
	c.logger.Info("crawl finished", "players", len(res.Players), "pages", res.PagesFetched, "elapsed", res.Elapsed)
	return res, nil
}

func (c *Crawler) runConcurrent(ctx context.Context, r *run) error {
	queue := NewPageClaimQueue()
	barrier := NewDiscoveryBarrier(c.workers, func(m model.CrawlManifest) {
		queue.Populate(2, m.Pages())
		c.logExpectations(m)
	})

	g, ctx := errgroup.WithContext(ctx)
	for id := 1; id <= c.workers; id++ {
		g.Go(func() error {
			return c.worker(ctx, id, r, queue, barrier)
		})
	}
	err := g.Wait()
	if err != nil && !barrier.Released() {
		c.logger.Warn("crawl stopped before discovery completed", "error", err)
	}
	r.setManifest(barrier.Manifest())
	return err
}

// worker bootstraps a session, takes part in discovery and then drains
// the queue.
func (c *Crawler) worker(ctx context.Context, id int, r *run, queue *PageClaimQueue, barrier *DiscoveryBarrier) error {
	c.metrics.WorkerStarted()
	defer c.metrics.WorkerStopped()

	logger := c.logger.With("worker", id)

	sess, err := c.factory(ctx, id)
	if err != nil {
		return fmt.Errorf("worker %d: failed to create session: %w", id, err)
	}

	doc, err := sess.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("worker %d: page 1: %w", id, err)
	}

	manifest := codec.Manifest(c.codec, doc)
	logger.Debug("discovered manifest", "pages", manifest.TotalPages, "records", manifest.TotalRecords)
	if _, last := barrier.Report(manifest); last {
		c.merge(r, logger, doc, 1)
	}

	if _, err := barrier.Wait(ctx); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, ok := queue.Claim()
		if !ok {
			return nil
		}
		logger.Debug("claimed page", "page", page, "remaining", queue.Remaining())

		doc, err := sess.RequestPage(ctx, page)
		if err != nil {
			return fmt.Errorf("worker %d: page %d: %w", id, page, err)
		}
		c.merge(r, logger, doc, page)
	}
}

func (c *Crawler) runSequential(ctx context.Context, r *run) error {
	c.metrics.WorkerStarted()
	defer c.metrics.WorkerStopped()

	logger := c.logger.With("worker", 1)

	sess, err := c.factory(ctx, 1)
	if err != nil {
		return fmt.Errorf("worker 1: failed to create session: %w", err)
	}

	doc, err := sess.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("worker 1: page 1: %w", err)
	}

	manifest := codec.Manifest(c.codec, doc)
	r.setManifest(manifest)
	c.logExpectations(manifest)
	c.merge(r, logger, doc, 1)

	for page := 2; page <= manifest.Pages(); page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := sess.RequestNextPage(ctx)
		if err != nil {
			return fmt.Errorf("worker 1: page %d: %w", page, err)
		}
		c.merge(r, logger, doc, page)
	}
	return nil
}

// merge extracts the rows of one page into the store.
func (c *Crawler) merge(r *run, logger *slog.Logger, doc string, page int) {
	rows := c.codec.PlayerRows(doc)
	for _, w := range rows.Warnings {
		logger.Debug("skipped row", "page", page, "warning", w.String())
	}
	r.parseFailures.Add(int64(len(rows.Warnings)))
	c.metrics.AddParseFailures(len(rows.Warnings))

	for _, rec := range rows.Records {
		c.store.Upsert(rec)
	}

	r.pages.Add(1)
	c.metrics.PageFetched()
	c.metrics.SetPlayers(c.store.Len())
	logger.Debug("merged page", "page", page, "rows", len(rows.Records))
}

func (c *Crawler) logExpectations(m model.CrawlManifest) {
	c.logger.Info("expecting pages", "pages", m.Pages())
	if m.TotalRecords > 0 {
		c.logger.Info("expecting about players", "players", m.TotalRecords)
	}
}
