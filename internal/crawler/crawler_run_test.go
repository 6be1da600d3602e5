package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/boardcrawl/internal/fakesite"
	"github.com/nao1215/boardcrawl/internal/metrics"
	"github.com/nao1215/boardcrawl/internal/session"
)

var quiet = slog.New(slog.DiscardHandler)

// sessionFactory returns a factory that opens real sessions against site.
func sessionFactory(site *fakesite.Server, counter *session.Counter) SessionFactory {
	return func(_ context.Context, _ int) (Session, error) {
		cfg := session.DefaultConfig()
		cfg.BaseURL = site.URL
		cfg.Timeout = 5 * time.Second
		return session.New(cfg, session.WithCounter(counter), session.WithLogger(quiet))
	}
}

// TestRun tests complete and aborted crawls against the fake site.
func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("concurrent crawl collects every player", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{Records: 45, PageSize: 20})
		defer site.Close()

		m := metrics.New()
		counter := &session.Counter{}
		c, err := New(sessionFactory(site, counter), WithWorkers(4), WithLogger(quiet), WithMetrics(m))
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}

		res, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(res.Players) != 45 {
			t.Errorf("expected 45 players, got %d", len(res.Players))
		}
		for i := 1; i <= 45; i++ {
			if _, ok := res.Players[site.PlayerName(i)]; !ok {
				t.Errorf("missing player %q", site.PlayerName(i))
			}
		}
		if res.Manifest.TotalPages != 3 || res.Manifest.TotalRecords != 45 {
			t.Errorf("unexpected manifest %+v", res.Manifest)
		}
		if res.PagesFetched != 3 {
			t.Errorf("expected 3 pages fetched, got %d", res.PagesFetched)
		}
		if res.Duplicates != 0 {
			t.Errorf("expected no duplicates, got %d", res.Duplicates)
		}
		if res.Mode != ModeConcurrent || res.Workers != 4 {
			t.Errorf("unexpected mode %q with %d workers", res.Mode, res.Workers)
		}
		// 4 bootstraps of 3 requests plus 2 rank jumps.
		if counter.Load() != 14 {
			t.Errorf("expected 14 requests, got %d", counter.Load())
		}
		if got := testutil.ToFloat64(m.Players); got != 45 {
			t.Errorf("expected players gauge 45, got %v", got)
		}
		if got := testutil.ToFloat64(m.ActiveWorkers); got != 0 {
			t.Errorf("expected no active workers, got %v", got)
		}
	})

	t.Run("more workers than pages", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{Records: 45, PageSize: 20})
		defer site.Close()

		c, err := New(sessionFactory(site, &session.Counter{}), WithWorkers(8), WithLogger(quiet))
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}
		res, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(res.Players) != 45 {
			t.Errorf("expected 45 players, got %d", len(res.Players))
		}
		served := site.Served()
		if served[2] != 1 || served[3] != 1 {
			t.Errorf("expected pages 2 and 3 fetched once each, got %v", served)
		}
	})

	t.Run("single page board", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{Records: 12, PageSize: 20})
		defer site.Close()

		c, err := New(sessionFactory(site, &session.Counter{}), WithWorkers(3), WithLogger(quiet))
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}
		res, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(res.Players) != 12 {
			t.Errorf("expected 12 players, got %d", len(res.Players))
		}
		if res.Manifest.TotalPages != 0 || res.PagesFetched != 1 {
			t.Errorf("expected a single page without pager, got %+v / %d", res.Manifest, res.PagesFetched)
		}
	})

	t.Run("malformed rows are counted", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{MalformedPage: 2})
		defer site.Close()

		c, err := New(sessionFactory(site, &session.Counter{}), WithWorkers(2), WithLogger(quiet))
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}
		res, err := c.Run(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(res.Players) != 45 {
			t.Errorf("expected 45 players, got %d", len(res.Players))
		}
		if res.ParseFailures != 1 {
			t.Errorf("expected 1 parse failure, got %d", res.ParseFailures)
		}
		if _, ok := res.Players["broken"]; ok {
			t.Error("malformed row must not be stored")
		}
	})

	t.Run("transport error aborts with partial data", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{FailPage: 2})
		defer site.Close()

		c, err := New(sessionFactory(site, &session.Counter{}), WithWorkers(1), WithLogger(quiet))
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}
		res, err := c.Run(context.Background())
		if !errors.Is(err, session.ErrTransport) {
			t.Fatalf("expected ErrTransport, got %v", err)
		}
		var terr *session.TransportError
		if !errors.As(err, &terr) || terr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected 500 transport error, got %v", err)
		}
		if res == nil {
			t.Fatal("expected a partial result")
		}
		if len(res.Players) != 20 {
			t.Errorf("expected the 20 page-1 players, got %d", len(res.Players))
		}
		if _, ok := res.Players[site.PlayerName(1)]; !ok {
			t.Error("expected page-1 player in partial result")
		}
	})

	t.Run("protocol error during discovery releases waiters", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{DropViewStatePage: 1})
		defer site.Close()

		c, err := New(sessionFactory(site, &session.Counter{}), WithWorkers(4), WithLogger(quiet))
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}

		done := make(chan error, 1)
		go func() {
			_, err := c.Run(context.Background())
			done <- err
		}()

		select {
		case err := <-done:
			if !errors.Is(err, session.ErrProtocol) {
				t.Errorf("expected ErrProtocol, got %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("crawl did not abort")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		site := fakesite.New(fakesite.Options{})
		defer site.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c, err := New(sessionFactory(site, &session.Counter{}), WithWorkers(2), WithLogger(quiet))
		if err != nil {
			t.Fatalf("failed to create crawler: %v", err)
		}
		res, err := c.Run(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if res == nil || len(res.Players) != 0 {
			t.Errorf("expected empty partial result, got %+v", res)
		}
	})
}

// TestRunSequential tests the single-session next-page walk.
func TestRunSequential(t *testing.T) {
	t.Parallel()

	site := fakesite.New(fakesite.Options{})
	defer site.Close()

	counter := &session.Counter{}
	c, err := New(sessionFactory(site, counter), WithSequential(true), WithLogger(quiet))
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(res.Players) != 45 {
		t.Errorf("expected 45 players, got %d", len(res.Players))
	}
	if res.Mode != ModeSequential || res.Workers != 1 {
		t.Errorf("unexpected mode %q with %d workers", res.Mode, res.Workers)
	}
	if counter.Load() != 5 {
		t.Errorf("expected 5 requests, got %d", counter.Load())
	}
}

// TestRunDuplicates tests that players seen twice are counted once in the
// result and reported to the metrics.
func TestRunDuplicates(t *testing.T) {
	t.Parallel()

	// Ranks 41..45 reuse the names of ranks 1..5.
	site := fakesite.New(fakesite.Options{
		Name: func(i int) string {
			if i > 40 {
				i -= 40
			}
			return fmt.Sprintf("player%03d", i)
		},
	})
	defer site.Close()

	m := metrics.New()
	c, err := New(sessionFactory(site, &session.Counter{}), WithSequential(true), WithLogger(quiet), WithMetrics(m))
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}
	res, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if len(res.Players) != 40 {
		t.Errorf("expected 40 players, got %d", len(res.Players))
	}
	if res.Duplicates != 5 {
		t.Errorf("expected 5 duplicates, got %d", res.Duplicates)
	}
	if got := testutil.ToFloat64(m.Duplicates); got != 5 {
		t.Errorf("expected duplicates counter 5, got %v", got)
	}
	if got := res.Players["player001"].Rank(); got != "41" {
		t.Errorf("expected later record to win, got rank %q", got)
	}
}

// TestRunLogsExpectations tests that the discovered manifest is logged.
func TestRunLogsExpectations(t *testing.T) {
	t.Parallel()

	site := fakesite.New(fakesite.Options{})
	defer site.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	c, err := New(sessionFactory(site, &session.Counter{}), WithSequential(true), WithLogger(logger))
	if err != nil {
		t.Fatalf("failed to create crawler: %v", err)
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`msg="expecting pages" pages=3`, `msg="expecting about players" players=45`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output, got: %s", want, out)
		}
	}
}

// TestNew tests option validation.
func TestNew(t *testing.T) {
	t.Parallel()

	factory := func(context.Context, int) (Session, error) { return nil, nil }

	tests := []struct {
		name    string
		factory SessionFactory
		opts    []Option
		wantErr error
	}{
		{name: "defaults", factory: factory},
		{name: "no factory", wantErr: ErrNoSessionFactory},
		{name: "zero workers", factory: factory, opts: []Option{WithWorkers(0)}, wantErr: ErrInvalidWorkers},
		{name: "too many workers", factory: factory, opts: []Option{WithWorkers(MaxWorkers + 1)}, wantErr: ErrInvalidWorkers},
		{name: "max workers", factory: factory, opts: []Option{WithWorkers(MaxWorkers)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := New(tt.factory, tt.opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if err == nil && c.workers == 0 {
				t.Error("expected workers to be set")
			}
		})
	}
}
