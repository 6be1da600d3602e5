package crawler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/boardcrawl/internal/model"
)

// TestDiscoveryBarrier tests max-tracking and release.
func TestDiscoveryBarrier(t *testing.T) {
	t.Parallel()

	t.Run("publishes the maximum once", func(t *testing.T) {
		t.Parallel()

		const parties = 16

		var (
			publishes atomic.Int32
			published model.CrawlManifest
			lasts     atomic.Int32
		)
		b := NewDiscoveryBarrier(parties, func(m model.CrawlManifest) {
			publishes.Add(1)
			published = m
		})

		var passedEarly atomic.Bool
		var wg sync.WaitGroup
		for i := 1; i <= parties; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, last := b.Report(model.CrawlManifest{TotalPages: i, TotalRecords: i * 20}); last {
					lasts.Add(1)
				}
				if _, err := b.Wait(context.Background()); err != nil {
					t.Errorf("unexpected wait error: %v", err)
				}
				if publishes.Load() != 1 {
					passedEarly.Store(true)
				}
			}()
		}
		wg.Wait()

		if publishes.Load() != 1 {
			t.Errorf("expected 1 publish, got %d", publishes.Load())
		}
		if lasts.Load() != 1 {
			t.Errorf("expected 1 last reporter, got %d", lasts.Load())
		}
		if passedEarly.Load() {
			t.Error("a waiter passed before publish")
		}
		if published.TotalPages != parties || published.TotalRecords != parties*20 {
			t.Errorf("expected max manifest, got %+v", published)
		}
		if !b.Released() {
			t.Error("expected barrier to be released")
		}
	})

	t.Run("waiters block until the last report", func(t *testing.T) {
		t.Parallel()

		b := NewDiscoveryBarrier(2, nil)
		b.Report(model.CrawlManifest{TotalPages: 3})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := b.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}

		b.Report(model.CrawlManifest{TotalPages: 2})
		m, err := b.Wait(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.TotalPages != 3 {
			t.Errorf("expected 3 pages, got %d", m.TotalPages)
		}
	})

	t.Run("reports after release are ignored", func(t *testing.T) {
		t.Parallel()

		b := NewDiscoveryBarrier(1, nil)
		if _, last := b.Report(model.CrawlManifest{TotalPages: 2}); !last {
			t.Error("expected single report to be last")
		}
		if _, last := b.Report(model.CrawlManifest{TotalPages: 9}); last {
			t.Error("expected late report to be ignored")
		}
		if b.Manifest().TotalPages != 2 {
			t.Errorf("expected manifest unchanged, got %+v", b.Manifest())
		}
	})
}
