package crawler

import (
	"context"
	"sync"

	"github.com/nao1215/boardcrawl/internal/model"
)

// DiscoveryBarrier collects the manifest seen by every worker and releases
// them all once the last one has reported.
//
// The manifest is max-tracked: workers may observe a drifting leaderboard,
// and the largest page count wins. The last reporter runs publish exactly
// once before anybody is released.
type DiscoveryBarrier struct {
	mu       sync.Mutex
	pending  int
	manifest model.CrawlManifest
	publish  func(model.CrawlManifest)
	release  chan struct{}
	released bool
}

// NewDiscoveryBarrier returns a barrier for parties reporters. publish may
// be nil.
func NewDiscoveryBarrier(parties int, publish func(model.CrawlManifest)) *DiscoveryBarrier {
	if parties < 1 {
		parties = 1
	}
	return &DiscoveryBarrier{
		pending: parties,
		publish: publish,
		release: make(chan struct{}),
	}
}

// Report records one worker's manifest. It returns the merged manifest so
// far and whether this call was the last report, which published and
// released the barrier. Reports after release are ignored.
func (b *DiscoveryBarrier) Report(m model.CrawlManifest) (model.CrawlManifest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return b.manifest, false
	}

	b.manifest = b.manifest.Max(m)
	b.pending--
	if b.pending > 0 {
		return b.manifest, false
	}

	if b.publish != nil {
		b.publish(b.manifest)
	}
	b.released = true
	close(b.release)
	return b.manifest, true
}

// Wait blocks until the barrier is released or ctx is done.
func (b *DiscoveryBarrier) Wait(ctx context.Context) (model.CrawlManifest, error) {
	select {
	case <-b.release:
		return b.Manifest(), nil
	case <-ctx.Done():
		return model.CrawlManifest{}, ctx.Err()
	}
}

// Released reports whether the last party has reported.
func (b *DiscoveryBarrier) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

// Manifest returns the manifest merged so far.
func (b *DiscoveryBarrier) Manifest() model.CrawlManifest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.manifest
}
