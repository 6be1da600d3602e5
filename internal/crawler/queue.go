package crawler

import "sync"

// PageClaimQueue hands out page numbers to workers. Each page is claimed
// by exactly one worker.
type PageClaimQueue struct {
	mu        sync.Mutex
	pages     []int
	populated bool
}

// NewPageClaimQueue returns an empty queue.
func NewPageClaimQueue() *PageClaimQueue {
	return &PageClaimQueue{}
}

// Populate fills the queue with pages first..last in ascending order.
// Only the first call has an effect; it returns false for every later call.
// An empty range still marks the queue as populated.
func (q *PageClaimQueue) Populate(first, last int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.populated {
		return false
	}
	q.populated = true
	for p := first; p <= last; p++ {
		q.pages = append(q.pages, p)
	}
	return true
}

// Claim removes and returns the lowest remaining page. It returns false
// when the queue is empty.
func (q *PageClaimQueue) Claim() (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pages) == 0 {
		return 0, false
	}
	p := q.pages[0]
	q.pages = q.pages[1:]
	return p, true
}

// Remaining returns the number of unclaimed pages.
func (q *PageClaimQueue) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pages)
}
