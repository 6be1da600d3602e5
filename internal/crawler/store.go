package crawler

import (
	"log/slog"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/nao1215/boardcrawl/internal/model"
)

// ResultStore is the concurrent map of collected players.
// A later record for an existing key overwrites the earlier one.
type ResultStore struct {
	players    *xsync.MapOf[string, model.PlayerRecord]
	duplicates atomic.Int64
	logger     *slog.Logger
	onDup      func(prev, next model.PlayerRecord)
}

// StoreOption configures a ResultStore.
type StoreOption func(*ResultStore)

// WithStoreLogger sets the logger used for duplicate warnings.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *ResultStore) {
		s.logger = logger
	}
}

// WithDuplicateHook sets a function called for every duplicate key.
// It runs on the worker goroutine that stored the later record.
func WithDuplicateHook(fn func(prev, next model.PlayerRecord)) StoreOption {
	return func(s *ResultStore) {
		s.onDup = fn
	}
}

// NewResultStore returns an empty store.
func NewResultStore(opts ...StoreOption) *ResultStore {
	s := &ResultStore{
		players: xsync.NewMapOf[string, model.PlayerRecord](),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert stores rec under rec.Key and reports whether the key was already
// present.
func (s *ResultStore) Upsert(rec model.PlayerRecord) bool {
	prev, loaded := s.players.LoadAndStore(rec.Key, rec)
	if !loaded {
		return false
	}

	s.duplicates.Add(1)
	s.logger.Warn("player already parsed", "player", rec.Key, "previous_rank", prev.Rank(), "rank", rec.Rank())
	if s.onDup != nil {
		s.onDup(prev, rec)
	}
	return true
}

// Snapshot returns a copy of the stored records. Records upserted while the
// snapshot is taken may or may not be included.
func (s *ResultStore) Snapshot() map[string]model.PlayerRecord {
	out := make(map[string]model.PlayerRecord, s.players.Size())
	s.players.Range(func(key string, rec model.PlayerRecord) bool {
		out[key] = rec
		return true
	})
	return out
}

// Len returns the number of unique players.
func (s *ResultStore) Len() int {
	return s.players.Size()
}

// Duplicates returns the number of upserts that replaced a record.
func (s *ResultStore) Duplicates() int64 {
	return s.duplicates.Load()
}
