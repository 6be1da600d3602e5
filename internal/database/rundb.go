package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/boardcrawl/internal/model"
)

// FileName is the database file inside the data directory.
const FileName = "boardcrawl.db"

// timeLayout stores timestamps at fixed width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var (
	// ErrRunNotFound is returned when no run matches an id.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRun is returned when an id prefix matches several runs.
	ErrAmbiguousRun = errors.New("run id prefix is ambiguous")
)

// RunDB stores crawl runs and the player archive.
type RunDB struct {
	// db is the underlying connection pool.
	db *sql.DB

	// dbPath is the database file path.
	dbPath string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and database when missing.
	CreateIfNotExists bool

	// EnableWAL turns on write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens the history database in dbDir.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		}
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return rdb, nil
}

// Path returns the database file path.
func (r *RunDB) Path() string {
	return r.dbPath
}

// Close closes the database.
func (r *RunDB) Close() error {
	return r.db.Close()
}

func (r *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		mode TEXT NOT NULL,
		workers INTEGER NOT NULL,
		total_pages INTEGER NOT NULL,
		total_records INTEGER NOT NULL,
		requests INTEGER NOT NULL,
		pages_fetched INTEGER NOT NULL,
		players INTEGER NOT NULL,
		duplicates INTEGER NOT NULL,
		parse_failures INTEGER NOT NULL,
		error TEXT,
		export_file TEXT,
		digest TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Players collected by each run
	CREATE TABLE IF NOT EXISTS players (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		key TEXT NOT NULL,
		fields TEXT NOT NULL,
		PRIMARY KEY (run_id, key)
	);

	-- Latest row of every player across runs
	CREATE TABLE IF NOT EXISTS player_archive (
		key TEXT PRIMARY KEY,
		fields TEXT NOT NULL,
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		last_run TEXT NOT NULL,
		seen_count INTEGER NOT NULL DEFAULT 1
	);
	`
	_, err := r.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is a stored run.
type RunRecord struct {
	model.RunSummary

	// Digest identifies the player set of the run.
	Digest string

	// CreatedAt is when the run was saved.
	CreatedAt time.Time
}

// Digest returns the hex SHA3-256 of players in export order. Two runs
// with equal digests collected identical data.
func Digest(players map[string]model.PlayerRecord) string {
	keys := make([]string, 0, len(players))
	for k := range players {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha3.New256()
	for _, k := range keys {
		_, _ = h.Write([]byte(strings.Join(players[k].Columns(), ",")))
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SaveRun stores a run with its players and folds them into the archive.
// It returns the digest of the player set.
func (r *RunDB) SaveRun(ctx context.Context, s *model.RunSummary, players map[string]model.PlayerRecord) (string, error) {
	digest := Digest(players)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at, elapsed_ms, mode, workers, total_pages, total_records,
		requests, pages_fetched, players, duplicates, parse_failures, error, export_file, digest)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.StartedAt.UTC().Format(timeLayout),
		s.Elapsed.Milliseconds(),
		s.Mode,
		s.Workers,
		s.Manifest.TotalPages,
		s.Manifest.TotalRecords,
		s.Requests,
		s.PagesFetched,
		s.Players,
		s.Duplicates,
		s.ParseFailures,
		s.Error,
		s.ExportFile,
		digest,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	insPlayer, err := tx.PrepareContext(ctx, `INSERT INTO players (run_id, key, fields) VALUES (?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare player insert: %w", err)
	}
	defer insPlayer.Close()

	upsArchive, err := tx.PrepareContext(ctx, `
	INSERT INTO player_archive (key, fields, first_seen, last_seen, last_run, seen_count)
	VALUES (?, ?, ?, ?, ?, 1)
	ON CONFLICT(key) DO UPDATE SET
		fields = excluded.fields,
		last_seen = excluded.last_seen,
		last_run = excluded.last_run,
		seen_count = player_archive.seen_count + 1`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare archive upsert: %w", err)
	}
	defer upsArchive.Close()

	seen := s.StartedAt.UTC().Format(timeLayout)
	for key, rec := range players {
		fields, err := json.Marshal(rec.Fields)
		if err != nil {
			return "", fmt.Errorf("failed to serialize player %q: %w", key, err)
		}
		if _, err := insPlayer.ExecContext(ctx, s.ID, key, string(fields)); err != nil {
			return "", fmt.Errorf("failed to save player %q: %w", key, err)
		}
		if _, err := upsArchive.ExecContext(ctx, key, string(fields), seen, seen, s.ID); err != nil {
			return "", fmt.Errorf("failed to archive player %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return digest, nil
}

const runColumns = `id, started_at, elapsed_ms, mode, workers, total_pages, total_records,
	requests, pages_fetched, players, duplicates, parse_failures, error, export_file, digest, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	var (
		rec        RunRecord
		started    string
		elapsedMS  int64
		errText    sql.NullString
		exportFile sql.NullString
		created    string
	)
	err := sc.Scan(
		&rec.ID, &started, &elapsedMS, &rec.Mode, &rec.Workers,
		&rec.Manifest.TotalPages, &rec.Manifest.TotalRecords,
		&rec.Requests, &rec.PagesFetched, &rec.RunSummary.Players,
		&rec.Duplicates, &rec.ParseFailures, &errText, &exportFile,
		&rec.Digest, &created,
	)
	if err != nil {
		return nil, err
	}
	rec.StartedAt = parseTimestamp(started)
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	rec.Error = errText.String
	rec.ExportFile = exportFile.String
	rec.CreatedAt = parseTimestamp(created)
	return &rec, nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or
// less returns every run.
func (r *RunDB) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id is or starts with id.
func (r *RunDB) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? || '%' LIMIT 2`, id, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		found = append(found, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		for _, rec := range found {
			if rec.ID == id {
				return rec, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// RunPlayers returns the players collected by the run with the exact id.
func (r *RunDB) RunPlayers(ctx context.Context, id string) (map[string]model.PlayerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, fields FROM players WHERE run_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()
	return scanPlayers(rows)
}

// Archive returns the latest row of every player ever collected.
func (r *RunDB) Archive(ctx context.Context) (map[string]model.PlayerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, fields FROM player_archive`)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()
	return scanPlayers(rows)
}

func scanPlayers(rows *sql.Rows) (map[string]model.PlayerRecord, error) {
	out := make(map[string]model.PlayerRecord)
	for rows.Next() {
		var key, fields string
		if err := rows.Scan(&key, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		rec := model.PlayerRecord{Key: key}
		if err := json.Unmarshal([]byte(fields), &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode player %q: %w", key, err)
		}
		out[key] = rec
	}
	return out, rows.Err()
}

// timestampFormats are the layouts SQLite may hand back, most specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
