// Package cache persists built index snapshots keyed by corpus content hash.
//
// The cache is an optimization only: every failure here is reported to the
// caller as an error to log, never as a reason to fail a request.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/skillscope/internal/index"
)

// FileName is the database file inside the cache directory.
const FileName = "index.db"

// Entry describes one cached snapshot.
type Entry struct {
	Hash     string    `json:"hash"`
	BuiltAt  time.Time `json:"built_at"`
	DocCount int       `json:"doc_count"`
	Bytes    int       `json:"bytes"`
}

// Cache is a SQLite-backed snapshot cache.
type Cache struct {
	db   *sql.DB
	dir  string
	path string
	lock *FileLock
}

// Open opens or creates the cache in dir. A database that fails its
// integrity check is removed and recreated empty.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName)

	if err := checkIntegrity(path); err != nil {
		slog.Warn("index_cache_corrupted",
			slog.String("path", path),
			slog.String("error", err.Error()))
		if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
			return nil, fmt.Errorf("index cache corrupted at %s and cannot remove: %w (original error: %v)", path, removeErr, err)
		}
		_ = os.Remove(path + "-wal")
		_ = os.Remove(path + "-shm")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	c := &Cache{db: db, dir: dir, path: path, lock: NewFileLock(dir)}
	if err := c.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return c, nil
}

// checkIntegrity opens an existing database read-only and runs a quick check.
// A missing file is fine.
func checkIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check returned %q", result)
	}
	return nil
}

func (c *Cache) initSchema() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS snapshots (
		corpus_hash TEXT PRIMARY KEY,
		version     INTEGER NOT NULL,
		built_at    INTEGER NOT NULL,
		doc_count   INTEGER NOT NULL,
		payload     BLOB NOT NULL
	);`)
	return err
}

// Get returns the cached index for hash, or (nil, nil) on a miss.
// Snapshots written by an older index format count as a miss.
func (c *Cache) Get(ctx context.Context, hash string) (*index.Index, error) {
	var payload []byte
	var version int
	err := c.db.QueryRowContext(ctx,
		"SELECT version, payload FROM snapshots WHERE corpus_hash = ?", hash).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if version != index.SnapshotVersion {
		return nil, nil
	}

	var snap index.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Hash != hash {
		return nil, fmt.Errorf("snapshot hash mismatch: stored %s, want %s", snap.Hash, hash)
	}
	return index.Import(snap)
}

// Put stores idx under its corpus hash, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, idx *index.Index) error {
	payload, err := json.Marshal(idx.Export())
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := c.lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = c.lock.Unlock() }()

	_, err = c.db.ExecContext(ctx, `
	INSERT INTO snapshots (corpus_hash, version, built_at, doc_count, payload)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(corpus_hash) DO UPDATE SET
		version = excluded.version,
		built_at = excluded.built_at,
		doc_count = excluded.doc_count,
		payload = excluded.payload`,
		idx.Hash(), index.SnapshotVersion, time.Now().Unix(), idx.Len(), payload)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// List returns the cached entries, newest first.
func (c *Cache) List(ctx context.Context) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT corpus_hash, built_at, doc_count, length(payload) FROM snapshots ORDER BY built_at DESC, corpus_hash")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var builtAt int64
		if err := rows.Scan(&e.Hash, &builtAt, &e.DocCount, &e.Bytes); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		e.BuiltAt = time.Unix(builtAt, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune removes every snapshot except the one for keepHash.
func (c *Cache) Prune(ctx context.Context, keepHash string) (int, error) {
	if err := c.lock.Lock(); err != nil {
		return 0, err
	}
	defer func() { _ = c.lock.Unlock() }()

	res, err := c.db.ExecContext(ctx, "DELETE FROM snapshots WHERE corpus_hash <> ?", keepHash)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Clear removes every snapshot.
func (c *Cache) Clear(ctx context.Context) error {
	_, err := c.Prune(ctx, "")
	return err
}

// Path returns the database file path.
func (c *Cache) Path() string { return c.path }

// Close checkpoints the WAL and closes the database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	_, _ = c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return c.db.Close()
}
