// Package sqlite implements the storage interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver" // database/sql driver
	_ "github.com/ncruces/go-sqlite3/embed"  // embedded SQLite WASM build
	"github.com/tetratelabs/wazero"

	"github.com/pchaganti/ax-chain-link/internal/storage"
)

// Verify Store implements the storage interface at compile time.
var _ storage.Storage = (*Store)(nil)

// Store implements the storage interface using SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
	closed atomic.Bool // Tracks whether Close() has been called
}

// setupWASMCache configures WASM compilation caching to reduce SQLite
// startup time. Falls back to an in-memory cache if the filesystem cache
// directory cannot be created.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if userCache, err := os.UserCacheDir(); err == nil {
		dir := filepath.Join(userCache, "chainlink", "wasm")
		if c, err := wazero.NewCompilationCacheWithDir(dir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

func init() {
	setupWASMCache()
}

// busyTimeoutMillis bounds how long a single statement waits on the write
// lock before failing with SQLITE_BUSY. Lock waits never hang indefinitely;
// exhaustion surfaces as storage.ErrBusy.
const busyTimeoutMillis = 5000

// New opens (or creates) the database at path, applies the schema and any
// pending migrations, and verifies file integrity. A database that fails
// the integrity check is reported as storage.ErrCorrupt; Recover offers
// the quarantine-and-reinitialize path.
func New(ctx context.Context, path string) (*Store, error) {
	var connStr string
	switch {
	case path == ":memory:":
		// Shared cache so multiple pooled connections see the same data.
		// WAL does not work for in-memory databases.
		connStr = "file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(" + fmt.Sprint(busyTimeoutMillis) + ")&_time_format=sqlite"
	case strings.HasPrefix(path, "file:"):
		connStr = path
		if !strings.Contains(path, "_pragma=foreign_keys") {
			connStr += "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(" + fmt.Sprint(busyTimeoutMillis) + ")&_time_format=sqlite"
		}
	default:
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=foreign_keys(ON)&_pragma=busy_timeout(" + fmt.Sprint(busyTimeoutMillis) + ")&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite in-memory databases are isolated per connection by default;
	// force a single connection so all callers share one view.
	isInMemory := path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))
	if isInMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL supports 1 writer + N readers; cap the pool so lock
		// contention does not pile up goroutines.
		db.SetMaxOpenConns(runtime.NumCPU() + 1)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(0)
	}

	if !isInMemory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			if isCorruptError(err) {
				return nil, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
			}
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		if isCorruptError(err) {
			return nil, fmt.Errorf("%w: %v", storage.ErrCorrupt, err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Integrity check before touching the schema: a corrupt file must be
	// reported, not silently rewritten.
	if err := verifyIntegrity(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	absPath := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		absPath, err = filepath.Abs(path)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	return &Store{db: db, dbPath: absPath}, nil
}

// verifyIntegrity runs SQLite's quick_check and maps failures to
// storage.ErrCorrupt.
func verifyIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check(1)").Scan(&result); err != nil {
		return fmt.Errorf("%w: quick_check failed: %v", storage.ErrCorrupt, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", storage.ErrCorrupt, result)
	}
	return nil
}

// Recover quarantines a corrupt database file and reinitializes a fresh
// one in its place. It returns the quarantine path so the caller can report
// exactly what was set aside; the old data is renamed, never deleted.
func Recover(ctx context.Context, path string) (*Store, string, error) {
	quarantine := fmt.Sprintf("%s.corrupt-%s", path, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(path, quarantine); err != nil {
		return nil, "", fmt.Errorf("failed to quarantine corrupt database: %w", err)
	}
	// WAL sidecars belong to the quarantined file; a fresh database must
	// not replay them.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Rename(path+suffix, quarantine+suffix); err != nil && !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to quarantine %s sidecar: %w", suffix, err)
		}
	}

	store, err := New(ctx, path)
	if err != nil {
		return nil, quarantine, err
	}
	return store, quarantine, nil
}

// Close checkpoints the WAL and closes the database connection. Without the
// checkpoint, writes may be stranded in the WAL between CLI invocations.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Flush forces buffered WAL frames into the main database file. The daemon
// calls this periodically so an abrupt process kill loses at most one flush
// interval of durability, not correctness.
func (s *Store) Flush(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(PASSIVE)")
	if err != nil {
		return wrapDBError("flush", err)
	}
	return nil
}

// Path returns the absolute path to the database file.
func (s *Store) Path() string {
	return s.dbPath
}

// IsClosed returns true if Close() has been called on this store.
func (s *Store) IsClosed() bool {
	return s.closed.Load()
}
