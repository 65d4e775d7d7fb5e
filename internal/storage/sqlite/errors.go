package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sqlite3 "github.com/ncruces/go-sqlite3"

	"github.com/pchaganti/ax-chain-link/internal/storage"
)

// wrapDBError wraps a database error with operation context. sql.ErrNoRows
// becomes storage.ErrNotFound and lock contention becomes storage.ErrBusy so
// callers match on the taxonomy rather than on driver internals.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if IsBusyError(err) {
		return fmt.Errorf("%s: %w", op, storage.ErrBusy)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsBusyError reports whether err is SQLITE_BUSY or SQLITE_LOCKED, i.e.
// write-lock contention that the caller may retry after a backoff.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3.BUSY || code == sqlite3.LOCKED
	}
	// Fallback for errors that cross a fmt.Errorf boundary without the
	// original type.
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}

// isCorruptError reports whether err means the file is not a usable SQLite
// database: corruption or a file that was never a database to begin with.
func isCorruptError(err error) bool {
	if err == nil {
		return false
	}
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		code := serr.Code()
		return code == sqlite3.CORRUPT || code == sqlite3.NOTADB
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_CORRUPT") ||
		strings.Contains(msg, "SQLITE_NOTADB") ||
		strings.Contains(msg, "file is not a database")
}

// isConstraintError reports whether err is a CHECK/UNIQUE/FK violation.
func isConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqlite3.CONSTRAINT
	}
	return strings.Contains(err.Error(), "constraint failed")
}
