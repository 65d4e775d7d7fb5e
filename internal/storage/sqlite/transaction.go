package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pchaganti/ax-chain-link/internal/storage"
)

// How long runInTx keeps retrying BEGIN IMMEDIATE before giving up with
// storage.ErrBusy. Each individual attempt is already bounded by the
// busy_timeout pragma; this bounds the whole acquisition. Variable so
// contention tests can shrink it.
var beginRetryMaxElapsed = 10 * time.Second

func newBeginBackoff(ctx context.Context) backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxElapsedTime = beginRetryMaxElapsed
	return backoff.WithContext(bo, ctx)
}

// runInTx executes fn inside a single atomic transaction.
//
// The transaction uses BEGIN IMMEDIATE to acquire the write lock up front,
// so the consistency checks fn performs (cycle detection, active-session
// uniqueness, child counts) and the writes that depend on them cannot be
// interleaved with another process. The transaction boundary is the
// consistency-check boundary.
//
// Lifecycle:
//  1. Acquire a dedicated connection from the pool
//  2. BEGIN IMMEDIATE, retried with exponential backoff on SQLITE_BUSY
//  3. Execute fn against that connection
//  4. On success: COMMIT. On error or panic: ROLLBACK.
func (s *Store) runInTx(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	begin := func() error {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err != nil && !IsBusyError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	if err := backoff.Retry(begin, newBeginBackoff(ctx)); err != nil {
		if IsBusyError(err) {
			return fmt.Errorf("begin transaction: %w", storage.ErrBusy)
		}
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			// Background context so rollback completes even if ctx was
			// cancelled mid-transaction.
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(conn); err != nil {
		return err // rollback happens in the defer
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return wrapDBError("commit transaction", err)
	}
	committed = true
	return nil
}
