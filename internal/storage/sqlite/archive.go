package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

// ArchiveIssue hides a closed issue from default listings. Only closed
// issues can be archived; archiving an archived issue is a no-op.
func (s *Store) ArchiveIssue(ctx context.Context, id int64) error {
	return s.runInTx(ctx, func(conn *sql.Conn) error {
		var status string
		err := conn.QueryRowContext(ctx, `SELECT status FROM issues WHERE id = ?`, id).Scan(&status)
		if err != nil {
			return wrapDBError(fmt.Sprintf("issue #%d", id), err)
		}
		if status != string(types.StatusClosed) {
			return &types.ValidationError{Field: "status", Reason: fmt.Sprintf("issue #%d is still open; close it before archiving", id)}
		}
		_, err = conn.ExecContext(ctx, `
			UPDATE issues SET archived = 1, updated_at = ? WHERE id = ? AND archived = 0
		`, time.Now().UTC(), id)
		if err != nil {
			return wrapDBError("archive issue", err)
		}
		return nil
	})
}

// UnarchiveIssue returns an archived issue to normal listings.
func (s *Store) UnarchiveIssue(ctx context.Context, id int64) error {
	return s.runInTx(ctx, func(conn *sql.Conn) error {
		exists, err := issueExists(ctx, conn, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("issue #%d: %w", id, storage.ErrNotFound)
		}
		_, err = conn.ExecContext(ctx, `
			UPDATE issues SET archived = 0, updated_at = ? WHERE id = ? AND archived = 1
		`, time.Now().UTC(), id)
		if err != nil {
			return wrapDBError("unarchive issue", err)
		}
		return nil
	})
}

// ArchiveOlderThan archives every closed, unarchived issue whose closed_at
// falls before the cutoff. Returns the archived ids ascending.
func (s *Store) ArchiveOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error) {
	var ids []int64
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT id FROM issues
			WHERE status = 'closed' AND archived = 0 AND closed_at < ?
			ORDER BY id
		`, cutoff.UTC())
		if err != nil {
			return wrapDBError("query archive candidates", err)
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				_ = rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		// The connection is dedicated to this transaction; the rows must
		// be drained and closed before the UPDATE can run on it.
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}
		_, err = conn.ExecContext(ctx, `
			UPDATE issues SET archived = 1, updated_at = ?
			WHERE status = 'closed' AND archived = 0 AND closed_at < ?
		`, time.Now().UTC(), cutoff.UTC())
		if err != nil {
			return wrapDBError("archive issues", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListArchived returns archived issues, most recently closed first.
func (s *Store) ListArchived(ctx context.Context) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedIssueColumns("i")+` FROM issues i
		WHERE i.archived = 1
		ORDER BY i.closed_at DESC, i.id ASC
	`)
	if err != nil {
		return nil, wrapDBError("query archived issues", err)
	}
	return collectIssues(rows)
}
