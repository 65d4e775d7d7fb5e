package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

// AddBlocker inserts the dependency edge (issueID, blockerID): issueID is
// not ready while blockerID is open. Inserting an existing edge is a no-op.
//
// The cycle check and the insert run inside the same IMMEDIATE transaction,
// so a concurrent writer cannot slip a conflicting edge in between the
// check and the write.
func (s *Store) AddBlocker(ctx context.Context, issueID, blockerID int64) error {
	if issueID == blockerID {
		return &types.ValidationError{Field: "blocker", Reason: fmt.Sprintf("issue #%d cannot block itself", issueID)}
	}

	return s.runInTx(ctx, func(conn *sql.Conn) error {
		for _, id := range []int64{issueID, blockerID} {
			exists, err := issueExists(ctx, conn, id)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("issue #%d: %w", id, storage.ErrNotFound)
			}
		}

		// Walk "is blocked by" edges from the proposed blocker. If the
		// blocked issue is already among its transitive blockers, the new
		// edge would close a cycle. UNION (not UNION ALL) gives set
		// semantics, so the walk terminates on the actual graph depth
		// without an arbitrary limit.
		var cycle bool
		err := conn.QueryRowContext(ctx, `
			WITH RECURSIVE reach(id) AS (
				SELECT blocker_id FROM dependencies WHERE issue_id = ?
				UNION
				SELECT d.blocker_id FROM dependencies d JOIN reach r ON d.issue_id = r.id
			)
			SELECT EXISTS(SELECT 1 FROM reach WHERE id = ?)
		`, blockerID, issueID).Scan(&cycle)
		if err != nil {
			return wrapDBError("check for cycles", err)
		}
		if cycle {
			return &types.CycleError{IssueID: issueID, BlockerID: blockerID}
		}

		if _, err := conn.ExecContext(ctx, `
			INSERT OR IGNORE INTO dependencies (issue_id, blocker_id) VALUES (?, ?)
		`, issueID, blockerID); err != nil {
			return wrapDBError("add dependency", err)
		}
		return nil
	})
}

// RemoveBlocker deletes the edge (issueID, blockerID). Returns false if the
// edge did not exist.
func (s *Store) RemoveBlocker(ctx context.Context, issueID, blockerID int64) (bool, error) {
	var removed bool
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		result, err := conn.ExecContext(ctx, `
			DELETE FROM dependencies WHERE issue_id = ? AND blocker_id = ?
		`, issueID, blockerID)
		if err != nil {
			return wrapDBError("remove dependency", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		removed = rows > 0
		return nil
	})
	return removed, err
}

// GetBlockers returns the ids of issues blocking issueID, ascending.
func (s *Store) GetBlockers(ctx context.Context, issueID int64) ([]int64, error) {
	return s.edgeIDs(ctx, `SELECT blocker_id FROM dependencies WHERE issue_id = ? ORDER BY blocker_id`, issueID)
}

// GetBlocking returns the ids of issues blocked by issueID, ascending.
func (s *Store) GetBlocking(ctx context.Context, issueID int64) ([]int64, error) {
	return s.edgeIDs(ctx, `SELECT issue_id FROM dependencies WHERE blocker_id = ? ORDER BY issue_id`, issueID)
}

func (s *Store) edgeIDs(ctx context.Context, query string, arg int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, wrapDBError("query dependencies", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
