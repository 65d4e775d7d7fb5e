package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/pchaganti/ax-chain-link/internal/storage"
)

// DeleteIssue removes an issue and everything that references it. Without
// cascade the call fails with ErrHasChildren if the issue has sub-issues;
// with cascade the whole subtree goes. Returns the deleted ids ascending.
func (s *Store) DeleteIssue(ctx context.Context, id int64, cascade bool) ([]int64, error) {
	var deleted []int64
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		exists, err := issueExists(ctx, conn, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("issue #%d: %w", id, storage.ErrNotFound)
		}

		ids, err := collectSubtree(ctx, conn, id)
		if err != nil {
			return err
		}
		if len(ids) > 1 && !cascade {
			return fmt.Errorf("issue #%d: %w", id, storage.ErrHasChildren)
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
		args := make([]any, len(ids))
		for i, v := range ids {
			args[i] = v
		}

		// Dependency edges in either direction, plus every table that
		// carries an issue reference. Session pointers are nulled rather
		// than deleted so session history survives.
		doubled := append(append([]any{}, args...), args...)
		if _, err := conn.ExecContext(ctx,
			`DELETE FROM dependencies WHERE issue_id IN (`+placeholders+`) OR blocker_id IN (`+placeholders+`)`,
			doubled...); err != nil {
			return wrapDBError("delete issue", err)
		}
		stmts := []string{
			`DELETE FROM labels WHERE issue_id IN (` + placeholders + `)`,
			`DELETE FROM comments WHERE issue_id IN (` + placeholders + `)`,
			`DELETE FROM time_entries WHERE issue_id IN (` + placeholders + `)`,
			`DELETE FROM milestone_issues WHERE issue_id IN (` + placeholders + `)`,
			`UPDATE sessions SET active_issue_id = NULL WHERE active_issue_id IN (` + placeholders + `)`,
			`DELETE FROM issues WHERE id IN (` + placeholders + `)`,
		}
		for _, stmt := range stmts {
			if _, err := conn.ExecContext(ctx, stmt, args...); err != nil {
				return wrapDBError("delete issue", err)
			}
		}

		deleted = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// collectSubtree returns id and all of its descendants, ascending.
func collectSubtree(ctx context.Context, conn *sql.Conn, id int64) ([]int64, error) {
	rows, err := conn.QueryContext(ctx, `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM issues WHERE id = ?
			UNION
			SELECT i.id FROM issues i JOIN subtree s ON i.parent_id = s.id
		)
		SELECT id FROM subtree
	`, id)
	if err != nil {
		return nil, wrapDBError("collect subtree", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		ids = append(ids, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
