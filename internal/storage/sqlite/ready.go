package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

// priorityRank orders rows by priority token, highest first.
const priorityRank = `
	CASE i.priority
		WHEN 'critical' THEN 4
		WHEN 'high' THEN 3
		WHEN 'medium' THEN 2
		WHEN 'low' THEN 1
	END`

// ReadyIssues returns open, unarchived issues with no open blockers,
// highest priority first, oldest id first within a priority.
func (s *Store) ReadyIssues(ctx context.Context) ([]*types.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedIssueColumns("i")+` FROM issues i
		WHERE i.status = 'open' AND i.archived = 0
		  AND NOT EXISTS (
			SELECT 1 FROM dependencies d
			JOIN issues b ON b.id = d.blocker_id
			WHERE d.issue_id = i.id AND b.status = 'open'
		  )
		ORDER BY `+priorityRank+` DESC, i.id ASC
	`)
	if err != nil {
		return nil, wrapDBError("query ready issues", err)
	}
	return collectIssues(rows)
}

// BlockedIssues returns open, unarchived issues that have at least one open
// blocker, each paired with the ids of those blockers.
func (s *Store) BlockedIssues(ctx context.Context) ([]*types.BlockedIssue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedIssueColumns("i")+` FROM issues i
		WHERE i.status = 'open' AND i.archived = 0
		  AND EXISTS (
			SELECT 1 FROM dependencies d
			JOIN issues b ON b.id = d.blocker_id
			WHERE d.issue_id = i.id AND b.status = 'open'
		  )
		ORDER BY `+priorityRank+` DESC, i.id ASC
	`)
	if err != nil {
		return nil, wrapDBError("query blocked issues", err)
	}
	issues, err := collectIssues(rows)
	if err != nil {
		return nil, err
	}

	blocked := make([]*types.BlockedIssue, 0, len(issues))
	for _, issue := range issues {
		blockerRows, err := s.db.QueryContext(ctx, `
			SELECT d.blocker_id FROM dependencies d
			JOIN issues b ON b.id = d.blocker_id
			WHERE d.issue_id = ? AND b.status = 'open'
			ORDER BY d.blocker_id
		`, issue.ID)
		if err != nil {
			return nil, wrapDBError("query blockers", err)
		}
		var blockers []int64
		for blockerRows.Next() {
			var id int64
			if err := blockerRows.Scan(&id); err != nil {
				_ = blockerRows.Close()
				return nil, err
			}
			blockers = append(blockers, id)
		}
		if err := blockerRows.Err(); err != nil {
			_ = blockerRows.Close()
			return nil, err
		}
		_ = blockerRows.Close()
		blocked = append(blocked, &types.BlockedIssue{Issue: issue, Blockers: blockers})
	}
	return blocked, nil
}

// NextIssue picks the single most urgent ready issue: highest priority,
// then oldest creation time, then lowest id. Returns nil when nothing is
// ready.
func (s *Store) NextIssue(ctx context.Context) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+prefixedIssueColumns("i")+` FROM issues i
		WHERE i.status = 'open' AND i.archived = 0
		  AND NOT EXISTS (
			SELECT 1 FROM dependencies d
			JOIN issues b ON b.id = d.blocker_id
			WHERE d.issue_id = i.id AND b.status = 'open'
		  )
		ORDER BY `+priorityRank+` DESC, i.created_at ASC, i.id ASC
		LIMIT 1
	`)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBError("query next issue", err)
	}
	return issue, nil
}
