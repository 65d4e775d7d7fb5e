package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

// CreateMilestone creates a named milestone and returns its id.
func (s *Store) CreateMilestone(ctx context.Context, name, description string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &types.ValidationError{Field: "name", Reason: "milestone name is required"}
	}
	if len(name) > types.MaxTitleLength {
		return 0, &types.ValidationError{Field: "name", Reason: fmt.Sprintf("milestone name exceeds %d characters", types.MaxTitleLength)}
	}

	var id int64
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		result, err := conn.ExecContext(ctx, `
			INSERT INTO milestones (name, description, created_at) VALUES (?, ?, ?)
		`, name, description, time.Now().UTC())
		if err != nil {
			return wrapDBError("create milestone", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get milestone id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

const milestoneColumns = `id, name, description, status, created_at, closed_at`

func scanMilestone(row rowScanner) (*types.Milestone, error) {
	var m types.Milestone
	var status string
	var closed sql.NullTime
	err := row.Scan(&m.ID, &m.Name, &m.Description, &status, &m.CreatedAt, &closed)
	if err != nil {
		return nil, err
	}
	m.Status = types.Status(status)
	if closed.Valid {
		t := closed.Time
		m.ClosedAt = &t
	}
	return &m, nil
}

// GetMilestone fetches one milestone by id.
func (s *Store) GetMilestone(ctx context.Context, id int64) (*types.Milestone, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+milestoneColumns+` FROM milestones WHERE id = ?
	`, id)
	m, err := scanMilestone(row)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("milestone #%d", id), err)
	}
	return m, nil
}

// ListMilestones returns milestones filtered by status: "open" (default
// when empty), "closed", or "all". Ordered by id.
func (s *Store) ListMilestones(ctx context.Context, statusFilter string) ([]*types.Milestone, error) {
	if statusFilter == "" {
		statusFilter = string(types.StatusOpen)
	}

	query := `SELECT ` + milestoneColumns + ` FROM milestones`
	var args []any
	if statusFilter != types.StatusAll {
		query += ` WHERE status = ?`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("query milestones", err)
	}
	defer func() { _ = rows.Close() }()

	var milestones []*types.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

// CloseMilestone marks a milestone closed. Closing a closed milestone is a
// no-op.
func (s *Store) CloseMilestone(ctx context.Context, id int64) error {
	return s.runInTx(ctx, func(conn *sql.Conn) error {
		var status string
		err := conn.QueryRowContext(ctx, `SELECT status FROM milestones WHERE id = ?`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("milestone #%d: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return wrapDBError("query milestone", err)
		}
		if status == string(types.StatusClosed) {
			return nil
		}
		_, err = conn.ExecContext(ctx, `
			UPDATE milestones SET status = 'closed', closed_at = ? WHERE id = ?
		`, time.Now().UTC(), id)
		if err != nil {
			return wrapDBError("close milestone", err)
		}
		return nil
	})
}

// AddToMilestone attaches an issue to a milestone. Idempotent.
func (s *Store) AddToMilestone(ctx context.Context, milestoneID, issueID int64) error {
	return s.runInTx(ctx, func(conn *sql.Conn) error {
		var exists bool
		err := conn.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM milestones WHERE id = ?)
		`, milestoneID).Scan(&exists)
		if err != nil {
			return wrapDBError("check milestone", err)
		}
		if !exists {
			return fmt.Errorf("milestone #%d: %w", milestoneID, storage.ErrNotFound)
		}
		exists, err = issueExists(ctx, conn, issueID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("issue #%d: %w", issueID, storage.ErrNotFound)
		}
		if _, err := conn.ExecContext(ctx, `
			INSERT OR IGNORE INTO milestone_issues (milestone_id, issue_id) VALUES (?, ?)
		`, milestoneID, issueID); err != nil {
			return wrapDBError("add issue to milestone", err)
		}
		return nil
	})
}

// RemoveFromMilestone detaches an issue from a milestone. Idempotent.
func (s *Store) RemoveFromMilestone(ctx context.Context, milestoneID, issueID int64) error {
	return s.runInTx(ctx, func(conn *sql.Conn) error {
		if _, err := conn.ExecContext(ctx, `
			DELETE FROM milestone_issues WHERE milestone_id = ? AND issue_id = ?
		`, milestoneID, issueID); err != nil {
			return wrapDBError("remove issue from milestone", err)
		}
		return nil
	})
}

// MilestoneIssues returns the issues attached to a milestone, by id.
func (s *Store) MilestoneIssues(ctx context.Context, milestoneID int64) ([]*types.Issue, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM milestones WHERE id = ?)
	`, milestoneID).Scan(&exists)
	if err != nil {
		return nil, wrapDBError("check milestone", err)
	}
	if !exists {
		return nil, fmt.Errorf("milestone #%d: %w", milestoneID, storage.ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedIssueColumns("i")+` FROM issues i
		JOIN milestone_issues mi ON mi.issue_id = i.id
		WHERE mi.milestone_id = ?
		ORDER BY i.id ASC
	`, milestoneID)
	if err != nil {
		return nil, wrapDBError("query milestone issues", err)
	}
	return collectIssues(rows)
}
