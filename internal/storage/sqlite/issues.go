package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

// issueColumns is the canonical select list; keep scanIssue in sync.
const issueColumns = `id, title, description, status, priority, parent_id, archived, created_at, updated_at, closed_at`

// prefixedIssueColumns qualifies the select list with a table alias.
func prefixedIssueColumns(alias string) string {
	return alias + "." + strings.ReplaceAll(issueColumns, ", ", ", "+alias+".")
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanIssue.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row rowScanner) (*types.Issue, error) {
	var issue types.Issue
	var parentID sql.NullInt64
	var closedAt sql.NullTime
	var archived int64

	err := row.Scan(
		&issue.ID, &issue.Title, &issue.Description, &issue.Status,
		&issue.Priority, &parentID, &archived,
		&issue.CreatedAt, &issue.UpdatedAt, &closedAt,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		issue.ParentID = &parentID.Int64
	}
	if closedAt.Valid {
		issue.ClosedAt = &closedAt.Time
	}
	issue.Archived = archived != 0
	return &issue, nil
}

func collectIssues(rows *sql.Rows) ([]*types.Issue, error) {
	defer func() { _ = rows.Close() }()
	var issues []*types.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// CreateIssue inserts a new issue and returns it with its assigned id.
// Ids are allocated by AUTOINCREMENT and are never reused, even after
// deletion.
func (s *Store) CreateIssue(ctx context.Context, issue *types.Issue) (*types.Issue, error) {
	issue.SetDefaults()
	if err := issue.Validate(); err != nil {
		return nil, err
	}

	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		if issue.ParentID != nil {
			exists, err := issueExists(ctx, conn, *issue.ParentID)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("parent issue #%d: %w", *issue.ParentID, storage.ErrNotFound)
			}
		}

		now := time.Now().UTC()
		issue.CreatedAt = now
		issue.UpdatedAt = now

		var parent interface{}
		if issue.ParentID != nil {
			parent = *issue.ParentID
		}
		result, err := conn.ExecContext(ctx, `
			INSERT INTO issues (title, description, status, priority, parent_id, created_at, updated_at)
			VALUES (?, ?, 'open', ?, ?, ?, ?)
		`, issue.Title, issue.Description, issue.Priority, parent, now, now)
		if err != nil {
			return wrapDBError("insert issue", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get issue id: %w", err)
		}
		issue.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// GetIssue retrieves an issue by id, or storage.ErrNotFound.
func (s *Store) GetIssue(ctx context.Context, id int64) (*types.Issue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
	issue, err := scanIssue(row)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("get issue #%d", id), err)
	}
	return issue, nil
}

func issueExists(ctx context.Context, conn *sql.Conn, id int64) (bool, error) {
	var exists bool
	err := conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM issues WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, wrapDBError("check issue existence", err)
	}
	return exists, nil
}

// UpdateIssue applies a partial update and returns the updated issue;
// nil fields are left unchanged.
func (s *Store) UpdateIssue(ctx context.Context, id int64, updates storage.IssueUpdate) (*types.Issue, error) {
	if updates.Title != nil {
		if len(*updates.Title) == 0 {
			return nil, &types.ValidationError{Field: "title", Reason: "title is required"}
		}
		if len(*updates.Title) > types.MaxTitleLength {
			return nil, &types.ValidationError{Field: "title", Reason: fmt.Sprintf("title must be %d characters or less (got %d)", types.MaxTitleLength, len(*updates.Title))}
		}
	}
	if updates.Priority != nil && !types.Priority(*updates.Priority).IsValid() {
		return nil, &types.ValidationError{Field: "priority", Reason: fmt.Sprintf("invalid priority: %q (must be low, medium, high, or critical)", *updates.Priority)}
	}

	var updated *types.Issue
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		exists, err := issueExists(ctx, conn, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("issue #%d: %w", id, storage.ErrNotFound)
		}

		setClauses := []string{"updated_at = ?"}
		args := []interface{}{time.Now().UTC()}
		if updates.Title != nil {
			setClauses = append(setClauses, "title = ?")
			args = append(args, *updates.Title)
		}
		if updates.Description != nil {
			setClauses = append(setClauses, "description = ?")
			args = append(args, *updates.Description)
		}
		if updates.Priority != nil {
			setClauses = append(setClauses, "priority = ?")
			args = append(args, *updates.Priority)
		}
		args = append(args, id)

		query := fmt.Sprintf("UPDATE issues SET %s WHERE id = ?", strings.Join(setClauses, ", ")) // #nosec G201 - column names are compile-time constants
		if _, err := conn.ExecContext(ctx, query, args...); err != nil {
			return wrapDBError("update issue", err)
		}

		row := conn.QueryRowContext(ctx,
			`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
		issue, err := scanIssue(row)
		if err != nil {
			return wrapDBError("reload issue", err)
		}
		updated = issue
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CloseIssue marks an issue closed, stamping closed_at. Closing an
// already-closed issue is a no-op success (changed=false), not an error,
// to keep command scripting simple.
func (s *Store) CloseIssue(ctx context.Context, id int64) (bool, error) {
	return s.setStatus(ctx, id, types.StatusClosed)
}

// ReopenIssue returns a closed issue to open and clears closed_at.
// Reopening a never-closed issue is likewise a no-op success.
func (s *Store) ReopenIssue(ctx context.Context, id int64) (bool, error) {
	return s.setStatus(ctx, id, types.StatusOpen)
}

func (s *Store) setStatus(ctx context.Context, id int64, status types.Status) (bool, error) {
	var changed bool
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx,
			`SELECT `+issueColumns+` FROM issues WHERE id = ?`, id)
		issue, err := scanIssue(row)
		if err != nil {
			return wrapDBError(fmt.Sprintf("get issue #%d", id), err)
		}
		if issue.Status == status {
			return nil // no-op: state already matches
		}

		now := time.Now().UTC()
		var closedAt interface{}
		if status == types.StatusClosed {
			closedAt = now
		}
		if _, err := conn.ExecContext(ctx, `
			UPDATE issues SET status = ?, closed_at = ?, updated_at = ? WHERE id = ?
		`, status, closedAt, now, id); err != nil {
			return wrapDBError("set status", err)
		}
		changed = true
		return nil
	})
	return changed, err
}

// ListIssues returns issues matching the filter, ordered by id ascending.
// Archived issues are excluded unless the filter asks for them.
func (s *Store) ListIssues(ctx context.Context, filter types.IssueFilter) ([]*types.Issue, error) {
	query := `SELECT DISTINCT ` + prefixedIssueColumns("i") + ` FROM issues i`
	var conditions []string
	var args []interface{}

	if filter.Label != "" {
		query += ` JOIN labels l ON i.id = l.issue_id`
		conditions = append(conditions, "l.label = ?")
		args = append(args, filter.Label)
	}
	switch filter.Status {
	case "", string(types.StatusOpen):
		conditions = append(conditions, "i.status = 'open'")
	case string(types.StatusClosed):
		conditions = append(conditions, "i.status = 'closed'")
	case types.StatusAll:
		// no status constraint
	default:
		return nil, &types.ValidationError{Field: "status", Reason: fmt.Sprintf("invalid status filter: %q", filter.Status)}
	}
	if filter.Priority != "" {
		if !filter.Priority.IsValid() {
			return nil, &types.ValidationError{Field: "priority", Reason: fmt.Sprintf("invalid priority filter: %q", filter.Priority)}
		}
		conditions = append(conditions, "i.priority = ?")
		args = append(args, filter.Priority)
	}
	if !filter.IncludeArchived {
		conditions = append(conditions, "i.archived = 0")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY i.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("list issues", err)
	}
	return collectIssues(rows)
}
