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

// AddComment appends a comment to an issue and returns it with its
// assigned id and timestamp.
func (s *Store) AddComment(ctx context.Context, issueID int64, text string) (*types.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &types.ValidationError{Field: "text", Reason: "comment text cannot be empty"}
	}

	var comment *types.Comment
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		exists, err := issueExists(ctx, conn, issueID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("issue #%d: %w", issueID, storage.ErrNotFound)
		}

		now := time.Now().UTC()
		result, err := conn.ExecContext(ctx, `
			INSERT INTO comments (issue_id, text, created_at) VALUES (?, ?, ?)
		`, issueID, text, now)
		if err != nil {
			return wrapDBError("add comment", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get comment id: %w", err)
		}
		comment = &types.Comment{ID: id, IssueID: issueID, Text: text, CreatedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// GetComments returns an issue's comments in insertion order.
func (s *Store) GetComments(ctx context.Context, issueID int64) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, issue_id, text, created_at FROM comments
		WHERE issue_id = ? ORDER BY id
	`, issueID)
	if err != nil {
		return nil, wrapDBError("query comments", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*types.Comment
	for rows.Next() {
		var c types.Comment
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
