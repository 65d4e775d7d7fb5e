package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/types"
)

// AddLabel attaches a label to an issue. Adding a label the issue already
// carries is a no-op.
func (s *Store) AddLabel(ctx context.Context, issueID int64, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return &types.ValidationError{Field: "label", Reason: "label cannot be empty"}
	}

	return s.runInTx(ctx, func(conn *sql.Conn) error {
		exists, err := issueExists(ctx, conn, issueID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("issue #%d: %w", issueID, storage.ErrNotFound)
		}
		if _, err := conn.ExecContext(ctx, `
			INSERT OR IGNORE INTO labels (issue_id, label) VALUES (?, ?)
		`, issueID, label); err != nil {
			return wrapDBError("add label", err)
		}
		return nil
	})
}

// RemoveLabel detaches a label. Returns false if the issue did not carry it.
func (s *Store) RemoveLabel(ctx context.Context, issueID int64, label string) (bool, error) {
	var removed bool
	err := s.runInTx(ctx, func(conn *sql.Conn) error {
		result, err := conn.ExecContext(ctx, `
			DELETE FROM labels WHERE issue_id = ? AND label = ?
		`, issueID, strings.TrimSpace(label))
		if err != nil {
			return wrapDBError("remove label", err)
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

// GetLabels returns an issue's labels sorted alphabetically.
func (s *Store) GetLabels(ctx context.Context, issueID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT label FROM labels WHERE issue_id = ? ORDER BY label
	`, issueID)
	if err != nil {
		return nil, wrapDBError("query labels", err)
	}
	defer func() { _ = rows.Close() }()

	var labels []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, err
		}
		labels = append(labels, l)
	}
	return labels, rows.Err()
}
