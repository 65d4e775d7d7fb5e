package sqlite

import (
	"context"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

// Tree builds the parent/child hierarchy. statusFilter narrows which issues
// appear: "open" (default when empty), "closed", or "all". An issue whose
// parent fails the filter is promoted to a root so it stays visible.
func (s *Store) Tree(ctx context.Context, statusFilter string) ([]*types.TreeNode, error) {
	if statusFilter == "" {
		statusFilter = string(types.StatusOpen)
	}

	query := `SELECT ` + prefixedIssueColumns("i") + ` FROM issues i WHERE i.archived = 0`
	var args []any
	if statusFilter != types.StatusAll {
		query += ` AND i.status = ?`
		args = append(args, statusFilter)
	}
	query += ` ORDER BY i.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapDBError("query tree", err)
	}
	issues, err := collectIssues(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*types.TreeNode, len(issues))
	for _, issue := range issues {
		byID[issue.ID] = &types.TreeNode{Issue: issue}
	}

	// Roots are issues with no parent plus issues whose parent did not
	// survive the filter. Promoting the latter keeps a workable child
	// visible when its parent is closed.
	var roots []*types.TreeNode
	for _, issue := range issues {
		node := byID[issue.ID]
		if issue.ParentID != nil {
			if parent, ok := byID[*issue.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots, nil
}
