package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

// issueDetail is the full view of one issue for show --json.
type issueDetail struct {
	*types.Issue
	Blockers  []int64       `json:"blockers,omitempty"`
	Blocking  []int64       `json:"blocking,omitempty"`
	Subissues []int64       `json:"subissues,omitempty"`
	TotalTime time.Duration `json:"total_time,omitempty"`
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an issue with its labels, comments, and relationships",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		issue, err := e.store.GetIssue(rootCtx, id)
		if err != nil {
			fatalf("%v", err)
		}

		detail := &issueDetail{Issue: issue}
		if detail.Labels, err = e.store.GetLabels(rootCtx, id); err != nil {
			fatalf("%v", err)
		}
		if detail.Comments, err = e.store.GetComments(rootCtx, id); err != nil {
			fatalf("%v", err)
		}
		if detail.Blockers, err = e.store.GetBlockers(rootCtx, id); err != nil {
			fatalf("%v", err)
		}
		if detail.Blocking, err = e.store.GetBlocking(rootCtx, id); err != nil {
			fatalf("%v", err)
		}
		if detail.TotalTime, err = e.store.TotalTime(rootCtx, id); err != nil {
			fatalf("%v", err)
		}

		all, err := e.store.ListIssues(rootCtx, types.IssueFilter{Status: types.StatusAll, IncludeArchived: true})
		if err != nil {
			fatalf("%v", err)
		}
		for _, other := range all {
			if other.ParentID != nil && *other.ParentID == id {
				detail.Subissues = append(detail.Subissues, other.ID)
			}
		}

		if jsonOutput {
			printJSON(detail)
			return
		}
		printIssueDetail(detail)
	},
}

func printIssueDetail(d *issueDetail) {
	fmt.Printf("Issue #%d: %s\n", d.ID, d.Title)
	fmt.Printf("  Status:   %s\n", d.Status)
	fmt.Printf("  Priority: %s\n", d.Priority)
	if d.ParentID != nil {
		fmt.Printf("  Parent:   #%d\n", *d.ParentID)
	}
	if d.Archived {
		fmt.Println("  Archived: yes")
	}
	if d.Description != "" {
		fmt.Printf("  Description: %s\n", d.Description)
	}
	if len(d.Labels) > 0 {
		fmt.Printf("  Labels:   %s\n", strings.Join(d.Labels, ", "))
	}
	if len(d.Blockers) > 0 {
		fmt.Printf("  Blocked by: %s\n", formatIDs(d.Blockers))
	}
	if len(d.Blocking) > 0 {
		fmt.Printf("  Blocking:   %s\n", formatIDs(d.Blocking))
	}
	if len(d.Subissues) > 0 {
		fmt.Printf("  Subissues:  %s\n", formatIDs(d.Subissues))
	}
	if d.TotalTime > 0 {
		fmt.Printf("  Time spent: %s\n", d.TotalTime.Round(time.Second))
	}
	fmt.Printf("  Created:  %s\n", d.CreatedAt.Local().Format(time.RFC3339))
	if d.ClosedAt != nil {
		fmt.Printf("  Closed:   %s\n", d.ClosedAt.Local().Format(time.RFC3339))
	}
	for _, c := range d.Comments {
		fmt.Printf("  [%s] %s\n", c.CreatedAt.Local().Format("2006-01-02 15:04"), c.Text)
	}
}

func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, ", ")
}

func init() {
	rootCmd.AddCommand(showCmd)
}
