package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		label, _ := cmd.Flags().GetString("label")
		priority, _ := cmd.Flags().GetString("priority")
		archived, _ := cmd.Flags().GetBool("archived")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		issues, err := e.store.ListIssues(rootCtx, types.IssueFilter{
			Status:          status,
			Label:           label,
			Priority:        types.Priority(priority),
			IncludeArchived: archived,
		})
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(issues)
			return
		}
		if len(issues) == 0 {
			fmt.Println("No issues found")
			return
		}
		for _, issue := range issues {
			printIssueLine(issue)
		}
	},
}

func printIssueLine(issue *types.Issue) {
	marker := " "
	if issue.Status == types.StatusClosed {
		marker = "x"
	}
	fmt.Printf("#%-4d [%s] %-8s %s\n", issue.ID, marker, issue.Priority, issue.Title)
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Filter by status: open, closed, all")
	listCmd.Flags().StringP("label", "l", "", "Filter by label")
	listCmd.Flags().StringP("priority", "p", "", "Filter by priority")
	listCmd.Flags().Bool("archived", false, "Include archived issues")
	rootCmd.AddCommand(listCmd)
}
