package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List open issues with no open blockers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		issues, err := e.store.ReadyIssues(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(issues)
			return
		}
		if len(issues) == 0 {
			fmt.Println("No issues ready to work")
			return
		}
		for _, issue := range issues {
			printIssueLine(issue)
		}
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "List open issues waiting on open blockers",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		blocked, err := e.store.BlockedIssues(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(blocked)
			return
		}
		if len(blocked) == 0 {
			fmt.Println("No blocked issues")
			return
		}
		for _, b := range blocked {
			fmt.Printf("#%-4d %-8s %s (blocked by %s)\n", b.Issue.ID, b.Issue.Priority, b.Issue.Title, formatIDs(b.Blockers))
		}
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the issue hierarchy",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		roots, err := e.store.Tree(rootCtx, status)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(roots)
			return
		}
		if len(roots) == 0 {
			fmt.Println("No issues found")
			return
		}
		for _, root := range roots {
			printTree(root, 0)
		}
	},
}

func printTree(node *types.TreeNode, depth int) {
	for i := 0; i < depth; i++ {
		fmt.Print("  ")
	}
	marker := " "
	if node.Issue.Status == types.StatusClosed {
		marker = "x"
	}
	fmt.Printf("#%d [%s] %s\n", node.Issue.ID, marker, node.Issue.Title)
	for _, child := range node.Children {
		printTree(child, depth+1)
	}
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Recommend the next issue to work on",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		issue, err := e.store.NextIssue(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(issue)
			return
		}
		if issue == nil {
			fmt.Println("Nothing to work on: no ready issues")
			return
		}
		fmt.Printf("Next: #%d [%s] %s\n", issue.ID, issue.Priority, issue.Title)
	},
}

func init() {
	treeCmd.Flags().StringP("status", "s", "", "Filter by status: open, closed, all")
	rootCmd.AddCommand(readyCmd, blockedCmd, treeCmd, nextCmd)
}
