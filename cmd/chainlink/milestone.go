package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

var milestoneCmd = &cobra.Command{
	Use:   "milestone",
	Short: "Group issues toward a named goal",
}

var milestoneCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a milestone",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		description, _ := cmd.Flags().GetString("description")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		id, err := e.store.CreateMilestone(rootCtx, args[0], description)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(map[string]any{"id": id, "name": args[0]})
			return
		}
		fmt.Printf("Created milestone #%d: %s\n", id, args[0])
	},
}

var milestoneListCmd = &cobra.Command{
	Use:   "list",
	Short: "List milestones",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		milestones, err := e.store.ListMilestones(rootCtx, status)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(milestones)
			return
		}
		if len(milestones) == 0 {
			fmt.Println("No milestones found")
			return
		}
		for _, m := range milestones {
			fmt.Printf("#%-4d [%s] %s\n", m.ID, m.Status, m.Name)
		}
	},
}

var milestoneShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a milestone and its progress",
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

		m, err := e.store.GetMilestone(rootCtx, id)
		if err != nil {
			fatalf("%v", err)
		}
		issues, err := e.store.MilestoneIssues(rootCtx, id)
		if err != nil {
			fatalf("%v", err)
		}

		closed := 0
		for _, issue := range issues {
			if issue.Status == types.StatusClosed {
				closed++
			}
		}

		if jsonOutput {
			printJSON(map[string]any{
				"milestone": m,
				"issues":    issues,
				"closed":    closed,
				"total":     len(issues),
			})
			return
		}
		fmt.Printf("Milestone #%d: %s [%s]\n", m.ID, m.Name, m.Status)
		if m.Description != "" {
			fmt.Printf("  %s\n", m.Description)
		}
		fmt.Printf("  Progress: %d/%d closed\n", closed, len(issues))
		for _, issue := range issues {
			printIssueLine(issue)
		}
	},
}

var milestoneCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a milestone",
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

		if err := e.store.CloseMilestone(rootCtx, id); err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(map[string]int64{"closed": id})
			return
		}
		fmt.Printf("Closed milestone #%d\n", id)
	},
}

var milestoneAddCmd = &cobra.Command{
	Use:   "add <milestone-id> <issue-id>...",
	Short: "Attach issues to a milestone",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		milestoneIssueOp(args, true)
	},
}

var milestoneRemoveCmd = &cobra.Command{
	Use:   "remove <milestone-id> <issue-id>...",
	Short: "Detach issues from a milestone",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		milestoneIssueOp(args, false)
	},
}

func milestoneIssueOp(args []string, add bool) {
	milestoneID, err := parseID(args[0])
	if err != nil {
		fatalf("%v", err)
	}

	e, err := openEnv(rootCtx)
	if err != nil {
		fatalf("%v", err)
	}
	defer e.Close()

	var ids []int64
	for _, arg := range args[1:] {
		id, err := parseID(arg)
		if err != nil {
			fatalf("%v", err)
		}
		if add {
			err = e.store.AddToMilestone(rootCtx, milestoneID, id)
		} else {
			err = e.store.RemoveFromMilestone(rootCtx, milestoneID, id)
		}
		if err != nil {
			fatalf("%v", err)
		}
		ids = append(ids, id)
	}

	if jsonOutput {
		printJSON(map[string]any{"milestone": milestoneID, "issues": ids})
		return
	}
	verb := "Added"
	preposition := "to"
	if !add {
		verb = "Removed"
		preposition = "from"
	}
	fmt.Printf("%s %s %s milestone #%d\n", verb, formatIDs(ids), preposition, milestoneID)
}

func init() {
	milestoneCreateCmd.Flags().StringP("description", "d", "", "Milestone description")
	milestoneListCmd.Flags().StringP("status", "s", "", "Filter by status: open, closed, all")
	milestoneCmd.AddCommand(milestoneCreateCmd, milestoneListCmd, milestoneShowCmd,
		milestoneCloseCmd, milestoneAddCmd, milestoneRemoveCmd)
	rootCmd.AddCommand(milestoneCmd)
}
