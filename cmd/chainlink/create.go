package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/types"
)

var createCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new issue",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		title := strings.Join(args, " ")
		description, _ := cmd.Flags().GetString("description")
		priority, _ := cmd.Flags().GetString("priority")
		parentArg, _ := cmd.Flags().GetInt64("parent")
		labels, _ := cmd.Flags().GetStringArray("label")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		if priority == "" {
			priority = e.cfg.DefaultPriority
		}

		issue := &types.Issue{
			Title:       title,
			Description: description,
			Priority:    types.Priority(priority),
		}
		if parentArg > 0 {
			issue.ParentID = &parentArg
		}

		created, err := e.store.CreateIssue(rootCtx, issue)
		if err != nil {
			fatalf("%v", err)
		}
		for _, label := range labels {
			if err := e.store.AddLabel(rootCtx, created.ID, label); err != nil {
				fatalf("%v", err)
			}
		}

		if jsonOutput {
			created.Labels, _ = e.store.GetLabels(rootCtx, created.ID)
			printJSON(created)
			return
		}
		fmt.Printf("Created issue #%d: %s\n", created.ID, created.Title)
	},
}

var subissueCmd = &cobra.Command{
	Use:   "subissue <parent-id> <title>",
	Short: "Create a sub-issue under a parent",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		parentID, err := parseID(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		title := strings.Join(args[1:], " ")
		priority, _ := cmd.Flags().GetString("priority")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		if priority == "" {
			priority = e.cfg.DefaultPriority
		}

		created, err := e.store.CreateIssue(rootCtx, &types.Issue{
			Title:    title,
			Priority: types.Priority(priority),
			ParentID: &parentID,
		})
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(created)
			return
		}
		fmt.Printf("Created issue #%d under #%d: %s\n", created.ID, parentID, created.Title)
	},
}

func init() {
	createCmd.Flags().StringP("description", "d", "", "Issue description")
	createCmd.Flags().StringP("priority", "p", "", "Priority: low, medium, high, critical")
	createCmd.Flags().Int64("parent", 0, "Parent issue id")
	createCmd.Flags().StringArray("label", nil, "Label to attach (repeatable)")
	subissueCmd.Flags().StringP("priority", "p", "", "Priority: low, medium, high, critical")
	rootCmd.AddCommand(createCmd, subissueCmd)
}
