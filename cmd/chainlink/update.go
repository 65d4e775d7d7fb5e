package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/storage"
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update an issue's title, description, or priority",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			fatalf("%v", err)
		}

		var update storage.IssueUpdate
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			update.Title = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			update.Description = &v
		}
		if cmd.Flags().Changed("priority") {
			v, _ := cmd.Flags().GetString("priority")
			update.Priority = &v
		}
		if update.Title == nil && update.Description == nil && update.Priority == nil {
			fatalf("nothing to update: pass --title, --description, or --priority")
		}

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		issue, err := e.store.UpdateIssue(rootCtx, id, update)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(issue)
			return
		}
		fmt.Printf("Updated issue #%d\n", issue.ID)
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setIssueStatus(args[0], true)
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <id>",
	Short: "Reopen a closed issue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setIssueStatus(args[0], false)
	},
}

func setIssueStatus(arg string, close bool) {
	id, err := parseID(arg)
	if err != nil {
		fatalf("%v", err)
	}

	e, err := openEnv(rootCtx)
	if err != nil {
		fatalf("%v", err)
	}
	defer e.Close()

	var changed bool
	if close {
		changed, err = e.store.CloseIssue(rootCtx, id)
	} else {
		changed, err = e.store.ReopenIssue(rootCtx, id)
	}
	if err != nil {
		fatalf("%v", err)
	}

	if jsonOutput {
		printJSON(map[string]any{"id": id, "changed": changed})
		return
	}
	verb := "Closed"
	if !close {
		verb = "Reopened"
	}
	if !changed {
		fmt.Printf("Issue #%d already %s\n", id, map[bool]string{true: "closed", false: "open"}[close])
		return
	}
	fmt.Printf("%s issue #%d\n", verb, id)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an issue and every reference to it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		cascade, _ := cmd.Flags().GetBool("cascade")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		deleted, err := e.store.DeleteIssue(rootCtx, id, cascade)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]any{"deleted": deleted})
			return
		}
		if len(deleted) == 1 {
			fmt.Printf("Deleted issue #%d\n", id)
			return
		}
		fmt.Printf("Deleted %d issues: %s\n", len(deleted), formatIDs(deleted))
	},
}

func init() {
	updateCmd.Flags().StringP("title", "t", "", "New title")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().StringP("priority", "p", "", "New priority")
	deleteCmd.Flags().Bool("cascade", false, "Also delete all sub-issues")
	rootCmd.AddCommand(updateCmd, closeCmd, reopenCmd, deleteCmd)
}
