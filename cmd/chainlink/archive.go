package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive [id]",
	Short: "Archive closed issues so they stop appearing in listings",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		olderThan, _ := cmd.Flags().GetInt("older-than")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		if olderThan > 0 {
			cutoff := time.Now().AddDate(0, 0, -olderThan)
			ids, err := e.store.ArchiveOlderThan(rootCtx, cutoff)
			if err != nil {
				fatalf("%v", err)
			}
			if jsonOutput {
				printJSON(map[string]any{"archived": ids})
				return
			}
			fmt.Printf("Archived %d issues closed more than %d days ago\n", len(ids), olderThan)
			return
		}

		if len(args) == 0 {
			fatalf("pass an issue id or --older-than N")
		}
		id, err := parseID(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		if err := e.store.ArchiveIssue(rootCtx, id); err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(map[string]int64{"archived": id})
			return
		}
		fmt.Printf("Archived issue #%d\n", id)
	},
}

var unarchiveCmd = &cobra.Command{
	Use:   "unarchive <id>",
	Short: "Return an archived issue to normal listings",
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

		if err := e.store.UnarchiveIssue(rootCtx, id); err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(map[string]int64{"unarchived": id})
			return
		}
		fmt.Printf("Unarchived issue #%d\n", id)
	},
}

var archivedCmd = &cobra.Command{
	Use:   "archived",
	Short: "List archived issues",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		issues, err := e.store.ListArchived(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(issues)
			return
		}
		if len(issues) == 0 {
			fmt.Println("No archived issues")
			return
		}
		for _, issue := range issues {
			printIssueLine(issue)
		}
	},
}

func init() {
	archiveCmd.Flags().Int("older-than", 0, "Archive all issues closed more than N days ago")
	rootCmd.AddCommand(archiveCmd, unarchiveCmd, archivedCmd)
}
