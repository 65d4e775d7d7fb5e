package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:   "block <id> <blocker-id>",
	Short: "Mark an issue as blocked by another",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		blockerID, err := parseID(args[1])
		if err != nil {
			fatalf("%v", err)
		}

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		if err := e.store.AddBlocker(rootCtx, id, blockerID); err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]int64{"id": id, "blocker": blockerID})
			return
		}
		fmt.Printf("Issue #%d is now blocked by #%d\n", id, blockerID)
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock <id> <blocker-id>",
	Short: "Remove a blocking relationship",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		blockerID, err := parseID(args[1])
		if err != nil {
			fatalf("%v", err)
		}

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		removed, err := e.store.RemoveBlocker(rootCtx, id, blockerID)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]any{"id": id, "blocker": blockerID, "removed": removed})
			return
		}
		if !removed {
			fmt.Printf("Issue #%d was not blocked by #%d\n", id, blockerID)
			return
		}
		fmt.Printf("Issue #%d is no longer blocked by #%d\n", id, blockerID)
	},
}

func init() {
	rootCmd.AddCommand(blockCmd, unblockCmd)
}
