package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var commentCmd = &cobra.Command{
	Use:   "comment <id> <text>",
	Short: "Add a comment to an issue",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := parseID(args[0])
		if err != nil {
			fatalf("%v", err)
		}
		text := strings.Join(args[1:], " ")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		comment, err := e.store.AddComment(rootCtx, id, text)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(comment)
			return
		}
		fmt.Printf("Added comment to issue #%d\n", id)
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <id> <label>...",
	Short: "Attach labels to an issue",
	Args:  cobra.MinimumNArgs(2),
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

		for _, label := range args[1:] {
			if err := e.store.AddLabel(rootCtx, id, label); err != nil {
				fatalf("%v", err)
			}
		}

		labels, err := e.store.GetLabels(rootCtx, id)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(map[string]any{"id": id, "labels": labels})
			return
		}
		fmt.Printf("Issue #%d labels: %s\n", id, strings.Join(labels, ", "))
	},
}

var unlabelCmd = &cobra.Command{
	Use:   "unlabel <id> <label>",
	Short: "Detach a label from an issue",
	Args:  cobra.ExactArgs(2),
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

		removed, err := e.store.RemoveLabel(rootCtx, id, args[1])
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]any{"id": id, "removed": removed})
			return
		}
		if !removed {
			fmt.Printf("Issue #%d does not have label %q\n", id, args[1])
			return
		}
		fmt.Printf("Removed label %q from issue #%d\n", args[1], id)
	},
}

func init() {
	rootCmd.AddCommand(commentCmd, labelCmd, unlabelCmd)
}
