package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/session"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Track time against issues",
}

var timerStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start the timer on an issue, stopping any running timer first",
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

		mgr := session.NewManager(e.store)
		entry, err := mgr.StartTimer(rootCtx, id)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(entry)
			return
		}
		fmt.Printf("Timer started on issue #%d\n", entry.IssueID)
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		mgr := session.NewManager(e.store)
		entry, err := mgr.StopTimer(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(entry)
			return
		}
		if entry == nil {
			fmt.Println("No timer running")
			return
		}
		fmt.Printf("Timer stopped on issue #%d after %s\n",
			entry.IssueID, (time.Duration(entry.DurationSeconds) * time.Second))
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		entry, err := e.store.ActiveTimer(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(entry)
			return
		}
		if entry == nil {
			fmt.Println("No timer running")
			return
		}
		fmt.Printf("Timer on issue #%d running for %s\n",
			entry.IssueID, time.Since(entry.StartedAt).Round(time.Second))
	},
}

func init() {
	timerCmd.AddCommand(timerStartCmd, timerStopCmd, timerStatusCmd)
	rootCmd.AddCommand(timerCmd)
}
