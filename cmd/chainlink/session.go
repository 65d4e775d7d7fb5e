package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage work sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new work session",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		mgr := session.NewManager(e.store)
		sess, handoff, err := mgr.Start(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]any{"session": sess, "handoff_notes": handoff})
			return
		}
		fmt.Printf("Started session #%d\n", sess.ID)
		if handoff != "" {
			fmt.Printf("Handoff from last session:\n  %s\n", handoff)
		}
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end [notes]",
	Short: "End the active session, leaving handoff notes for the next one",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		notes := strings.Join(args, " ")

		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		mgr := session.NewManager(e.store)
		sess, err := mgr.End(rootCtx, notes)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(sess)
			return
		}
		fmt.Printf("Ended session #%d (%s)\n", sess.ID, sess.EndedAt.Sub(sess.StartedAt).Round(time.Second))
	},
}

var sessionWorkCmd = &cobra.Command{
	Use:   "work <id>",
	Short: "Point the active session at an issue",
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
		if err := mgr.Work(rootCtx, id); err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]int64{"working": id})
			return
		}
		fmt.Printf("Now working on issue #%d\n", id)
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		e, err := openEnv(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}
		defer e.Close()

		mgr := session.NewManager(e.store)
		st, err := mgr.Status(rootCtx)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(st)
			return
		}
		if !st.Active {
			fmt.Println("No active session")
			return
		}
		fmt.Printf("Session #%d active since %s\n", st.Session.ID, st.Session.StartedAt.Local().Format(time.RFC3339))
		if st.Session.ActiveIssueID != nil {
			fmt.Printf("  Working on: #%d\n", *st.Session.ActiveIssueID)
		}
		if st.Timer != nil {
			fmt.Printf("  Timer: #%d running for %s\n", st.Timer.IssueID, st.Elapsed.Round(time.Second))
		}
	},
}

func init() {
	sessionCmd.AddCommand(sessionStartCmd, sessionEndCmd, sessionWorkCmd, sessionStatusCmd)
	rootCmd.AddCommand(sessionCmd)
}
