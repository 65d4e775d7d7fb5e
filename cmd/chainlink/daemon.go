package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/config"
	"github.com/pchaganti/ax-chain-link/internal/daemon"
	"github.com/pchaganti/ax-chain-link/internal/storage/sqlite"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background flush daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the background daemon",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		workspace, err := config.FindWorkspace(".")
		if err != nil {
			fatalf("%v", err)
		}
		cfg, err := config.Load(workspace)
		if err != nil {
			fatalf("%v", err)
		}

		coord := daemon.NewCoordinator(workspace)
		coord.SetInterval(cfg.FlushInterval)
		if parent, _ := cmd.Flags().GetInt("parent"); parent > 0 {
			coord.SetParentPID(parent)
		}
		if err := coord.Start(); err != nil {
			if errors.Is(err, daemon.ErrAlreadyRunning) {
				fatalf("daemon already running")
			}
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]string{"daemon": "started"})
			return
		}
		fmt.Println("Daemon started")
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		workspace, err := config.FindWorkspace(".")
		if err != nil {
			fatalf("%v", err)
		}

		coord := daemon.NewCoordinator(workspace)
		if err := coord.Stop(); err != nil {
			if errors.Is(err, daemon.ErrNotRunning) {
				fatalf("daemon not running")
			}
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]string{"daemon": "stopped"})
			return
		}
		fmt.Println("Daemon stopped")
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the daemon is running, stale, or stopped",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		workspace, err := config.FindWorkspace(".")
		if err != nil {
			fatalf("%v", err)
		}

		coord := daemon.NewCoordinator(workspace)
		state, hb, err := coord.Status()
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]any{"state": state, "heartbeat": hb})
			return
		}
		switch state {
		case daemon.StateRunning:
			fmt.Printf("Daemon running (pid %d, last heartbeat %s)\n",
				hb.PID, hb.HeartbeatAt.Local().Format(time.RFC3339))
		case daemon.StateStale:
			fmt.Println("Daemon stale: heartbeat present but the process is gone")
		default:
			fmt.Println("Daemon stopped")
		}
	},
}

// daemonRunCmd is the entry point of the spawned daemon process itself.
var daemonRunCmd = &cobra.Command{
	Use:    "run",
	Short:  "Run the daemon loop in the foreground",
	Hidden: true,
	Args:   cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		interval, _ := cmd.Flags().GetDuration("interval")
		parentPID, _ := cmd.Flags().GetInt("parent")

		if dir == "" {
			workspace, err := config.FindWorkspace(".")
			if err != nil {
				fatalf("%v", err)
			}
			dir = workspace
		}
		cfg, err := config.Load(dir)
		if err != nil {
			fatalf("%v", err)
		}

		store, err := sqlite.New(rootCtx, cfg.DBPathFor(dir))
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = store.Close() }()

		coord := daemon.NewCoordinator(dir)
		if interval > 0 {
			coord.SetInterval(interval)
		} else {
			coord.SetInterval(cfg.FlushInterval)
		}

		if err := coord.Run(rootCtx, store, daemon.RunOptions{ParentPID: parentPID}); err != nil {
			fatalf("%v", err)
		}
	},
}

func init() {
	daemonStartCmd.Flags().Int("parent", 0, "Stop the daemon when this process exits (host agents pass their own pid)")
	daemonRunCmd.Flags().String("dir", "", "Workspace directory")
	daemonRunCmd.Flags().Duration("interval", 0, "Flush interval")
	daemonRunCmd.Flags().Int("parent", 0, "Exit when this process is gone")
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd, daemonRunCmd)
	rootCmd.AddCommand(daemonCmd)
}
