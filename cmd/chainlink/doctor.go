package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/config"
	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/storage/sqlite"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check store integrity and recover from corruption",
	Long: `Check store integrity and recover from corruption.

A corrupt store file is quarantined next to the original (issues.db.corrupt-<timestamp>)
and a fresh store is initialized in its place. Quarantined data is not deleted.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		workspace, err := config.FindWorkspace(".")
		if err != nil {
			fatalf("%v", err)
		}
		cfg, err := config.Load(workspace)
		if err != nil {
			fatalf("%v", err)
		}
		dbPath := cfg.DBPathFor(workspace)

		store, err := sqlite.New(rootCtx, dbPath)
		if err == nil {
			defer func() { _ = store.Close() }()
			if jsonOutput {
				printJSON(map[string]string{"status": "healthy", "db": dbPath})
				return
			}
			fmt.Printf("Store %s is healthy\n", dbPath)
			return
		}
		if !errors.Is(err, storage.ErrCorrupt) {
			fatalf("%v", err)
		}

		recovered, quarantine, rerr := sqlite.Recover(rootCtx, dbPath)
		if rerr != nil {
			fatalf("recovery failed: %v", rerr)
		}
		defer func() { _ = recovered.Close() }()

		if jsonOutput {
			printJSON(map[string]string{
				"status":     "recovered",
				"db":         dbPath,
				"quarantine": quarantine,
			})
			return
		}
		fmt.Printf("Store was corrupt; quarantined to %s\n", quarantine)
		fmt.Printf("Initialized a fresh store at %s\n", dbPath)
		fmt.Println("Previously tracked issues are in the quarantined file, not recovered automatically")
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
