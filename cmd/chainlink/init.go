package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/config"
	"github.com/pchaganti/ax-chain-link/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a chainlink workspace in the current directory",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		workspace, err := config.Init(".")
		if err != nil {
			fatalf("%v", err)
		}

		cfg, err := config.Load(workspace)
		if err != nil {
			fatalf("%v", err)
		}
		store, err := sqlite.New(rootCtx, cfg.DBPathFor(workspace))
		if err != nil {
			fatalf("%v", err)
		}
		defer func() { _ = store.Close() }()

		if jsonOutput {
			printJSON(map[string]string{"workspace": workspace})
			return
		}
		fmt.Printf("Initialized chainlink workspace at %s\n", workspace)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
