// chainlink is a local issue tracker for AI coding agents: an issue graph
// with dependencies and hierarchy, work sessions with handoff notes, and a
// background daemon that keeps state flushed to disk.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pchaganti/ax-chain-link/internal/config"
	"github.com/pchaganti/ax-chain-link/internal/storage"
	"github.com/pchaganti/ax-chain-link/internal/storage/sqlite"
)

var (
	jsonOutput bool

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:           "chainlink",
	Short:         "Issue tracking for AI coding agents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of text")

	if err := rootCmd.Execute(); err != nil {
		fatalf("%v", err)
	}
}

// env is everything an issue command needs: the discovered workspace, its
// config, and an open store.
type env struct {
	workspace string
	cfg       *config.Config
	store     storage.Storage
}

// openEnv discovers the workspace from the current directory and opens the
// store. Callers must Close.
func openEnv(ctx context.Context) (*env, error) {
	workspace, err := config.FindWorkspace(".")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	store, err := sqlite.New(ctx, cfg.DBPathFor(workspace))
	if err != nil {
		return nil, err
	}
	return &env{workspace: workspace, cfg: cfg, store: store}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
}

// parseID parses a positional issue id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid issue id %q", arg)
	}
	return id, nil
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fatalf(format string, args ...any) {
	if jsonOutput {
		printJSON(map[string]string{"error": fmt.Sprintf(format, args...)})
	} else {
		fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	}
	os.Exit(1)
}
