package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestInitAndLoad(t *testing.T) {
	root := t.TempDir()

	workspace, err := Init(root)
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if workspace != filepath.Join(root, WorkspaceDir) {
		t.Fatalf("workspace path wrong: %s", workspace)
	}

	// Re-running init must not clobber an existing config.
	custom := []byte("default_priority: high\n")
	if err := os.WriteFile(filepath.Join(workspace, ConfigFile), custom, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(root); err != nil {
		t.Fatalf("second init failed: %v", err)
	}

	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DefaultPriority != "high" {
		t.Errorf("custom value lost: %s", cfg.DefaultPriority)
	}
	// Unspecified keys fall back to defaults.
	if cfg.FlushInterval != 30*time.Second {
		t.Errorf("default flush interval wrong: %v", cfg.FlushInterval)
	}
	if cfg.DBPath != DBFile {
		t.Errorf("default db path wrong: %s", cfg.DBPath)
	}
}

func TestLoadMissingConfigUsesDefaults(t *testing.T) {
	workspace := t.TempDir()

	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("load without config file failed: %v", err)
	}
	def := Default()
	if *cfg != *def {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestFindWorkspaceWalksUp(t *testing.T) {
	root := t.TempDir()
	if _, err := Init(root); err != nil {
		t.Fatal(err)
	}

	nested := filepath.Join(root, "src", "deep", "pkg")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	found, err := FindWorkspace(nested)
	if err != nil {
		t.Fatalf("discovery failed: %v", err)
	}
	if found != filepath.Join(root, WorkspaceDir) {
		t.Errorf("found wrong workspace: %s", found)
	}
}

func TestFindWorkspaceNotFound(t *testing.T) {
	_, err := FindWorkspace(t.TempDir())
	if !errors.Is(err, ErrNoWorkspace) {
		t.Fatalf("expected ErrNoWorkspace, got %v", err)
	}
}

func TestDBPathResolution(t *testing.T) {
	cfg := Default()
	workspace := filepath.Join("some", "project", WorkspaceDir)
	if got := cfg.DBPathFor(workspace); got != filepath.Join(workspace, DBFile) {
		t.Errorf("relative path wrong: %s", got)
	}

	abs := filepath.Join(string(filepath.Separator), "tmp", "elsewhere.db")
	cfg.DBPath = abs
	if got := cfg.DBPathFor(workspace); got != abs {
		t.Errorf("absolute path should pass through: %s", got)
	}
}

func TestWrittenConfigParsesBack(t *testing.T) {
	root := t.TempDir()
	workspace, err := Init(root)
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(workspace)
	if err != nil {
		t.Fatalf("default config does not parse: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("written defaults drifted: %+v", cfg)
	}
}
