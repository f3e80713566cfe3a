package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Tier != "auto" {
		t.Errorf("tier = %s, want auto", cfg.Tier)
	}
	if cfg.FailOn != "none" {
		t.Errorf("failOn = %s, want none", cfg.FailOn)
	}
	if !cfg.Git.Enabled {
		t.Error("git disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoadMissingConfigUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RepoRoot != dir {
		t.Errorf("repoRoot = %s", cfg.RepoRoot)
	}
	if cfg.Git.MaxCommits != 5000 {
		t.Errorf("maxCommits = %d, want default 5000", cfg.Git.MaxCommits)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".insight"), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "tier = \"full\"\nfailOn = \"high\"\n\n[git]\nmaxCommits = 100\n"
	if err := os.WriteFile(filepath.Join(dir, ".insight", "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tier != "full" {
		t.Errorf("tier = %s, want full", cfg.Tier)
	}
	if cfg.FailOn != "high" {
		t.Errorf("failOn = %s, want high", cfg.FailOn)
	}
	if cfg.Git.MaxCommits != 100 {
		t.Errorf("maxCommits = %d, want 100", cfg.Git.MaxCommits)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tier = "turbo"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid tier accepted")
	}

	cfg = DefaultConfig()
	cfg.FailOn = "sometimes"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid failOn accepted")
	}
}

func TestStageBudgets(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.CollectBudget(500); got != 120*time.Second {
		t.Errorf("collect budget = %v, want 120s", got)
	}
	if got := cfg.CollectBudget(25000); got != 360*time.Second {
		t.Errorf("collect budget for 25k files = %v, want 360s", got)
	}
	if got := cfg.DeriveBudget(); got != 60*time.Second {
		t.Errorf("derive budget = %v", got)
	}
	if got := cfg.DetectBudget(); got != 30*time.Second {
		t.Errorf("detect budget = %v", got)
	}
}
