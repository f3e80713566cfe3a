// Package config loads the analyzer configuration: defaults, an optional
// config file discovered via viper, and INSIGHT_* environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete analyzer configuration.
type Config struct {
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	// Tier forces the analysis tier: "auto" (default), "absolute",
	// "bayesian", "full".
	Tier string `json:"tier" mapstructure:"tier"`

	// FailOn controls the CLI exit threshold: "none", "any", "high".
	FailOn string `json:"failOn" mapstructure:"failOn"`

	Ignore   IgnoreConfig   `json:"ignore" mapstructure:"ignore"`
	Git      GitConfig      `json:"git" mapstructure:"git"`
	Budgets  BudgetConfig   `json:"budgets" mapstructure:"budgets"`
	Snapshot SnapshotConfig `json:"snapshot" mapstructure:"snapshot"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// IgnoreConfig lists directory names excluded from collection. Entries
// match a directory's base name at any depth; path prefixes are not
// matched.
type IgnoreConfig struct {
	Dirs []string `json:"dirs" mapstructure:"dirs"`
}

// GitConfig controls the temporal spine.
type GitConfig struct {
	Enabled    bool `json:"enabled" mapstructure:"enabled"`
	MaxCommits int  `json:"maxCommits" mapstructure:"maxCommits"`
}

// BudgetConfig carries the per-stage time budgets.
type BudgetConfig struct {
	// CollectSecondsPer10K scales with file count.
	CollectSecondsPer10K int `json:"collectSecondsPer10k" mapstructure:"collectSecondsPer10k"`
	DeriveSeconds        int `json:"deriveSeconds" mapstructure:"deriveSeconds"`
	DetectSeconds        int `json:"detectSeconds" mapstructure:"detectSeconds"`
}

// SnapshotConfig controls persistence.
type SnapshotConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Dir     string `json:"dir" mapstructure:"dir"` // relative to repo root
}

// LoggingConfig controls the log sink.
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Tier:   "auto",
		FailOn: "none",
		Ignore: IgnoreConfig{
			Dirs: []string{".git", "node_modules", "vendor", "dist", "build", "__pycache__", ".venv", "target"},
		},
		Git: GitConfig{
			Enabled:    true,
			MaxCommits: 5000,
		},
		Budgets: BudgetConfig{
			CollectSecondsPer10K: 120,
			DeriveSeconds:        60,
			DetectSeconds:        30,
		},
		Snapshot: SnapshotConfig{
			Enabled: true,
			Dir:     ".insight",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Load reads configuration for a repository root: defaults, then
// .insight/config.toml or .insight.yaml if present, then INSIGHT_*
// environment variables.
func Load(repoRoot string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(repoRoot, ".insight"))
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Fall back to a root-level .insight.yaml.
		v.SetConfigName(".insight")
		v.AddConfigPath(repoRoot)
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("INSIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.RepoRoot = repoRoot
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("tier", d.Tier)
	v.SetDefault("failOn", d.FailOn)
	v.SetDefault("ignore.dirs", d.Ignore.Dirs)
	v.SetDefault("git.enabled", d.Git.Enabled)
	v.SetDefault("git.maxCommits", d.Git.MaxCommits)
	v.SetDefault("budgets.collectSecondsPer10k", d.Budgets.CollectSecondsPer10K)
	v.SetDefault("budgets.deriveSeconds", d.Budgets.DeriveSeconds)
	v.SetDefault("budgets.detectSeconds", d.Budgets.DetectSeconds)
	v.SetDefault("snapshot.enabled", d.Snapshot.Enabled)
	v.SetDefault("snapshot.dir", d.Snapshot.Dir)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Validate checks the enumerated fields.
func (c *Config) Validate() error {
	switch c.Tier {
	case "auto", "absolute", "bayesian", "full":
	default:
		return fmt.Errorf("invalid tier %q (want auto|absolute|bayesian|full)", c.Tier)
	}
	switch c.FailOn {
	case "none", "any", "high":
	default:
		return fmt.Errorf("invalid failOn %q (want none|any|high)", c.FailOn)
	}
	if c.Git.MaxCommits < 0 {
		return fmt.Errorf("git.maxCommits must be >= 0")
	}
	return nil
}

// CollectBudget returns the Collect stage budget for a file count.
func (c *Config) CollectBudget(fileCount int) time.Duration {
	per10k := c.Budgets.CollectSecondsPer10K
	if per10k <= 0 {
		per10k = 120
	}
	blocks := fileCount/10000 + 1
	return time.Duration(blocks*per10k) * time.Second
}

// DeriveBudget returns the Derive stage budget.
func (c *Config) DeriveBudget() time.Duration {
	if c.Budgets.DeriveSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.Budgets.DeriveSeconds) * time.Second
}

// DetectBudget returns the Detect stage budget.
func (c *Config) DetectBudget() time.Duration {
	if c.Budgets.DetectSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Budgets.DetectSeconds) * time.Second
}
