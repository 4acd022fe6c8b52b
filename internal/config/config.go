// Package config loads the YAML run configuration consumed by the sync
// engine.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RunConfig is the immutable configuration for a single sync run.
type RunConfig struct {
	SourceDir string `yaml:"sourceDir"`
	TargetDir string `yaml:"targetDir"`

	SourceSubdir string `yaml:"sourceSubdir"`
	TargetSubdir string `yaml:"targetSubdir"`

	IncludeBranches []string `yaml:"includeBranches"`
	ExcludeBranches []string `yaml:"excludeBranches"`

	IncludeTags []string `yaml:"includeTags"`
	ExcludeTags []string `yaml:"excludeTags"`

	AddTagPrefix    string `yaml:"addTagPrefix"`
	RemoveTagPrefix string `yaml:"removeTagPrefix"`
	NoTags          bool   `yaml:"noTags"`

	After    time.Time `yaml:"after"`
	MaxCount int       `yaml:"maxCount"`

	PreserveCommit bool     `yaml:"preserveCommit"`
	Filters        []string `yaml:"filters"`

	Squash           bool   `yaml:"squash"`
	SquashBaseBranch string `yaml:"squashBaseBranch"`

	DevelopBranches []string `yaml:"developBranches"`
	SkipEvenBranch  bool     `yaml:"skipEvenBranch"`

	Plugins []string `yaml:"plugins"`

	// DryRun is set by the CLI's --dry-run flag, never read from a
	// config file: the engine computes and returns its scan/reconcile
	// summary without running any mutating git command.
	DryRun bool `yaml:"-"`
}

// Load reads and validates a run configuration from a YAML file at path.
func Load(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("read config: %w", err)
	}

	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}

	return cfg, nil
}

func (c *RunConfig) applyDefaults() {
	if c.TargetSubdir == "" {
		c.TargetSubdir = c.SourceSubdir
	}
	if c.SquashBaseBranch == "" {
		c.SquashBaseBranch = "main"
	}
}

// Validate reports whether the configuration is well-formed enough to
// attempt a run. It does not touch the filesystem or either repository.
func (c RunConfig) Validate() error {
	if c.SourceDir == "" {
		return fmt.Errorf("sourceDir is required")
	}
	if c.TargetDir == "" {
		return fmt.Errorf("targetDir is required")
	}
	if c.MaxCount < 0 {
		return fmt.Errorf("maxCount must not be negative")
	}
	return nil
}
