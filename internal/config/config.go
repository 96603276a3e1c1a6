// Package config loads the per-project .depup.yaml. The file is optional;
// absent files yield the defaults. Command-line flags override whatever
// is loaded here.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the project directory only; parent
// directories are never walked.
const FileName = ".depup.yaml"

// Ecosystem declares a custom coordinated-upgrade group.
type Ecosystem struct {
	Name     string   `yaml:"name"`
	Packages []string `yaml:"packages"`
}

// Config is the run configuration for one project.
type Config struct {
	// Tiers enables risk tiers for processing. Empty means all.
	Tiers []string `yaml:"tiers"`

	// Mode is sequential, batch, or grouped.
	Mode string `yaml:"mode"`

	// BatchSize is the unit width in batch mode.
	BatchSize int `yaml:"batch_size"`

	// Strictness is the global validation override: none, quick,
	// full, or auto.
	Strictness string `yaml:"strictness"`

	// DryRunProbe enables the probe install before each real install.
	DryRunProbe bool `yaml:"dry_run_probe"`

	// AbortOnProbeConflict turns a probe peer conflict into an
	// immediate rollback instead of a warning.
	AbortOnProbeConflict bool `yaml:"abort_on_probe_conflict"`

	// CommandTimeout bounds each npm invocation.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// RegistryConcurrency is the discovery fan-out width.
	RegistryConcurrency int `yaml:"registry_concurrency"`

	// FinalCheck runs the informational full gate after all units.
	FinalCheck bool `yaml:"final_check"`

	// Ecosystems extends the built-in coordinated groups.
	Ecosystems []Ecosystem `yaml:"ecosystems"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Mode:                "sequential",
		BatchSize:           5,
		Strictness:          "auto",
		DryRunProbe:         true,
		CommandTimeout:      10 * time.Minute,
		RegistryConcurrency: 4,
	}
}

// Load reads dir/.depup.yaml over the defaults. A missing file is not an
// error; a malformed one is.
func Load(dir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case "sequential", "batch", "grouped":
	default:
		return fmt.Errorf("mode %q: must be one of: sequential, batch, grouped", c.Mode)
	}

	switch c.Strictness {
	case "none", "quick", "full", "auto":
	default:
		return fmt.Errorf("strictness %q: must be one of: none, quick, full, auto", c.Strictness)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size %d: must be positive", c.BatchSize)
	}
	if c.RegistryConcurrency <= 0 {
		return fmt.Errorf("registry_concurrency %d: must be positive", c.RegistryConcurrency)
	}

	for _, eco := range c.Ecosystems {
		if eco.Name == "" {
			return fmt.Errorf("ecosystem with empty name")
		}
		if len(eco.Packages) == 0 {
			return fmt.Errorf("ecosystem %q: no packages listed", eco.Name)
		}
	}
	return nil
}
