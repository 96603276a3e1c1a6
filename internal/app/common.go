package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/depup/internal/config"
	"github.com/blackwell-systems/depup/internal/engine"
	"github.com/blackwell-systems/depup/internal/npm"
	"github.com/blackwell-systems/depup/internal/planner"
	"github.com/blackwell-systems/depup/internal/resolver"
	"github.com/blackwell-systems/depup/internal/risk"
	"github.com/blackwell-systems/depup/internal/sequencer"
	"github.com/blackwell-systems/depup/internal/store"
)

// getSnapshotDir returns the directory for snapshot storage.
// Uses $HOME/.depup/snapshots by default.
func getSnapshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory
		return "snapshots"
	}

	snapshotDir := filepath.Join(home, ".depup", "snapshots")
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		// Fallback to current directory
		return "snapshots"
	}

	return snapshotDir
}

// openStore opens the history database and ensures the schema exists.
func openStore() (*store.Store, error) {
	path, err := getDBPath()
	if err != nil {
		return nil, err
	}
	st, err := store.New(path)
	if err != nil {
		return nil, err
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// newLogger returns the diagnostic logger for one command. Debug output
// goes to stderr only with --verbose; otherwise it is discarded.
func newLogger() *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// buildPlanner assembles the full planner stack for one project.
func buildPlanner(dir string, cfg *config.Config) (*planner.Planner, error) {
	runner := &npm.ExecRunner{Timeout: cfg.CommandTimeout}
	log := newLogger()

	res := resolver.New(runner, dir)
	res.Concurrency = cfg.RegistryConcurrency

	strictness, err := engine.ParseStrictness(cfg.Strictness)
	if err != nil {
		return nil, err
	}
	eng := engine.New(runner, dir)
	eng.Strictness = strictness
	eng.DryRunProbe = cfg.DryRunProbe
	eng.AbortOnProbeConflict = cfg.AbortOnProbeConflict
	eng.Log = log

	seq := sequencer.New()
	for _, eco := range cfg.Ecosystems {
		seq.AddEcosystem(eco.Name, eco.Packages)
	}

	p := planner.New(res, eng, seq)
	p.Mode = planner.Mode(cfg.Mode)
	p.BatchSize = cfg.BatchSize
	p.FinalCheck = cfg.FinalCheck
	p.Log = log

	tiers, err := parseTiers(cfg.Tiers)
	if err != nil {
		return nil, err
	}
	p.Tiers = tiers

	return p, nil
}

// parseTiers converts tier names into the planner's filter set. An empty
// list means all tiers.
func parseTiers(names []string) (map[risk.Tier]bool, error) {
	if len(names) == 0 {
		return nil, nil
	}
	tiers := make(map[risk.Tier]bool, len(names))
	for _, name := range names {
		tier, ok := risk.ParseTier(name)
		if !ok {
			return nil, fmt.Errorf("unknown tier %q: must be one of: safe, low, medium, high, unknown", name)
		}
		tiers[tier] = true
	}
	return tiers, nil
}

// toSet converts a repeated flag into a lookup set, nil when empty.
func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// confirm prompts the user with a yes/no question.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
