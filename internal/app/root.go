// Package app wires the command-line interface. Each command builds its
// own planner stack from the project directory and configuration file;
// no state is shared between invocations.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	projectDir string
	dbPath     string
	verbose    bool

	// RootCmd is the root command for depup
	RootCmd = &cobra.Command{
		Use:   "depup",
		Short: "Bulk npm dependency upgrades with risk-aware sequencing and rollback",
		Long: `depup upgrades a project's npm dependencies in bulk. Each upgrade is
classified by risk, sequenced to minimize peer conflicts, validated
against the project's own checks, and rolled back automatically when
validation fails.

Every run captures package.json and package-lock.json before touching
them, so 'depup undo' can restore the project byte-for-byte.

Quick Start:
  1. depup outdated             # see what would be upgraded
  2. depup upgrade --tier safe  # upgrade the low-risk packages first
  3. depup upgrade              # then the rest
  4. depup undo latest          # if something went wrong

Examples:
  # Show outdated packages with risk tiers
  depup outdated

  # Upgrade only safe and low-risk packages
  depup upgrade --tier safe --tier low

  # Upgrade coordinated ecosystems (react + react-dom, ...) atomically
  depup upgrade --mode grouped

  # Upgrade two specific packages without validation
  depup upgrade --only react --only react-dom --strictness none

  # Review past runs
  depup history`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("depup: bulk npm dependency upgrades with rollback")
			fmt.Println()
			fmt.Println("Run 'depup outdated' to see available upgrades.")
			fmt.Println("Run 'depup --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", "", "project directory (default: current directory)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "history database path (default: ~/.depup/depup.db)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}

// getProjectDir resolves the target project directory to an absolute path.
func getProjectDir() (string, error) {
	dir := projectDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return abs, nil
}

// getDBPath returns the database path, using the flag value or default.
func getDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	depupDir := filepath.Join(home, ".depup")
	if err := os.MkdirAll(depupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create depup directory: %w", err)
	}

	return filepath.Join(depupDir, "depup.db"), nil
}
