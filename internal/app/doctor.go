package app

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depup/internal/config"
	"github.com/blackwell-systems/depup/internal/npm"
)

// firstLine trims a diagnostic down to its first non-empty line.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return s
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common issues and check project readiness",
	Long: `Runs diagnostic checks on the project and the depup installation.

Checks:
  • npm is on PATH
  • package.json exists and parses
  • lock file and test script presence (validation gate quality)
  • configuration file validity
  • history database is accessible`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running depup diagnostics...")
	fmt.Println()

	// Critical issues make upgrades impossible and exit 1; warnings
	// degrade validation quality and exit 2.
	criticalIssues := 0
	warningIssues := 0

	// Check 1: npm on PATH
	if npmPath, err := exec.LookPath("npm"); err != nil {
		fmt.Println("✗ npm not found on PATH")
		fmt.Println("  Action: install Node.js and npm")
		criticalIssues++
	} else {
		fmt.Println("✓ npm found:", npmPath)
	}

	// Check 2: project manifest
	dir, err := getProjectDir()
	if err != nil {
		fmt.Println("✗ Cannot resolve project directory:", err)
		criticalIssues++
	} else if _, statErr := os.Stat(filepath.Join(dir, npm.ManifestName)); os.IsNotExist(statErr) {
		fmt.Println("✗ No package.json in", dir)
		fmt.Println("  Action: run depup from an npm project, or pass --dir")
		criticalIssues++
	} else {
		m, parseErr := npm.ReadManifest(dir)
		if parseErr != nil {
			fmt.Println("✗ package.json is not parseable:", parseErr)
			criticalIssues++
		} else {
			fmt.Printf("✓ package.json parsed (%d dependencies)\n", len(m.Dependencies))

			// Check 3: lock file — warning only
			if _, lockErr := os.Stat(filepath.Join(dir, npm.LockName)); os.IsNotExist(lockErr) {
				fmt.Println("⚠ No package-lock.json; quick validation has nothing to verify")
				fmt.Println("  Action: run 'npm install' once to create it")
				warningIssues++
			} else {
				fmt.Println("✓ package-lock.json present")
			}

			// Check 4: test script — warning only
			if !m.HasTestScript() {
				fmt.Println("⚠ No real test script; full validation falls back to install and type checks")
				warningIssues++
			} else {
				fmt.Println("✓ test script defined")
			}

			if npm.HasTypeScript(dir) {
				fmt.Println("✓ tsconfig.json found; full validation includes tsc --noEmit")
			}

			// Check 5: configuration file
			if _, cfgErr := config.Load(dir); cfgErr != nil {
				fmt.Println("✗ Invalid configuration:", cfgErr)
				criticalIssues++
			} else {
				fmt.Println("✓ configuration valid")
			}
		}
	}

	// Check 6: registry reachability — warning only (offline work is fine
	// until an upgrade is attempted)
	if _, lookErr := exec.LookPath("npm"); lookErr == nil {
		runner := &npm.ExecRunner{Timeout: 15 * time.Second}
		if res := runner.Run(cmd.Context(), ".", "ping"); res.OK {
			fmt.Println("✓ registry reachable")
		} else if res.TimedOut {
			fmt.Println("⚠ registry ping timed out")
			warningIssues++
		} else {
			fmt.Println("⚠ registry unreachable:", firstLine(res.Output))
			warningIssues++
		}
	}

	// Check 7: snapshot directory writable
	snapDir := getSnapshotDir()
	probe := filepath.Join(snapDir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		fmt.Println("✗ snapshot directory not writable:", err)
		criticalIssues++
	} else {
		os.Remove(probe)
		fmt.Println("✓ snapshot directory writable:", snapDir)
	}

	// Check 8: history database
	st, err := openStore()
	if err != nil {
		fmt.Println("✗ Cannot open history database:", err)
		criticalIssues++
	} else {
		st.Close()
		fmt.Println("✓ history database accessible")
	}

	fmt.Println()
	switch {
	case criticalIssues > 0:
		return fmt.Errorf("%d critical issues found", criticalIssues)
	case warningIssues > 0:
		fmt.Printf("%d warnings; upgrades will work but validation is weaker.\n", warningIssues)
		os.Exit(2)
	default:
		fmt.Println("All checks passed.")
	}
	return nil
}
