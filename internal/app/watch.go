package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depup/internal/config"
	"github.com/blackwell-systems/depup/internal/output"
	"github.com/blackwell-systems/depup/internal/planner"
	"github.com/blackwell-systems/depup/internal/sequencer"
	"github.com/blackwell-systems/depup/internal/watcher"
)

var watchFlagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch package.json and report outdated dependencies on change",
	Long: `Watches the project's package.json and re-runs discovery whenever it
changes, printing the upgradeable packages with their risk tiers.
Nothing is ever modified; this is a passive monitor.

Runs until interrupted with Ctrl-C.`,
	Example: `  depup watch
  depup watch --debounce 5s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchFlagDebounce, "debounce", watcher.DefaultDebounce, "quiet period before reacting to manifest changes")

	RootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir, err := getProjectDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	// Each report builds a fresh planner so registry answers are never
	// served from a stale memo during a long watch.
	report := func() {
		p, err := buildPlanner(dir, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build planner: %v\n", err)
			return
		}

		rc := planner.NewRunContext(p.Mode)
		records, err := p.Discover(cmd.Context(), dir, rc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "discovery failed: %v\n", err)
			return
		}

		var ordered []*sequencer.Record
		for _, unit := range p.Sequencer.BuildSequence(records) {
			ordered = append(ordered, unit.Records...)
		}

		fmt.Printf("\n[%s] %s\n", time.Now().Format("15:04:05"), output.RenderTierSummary(ordered))
		fmt.Print(output.RenderOutdatedTable(ordered))
	}

	w, err := watcher.New(dir, watchFlagDebounce, report)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("Watching %s for manifest changes. Press Ctrl-C to stop.\n", dir)
	report()

	<-cmd.Context().Done()
	fmt.Println("\nStopping watcher.")
	return nil
}
