package app

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depup/internal/config"
	"github.com/blackwell-systems/depup/internal/engine"
	"github.com/blackwell-systems/depup/internal/output"
	"github.com/blackwell-systems/depup/internal/planner"
	"github.com/blackwell-systems/depup/internal/sequencer"
	"github.com/blackwell-systems/depup/internal/snapshots"
	"github.com/blackwell-systems/depup/internal/store"
)

var (
	upgradeFlagTiers      []string
	upgradeFlagOnly       []string
	upgradeFlagMode       string
	upgradeFlagBatchSize  int
	upgradeFlagStrictness string
	upgradeFlagFinalCheck bool
	upgradeFlagDryRun     bool
	upgradeFlagYes        bool
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade outdated dependencies with validation and rollback",
	Long: `Upgrades outdated dependencies to their latest registry versions.

Each unit is applied transactionally: the manifest files are captured,
the new version is installed with --save-exact, the project's own
checks run as a validation gate, and any failure restores the captured
files byte-for-byte. Higher risk tiers get stricter gates.

A snapshot of package.json and package-lock.json is also taken before
the run starts; 'depup undo latest' restores it.`,
	Example: `  depup upgrade                          # everything, one package at a time
  depup upgrade --tier safe --tier low   # only low-risk packages
  depup upgrade --mode grouped           # coordinated ecosystems atomically
  depup upgrade --mode batch --batch-size 10
  depup upgrade --only react --strictness full
  depup upgrade --dry-run                # show the plan, change nothing`,
	RunE: runUpgrade,
}

func init() {
	upgradeCmd.Flags().StringSliceVar(&upgradeFlagTiers, "tier", nil, "risk tiers to process (repeatable; default all)")
	upgradeCmd.Flags().StringSliceVar(&upgradeFlagOnly, "only", nil, "limit to specific packages (repeatable)")
	upgradeCmd.Flags().StringVar(&upgradeFlagMode, "mode", "", "unit mode: sequential, batch, or grouped")
	upgradeCmd.Flags().IntVar(&upgradeFlagBatchSize, "batch-size", 0, "packages per unit in batch mode")
	upgradeCmd.Flags().StringVar(&upgradeFlagStrictness, "strictness", "", "validation gate: none, quick, full, or auto")
	upgradeCmd.Flags().BoolVar(&upgradeFlagFinalCheck, "final-check", false, "run one informational full validation after all units")
	upgradeCmd.Flags().BoolVar(&upgradeFlagDryRun, "dry-run", false, "show the plan without changing anything")
	upgradeCmd.Flags().BoolVarP(&upgradeFlagYes, "yes", "y", false, "skip confirmation prompt")

	RootCmd.AddCommand(upgradeCmd)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	dir, err := getProjectDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}
	applyUpgradeFlags(cmd, cfg)

	p, err := buildPlanner(dir, cfg)
	if err != nil {
		return err
	}
	p.Only = toSet(upgradeFlagOnly)

	// Discovery pass for the plan display. The resolver memoizes registry
	// answers, so the run itself does not re-query.
	spinner := output.NewSpinner("Querying registry")
	spinner.Start()
	rc := planner.NewRunContext(p.Mode)
	records, err := p.Discover(cmd.Context(), dir, rc)
	spinner.Stop()
	if err != nil {
		return err
	}

	var planned []*sequencer.Record
	for _, unit := range p.Sequencer.BuildSequence(records) {
		planned = append(planned, unit.Records...)
	}

	if len(planned) == 0 {
		fmt.Println("All dependencies are up to date.")
		return nil
	}

	fmt.Print(output.RenderOutdatedTable(planned))
	fmt.Println()
	fmt.Println(output.RenderTierSummary(planned))
	fmt.Println()

	if upgradeFlagDryRun {
		fmt.Println("Dry run: nothing was changed.")
		return nil
	}

	if !upgradeFlagYes {
		if !confirm(fmt.Sprintf("Upgrade %d packages?", len(planned))) {
			fmt.Println("Upgrade cancelled.")
			return nil
		}
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snapMgr := snapshots.New(st, getSnapshotDir(), dir)
	snapID, err := snapMgr.Create("pre-upgrade", "")
	if err != nil {
		return fmt.Errorf("failed to create pre-run snapshot: %w", err)
	}
	fmt.Printf("Snapshot %d created. Restore with 'depup undo %d'.\n\n", snapID, snapID)

	// One bar step per planned record; units carry their records through
	// the callback, so batches and peer pull-ins advance by their size.
	prog := output.NewProgress(len(planned))
	p.OnUnit = func(u *sequencer.Unit) {
		for range u.Records {
			prog.Step(u.Name)
		}
	}
	runCtx, err := p.Run(cmd.Context(), dir)
	prog.Finish()
	if err != nil {
		return err
	}

	printRunResult(runCtx)

	if err := persistRun(st, runCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to record run history: %v\n", err)
	}

	if !runCtx.Succeeded() {
		return fmt.Errorf("no packages upgraded, %d failed", len(runCtx.Failed))
	}
	return nil
}

// applyUpgradeFlags layers explicitly set flags over the loaded config.
func applyUpgradeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("tier") {
		cfg.Tiers = upgradeFlagTiers
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = upgradeFlagMode
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = upgradeFlagBatchSize
	}
	if cmd.Flags().Changed("strictness") {
		cfg.Strictness = upgradeFlagStrictness
	}
	if cmd.Flags().Changed("final-check") {
		cfg.FinalCheck = upgradeFlagFinalCheck
	}
}

// printRunResult renders the outcome table, totals, and final check note.
func printRunResult(rc *planner.RunContext) {
	fmt.Println()
	fmt.Print(output.RenderOutcomeTable(rc.Outcomes()))
	fmt.Println()
	fmt.Println(output.RenderRunSummary(len(rc.Successful), len(rc.Failed), len(rc.Skipped), rc.Interrupted))

	if rc.Interrupted {
		fmt.Println("\n⚠  Run interrupted; remaining packages were not attempted.")
	}
	if rc.FinalCheckRan {
		if rc.FinalCheckOK {
			fmt.Println("✓ Final check passed.")
		} else {
			fmt.Printf("⚠  Final check failed (committed upgrades were kept): %s\n", rc.FinalCheckDetail)
		}
	}
}

// persistRun writes the run and its outcomes to the history database.
func persistRun(st *store.Store, rc *planner.RunContext) error {
	if err := st.InsertRun(rc.ID, string(rc.Mode), rc.StartedAt); err != nil {
		return err
	}
	for _, o := range rc.Outcomes() {
		row := &store.OutcomeRow{
			RunID:      rc.ID,
			Package:    o.Package,
			Status:     o.Status.String(),
			OldVersion: o.Old,
			NewVersion: o.New,
			Detail:     o.Detail,
		}
		switch o.Status {
		case engine.StatusSuccessful:
			row.Tier = o.Tier.String()
		case engine.StatusFailed:
			row.ReasonKind = o.ReasonKind.String()
		default:
			row.Detail = o.Reason
		}
		if err := st.InsertOutcome(row); err != nil {
			return err
		}
	}
	return st.FinishRun(rc.ID, time.Now(),
		len(rc.Successful), len(rc.Failed), len(rc.Skipped), rc.Interrupted)
}
