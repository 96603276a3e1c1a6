package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depup/internal/output"
	"github.com/blackwell-systems/depup/internal/store"
)

var historyFlagLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past upgrade runs",
	Long: `Lists past upgrade runs, or the per-package outcomes of one run
when a run ID is given.`,
	Example: `  depup history
  depup history --limit 5
  depup history 4f1c2a6e-...`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyFlagLimit, "limit", 20, "maximum runs to list")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) > 0 {
		return showRun(st, args[0])
	}

	runs, err := st.ListRuns(historyFlagLimit)
	if err != nil {
		return err
	}
	fmt.Print(output.RenderRunTable(runs))
	if len(runs) > 0 {
		fmt.Printf("\nShow one run with: depup history <run-id>\n")
	}
	return nil
}

// showRun prints one run's header and per-package outcomes.
func showRun(st *store.Store, id string) error {
	run, err := st.GetRun(id)
	if err != nil {
		return fmt.Errorf("run %s not found\n\nRun 'depup history' to see recorded runs", id)
	}

	fmt.Printf("Run:      %s\n", run.ID)
	fmt.Printf("Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Printf("Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Mode:     %s\n", run.Mode)
	fmt.Println()
	fmt.Println(output.RenderRunSummary(run.Upgraded, run.Failed, run.Skipped, run.Interrupted))
	fmt.Println()

	outcomes, err := st.GetOutcomes(id)
	if err != nil {
		return err
	}
	if len(outcomes) == 0 {
		fmt.Println("No outcomes recorded for this run.")
		return nil
	}

	fmt.Printf("%-28s %-11s %-24s %s\n", "Package", "Status", "Change", "Notes")
	fmt.Println(strings.Repeat("─", 90))
	for _, o := range outcomes {
		change := "—"
		if o.OldVersion != "" && o.NewVersion != "" {
			change = o.OldVersion + " → " + o.NewVersion
		}
		notes := o.Detail
		if o.ReasonKind != "" {
			notes = fmt.Sprintf("[%s] %s", o.ReasonKind, o.Detail)
		}
		fmt.Printf("%-28s %-11s %-24s %s\n", o.Package, o.Status, change, notes)
	}
	return nil
}
