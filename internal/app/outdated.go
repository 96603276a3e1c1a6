package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depup/internal/config"
	"github.com/blackwell-systems/depup/internal/output"
	"github.com/blackwell-systems/depup/internal/planner"
	"github.com/blackwell-systems/depup/internal/sequencer"
)

var (
	outdatedFlagJSON bool
	outdatedFlagOnly []string
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "Show outdated dependencies with risk tiers",
	Long: `Queries the registry for each dependency in package.json and lists
the packages with an upgrade available, in the order 'depup upgrade'
would apply them. Nothing is modified.`,
	Example: `  depup outdated
  depup outdated --json
  depup outdated --only react --only react-dom`,
	RunE: runOutdated,
}

func init() {
	outdatedCmd.Flags().BoolVar(&outdatedFlagJSON, "json", false, "emit machine-readable JSON")
	outdatedCmd.Flags().StringSliceVar(&outdatedFlagOnly, "only", nil, "limit to specific packages (repeatable)")

	RootCmd.AddCommand(outdatedCmd)
}

func runOutdated(cmd *cobra.Command, args []string) error {
	dir, err := getProjectDir()
	if err != nil {
		return err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	p, err := buildPlanner(dir, cfg)
	if err != nil {
		return err
	}
	p.Only = toSet(outdatedFlagOnly)

	spinner := output.NewSpinner("Querying registry")
	if !outdatedFlagJSON {
		spinner.Start()
	}

	rc := planner.NewRunContext(p.Mode)
	records, err := p.Discover(cmd.Context(), dir, rc)

	if !outdatedFlagJSON {
		spinner.Stop()
	}
	if err != nil {
		return err
	}

	// Present in the order an upgrade run would process them.
	var ordered []*sequencer.Record
	for _, unit := range p.Sequencer.BuildSequence(records) {
		ordered = append(ordered, unit.Records...)
	}

	if outdatedFlagJSON {
		return printOutdatedJSON(ordered)
	}

	fmt.Print(output.RenderOutdatedTable(ordered))
	if len(ordered) > 0 {
		fmt.Println()
		fmt.Println(output.RenderTierSummary(ordered))
	}
	if n := len(rc.Skipped); n > 0 {
		fmt.Printf("\n%d dependencies already up to date or unavailable.\n", n)
	}
	return nil
}

// outdatedEntry is the JSON shape for one upgradeable package.
type outdatedEntry struct {
	Package   string `json:"package"`
	Current   string `json:"current"`
	Latest    string `json:"latest"`
	Tier      string `json:"tier"`
	Ecosystem string `json:"ecosystem,omitempty"`
	Dev       bool   `json:"dev,omitempty"`
}

func printOutdatedJSON(records []*sequencer.Record) error {
	entries := make([]outdatedEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, outdatedEntry{
			Package:   r.Name,
			Current:   r.Current,
			Latest:    r.Latest,
			Tier:      r.Tier.String(),
			Ecosystem: r.Ecosystem,
			Dev:       r.Dev,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
