package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/depup/internal/output"
	"github.com/blackwell-systems/depup/internal/snapshots"
	"github.com/blackwell-systems/depup/internal/store"
)

var (
	undoFlagList bool
	undoFlagYes  bool
)

var undoCmd = &cobra.Command{
	Use:   "undo [snapshot-id | latest]",
	Short: "Restore manifest files from a snapshot",
	Long: `Restores package.json and package-lock.json from a snapshot,
byte-for-byte. Snapshots are created automatically before every
'depup upgrade' run.

Restoring the manifest does not reinstall node_modules; run
'npm install' afterwards to bring the tree back in line.

Arguments:
  snapshot-id  The numeric ID of the snapshot to restore
  latest       Restore the most recent snapshot for this project`,
	Example: `  depup undo --list     # List available snapshots
  depup undo latest     # Restore the most recent snapshot
  depup undo 42         # Restore snapshot ID 42
  depup undo 42 --yes   # Restore without confirmation`,
	RunE: runUndo,
}

func init() {
	undoCmd.Flags().BoolVar(&undoFlagList, "list", false, "List available snapshots")
	undoCmd.Flags().BoolVarP(&undoFlagYes, "yes", "y", false, "Skip confirmation prompt")

	RootCmd.AddCommand(undoCmd)
}

func runUndo(cmd *cobra.Command, args []string) error {
	dir, err := getProjectDir()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	snapMgr := snapshots.New(st, getSnapshotDir(), dir)

	if undoFlagList {
		return listSnapshots(snapMgr)
	}

	if len(args) == 0 {
		return fmt.Errorf("snapshot ID or 'latest' required\n\nUsage: depup undo [snapshot-id | latest]\n\nUse 'depup undo --list' to see available snapshots")
	}

	if !undoFlagYes {
		if !confirm("Restore manifest files, discarding current versions?") {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	var snap *store.Snapshot
	if strings.EqualFold(args[0], "latest") {
		snap, err = snapMgr.RestoreLatest()
	} else {
		var id int64
		id, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot ID: %s (must be a number or 'latest')", args[0])
		}
		snap, err = snapMgr.Restore(id)
	}
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	fmt.Printf("✓ Restored snapshot %d (created %s)\n", snap.ID, snap.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("\nRun 'npm install' to rebuild node_modules against the restored manifest.")
	return nil
}

// listSnapshots displays this project's snapshots.
func listSnapshots(snapMgr *snapshots.Manager) error {
	snaps, err := snapMgr.List(50)
	if err != nil {
		return err
	}

	if len(snaps) == 0 {
		fmt.Println("No snapshots available.")
		fmt.Println("\nSnapshots are created automatically before every 'depup upgrade' run.")
		return nil
	}

	fmt.Printf("\nAvailable snapshots:\n\n")
	fmt.Print(output.RenderSnapshotTable(snaps))
	fmt.Printf("\nRestore with: depup undo <id>\n")
	return nil
}
