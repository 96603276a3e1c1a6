package store

import "time"

// Run is one persisted upgrade run.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Mode        string
	Upgraded    int
	Failed      int
	Skipped     int
	Interrupted bool
}

// OutcomeRow is one persisted per-package outcome.
type OutcomeRow struct {
	ID         int64
	RunID      string
	Package    string
	Status     string
	OldVersion string
	NewVersion string
	Tier       string
	ReasonKind string
	Detail     string
}

// Snapshot is one registry entry for a pre-run manifest capture. The
// verbatim file copies live under SnapshotDir.
type Snapshot struct {
	ID          int64
	CreatedAt   time.Time
	Reason      string
	RunID       string
	ProjectDir  string
	SnapshotDir string
	HasLock     bool
}
