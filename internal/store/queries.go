package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// InsertRun records the start of an upgrade run.
func (s *Store) InsertRun(id, mode string, startedAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO runs (id, started_at, mode) VALUES (?, ?, ?)",
		id, startedAt, mode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun records the end of a run together with its outcome counts.
func (s *Store) FinishRun(id string, finishedAt time.Time, upgraded, failed, skipped int, interrupted bool) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, upgraded = ?, failed = ?, skipped = ?, interrupted = ?
		 WHERE id = ?`,
		finishedAt, upgraded, failed, skipped, interrupted, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, started_at, finished_at, mode, upgraded, failed, skipped, interrupted
		 FROM runs WHERE id = ?`, id,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, mode, upgraded, failed, skipped, interrupted
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var finished sql.NullTime
	err := row.Scan(&r.ID, &r.StartedAt, &finished, &r.Mode,
		&r.Upgraded, &r.Failed, &r.Skipped, &r.Interrupted)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

// InsertOutcome records one per-package outcome for a run.
func (s *Store) InsertOutcome(o *OutcomeRow) error {
	_, err := s.db.Exec(
		`INSERT INTO outcomes (run_id, package, status, old_version, new_version, tier, reason_kind, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Package, o.Status, o.OldVersion, o.NewVersion, o.Tier, o.ReasonKind, o.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// GetOutcomes returns all outcomes for a run in insertion order.
func (s *Store) GetOutcomes(runID string) ([]*OutcomeRow, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, package, status, old_version, new_version, tier, reason_kind, detail
		 FROM outcomes WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []*OutcomeRow
	for rows.Next() {
		var o OutcomeRow
		err := rows.Scan(&o.ID, &o.RunID, &o.Package, &o.Status,
			&o.OldVersion, &o.NewVersion, &o.Tier, &o.ReasonKind, &o.Detail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}

// InsertSnapshot registers a manifest capture and returns its id.
func (s *Store) InsertSnapshot(snap *Snapshot) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO snapshots (created_at, reason, run_id, project_dir, snapshot_dir, has_lock)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.CreatedAt, snap.Reason, snap.RunID, snap.ProjectDir, snap.SnapshotDir, snap.HasLock,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot id: %w", err)
	}
	return id, nil
}

// GetSnapshot returns one snapshot by id.
func (s *Store) GetSnapshot(id int64) (*Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT id, created_at, reason, run_id, project_dir, snapshot_dir, has_lock
		 FROM snapshots WHERE id = ?`, id,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snap, nil
}

// LatestSnapshot returns the most recent snapshot for a project.
func (s *Store) LatestSnapshot(projectDir string) (*Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT id, created_at, reason, run_id, project_dir, snapshot_dir, has_lock
		 FROM snapshots WHERE project_dir = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		projectDir,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no snapshots for %s: %w", projectDir, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snap, nil
}

// ListSnapshots returns snapshots for a project, newest first.
func (s *Store) ListSnapshots(projectDir string, limit int) ([]*Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT id, created_at, reason, run_id, project_dir, snapshot_dir, has_lock
		 FROM snapshots WHERE project_dir = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		projectDir, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// DeleteSnapshot removes a snapshot registry row.
func (s *Store) DeleteSnapshot(id int64) error {
	res, err := s.db.Exec("DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("snapshot %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var snap Snapshot
	var reason, runID sql.NullString
	err := row.Scan(&snap.ID, &snap.CreatedAt, &reason, &runID,
		&snap.ProjectDir, &snap.SnapshotDir, &snap.HasLock)
	if err != nil {
		return nil, err
	}
	snap.Reason = reason.String
	snap.RunID = runID.String
	return &snap, nil
}
