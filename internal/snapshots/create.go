package snapshots

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/depup/internal/npm"
	"github.com/blackwell-systems/depup/internal/store"
)

// Create captures the project's manifest files into a timestamped
// directory and registers the capture. Returns the snapshot ID.
// The lock file is optional; package.json is not.
func (m *Manager) Create(reason, runID string) (int64, error) {
	manifest, err := os.ReadFile(filepath.Join(m.projectDir, npm.ManifestName))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", npm.ManifestName, err)
	}

	lock, err := os.ReadFile(filepath.Join(m.projectDir, npm.LockName))
	hasLock := err == nil
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read %s: %w", npm.LockName, err)
	}

	// Directory name: YYYY-MM-DD-HHMMSS.nnnnnnnnn keeps captures in the
	// same second distinct.
	now := time.Now()
	dir := filepath.Join(m.snapshotDir, now.Format("2006-01-02-150405.000000000"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, npm.ManifestName), manifest, 0644); err != nil {
		return 0, fmt.Errorf("failed to write snapshot manifest: %w", err)
	}
	if hasLock {
		if err := os.WriteFile(filepath.Join(dir, npm.LockName), lock, 0644); err != nil {
			return 0, fmt.Errorf("failed to write snapshot lock file: %w", err)
		}
	}

	id, err := m.store.InsertSnapshot(&store.Snapshot{
		CreatedAt:   now,
		Reason:      reason,
		RunID:       runID,
		ProjectDir:  m.projectDir,
		SnapshotDir: dir,
		HasLock:     hasLock,
	})
	if err != nil {
		// Clean up the copied files if registration fails.
		os.RemoveAll(dir)
		return 0, fmt.Errorf("failed to register snapshot: %w", err)
	}

	return id, nil
}

// List returns this project's snapshots, newest first.
func (m *Manager) List(limit int) ([]*store.Snapshot, error) {
	snaps, err := m.store.ListSnapshots(m.projectDir, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return snaps, nil
}

// CleanupOld removes snapshot directories older than 90 days. Registry
// rows are kept as an audit log.
func (m *Manager) CleanupOld() error {
	snaps, err := m.store.ListSnapshots(m.projectDir, 1<<30)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -90)
	for _, snap := range snaps {
		if snap.CreatedAt.Before(cutoff) {
			if err := os.RemoveAll(snap.SnapshotDir); err != nil {
				return fmt.Errorf("failed to delete snapshot directory %s: %w", snap.SnapshotDir, err)
			}
		}
	}
	return nil
}
