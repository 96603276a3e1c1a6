package snapshots

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/depup/internal/npm"
	"github.com/blackwell-systems/depup/internal/store"
)

// Restore writes a snapshot's manifest files back into the project,
// byte-for-byte. If the snapshot had no lock file, any lock file
// present in the project is removed so the project matches the capture
// exactly.
func (m *Manager) Restore(id int64) (*store.Snapshot, error) {
	snap, err := m.store.GetSnapshot(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if err := m.restoreFiles(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// RestoreLatest restores the most recent snapshot for the project.
func (m *Manager) RestoreLatest() (*store.Snapshot, error) {
	snap, err := m.store.LatestSnapshot(m.projectDir)
	if err != nil {
		return nil, err
	}
	if err := m.restoreFiles(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (m *Manager) restoreFiles(snap *store.Snapshot) error {
	manifest, err := os.ReadFile(filepath.Join(snap.SnapshotDir, npm.ManifestName))
	if err != nil {
		return fmt.Errorf("failed to read snapshot manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.projectDir, npm.ManifestName), manifest, 0644); err != nil {
		return fmt.Errorf("failed to restore %s: %w", npm.ManifestName, err)
	}

	lockPath := filepath.Join(m.projectDir, npm.LockName)
	if !snap.HasLock {
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", npm.LockName, err)
		}
		return nil
	}

	lock, err := os.ReadFile(filepath.Join(snap.SnapshotDir, npm.LockName))
	if err != nil {
		return fmt.Errorf("failed to read snapshot lock file: %w", err)
	}
	if err := os.WriteFile(lockPath, lock, 0644); err != nil {
		return fmt.Errorf("failed to restore %s: %w", npm.LockName, err)
	}
	return nil
}
