// Package snapshots manages pre-run captures of a project's manifest
// files. A snapshot is a verbatim copy of package.json (and
// package-lock.json when present) taken before any modification, so a
// run can be unwound byte-for-byte afterwards.
package snapshots

import (
	"github.com/blackwell-systems/depup/internal/store"
)

// Manager manages snapshot creation, restoration, and cleanup.
type Manager struct {
	store       *store.Store
	snapshotDir string
	projectDir  string
}

// New creates a new snapshot Manager for one project.
func New(st *store.Store, snapshotDir, projectDir string) *Manager {
	return &Manager{
		store:       st,
		snapshotDir: snapshotDir,
		projectDir:  projectDir,
	}
}
