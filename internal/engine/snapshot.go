package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackwell-systems/depup/internal/npm"
)

// snapshot is a verbatim byte capture of package.json and the lock file,
// taken immediately before a unit is applied. At most one snapshot is
// live at a time; it is discarded on commit and restored on every other
// exit path.
type snapshot struct {
	dir      string
	manifest []byte
	lock     []byte
	hasLock  bool
}

// capture reads the manifest and lock file from dir. A missing lock file
// is fine (fresh projects); a missing manifest is not.
func capture(dir string) (*snapshot, error) {
	manifest, err := os.ReadFile(filepath.Join(dir, npm.ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", npm.ManifestName, err)
	}

	s := &snapshot{dir: dir, manifest: manifest}

	lock, err := os.ReadFile(filepath.Join(dir, npm.LockName))
	if err == nil {
		s.lock = lock
		s.hasLock = true
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", npm.LockName, err)
	}

	return s, nil
}

// restore writes the captured bytes back. If the lock file did not exist
// at capture time, any lock file the failed install created is removed,
// so the restore is exact.
func (s *snapshot) restore() error {
	if err := os.WriteFile(filepath.Join(s.dir, npm.ManifestName), s.manifest, 0644); err != nil {
		return fmt.Errorf("failed to restore %s: %w", npm.ManifestName, err)
	}

	lockPath := filepath.Join(s.dir, npm.LockName)
	if s.hasLock {
		if err := os.WriteFile(lockPath, s.lock, 0644); err != nil {
			return fmt.Errorf("failed to restore %s: %w", npm.LockName, err)
		}
		return nil
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", npm.LockName, err)
	}
	return nil
}
