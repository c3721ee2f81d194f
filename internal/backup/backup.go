// Package backup implements operator-invoked single-artifact backup and
// restore of the managed service's state file, independent of the update
// orchestrator's snapshot lifecycle.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stewardhq/steward/internal/supervisor"
	"github.com/stewardhq/steward/util"
)

// ErrNoStateFile is returned by Backup when there is nothing to back up.
var ErrNoStateFile = errors.New("state file does not exist")

const artifactTimeFormat = "20060102-150405"

// Manager copies the live state file to timestamped artifacts and restores
// them on request. Artifacts are owned by the operator and never read by
// the update orchestrator.
type Manager struct {
	stateFile string
	backupDir string
	sup       supervisor.Supervisor
	now       func() time.Time
}

func NewManager(stateFile, backupDir string, sup supervisor.Supervisor) *Manager {
	return &Manager{
		stateFile: stateFile,
		backupDir: backupDir,
		sup:       sup,
		now:       time.Now,
	}
}

// Backup copies the current state file to a uniquely named artifact and
// returns its path.
func (m *Manager) Backup() (string, error) {
	if !util.FileExists(m.stateFile) {
		return "", fmt.Errorf("%w: %s", ErrNoStateFile, m.stateFile)
	}

	if err := os.MkdirAll(m.backupDir, 0750); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	artifact, err := m.artifactPath()
	if err != nil {
		return "", err
	}

	if err := util.CopyFileContents(m.stateFile, artifact); err != nil {
		return "", fmt.Errorf("copy state file: %w", err)
	}

	log.Infof("backed up %s to %s", m.stateFile, artifact)
	return artifact, nil
}

// artifactPath picks the first free capture-time-derived name. Same-second
// captures get an increasing suffix.
func (m *Manager) artifactPath() (string, error) {
	base := fmt.Sprintf("%s-%s", filepath.Base(m.stateFile), m.now().Format(artifactTimeFormat))

	for seq := 1; ; seq++ {
		name := base
		if seq > 1 {
			name = fmt.Sprintf("%s-%d", base, seq)
		}
		path := filepath.Join(m.backupDir, name)

		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		} else if err != nil {
			return "", fmt.Errorf("probe artifact path: %w", err)
		}
	}
}

// Restore replaces the current state file with the given artifact. The
// artifact is validated before any mutation; afterwards the current state
// file survives as an .old sidecar which is never deleted automatically.
// Confirmation of this destructive action is the caller's responsibility.
func (m *Manager) Restore(artifact string) error {
	if !util.FileExists(artifact) {
		return fmt.Errorf("backup artifact does not exist: %s", artifact)
	}

	if err := m.sup.Stop(); err != nil {
		log.Warnf("failed to stop service before restore: %v", err)
	}

	sidecar := m.stateFile + ".old"
	hadState := util.FileExists(m.stateFile)
	if hadState {
		if err := os.Rename(m.stateFile, sidecar); err != nil {
			return fmt.Errorf("preserve current state file: %w", err)
		}
	}

	if err := util.CopyFileContents(artifact, m.stateFile); err != nil {
		if hadState {
			if rerr := os.Rename(sidecar, m.stateFile); rerr != nil {
				log.Errorf("failed to put original state file back: %v", rerr)
			}
		}
		if serr := m.sup.Start(); serr != nil {
			log.Warnf("failed to restart service after aborted restore: %v", serr)
		}
		return fmt.Errorf("copy artifact into place: %w", err)
	}

	if err := m.sup.Start(); err != nil {
		return fmt.Errorf("restart service after restore: %w", err)
	}

	log.Infof("restored %s from %s", m.stateFile, artifact)
	return nil
}
