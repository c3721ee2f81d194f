package backup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSupervisor struct {
	running    bool
	stopCalls  int
	startCalls int
}

func (f *fakeSupervisor) Start() error {
	f.startCalls++
	f.running = true
	return nil
}

func (f *fakeSupervisor) Stop() error {
	f.stopCalls++
	f.running = false
	return nil
}

func (f *fakeSupervisor) IsActive() (bool, error) { return f.running, nil }
func (f *fakeSupervisor) Status() (string, error) {
	if f.running {
		return "running", nil
	}
	return "stopped", nil
}

func newTestManager(t *testing.T) (*Manager, string, *fakeSupervisor) {
	t.Helper()
	dir := t.TempDir()
	stateFile := filepath.Join(dir, "bot.db")
	sup := &fakeSupervisor{running: true}
	return NewManager(stateFile, filepath.Join(dir, "backups"), sup), stateFile, sup
}

func TestBackupMissingStateFile(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Backup()
	assert.ErrorIs(t, err, ErrNoStateFile)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	m, stateFile, sup := newTestManager(t)
	require.NoError(t, os.WriteFile(stateFile, []byte("original"), 0600))

	artifact, err := m.Backup()
	require.NoError(t, err)
	assert.FileExists(t, artifact)

	require.NoError(t, m.Restore(artifact))

	// restored state is byte-identical to the original
	bs, err := os.ReadFile(stateFile)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), bs)

	// the pre-restore state survives as an .old sidecar
	old, err := os.ReadFile(stateFile + ".old")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), old)

	assert.Equal(t, 1, sup.stopCalls)
	assert.Equal(t, 1, sup.startCalls)
	assert.True(t, sup.running)
}

func TestRestoreReplacesModifiedState(t *testing.T) {
	m, stateFile, _ := newTestManager(t)
	require.NoError(t, os.WriteFile(stateFile, []byte("v1"), 0600))

	artifact, err := m.Backup()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(stateFile, []byte("v2-corrupted"), 0600))
	require.NoError(t, m.Restore(artifact))

	bs, err := os.ReadFile(stateFile)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), bs)

	old, err := os.ReadFile(stateFile + ".old")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2-corrupted"), old)
}

func TestRestoreMissingArtifactMutatesNothing(t *testing.T) {
	m, stateFile, sup := newTestManager(t)
	require.NoError(t, os.WriteFile(stateFile, []byte("v1"), 0600))

	err := m.Restore(filepath.Join(t.TempDir(), "missing-artifact"))
	require.Error(t, err)

	bs, rerr := os.ReadFile(stateFile)
	require.NoError(t, rerr)
	assert.Equal(t, []byte("v1"), bs)
	assert.NoFileExists(t, stateFile+".old")

	// the service was never stopped
	assert.Zero(t, sup.stopCalls)
	assert.True(t, sup.running)
}

func TestRestoreWithoutCurrentStateSkipsSidecar(t *testing.T) {
	m, stateFile, _ := newTestManager(t)
	require.NoError(t, os.WriteFile(stateFile, []byte("v1"), 0600))

	artifact, err := m.Backup()
	require.NoError(t, err)

	require.NoError(t, os.Remove(stateFile))
	require.NoError(t, m.Restore(artifact))

	bs, err := os.ReadFile(stateFile)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), bs)
	assert.NoFileExists(t, stateFile+".old")
}

func TestBackupSameSecondGetsDistinctArtifacts(t *testing.T) {
	m, stateFile, _ := newTestManager(t)
	require.NoError(t, os.WriteFile(stateFile, []byte("v1"), 0600))

	first, err := m.Backup()
	require.NoError(t, err)
	second, err := m.Backup()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.FileExists(t, first)
	assert.FileExists(t, second)
}
