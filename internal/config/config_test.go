package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steward.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeManifest(t, `
service_name: ticketbot
working_dir: /opt/ticketbot
state_file: /opt/ticketbot/bot.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ticketbot", cfg.ServiceName)
	assert.Equal(t, DefaultSnapshotDir, cfg.SnapshotDir)
	assert.Equal(t, DefaultBackupDir, cfg.BackupDir)
	assert.Equal(t, DefaultStateDir, cfg.StateDir)
	assert.Equal(t, "origin", cfg.Remote)
	assert.Equal(t, "main", cfg.RemoteRef)
	assert.Equal(t, 5, cfg.KeepSnapshots)
	assert.Equal(t, 10*time.Second, cfg.SettleInterval())
	assert.Equal(t, 5*time.Minute, cfg.VCSTimeout())
}

func TestLoadOverrides(t *testing.T) {
	path := writeManifest(t, `
service_name: ticketbot
working_dir: /opt/ticketbot
state_file: /opt/ticketbot/bot.db
config_file: /opt/ticketbot/secrets.yaml
remote: deploy
remote_ref: release
install_command: ["/opt/ticketbot/venv/bin/pip", "install", "-r", "requirements.txt"]
keep_snapshots: 3
settle_seconds: 5
vcs_timeout_seconds: 60
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "deploy", cfg.Remote)
	assert.Equal(t, "release", cfg.RemoteRef)
	assert.Equal(t, []string{"/opt/ticketbot/venv/bin/pip", "install", "-r", "requirements.txt"}, cfg.InstallCommand)
	assert.Equal(t, 3, cfg.KeepSnapshots)
	assert.Equal(t, 5*time.Second, cfg.SettleInterval())
	assert.Equal(t, time.Minute, cfg.VCSTimeout())
}

func TestLoadMissingRequiredFieldsNamesYamlKeys(t *testing.T) {
	path := writeManifest(t, `
working_dir: /opt/ticketbot
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service_name is required")
	assert.Contains(t, err.Error(), "state_file is required")
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	path := writeManifest(t, `
service_name: ticketbot
working_dir: /opt/ticketbot
state_file: /opt/ticketbot/bot.db
keep_snapshots: -1
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keep_snapshots must be at least 1")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
