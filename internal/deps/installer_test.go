package deps

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallAllRunsConfiguredCommand(t *testing.T) {
	inst := NewInstaller("/opt/ticketbot", []string{"pip", "install", "-r", "requirements.txt"}, time.Second)

	var gotDir, gotName string
	var gotArgs []string
	inst.run = func(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
		gotDir, gotName, gotArgs = dir, name, args
		return []byte("ok"), nil
	}

	require.NoError(t, inst.InstallAll(context.Background()))
	assert.Equal(t, "/opt/ticketbot", gotDir)
	assert.Equal(t, "pip", gotName)
	assert.Equal(t, []string{"install", "-r", "requirements.txt"}, gotArgs)
}

func TestInstallAllEmptyCommandIsNoop(t *testing.T) {
	inst := NewInstaller("/opt/ticketbot", nil, time.Second)
	inst.run = func(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
		t.Fatal("runner must not be called")
		return nil, nil
	}

	assert.NoError(t, inst.InstallAll(context.Background()))
}

func TestInstallAllFailureIncludesOutput(t *testing.T) {
	inst := NewInstaller("/opt/ticketbot", []string{"pip", "install"}, time.Second)
	inst.run = func(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
		return []byte("No matching distribution found"), errors.New("exit status 1")
	}

	err := inst.InstallAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No matching distribution found")
}
