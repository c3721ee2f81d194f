package lockfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, lock.Release())
	assert.NoFileExists(t, path)
}

func TestAcquireHeldLockFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, lock.Release())
	}()

	_, err = Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestAcquireBreaksStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.lock")
	// no process with this pid can exist
	require.NoError(t, os.WriteFile(path, []byte("4194304"), 0600))

	lock, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestAcquireBreaksMalformedLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.lock")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0600))

	lock, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestWaitAcquiresAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.lock")

	held, err := Acquire(path)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = held.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock, err := Wait(ctx, path)
	require.NoError(t, err)
	require.NoError(t, lock.Release())
}

func TestWaitHonorsContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steward.lock")

	held, err := Acquire(path)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, held.Release())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = Wait(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
