// Package lockfile serializes steward invocations on one host. Updates,
// restores and snapshot maintenance share mutable filesystem resources and
// must not run concurrently.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"
)

// ErrLocked is returned by Acquire when another live steward process holds
// the lock.
var ErrLocked = errors.New("another steward invocation holds the lock")

const pollInterval = 500 * time.Millisecond

// Lock is a held lock file. Release removes it.
type Lock struct {
	path string
}

// Acquire creates the lock file exclusively, writing the owner PID. A lock
// left behind by a process that no longer runs is broken and re-acquired.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write lock file: %w", errors.Join(werr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}

		if !ownerAlive(path) {
			log.Warnf("breaking stale lock %s", path)
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("break stale lock: %w", err)
			}
			continue
		}

		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	return nil, fmt.Errorf("%w: %s", ErrLocked, path)
}

// Wait blocks until the lock can be acquired or ctx expires. It watches the
// lock directory for removals and falls back to periodic polling.
func Wait(ctx context.Context, path string) (*Lock, error) {
	lock, err := Acquire(path)
	if err == nil || !errors.Is(err, ErrLocked) {
		return lock, err
	}

	watcher, werr := fsnotify.NewWatcher()
	if werr == nil {
		defer func() {
			if err := watcher.Close(); err != nil {
				log.Warnf("close lock watcher: %v", err)
			}
		}()
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			log.Warnf("watch lock dir: %v", err)
		}
	} else {
		log.Warnf("create lock watcher: %v", werr)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var events chan fsnotify.Event
	if werr == nil {
		events = watcher.Events
	}

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case ev := <-events:
			if ev.Name != path || !ev.Has(fsnotify.Remove) {
				continue
			}
		case <-ticker.C:
		}

		lock, err := Acquire(path)
		if err == nil || !errors.Is(err, ErrLocked) {
			return lock, err
		}
	}
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}

// ownerAlive reports whether the PID recorded in the lock file still runs.
// An unreadable or malformed lock counts as dead.
func ownerAlive(path string) bool {
	bs, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(bs)))
	if err != nil || pid <= 0 {
		return false
	}

	alive, err := process.PidExists(int32(pid))
	if err != nil {
		// can't tell, assume the owner is alive
		return true
	}
	return alive
}
