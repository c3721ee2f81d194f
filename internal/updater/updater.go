// Package updater sequences the snapshot store, the version-control
// backend, the dependency installer and the process supervisor into an
// all-or-nothing phased update with automatic rollback to the snapshot
// taken at the start of the run.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/disk"
	log "github.com/sirupsen/logrus"

	"github.com/stewardhq/steward/internal/lockfile"
	"github.com/stewardhq/steward/internal/opstate"
	"github.com/stewardhq/steward/internal/snapshot"
	"github.com/stewardhq/steward/internal/supervisor"
	"github.com/stewardhq/steward/internal/vcs"
	"github.com/stewardhq/steward/util"
)

// livenessRetries bounds the post-settle liveness poll.
const livenessRetries = 2

var errNotRunning = errors.New("service is not running")

// Installer is the dependency-installer collaborator. Its failures are
// never escalated beyond a warning.
type Installer interface {
	InstallAll(ctx context.Context) error
}

// Params wires the orchestrator to its collaborators and the deployment's
// filesystem layout.
type Params struct {
	StateFile  string
	ConfigFile string

	Supervisor supervisor.Supervisor
	VCS        vcs.Backend
	Installer  Installer
	Snapshots  *snapshot.Store
	OpState    *opstate.Store

	LockPath    string
	WaitForLock bool

	SettleInterval time.Duration
	KeepSnapshots  int
}

// Updater runs the five-phase update state machine. One Run at a time per
// host; the lock file enforces it.
type Updater struct {
	p Params
}

func New(p Params) *Updater {
	return &Updater{p: p}
}

// run carries the mutable context of one update attempt.
type run struct {
	res  *Result
	snap *snapshot.Snapshot
}

// Run executes one update attempt. Phase failures never surface as raw
// errors: they are converted into the returned Result. An error return
// means the run could not start at all (lock contention, bad wiring).
func (u *Updater) Run(ctx context.Context) (*Result, error) {
	lock, err := u.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			log.Warnf("release update lock: %v", err)
		}
	}()

	r := &run{res: &Result{
		RunID:     uuid.NewString(),
		Rollback:  RollbackNone,
		StartedAt: time.Now(),
	}}

	log.Infof("starting update run %s", r.res.RunID)
	u.execute(ctx, r)
	r.res.FinishedAt = time.Now()

	if r.snap != nil {
		u.p.Snapshots.Unpin(r.snap.Name)
	}

	u.persistSummary(r.res)

	if r.res.Success {
		log.Infof("update run %s succeeded, snapshot at %s", r.res.RunID, r.res.SnapshotPath)
	} else {
		log.Errorf("update run %s failed in phase %s, rollback: %s, snapshot at %s",
			r.res.RunID, r.res.FailedPhase, r.res.Rollback, r.res.SnapshotPath)
	}

	return r.res, nil
}

func (u *Updater) acquireLock(ctx context.Context) (*lockfile.Lock, error) {
	if u.p.WaitForLock {
		return lockfile.Wait(ctx, u.p.LockPath)
	}
	return lockfile.Acquire(u.p.LockPath)
}

// execute drives the state machine: every phase outcome goes through the
// transition function, which decides whether to advance, halt, or roll
// back to the phase-1 snapshot.
func (u *Updater) execute(ctx context.Context, r *run) {
	steps := []struct {
		phase Phase
		fn    func(context.Context, *run) error
	}{
		{PhasePrepare, u.prepare},
		{PhaseCodeUpdate, u.codeUpdate},
		{PhaseDependencies, u.installDependencies},
		{PhaseStateMigration, u.migrateState},
		{PhaseRestartVerify, u.restartVerify},
	}

	for _, step := range steps {
		log.Infof("phase %s", step.phase)
		err := step.fn(ctx, r)

		switch transition(step.phase, err) {
		case actionAdvance:
			continue
		case actionHalt:
			log.Errorf("phase %s failed: %v", step.phase, err)
			r.res.FailedPhase = step.phase
			return
		case actionRollback:
			log.Errorf("phase %s failed: %v, rolling back", step.phase, err)
			r.res.FailedPhase = step.phase
			r.res.Rollback = u.Rollback(ctx, r.snap)
			return
		}
	}

	r.res.Success = true
}

// prepare stops the service and captures the snapshot. Only the snapshot
// capture itself can fail the phase; everything else downgrades to a
// warning so an update is never blocked by a stuck stop or an unreadable
// reference.
func (u *Updater) prepare(ctx context.Context, r *run) error {
	active, err := u.p.Supervisor.IsActive()
	if err != nil {
		r.res.warnf("could not determine service state: %v", err)
	}
	if active {
		if err := u.p.Supervisor.Stop(); err != nil {
			r.res.warnf("failed to stop service, proceeding with update: %v", err)
		}
	}

	ref, err := u.p.VCS.CurrentReference(ctx)
	if err != nil {
		r.res.warnf("could not resolve current reference, recording %q: %v", vcs.UnknownRef, err)
		ref = vcs.UnknownRef
	}

	u.checkHeadroom(r)

	snap, err := u.p.Snapshots.Create(ref)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	u.p.Snapshots.Pin(snap.Name)
	r.snap = snap
	r.res.SnapshotPath = snap.Dir

	log.Infof("snapshot %s captured, previous reference %s", snap.Name, ref)
	return nil
}

// checkHeadroom warns when the snapshot volume looks too small for the
// copies about to be taken. Advisory only.
func (u *Updater) checkHeadroom(r *run) {
	var needed uint64
	for _, f := range []string{u.p.StateFile, u.p.ConfigFile} {
		if f == "" {
			continue
		}
		if info, err := os.Stat(f); err == nil {
			needed += uint64(info.Size())
		}
	}
	if needed == 0 {
		return
	}

	// the snapshot root may not exist before the first run
	usage, err := disk.Usage(u.p.Snapshots.Root())
	if err != nil {
		usage, err = disk.Usage(filepath.Dir(u.p.Snapshots.Root()))
	}
	if err != nil {
		log.Debugf("disk headroom check skipped: %v", err)
		return
	}

	if usage.Free < needed {
		r.res.warnf("low disk space for snapshot: %d bytes free, %d needed", usage.Free, needed)
	}
}

// codeUpdate advances the working tree. Fetch and reset failures are
// fatal; discarding local modifications is best-effort.
func (u *Updater) codeUpdate(ctx context.Context, r *run) error {
	if err := u.p.VCS.DiscardLocalChanges(ctx); err != nil {
		r.res.warnf("failed to discard local changes: %v", err)
	}

	if err := u.p.VCS.FetchRemote(ctx); err != nil {
		return fmt.Errorf("fetch remote: %w", err)
	}

	if err := u.p.VCS.ForceCheckout(ctx, u.p.VCS.RemoteTrackingRef()); err != nil {
		return fmt.Errorf("reset working tree: %w", err)
	}

	return nil
}

// installDependencies reinstalls declared dependencies. Dependency drift is
// treated as recoverable after the restart, not as a rollback trigger.
func (u *Updater) installDependencies(ctx context.Context, r *run) error {
	if err := u.p.Installer.InstallAll(ctx); err != nil {
		r.res.warnf("dependency install failed, continuing: %v", err)
	}
	return nil
}

// migrateState consumes the reset flag: when armed, the persisted state
// file is deleted and the flag cleared. File absence is not an error and
// nothing here aborts the update.
func (u *Updater) migrateState(_ context.Context, r *run) error {
	rec, err := u.p.OpState.Load()
	if err != nil {
		r.res.warnf("could not read reset flag: %v", err)
		return nil
	}
	if !rec.ResetStateOnUpdate {
		return nil
	}

	log.Infof("reset flag armed, clearing persisted state %s", u.p.StateFile)

	if err := util.RemoveFile(u.p.StateFile); err != nil {
		r.res.warnf("failed to clear persisted state: %v", err)
	}

	err = u.p.OpState.Mutate(func(rec *opstate.Record) error {
		rec.ResetStateOnUpdate = false
		return nil
	})
	if err != nil {
		r.res.warnf("failed to clear reset flag: %v", err)
	}

	return nil
}

// restartVerify starts the service, waits the settle interval and trusts a
// liveness read only afterwards. On success old snapshots are pruned; the
// run's own snapshot is pinned and survives regardless.
func (u *Updater) restartVerify(ctx context.Context, r *run) error {
	if err := u.p.Supervisor.Start(); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	u.waitSettle(ctx)

	if err := u.pollLiveness(ctx); err != nil {
		return fmt.Errorf("service not live after restart: %w", err)
	}

	if removed, err := u.p.Snapshots.Prune(u.p.KeepSnapshots); err != nil {
		r.res.warnf("snapshot pruning failed: %v", err)
	} else if removed > 0 {
		log.Infof("pruned %d old snapshots", removed)
	}

	return nil
}

// waitSettle sleeps the configured settle interval, honoring ctx.
func (u *Updater) waitSettle(ctx context.Context) {
	timer := time.NewTimer(u.p.SettleInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// pollLiveness checks the service state a bounded number of times, spaced
// by the settle interval.
func (u *Updater) pollLiveness(ctx context.Context) error {
	check := func() error {
		active, err := u.p.Supervisor.IsActive()
		if err != nil {
			return err
		}
		if !active {
			return errNotRunning
		}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(u.p.SettleInterval), livenessRetries), ctx)
	return backoff.Retry(check, bo)
}

// persistSummary records the run outcome for steward status. Best-effort.
func (u *Updater) persistSummary(res *Result) {
	err := u.p.OpState.Mutate(func(rec *opstate.Record) error {
		rec.LastUpdate = res.Summary()
		return nil
	})
	if err != nil {
		log.Warnf("failed to persist update summary: %v", err)
	}
}
