package updater

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	swerrors "github.com/stewardhq/steward/internal/errors"
	"github.com/stewardhq/steward/internal/snapshot"
	"github.com/stewardhq/steward/internal/vcs"
	"github.com/stewardhq/steward/util"
)

// Rollback restores the given snapshot. It runs inside an already-failed
// update, so it never fails outwardly: every step is best-effort, errors
// are aggregated for one summary line, and the final service start is
// always attempted. Leaving the service stopped is worse than leaving it
// on a restored-but-imperfect version.
func (u *Updater) Rollback(ctx context.Context, snap *snapshot.Snapshot) RollbackQuality {
	log.Warnf("rolling back to snapshot %s", snap.Name)

	var merr *multierror.Error
	stateRestored := true
	codeReverted := false

	if p, ok := snap.StatePath(); ok {
		if err := util.CopyFileContents(p, u.p.StateFile); err != nil {
			stateRestored = false
			merr = multierror.Append(merr, fmt.Errorf("restore state file: %w", err))
		}
	}

	// a hard reset may have clobbered a tracked config file
	if u.p.ConfigFile != "" {
		if p, ok := snap.ConfigPath(); ok {
			if err := util.CopyFileContents(p, u.p.ConfigFile); err != nil {
				merr = multierror.Append(merr, fmt.Errorf("restore config file: %w", err))
			}
		}
	}

	ref, err := snap.PreviousRef()
	switch {
	case err != nil:
		merr = multierror.Append(merr, fmt.Errorf("read previous reference: %w", err))
	case ref == vcs.UnknownRef:
		log.Warnf("previous reference unknown, skipping code revert")
	default:
		if err := u.p.VCS.ForceCheckout(ctx, ref); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("revert working tree to %s: %w", ref, err))
		} else {
			codeReverted = true
		}
	}

	if err := u.p.Supervisor.Start(); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("start service: %w", err))
	}
	u.waitSettle(ctx)
	live := u.pollLiveness(ctx) == nil
	if !live {
		merr = multierror.Append(merr, errNotRunning)
	}

	if err := swerrors.FormatErrorOrNil(merr); err != nil {
		log.Errorf("rollback to %s finished with issues: %v", snap.Name, err)
	}

	switch {
	case !stateRestored || !live:
		return RollbackFailed
	case !codeReverted:
		return RollbackPartial
	default:
		return RollbackFull
	}
}
