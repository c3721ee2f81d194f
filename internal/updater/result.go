package updater

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stewardhq/steward/internal/opstate"
)

// RollbackQuality grades how complete a rollback was. The three failure
// grades are deliberately kept apart: a rollback that could not revert the
// code version is not the same as one that restored everything.
type RollbackQuality string

const (
	// RollbackNone means no rollback ran (successful update, or a
	// prepare failure before anything was mutated).
	RollbackNone RollbackQuality = "none"
	// RollbackFull means state and code were restored and the service
	// is running again.
	RollbackFull RollbackQuality = "full"
	// RollbackPartial means state was restored but the code revert was
	// skipped or failed, typically because the previous reference was
	// recorded as unknown.
	RollbackPartial RollbackQuality = "partial"
	// RollbackFailed means the state restore failed or the service is
	// not running after the final start attempt.
	RollbackFailed RollbackQuality = "failed"
)

// Result is the typed outcome of one update run. Collaborator errors are
// converted into it at the phase boundary and never propagate raw.
type Result struct {
	RunID        string
	Success      bool
	FailedPhase  Phase
	SnapshotPath string
	Rollback     RollbackQuality
	Warnings     []string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// warnf records a recoverable-phase warning: logged and kept on the result
// for the caller.
func (r *Result) warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Warn(msg)
	r.Warnings = append(r.Warnings, msg)
}

// Summary converts the result to its persisted form.
func (r *Result) Summary() *opstate.UpdateSummary {
	return &opstate.UpdateSummary{
		RunID:        r.RunID,
		Success:      r.Success,
		FailedPhase:  r.failedPhaseText(),
		SnapshotPath: r.SnapshotPath,
		Rollback:     string(r.Rollback),
		Warnings:     r.Warnings,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
}

func (r *Result) failedPhaseText() string {
	if r.FailedPhase == PhaseNone {
		return ""
	}
	return r.FailedPhase.String()
}
