package updater

// Phase is one ordered step of the update state machine. Failure policy is
// phase-specific: some failures abort the run, some only downgrade to
// warnings.
type Phase int

const (
	PhaseNone Phase = iota
	PhasePrepare
	PhaseCodeUpdate
	PhaseDependencies
	PhaseStateMigration
	PhaseRestartVerify
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhasePrepare:
		return "prepare"
	case PhaseCodeUpdate:
		return "code-update"
	case PhaseDependencies:
		return "dependencies"
	case PhaseStateMigration:
		return "state-migration"
	case PhaseRestartVerify:
		return "restart-verify"
	default:
		return "unknown"
	}
}

// action is what a phase outcome means for the run.
type action int

const (
	actionAdvance action = iota
	actionHalt
	actionRollback
)

// transition is the single place that maps a phase outcome to the next
// move of the state machine.
func transition(p Phase, err error) action {
	if err == nil {
		return actionAdvance
	}

	switch p {
	case PhasePrepare:
		// the snapshot is incomplete and nothing has been mutated,
		// there is nothing to roll back to
		return actionHalt
	case PhaseCodeUpdate, PhaseRestartVerify:
		return actionRollback
	default:
		// warning-only phases downgrade their errors internally
		return actionAdvance
	}
}
