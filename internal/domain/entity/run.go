package entity

// RunState is the state of one orchestration run.
type RunState int

const (
	RunIdle RunState = iota
	RunConnectingWallet
	RunCheckingDelegations
	RunExecutingTransfers
	RunUpdatingStatus
	RunCompleted
	RunFailed
)

func (s RunState) String() string {
	switch s {
	case RunIdle:
		return "idle"
	case RunConnectingWallet:
		return "connecting_wallet"
	case RunCheckingDelegations:
		return "checking_delegations"
	case RunExecutingTransfers:
		return "executing_transfers"
	case RunUpdatingStatus:
		return "updating_status"
	case RunCompleted:
		return "completed"
	case RunFailed:
		return "failed"
	}
	return "unknown"
}

// ProgressTotal is the number of stages reported to progress callbacks.
const ProgressTotal = 4

// Progress phase labels.
const (
	PhaseConnecting  = "Connecting wallet..."
	PhasePreparing   = "Preparing transfers..."
	PhaseDelegations = "Checking delegations..."
	PhaseExecuting   = "Executing transfers..."
	PhaseUpdating    = "Updating status..."
	PhaseCompleted   = "Completed!"
)

// ProgressFunc receives a phase label and a (current, total) counter.
type ProgressFunc func(phase string, current, total int)

// ExecutionRequest is the input of one orchestration run.
type ExecutionRequest struct {
	Candidates      []CandidatePair
	ReceiverAddress string
	OnProgress      ProgressFunc
}
