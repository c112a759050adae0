package phase

// Outcome is the side effect the Driver must carry out after a
// transition method returns. The PhaseMachine never performs I/O
// itself; it only decides what should happen.
type Outcome int

const (
	// NoOp means the event was accepted (or dropped) with no externally
	// visible side effect.
	NoOp Outcome = iota

	// BroadcastLobbyNowClosed means the Driver must broadcast the
	// LobbyNowClosed message (after the usual quiesce delay).
	BroadcastLobbyNowClosed

	// PromptUserToConfirm means the Driver must ask the local user to
	// confirm or decline proceeding.
	PromptUserToConfirm

	// Terminate means the node should print its result (if any) and
	// exit 0.
	Terminate

	// Abort means the node should print a diagnostic and exit non-zero.
	Abort
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case NoOp:
		return "NoOp"
	case BroadcastLobbyNowClosed:
		return "BroadcastLobbyNowClosed"
	case PromptUserToConfirm:
		return "PromptUserToConfirm"
	case Terminate:
		return "Terminate"
	case Abort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// Machine is the lifecycle state of one node: its current Phase, its
// Role, and whether it has already observed the published Result.
//
// Machine carries no internal locking: it is exclusively owned by the
// Driver and only ever touched while handling one event at a time.
// Session managers that field concurrent lookups need a mutex; this one
// doesn't, so the lock is deliberately dropped.
type Machine struct {
	phase          Phase
	role           Role
	resultObserved bool
}

// NewMachine creates a Machine in WaitingForParticipants for the given
// role.
func NewMachine(role Role) *Machine {
	return &Machine{phase: WaitingForParticipants, role: role}
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	return m.phase
}

// Role returns the node's role.
func (m *Machine) Role() Role {
	return m.role
}

// ResultObserved reports whether ObserveResult has already fired.
func (m *Machine) ResultObserved() bool {
	return m.resultObserved
}

// CloseLobby is the leader-side transition fired when the local user
// presses ENTER in WaitingForParticipants. participantCount is the
// current roster size, including the leader itself.
func (m *Machine) CloseLobby(participantCount int) (Outcome, error) {
	if m.role != Leader || m.phase != WaitingForParticipants {
		return NoOp, ErrWrongPhase
	}
	if participantCount < minParticipants {
		return NoOp, ErrNotEnoughParticipants
	}
	m.phase = SendingShares
	return BroadcastLobbyNowClosed, nil
}

// ReceiveLobbyClosed is the follower-side transition fired on receipt
// of LobbyNowClosed while WaitingForParticipants. participantCount is
// the follower's own roster size at the moment of receipt. A roster
// that has already dropped below the minimum aborts the node instead
// of prompting.
func (m *Machine) ReceiveLobbyClosed(participantCount int) (Outcome, error) {
	if m.role != Follower || m.phase != WaitingForParticipants {
		return NoOp, ErrWrongPhase
	}
	if participantCount < minParticipants {
		return Abort, nil
	}
	m.phase = ConfirmingParticipants
	return PromptUserToConfirm, nil
}

// Confirm is the transition fired when the user accepts the
// confirmation prompt.
func (m *Machine) Confirm() (Outcome, error) {
	if m.phase != ConfirmingParticipants {
		return NoOp, ErrWrongPhase
	}
	m.phase = SendingShares
	return NoOp, nil
}

// Decline is the transition fired when the user rejects the
// confirmation prompt.
func (m *Machine) Decline() (Outcome, error) {
	if m.phase != ConfirmingParticipants {
		return NoOp, ErrWrongPhase
	}
	return Terminate, nil
}

// ObserveResult is fired on receipt (or, for the leader, local
// computation) of the final Result. It is idempotent and valid only
// in SendingShares.
func (m *Machine) ObserveResult() (Outcome, error) {
	if m.phase != SendingShares {
		return NoOp, ErrWrongPhase
	}
	m.resultObserved = true
	return Terminate, nil
}

// HandleDeparture applies the departure policy for the current phase
// given the number of peers remaining after the departure (not
// counting the local node). It never returns an error: a departure is
// always a legal event in every phase, only its consequence differs.
func (m *Machine) HandleDeparture(remainingPeers int) Outcome {
	switch m.phase {
	case WaitingForParticipants:
		return NoOp
	case ConfirmingParticipants:
		if remainingPeers == 0 {
			return Abort
		}
		return NoOp
	case SendingShares:
		if m.resultObserved {
			return NoOp
		}
		return Abort
	default:
		return NoOp
	}
}
