package phase

import "errors"

// Package-level errors.
var (
	// ErrNotEnoughParticipants is returned when a lobby-close is
	// attempted with fewer than minParticipants participants.
	ErrNotEnoughParticipants = errors.New("phase: fewer than 3 participants")

	// ErrWrongPhase is returned when a transition method is called in a
	// phase it does not apply to. The Driver drops such inputs rather
	// than treating them as a hard failure; the error exists
	// so callers can distinguish a no-op from a state change.
	ErrWrongPhase = errors.New("phase: event does not apply in current phase")
)
