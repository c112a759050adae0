package membership

import "errors"

// Package-level errors.
var (
	// ErrUnknownPeer names a public key that is not present in the
	// roster. No Roster method returns it: Get and Contains report
	// absence with a bool, and Remove ignores unknown keys.
	ErrUnknownPeer = errors.New("membership: unknown participant")
)
