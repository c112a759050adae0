package libp2pbus

import "errors"

// Package-level errors.
var (
	// ErrDialTimedOut is returned when RemoteAddr stays unreachable for
	// MaxDialAttempts retries.
	ErrDialTimedOut = errors.New("libp2pbus: dial retries exhausted")
)
