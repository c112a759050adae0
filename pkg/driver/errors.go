package driver

import "errors"

// Package-level errors.
var (
	// ErrAborted wraps every cause that makes a node abort with a
	// non-zero exit: a departure during a phase that cannot tolerate
	// one, a protocol-shape violation, or a SecretSharing failure.
	ErrAborted = errors.New("driver: aborted")
)
