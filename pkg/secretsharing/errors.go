package secretsharing

import "errors"

// Package-level errors. All are fatal: a node that hits one prints a
// diagnostic and exits non-zero.
var (
	// ErrSignatureVerificationFailed means a received record's
	// signature did not verify under the claimed sender's public key.
	ErrSignatureVerificationFailed = errors.New("secretsharing: signature verification failed")

	// ErrUnknownKey means a decrypted chunk named a key outside the
	// local node's own input set (a mismatched key set between peers).
	ErrUnknownKey = errors.New("secretsharing: received share for unrecognized key")

	// ErrUnknownSender means a received share blob's sender is absent
	// from the roster passed to ComputePartialSum.
	ErrUnknownSender = errors.New("secretsharing: message from unknown participant")
)
