package keymaterial

import "errors"

// Package-level errors. Cryptographic failures here are always fatal:
// callers fail closed rather than attempt recovery.
var (
	// ErrInvalidPlaintextSize is returned when Encrypt is given a plaintext
	// longer than MaxPlaintextSize.
	ErrInvalidPlaintextSize = errors.New("keymaterial: plaintext exceeds maximum size")

	// ErrInvalidCiphertextSize is returned when Encrypt produces a
	// ciphertext whose length is not exactly CiphertextSize.
	ErrInvalidCiphertextSize = errors.New("keymaterial: ciphertext has invalid size")

	// ErrDecryptionFailed is returned when PKCS#1 v1.5 decryption fails.
	ErrDecryptionFailed = errors.New("keymaterial: decryption failed")

	// ErrInvalidPublicKey is returned when a PEM-encoded public key
	// cannot be parsed or does not encode an RSA key.
	ErrInvalidPublicKey = errors.New("keymaterial: invalid public key encoding")
)
