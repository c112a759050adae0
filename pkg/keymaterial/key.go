// Package keymaterial implements the asymmetric key material used to
// identify participants: RSA-2048 key generation, PKCS#1 v1.5 encryption
// and signing, and the short human-readable fingerprint used to
// cross-check participant identity.
package keymaterial

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"io"
)

const (
	// KeyBits is the RSA modulus size.
	KeyBits = 2048

	// CiphertextSize is the exact byte length of an RSA PKCS#1 v1.5
	// ciphertext at KeyBits.
	CiphertextSize = KeyBits / 8

	// SignatureSize is the exact byte length of an RSA PKCS#1 v1.5 SHA-256
	// signature at KeyBits.
	SignatureSize = KeyBits / 8

	// MaxPlaintextSize is the largest plaintext Encrypt accepts.
	MaxPlaintextSize = 245
)

// KeyPair is a freshly generated RSA key pair. It is immutable after
// construction.
type KeyPair struct {
	priv *rsa.PrivateKey
	pub  PublicKey
}

// Generate creates a new KeyBits-bit RSA key pair using rand as the
// randomness source.
func Generate(rand io.Reader) (*KeyPair, error) {
	priv, err := rsa.GenerateKey(rand, KeyBits)
	if err != nil {
		return nil, err
	}
	pub, err := newPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KeyPair{priv: priv, pub: pub}, nil
}

// Public returns the pair's public half, suitable for broadcasting to
// peers.
func (k *KeyPair) Public() PublicKey {
	return k.pub
}

// Sign produces a 256-byte PKCS#1 v1.5 signature over the SHA-256 digest
// of message.
func (k *KeyPair) Sign(rand io.Reader, message []byte) ([SignatureSize]byte, error) {
	var out [SignatureSize]byte
	digest := sha256.Sum256(message)
	sig, err := rsa.SignPKCS1v15(rand, k.priv, crypto.SHA256, digest[:])
	if err != nil {
		return out, err
	}
	copy(out[:], sig)
	return out, nil
}

// Decrypt reverses PublicKey.Encrypt, returning the original plaintext or
// ErrDecryptionFailed. Fails closed: any malformed ciphertext is an error,
// never a panic.
func (k *KeyPair) Decrypt(ciphertext [CiphertextSize]byte) ([]byte, error) {
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, k.priv, ciphertext[:])
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// PublicKey is a participant's protocol-level identity: the ASCII-armored
// (PEM) encoding of an RSA public key.
type PublicKey struct {
	pemText string
	key     *rsa.PublicKey
}

func newPublicKey(key *rsa.PublicKey) (PublicKey, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return PublicKey{}, err
	}
	block := &pem.Block{Type: "PUBLIC KEY", Bytes: der}
	return PublicKey{pemText: string(pem.EncodeToMemory(block)), key: key}, nil
}

// ParsePublicKey parses a PEM-encoded RSA public key as received from a
// peer over the wire.
func ParsePublicKey(pemText string) (PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return PublicKey{}, ErrInvalidPublicKey
	}
	any, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return PublicKey{}, ErrInvalidPublicKey
	}
	key, ok := any.(*rsa.PublicKey)
	if !ok {
		return PublicKey{}, ErrInvalidPublicKey
	}
	return PublicKey{pemText: pemText, key: key}, nil
}

// String returns the ASCII-armored encoding, the wire representation of
// the key.
func (p PublicKey) String() string {
	return p.pemText
}

// Equal reports whether two PublicKeys encode the same ASCII-armored
// bytes. A participant record is keyed by this equality.
func (p PublicKey) Equal(other PublicKey) bool {
	return p.pemText == other.pemText
}

// IsZero reports whether p is the zero value (no key parsed).
func (p PublicKey) IsZero() bool {
	return p.pemText == ""
}

// Encrypt produces a CiphertextSize-byte PKCS#1 v1.5 ciphertext under p.
// plaintext must be at most MaxPlaintextSize bytes.
func (p PublicKey) Encrypt(rand io.Reader, plaintext []byte) ([CiphertextSize]byte, error) {
	var out [CiphertextSize]byte
	if len(plaintext) > MaxPlaintextSize {
		return out, ErrInvalidPlaintextSize
	}
	ct, err := rsa.EncryptPKCS1v15(rand, p.key, plaintext)
	if err != nil {
		return out, err
	}
	if len(ct) != CiphertextSize {
		return out, ErrInvalidCiphertextSize
	}
	copy(out[:], ct)
	return out, nil
}

// Verify reports whether sig is a valid PKCS#1 v1.5 SHA-256 signature by p
// over message. Fails closed: any malformed input reports false rather
// than panicking.
func (p PublicKey) Verify(message []byte, sig [SignatureSize]byte) bool {
	if p.key == nil {
		return false
	}
	digest := sha256.Sum256(message)
	return rsa.VerifyPKCS1v15(p.key, crypto.SHA256, digest[:], sig[:]) == nil
}
