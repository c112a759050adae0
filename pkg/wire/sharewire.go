package wire

import (
	"encoding/binary"
	"unicode/utf8"
)

const (
	// ChunkSize is the fixed plaintext size of one share record's
	// encrypted chunk.
	ChunkSize = 245

	// chunkKeyLenSize and chunkShareSize are the two fixed 8-byte fields
	// at the front of a chunk.
	chunkKeyLenSize = 8
	chunkShareSize  = 8

	// MaxChunkKeyLen is the longest key a single chunk can carry: the
	// remaining bytes after the two 8-byte fields.
	MaxChunkKeyLen = ChunkSize - chunkKeyLenSize - chunkShareSize

	// CiphertextFieldSize and SignatureFieldSize are the two halves of one
	// 512-byte share record.
	CiphertextFieldSize = 256
	SignatureFieldSize  = 256

	// RecordSize is the total size of one encrypted-and-signed share
	// record, one per input key.
	RecordSize = CiphertextFieldSize + SignatureFieldSize
)

// EncodeChunk builds the ChunkSize-byte plaintext for one (key, share)
// pair: an 8-byte big-endian key length, an 8-byte big-endian share,
// the key's UTF-8 bytes, and zero padding to ChunkSize.
func EncodeChunk(key string, share int64) ([ChunkSize]byte, error) {
	var chunk [ChunkSize]byte

	keyBytes := []byte(key)
	if len(keyBytes) > MaxChunkKeyLen {
		return chunk, ErrKeyTooLong
	}

	binary.BigEndian.PutUint64(chunk[0:8], uint64(int64(len(keyBytes))))
	binary.BigEndian.PutUint64(chunk[8:16], uint64(share))
	copy(chunk[16:16+len(keyBytes)], keyBytes)
	// The remainder of chunk is already zero from the array's zero value.

	return chunk, nil
}

// DecodeChunk parses a ChunkSize-byte plaintext produced by EncodeChunk,
// validating the declared key length and UTF-8 key. Fails closed on any
// malformation.
func DecodeChunk(chunk [ChunkSize]byte) (key string, share int64, err error) {
	keyLen := int64(binary.BigEndian.Uint64(chunk[0:8]))
	if keyLen < 0 || keyLen > MaxChunkKeyLen {
		return "", 0, ErrKeyLengthOutOfRange
	}

	share = int64(binary.BigEndian.Uint64(chunk[8:16]))

	keyBytes := chunk[16 : 16+keyLen]
	if !utf8.Valid(keyBytes) {
		return "", 0, ErrKeyNotUTF8
	}

	return string(keyBytes), share, nil
}

// Record is one recipient's encrypted-and-signed share for a single key:
// a CiphertextFieldSize-byte RSA ciphertext followed by a
// SignatureFieldSize-byte signature over it.
type Record struct {
	Ciphertext [CiphertextFieldSize]byte
	Signature  [SignatureFieldSize]byte
}

// EncodeRecord pairs ciphertext and signature into one Record; its
// Bytes method gives the RecordSize-byte wire form.
func EncodeRecord(ciphertext [CiphertextFieldSize]byte, signature [SignatureFieldSize]byte) Record {
	return Record{Ciphertext: ciphertext, Signature: signature}
}

// Bytes returns the record's wire encoding.
func (r Record) Bytes() []byte {
	out := make([]byte, RecordSize)
	copy(out[:CiphertextFieldSize], r.Ciphertext[:])
	copy(out[CiphertextFieldSize:], r.Signature[:])
	return out
}

// EncodeShareBlob concatenates one record per input key, in the order
// given, into a single Share message's Blob field.
func EncodeShareBlob(records []Record) []byte {
	out := make([]byte, 0, len(records)*RecordSize)
	for _, r := range records {
		out = append(out, r.Bytes()...)
	}
	return out
}

// DecodeShareBlob splits blob into its constituent Records. Returns
// ErrInvalidShareBlobLength if blob's length is not a multiple of
// RecordSize.
func DecodeShareBlob(blob []byte) ([]Record, error) {
	if len(blob)%RecordSize != 0 {
		return nil, ErrInvalidShareBlobLength
	}

	records := make([]Record, 0, len(blob)/RecordSize)
	for i := 0; i < len(blob); i += RecordSize {
		var rec Record
		copy(rec.Ciphertext[:], blob[i:i+CiphertextFieldSize])
		copy(rec.Signature[:], blob[i+CiphertextFieldSize:i+RecordSize])
		records = append(records, rec)
	}
	return records, nil
}
