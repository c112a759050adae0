package wire

import "errors"

// Package-level errors.
var (
	// ErrShortMessage is returned when a broadcast payload is too short to
	// contain even a variant tag.
	ErrShortMessage = errors.New("wire: message shorter than a tag byte")

	// ErrUnknownVariant is returned when a message's tag byte does not
	// match any of the seven known variants.
	ErrUnknownVariant = errors.New("wire: unknown message variant")

	// ErrInvalidShareBlobLength is returned when a share blob's length is
	// not a multiple of RecordSize.
	ErrInvalidShareBlobLength = errors.New("wire: share blob length is not a multiple of the record size")

	// ErrKeyTooLong is returned when a key's UTF-8 encoding does not fit
	// the chunk's key field.
	ErrKeyTooLong = errors.New("wire: key exceeds the maximum chunk key length")

	// ErrKeyLengthOutOfRange is returned when a decoded chunk's declared
	// key length would read past the chunk.
	ErrKeyLengthOutOfRange = errors.New("wire: chunk declares an out-of-range key length")

	// ErrKeyNotUTF8 is returned when a decoded chunk's key bytes are not
	// valid UTF-8.
	ErrKeyNotUTF8 = errors.New("wire: chunk key is not valid UTF-8")
)
