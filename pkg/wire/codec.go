package wire

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode is the deterministic, self-describing encoding used for every
// variant's payload. Canonical CBOR sorts map keys length-first (shorter
// keys first, equal lengths bytewise), so every map, Result's included,
// encodes in one fixed order; that order is not lexicographic ("mid" is
// encoded before "alpha").
var encMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	m, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// Encode serializes msg into a tagged broadcast payload: one variant tag
// byte followed by the canonical CBOR encoding of its fields.
func Encode(msg any) ([]byte, error) {
	var tag byte
	switch msg.(type) {
	case Join:
		tag = TagJoin
	case Participants:
		tag = TagParticipants
	case LobbyNowClosed:
		tag = TagLobbyNowClosed
	case Share:
		tag = TagShare
	case Sum:
		tag = TagSum
	case Result:
		tag = TagResult
	case Quit:
		tag = TagQuit
	default:
		return nil, ErrUnknownVariant
	}

	payload, err := encMode.Marshal(msg)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 1+len(payload))
	out[0] = tag
	copy(out[1:], payload)
	return out, nil
}

// Decode parses a tagged broadcast payload produced by Encode, returning
// one of the seven message variant types as `any`. Invalid frames
// (unknown tag, truncated payload, malformed CBOR) are reported as an
// error; the Driver logs and drops these without advancing phase.
func Decode(data []byte) (any, error) {
	if len(data) < 1 {
		return nil, ErrShortMessage
	}
	payload := data[1:]

	switch data[0] {
	case TagJoin:
		var m Join
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TagParticipants:
		var m Participants
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TagLobbyNowClosed:
		var m LobbyNowClosed
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TagShare:
		var m Share
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TagSum:
		var m Sum
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TagResult:
		var m Result
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TagQuit:
		var m Quit
		if err := cbor.Unmarshal(payload, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, ErrUnknownVariant
	}
}
