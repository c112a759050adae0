package wire

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTripAllVariants(t *testing.T) {
	cases := []any{
		Join{PubKeyPEM: "pem-a", Alias: "alice"},
		Participants{Roster: map[string]ParticipantRecord{
			"pem-a": {Alias: "alice", TransportID: "t1"},
			"pem-b": {Alias: "bob", TransportID: "t2"},
		}},
		LobbyNowClosed{},
		Share{From: "pem-a", To: "pem-b", Blob: []byte{1, 2, 3}},
		Sum{From: "pem-a", Partial: map[string]int64{"x": 100, "y": -50}},
		Result{Totals: map[string]int64{"x": 300}},
		Quit{TransportID: "t1", Alias: "alice"},
	}

	for _, msg := range cases {
		data, err := Encode(msg)
		if err != nil {
			t.Fatalf("Encode(%#v): %v", msg, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if !reflect.DeepEqual(got, msg) {
			t.Fatalf("round trip mismatch: got %#v, want %#v", got, msg)
		}
	}
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	if _, err := Decode(nil); err != ErrShortMessage {
		t.Fatalf("got %v, want ErrShortMessage", err)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	if _, err := Decode([]byte{0xFF}); err != ErrUnknownVariant {
		t.Fatalf("got %v, want ErrUnknownVariant", err)
	}
}

func TestResultEncodingOrdersKeysLexicographically(t *testing.T) {
	msg := Result{Totals: map[string]int64{"zeta": 1, "alpha": 2, "mid": 3}}
	data, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Canonical CBOR map encoding sorts keys bytewise; "alpha" < "mid" <
	// "zeta" lexicographically, so their encoded key bytes must appear in
	// that order in the payload.
	idxAlpha := indexOfSubstring(data, "alpha")
	idxMid := indexOfSubstring(data, "mid")
	idxZeta := indexOfSubstring(data, "zeta")
	if !(idxAlpha < idxMid && idxMid < idxZeta) {
		t.Fatalf("keys not in lexicographic order in encoding: alpha=%d mid=%d zeta=%d", idxAlpha, idxMid, idxZeta)
	}
}

func indexOfSubstring(haystack []byte, needle string) int {
	n := []byte(needle)
	for i := 0; i+len(n) <= len(haystack); i++ {
		match := true
		for j := range n {
			if haystack[i+j] != n[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
