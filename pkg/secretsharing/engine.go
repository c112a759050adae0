// Package secretsharing implements the additive secret-sharing exchange
// that computes a private per-key average without revealing any
// participant's individual input.
package secretsharing

import (
	"encoding/binary"
	"io"

	"github.com/backkem/avgmesh/pkg/keymaterial"
	"github.com/backkem/avgmesh/pkg/membership"
	"github.com/backkem/avgmesh/pkg/wire"
)

// Tables holds the per-run bookkeeping an Engine accumulates. It is
// exported so a Driver can inspect progress (e.g. to decide whether
// Ready's threshold has been crossed) without the Engine needing its
// own event-notification machinery.
type Tables struct {
	// SentShares maps a recipient's public key string to the random
	// shares drawn for it, by input key.
	SentShares map[string]map[string]int64

	// ReceivedShares maps a sender's public key string to the raw
	// share blob it broadcast. A later arrival from the same sender
	// overwrites the earlier one.
	ReceivedShares map[string][]byte

	// PartialSums maps a participant's public key string to its
	// published (or, for the leader, locally computed) partial sum.
	// Populated only on the leader.
	PartialSums map[string]map[string]int64

	// Result is the final per-key sum, populated once AggregateLeader
	// succeeds.
	Result map[string]int64
}

// Engine runs one node's side of the secret-sharing protocol.
//
// Engine carries no internal locking: it is exclusively owned by the
// Driver and only ever touched while handling one event at a time.
type Engine struct {
	self  *keymaterial.KeyPair
	input map[string]int64
	tables Tables
}

// NewEngine creates an Engine for the local key pair and its scaled
// integer input values (one per benchmark key, already multiplied by
// 100 and rounded).
func NewEngine(self *keymaterial.KeyPair, input map[string]int64) *Engine {
	return &Engine{
		self:  self,
		input: input,
		tables: Tables{
			SentShares:     make(map[string]map[string]int64),
			ReceivedShares: make(map[string][]byte),
			PartialSums:    make(map[string]map[string]int64),
		},
	}
}

// Tables returns the engine's bookkeeping for inspection.
func (e *Engine) Tables() Tables {
	return e.tables
}

func randInt64(rand io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(rand, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

// EmitShares is Step A. It is a no-op on every call after the first:
// shares are drawn exactly once per run. For each peer other than the
// local node it draws one random share per input key, records it in
// SentShares, and assembles a Share message addressed to that peer.
func (e *Engine) EmitShares(rand io.Reader, peers []membership.Record) ([]wire.Share, error) {
	if len(e.tables.SentShares) > 0 {
		return nil, nil
	}

	selfKey := e.self.Public()
	var out []wire.Share
	for _, peer := range peers {
		if peer.PubKey.Equal(selfKey) {
			continue
		}

		shares := make(map[string]int64, len(e.input))
		var records []wire.Record
		for key := range e.input {
			share, err := randInt64(rand)
			if err != nil {
				return nil, err
			}
			shares[key] = share

			chunk, err := wire.EncodeChunk(key, share)
			if err != nil {
				return nil, err
			}

			ciphertext, err := peer.PubKey.Encrypt(rand, chunk[:])
			if err != nil {
				return nil, err
			}
			signature, err := e.self.Sign(rand, ciphertext[:])
			if err != nil {
				return nil, err
			}
			records = append(records, wire.EncodeRecord(ciphertext, signature))
		}

		e.tables.SentShares[peer.PubKey.String()] = shares
		out = append(out, wire.Share{
			To:   peer.PubKey.String(),
			From: selfKey.String(),
			Blob: wire.EncodeShareBlob(records),
		})
	}
	return out, nil
}

// AcceptShare is Step B: record an inbound share blob from a known
// peer. Duplicate arrivals from the same sender overwrite the
// previous blob.
func (e *Engine) AcceptShare(from keymaterial.PublicKey, blob []byte) {
	e.tables.ReceivedShares[from.String()] = blob
}

// Ready reports whether ReceivedShares holds one entry per other
// participant, i.e. whether ComputePartialSum may run.
func (e *Engine) Ready(otherPeerCount int) bool {
	return len(e.tables.ReceivedShares) == otherPeerCount
}

// ComputePartialSum is Step C. peers is the full roster (used to
// resolve a received blob's claimed sender to its verification key).
// It is idempotent: repeated calls after the first recompute from the
// same tables and return the same result, but the caller is expected
// to gate on Ready and call this exactly once per run.
func (e *Engine) ComputePartialSum(peers []membership.Record) (map[string]int64, error) {
	byKey := make(map[string]keymaterial.PublicKey, len(peers))
	for _, p := range peers {
		byKey[p.PubKey.String()] = p.PubKey
	}

	sentTotal := make(map[string]int64, len(e.input))
	for _, shares := range e.tables.SentShares {
		for key, share := range shares {
			sentTotal[key] += share
		}
	}

	partial := make(map[string]int64, len(e.input))
	for key, value := range e.input {
		partial[key] = value - sentTotal[key]
	}

	for senderKey, blob := range e.tables.ReceivedShares {
		sender, ok := byKey[senderKey]
		if !ok {
			return nil, ErrUnknownSender
		}

		records, err := wire.DecodeShareBlob(blob)
		if err != nil {
			return nil, err
		}
		for _, record := range records {
			if !sender.Verify(record.Ciphertext[:], record.Signature) {
				return nil, ErrSignatureVerificationFailed
			}
			plaintext, err := e.self.Decrypt(record.Ciphertext)
			if err != nil {
				return nil, err
			}
			var chunk [wire.ChunkSize]byte
			copy(chunk[:], plaintext)
			key, share, err := wire.DecodeChunk(chunk)
			if err != nil {
				return nil, err
			}
			if _, isInput := e.input[key]; !isInput {
				return nil, ErrUnknownKey
			}
			partial[key] += share
		}
	}

	return partial, nil
}

// AcceptSum records a participant's published partial sum. The leader
// calls this for every Sum it receives, and additionally for its own
// locally computed partial.
func (e *Engine) AcceptSum(from keymaterial.PublicKey, partial map[string]int64) {
	if e.tables.PartialSums == nil {
		e.tables.PartialSums = make(map[string]map[string]int64)
	}
	e.tables.PartialSums[from.String()] = partial
}

// AggregateLeader is Step D. It returns (nil, false) until PartialSums
// holds one entry per participant (participantCount includes the
// leader itself); once complete it sums every partial with wrapping
// arithmetic, stores and returns the per-key result.
func (e *Engine) AggregateLeader(participantCount int) (map[string]int64, bool) {
	if len(e.tables.PartialSums) != participantCount {
		return nil, false
	}

	result := make(map[string]int64, len(e.input))
	for key := range e.input {
		result[key] = 0
	}
	for _, partial := range e.tables.PartialSums {
		for key, value := range partial {
			result[key] += value
		}
	}

	e.tables.Result = result
	return result, true
}

// Mean converts a result entry back to the real-valued average over
// participantCount participants.
func Mean(resultValue int64, participantCount int) float64 {
	return float64(resultValue) / (100.0 * float64(participantCount))
}
