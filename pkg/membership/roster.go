// Package membership maintains the authoritative roster of known
// participants: the mapping from a participant's public key to its
// alias and transport identifier, and the join/roster-broadcast/
// departure bookkeeping built on top of it.
package membership

import (
	"github.com/backkem/avgmesh/pkg/keymaterial"
)

// Record is one known participant.
type Record struct {
	PubKey      keymaterial.PublicKey
	Alias       string
	TransportID string
}

// Roster is the insertion-ordered set of known participants, keyed by
// public-key byte equality.
//
// Roster carries no internal locking: all per-peer state is exclusively
// owned by the Driver and is only ever touched while handling one event
// at a time.
type Roster struct {
	order []string // insertion order of PEM keys, for stable display
	byKey map[string]Record
}

// NewRoster creates an empty roster.
func NewRoster() *Roster {
	return &Roster{byKey: make(map[string]Record)}
}

// Upsert inserts rec, or overwrites the existing record for the same
// public key in place (preserving its original position in Records).
func (r *Roster) Upsert(rec Record) {
	key := rec.PubKey.String()
	if _, exists := r.byKey[key]; !exists {
		r.order = append(r.order, key)
	}
	r.byKey[key] = rec
}

// Remove deletes the record for pubKey, if present.
func (r *Roster) Remove(pubKey keymaterial.PublicKey) {
	key := pubKey.String()
	if _, exists := r.byKey[key]; !exists {
		return
	}
	delete(r.byKey, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// RemoveByTransportID deletes the record whose TransportID matches id, if
// any, and reports the removed record.
func (r *Roster) RemoveByTransportID(id string) (Record, bool) {
	for _, key := range r.order {
		rec := r.byKey[key]
		if rec.TransportID == id {
			r.Remove(rec.PubKey)
			return rec, true
		}
	}
	return Record{}, false
}

// Get returns the record for pubKey, if present.
func (r *Roster) Get(pubKey keymaterial.PublicKey) (Record, bool) {
	rec, ok := r.byKey[pubKey.String()]
	return rec, ok
}

// Contains reports whether pubKey is a known participant.
func (r *Roster) Contains(pubKey keymaterial.PublicKey) bool {
	_, ok := r.byKey[pubKey.String()]
	return ok
}

// Len returns the number of known participants.
func (r *Roster) Len() int {
	return len(r.order)
}

// Records returns all known participants in insertion order.
func (r *Roster) Records() []Record {
	out := make([]Record, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// Replace discards the current roster and installs records, in the given
// order. Used when a follower overwrites its roster with a received
// Participants message.
func (r *Roster) Replace(records []Record) {
	r.order = r.order[:0]
	r.byKey = make(map[string]Record, len(records))
	for _, rec := range records {
		r.Upsert(rec)
	}
}
