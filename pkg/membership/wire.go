package membership

import (
	"github.com/backkem/avgmesh/pkg/keymaterial"
	"github.com/backkem/avgmesh/pkg/wire"
)

// ToWire converts the roster into the payload of a Participants broadcast.
func (r *Roster) ToWire() wire.Participants {
	out := wire.Participants{Roster: make(map[string]wire.ParticipantRecord, len(r.order))}
	for _, key := range r.order {
		rec := r.byKey[key]
		out.Roster[key] = wire.ParticipantRecord{Alias: rec.Alias, TransportID: rec.TransportID}
	}
	return out
}

// RecordsFromWire parses the payload of a received Participants message
// into Records. The slice follows Go map iteration order, which is
// unspecified and can differ between calls; Roster.Replace installs the
// records in that order.
func RecordsFromWire(msg wire.Participants) ([]Record, error) {
	out := make([]Record, 0, len(msg.Roster))
	for pemText, info := range msg.Roster {
		pub, err := keymaterial.ParsePublicKey(pemText)
		if err != nil {
			return nil, err
		}
		out = append(out, Record{PubKey: pub, Alias: info.Alias, TransportID: info.TransportID})
	}
	return out, nil
}
