package driver

import (
	"fmt"
	"sort"

	"github.com/backkem/avgmesh/pkg/membership"
	"github.com/backkem/avgmesh/pkg/secretsharing"
)

func (d *Driver) printParticipantsHeader() {
	fmt.Fprintln(d.cfg.Stdout, "\n-- Participants --")
}

func (d *Driver) printParticipant(rec membership.Record) {
	fmt.Fprintf(d.cfg.Stdout, "%s - %s\n", rec.PubKey.Fingerprint(), rec.Alias)
}

func (d *Driver) printParticipants() {
	d.printParticipantsHeader()
	for _, rec := range d.roster.Records() {
		d.printParticipant(rec)
	}
}

func (d *Driver) printResults(totals map[string]int64) {
	fmt.Fprintln(d.cfg.Stdout, "\nAverage results:")

	keys := make([]string, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	participantCount := d.roster.Len()
	for _, key := range keys {
		mean := secretsharing.Mean(totals[key], participantCount)
		fmt.Fprintf(d.cfg.Stdout, "%s: %.2f\n", key, mean)
	}
}
