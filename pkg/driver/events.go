package driver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/backkem/avgmesh/pkg/keymaterial"
	"github.com/backkem/avgmesh/pkg/membership"
	"github.com/backkem/avgmesh/pkg/phase"
	"github.com/backkem/avgmesh/pkg/transportbus"
	"github.com/backkem/avgmesh/pkg/wire"
)

// handleLine dispatches one line of standard input per the current
// phase. Lines are meaningless in SendingShares and are ignored.
func (d *Driver) handleLine(line string) error {
	switch d.machine.Phase() {
	case phase.WaitingForParticipants:
		return d.handleLineWaiting()
	case phase.ConfirmingParticipants:
		return d.handleLineConfirming(line)
	default:
		return nil
	}
}

func (d *Driver) handleLineWaiting() error {
	if d.machine.Role() != phase.Leader {
		return nil
	}

	outcome, err := d.machine.CloseLobby(d.roster.Len())
	if err != nil {
		if errors.Is(err, phase.ErrNotEnoughParticipants) {
			fmt.Fprintln(d.cfg.Stdout, "Cannot start yet, at least 3 participants are needed to ensure privacy.")
			return nil
		}
		return nil
	}
	if outcome != phase.BroadcastLobbyNowClosed {
		return nil
	}

	fmt.Fprintln(d.cfg.Stdout, "Starting benchmark with the current participants...")
	time.Sleep(d.cfg.LobbyCloseDelay)
	return d.broadcast(wire.LobbyNowClosed{})
}

func (d *Driver) handleLineConfirming(line string) error {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "", "y":
		if _, err := d.machine.Confirm(); err != nil {
			return nil
		}
		fmt.Fprintln(d.cfg.Stdout, "Ok, joining benchmarking with the current participants...")
	case "n":
		if _, err := d.machine.Decline(); err != nil {
			return nil
		}
		d.done = true
	default:
		fmt.Fprintln(d.cfg.Stdout, "Invalid input, please confirm or cancel using 'y' or 'n'")
	}
	return nil
}

func (d *Driver) handleBusEvent(ev transportbus.Event) error {
	switch ev.Kind {
	case transportbus.EventLocalAddrDiscovered:
		return d.handleLocalAddrDiscovered(ev.NewAddr)
	case transportbus.EventPeerDisconnected:
		return d.handlePeerDisconnected(ev.From)
	case transportbus.EventMessage:
		return d.handleMessage(ev.Payload, ev.From)
	default:
		return nil
	}
}

// handleLocalAddrDiscovered fires once the transport has a routable
// address to show the operator: the leader prints the join command
// and the initial roster, a follower instead announces itself with a
// Join message. Both insert their own record into the roster.
func (d *Driver) handleLocalAddrDiscovered(addr string) error {
	self := d.cfg.Self.Public()
	rec := membership.Record{PubKey: self, Alias: d.cfg.Alias, TransportID: d.cfg.Bus.LocalTransportID()}
	d.roster.Upsert(rec)

	if d.machine.Role() == phase.Leader {
		fmt.Fprintln(d.cfg.Stdout, "A new session has been started, others can join using the following command:")
		fmt.Fprintf(d.cfg.Stdout, "avgmesh --address=%s --name=<your_alias> --input=<file.json>\n", addr)
		fmt.Fprintln(d.cfg.Stdout, "\nPress ENTER to start the benchmark once all participants have joined.")
		d.printParticipantsHeader()
		d.printParticipant(rec)
		return nil
	}

	if err := d.broadcast(wire.Join{PubKeyPEM: self.String(), Alias: d.cfg.Alias}); err != nil {
		return err
	}
	d.printParticipantsHeader()
	d.printParticipant(rec)
	return nil
}

// handlePeerDisconnected applies the departure policy for the current
// phase.
func (d *Driver) handlePeerDisconnected(transportID string) error {
	rec, ok := d.roster.RemoveByTransportID(transportID)
	if !ok {
		return nil
	}

	self := d.cfg.Self.Public()
	remainingPeers := 0
	for _, r := range d.roster.Records() {
		if !r.PubKey.Equal(self) {
			remainingPeers++
		}
	}

	switch d.machine.Phase() {
	case phase.WaitingForParticipants:
		fmt.Fprintf(d.cfg.Stdout, "\nParticipant %s disconnected\n", rec.Alias)
		if d.machine.Role() == phase.Leader {
			if err := d.broadcast(wire.Quit{TransportID: rec.TransportID, Alias: rec.Alias}); err != nil {
				return err
			}
			d.printParticipants()
			if err := d.broadcastRoster(); err != nil {
				return err
			}
		}
		return nil

	case phase.SendingShares:
		if outcome := d.machine.HandleDeparture(remainingPeers); outcome == phase.Abort {
			if d.machine.Role() == phase.Leader {
				fmt.Fprintf(d.cfg.Stderr, "Participant %s left, aborting the benchmark.\n", rec.Alias)
			} else {
				fmt.Fprintln(d.cfg.Stderr, "A participant left, aborting the benchmark.")
			}
			return d.abort(fmt.Errorf("participant %s disconnected during share exchange", rec.Alias))
		}
		return nil

	default: // ConfirmingParticipants
		if outcome := d.machine.HandleDeparture(remainingPeers); outcome == phase.Abort {
			return d.abort(fmt.Errorf("participant %s disconnected", rec.Alias))
		}
		return nil
	}
}

func (d *Driver) handleMessage(payload []byte, from string) error {
	msg, err := wire.Decode(payload)
	if err != nil {
		d.log.Warnf("dropping malformed frame from %s: %v", from, err)
		return nil
	}

	switch d.machine.Phase() {
	case phase.WaitingForParticipants:
		return d.handleWaitingMessage(msg, from)
	case phase.SendingShares:
		return d.handleSendingSharesMessage(msg)
	default:
		// ConfirmingParticipants: the leader is already in SendingShares
		// and may have sent this node its shares, so Shares are kept.
		// Every other message is logged and dropped without changing
		// the phase.
		if share, ok := msg.(wire.Share); ok {
			return d.handleSendingSharesMessage(share)
		}
		d.log.Debugf("dropping %T received while confirming participants", msg)
		return nil
	}
}

func (d *Driver) handleWaitingMessage(msg any, from string) error {
	switch m := msg.(type) {
	case wire.Join:
		if d.machine.Role() != phase.Leader {
			return nil
		}
		pub, err := keymaterial.ParsePublicKey(m.PubKeyPEM)
		if err != nil {
			d.log.Warnf("dropping Join with unparseable key: %v", err)
			return nil
		}
		rec := membership.Record{PubKey: pub, Alias: m.Alias, TransportID: from}
		d.printParticipant(rec)
		d.roster.Upsert(rec)
		return d.broadcastRoster()

	case wire.Quit:
		fmt.Fprintf(d.cfg.Stdout, "\nParticipant %s disconnected\n", m.Alias)
		d.printParticipants()

	case wire.Participants:
		records, err := membership.RecordsFromWire(m)
		if err != nil {
			d.log.Warnf("dropping Participants with unparseable key: %v", err)
			return nil
		}
		known := make(map[string]bool, d.roster.Len())
		for _, r := range d.roster.Records() {
			known[r.PubKey.String()] = true
		}
		for _, r := range records {
			if !known[r.PubKey.String()] {
				d.printParticipant(r)
			}
		}
		d.roster.Replace(records)

	case wire.LobbyNowClosed:
		if d.machine.Role() == phase.Leader {
			d.log.Warnf("received LobbyNowClosed as leader, ignoring")
			return nil
		}
		outcome, err := d.machine.ReceiveLobbyClosed(d.roster.Len())
		if err != nil {
			return nil
		}
		if outcome == phase.Abort {
			return d.abort(errors.New("lobby closed with fewer than 3 participants"))
		}
		fmt.Fprintln(d.cfg.Stdout, "\nPlease double-check the participants. Do you want to join the benchmark? [Y/n]")

	case wire.Share:
		// Shares only matter once SendingShares begins; ignored here.

	case wire.Sum:
		return d.abort(errors.New("received sum while still waiting for participants"))

	case wire.Result:
		return d.abort(errors.New("received result while still waiting for participants"))
	}
	return nil
}

func (d *Driver) handleSendingSharesMessage(msg any) error {
	switch m := msg.(type) {
	case wire.Join, wire.Participants, wire.LobbyNowClosed:
		fmt.Fprintln(d.cfg.Stdout, "Already waiting for shares, but some participant still tried to join!")

	case wire.Quit:
		// Departure is handled at the transport-disconnection level;
		// the Quit notice itself carries no new information here.

	case wire.Share:
		self := d.cfg.Self.Public()
		if m.To != self.String() {
			return nil
		}
		fromKey, err := keymaterial.ParsePublicKey(m.From)
		if err != nil {
			d.log.Warnf("dropping Share with unparseable sender key: %v", err)
			return nil
		}
		if !d.roster.Contains(fromKey) {
			return nil
		}
		d.engine.AcceptShare(fromKey, m.Blob)

	case wire.Sum:
		if d.machine.Role() != phase.Leader {
			return nil
		}
		fromKey, err := keymaterial.ParsePublicKey(m.From)
		if err != nil {
			d.log.Warnf("dropping Sum with unparseable sender key: %v", err)
			return nil
		}
		d.engine.AcceptSum(fromKey, m.Partial)

	case wire.Result:
		d.printResults(m.Totals)
		if _, err := d.machine.ObserveResult(); err != nil {
			return nil
		}
		d.done = true
	}
	return nil
}
