// Package driver implements the single-threaded event loop that ties
// KeyMaterial, Codec, Membership, PhaseMachine, and SecretSharing
// together into one running node.
package driver

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pion/logging"

	"github.com/backkem/avgmesh/pkg/keymaterial"
	"github.com/backkem/avgmesh/pkg/membership"
	"github.com/backkem/avgmesh/pkg/phase"
	"github.com/backkem/avgmesh/pkg/secretsharing"
	"github.com/backkem/avgmesh/pkg/transportbus"
	"github.com/backkem/avgmesh/pkg/wire"
)

// DefaultLobbyCloseDelay is the quiesce wait between declaring the
// lobby closed and broadcasting LobbyNowClosed, letting the
// subscription fan-out settle.
const DefaultLobbyCloseDelay = 500 * time.Millisecond

// Config configures a Driver. Self, Bus, and Input are required;
// everything else has a sensible default.
type Config struct {
	// Role is Leader if this process started a fresh session, Follower
	// if it dialed into an existing one.
	Role phase.Role

	// Alias is the local participant's human-readable display name.
	Alias string

	// Self is the local node's key pair, generated once at startup.
	Self *keymaterial.KeyPair

	// Input is the local participant's scaled (×100, rounded) input
	// values, one per benchmark key.
	Input map[string]int64

	// Bus is the broadcast transport. Required.
	Bus transportbus.Broadcaster

	// LobbyCloseDelay overrides DefaultLobbyCloseDelay.
	LobbyCloseDelay time.Duration

	// Stdin, Stdout, Stderr default to os.Stdin/os.Stdout/os.Stderr.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Rand defaults to crypto/rand.Reader.
	Rand io.Reader

	// LoggerFactory defaults to logging.NewDefaultLoggerFactory().
	LoggerFactory logging.LoggerFactory
}

// Driver runs one node's side of the protocol to completion.
//
// Driver carries no internal locking: it is the sole owner of the
// PhaseMachine, Roster, and SecretSharing tables, and touches them
// only from the single goroutine running Run. Two auxiliary
// goroutines (readLines, readBus) exist solely to turn blocking reads
// into channel sends; neither touches protocol state.
type Driver struct {
	cfg     Config
	log     logging.LeveledLogger
	machine *phase.Machine
	roster  *membership.Roster
	engine  *secretsharing.Engine

	sumBroadcast    bool
	resultBroadcast bool
	done            bool

	ctx context.Context
}

// New validates cfg, applies defaults, and returns a Driver ready to
// Run.
func New(cfg Config) (*Driver, error) {
	if cfg.Self == nil {
		return nil, fmt.Errorf("driver: Config.Self is required")
	}
	if cfg.Bus == nil {
		return nil, fmt.Errorf("driver: Config.Bus is required")
	}
	if !cfg.Role.IsValid() {
		return nil, fmt.Errorf("driver: Config.Role is invalid")
	}
	if cfg.LobbyCloseDelay == 0 {
		cfg.LobbyCloseDelay = DefaultLobbyCloseDelay
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &Driver{
		cfg:     cfg,
		log:     cfg.LoggerFactory.NewLogger("driver"),
		machine: phase.NewMachine(cfg.Role),
		roster:  membership.NewRoster(),
		engine:  secretsharing.NewEngine(cfg.Self, cfg.Input),
	}, nil
}

// Run drives the event loop to completion: a nil return means the
// node finished (benchmark result observed, or the user declined the
// confirmation prompt); a non-nil return means the node stopped early
// and the caller should exit non-zero. Protocol aborts wrap ErrAborted;
// ctx's error and a failing Bus.Next are returned as they are.
func (d *Driver) Run(ctx context.Context) error {
	d.ctx = ctx

	lineCh := make(chan string)
	go d.readLines(ctx, lineCh)

	busCh := make(chan transportbus.Event)
	busErrCh := make(chan error, 1)
	go d.readBus(ctx, busCh, busErrCh)

	for {
		if err := d.runShareHousekeeping(); err != nil {
			return err
		}
		if d.done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lineCh:
			if !ok {
				lineCh = nil
				continue
			}
			if err := d.handleLine(line); err != nil {
				return err
			}
		case ev, ok := <-busCh:
			if !ok {
				busCh = nil
				continue
			}
			if err := d.handleBusEvent(ev); err != nil {
				return err
			}
		case err := <-busErrCh:
			return err
		}

		if d.done {
			return nil
		}
	}
}

func (d *Driver) readLines(ctx context.Context, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(d.cfg.Stdin)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func (d *Driver) readBus(ctx context.Context, out chan<- transportbus.Event, errOut chan<- error) {
	for {
		ev, err := d.cfg.Bus.Next(ctx)
		if err != nil {
			select {
			case errOut <- err:
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// broadcast encodes and publishes one message to every subscriber.
func (d *Driver) broadcast(msg any) error {
	payload, err := wire.Encode(msg)
	if err != nil {
		return d.abort(err)
	}
	if err := d.cfg.Bus.Publish(d.ctx, payload); err != nil {
		return d.abort(err)
	}
	return nil
}

func (d *Driver) broadcastRoster() error {
	return d.broadcast(d.roster.ToWire())
}

// abort logs cause and returns it wrapped in ErrAborted.
func (d *Driver) abort(cause error) error {
	d.log.Errorf("aborting: %v", cause)
	d.done = true
	return fmt.Errorf("%w: %v", ErrAborted, cause)
}

// runShareHousekeeping performs whichever share-exchange steps are
// ready to run on this iteration, each guarded to fire exactly once
// per threshold crossing.
func (d *Driver) runShareHousekeeping() error {
	if d.machine.Phase() != phase.SendingShares {
		return nil
	}

	msgs, err := d.engine.EmitShares(d.cfg.Rand, d.roster.Records())
	if err != nil {
		return d.abort(err)
	}
	for _, msg := range msgs {
		if err := d.broadcast(msg); err != nil {
			return err
		}
	}

	otherPeers := 0
	for _, rec := range d.roster.Records() {
		if !rec.PubKey.Equal(d.cfg.Self.Public()) {
			otherPeers++
		}
	}

	if !d.sumBroadcast && d.engine.Ready(otherPeers) {
		partial, err := d.engine.ComputePartialSum(d.roster.Records())
		if err != nil {
			return d.abort(err)
		}
		selfKey := d.cfg.Self.Public()
		if d.machine.Role() == phase.Leader {
			d.engine.AcceptSum(selfKey, partial)
		}
		if err := d.broadcast(wire.Sum{From: selfKey.String(), Partial: partial}); err != nil {
			return err
		}
		d.sumBroadcast = true
	}

	if d.machine.Role() == phase.Leader && !d.resultBroadcast {
		if result, ready := d.engine.AggregateLeader(d.roster.Len()); ready {
			if err := d.broadcast(wire.Result{Totals: result}); err != nil {
				return err
			}
			d.resultBroadcast = true
			d.printResults(result)
			if _, err := d.machine.ObserveResult(); err != nil {
				return d.abort(err)
			}
			d.done = true
		}
	}

	return nil
}
