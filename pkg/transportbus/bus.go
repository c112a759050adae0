package transportbus

import (
	"context"
	"errors"
)

// EventKind identifies the shape of an inbound transport Event.
type EventKind int

const (
	// EventMessage carries an opaque broadcast payload delivered to every
	// subscriber, delivered to every subscriber.
	EventMessage EventKind = iota

	// EventPeerDisconnected notifies that a known peer's transport-level
	// connection has closed, has closed.
	EventPeerDisconnected

	// EventLocalAddrDiscovered notifies the local listener's externally
	// reachable address, reachable address.
	EventLocalAddrDiscovered
)

// Event is a single occurrence the Driver selects on. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind EventKind

	// Payload is the opaque broadcast bytes, set when Kind == EventMessage.
	Payload []byte

	// From is the transport identifier of the message sender or the peer
	// that disconnected.
	From string

	// NewAddr is the externally reachable address, set when
	// Kind == EventLocalAddrDiscovered.
	NewAddr string
}

// ErrClosed is returned by Next once the Broadcaster has been closed.
var ErrClosed = errors.New("transportbus: closed")

// Broadcaster is the publish/subscribe broadcast primitive the core
// requires from its transport. Every accepted message is
// delivered to every subscriber including the sender, in FIFO order per
// sender; cross-sender order is not guaranteed. Message authenticity at
// this layer is assumed strict: invalid signatures are dropped before
// reaching the core.
type Broadcaster interface {
	// Publish broadcasts payload to the single well-known "lobby" topic.
	Publish(ctx context.Context, payload []byte) error

	// Next blocks until the next inbound Event is available, or ctx is
	// done, or the Broadcaster is closed (ErrClosed).
	Next(ctx context.Context) (Event, error)

	// LocalTransportID returns this participant's own transport
	// identifier, stable for the lifetime of the process.
	LocalTransportID() string

	// Close releases the Broadcaster's resources. Next returns ErrClosed
	// after Close.
	Close() error
}
