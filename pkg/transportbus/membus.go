package transportbus

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Hub is a shared in-memory "lobby" topic: every MemoryBus created from the
// same Hub sees every other member's Publish calls, in FIFO order per
// sender. Hub is the test
// double for the real pubsub network that internal/libp2pbus wires in
// production.
type Hub struct {
	mu      sync.Mutex
	members map[string]*MemoryBus
}

// NewHub creates an empty shared lobby.
func NewHub() *Hub {
	return &Hub{members: make(map[string]*MemoryBus)}
}

// Join creates a new member of the hub with a fresh synthetic transport
// identifier and queues an EventLocalAddrDiscovered on the new member's
// own inbox. Other members are not notified: callers broadcast their own
// Join message over the returned bus, matching the real transport's
// behavior of only notifying local address discovery, not peer presence.
func (h *Hub) Join() *MemoryBus {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	b := &MemoryBus{
		hub:    h,
		id:     id,
		inbox:  make(chan Event, 256),
		closed: make(chan struct{}),
	}
	h.members[id] = b
	b.deliver(Event{Kind: EventLocalAddrDiscovered, NewAddr: "memory://" + id})
	return b
}

// Disconnect simulates a transport-level disconnection of member id,
// delivering EventPeerDisconnected to every remaining member and removing
// id from the hub.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.members, id)
	for _, m := range h.members {
		m.deliver(Event{Kind: EventPeerDisconnected, From: id})
	}
}

// MemoryBus is a Broadcaster backed by a Hub. It is safe for use by a
// single goroutine driving Next, and for Publish to be called from that
// same goroutine (the core never calls Publish concurrently with itself).
type MemoryBus struct {
	hub *Hub
	id  string

	inbox  chan Event
	once   sync.Once
	closed chan struct{}
}

var _ Broadcaster = (*MemoryBus)(nil)

// Publish fans payload out to every current hub member, including self,
// preserving FIFO order relative to this sender's prior publishes.
func (b *MemoryBus) Publish(ctx context.Context, payload []byte) error {
	b.hub.mu.Lock()
	defer b.hub.mu.Unlock()

	cp := make([]byte, len(payload))
	copy(cp, payload)
	ev := Event{Kind: EventMessage, Payload: cp, From: b.id}
	for _, m := range b.hub.members {
		m.deliver(ev)
	}
	return nil
}

// deliver enqueues ev for this member without blocking the publisher; the
// hub's lock is held by the caller.
func (b *MemoryBus) deliver(ev Event) {
	select {
	case b.inbox <- ev:
	default:
		// Inbox is only ever sized for test scenarios; a full inbox
		// indicates the test forgot to drain Next and is a bug in the
		// test, not a condition the protocol itself must tolerate.
		panic("transportbus: memory bus inbox full")
	}
}

// Next returns the next inbound Event for this member.
func (b *MemoryBus) Next(ctx context.Context) (Event, error) {
	select {
	case ev := <-b.inbox:
		return ev, nil
	case <-b.closed:
		return Event{}, ErrClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// LocalTransportID returns this member's synthetic transport identifier.
func (b *MemoryBus) LocalTransportID() string {
	return b.id
}

// Close removes this member from the hub and unblocks any pending Next.
func (b *MemoryBus) Close() error {
	b.once.Do(func() {
		b.hub.mu.Lock()
		delete(b.hub.members, b.id)
		b.hub.mu.Unlock()
		close(b.closed)
	})
	return nil
}
