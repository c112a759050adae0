// Package libp2pbus is the production transportbus.Broadcaster: a
// go-libp2p host running gossipsub over a single "lobby" topic. It is
// the network-facing counterpart to transportbus.MemoryBus, which
// exists purely for tests.
package libp2pbus

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/multiformats/go-multiaddr"
	"github.com/pion/logging"

	"github.com/backkem/avgmesh/pkg/transportbus"
)

// topicName is the single well-known broadcast topic every participant
// joins, mirroring the "lobby" gossipsub topic.
const topicName = "lobby"

// DialRetryInterval is how long Dial waits between connection attempts
// while the remote address is not yet reachable.
const DialRetryInterval = 200 * time.Millisecond

// MaxDialAttempts bounds the retry-dial loop: once exceeded, Dial
// fails with ErrDialTimedOut rather than retrying forever.
const MaxDialAttempts = 150

// Config configures a Bus.
type Config struct {
	// ListenAddr is the multiaddr to listen on. Defaults to
	// "/ip4/0.0.0.0/tcp/0" (an ephemeral port on every interface).
	ListenAddr string

	// RemoteAddr, if set, is the full multiaddr (including a /p2p/<id>
	// suffix) of an existing session to join. If empty, this Bus is the
	// first member of a new session.
	RemoteAddr string

	// Stdout receives the "waiting for session" retry notice while
	// dialing RemoteAddr. If nil, the notice is not printed.
	Stdout io.Writer

	// LoggerFactory defaults to logging.NewDefaultLoggerFactory().
	LoggerFactory logging.LoggerFactory
}

// Bus is a transportbus.Broadcaster backed by a go-libp2p host.
type Bus struct {
	host  host.Host
	topic *pubsub.Topic
	sub   *pubsub.Subscription
	peerSub event.Subscription
	log   logging.LeveledLogger

	events chan transportbus.Event
	wg     sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

var _ transportbus.Broadcaster = (*Bus)(nil)

// Dial starts a libp2p host per cfg, joins the lobby topic, and, if
// cfg.RemoteAddr is set, blocks (retrying every DialRetryInterval)
// until that peer is reachable.
func Dial(ctx context.Context, cfg Config) (*Bus, error) {
	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = "/ip4/0.0.0.0/tcp/0"
	}
	if cfg.LoggerFactory == nil {
		cfg.LoggerFactory = logging.NewDefaultLoggerFactory()
	}

	h, err := libp2p.New(libp2p.ListenAddrStrings(listenAddr))
	if err != nil {
		return nil, fmt.Errorf("libp2pbus: creating host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("libp2pbus: creating gossipsub: %w", err)
	}
	topic, err := ps.Join(topicName)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("libp2pbus: joining topic: %w", err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("libp2pbus: subscribing: %w", err)
	}

	peerSub, err := h.EventBus().Subscribe(new(event.EvtPeerConnectednessChanged))
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("libp2pbus: subscribing to connectedness events: %w", err)
	}

	b := &Bus{
		host:    h,
		topic:   topic,
		sub:     sub,
		peerSub: peerSub,
		log:     cfg.LoggerFactory.NewLogger("libp2pbus"),
		events:  make(chan transportbus.Event, 64),
		closed:  make(chan struct{}),
	}

	if cfg.RemoteAddr != "" {
		if err := b.dial(ctx, cfg.RemoteAddr, cfg.Stdout); err != nil {
			b.Close()
			return nil, err
		}
	}

	b.wg.Add(2)
	go b.readMessages()
	go b.readConnectivity()

	b.deliver(transportbus.Event{Kind: transportbus.EventLocalAddrDiscovered, NewAddr: b.joinAddr()})

	return b, nil
}

// joinAddr is the full dialable multiaddr (listen address plus this
// host's peer id) that a remote participant passes as --address.
func (b *Bus) joinAddr() string {
	info := peer.AddrInfo{ID: b.host.ID(), Addrs: b.host.Addrs()}
	maddrs, err := peer.AddrInfoToP2pAddrs(&info)
	if err != nil || len(maddrs) == 0 {
		return "/p2p/" + b.host.ID().String()
	}
	return maddrs[0].String()
}

func (b *Bus) dial(ctx context.Context, addr string, stdout io.Writer) error {
	maddr, err := multiaddr.NewMultiaddr(addr)
	if err != nil {
		return fmt.Errorf("libp2pbus: invalid address %q: %w", addr, err)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return fmt.Errorf("libp2pbus: %q is not a dialable peer address: %w", addr, err)
	}

	for attempt := 0; attempt < MaxDialAttempts; attempt++ {
		if err := b.host.Connect(ctx, *info); err == nil {
			return nil
		}
		if stdout != nil {
			fmt.Fprintf(stdout, "Waiting for session to start at %s...\n", addr)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(DialRetryInterval):
		}
	}
	return fmt.Errorf("%w: %s", ErrDialTimedOut, addr)
}

// readMessages forwards gossipsub deliveries, including this host's
// own publishes, into b.events as EventMessage.
func (b *Bus) readMessages() {
	defer b.wg.Done()
	for {
		msg, err := b.sub.Next(context.Background())
		if err != nil {
			return // subscription cancelled by Close
		}
		b.deliver(transportbus.Event{
			Kind:    transportbus.EventMessage,
			Payload: msg.Data,
			From:    msg.ReceivedFrom.String(),
		})
	}
}

// readConnectivity forwards peer connectedness transitions into
// b.events as EventPeerDisconnected.
func (b *Bus) readConnectivity() {
	defer b.wg.Done()
	for {
		select {
		case raw, ok := <-b.peerSub.Out():
			if !ok {
				return
			}
			ev, ok := raw.(event.EvtPeerConnectednessChanged)
			if !ok || ev.Connectedness != network.NotConnected {
				continue
			}
			b.deliver(transportbus.Event{Kind: transportbus.EventPeerDisconnected, From: ev.Peer.String()})
		case <-b.closed:
			return
		}
	}
}

func (b *Bus) deliver(ev transportbus.Event) {
	select {
	case b.events <- ev:
	case <-b.closed:
	}
}

// Publish broadcasts payload to the lobby topic.
func (b *Bus) Publish(ctx context.Context, payload []byte) error {
	return b.topic.Publish(ctx, payload)
}

// Next returns the next inbound Event.
func (b *Bus) Next(ctx context.Context) (transportbus.Event, error) {
	select {
	case ev := <-b.events:
		return ev, nil
	case <-b.closed:
		return transportbus.Event{}, transportbus.ErrClosed
	case <-ctx.Done():
		return transportbus.Event{}, ctx.Err()
	}
}

// LocalTransportID returns this host's peer id.
func (b *Bus) LocalTransportID() string {
	return b.host.ID().String()
}

// Close tears down the subscription, the topic, and the host.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		b.sub.Cancel()
		b.peerSub.Close()
		if cerr := b.topic.Close(); cerr != nil {
			err = cerr
		}
		if cerr := b.host.Close(); cerr != nil && err == nil {
			err = cerr
		}
		b.wg.Wait()
	})
	return err
}
