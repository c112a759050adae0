package transportbus

import (
	"context"
	"testing"
	"time"
)

func drainLocalAddrDiscovered(t *testing.T, m *MemoryBus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := m.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.Kind != EventLocalAddrDiscovered {
		t.Fatalf("got %+v, want EventLocalAddrDiscovered", ev)
	}
}

func TestMemoryBusJoinDeliversLocalAddrDiscovered(t *testing.T) {
	hub := NewHub()
	a := hub.Join()
	defer a.Close()
	drainLocalAddrDiscovered(t, a)
}

func TestMemoryBusFanOut(t *testing.T) {
	hub := NewHub()
	a := hub.Join()
	b := hub.Join()
	c := hub.Join()
	defer a.Close()
	defer b.Close()
	defer c.Close()
	for _, m := range []*MemoryBus{a, b, c} {
		drainLocalAddrDiscovered(t, m)
	}

	if err := a.Publish(context.Background(), []byte("hello")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	for _, m := range []*MemoryBus{a, b, c} {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		ev, err := m.Next(ctx)
		cancel()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if ev.Kind != EventMessage || string(ev.Payload) != "hello" || ev.From != a.LocalTransportID() {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
}

func TestMemoryBusFIFOPerSender(t *testing.T) {
	hub := NewHub()
	a := hub.Join()
	b := hub.Join()
	defer a.Close()
	defer b.Close()
	drainLocalAddrDiscovered(t, a)
	drainLocalAddrDiscovered(t, b)

	for _, payload := range []string{"one", "two", "three"} {
		if err := a.Publish(context.Background(), []byte(payload)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	for _, want := range []string{"one", "two", "three"} {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		ev, err := b.Next(ctx)
		cancel()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if string(ev.Payload) != want {
			t.Fatalf("got %q, want %q", ev.Payload, want)
		}
	}
}

func TestHubDisconnectNotifiesRemainingMembers(t *testing.T) {
	hub := NewHub()
	a := hub.Join()
	b := hub.Join()
	defer a.Close()
	defer b.Close()
	drainLocalAddrDiscovered(t, a)
	drainLocalAddrDiscovered(t, b)

	hub.Disconnect(a.LocalTransportID())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	ev, err := b.Next(ctx)
	cancel()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ev.Kind != EventPeerDisconnected || ev.From != a.LocalTransportID() {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestMemoryBusCloseUnblocksNext(t *testing.T) {
	hub := NewHub()
	a := hub.Join()
	drainLocalAddrDiscovered(t, a)

	done := make(chan error, 1)
	go func() {
		_, err := a.Next(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	a.Close()

	select {
	case err := <-done:
		if err != ErrClosed {
			t.Fatalf("got %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next did not unblock after Close")
	}
}
