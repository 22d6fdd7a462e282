package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/1broseidon/framewm/internal/platform"
	"github.com/1broseidon/framewm/internal/winid"
)

func recvEvent(t *testing.T, ch <-chan platform.Event) platform.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return platform.Event{}
	}
}

func recvTracked(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func TestObserver_FanOutAndUnsubscribe(t *testing.T) {
	source := make(chan platform.Event)
	obs := NewObserver(source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		obs.Run(ctx)
		close(done)
	}()

	idA, chA := obs.Subscribe(4)
	_, chB := obs.Subscribe(4)

	source <- platform.Event{Kind: platform.EventWindowMapped, Number: 41}
	if ev := recvEvent(t, chA); ev.Number != 41 {
		t.Fatalf("subscriber A expected window 41, got %d", ev.Number)
	}
	if ev := recvEvent(t, chB); ev.Number != 41 {
		t.Fatalf("subscriber B expected window 41, got %d", ev.Number)
	}

	obs.Unsubscribe(idA)
	if _, open := <-chA; open {
		t.Fatalf("unsubscribed channel must be closed")
	}

	source <- platform.Event{Kind: platform.EventWindowDestroyed, Number: 41}
	if ev := recvEvent(t, chB); ev.Kind != platform.EventWindowDestroyed {
		t.Fatalf("remaining subscriber must keep receiving, got %s", ev.Kind)
	}

	// Shutdown closes every remaining subscription.
	close(source)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("observer did not stop after source closed")
	}
	for range chB {
	}

	// Subscriptions after shutdown come back already closed.
	_, chC := obs.Subscribe(1)
	if _, open := <-chC; open {
		t.Fatalf("post-shutdown subscription must be closed")
	}
}

func TestObserver_BridgeRoutesToTracker(t *testing.T) {
	source := make(chan platform.Event)
	obs := NewObserver(source, nil)

	res := newFakeResolver()
	res.add(1, 100, 41)
	res.add(2, 100, 41)
	reg := winid.NewRegistry(res, nil)
	tr := NewTracker(reg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go obs.Run(ctx)

	bridgeDone := make(chan struct{})
	go func() {
		RunBridge(ctx, obs, func() (*Tracker, *winid.Registry) { return tr, reg }, nil)
		close(bridgeDone)
	}()

	// Give the bridge a moment to subscribe before dispatching.
	time.Sleep(10 * time.Millisecond)

	source <- platform.Event{Kind: platform.EventWindowMapped, Handle: 1, Number: 41}
	if ev := recvTracked(t, tr.Events()); ev.Kind != WindowOpened {
		t.Fatalf("expected opened via bridge, got %s", ev.Kind)
	}

	source <- platform.Event{Kind: platform.EventWindowFocused, Handle: 2, Number: 41}
	if ev := recvTracked(t, tr.Events()); ev.Kind != FocusChanged {
		t.Fatalf("expected focus via bridge, got %s", ev.Kind)
	}

	source <- platform.Event{Kind: platform.EventWindowDestroyed, Handle: 2, Number: 41}
	if ev := recvTracked(t, tr.Events()); ev.Kind != WindowClosed {
		t.Fatalf("expected closed via bridge, got %s", ev.Kind)
	}

	cancel()
	select {
	case <-bridgeDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("bridge did not stop on cancel")
	}
}
