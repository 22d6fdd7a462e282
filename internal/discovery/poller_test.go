package discovery

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/1broseidon/framewm/internal/platform"
	"github.com/1broseidon/framewm/internal/winid"
)

type fakeEnumerator struct {
	resolver *fakeResolver
	windows  []platform.WindowInfo
	front    winid.Handle
	hasFront bool
}

func (f *fakeEnumerator) ListWindows() ([]platform.WindowInfo, error) {
	out := make([]platform.WindowInfo, len(f.windows))
	copy(out, f.windows)
	return out, nil
}

func (f *fakeEnumerator) Frontmost() (winid.Handle, bool, error) {
	return f.front, f.hasFront, nil
}

// present registers a window with the resolver and adds it to the
// enumerator under a fresh handle, the way a real backend mints one per
// observation.
func (f *fakeEnumerator) present(h winid.Handle, pid int, number uint32) {
	f.resolver.add(h, pid, number)
	f.windows = append(f.windows, platform.WindowInfo{
		Handle: h,
		Number: number,
		PID:    pid,
	})
}

func (f *fakeEnumerator) remove(number uint32) {
	kept := f.windows[:0]
	for _, w := range f.windows {
		if w.Number != number {
			kept = append(kept, w)
		}
	}
	f.windows = kept
}

func TestPoller_DiffEmitsOpenedAndClosed(t *testing.T) {
	res := newFakeResolver()
	enum := &fakeEnumerator{resolver: res}
	reg := winid.NewRegistry(res, nil)
	tr := NewTracker(reg, nil)

	p := NewPoller(PollerConfig{}, enum, func() (*Tracker, *winid.Registry) {
		return tr, reg
	})

	enum.present(1, 100, 41)
	enum.present(2, 200, 42)
	p.PollNow()

	events := drainEvents(tr)
	if len(events) != 2 {
		t.Fatalf("expected two opened events on first pass, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Kind != WindowOpened {
			t.Fatalf("expected opened, got %s", ev.Kind)
		}
	}

	// Second pass observes the same windows through fresh handles: the
	// snapshot diff suppresses re-reporting.
	enum.windows = nil
	enum.present(3, 100, 41)
	enum.present(4, 200, 42)
	p.PollNow()
	if events := drainEvents(tr); len(events) != 0 {
		t.Fatalf("unchanged window set must emit nothing, got %v", events)
	}

	// One window disappears.
	enum.remove(42)
	p.PollNow()
	events = drainEvents(tr)
	if len(events) != 1 || events[0].Kind != WindowClosed {
		t.Fatalf("expected one closed event, got %v", events)
	}
	if n, _ := events[0].Window.Number(); n != 42 {
		t.Fatalf("expected window 42 closed, got %d", n)
	}
}

func TestPoller_FocusReportedOnceUntilItChanges(t *testing.T) {
	res := newFakeResolver()
	enum := &fakeEnumerator{resolver: res}
	reg := winid.NewRegistry(res, nil)
	tr := NewTracker(reg, nil)

	p := NewPoller(PollerConfig{}, enum, func() (*Tracker, *winid.Registry) {
		return tr, reg
	})

	enum.present(1, 100, 41)
	enum.present(2, 200, 42)
	res.add(10, 100, 41)
	enum.front, enum.hasFront = 10, true

	p.PollNow()
	events := drainEvents(tr)
	focus := 0
	for _, ev := range events {
		if ev.Kind == FocusChanged {
			focus++
			if n, _ := ev.Window.Number(); n != 41 {
				t.Fatalf("expected focus on 41, got %d", n)
			}
		}
	}
	if focus != 1 {
		t.Fatalf("expected one focus event, got %d", focus)
	}

	// Same frontmost window on the next pass: no repeat.
	enum.windows = nil
	enum.present(3, 100, 41)
	enum.present(4, 200, 42)
	res.add(11, 100, 41)
	enum.front = 11
	p.PollNow()
	if events := drainEvents(tr); len(events) != 0 {
		t.Fatalf("unchanged focus must emit nothing, got %v", events)
	}

	// Focus moves to the other window.
	res.add(12, 200, 42)
	enum.front = 12
	enum.windows = nil
	enum.present(5, 100, 41)
	enum.present(6, 200, 42)
	p.PollNow()
	events = drainEvents(tr)
	if len(events) != 1 || events[0].Kind != FocusChanged {
		t.Fatalf("expected one focus event for the new window, got %v", events)
	}
}

func TestPoller_TargetSwitchResetsSnapshot(t *testing.T) {
	res := newFakeResolver()
	enum := &fakeEnumerator{resolver: res}

	regA := winid.NewRegistry(res, nil)
	trA := NewTracker(regA, nil)
	regB := winid.NewRegistry(res, nil)
	trB := NewTracker(regB, nil)

	tr, reg := trA, regA
	p := NewPoller(PollerConfig{}, enum, func() (*Tracker, *winid.Registry) {
		return tr, reg
	})

	enum.present(1, 100, 41)
	p.PollNow()
	drainEvents(trA)

	// Desktop switch: a different window set is visible, fed to the new
	// space's tracker. The old space's window is not reported closed.
	tr, reg = trB, regB
	enum.windows = nil
	enum.present(2, 200, 42)
	p.PollNow()

	if events := drainEvents(trA); len(events) != 0 {
		t.Fatalf("previous space must see no events after switch, got %v", events)
	}
	events := drainEvents(trB)
	if len(events) != 1 || events[0].Kind != WindowOpened {
		t.Fatalf("new space should open its window, got %v", events)
	}
	if !trA.Tracked(41) {
		t.Fatalf("hidden space keeps its tracked window")
	}
}

func TestPoller_SwitchBackReportsClosuresMissedWhileHidden(t *testing.T) {
	res := newFakeResolver()
	enum := &fakeEnumerator{resolver: res}

	regA := winid.NewRegistry(res, nil)
	trA := NewTracker(regA, nil)
	regB := winid.NewRegistry(res, nil)
	trB := NewTracker(regB, nil)

	tr, reg := trA, regA
	p := NewPoller(PollerConfig{}, enum, func() (*Tracker, *winid.Registry) {
		return tr, reg
	})

	enum.present(1, 100, 41)
	p.PollNow()
	drainEvents(trA)

	// Switch away. Window 41 closes while its desktop is hidden, so no
	// pass ever observes the closing transition directly.
	tr, reg = trB, regB
	enum.windows = nil
	enum.present(2, 200, 42)
	p.PollNow()
	drainEvents(trB)

	// Switch back: the first desktop is visible again and 41 is gone.
	tr, reg = trA, regA
	enum.windows = nil
	p.PollNow()

	events := drainEvents(trA)
	if len(events) != 1 || events[0].Kind != WindowClosed {
		t.Fatalf("expected the missed closure on switch back, got %v", events)
	}
	if n, _ := events[0].Window.Number(); n != 41 {
		t.Fatalf("expected window 41 closed, got %d", n)
	}
	if trA.Tracked(41) {
		t.Fatalf("closed window must leave the tracked set")
	}
}

type countingEnumerator struct {
	fakeEnumerator
	passes atomic.Int64
}

func (c *countingEnumerator) ListWindows() ([]platform.WindowInfo, error) {
	c.passes.Add(1)
	return c.fakeEnumerator.ListWindows()
}

func waitForPasses(t *testing.T, enum *countingEnumerator, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if enum.passes.Load() >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d poll passes, got %d", n, enum.passes.Load())
}

func TestPoller_SetIntervalRepacesRunningLoop(t *testing.T) {
	res := newFakeResolver()
	enum := &countingEnumerator{}
	enum.resolver = res
	reg := winid.NewRegistry(res, nil)
	tr := NewTracker(reg, nil)

	p := NewPoller(PollerConfig{Interval: time.Hour}, enum, func() (*Tracker, *winid.Registry) {
		return tr, reg
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Run makes an immediate first pass regardless of the interval.
	waitForPasses(t, enum, 1)

	// At an hour per tick no further pass would land within the test;
	// re-pacing must reach the running ticker.
	p.SetInterval(5 * time.Millisecond)
	waitForPasses(t, enum, 3)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("poller did not stop on cancel")
	}
}
