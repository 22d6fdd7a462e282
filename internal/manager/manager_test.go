package manager

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/framewm/internal/frame"
	"github.com/1broseidon/framewm/internal/geometry"
	"github.com/1broseidon/framewm/internal/winid"
)

type fakeResolver struct {
	mu      sync.Mutex
	pids    map[winid.Handle]int
	numbers map[winid.Handle]uint32
	dead    map[winid.Handle]bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		pids:    make(map[winid.Handle]int),
		numbers: make(map[winid.Handle]uint32),
		dead:    make(map[winid.Handle]bool),
	}
}

func (f *fakeResolver) add(h winid.Handle, pid int, number uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pids[h] = pid
	f.numbers[h] = number
}

func (f *fakeResolver) kill(h winid.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead[h] = true
}

func (f *fakeResolver) PID(h winid.Handle) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pid, ok := f.pids[h]
	return pid, ok
}

func (f *fakeResolver) WindowNumber(h winid.Handle) (uint32, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.numbers[h]
	return n, ok
}

func (f *fakeResolver) IsLive(h winid.Handle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, known := f.pids[h]
	return known && !f.dead[h]
}

type fakeControl struct {
	mu     sync.Mutex
	fail   map[winid.Handle]bool
	moves  []winid.Handle
	raises []winid.Handle
}

func newFakeControl() *fakeControl {
	return &fakeControl{fail: make(map[winid.Handle]bool)}
}

func (c *fakeControl) failFor(h winid.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[h] = true
}

func (c *fakeControl) MoveResize(h winid.Handle, bounds geometry.Rect) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[h] {
		return errAttach
	}
	c.moves = append(c.moves, h)
	return nil
}

func (c *fakeControl) Raise(h winid.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[h] {
		return errAttach
	}
	c.raises = append(c.raises, h)
	return nil
}

func (c *fakeControl) CloseWindow(h winid.Handle) error {
	return nil
}

func (c *fakeControl) raiseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.raises)
}

var errAttach = errors.New("window is gone")

type harness struct {
	m    *Manager
	reg  *winid.Registry
	res  *fakeResolver
	ctrl *fakeControl
}

func newHarness(t *testing.T, refocus RefocusPolicy) (*harness, context.Context) {
	t.Helper()
	res := newFakeResolver()
	ctrl := newFakeControl()
	reg := winid.NewRegistry(res, nil)
	tree := frame.NewTree(geometry.Rect{Width: 1920, Height: 1080}, 28, nil)
	m := New(Config{Refocus: refocus}, tree, reg, ctrl, res)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go m.Run(ctx)
	return &harness{m: m, reg: reg, res: res, ctrl: ctrl}, ctx
}

// window mints a confirmed identity through the registry.
func (h *harness) window(t *testing.T, handle winid.Handle, pid int, number uint32) *winid.Identity {
	t.Helper()
	h.res.add(handle, pid, number)
	id := h.reg.GetOrRegister(handle)
	if id == nil {
		t.Fatalf("failed to register window %d", number)
	}
	return id
}

func (h *harness) sync(t *testing.T, ctx context.Context) Snapshot {
	t.Helper()
	syncCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	snap, err := h.m.Snapshot(syncCtx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func findWindow(snap Snapshot, number uint32) (FrameStatus, bool) {
	for _, f := range snap.Frames {
		for _, w := range f.Windows {
			if w.Number == number {
				return f, true
			}
		}
	}
	return FrameStatus{}, false
}

func TestManager_CommandsAreSerialized(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)

	// Commands enqueued back to back from one goroutine must apply in
	// order: assign, split, assign into the new active frame.
	h.m.AssignWindow(w1, true)
	h.m.SplitHorizontal()
	w2 := h.window(t, 2, 200, 42)
	h.m.AssignWindow(w2, true)

	snap := h.sync(t, ctx)
	if len(snap.Frames) != 2 {
		t.Fatalf("expected two leaves after split, got %d", len(snap.Frames))
	}

	top, ok := findWindow(snap, 41)
	if !ok {
		t.Fatalf("window 41 missing from layout")
	}
	if top.Bounds.Height != 540 {
		t.Fatalf("expected top leaf height 540, got %d", top.Bounds.Height)
	}
	// The split moved 41 into the first child, which stayed active, so
	// 42 landed next to it.
	second, ok := findWindow(snap, 42)
	if !ok {
		t.Fatalf("window 42 missing from layout")
	}
	if second.ID != top.ID {
		t.Fatalf("expected both windows in the active first child")
	}
	if snap.ActiveFrame != top.ID {
		t.Fatalf("active frame mismatch")
	}
}

func TestManager_AssignRollbackKeepsMapsConsistent(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)

	h.m.AssignWindow(w1, true)
	// Duplicate assignment: placement is refused, and the capability
	// registration from the failed attempt must not linger.
	h.m.AssignWindow(w1, true)

	snap := h.sync(t, ctx)
	count := 0
	for _, f := range snap.Frames {
		count += len(f.Windows)
	}
	if count != 1 {
		t.Fatalf("expected exactly one placed window, got %d", count)
	}
	if len(h.m.capabilities) != 1 || len(h.m.frameOf) != 1 {
		t.Fatalf("maps out of sync: capabilities=%d frameOf=%d",
			len(h.m.capabilities), len(h.m.frameOf))
	}
}

func TestManager_AssignPositionFailureReconciles(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)
	h.ctrl.failFor(1)

	h.m.AssignWindow(w1, true)

	snap := h.sync(t, ctx)
	if _, ok := findWindow(snap, 41); ok {
		t.Fatalf("unpositionable window must be reconciled out of the layout")
	}
	if len(h.m.capabilities) != 0 || len(h.m.frameOf) != 0 {
		t.Fatalf("reconciliation must clear both maps: capabilities=%d frameOf=%d",
			len(h.m.capabilities), len(h.m.frameOf))
	}
}

func TestManager_ReconciliationOnRepositionFailure(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)

	h.m.AssignWindow(w1, true)
	h.sync(t, ctx)

	// The window dies between commands; the split's repositioning pass
	// discovers the missing capability and self-heals.
	h.ctrl.failFor(1)
	h.m.SplitVertical()

	snap := h.sync(t, ctx)
	if _, ok := findWindow(snap, 41); ok {
		t.Fatalf("window with failed capability must leave the layout")
	}
	if len(h.m.frameOf) != 0 || len(h.m.capabilities) != 0 {
		t.Fatalf("window present in maps after reconciliation")
	}
}

func TestManager_SplitKeepsReverseMapCurrent(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)

	h.m.AssignWindow(w1, true)
	// Splitting moves the window into the first child; the reverse map
	// must follow, or a later disappearance removes from the wrong frame.
	h.m.SplitVertical()
	h.m.WindowDisappeared(w1)

	snap := h.sync(t, ctx)
	if _, ok := findWindow(snap, 41); ok {
		t.Fatalf("window closed after a split must leave the layout")
	}
	if len(h.m.frameOf) != 0 || len(h.m.capabilities) != 0 {
		t.Fatalf("maps out of sync after split: capabilities=%d frameOf=%d",
			len(h.m.capabilities), len(h.m.frameOf))
	}
}

func TestManager_DisappearedRefocusRaise(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)
	w2 := h.window(t, 2, 200, 42)

	h.m.AssignWindow(w1, true)
	h.m.AssignWindow(w2, true)
	h.sync(t, ctx)

	before := h.ctrl.raiseCount()
	h.m.WindowDisappeared(w2)
	snap := h.sync(t, ctx)

	if _, ok := findWindow(snap, 42); ok {
		t.Fatalf("disappeared window still in layout")
	}
	if h.ctrl.raiseCount() != before+1 {
		t.Fatalf("raise policy must re-raise the new active window")
	}
	f, ok := findWindow(snap, 41)
	if !ok {
		t.Fatalf("remaining window missing")
	}
	if !f.Windows[0].Active {
		t.Fatalf("remaining window must be the frame's active one")
	}
}

func TestManager_DisappearedRefocusNone(t *testing.T) {
	h, ctx := newHarness(t, RefocusNone)
	w1 := h.window(t, 1, 100, 41)
	w2 := h.window(t, 2, 200, 42)

	h.m.AssignWindow(w1, true)
	h.m.AssignWindow(w2, true)
	h.sync(t, ctx)

	before := h.ctrl.raiseCount()
	h.m.WindowDisappeared(w2)
	h.sync(t, ctx)

	if h.ctrl.raiseCount() != before {
		t.Fatalf("none policy must not raise anything")
	}
}

func TestManager_DisappearedFloatingWindowOnlyClearsCapability(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)

	// Never assigned: the window is floating. Disappearance must be a
	// no-op beyond the capability entry.
	h.m.WindowDisappeared(w1)
	snap := h.sync(t, ctx)
	if len(snap.Frames) != 1 || len(snap.Frames[0].Windows) != 0 {
		t.Fatalf("floating window disappearance must not touch the tree")
	}
}

func TestManager_MoveActiveWindowAcrossSplit(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)

	h.m.AssignWindow(w1, true)
	h.m.SplitVertical()
	h.m.MoveActiveWindow(frame.Right)

	snap := h.sync(t, ctx)
	f, ok := findWindow(snap, 41)
	if !ok {
		t.Fatalf("window lost during move")
	}
	if f.Bounds.X != 960 {
		t.Fatalf("expected window in the right half at X=960, got X=%d", f.Bounds.X)
	}
	if snap.ActiveFrame != f.ID {
		t.Fatalf("destination frame must become active")
	}
	if got := h.m.frameOf[w1.Key()]; uint32(got) != f.ID {
		t.Fatalf("reverse map must follow the move")
	}
}

func TestManager_CycleSkipsAndReconcilesDeadWindow(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	w1 := h.window(t, 1, 100, 41)
	w2 := h.window(t, 2, 200, 42)
	w3 := h.window(t, 3, 300, 43)

	h.m.AssignWindow(w1, true)
	h.m.AssignWindow(w2, false)
	h.m.AssignWindow(w3, false)
	h.sync(t, ctx)

	h.res.kill(2)
	h.m.CycleForward()

	snap := h.sync(t, ctx)
	if _, ok := findWindow(snap, 42); ok {
		t.Fatalf("dead window must be dropped during cycling")
	}
	if _, ok := h.m.frameOf[w2.Key()]; ok {
		t.Fatalf("dead window must leave the reverse map")
	}
	f, _ := findWindow(snap, 43)
	for _, w := range f.Windows {
		if w.Number == 43 && !w.Active {
			t.Fatalf("cycle must land on the next live window")
		}
	}
}

func TestManager_NavigateBoundaryIsNoOp(t *testing.T) {
	h, ctx := newHarness(t, RefocusRaise)
	h.m.Navigate(frame.Left)
	snap := h.sync(t, ctx)
	if len(snap.Frames) != 1 {
		t.Fatalf("navigation at the boundary must change nothing")
	}
}
