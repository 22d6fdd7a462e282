package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1broseidon/framewm/internal/frame"
	"github.com/1broseidon/framewm/internal/geometry"
	"github.com/1broseidon/framewm/internal/platform"
	"github.com/1broseidon/framewm/internal/winid"
	"github.com/google/uuid"
)

// Config holds the manager's tunables.
type Config struct {
	// SettleDelay is slept after positioning and before raising a newly
	// focused window, tolerating the window system's own asynchronous
	// settling. Timing accommodation, not a correctness mechanism.
	SettleDelay time.Duration
	// GapSize shrinks each window's rectangle inside its frame.
	GapSize int
	// Refocus decides what happens when a focused window disappears.
	Refocus RefocusPolicy
	Logger  *slog.Logger
}

const commandBuffer = 128

// Manager owns one space's frame tree, the window→capability map and
// the window→frame reverse map. Every mutation arrives as a command on a
// FIFO queue drained by a single goroutine, so user operations and
// racing discovery events can never interleave their effects. Enqueue
// is fire-and-forget from any goroutine; a command either completes or
// fails inside its handler with a log line, never an error to the
// caller.
type Manager struct {
	tree     *frame.Tree
	registry *winid.Registry
	control  platform.WindowControl
	resolver winid.Resolver
	logger   *slog.Logger

	settleDelay time.Duration
	gap         int
	refocus     RefocusPolicy

	commands chan command

	// Confined to the drain goroutine.
	capabilities map[uuid.UUID]winid.Handle
	frameOf      map[uuid.UUID]frame.ID
}

// New creates a manager over an existing tree. The manager subscribes
// to the registry so cached handles follow upgrades and invalidations.
func New(cfg Config, tree *frame.Tree, registry *winid.Registry, control platform.WindowControl, resolver winid.Resolver) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		tree:         tree,
		registry:     registry,
		control:      control,
		resolver:     resolver,
		logger:       logger,
		settleDelay:  cfg.SettleDelay,
		gap:          cfg.GapSize,
		refocus:      cfg.Refocus,
		commands:     make(chan command, commandBuffer),
		capabilities: make(map[uuid.UUID]winid.Handle),
		frameOf:      make(map[uuid.UUID]frame.ID),
	}

	registry.AddObserver(func(ev winid.Event) {
		switch ev.Kind {
		case winid.EventHandleRefreshed, winid.EventUpgraded:
			m.enqueue(command{kind: cmdRefreshHandle, window: ev.Identity})
		case winid.EventInvalidated:
			m.enqueue(command{kind: cmdDisappeared, window: ev.Identity})
		}
	})
	return m
}

// Run drains the command queue until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-m.commands:
			m.handle(c)
		}
	}
}

// SplitHorizontal splits the active frame into top/bottom halves.
func (m *Manager) SplitHorizontal() {
	m.enqueue(command{kind: cmdSplit, split: frame.SplitHorizontal})
}

// SplitVertical splits the active frame into left/right halves.
func (m *Manager) SplitVertical() {
	m.enqueue(command{kind: cmdSplit, split: frame.SplitVertical})
}

// CloseActiveFrame closes the active frame, consolidating into its
// parent.
func (m *Manager) CloseActiveFrame() {
	m.enqueue(command{kind: cmdCloseFrame})
}

// Navigate moves the active frame pointer to the spatial neighbor.
func (m *Manager) Navigate(dir frame.Direction) {
	m.enqueue(command{kind: cmdNavigate, dir: dir})
}

// MoveActiveWindow transfers the active window to the neighboring frame.
func (m *Manager) MoveActiveWindow(dir frame.Direction) {
	m.enqueue(command{kind: cmdMoveWindow, dir: dir})
}

// CycleForward advances the active frame's window stack.
func (m *Manager) CycleForward() {
	m.enqueue(command{kind: cmdCycle, delta: 1})
}

// CycleBackward is CycleForward in the other direction.
func (m *Manager) CycleBackward() {
	m.enqueue(command{kind: cmdCycle, delta: -1})
}

// ShiftActiveWindow reorders the active window within its stack.
func (m *Manager) ShiftActiveWindow(delta int) {
	m.enqueue(command{kind: cmdShift, delta: delta})
}

// AssignWindow places a discovered window into the active frame.
func (m *Manager) AssignWindow(w *winid.Identity, focus bool) {
	m.enqueue(command{kind: cmdAssign, window: w, focus: focus})
}

// WindowDisappeared removes a closed window from the layout.
func (m *Manager) WindowDisappeared(w *winid.Identity) {
	m.enqueue(command{kind: cmdDisappeared, window: w})
}

// WindowFocused follows an externally driven focus change.
func (m *Manager) WindowFocused(w *winid.Identity) {
	m.enqueue(command{kind: cmdFocus, window: w})
}

// Snapshot returns a consistent view of the layout, taken from inside
// the command queue.
func (m *Manager) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	m.enqueue(command{kind: cmdSnapshot, reply: reply})
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// enqueue never blocks: arrival may race, processing is sequential. A
// full queue drops the command with a log line.
func (m *Manager) enqueue(c command) {
	select {
	case m.commands <- c:
	default:
		m.logger.Warn("command queue full, dropping command", "kind", int(c.kind))
	}
}

func (m *Manager) handle(c command) {
	defer func() {
		if err := recover(); err != nil {
			m.logger.Error("command handler panic recovered", "error", err)
		}
	}()

	switch c.kind {
	case cmdSplit:
		m.handleSplit(c.split)
	case cmdCloseFrame:
		m.handleCloseFrame()
	case cmdNavigate:
		m.handleNavigate(c.dir)
	case cmdMoveWindow:
		m.handleMoveWindow(c.dir)
	case cmdCycle:
		m.handleCycle(c.delta)
	case cmdShift:
		m.handleShift(c.delta)
	case cmdAssign:
		m.handleAssign(c.window, c.focus)
	case cmdDisappeared:
		m.handleDisappeared(c.window)
	case cmdFocus:
		m.handleFocus(c.window)
	case cmdRefreshHandle:
		m.handleRefreshHandle(c.window)
	case cmdSnapshot:
		c.reply <- m.snapshot()
	}
}

func (m *Manager) handleSplit(dir frame.SplitDirection) {
	active := m.tree.Active()
	first, err := m.tree.Split(active.ID(), dir)
	if err != nil {
		m.logger.Warn("split failed", "frame", uint32(active.ID()), "error", err)
		return
	}
	// The split moved the frame's windows into the first child.
	for _, w := range first.Stack().All() {
		m.frameOf[w.Key()] = first.ID()
	}
	for _, key := range m.positionLeaf(first) {
		m.reconcileByKey(key)
	}
	m.raiseActive(first)
}

func (m *Manager) handleCloseFrame() {
	active := m.tree.Active()
	parent, err := m.tree.Close(active.ID())
	if err != nil {
		m.logger.Warn("close frame failed", "frame", uint32(active.ID()), "error", err)
		return
	}
	// Windows from the freed subtree now live in the parent.
	for _, w := range parent.Stack().All() {
		m.frameOf[w.Key()] = parent.ID()
	}
	for _, key := range m.positionLeaf(parent) {
		m.reconcileByKey(key)
	}
	m.raiseActive(parent)
}

func (m *Manager) handleNavigate(dir frame.Direction) {
	active := m.tree.Active()
	target, ok := m.tree.Navigate(active.ID(), dir)
	if !ok {
		return
	}
	if err := m.tree.SetActive(target.ID()); err != nil {
		return
	}
	m.raiseActive(target)
}

func (m *Manager) handleMoveWindow(dir frame.Direction) {
	active := m.tree.Active()
	w := active.Stack().Active()
	if w == nil {
		return
	}
	target, ok := m.tree.Navigate(active.ID(), dir)
	if !ok {
		return
	}
	if err := m.tree.MoveWindow(w, active.ID(), target.ID()); err != nil {
		// The removal half is not rolled back: the window is now placed
		// nowhere and the maps must agree.
		m.logger.Warn("move window failed", "window", w.String(), "error", err)
		delete(m.frameOf, w.Key())
		return
	}
	m.frameOf[w.Key()] = target.ID()
	m.tree.SetActive(target.ID())
	if !m.positionWindow(w, target) {
		return
	}
	m.raiseActive(target)
}

func (m *Manager) handleCycle(delta int) {
	active := m.tree.Active()

	var dead []*winid.Identity
	live := func(w *winid.Identity) bool {
		if m.live(w) {
			return true
		}
		dead = append(dead, w)
		return false
	}

	var next *winid.Identity
	if delta >= 0 {
		next = active.Stack().CycleNext(live)
	} else {
		next = active.Stack().CyclePrev(live)
	}

	// Cycling dropped dead entries from the stack; drop them from the
	// maps as well so no window is present in exactly one place.
	for _, w := range dead {
		delete(m.capabilities, w.Key())
		delete(m.frameOf, w.Key())
	}

	if next != nil {
		m.raiseActive(active)
	}
}

func (m *Manager) handleShift(delta int) {
	m.tree.Active().Stack().Shift(delta)
}

// handleAssign registers the window's control capability and places it
// in the active frame. Failure at add time rolls the registration back
// so no orphaned capability entry remains.
func (m *Manager) handleAssign(w *winid.Identity, focus bool) {
	if w == nil || !w.Valid() {
		return
	}
	if _, placed := m.frameOf[w.Key()]; placed {
		return
	}

	prev, hadPrev := m.capabilities[w.Key()]
	m.capabilities[w.Key()] = w.Handle()

	active := m.tree.Active()
	if err := m.tree.AddWindow(active.ID(), w, focus); err != nil {
		if hadPrev {
			m.capabilities[w.Key()] = prev
		} else {
			delete(m.capabilities, w.Key())
		}
		m.logger.Warn("assign window failed", "window", w.String(), "error", err)
		return
	}
	m.frameOf[w.Key()] = active.ID()

	if !m.positionWindow(w, active) {
		return
	}
	if focus {
		m.raiseActive(active)
	}
}

// handleDisappeared clears a closed window out of the layout. A window
// with no frame mapping was never placed (floating): only its
// capability entry is dropped.
func (m *Manager) handleDisappeared(w *winid.Identity) {
	if w == nil {
		return
	}
	fid, placed := m.frameOf[w.Key()]
	delete(m.capabilities, w.Key())
	delete(m.frameOf, w.Key())
	if !placed {
		return
	}

	f, ok := m.tree.Get(fid)
	if !ok {
		return
	}
	wasActive := f.Stack().Active() != nil && f.Stack().Active().Equal(w)
	if err := f.Stack().Remove(w); err != nil {
		return
	}

	if wasActive && m.refocus == RefocusRaise {
		m.raiseActive(f)
	}
}

func (m *Manager) handleFocus(w *winid.Identity) {
	if w == nil {
		return
	}
	fid, ok := m.frameOf[w.Key()]
	if !ok {
		return
	}
	f, ok := m.tree.Get(fid)
	if !ok {
		return
	}
	f.Stack().Activate(w)
	m.tree.SetActive(fid)
}

func (m *Manager) handleRefreshHandle(w *winid.Identity) {
	if w == nil {
		return
	}
	if _, ok := m.capabilities[w.Key()]; ok {
		m.capabilities[w.Key()] = w.Handle()
	}
}

func (m *Manager) snapshot() Snapshot {
	snap := Snapshot{ActiveFrame: uint32(m.tree.Active().ID())}
	for _, leaf := range m.tree.Leaves() {
		fs := FrameStatus{
			ID:     uint32(leaf.ID()),
			Bounds: leaf.Bounds(),
			Split:  leaf.Split().String(),
			Active: leaf.Active(),
		}
		activeWin := leaf.Stack().Active()
		for _, w := range leaf.Stack().All() {
			ws := WindowStatus{
				Key:    w.Key().String(),
				PID:    w.PID(),
				Active: activeWin != nil && activeWin.Equal(w),
			}
			if n, ok := w.Number(); ok {
				ws.Number = n
			}
			fs.Windows = append(fs.Windows, ws)
		}
		snap.Frames = append(snap.Frames, fs)
	}
	return snap
}

// live reports whether a window still answers control queries.
func (m *Manager) live(w *winid.Identity) bool {
	return w.Valid() && m.resolver.IsLive(w.Handle())
}

func (m *Manager) windowRect(f *frame.Frame) geometry.Rect {
	r := f.ContentBounds()
	if m.gap > 0 {
		r = geometry.Inset(r, m.gap)
	}
	return r
}

// positionLeaf moves every window in the leaf to its content rectangle
// and returns the keys of windows whose capability turned out missing.
func (m *Manager) positionLeaf(f *frame.Frame) []uuid.UUID {
	var missing []uuid.UUID
	rect := m.windowRect(f)
	for _, w := range f.Stack().All() {
		h, ok := m.capabilities[w.Key()]
		if !ok {
			continue
		}
		if err := m.control.MoveResize(h, rect); err != nil {
			m.logger.Warn("position window failed", "window", w.String(), "error", err)
			missing = append(missing, w.Key())
		}
	}
	return missing
}

// positionWindow places one window, reconciling it away on failure.
// Reports whether the window is still present afterwards.
func (m *Manager) positionWindow(w *winid.Identity, f *frame.Frame) bool {
	h, ok := m.capabilities[w.Key()]
	if !ok {
		return false
	}
	if err := m.control.MoveResize(h, m.windowRect(f)); err != nil {
		m.logger.Warn("position window failed", "window", w.String(), "error", err)
		m.reconcileByKey(w.Key())
		return false
	}
	return true
}

// raiseActive raises the frame's active window after the settle delay.
func (m *Manager) raiseActive(f *frame.Frame) {
	w := f.Stack().Active()
	if w == nil {
		return
	}
	h, ok := m.capabilities[w.Key()]
	if !ok {
		return
	}
	if m.settleDelay > 0 {
		time.Sleep(m.settleDelay)
	}
	if err := m.control.Raise(h); err != nil {
		m.logger.Warn("raise window failed", "window", w.String(), "error", err)
		m.reconcileByKey(w.Key())
	}
}

// reconcileByKey is the self-healing path: an operation found a window
// whose control capability no longer resolves, so the window leaves its
// frame and both maps immediately instead of waiting for the tracker to
// report the closure.
func (m *Manager) reconcileByKey(key uuid.UUID) {
	fid, placed := m.frameOf[key]
	delete(m.capabilities, key)
	delete(m.frameOf, key)
	if !placed {
		return
	}
	f, ok := m.tree.Get(fid)
	if !ok {
		return
	}
	for _, w := range f.Stack().All() {
		if w.Key() == key {
			if err := f.Stack().Remove(w); err != nil && !errors.Is(err, frame.ErrWindowNotFound) {
				m.logger.Warn("reconcile remove failed", "window", w.String(), "error", err)
			}
			break
		}
	}
	m.logger.Info("reconciled missing window", "key", key.String(), "frame", uint32(fid))
}

// String implements fmt.Stringer for log lines.
func (m *Manager) String() string {
	return fmt.Sprintf("manager(frames=%d)", m.tree.Len())
}
