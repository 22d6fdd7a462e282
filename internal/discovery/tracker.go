package discovery

import (
	"log/slog"
	"sync"

	"github.com/1broseidon/framewm/internal/winid"
)

// Tracker owns the set of windows currently known, keyed by confirmed
// window number under one lock. It is the sole place where the observer's
// and the poller's double reporting is absorbed: a window is reported
// opened at most once between open and close, no matter how many times or
// through which transient handles it is observed.
type Tracker struct {
	registry *winid.Registry
	logger   *slog.Logger
	events   chan Event

	mu    sync.Mutex
	known map[uint32]*winid.Identity
}

const trackerBuffer = 64

// NewTracker creates a tracker feeding the given registry.
func NewTracker(registry *winid.Registry, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		registry: registry,
		logger:   logger,
		events:   make(chan Event, trackerBuffer),
		known:    make(map[uint32]*winid.Identity),
	}
}

// Events returns the deduplicated discovery stream.
func (t *Tracker) Events() <-chan Event {
	return t.events
}

// HandleWindowCreated processes one window observation from either
// producer. Unresolvable or unconfirmed observations are dropped; the
// poller will re-observe the window once it has a confirmed number.
func (t *Tracker) HandleWindowCreated(h winid.Handle) {
	id := t.registry.GetOrRegister(h)
	if id == nil {
		return
	}
	number, ok := id.Number()
	if !ok {
		t.logger.Debug("window not yet confirmed, deferring", "identity", id.String())
		return
	}

	t.mu.Lock()
	if _, tracked := t.known[number]; tracked {
		// Silent dedup: the other producer got here first.
		t.mu.Unlock()
		return
	}
	t.known[number] = id
	t.mu.Unlock()

	t.events <- Event{Kind: WindowOpened, Window: id}
}

// HandleWindowClosed removes a window from the tracked set and emits a
// closed event, but only if it was actually tracked. Close notifications
// may arrive with a different transient handle than the one seen at
// creation, or with only the window number; either is enough.
func (t *Tracker) HandleWindowClosed(h winid.Handle, number uint32) {
	if number == 0 {
		id, ok := t.registry.Lookup(h)
		if !ok {
			return
		}
		if number, ok = id.Number(); !ok {
			return
		}
	}

	t.mu.Lock()
	id, tracked := t.known[number]
	if tracked {
		delete(t.known, number)
	}
	t.mu.Unlock()

	if !tracked {
		return
	}
	t.registry.Unregister(id)
	t.events <- Event{Kind: WindowClosed, Window: id}
}

// HandleWindowFocused emits a focus event for a tracked window. Focus
// reports for untracked windows are dropped: they usually carry a stale
// reference and must not propagate.
func (t *Tracker) HandleWindowFocused(h winid.Handle) {
	id := t.registry.GetOrRegister(h)
	if id == nil {
		return
	}
	number, ok := id.Number()
	if !ok {
		return
	}

	t.mu.Lock()
	tracked, isTracked := t.known[number]
	t.mu.Unlock()

	if !isTracked {
		t.logger.Debug("dropping focus event for untracked window", "number", number)
		return
	}
	t.events <- Event{Kind: FocusChanged, Window: tracked}
}

// Tracked reports whether a confirmed window number is currently known.
func (t *Tracker) Tracked(number uint32) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.known[number]
	return ok
}

// Known returns a snapshot of the tracked identities.
func (t *Tracker) Known() []*winid.Identity {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*winid.Identity, 0, len(t.known))
	for _, id := range t.known {
		out = append(out, id)
	}
	return out
}
