package winid

import (
	"log/slog"
	"sync"
)

// EventKind classifies identity-change notifications.
type EventKind int

const (
	// EventUpgraded fires when an ephemeral identity gains its confirmed
	// window number.
	EventUpgraded EventKind = iota
	// EventHandleRefreshed fires when an identity's transient handle is
	// replaced by a newer one.
	EventHandleRefreshed
	// EventInvalidated fires when the registry determines the window has
	// closed.
	EventInvalidated
)

func (k EventKind) String() string {
	switch k {
	case EventUpgraded:
		return "upgraded"
	case EventHandleRefreshed:
		return "handle-refreshed"
	case EventInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Event describes one identity state change.
type Event struct {
	Kind     EventKind
	Identity *Identity
}

// ObserverFunc receives identity-change events. Observers are invoked after
// the registry releases its internal lock, so they may call back into the
// registry.
type ObserverFunc func(Event)

// Registry is the canonical mapping from transient window handles to stable
// logical window identities. Its sole job is to collapse N observations of
// the same real window into exactly one identity, using the confirmed
// window number as ground truth once available and the process id as a
// best-effort key before it is.
type Registry struct {
	resolver Resolver
	logger   *slog.Logger

	mu sync.Mutex
	// byNumber holds at most one permanent identity per confirmed number.
	byNumber map[uint32]*Identity
	// byHandle is additive: stale handle mappings are tolerated as harmless
	// orphans and only removed by Sweep.
	byHandle map[Handle]*Identity
	// ephemeral holds at most one unconfirmed identity per process id.
	ephemeral map[int]*Identity

	obsMu     sync.Mutex
	observers []ObserverFunc
}

// NewRegistry creates an empty registry backed by the given handle resolver.
func NewRegistry(resolver Resolver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		resolver:  resolver,
		logger:    logger,
		byNumber:  make(map[uint32]*Identity),
		byHandle:  make(map[Handle]*Identity),
		ephemeral: make(map[int]*Identity),
	}
}

// AddObserver registers a callback for identity-change events.
func (r *Registry) AddObserver(fn ObserverFunc) {
	r.obsMu.Lock()
	r.observers = append(r.observers, fn)
	r.obsMu.Unlock()
}

// GetOrRegister resolves a transient handle to its stable identity,
// creating one if needed. Returns nil when the handle cannot be resolved to
// an owning process; a single unresolvable window must not block others, so
// this is not an error.
func (r *Registry) GetOrRegister(h Handle) *Identity {
	identity, events := r.getOrRegister(h)
	r.notify(events)
	return identity
}

func (r *Registry) getOrRegister(h Handle) (*Identity, []Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byHandle[h]; ok {
		return existing, nil
	}

	pid, ok := r.resolver.PID(h)
	if !ok {
		r.logger.Debug("ignoring window observation with unresolvable pid", "handle", h)
		return nil, nil
	}
	number, hasNumber := r.resolver.WindowNumber(h)

	// Deduplication path: a different transient handle already resolved to
	// this exact window number.
	if hasNumber {
		if existing, ok := r.byNumber[number]; ok {
			r.byHandle[h] = existing
			existing.setHandle(h)
			return existing, []Event{{Kind: EventHandleRefreshed, Identity: existing}}
		}
	}

	// Upgrade path: an ephemeral identity is already waiting for this pid.
	if eph, ok := r.ephemeral[pid]; ok {
		if r.resolver.IsLive(eph.Handle()) {
			if hasNumber {
				eph.confirm(number)
				r.byNumber[number] = eph
				r.byHandle[h] = eph
				eph.setHandle(h)
				delete(r.ephemeral, pid)
				return eph, []Event{{Kind: EventUpgraded, Identity: eph}}
			}
			// Still no confirmed number: reuse the pending ephemeral so the
			// one-ephemeral-per-pid invariant holds.
			r.byHandle[h] = eph
			eph.setHandle(h)
			return eph, []Event{{Kind: EventHandleRefreshed, Identity: eph}}
		}
		// Stale ephemeral: its cached handle no longer resolves to a live
		// window. Abandon it rather than corrupt a new identity with a dead
		// reference.
		r.logger.Debug("abandoning stale ephemeral identity", "pid", pid)
		delete(r.ephemeral, pid)
		eph.invalidate()
	}

	id := newIdentity(pid, h)
	if hasNumber {
		id.confirm(number)
		r.byNumber[number] = id
	} else {
		r.ephemeral[pid] = id
	}
	r.byHandle[h] = id
	return id, nil
}

// Lookup returns the identity previously registered under the handle.
func (r *Registry) Lookup(h Handle) (*Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHandle[h]
	return id, ok
}

// LookupNumber returns the permanent identity holding a confirmed number.
func (r *Registry) LookupNumber(number uint32) (*Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byNumber[number]
	return id, ok
}

// UpdateHandle additively records a newer transient handle for an identity.
// Dependents caching handles observe the refresh via the observer channel.
func (r *Registry) UpdateHandle(id *Identity, h Handle) {
	if id == nil {
		return
	}
	r.mu.Lock()
	r.byHandle[h] = id
	id.setHandle(h)
	r.mu.Unlock()

	r.notify([]Event{{Kind: EventHandleRefreshed, Identity: id}})
}

// Unregister invalidates an identity once the window is known to be closed.
// Handle mappings are left in place (additive policy) and reclaimed by
// Sweep.
func (r *Registry) Unregister(id *Identity) {
	if id == nil {
		return
	}
	r.mu.Lock()
	if number, ok := id.Number(); ok {
		if r.byNumber[number] == id {
			delete(r.byNumber, number)
		}
	}
	if r.ephemeral[id.PID()] == id {
		delete(r.ephemeral, id.PID())
	}
	id.invalidate()
	r.mu.Unlock()

	r.notify([]Event{{Kind: EventInvalidated, Identity: id}})
}

// Sweep bounds the additive handle table by dropping mappings whose
// identity has since been invalidated, and abandons ephemeral identities
// whose cached handle no longer resolves. Intended to run on the discovery
// poll tick.
func (r *Registry) Sweep() {
	var events []Event

	r.mu.Lock()
	for h, id := range r.byHandle {
		if !id.Valid() {
			delete(r.byHandle, h)
		}
	}
	for pid, eph := range r.ephemeral {
		if !r.resolver.IsLive(eph.Handle()) {
			delete(r.ephemeral, pid)
			eph.invalidate()
			events = append(events, Event{Kind: EventInvalidated, Identity: eph})
		}
	}
	r.mu.Unlock()

	r.notify(events)
}

// Size returns the number of live handle mappings, for diagnostics.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHandle)
}

func (r *Registry) notify(events []Event) {
	if len(events) == 0 {
		return
	}
	r.obsMu.Lock()
	observers := make([]ObserverFunc, len(r.observers))
	copy(observers, r.observers)
	r.obsMu.Unlock()

	for _, ev := range events {
		for _, fn := range observers {
			fn(ev)
		}
	}
}
