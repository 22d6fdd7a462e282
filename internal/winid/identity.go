package winid

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Handle is an opaque transient reference to an on-screen window, minted by
// the platform backend per observation. Two observations of the same real
// window may carry different handles; handles are never safe to retain as
// identity keys.
type Handle uint64

// NoHandle is the zero handle, meaning "no transient reference known".
const NoHandle Handle = 0

// Resolver answers questions about transient handles. Implemented by the
// platform backend; every method fails soft with ok=false when the handle
// no longer resolves.
type Resolver interface {
	// PID returns the owning process id for a handle.
	PID(h Handle) (int, bool)
	// WindowNumber returns the confirmed window-server number for a handle.
	WindowNumber(h Handle) (uint32, bool)
	// IsLive reports whether the handle still refers to a live window.
	IsLive(h Handle) bool
}

// Identity is the stable logical handle for one real window, decoupled from
// any transient reference. It starts ephemeral (no confirmed window number)
// and may transition exactly once to permanent; it never reverts.
type Identity struct {
	key uuid.UUID
	pid int

	mu        sync.RWMutex
	number    uint32
	confirmed bool
	handle    Handle
	invalid   bool
}

func newIdentity(pid int, h Handle) *Identity {
	return &Identity{
		key:    uuid.New(),
		pid:    pid,
		handle: h,
	}
}

// Key returns the process-unique identifier used for equality and map keys.
func (w *Identity) Key() uuid.UUID {
	return w.key
}

// PID returns the owning application process id, assigned at creation.
func (w *Identity) PID() int {
	return w.pid
}

// Number returns the confirmed window-server number, if the identity is
// permanent.
func (w *Identity) Number() (uint32, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.number, w.confirmed
}

// Permanent reports whether the identity has been confirmed.
func (w *Identity) Permanent() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.confirmed
}

// Handle returns the most recently recorded transient handle.
func (w *Identity) Handle() Handle {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.handle
}

// Valid reports whether the identity still refers to a window believed open.
func (w *Identity) Valid() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.invalid
}

// Equal reports identity equality. Identities compare by key, never by the
// confirmed number, which may be absent on one side.
func (w *Identity) Equal(other *Identity) bool {
	if w == nil || other == nil {
		return w == other
	}
	return w.key == other.key
}

func (w *Identity) String() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.confirmed {
		return fmt.Sprintf("window(pid=%d num=%d)", w.pid, w.number)
	}
	return fmt.Sprintf("window(pid=%d ephemeral)", w.pid)
}

// confirm upgrades the identity in place. The upgrade happens at most once;
// later calls with a different number are ignored.
func (w *Identity) confirm(number uint32) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.confirmed {
		return false
	}
	w.number = number
	w.confirmed = true
	return true
}

func (w *Identity) setHandle(h Handle) {
	w.mu.Lock()
	w.handle = h
	w.mu.Unlock()
}

func (w *Identity) invalidate() {
	w.mu.Lock()
	w.invalid = true
	w.mu.Unlock()
}
