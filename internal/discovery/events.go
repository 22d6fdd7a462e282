package discovery

import "github.com/1broseidon/framewm/internal/winid"

// EventKind classifies a discovery event.
type EventKind int

const (
	// WindowOpened reports a newly tracked window. Emitted at most once
	// per window between open and close.
	WindowOpened EventKind = iota
	// WindowClosed reports a tracked window that is gone.
	WindowClosed
	// FocusChanged reports that a tracked window took focus.
	FocusChanged
)

func (k EventKind) String() string {
	switch k {
	case WindowOpened:
		return "opened"
	case WindowClosed:
		return "closed"
	case FocusChanged:
		return "focus"
	default:
		return "unknown"
	}
}

// Event is one deduplicated discovery notification, carrying the stable
// window identity rather than any transient handle.
type Event struct {
	Kind   EventKind
	Window *winid.Identity
}
