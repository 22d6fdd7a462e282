package platform

import (
	"github.com/1broseidon/framewm/internal/geometry"
	"github.com/1broseidon/framewm/internal/winid"
)

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds geometry.Rect
	Usable geometry.Rect
}

// WindowInfo is one observation of a top-level window. The Handle is a
// fresh token minted for this observation; two observations of the same
// window carry different handles and are reconciled by the identity
// registry, keyed on Number and PID.
type WindowInfo struct {
	Handle  winid.Handle
	Number  uint32
	PID     int
	AppID   string
	Title   string
	Bounds  geometry.Rect
	Desktop int
}

// OnDesktop reports whether a window pinned to winDesktop is eligible
// for tiling on the current desktop. Sticky windows (desktop -1, shown
// everywhere by the window system) belong to no space and are excluded,
// as are windows whose desktop could not be determined.
func OnDesktop(winDesktop, current int) bool {
	return winDesktop >= 0 && winDesktop == current
}

// EventKind classifies a backend event.
type EventKind int

const (
	// EventWindowMapped fires when a top-level window becomes viewable.
	EventWindowMapped EventKind = iota
	// EventWindowDestroyed fires when a top-level window is destroyed.
	EventWindowDestroyed
	// EventWindowFocused fires when the focused window changes.
	EventWindowFocused
	// EventSpaceChanged fires when the current virtual desktop changes.
	EventSpaceChanged
)

func (k EventKind) String() string {
	switch k {
	case EventWindowMapped:
		return "window_mapped"
	case EventWindowDestroyed:
		return "window_destroyed"
	case EventWindowFocused:
		return "window_focused"
	case EventSpaceChanged:
		return "space_changed"
	default:
		return "unknown"
	}
}

// Event is one window-system notification. Handle is set for mapped and
// focused events; Number is set whenever the system window number is
// known; Space is set for space changes.
type Event struct {
	Kind   EventKind
	Handle winid.Handle
	Number uint32
	Space  int
}

// WindowControl performs per-window operations. All methods take the
// registry's handle tokens, not raw system window numbers.
type WindowControl interface {
	MoveResize(h winid.Handle, bounds geometry.Rect) error
	Raise(h winid.Handle) error
	CloseWindow(h winid.Handle) error
}

// Enumerator lists the windows eligible for tiling.
type Enumerator interface {
	// ListWindows returns the normal, visible windows on the current
	// desktop, each under a freshly minted handle.
	ListWindows() ([]WindowInfo, error)
	// Frontmost returns a handle for the focused window, or ok=false
	// when no eligible window has focus.
	Frontmost() (winid.Handle, bool, error)
}

// SpaceSource exposes the virtual desktop dimension.
type SpaceSource interface {
	CurrentSpace() (int, error)
	SpaceCount() (int, error)
	MoveToSpace(h winid.Handle, space int) error
}

// Backend is the full window-system surface the daemon runs against. It
// also acts as the identity registry's resolver, answering PID, window
// number and liveness queries for handle tokens.
type Backend interface {
	winid.Resolver
	WindowControl
	Enumerator
	SpaceSource

	// ActiveDisplay returns the display whose usable area becomes the
	// root frame's bounds.
	ActiveDisplay() (Display, error)
	// Events returns the stream of window-system notifications. The
	// channel closes when the backend shuts down.
	Events() <-chan Event
}
