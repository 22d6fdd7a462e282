package manager

import (
	"github.com/1broseidon/framewm/internal/frame"
	"github.com/1broseidon/framewm/internal/geometry"
	"github.com/1broseidon/framewm/internal/winid"
)

type commandKind int

const (
	cmdSplit commandKind = iota
	cmdCloseFrame
	cmdNavigate
	cmdMoveWindow
	cmdCycle
	cmdShift
	cmdAssign
	cmdDisappeared
	cmdFocus
	cmdRefreshHandle
	cmdSnapshot
)

// command is one unit of serialized work. Every user-facing operation
// and every discovery event becomes a command value; the drain goroutine
// processes them strictly one at a time, so the tree is never observed
// mid-mutation.
type command struct {
	kind   commandKind
	split  frame.SplitDirection
	dir    frame.Direction
	delta  int
	window *winid.Identity
	focus  bool
	reply  chan Snapshot
}

// WindowStatus describes one window for the status surface.
type WindowStatus struct {
	Key    string `json:"key"`
	Number uint32 `json:"number"`
	PID    int    `json:"pid"`
	Active bool   `json:"active"`
}

// FrameStatus describes one frame for the status surface.
type FrameStatus struct {
	ID      uint32         `json:"id"`
	Bounds  geometry.Rect  `json:"bounds"`
	Split   string         `json:"split"`
	Active  bool           `json:"active"`
	Windows []WindowStatus `json:"windows,omitempty"`
}

// Snapshot is a point-in-time view of the layout, taken inside the
// command queue so it is always consistent.
type Snapshot struct {
	ActiveFrame uint32        `json:"active_frame"`
	Frames      []FrameStatus `json:"frames"`
}
