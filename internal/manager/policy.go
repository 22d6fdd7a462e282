package manager

import "fmt"

// RefocusPolicy decides what happens when the focused window disappears
// from a frame that still holds other windows.
type RefocusPolicy int

const (
	// RefocusRaise raises the frame's new active window.
	RefocusRaise RefocusPolicy = iota
	// RefocusNone leaves focus wherever the window system put it.
	RefocusNone
)

func (p RefocusPolicy) String() string {
	switch p {
	case RefocusRaise:
		return "raise"
	case RefocusNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseRefocusPolicy parses the config spelling of a refocus policy.
func ParseRefocusPolicy(s string) (RefocusPolicy, error) {
	switch s {
	case "", "raise":
		return RefocusRaise, nil
	case "none":
		return RefocusNone, nil
	default:
		return RefocusRaise, fmt.Errorf("unknown refocus policy %q (want raise or none)", s)
	}
}
