package frame

import "github.com/1broseidon/framewm/internal/winid"

// WindowStack is the ordered list of window identities owned by one leaf
// frame, with a single active index. The active index is always a valid
// index into the sequence, or 0 when the stack is empty.
type WindowStack struct {
	windows []*winid.Identity
	active  int
}

// Len returns the number of windows in the stack.
func (s *WindowStack) Len() int {
	return len(s.windows)
}

// Active returns the active window, or nil for an empty stack.
func (s *WindowStack) Active() *winid.Identity {
	if len(s.windows) == 0 {
		return nil
	}
	return s.windows[s.active]
}

// ActiveIndex returns the current active index (0 when empty).
func (s *WindowStack) ActiveIndex() int {
	return s.active
}

// All returns the window identities in stack order.
func (s *WindowStack) All() []*winid.Identity {
	out := make([]*winid.Identity, len(s.windows))
	copy(out, s.windows)
	return out
}

// Contains reports whether the identity is in the stack.
func (s *WindowStack) Contains(id *winid.Identity) bool {
	return s.indexOf(id) >= 0
}

// Add appends a window to the stack. Duplicates are rejected with
// ErrDuplicateWindow. When focus is set the new window becomes active.
func (s *WindowStack) Add(id *winid.Identity, focus bool) error {
	if id == nil {
		return ErrWindowNotFound
	}
	if s.indexOf(id) >= 0 {
		return ErrDuplicateWindow
	}
	s.windows = append(s.windows, id)
	if focus || len(s.windows) == 1 {
		s.active = len(s.windows) - 1
	}
	return nil
}

// Activate makes the given window the active one, if present.
func (s *WindowStack) Activate(id *winid.Identity) bool {
	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.active = idx
	return true
}

// Remove deletes a window from the stack, keeping the active index valid.
func (s *WindowStack) Remove(id *winid.Identity) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return ErrWindowNotFound
	}
	s.removeAt(idx)
	return nil
}

// CycleNext advances the active index with wraparound. Entries whose window
// is no longer queryable per the live predicate are removed during cycling
// rather than selected. Returns the new active window (nil if empty).
func (s *WindowStack) CycleNext(live func(*winid.Identity) bool) *winid.Identity {
	return s.cycle(1, live)
}

// CyclePrev is CycleNext in the other direction.
func (s *WindowStack) CyclePrev(live func(*winid.Identity) bool) *winid.Identity {
	return s.cycle(-1, live)
}

// Shift moves the active window one position forward (+1) or backward (-1)
// in the stack order, wrapping at the edges. The shifted window stays
// active.
func (s *WindowStack) Shift(delta int) {
	n := len(s.windows)
	if n < 2 || delta == 0 {
		return
	}
	step := 1
	if delta < 0 {
		step = -1
	}
	target := ((s.active+step)%n + n) % n
	s.windows[s.active], s.windows[target] = s.windows[target], s.windows[s.active]
	s.active = target
}

func (s *WindowStack) cycle(step int, live func(*winid.Identity) bool) *winid.Identity {
	for len(s.windows) > 1 {
		n := len(s.windows)
		next := ((s.active+step)%n + n) % n
		candidate := s.windows[next]
		if live == nil || live(candidate) {
			s.active = next
			return candidate
		}
		// Dead entry: drop it instead of selecting it, then try again.
		s.removeAt(next)
	}
	return s.Active()
}

func (s *WindowStack) indexOf(id *winid.Identity) int {
	for i, w := range s.windows {
		if w.Equal(id) {
			return i
		}
	}
	return -1
}

func (s *WindowStack) removeAt(idx int) {
	s.windows = append(s.windows[:idx], s.windows[idx+1:]...)
	switch {
	case len(s.windows) == 0:
		s.active = 0
	case idx < s.active:
		s.active--
	case s.active >= len(s.windows):
		s.active = len(s.windows) - 1
	}
}
