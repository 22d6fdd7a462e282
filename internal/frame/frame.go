package frame

import (
	"log/slog"

	"github.com/1broseidon/framewm/internal/geometry"
	"github.com/1broseidon/framewm/internal/winid"
)

// ID is a stable handle addressing one frame in the tree's arena. The zero
// value means "no frame".
type ID uint32

// None is the absent frame handle.
const None ID = 0

// SplitDirection is the orientation of an internal node's cut line.
type SplitDirection int

const (
	// SplitNone marks a leaf.
	SplitNone SplitDirection = iota
	// SplitHorizontal stacks the children top/bottom.
	SplitHorizontal
	// SplitVertical places the children left/right.
	SplitVertical
)

func (d SplitDirection) String() string {
	switch d {
	case SplitHorizontal:
		return "horizontal"
	case SplitVertical:
		return "vertical"
	default:
		return "none"
	}
}

// Frame is one node of the binary layout tree: a rectangular region of
// screen space, either a leaf holding windows or an internal node with
// exactly two children and a split orientation. Frames live in the tree's
// arena; parent and children are stored as IDs so the graph has no
// ownership cycle.
type Frame struct {
	id          ID
	parent      ID
	children    [2]ID
	split       SplitDirection
	bounds      geometry.Rect
	titleHeight int
	active      bool
	stack       WindowStack
}

// ID returns the frame's arena handle.
func (f *Frame) ID() ID { return f.id }

// Parent returns the parent handle (None for the root).
func (f *Frame) Parent() ID { return f.parent }

// Children returns the child handle pair (both None for a leaf).
func (f *Frame) Children() [2]ID { return f.children }

// Split returns the split orientation (SplitNone for a leaf).
func (f *Frame) Split() SplitDirection { return f.split }

// Bounds returns the frame's screen rectangle.
func (f *Frame) Bounds() geometry.Rect { return f.bounds }

// ContentBounds returns the rectangle a window in this frame occupies,
// below the title bar.
func (f *Frame) ContentBounds() geometry.Rect {
	return geometry.ContentRect(f.bounds, f.titleHeight)
}

// TitleBounds returns the title-bar strip of the frame.
func (f *Frame) TitleBounds() geometry.Rect {
	return geometry.TitleRect(f.bounds, f.titleHeight)
}

// IsLeaf reports whether the frame holds windows rather than children.
func (f *Frame) IsLeaf() bool { return f.split == SplitNone }

// Active reports whether this is the tree's active frame.
func (f *Frame) Active() bool { return f.active }

// Stack returns the frame's window stack. Only meaningful for leaves.
func (f *Frame) Stack() *WindowStack { return &f.stack }

func (f *Frame) childIndex(id ID) int {
	for i, c := range f.children {
		if c != None && c == id {
			return i
		}
	}
	return -1
}

// Tree is the arena of frames for one desktop space. It owns the root and
// the active-frame pointer. The tree is not goroutine-safe: all access is
// confined to the frame manager's command-drain goroutine.
type Tree struct {
	nodes  map[ID]*Frame
	nextID ID
	root   ID
	active ID
	logger *slog.Logger
}

// NewTree creates a tree with a single root leaf covering bounds.
func NewTree(bounds geometry.Rect, titleHeight int, logger *slog.Logger) *Tree {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tree{
		nodes:  make(map[ID]*Frame),
		logger: logger,
	}
	root := t.alloc(None, bounds, titleHeight)
	t.root = root.id
	t.setActive(root.id)
	return t
}

// Root returns the root frame.
func (t *Tree) Root() *Frame { return t.nodes[t.root] }

// Active returns the active frame. It always resolves: the tree keeps the
// pointer valid through every mutation.
func (t *Tree) Active() *Frame { return t.nodes[t.active] }

// Get returns a frame by handle.
func (t *Tree) Get(id ID) (*Frame, bool) {
	f, ok := t.nodes[id]
	return f, ok
}

// Len returns the number of frames in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// SetActive moves the active pointer to the given frame.
func (t *Tree) SetActive(id ID) error {
	if _, ok := t.nodes[id]; !ok {
		return ErrFrameNotFound
	}
	t.setActive(id)
	return nil
}

// Split divides a leaf frame into two children. All of the frame's windows
// transfer to the first child, which becomes the active frame; the second
// child starts empty. Returns the first child.
func (t *Tree) Split(id ID, dir SplitDirection) (*Frame, error) {
	f, ok := t.nodes[id]
	if !ok {
		return nil, ErrFrameNotFound
	}
	if !f.IsLeaf() {
		return nil, ErrCannotSplitNonLeaf
	}
	if dir != SplitHorizontal && dir != SplitVertical {
		return nil, ErrCannotSplitNonLeaf
	}

	var firstRect, secondRect geometry.Rect
	if dir == SplitHorizontal {
		firstRect, secondRect = geometry.SplitHorizontal(f.bounds)
	} else {
		firstRect, secondRect = geometry.SplitVertical(f.bounds)
	}

	first := t.alloc(f.id, firstRect, f.titleHeight)
	second := t.alloc(f.id, secondRect, f.titleHeight)

	// The split frame stops showing windows of its own: everything moves
	// into the first child.
	first.stack = f.stack
	f.stack = WindowStack{}
	f.split = dir
	f.children = [2]ID{first.id, second.id}

	if t.active == f.id || f.active {
		f.active = false
	}
	t.setActive(first.id)
	return first, nil
}

// Close removes a non-root frame, consolidating its windows (and its
// sibling's) back into the parent, which becomes a leaf again and the
// active frame. A parent with an unexpected child count is repaired by
// pulling windows from every child, so the tree always returns to a
// valid leaf state.
func (t *Tree) Close(id ID) (*Frame, error) {
	f, ok := t.nodes[id]
	if !ok {
		return nil, ErrFrameNotFound
	}
	if f.parent == None {
		return nil, ErrCannotCloseRoot
	}
	parent, ok := t.nodes[f.parent]
	if !ok {
		return nil, ErrFrameNotInParent
	}
	if parent.childIndex(f.id) < 0 {
		return nil, ErrFrameNotInParent
	}

	children := t.resolveChildren(parent)
	if len(children) != 2 {
		t.logger.Warn("frame tree corruption detected, consolidating",
			"parent", parent.id,
			"children", len(children))
	}

	// Pull the closing frame's windows first so its active window stays
	// active in the parent, then everything the siblings held.
	t.absorbWindows(parent, f)
	for _, child := range children {
		if child.id == f.id {
			continue
		}
		t.collectSubtreeWindows(parent, child)
	}

	for _, child := range children {
		t.freeSubtree(child.id)
	}
	parent.children = [2]ID{None, None}
	parent.split = SplitNone
	t.setActive(parent.id)
	return parent, nil
}

// AddWindow places a window in a frame's stack.
func (t *Tree) AddWindow(id ID, w *winid.Identity, focus bool) error {
	f, ok := t.nodes[id]
	if !ok {
		return ErrFrameNotFound
	}
	return f.stack.Add(w, focus)
}

// RemoveWindow takes a window out of a frame's stack.
func (t *Tree) RemoveWindow(id ID, w *winid.Identity) error {
	f, ok := t.nodes[id]
	if !ok {
		return ErrFrameNotFound
	}
	return f.stack.Remove(w)
}

// MoveWindow transfers a window between two frames' stacks. The removal is
// not rolled back when the add fails: callers must treat this as a
// non-reversible transfer attempt.
func (t *Tree) MoveWindow(w *winid.Identity, from, to ID) error {
	src, ok := t.nodes[from]
	if !ok {
		return ErrFrameNotFound
	}
	dst, ok := t.nodes[to]
	if !ok {
		return ErrFrameNotFound
	}
	if err := src.stack.Remove(w); err != nil {
		return err
	}
	return dst.stack.Add(w, true)
}

// FirstLeaf descends from a frame to its first leaf, always choosing the
// first child.
func (t *Tree) FirstLeaf(id ID) *Frame {
	f, ok := t.nodes[id]
	if !ok {
		return nil
	}
	for !f.IsLeaf() {
		next, ok := t.nodes[f.children[0]]
		if !ok {
			// Broken child link: treat this node as the stopping point.
			return f
		}
		f = next
	}
	return f
}

// Leaves returns all leaf frames in the tree, first-child order.
func (t *Tree) Leaves() []*Frame {
	var out []*Frame
	t.walkLeaves(t.root, &out)
	return out
}

// FrameOf returns the leaf currently holding the window, if any.
func (t *Tree) FrameOf(w *winid.Identity) (*Frame, bool) {
	for _, leaf := range t.Leaves() {
		if leaf.stack.Contains(w) {
			return leaf, true
		}
	}
	return nil, false
}

func (t *Tree) walkLeaves(id ID, out *[]*Frame) {
	f, ok := t.nodes[id]
	if !ok {
		return
	}
	if f.IsLeaf() {
		*out = append(*out, f)
		return
	}
	t.walkLeaves(f.children[0], out)
	t.walkLeaves(f.children[1], out)
}

func (t *Tree) alloc(parent ID, bounds geometry.Rect, titleHeight int) *Frame {
	t.nextID++
	f := &Frame{
		id:          t.nextID,
		parent:      parent,
		bounds:      bounds,
		titleHeight: titleHeight,
	}
	t.nodes[f.id] = f
	return f
}

func (t *Tree) setActive(id ID) {
	if prev, ok := t.nodes[t.active]; ok {
		prev.active = false
	}
	t.active = id
	if f, ok := t.nodes[id]; ok {
		f.active = true
	}
}

// resolveChildren returns the parent's children that actually exist in the
// arena. A count other than two signals corruption handled by Close.
func (t *Tree) resolveChildren(parent *Frame) []*Frame {
	var out []*Frame
	for _, c := range parent.children {
		if c == None {
			continue
		}
		if child, ok := t.nodes[c]; ok {
			out = append(out, child)
		}
	}
	return out
}

func (t *Tree) absorbWindows(dst, src *Frame) {
	for _, w := range src.stack.All() {
		// Duplicates cannot normally occur across frames; if consolidation
		// meets one anyway, keeping the first copy is the safe outcome.
		_ = dst.stack.Add(w, false)
	}
	src.stack = WindowStack{}
}

// collectSubtreeWindows pulls windows from an entire subtree into dst. On
// the recovery path a child may itself be split; its leaves' windows must
// not be lost.
func (t *Tree) collectSubtreeWindows(dst, node *Frame) {
	if node.IsLeaf() {
		t.absorbWindows(dst, node)
		return
	}
	for _, c := range node.children {
		if child, ok := t.nodes[c]; ok {
			t.collectSubtreeWindows(dst, child)
		}
	}
}

func (t *Tree) freeSubtree(id ID) {
	f, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, c := range f.children {
		if c != None {
			t.freeSubtree(c)
		}
	}
	delete(t.nodes, id)
}
