package frame

// Direction is a spatial navigation direction.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// Navigate finds the frame adjacent to the given one in a direction, by
// walking up through parent links. At each ancestor the walk checks whether
// the originating subtree sits on the matching side of the matching split;
// on a match it crosses into the sibling subtree and descends to its first
// leaf. Reaching the tree boundary yields (nil, false), not an error.
func (t *Tree) Navigate(from ID, dir Direction) (*Frame, bool) {
	cur, ok := t.nodes[from]
	if !ok {
		return nil, false
	}

	for cur.parent != None {
		parent, ok := t.nodes[cur.parent]
		if !ok {
			return nil, false
		}
		idx := parent.childIndex(cur.id)
		if idx < 0 {
			return nil, false
		}

		if directionMatches(parent.split, idx, dir) {
			leaf := t.FirstLeaf(parent.children[1-idx])
			if leaf == nil {
				return nil, false
			}
			return leaf, true
		}
		cur = parent
	}
	return nil, false
}

// directionMatches reports whether moving dir from child position idx under
// a parent with the given split crosses to the sibling. Moving left
// requires a vertical split with the origin on the right; up requires a
// horizontal split with the origin on the bottom; and so on.
func directionMatches(split SplitDirection, idx int, dir Direction) bool {
	switch dir {
	case Left:
		return split == SplitVertical && idx == 1
	case Right:
		return split == SplitVertical && idx == 0
	case Up:
		return split == SplitHorizontal && idx == 1
	case Down:
		return split == SplitHorizontal && idx == 0
	default:
		return false
	}
}
