package geometry

// Rect represents a window position and size in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// IsZero reports whether the rect has no area.
func (r Rect) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// ContainsPoint reports whether the point (x, y) lies inside the rect.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Center returns the center point of the rect.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// TitleRect returns the title-bar strip at the top of a frame rect.
// A non-positive titleHeight yields an empty strip at the frame origin.
func TitleRect(frame Rect, titleHeight int) Rect {
	if titleHeight < 0 {
		titleHeight = 0
	}
	if titleHeight > frame.Height {
		titleHeight = frame.Height
	}
	return Rect{
		X:      frame.X,
		Y:      frame.Y,
		Width:  frame.Width,
		Height: titleHeight,
	}
}

// ContentRect returns the portion of a frame rect below the title bar,
// i.e. the area a window placed in the frame should occupy.
func ContentRect(frame Rect, titleHeight int) Rect {
	title := TitleRect(frame, titleHeight)
	return Rect{
		X:      frame.X,
		Y:      frame.Y + title.Height,
		Width:  frame.Width,
		Height: frame.Height - title.Height,
	}
}

// SplitHorizontal cuts a rect along a horizontal line into a top half and a
// bottom half. The top half absorbs any odd pixel.
func SplitHorizontal(r Rect) (top, bottom Rect) {
	bottomHeight := r.Height / 2
	topHeight := r.Height - bottomHeight

	top = Rect{X: r.X, Y: r.Y, Width: r.Width, Height: topHeight}
	bottom = Rect{X: r.X, Y: r.Y + topHeight, Width: r.Width, Height: bottomHeight}
	return top, bottom
}

// SplitVertical cuts a rect along a vertical line into a left half and a
// right half. The left half absorbs any odd pixel.
func SplitVertical(r Rect) (left, right Rect) {
	rightWidth := r.Width / 2
	leftWidth := r.Width - rightWidth

	left = Rect{X: r.X, Y: r.Y, Width: leftWidth, Height: r.Height}
	right = Rect{X: r.X + leftWidth, Y: r.Y, Width: rightWidth, Height: r.Height}
	return left, right
}

// Inset shrinks a rect by gap pixels on every side, clamping to a minimum
// of 1x1 so a degenerate gap never produces a negative geometry.
func Inset(r Rect, gap int) Rect {
	if gap <= 0 {
		return r
	}
	out := Rect{
		X:      r.X + gap,
		Y:      r.Y + gap,
		Width:  r.Width - 2*gap,
		Height: r.Height - 2*gap,
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}
