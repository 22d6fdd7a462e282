package geometry

import "testing"

func TestSplitHorizontal_HalvesHeight(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

	top, bottom := SplitHorizontal(r)
	if top.Width != 1920 || top.Height != 540 {
		t.Fatalf("expected top 1920x540, got %dx%d", top.Width, top.Height)
	}
	if bottom.Width != 1920 || bottom.Height != 540 {
		t.Fatalf("expected bottom 1920x540, got %dx%d", bottom.Width, bottom.Height)
	}
	if bottom.Y != 540 {
		t.Fatalf("expected bottom.Y=540, got %d", bottom.Y)
	}
}

func TestSplitHorizontal_OddPixelGoesToTop(t *testing.T) {
	top, bottom := SplitHorizontal(Rect{Width: 100, Height: 101})
	if top.Height != 51 || bottom.Height != 50 {
		t.Fatalf("expected 51/50, got %d/%d", top.Height, bottom.Height)
	}
	if top.Height+bottom.Height != 101 {
		t.Fatalf("halves must cover the original height")
	}
}

func TestSplitVertical_HalvesWidth(t *testing.T) {
	r := Rect{X: 0, Y: 540, Width: 1920, Height: 540}

	left, right := SplitVertical(r)
	if left.Width != 960 || right.Width != 960 {
		t.Fatalf("expected 960/960, got %d/%d", left.Width, right.Width)
	}
	if right.X != 960 || right.Y != 540 {
		t.Fatalf("expected right at (960,540), got (%d,%d)", right.X, right.Y)
	}
}

func TestContentRect_SubtractsTitleBar(t *testing.T) {
	frame := Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

	content := ContentRect(frame, 28)
	if content.Y != 28 || content.Height != 1052 {
		t.Fatalf("expected content Y=28 H=1052, got Y=%d H=%d", content.Y, content.Height)
	}

	title := TitleRect(frame, 28)
	if title.Height != 28 || title.Width != 1920 {
		t.Fatalf("expected title 1920x28, got %dx%d", title.Width, title.Height)
	}
}

func TestContentRect_ClampsOversizedTitleBar(t *testing.T) {
	frame := Rect{Width: 100, Height: 20}
	content := ContentRect(frame, 50)
	if content.Height != 0 {
		t.Fatalf("expected empty content, got height %d", content.Height)
	}
}

func TestInset_ClampsToMinimumSize(t *testing.T) {
	r := Inset(Rect{Width: 10, Height: 10}, 20)
	if r.Width != 1 || r.Height != 1 {
		t.Fatalf("expected 1x1, got %dx%d", r.Width, r.Height)
	}
}

func TestContainsPoint(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 10, Height: 10}
	if !r.ContainsPoint(10, 10) {
		t.Fatalf("origin should be inside")
	}
	if r.ContainsPoint(20, 20) {
		t.Fatalf("far edge is exclusive")
	}
}
