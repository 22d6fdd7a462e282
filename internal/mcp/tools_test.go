package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/1broseidon/framewm/internal/geometry"
	"github.com/1broseidon/framewm/internal/ipc"
	"github.com/1broseidon/framewm/internal/manager"
)

// fakeDaemon records which IPC operations the tools invoked.
type fakeDaemon struct {
	calls  []string
	status *ipc.StatusData
	err    error
}

func (d *fakeDaemon) record(name string) error {
	d.calls = append(d.calls, name)
	return d.err
}

func (d *fakeDaemon) SplitHorizontal() error       { return d.record("split_h") }
func (d *fakeDaemon) SplitVertical() error         { return d.record("split_v") }
func (d *fakeDaemon) CloseFrame() error            { return d.record("close") }
func (d *fakeDaemon) Navigate(dir string) error    { return d.record("navigate:" + dir) }
func (d *fakeDaemon) MoveWindow(dir string) error  { return d.record("move:" + dir) }
func (d *fakeDaemon) CycleWindow(dir string) error { return d.record("cycle:" + dir) }
func (d *fakeDaemon) Reload() error                { return d.record("reload") }

func (d *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.status, nil
}

func newTestServer(d *fakeDaemon) *Server {
	return newServer(d, nil)
}

func TestSplitFrame_DispatchesByOrientation(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(d)

	if _, out, err := s.handleSplitFrame(context.Background(), nil, SplitFrameInput{Orientation: "vertical"}); err != nil {
		t.Fatalf("split vertical: %v", err)
	} else if out.Orientation != "vertical" {
		t.Fatalf("unexpected output %+v", out)
	}
	if _, _, err := s.handleSplitFrame(context.Background(), nil, SplitFrameInput{Orientation: "horizontal"}); err != nil {
		t.Fatalf("split horizontal: %v", err)
	}
	if _, _, err := s.handleSplitFrame(context.Background(), nil, SplitFrameInput{Orientation: "diagonal"}); err == nil {
		t.Fatalf("bad orientation must be rejected")
	}

	want := []string{"split_v", "split_h"}
	if len(d.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, d.calls)
	}
	for i := range want {
		if d.calls[i] != want[i] {
			t.Fatalf("expected calls %v, got %v", want, d.calls)
		}
	}
}

func TestNavigate_ValidatesDirection(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(d)

	if _, _, err := s.handleNavigate(context.Background(), nil, NavigateInput{Direction: "left"}); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if _, _, err := s.handleNavigate(context.Background(), nil, NavigateInput{Direction: "sideways"}); err == nil {
		t.Fatalf("bad direction must be rejected")
	}
	if len(d.calls) != 1 || d.calls[0] != "navigate:left" {
		t.Fatalf("unexpected calls %v", d.calls)
	}
}

func TestCycleWindow_DefaultsToForward(t *testing.T) {
	d := &fakeDaemon{}
	s := newTestServer(d)

	if _, out, err := s.handleCycleWindow(context.Background(), nil, CycleWindowInput{}); err != nil {
		t.Fatalf("cycle: %v", err)
	} else if out.Direction != "forward" {
		t.Fatalf("expected forward default, got %q", out.Direction)
	}
	if len(d.calls) != 1 || d.calls[0] != "cycle:forward" {
		t.Fatalf("unexpected calls %v", d.calls)
	}
}

func TestGetLayout_FlattensStatus(t *testing.T) {
	d := &fakeDaemon{
		status: &ipc.StatusData{
			Version:        "0.1.0",
			CurrentDesktop: 1,
			Desktops:       []int{0, 1},
			Layout: manager.Snapshot{
				ActiveFrame: 3,
				Frames: []manager.FrameStatus{
					{
						ID:     2,
						Bounds: geometry.Rect{Width: 960, Height: 1080},
						Windows: []manager.WindowStatus{
							{Number: 41, PID: 100, Active: true},
						},
					},
					{
						ID:     3,
						Bounds: geometry.Rect{X: 960, Width: 960, Height: 1080},
					},
				},
			},
		},
	}
	s := newTestServer(d)

	_, out, err := s.handleGetLayout(context.Background(), nil, GetLayoutInput{})
	if err != nil {
		t.Fatalf("get layout: %v", err)
	}
	if len(out.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(out.Frames))
	}
	if out.Frames[0].Active || !out.Frames[1].Active {
		t.Fatalf("active flag must follow the active frame id")
	}
	if out.Frames[1].X != 960 || out.Frames[1].Width != 960 {
		t.Fatalf("bounds not carried over: %+v", out.Frames[1])
	}
	if len(out.Frames[0].Windows) != 1 || out.Frames[0].Windows[0].Number != 41 {
		t.Fatalf("windows not carried over: %+v", out.Frames[0].Windows)
	}
}

func TestTools_PropagateDaemonErrors(t *testing.T) {
	d := &fakeDaemon{err: errors.New("daemon not running")}
	s := newTestServer(d)

	if _, _, err := s.handleCloseFrame(context.Background(), nil, CloseFrameInput{}); err == nil {
		t.Fatalf("close must propagate the daemon error")
	}
	if _, _, err := s.handleGetLayout(context.Background(), nil, GetLayoutInput{}); err == nil {
		t.Fatalf("get_layout must propagate the daemon error")
	}
	if _, _, err := s.handleReloadConfig(context.Background(), nil, ReloadConfigInput{}); err == nil {
		t.Fatalf("reload must propagate the daemon error")
	}
}
