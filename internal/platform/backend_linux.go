//go:build linux

package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/1broseidon/framewm/internal/geometry"
	"github.com/1broseidon/framewm/internal/winid"
	"github.com/1broseidon/framewm/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// X11Backend implements Backend on top of an X11 connection. Handle
// tokens are minted per observation and mapped to X window numbers; the
// identity registry collapses the racing tokens back into one identity
// per window.
type X11Backend struct {
	conn   *x11.Connection
	logger *slog.Logger

	mu         sync.RWMutex
	handles    map[winid.Handle]xproto.Window
	nextHandle uint64

	events chan Event
}

var _ Backend = (*X11Backend)(nil)

const eventBuffer = 64

// NewX11Backend opens an X11 connection for the given display (empty
// means $DISPLAY) and prepares the event stream.
func NewX11Backend(display string, logger *slog.Logger) (*X11Backend, error) {
	conn, err := x11.NewConnectionDisplay(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &X11Backend{
		conn:    conn,
		logger:  logger,
		handles: make(map[winid.Handle]xproto.Window),
		events:  make(chan Event, eventBuffer),
	}, nil
}

// XUtil exposes the underlying xgbutil connection for key binding.
func (b *X11Backend) XUtil() *xgbutil.XUtil {
	return b.conn.XUtil
}

// RootWindow returns the root window of the connected screen.
func (b *X11Backend) RootWindow() xproto.Window {
	return b.conn.Root
}

// Start subscribes to root-window notifications and runs the X event
// loop until the context is canceled. The events channel closes on
// return.
func (b *X11Backend) Start(ctx context.Context) error {
	if err := b.conn.ListenRootEvents(); err != nil {
		return err
	}

	b.conn.OnWindowMapped(func(win xproto.Window) {
		if !b.conn.IsNormalWindow(win) {
			return
		}
		b.emit(Event{
			Kind:   EventWindowMapped,
			Handle: b.mint(win),
			Number: uint32(win),
		})
	})
	b.conn.OnWindowDestroyed(func(win xproto.Window) {
		b.dropWindow(win)
		b.emit(Event{Kind: EventWindowDestroyed, Number: uint32(win)})
	})
	b.conn.OnWindowUnmapped(func(win xproto.Window) {
		b.emit(Event{Kind: EventWindowDestroyed, Number: uint32(win)})
	})
	if err := b.conn.OnRootProperty("_NET_ACTIVE_WINDOW", func() {
		win, err := b.conn.ActiveWindow()
		if err != nil || win == 0 {
			return
		}
		b.emit(Event{
			Kind:   EventWindowFocused,
			Handle: b.mint(win),
			Number: uint32(win),
		})
	}); err != nil {
		return err
	}
	if err := b.conn.OnRootProperty("_NET_CURRENT_DESKTOP", func() {
		desktop, err := b.conn.CurrentDesktop()
		if err != nil {
			return
		}
		b.emit(Event{Kind: EventSpaceChanged, Space: desktop})
	}); err != nil {
		return err
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			b.conn.StopEventLoop()
		case <-stop:
		}
	}()

	b.conn.EventLoop()
	close(stop)
	close(b.events)
	return ctx.Err()
}

// Close disconnects from the X server.
func (b *X11Backend) Close() {
	b.conn.Close()
}

// Events returns the backend notification stream.
func (b *X11Backend) Events() <-chan Event {
	return b.events
}

// emit delivers an event without blocking the X event loop. A full
// buffer means a stalled consumer; dropping is safe because the poller
// re-derives state on its next tick.
func (b *X11Backend) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		b.logger.Debug("event buffer full, dropping", "kind", ev.Kind.String())
	}
}

// mint issues a fresh handle token for one observation of a window.
func (b *X11Backend) mint(win xproto.Window) winid.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextHandle++
	h := winid.Handle(b.nextHandle)
	b.handles[h] = win
	return h
}

func (b *X11Backend) windowFor(h winid.Handle) (xproto.Window, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	win, ok := b.handles[h]
	return win, ok
}

// dropWindow forgets every handle minted for a destroyed window.
func (b *X11Backend) dropWindow(win xproto.Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for h, w := range b.handles {
		if w == win {
			delete(b.handles, h)
		}
	}
}

// PID implements winid.Resolver.
func (b *X11Backend) PID(h winid.Handle) (int, bool) {
	win, ok := b.windowFor(h)
	if !ok {
		return 0, false
	}
	return b.conn.WindowPID(win)
}

// WindowNumber implements winid.Resolver.
func (b *X11Backend) WindowNumber(h winid.Handle) (uint32, bool) {
	win, ok := b.windowFor(h)
	if !ok {
		return 0, false
	}
	return uint32(win), true
}

// IsLive implements winid.Resolver.
func (b *X11Backend) IsLive(h winid.Handle) bool {
	win, ok := b.windowFor(h)
	if !ok {
		return false
	}
	return b.conn.IsWindowAlive(win)
}

// MoveResize moves and resizes a window.
func (b *X11Backend) MoveResize(h winid.Handle, bounds geometry.Rect) error {
	win, ok := b.windowFor(h)
	if !ok {
		return fmt.Errorf("stale window handle %d", h)
	}
	return b.conn.MoveResizeWindow(win, bounds.X, bounds.Y, bounds.Width, bounds.Height)
}

// Raise activates and focuses a window.
func (b *X11Backend) Raise(h winid.Handle) error {
	win, ok := b.windowFor(h)
	if !ok {
		return fmt.Errorf("stale window handle %d", h)
	}
	return b.conn.ActivateWindow(win)
}

// CloseWindow requests a graceful close.
func (b *X11Backend) CloseWindow(h winid.Handle) error {
	win, ok := b.windowFor(h)
	if !ok {
		return fmt.Errorf("stale window handle %d", h)
	}
	return b.conn.CloseWindow(win)
}

// ListWindows returns the normal, visible windows on the current
// desktop, each under a freshly minted handle. Handles for windows that
// left the client list are pruned as a side effect.
func (b *X11Backend) ListWindows() ([]WindowInfo, error) {
	clients, err := b.conn.ClientList()
	if err != nil {
		return nil, err
	}

	currentDesktop, desktopErr := b.conn.CurrentDesktop()
	hasDesktop := desktopErr == nil

	windows := make([]WindowInfo, 0, len(clients))
	for _, win := range clients {
		if !b.conn.IsNormalWindow(win) || b.conn.IsWindowHidden(win) {
			continue
		}

		desktop := -1
		if d, err := b.conn.WindowDesktop(win); err == nil {
			desktop = d
		}
		if hasDesktop && !OnDesktop(desktop, currentDesktop) {
			continue
		}

		x, y, w, h, ok := b.conn.WindowGeometry(win)
		if !ok {
			continue
		}

		pid := 0
		if p, ok := b.conn.WindowPID(win); ok {
			pid = p
		}

		windows = append(windows, WindowInfo{
			Handle:  b.mint(win),
			Number:  uint32(win),
			PID:     pid,
			AppID:   b.conn.WindowClass(win),
			Title:   b.conn.WindowTitle(win),
			Bounds:  geometry.Rect{X: x, Y: y, Width: w, Height: h},
			Desktop: desktop,
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Number < windows[j].Number
	})

	b.pruneHandles(clients)
	return windows, nil
}

func (b *X11Backend) pruneHandles(clients []xproto.Window) {
	alive := make(map[xproto.Window]struct{}, len(clients))
	for _, win := range clients {
		alive[win] = struct{}{}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for h, win := range b.handles {
		if _, ok := alive[win]; !ok {
			delete(b.handles, h)
		}
	}
}

// Frontmost returns a handle for the focused window.
func (b *X11Backend) Frontmost() (winid.Handle, bool, error) {
	win, err := b.conn.ActiveWindow()
	if err != nil {
		return winid.NoHandle, false, err
	}
	if win == 0 || !b.conn.IsNormalWindow(win) {
		return winid.NoHandle, false, nil
	}
	return b.mint(win), true, nil
}

// CurrentSpace returns the current virtual desktop.
func (b *X11Backend) CurrentSpace() (int, error) {
	return b.conn.CurrentDesktop()
}

// SpaceCount returns the number of virtual desktops.
func (b *X11Backend) SpaceCount() (int, error) {
	return b.conn.DesktopCount()
}

// MoveToSpace sends a window to another virtual desktop.
func (b *X11Backend) MoveToSpace(h winid.Handle, space int) error {
	win, ok := b.windowFor(h)
	if !ok {
		return fmt.Errorf("stale window handle %d", h)
	}
	return b.conn.MoveWindowToDesktop(win, space)
}

// ActiveDisplay returns the display under focus with its usable area.
func (b *X11Backend) ActiveDisplay() (Display, error) {
	mon, err := b.conn.ActiveMonitor()
	if err != nil {
		return Display{}, err
	}
	usable := geometry.Rect{X: mon.X, Y: mon.Y, Width: mon.Width, Height: mon.Height}
	return Display{
		ID:     mon.ID,
		Name:   mon.Name,
		Bounds: usable,
		Usable: usable,
	}, nil
}
