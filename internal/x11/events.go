package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// ListenRootEvents subscribes to the root window's substructure and
// property notifications, enabling the map/destroy/property callbacks
// below. Must be called before EventLoop.
func (c *Connection) ListenRootEvents() error {
	err := xwindow.New(c.XUtil, c.Root).Listen(
		xproto.EventMaskSubstructureNotify | xproto.EventMaskPropertyChange)
	if err != nil {
		return fmt.Errorf("failed to listen on root window: %w", err)
	}
	return nil
}

// OnWindowMapped registers a callback for top-level windows becoming
// viewable. Map is the observable moment a window exists for tiling
// purposes; CreateNotify fires too early, before the WM has adopted it.
func (c *Connection) OnWindowMapped(fn func(xproto.Window)) {
	xevent.MapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MapNotifyEvent) {
		fn(ev.Window)
	}).Connect(c.XUtil, c.Root)
}

// OnWindowDestroyed registers a callback for top-level window destruction.
func (c *Connection) OnWindowDestroyed(fn func(xproto.Window)) {
	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		fn(ev.Window)
	}).Connect(c.XUtil, c.Root)
}

// OnWindowUnmapped registers a callback for top-level windows being
// withdrawn or minimized.
func (c *Connection) OnWindowUnmapped(fn func(xproto.Window)) {
	xevent.UnmapNotifyFun(func(xu *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
		fn(ev.Window)
	}).Connect(c.XUtil, c.Root)
}

// OnRootProperty registers a callback for changes to a named root-window
// property such as _NET_ACTIVE_WINDOW or _NET_CURRENT_DESKTOP.
func (c *Connection) OnRootProperty(name string, fn func()) error {
	atom, err := xprop.Atm(c.XUtil, name)
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", name, err)
	}
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if ev.Atom == atom {
			fn()
		}
	}).Connect(c.XUtil, c.Root)
	return nil
}
