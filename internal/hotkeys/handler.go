package hotkeys

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/framewm/internal/config"
	"github.com/1broseidon/framewm/internal/frame"
	"github.com/1broseidon/framewm/internal/platform"
	"github.com/1broseidon/framewm/internal/space"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler binds global keyboard shortcuts to layout operations on the
// currently visible space.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	spaces *space.SpaceManager
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler. It returns an error when the
// backend does not expose an X11 connection, since key grabs need one.
func NewHandler(backend platform.Backend, spaces *space.SpaceManager, logger *slog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok {
		return nil, fmt.Errorf("backend does not support global hotkeys")
	}
	if logger == nil {
		logger = slog.Default()
	}

	xu := accessor.XUtil()
	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		root:   accessor.RootWindow(),
		spaces: spaces,
		logger: logger,
	}, nil
}

// RegisterAll grabs every configured action's key sequence.
func (h *Handler) RegisterAll(hotkeys map[string]string) error {
	for action, sequence := range hotkeys {
		op, ok := h.operation(action)
		if !ok {
			return fmt.Errorf("unknown hotkey action: %s", action)
		}
		if err := h.RegisterFunc(sequence, op); err != nil {
			return fmt.Errorf("failed to bind %s to %q: %w", action, sequence, err)
		}
		h.logger.Debug("bound hotkey", "action", action, "key", sequence)
	}
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

// UnregisterAll releases every key grab this connection holds.
func (h *Handler) UnregisterAll() {
	keybind.Detach(h.xu, h.root)
}

// operation maps a config action name to a callback on the visible
// space. The space is resolved at press time, not bind time, so the
// same grab keeps working across desktop switches.
func (h *Handler) operation(action string) (func(), bool) {
	run := func(f func(s *space.Space)) func() {
		return func() {
			s := h.spaces.Current()
			if s == nil {
				h.logger.Warn("hotkey pressed before any space exists", "action", action)
				return
			}
			f(s)
		}
	}

	switch action {
	case config.ActionSplitHorizontal:
		return run(func(s *space.Space) { s.Manager.SplitHorizontal() }), true
	case config.ActionSplitVertical:
		return run(func(s *space.Space) { s.Manager.SplitVertical() }), true
	case config.ActionCloseFrame:
		return run(func(s *space.Space) { s.Manager.CloseActiveFrame() }), true
	case config.ActionNavigateLeft:
		return run(func(s *space.Space) { s.Manager.Navigate(frame.Left) }), true
	case config.ActionNavigateRight:
		return run(func(s *space.Space) { s.Manager.Navigate(frame.Right) }), true
	case config.ActionNavigateUp:
		return run(func(s *space.Space) { s.Manager.Navigate(frame.Up) }), true
	case config.ActionNavigateDown:
		return run(func(s *space.Space) { s.Manager.Navigate(frame.Down) }), true
	case config.ActionMoveLeft:
		return run(func(s *space.Space) { s.Manager.MoveActiveWindow(frame.Left) }), true
	case config.ActionMoveRight:
		return run(func(s *space.Space) { s.Manager.MoveActiveWindow(frame.Right) }), true
	case config.ActionMoveUp:
		return run(func(s *space.Space) { s.Manager.MoveActiveWindow(frame.Up) }), true
	case config.ActionMoveDown:
		return run(func(s *space.Space) { s.Manager.MoveActiveWindow(frame.Down) }), true
	case config.ActionCycleNext:
		return run(func(s *space.Space) { s.Manager.CycleForward() }), true
	case config.ActionCyclePrev:
		return run(func(s *space.Space) { s.Manager.CycleBackward() }), true
	case config.ActionShiftNext:
		return run(func(s *space.Space) { s.Manager.ShiftActiveWindow(1) }), true
	case config.ActionShiftPrev:
		return run(func(s *space.Space) { s.Manager.ShiftActiveWindow(-1) }), true
	default:
		return nil, false
	}
}

// configureIgnoreMods tells xgbutil to treat lock-key modifiers as
// transparent, so Mod4-s fires with CapsLock or NumLock engaged.
func configureIgnoreMods(xu *xgbutil.XUtil) {
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
