package space

import (
	"context"
	"log/slog"
	"sync"

	"github.com/1broseidon/framewm/internal/discovery"
	"github.com/1broseidon/framewm/internal/frame"
	"github.com/1broseidon/framewm/internal/geometry"
	"github.com/1broseidon/framewm/internal/manager"
	"github.com/1broseidon/framewm/internal/platform"
	"github.com/1broseidon/framewm/internal/winid"
)

// Space bundles one virtual desktop's layout state: its own frame tree
// (inside the manager), identity registry and tracker. Nothing is shared
// between spaces, so a window opened on desktop 2 can never leak into
// desktop 1's tree.
type Space struct {
	Desktop  int
	Manager  *manager.Manager
	Registry *winid.Registry
	Tracker  *discovery.Tracker

	cancel context.CancelFunc
}

// Config holds per-space construction parameters.
type Config struct {
	TitleHeight int
	Manager     manager.Config
	Logger      *slog.Logger
}

// SpaceManager lazily creates spaces as desktops are visited and tracks
// which one is visible. The visible space is where discovery routes its
// events; hidden spaces keep their trees frozen until revisited.
type SpaceManager struct {
	backend platform.Backend
	cfg     Config
	logger  *slog.Logger

	runCtx context.Context

	mu      sync.RWMutex
	spaces  map[int]*Space
	current int
}

// NewSpaceManager creates an empty space table over the backend.
func NewSpaceManager(cfg Config, backend platform.Backend) *SpaceManager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SpaceManager{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		spaces:  make(map[int]*Space),
		current: -1,
	}
}

// Start binds the manager to its run context and activates the desktop
// currently visible on the backend.
func (sm *SpaceManager) Start(ctx context.Context) error {
	sm.runCtx = ctx
	desktop, err := sm.backend.CurrentSpace()
	if err != nil {
		return err
	}
	sm.Activate(desktop)
	return nil
}

// Activate makes the given desktop's space current, creating it on
// first visit.
func (sm *SpaceManager) Activate(desktop int) *Space {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if s, ok := sm.spaces[desktop]; ok {
		sm.current = desktop
		return s
	}

	s := sm.create(desktop)
	sm.spaces[desktop] = s
	sm.current = desktop
	sm.logger.Info("created space", "desktop", desktop)
	return s
}

// create builds a space's component triple. Caller holds the lock.
func (sm *SpaceManager) create(desktop int) *Space {
	bounds := geometry.Rect{Width: 1920, Height: 1080}
	if display, err := sm.backend.ActiveDisplay(); err == nil {
		bounds = display.Usable
	} else {
		sm.logger.Warn("falling back to default display bounds", "error", err)
	}

	registry := winid.NewRegistry(sm.backend, sm.logger)
	tracker := discovery.NewTracker(registry, sm.logger)
	tree := frame.NewTree(bounds, sm.cfg.TitleHeight, sm.logger)

	mcfg := sm.cfg.Manager
	if mcfg.Logger == nil {
		mcfg.Logger = sm.logger
	}
	mgr := manager.New(mcfg, tree, registry, sm.backend, sm.backend)

	ctx := sm.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	s := &Space{
		Desktop:  desktop,
		Manager:  mgr,
		Registry: registry,
		Tracker:  tracker,
		cancel:   cancel,
	}
	go mgr.Run(ctx)
	go s.pump(ctx)
	return s
}

// pump routes the space's discovery events into its manager's command
// queue. This is the single hop from the producers' goroutines into the
// tree-owning context.
func (s *Space) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.Tracker.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case discovery.WindowOpened:
				s.Manager.AssignWindow(ev.Window, true)
			case discovery.WindowClosed:
				s.Manager.WindowDisappeared(ev.Window)
			case discovery.FocusChanged:
				s.Manager.WindowFocused(ev.Window)
			}
		}
	}
}

// Current returns the visible space, or nil before Start.
func (sm *SpaceManager) Current() *Space {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.spaces[sm.current]
}

// Target implements the discovery routing hook: producers always feed
// the visible space.
func (sm *SpaceManager) Target() (*discovery.Tracker, *winid.Registry) {
	s := sm.Current()
	if s == nil {
		return nil, nil
	}
	return s.Tracker, s.Registry
}

// Desktops returns the visited desktop numbers.
func (sm *SpaceManager) Desktops() []int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]int, 0, len(sm.spaces))
	for d := range sm.spaces {
		out = append(out, d)
	}
	return out
}

// Watch follows desktop-change notifications from the observer until
// the context is cancelled.
func (sm *SpaceManager) Watch(ctx context.Context, obs *discovery.Observer) {
	id, events := obs.Subscribe(16)
	defer obs.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != platform.EventSpaceChanged {
				continue
			}
			sm.logger.Info("desktop changed", "desktop", ev.Space)
			sm.Activate(ev.Space)
		}
	}
}

// Close tears down every space's goroutines.
func (sm *SpaceManager) Close() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, s := range sm.spaces {
		s.cancel()
	}
}
