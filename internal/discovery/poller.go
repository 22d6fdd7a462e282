package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/framewm/internal/platform"
	"github.com/1broseidon/framewm/internal/winid"
)

// Target supplies the tracker and registry of the currently visible
// space. The poller re-queries it every tick so a desktop switch simply
// redirects the stream.
type Target func() (*Tracker, *winid.Registry)

// PollerConfig holds configuration for the discovery poller.
type PollerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Poller is the authoritative completeness mechanism of window
// discovery: on a fixed interval it enumerates the visible windows and
// diffs the set against its previous snapshot, keyed by confirmed window
// number. Whatever the live observer misses, the poller eventually
// reports.
type Poller struct {
	enum       platform.Enumerator
	target     Target
	interval   time.Duration
	intervalCh chan time.Duration
	logger     *slog.Logger

	// Snapshot state, touched only from the Run loop.
	curTracker *Tracker
	seen       map[uint32]struct{}
	lastFocus  uint32
}

// NewPoller creates a poller over the given enumerator.
func NewPoller(cfg PollerConfig, enum platform.Enumerator, target Target) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 7 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		enum:       enum,
		target:     target,
		interval:   interval,
		intervalCh: make(chan time.Duration, 1),
		logger:     logger,
		seen:       make(map[uint32]struct{}),
	}
}

// SetInterval re-paces a running poll loop. Safe from any goroutine;
// only the latest value matters when updates pile up.
func (p *Poller) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-p.intervalCh:
	default:
	}
	p.intervalCh <- d
}

// Run starts the poll loop with an immediate first pass. Blocks until
// the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("discovery poller started", "interval", p.interval)
	p.poll()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("discovery poller stopped")
			return
		case d := <-p.intervalCh:
			p.interval = d
			ticker.Reset(d)
			p.logger.Info("discovery poller re-paced", "interval", d)
		case <-ticker.C:
			p.poll()
		}
	}
}

// PollNow triggers an immediate pass, used after explicit state changes.
func (p *Poller) PollNow() {
	p.poll()
}

func (p *Poller) poll() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			p.logger.Error("poller panic recovered", "error", err)
		}
	}()

	tracker, registry := p.target()
	if tracker == nil {
		return
	}
	if tracker != p.curTracker {
		// Desktop switch: rebuild the snapshot from what the incoming
		// space already tracks, so windows that closed while the desktop
		// was hidden get diffed out on the next pass. The previous
		// space's tracker keeps its windows; they are not closed, just
		// hidden.
		p.curTracker = tracker
		p.seen = make(map[uint32]struct{})
		for _, id := range tracker.Known() {
			if number, ok := id.Number(); ok {
				p.seen[number] = struct{}{}
			}
		}
		p.lastFocus = 0
	}

	windows, err := p.enum.ListWindows()
	if err != nil {
		p.logger.Warn("poller: failed to enumerate windows", "error", err)
		return
	}

	cur := make(map[uint32]struct{}, len(windows))
	for _, w := range windows {
		cur[w.Number] = struct{}{}
		if _, ok := p.seen[w.Number]; !ok {
			tracker.HandleWindowCreated(w.Handle)
		}
	}
	for number := range p.seen {
		if _, ok := cur[number]; !ok {
			tracker.HandleWindowClosed(winid.NoHandle, number)
		}
	}
	p.seen = cur

	p.pollFocus(tracker)

	if registry != nil {
		registry.Sweep()
	}
}

func (p *Poller) pollFocus(tracker *Tracker) {
	h, ok, err := p.enum.Frontmost()
	if err != nil || !ok {
		return
	}
	_, registry := p.target()
	if registry == nil {
		return
	}
	id := registry.GetOrRegister(h)
	if id == nil {
		return
	}
	number, ok := id.Number()
	if !ok || number == p.lastFocus {
		return
	}
	p.lastFocus = number
	tracker.HandleWindowFocused(h)
}
