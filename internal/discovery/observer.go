package discovery

import (
	"context"
	"log/slog"
	"sync"

	"github.com/1broseidon/framewm/internal/platform"
)

// Observer fans the backend's notification stream out to any number of
// subscribers through a registration table keyed by subscription id.
// Nothing here is a process-wide singleton: each consumer holds its own
// id and channel, and late or slow subscribers only ever cost themselves
// dropped events.
type Observer struct {
	source <-chan platform.Event
	logger *slog.Logger

	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan platform.Event
	closed bool
}

// NewObserver wraps a backend event stream.
func NewObserver(source <-chan platform.Event, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		source: source,
		logger: logger,
		subs:   make(map[uint64]chan platform.Event),
	}
}

// Subscribe registers a new consumer and returns its subscription id and
// event channel. The channel closes when the observer shuts down.
func (o *Observer) Subscribe(buffer int) (uint64, <-chan platform.Event) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan platform.Event, buffer)

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		close(ch)
		return 0, ch
	}
	o.nextID++
	o.subs[o.nextID] = ch
	return o.nextID, ch
}

// Unsubscribe removes a consumer and closes its channel.
func (o *Observer) Unsubscribe(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ch, ok := o.subs[id]; ok {
		delete(o.subs, id)
		close(ch)
	}
}

// Run pumps events from the source to every subscriber until the context
// is cancelled or the source closes. Subscriber channels are closed on
// return.
func (o *Observer) Run(ctx context.Context) {
	defer o.shutdown()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-o.source:
			if !ok {
				return
			}
			o.dispatch(ev)
		}
	}
}

func (o *Observer) dispatch(ev platform.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, ch := range o.subs {
		select {
		case ch <- ev:
		default:
			// A stalled subscriber loses events; the poller restores
			// completeness on its next pass.
			o.logger.Debug("subscriber event buffer full, dropping",
				"subscription", id, "kind", ev.Kind.String())
		}
	}
}

func (o *Observer) shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
}

// RunBridge subscribes to the observer and forwards window notifications
// to the visible space's tracker. This is the low-latency half of
// discovery; the poller is the completeness half.
func RunBridge(ctx context.Context, obs *Observer, target Target, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	id, events := obs.Subscribe(trackerBuffer)
	defer obs.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			tracker, _ := target()
			if tracker == nil {
				continue
			}
			switch ev.Kind {
			case platform.EventWindowMapped:
				tracker.HandleWindowCreated(ev.Handle)
			case platform.EventWindowDestroyed:
				tracker.HandleWindowClosed(ev.Handle, ev.Number)
			case platform.EventWindowFocused:
				tracker.HandleWindowFocused(ev.Handle)
			}
		}
	}
}
