package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vantagebrowser/tabengine/internal/infrastructure/logging"
)

// Kind identifies the event payload.
type Kind string

const (
	KindTabCreated    Kind = "tab.created"
	KindTabClosed     Kind = "tab.closed"
	KindTabNavigated  Kind = "tab.navigated"
	KindTabActivated  Kind = "tab.activated"
	KindTabUpdated    Kind = "tab.updated"
	KindTabReopened   Kind = "tab.reopened"
	KindTabIdle       Kind = "tab.idle"
	KindTabSuspended  Kind = "tab.suspended"
	KindTabResumed    Kind = "tab.resumed"
	KindTabHibernated Kind = "tab.hibernated"
	KindTabEvicted    Kind = "tab.evicted"
	KindTabCrashed    Kind = "tab.crashed"
	KindPressure      Kind = "memory.pressure"
	KindBudget        Kind = "workspace.budget_exceeded"
)

// Event is a UI-facing notification emitted by the engine.
// Fields beyond Kind and At are populated per kind.
type Event struct {
	Kind        Kind      `json:"kind"`
	TabID       string    `json:"tab_id,omitempty"`
	WorkspaceID string    `json:"workspace_id,omitempty"`
	PreviousID  string    `json:"previous_id,omitempty"` // activation handoff
	URL         string    `json:"url,omitempty"`
	From        string    `json:"from,omitempty"` // lifecycle transition edge
	To          string    `json:"to,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Ratio       float64   `json:"ratio,omitempty"` // memory pressure
	At          time.Time `json:"at"`
}

// Bus fans events out to subscribers. Publishing never blocks: slow
// subscribers lose events once their buffer fills, and drops are counted.
type Bus struct {
	mu      sync.Mutex
	subs    map[chan Event]map[Kind]struct{} // nil kind set = all kinds
	log     *logging.Logger
	depth   int
	dropped uint64
	closed  bool
}

// New constructs a Bus.
func New(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Bus{
		subs:  make(map[chan Event]map[Kind]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber for the given kinds and returns a
// receive channel plus a cancel function. No kinds means every kind.
func (b *Bus) Subscribe(kinds ...Kind) (<-chan Event, func()) {
	ch := make(chan Event, b.depth)

	var filter map[Kind]struct{}
	if len(kinds) > 0 {
		filter = make(map[Kind]struct{}, len(kinds))
		for _, k := range kinds {
			filter[k] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = filter
	count := len(b.subs)
	b.mu.Unlock()

	b.log.Debug("Event subscriber added", zap.Int("subscribers", count))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			_, ok := b.subs[ch]
			if ok {
				delete(b.subs, ch)
			}
			b.mu.Unlock()
			if ok {
				close(ch)
				b.log.Debug("Event subscriber removed")
			}
		})
	}
	return ch, cancel
}

// Publish delivers an event to matching subscribers without blocking.
// A zero At is stamped with the current time.
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	// Deliver under the lock so a concurrent cancel cannot close a
	// channel mid-send. Sends are non-blocking, so the hold is short.
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	dropped := 0
	for ch, filter := range b.subs {
		if filter != nil {
			if _, ok := filter[event.Kind]; !ok {
				continue
			}
		}
		select {
		case ch <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.dropped += uint64(dropped)
	}
	b.mu.Unlock()

	if dropped > 0 {
		b.log.Debug("Event dropped for slow subscribers",
			zap.String("kind", string(event.Kind)),
			zap.Int("count", dropped))
	}
}

// Dropped returns the total number of events lost to full buffers.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close shuts the bus down and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = make(map[chan Event]map[Kind]struct{})
	b.mu.Unlock()
}
