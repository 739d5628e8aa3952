package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/quarterdeck/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventTab carries tab lifecycle updates.
	EventTab EventType = "tab"
	// EventCommand carries command completion updates.
	EventCommand EventType = "command"
)

// Event is one push event emitted by the dispatcher core. Seq is
// assigned at publish time and increases monotonically, which lets a
// reconnecting stream consumer ask for a replay of what it missed.
type Event struct {
	Seq     uint64
	Type    EventType
	Tab     schema.TabEvent
	Command schema.CommandEvent
}

// Bus fans events out to stream subscribers, keeping a bounded history
// ring for replay after reconnects.
type Bus struct {
	mu      sync.Mutex
	subs    map[chan Event]struct{}
	history []Event
	seq     uint64
	log     pslog.Logger
	depth   int
	keep    int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger,
		depth: 256,
		keep:  256,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	b.log.Debug("eventbus subscribe", "subs", count)
	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
		close(ch)
		b.log.Debug("eventbus unsubscribe")
	}
}

// Replay returns retained events with sequence numbers above since.
func (b *Bus) Replay(since uint64) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, 0, len(b.history))
	for _, event := range b.history {
		if event.Seq > since {
			out = append(out, event)
		}
	}
	return out
}

// OnTabEvent publishes a tab event.
func (b *Bus) OnTabEvent(event schema.TabEvent) {
	b.publish(Event{Type: EventTab, Tab: event})
}

// OnCommandEvent publishes a command completion event.
func (b *Bus) OnCommandEvent(event schema.CommandEvent) {
	b.publish(Event{Type: EventCommand, Command: event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.seq++
	event.Seq = b.seq
	b.history = append(b.history, event)
	if len(b.history) > b.keep {
		b.history = b.history[len(b.history)-b.keep:]
	}
	subs := make([]chan Event, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "count", dropped)
	}
}
