package eventbus

import (
	"context"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webshell/schema"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventTab carries tab lifecycle updates.
	EventTab EventType = "tab"
	// EventAddress carries address bar changes.
	EventAddress EventType = "address"
	// EventSettings carries settings refreshes.
	EventSettings EventType = "settings"
	// EventDownload carries host download notifications.
	EventDownload EventType = "download"
)

// Event represents a chrome-facing event emitted by the shell.
type Event struct {
	Type     EventType             `json:"type"`
	Tab      *schema.TabEvent      `json:"tab,omitempty"`
	Address  *schema.AddressEvent  `json:"address,omitempty"`
	Settings *schema.SettingsEvent `json:"settings,omitempty"`
	Download *schema.DownloadEvent `json:"download,omitempty"`
}

// Bus fans shell events out to subscribers. Slow subscribers lose events
// rather than blocking the shell.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]struct{}
	log   pslog.Logger
	depth int
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

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
			b.log.Debug("eventbus unsubscribe")
		})
	}
}

// Subscribers reports the number of live subscriptions.
func (b *Bus) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// OnTabEvent publishes a tab event.
func (b *Bus) OnTabEvent(event schema.TabEvent) {
	b.publish(Event{Type: EventTab, Tab: &event})
}

// OnAddressEvent publishes an address bar event.
func (b *Bus) OnAddressEvent(event schema.AddressEvent) {
	b.publish(Event{Type: EventAddress, Address: &event})
}

// OnSettingsEvent publishes a settings event.
func (b *Bus) OnSettingsEvent(event schema.SettingsEvent) {
	b.publish(Event{Type: EventSettings, Settings: &event})
}

// OnDownloadEvent publishes a download event.
func (b *Bus) OnDownloadEvent(event schema.DownloadEvent) {
	b.publish(Event{Type: EventDownload, Download: &event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	dropped := 0
	b.mu.Lock()
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	b.mu.Unlock()
	if dropped > 0 {
		b.log.Trace("eventbus dropped", "type", event.Type, "count", dropped)
	}
}
