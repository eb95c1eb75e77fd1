package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webshell/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq        uint64                 `json:"seq"`
	Type       string                 `json:"type"`
	TabEvent   string                 `json:"tab_event,omitempty"`
	Tab        *schema.TabSnapshot    `json:"tab,omitempty"`
	ActiveTab  schema.TabID           `json:"active_tab,omitempty"`
	AddressBar *string                `json:"address_bar,omitempty"`
	Settings   *schema.Settings       `json:"settings,omitempty"`
	Download   *schema.DownloadItem   `json:"download,omitempty"`
	Snapshot   *schema.ChromeSnapshot `json:"snapshot,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// Hub broadcasts shell events to SSE clients and keeps a bounded history for
// Last-Event-ID replay.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	historySize int
	log         pslog.Logger
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int, logger pslog.Logger) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		historySize: historySize,
		log:         logger,
	}
}

// OnTabEvent implements core.EventSink.
func (h *Hub) OnTabEvent(event schema.TabEvent) {
	h.log.Trace("hub tab event", "type", event.Type, "tab", event.Tab.ID, "active", event.ActiveTab)
	tab := event.Tab
	h.publish(StreamEvent{
		Type:      "tab",
		TabEvent:  string(event.Type),
		Tab:       &tab,
		ActiveTab: event.ActiveTab,
		Timestamp: time.Now(),
	})
}

// OnAddressEvent implements core.EventSink.
func (h *Hub) OnAddressEvent(event schema.AddressEvent) {
	text := event.Text
	h.publish(StreamEvent{
		Type:       "address",
		ActiveTab:  event.TabID,
		AddressBar: &text,
		Timestamp:  time.Now(),
	})
}

// OnSettingsEvent implements core.EventSink.
func (h *Hub) OnSettingsEvent(event schema.SettingsEvent) {
	settings := event.Settings
	h.publish(StreamEvent{
		Type:      "settings",
		Settings:  &settings,
		Timestamp: time.Now(),
	})
}

// OnDownloadEvent implements core.EventSink.
func (h *Hub) OnDownloadEvent(event schema.DownloadEvent) {
	item := event.Item
	h.publish(StreamEvent{
		Type:      "download",
		Download:  &item,
		Timestamp: time.Now(),
	})
}

// Subscribe registers a subscriber.
func (h *Hub) Subscribe() (<-chan StreamEvent, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	h.log.Info("hub subscribe", "subs", len(h.subs), "history", len(h.history))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			remaining := len(h.subs)
			h.mu.Unlock()
			h.log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]StreamEvent, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	h.log.Debug("hub replay", "after", after, "count", len(events))
	return events
}

func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	event.Seq = h.seq
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	dropped := 0
	for sub := range h.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}
