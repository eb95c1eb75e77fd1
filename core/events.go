package core

import (
	"pkt.systems/webshell/internal/logx"
	"pkt.systems/webshell/schema"
)

func (s *Shell) viewHandler(id schema.TabID) ViewEventHandler {
	return func(ev ViewEvent) {
		s.handleViewEvent(id, ev)
	}
}

// handleViewEvent applies a view event. Address bar and title changes are only
// applied while the tab is active; events from closed tabs are dropped.
func (s *Shell) handleViewEvent(id schema.TabID, ev ViewEvent) {
	ctx := s.eventContext()
	log := logx.WithTab(ctx, id)

	s.mu.Lock()
	t := s.findLocked(id)
	if t == nil {
		s.mu.Unlock()
		log.Trace("shell view event dropped", "event", ev.Type)
		return
	}
	if ev.Type == ViewNewWindow {
		s.mu.Unlock()
		s.openWindow(id, ev.URL)
		return
	}
	active := s.active == id
	var events []any
	switch ev.Type {
	case ViewStartLoading:
		t.Loading = true
		if active {
			events = append(events, s.setAddressLocked(t, t.currentURL()))
		}
	case ViewStopLoading:
		t.Loading = false
		if active {
			events = append(events, s.setAddressLocked(t, t.currentURL()))
			title := t.view.Title()
			if title == "" {
				title = s.cfg.DefaultTitle
			}
			t.Title = title
		}
	case ViewTitleUpdated:
		if active {
			t.Title = ev.Title
		}
	case ViewWillNavigate, ViewDidNavigate, ViewDidNavigateInPage:
		if active {
			events = append(events, s.setAddressLocked(t, ev.URL))
		}
	default:
		s.mu.Unlock()
		log.Debug("shell view event unknown", "event", ev.Type)
		return
	}
	events = append([]any{schema.TabEvent{
		Type:      schema.TabEventUpdated,
		Tab:       t.Snapshot(active),
		ActiveTab: s.active,
	}}, events...)
	s.mu.Unlock()

	s.emit(events)
	log.Trace("shell view event", "event", ev.Type, "active", active)
}

func (s *Shell) setAddressLocked(t *tab, text string) schema.AddressEvent {
	s.address = text
	return schema.AddressEvent{TabID: t.ID, Text: text}
}

// openWindow turns a page's new-window request into a new tab. With a host
// attached the request goes through the bridge and the host answers with
// new-tab; otherwise the tab is opened directly.
func (s *Shell) openWindow(id schema.TabID, url string) {
	ctx := s.eventContext()
	log := logx.WithURL(logx.WithTab(ctx, id), url)
	s.mu.Lock()
	host := s.host
	s.mu.Unlock()
	if host != nil {
		if err := host.RequestNewTab(ctx, url); err != nil {
			log.Warn("shell new window request failed", "err", err)
		}
		return
	}
	if _, err := s.CreateTab(ctx, url); err != nil {
		log.Warn("shell new window failed", "err", err)
	}
}
