package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webshell/internal/logx"
	"pkt.systems/webshell/schema"
)

const maxDownloads = 100

// Shell owns the chrome state of one browser window: the ordered tab list,
// the active tab, the address bar and the cached settings record.
type Shell struct {
	cfg    schema.ShellConfig
	views  ViewFactory
	host   Host
	sink   EventSink
	logger pslog.Logger

	mu        sync.Mutex
	tabs      []*tab
	active    schema.TabID
	issued    map[schema.TabID]struct{}
	address   string
	settings  schema.Settings
	downloads []schema.DownloadItem
	baseCtx   context.Context
}

// NewShell constructs a shell. A view factory is required.
func NewShell(cfg schema.ShellConfig, deps ShellDeps) (*Shell, error) {
	if deps.Views == nil {
		return nil, errors.New("view factory is required")
	}
	cfg = schema.NormalizeShellConfig(cfg)
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Shell{
		cfg:      cfg,
		views:    deps.Views,
		host:     deps.Host,
		sink:     deps.EventSink,
		logger:   logger,
		issued:   make(map[schema.TabID]struct{}),
		settings: cfg.Settings,
		baseCtx:  pslog.ContextWithLogger(context.Background(), logger),
	}, nil
}

// Init fetches settings from the host and opens the first tab at the homepage.
// A failed settings fetch keeps the defaults.
func (s *Shell) Init(ctx context.Context) error {
	log := pslog.Ctx(ctx)
	s.mu.Lock()
	s.baseCtx = logx.CopyContextFields(pslog.ContextWithLogger(context.Background(), log), ctx)
	host := s.host
	s.mu.Unlock()

	if host != nil {
		settings, err := host.GetSettings(ctx)
		if err != nil {
			log.Warn("shell settings fetch failed", "err", err)
		} else {
			s.SetSettings(settings)
		}
	}

	s.mu.Lock()
	empty := len(s.tabs) == 0
	homepage := s.settings.Homepage
	s.mu.Unlock()
	if !empty {
		return nil
	}
	_, err := s.CreateTab(ctx, homepage)
	if err != nil {
		return err
	}
	log.Info("shell initialized", "homepage", homepage)
	return nil
}

// CreateTab opens a new tab pointed at url and activates it when no tab is
// active.
func (s *Shell) CreateTab(ctx context.Context, url string) (schema.TabSnapshot, error) {
	id := s.allocateID()
	log := logx.WithURL(logx.WithTab(ctx, id), url)
	view, err := s.views.NewView(logx.ContextWithTabLogger(ctx, log, id), id, url, s.viewHandler(id))
	if err != nil {
		s.releaseID(id)
		log.Warn("shell tab create failed", "err", err)
		return schema.TabSnapshot{}, err
	}
	view.Hide()

	t := &tab{
		ID:    id,
		Title: s.cfg.DefaultTitle,
		URL:   url,
		view:  view,
	}

	s.mu.Lock()
	s.tabs = append(s.tabs, t)
	events := []any{schema.TabEvent{
		Type:      schema.TabEventCreated,
		Tab:       t.Snapshot(false),
		ActiveTab: s.active,
	}}
	if s.active == "" {
		events = append(events, s.activateLocked(t)...)
	}
	snapshot := t.Snapshot(s.active == id)
	count := len(s.tabs)
	s.mu.Unlock()

	s.emit(events)
	log.Info("shell tab created", "tabs", count, "active", snapshot.Active)
	return snapshot, nil
}

// ActivateTab makes the tab visible and resyncs the address bar from its
// view. It reports whether the tab exists; activating the active tab is a
// no-op.
func (s *Shell) ActivateTab(ctx context.Context, id schema.TabID) bool {
	log := logx.WithTab(ctx, id)
	s.mu.Lock()
	if s.active == id && id != "" {
		s.mu.Unlock()
		return true
	}
	t := s.findLocked(id)
	if t == nil {
		s.mu.Unlock()
		log.Debug("shell tab activate ignored", "err", schema.ErrTabNotFound)
		return false
	}
	events := s.activateLocked(t)
	s.mu.Unlock()

	s.emit(events)
	log.Info("shell tab activated")
	return true
}

// CloseTab removes a tab. When the closed tab was active its left neighbour
// (or the new first tab) becomes active; when no tab remains a fresh tab is
// opened at the homepage. Unknown ids are ignored.
func (s *Shell) CloseTab(ctx context.Context, id schema.TabID) error {
	log := logx.WithTab(ctx, id)
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		log.Debug("shell tab close ignored", "err", schema.ErrTabNotFound)
		return nil
	}
	t := s.tabs[idx]
	s.tabs = append(s.tabs[:idx:idx], s.tabs[idx+1:]...)
	events := []any{}
	wasActive := s.active == id
	reopen := false
	if wasActive {
		s.active = ""
		if len(s.tabs) > 0 {
			next := idx - 1
			if next < 0 {
				next = 0
			}
			events = append(events, s.activateLocked(s.tabs[next])...)
		} else {
			reopen = true
		}
	}
	events = append([]any{schema.TabEvent{
		Type:      schema.TabEventClosed,
		Tab:       t.Snapshot(false),
		ActiveTab: s.active,
	}}, events...)
	homepage := s.settings.Homepage
	s.mu.Unlock()

	if err := t.view.Close(); err != nil {
		log.Warn("shell view close failed", "err", err)
	}
	s.emit(events)
	log.Info("shell tab closed", "was_active", wasActive)
	if reopen {
		if _, err := s.CreateTab(ctx, homepage); err != nil {
			log.Warn("shell homepage reopen failed; no tabs left", "homepage", homepage, "err", err)
			return fmt.Errorf("reopen homepage: %w", err)
		}
	}
	return nil
}

// CloseActiveTab closes the active tab, if any.
func (s *Shell) CloseActiveTab(ctx context.Context) error {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == "" {
		return nil
	}
	return s.CloseTab(ctx, active)
}

// Tabs lists tab snapshots in display order.
func (s *Shell) Tabs() []schema.TabSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.TabSnapshot, 0, len(s.tabs))
	for _, t := range s.tabs {
		out = append(out, t.Snapshot(t.ID == s.active))
	}
	return out
}

// Tab returns the snapshot of a single tab.
func (s *Shell) Tab(id schema.TabID) (schema.TabSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findLocked(id)
	if t == nil {
		return schema.TabSnapshot{}, false
	}
	return t.Snapshot(t.ID == s.active), true
}

// ActiveTab returns the active tab snapshot.
func (s *Shell) ActiveTab() (schema.TabSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findLocked(s.active)
	if t == nil {
		return schema.TabSnapshot{}, false
	}
	return t.Snapshot(true), true
}

// AddressBar returns the current address bar text.
func (s *Shell) AddressBar() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}

// Settings returns the cached settings record.
func (s *Shell) Settings() schema.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the cached settings record after normalizing it.
func (s *Shell) SetSettings(settings schema.Settings) {
	normalized := schema.NormalizeSettings(settings)
	if normalized != settings {
		s.logger.Warn("shell settings normalized", "homepage", settings.Homepage, "search_engine", settings.SearchEngine)
	}
	s.mu.Lock()
	s.settings = normalized
	s.mu.Unlock()
	s.emit([]any{schema.SettingsEvent{Settings: normalized}})
	s.logger.Debug("shell settings updated", "homepage", normalized.Homepage, "search_engine", normalized.SearchEngine)
}

// Snapshot returns the complete chrome state.
func (s *Shell) Snapshot() schema.ChromeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	tabs := make([]schema.TabSnapshot, 0, len(s.tabs))
	for _, t := range s.tabs {
		tabs = append(tabs, t.Snapshot(t.ID == s.active))
	}
	return schema.ChromeSnapshot{
		Tabs:       tabs,
		ActiveTab:  s.active,
		AddressBar: s.address,
		Settings:   s.settings,
		Bookmarks:  append([]schema.Bookmark(nil), s.cfg.Bookmarks...),
	}
}

// activateLocked hides every other view and shows t. Callers hold s.mu.
func (s *Shell) activateLocked(t *tab) []any {
	for _, other := range s.tabs {
		if other == t {
			continue
		}
		if other.Visible {
			other.view.Hide()
			other.Visible = false
		}
	}
	t.view.Show()
	t.Visible = true
	s.active = t.ID
	s.address = t.currentURL()
	if title := t.view.Title(); title != "" {
		t.Title = title
	}
	return []any{
		schema.TabEvent{Type: schema.TabEventActivated, Tab: t.Snapshot(true), ActiveTab: t.ID},
		schema.AddressEvent{TabID: t.ID, Text: s.address},
	}
}

func (s *Shell) activeView() (WebView, schema.TabID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.findLocked(s.active)
	if t == nil {
		return nil, ""
	}
	return t.view, t.ID
}

func (s *Shell) findLocked(id schema.TabID) *tab {
	if id == "" {
		return nil
	}
	for _, t := range s.tabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *Shell) indexLocked(id schema.TabID) int {
	for i, t := range s.tabs {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Shell) allocateID() schema.TabID {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id := newTabID()
		if _, taken := s.issued[id]; taken {
			continue
		}
		s.issued[id] = struct{}{}
		return id
	}
}

// releaseID forgets an id whose view never came up, so it never referred to a tab.
func (s *Shell) releaseID(id schema.TabID) {
	s.mu.Lock()
	delete(s.issued, id)
	s.mu.Unlock()
}

func (s *Shell) eventContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

func (s *Shell) emit(events []any) {
	if s.sink == nil {
		return
	}
	for _, event := range events {
		switch ev := event.(type) {
		case schema.TabEvent:
			s.sink.OnTabEvent(ev)
		case schema.AddressEvent:
			s.sink.OnAddressEvent(ev)
		case schema.SettingsEvent:
			s.sink.OnSettingsEvent(ev)
		case schema.DownloadEvent:
			s.sink.OnDownloadEvent(ev)
		}
	}
}
