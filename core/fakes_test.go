package core

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pkt.systems/webshell/schema"
)

type fakeView struct {
	mu      sync.Mutex
	id      schema.TabID
	url     string
	title   string
	history []string
	index   int
	visible bool
	closed  bool
	loads   []string
	reloads int
	handler ViewEventHandler
	liveURL bool
	loadErr error
}

func (v *fakeView) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.liveURL {
		return ""
	}
	return v.url
}

func (v *fakeView) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.title
}

func (v *fakeView) CanGoBack() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index > 0
}

func (v *fakeView) CanGoForward() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index < len(v.history)-1
}

func (v *fakeView) LoadURL(_ context.Context, url string) error {
	v.mu.Lock()
	if v.loadErr != nil {
		err := v.loadErr
		v.mu.Unlock()
		return err
	}
	v.loads = append(v.loads, url)
	v.history = append(v.history[:v.index+1], url)
	v.index = len(v.history) - 1
	v.url = url
	v.liveURL = true
	v.mu.Unlock()
	v.handler(ViewEvent{Type: ViewDidNavigate, URL: url})
	return nil
}

func (v *fakeView) GoBack(_ context.Context) error {
	v.mu.Lock()
	if v.index == 0 {
		v.mu.Unlock()
		return errors.New("no history")
	}
	v.index--
	v.url = v.history[v.index]
	url := v.url
	v.mu.Unlock()
	v.handler(ViewEvent{Type: ViewDidNavigate, URL: url})
	return nil
}

func (v *fakeView) GoForward(_ context.Context) error {
	v.mu.Lock()
	if v.index >= len(v.history)-1 {
		v.mu.Unlock()
		return errors.New("no forward history")
	}
	v.index++
	v.url = v.history[v.index]
	url := v.url
	v.mu.Unlock()
	v.handler(ViewEvent{Type: ViewDidNavigate, URL: url})
	return nil
}

func (v *fakeView) Reload(_ context.Context) error {
	v.mu.Lock()
	v.reloads++
	v.mu.Unlock()
	return nil
}

func (v *fakeView) Show() {
	v.mu.Lock()
	v.visible = true
	v.mu.Unlock()
}

func (v *fakeView) Hide() {
	v.mu.Lock()
	v.visible = false
	v.mu.Unlock()
}

func (v *fakeView) Close() error {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return nil
}

func (v *fakeView) isVisible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *fakeView) setTitle(title string) {
	v.mu.Lock()
	v.title = title
	v.mu.Unlock()
}

type fakeFactory struct {
	mu    sync.Mutex
	views map[schema.TabID]*fakeView
	order []*fakeView
	err   error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{views: make(map[schema.TabID]*fakeView)}
}

func (f *fakeFactory) NewView(_ context.Context, id schema.TabID, url string, handler ViewEventHandler) (WebView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	v := &fakeView{id: id, url: url, history: []string{url}, handler: handler}
	f.views[id] = v
	f.order = append(f.order, v)
	return v, nil
}

func (f *fakeFactory) view(t *testing.T, id schema.TabID) *fakeView {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.views[id]
	if v == nil {
		t.Fatalf("no view for tab %q", id)
	}
	return v
}

type fakeHost struct {
	mu       sync.Mutex
	settings schema.Settings
	getErr   error
	saved    []schema.Settings
	newTabs  []string
}

func (h *fakeHost) RequestNewTab(_ context.Context, url string) error {
	h.mu.Lock()
	h.newTabs = append(h.newTabs, url)
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) SaveSettings(_ context.Context, settings schema.Settings) error {
	h.mu.Lock()
	h.saved = append(h.saved, settings)
	h.settings = settings
	h.mu.Unlock()
	return nil
}

func (h *fakeHost) GetSettings(_ context.Context) (schema.Settings, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.getErr != nil {
		return schema.Settings{}, h.getErr
	}
	return h.settings, nil
}

type recordingSink struct {
	mu        sync.Mutex
	tabs      []schema.TabEvent
	addresses []schema.AddressEvent
	settings  []schema.SettingsEvent
	downloads []schema.DownloadEvent
}

func (r *recordingSink) OnTabEvent(event schema.TabEvent) {
	r.mu.Lock()
	r.tabs = append(r.tabs, event)
	r.mu.Unlock()
}

func (r *recordingSink) OnAddressEvent(event schema.AddressEvent) {
	r.mu.Lock()
	r.addresses = append(r.addresses, event)
	r.mu.Unlock()
}

func (r *recordingSink) OnSettingsEvent(event schema.SettingsEvent) {
	r.mu.Lock()
	r.settings = append(r.settings, event)
	r.mu.Unlock()
}

func (r *recordingSink) OnDownloadEvent(event schema.DownloadEvent) {
	r.mu.Lock()
	r.downloads = append(r.downloads, event)
	r.mu.Unlock()
}

func (r *recordingSink) tabEventCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}

func newTestShell(t *testing.T, host Host) (*Shell, *fakeFactory, *recordingSink) {
	t.Helper()
	factory := newFakeFactory()
	sink := &recordingSink{}
	shell, err := NewShell(schema.ShellConfig{}, ShellDeps{
		Views:     factory,
		Host:      host,
		EventSink: sink,
	})
	if err != nil {
		t.Fatalf("new shell: %v", err)
	}
	return shell, factory, sink
}

func activeCount(tabs []schema.TabSnapshot) int {
	count := 0
	for _, tab := range tabs {
		if tab.Active {
			count++
		}
	}
	return count
}
