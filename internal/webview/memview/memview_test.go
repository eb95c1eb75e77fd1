package memview

import (
	"context"
	"sync"
	"testing"

	"pkt.systems/webshell/core"
	"pkt.systems/webshell/schema"
)

type eventLog struct {
	mu     sync.Mutex
	events []core.ViewEvent
}

func (l *eventLog) handle(ev core.ViewEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) types() []core.ViewEventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.ViewEventType, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Type)
	}
	return out
}

func newTestView(t *testing.T, pageURL string) (*View, *Engine, *eventLog) {
	t.Helper()
	engine := New(nil)
	log := &eventLog{}
	wv, err := engine.NewView(context.Background(), "tab-1", pageURL, log.handle)
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	return wv.(*View), engine, log
}

func TestNewViewStartsAtURL(t *testing.T) {
	view, engine, log := newTestView(t, "https://example.com/start")
	if view.URL() != "https://example.com/start" {
		t.Fatalf("unexpected url %q", view.URL())
	}
	if view.Title() != "example.com" {
		t.Fatalf("unexpected title %q", view.Title())
	}
	if view.CanGoBack() || view.CanGoForward() {
		t.Fatalf("expected no history")
	}
	if len(log.types()) != 0 {
		t.Fatalf("expected no events for initial load")
	}
	if engine.Len() != 1 {
		t.Fatalf("expected engine to track view")
	}
}

func TestLoadURLEmitsNavigationEvents(t *testing.T) {
	view, _, log := newTestView(t, "https://a.example")
	if err := view.LoadURL(context.Background(), "https://b.example/page"); err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []core.ViewEventType{
		core.ViewWillNavigate,
		core.ViewStartLoading,
		core.ViewDidNavigate,
		core.ViewTitleUpdated,
		core.ViewStopLoading,
	}
	got := log.types()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if view.Title() != "b.example" {
		t.Fatalf("unexpected title %q", view.Title())
	}
}

func TestHistoryNavigation(t *testing.T) {
	view, _, _ := newTestView(t, "https://a.example")
	ctx := context.Background()
	view.LoadURL(ctx, "https://b.example")
	view.LoadURL(ctx, "https://c.example")

	if err := view.GoBack(ctx); err != nil {
		t.Fatalf("back: %v", err)
	}
	if err := view.GoBack(ctx); err != nil {
		t.Fatalf("back: %v", err)
	}
	if view.URL() != "https://a.example" || view.CanGoBack() {
		t.Fatalf("expected first entry, got %q", view.URL())
	}
	if err := view.GoBack(ctx); err == nil {
		t.Fatalf("expected error past history start")
	}
	if err := view.GoForward(ctx); err != nil {
		t.Fatalf("forward: %v", err)
	}
	view.LoadURL(ctx, "https://d.example")
	history, index := view.History()
	if len(history) != 3 || history[2] != "https://d.example" || index != 2 {
		t.Fatalf("expected forward history truncated, got %v @%d", history, index)
	}
	if view.CanGoForward() {
		t.Fatalf("expected no forward history")
	}
}

func TestNavigateInPageReplacesEntry(t *testing.T) {
	view, _, log := newTestView(t, "https://a.example")
	view.NavigateInPage("https://a.example/#top")
	if view.URL() != "https://a.example/#top" {
		t.Fatalf("unexpected url %q", view.URL())
	}
	if got := log.types(); len(got) != 1 || got[0] != core.ViewDidNavigateInPage {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestReloadEmitsLoadCycle(t *testing.T) {
	view, _, log := newTestView(t, "https://example.com/")
	if err := view.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	types := log.types()
	if len(types) != 2 || types[0] != core.ViewStartLoading || types[1] != core.ViewStopLoading {
		t.Fatalf("unexpected events %v", types)
	}
	if view.Reloads() != 1 {
		t.Fatalf("expected one reload, got %d", view.Reloads())
	}
	if view.URL() != "https://example.com/" {
		t.Fatalf("reload changed url to %q", view.URL())
	}
}

func TestCloseStopsEvents(t *testing.T) {
	view, engine, log := newTestView(t, "https://a.example")
	if err := view.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if engine.Len() != 0 {
		t.Fatalf("expected engine to forget closed view")
	}
	view.SetTitle("late")
	view.OpenWindow("https://popup.example")
	if len(log.types()) != 0 {
		t.Fatalf("expected no events after close")
	}
	if err := view.LoadURL(context.Background(), "https://b.example"); err != ErrViewClosed {
		t.Fatalf("expected ErrViewClosed, got %v", err)
	}
}

func TestShellIntegration(t *testing.T) {
	engine := New(nil)
	shell, err := core.NewShell(schema.ShellConfig{}, core.ShellDeps{Views: engine})
	if err != nil {
		t.Fatalf("new shell: %v", err)
	}
	ctx := context.Background()
	snap, err := shell.CreateTab(ctx, "https://a.example")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	view, ok := engine.View(snap.ID)
	if !ok || !view.Visible() {
		t.Fatalf("expected visible view for active tab")
	}
	if _, err := shell.SubmitAddress(ctx, "b.example"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	active, _ := shell.ActiveTab()
	if active.Title != "b.example" || shell.AddressBar() != "https://b.example" {
		t.Fatalf("unexpected chrome state %+v %q", active, shell.AddressBar())
	}
	view.OpenWindow("https://popup.example")
	if len(shell.Tabs()) != 2 {
		t.Fatalf("expected popup tab")
	}
}
