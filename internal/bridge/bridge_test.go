package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"pkt.systems/webshell/core"
	"pkt.systems/webshell/internal/persist"
	"pkt.systems/webshell/internal/settingsui"
	"pkt.systems/webshell/internal/webview/memview"
	"pkt.systems/webshell/schema"
)

type harness struct {
	shell  *core.Shell
	engine *memview.Engine
	store  *persist.Store
	host   *Host
	remote *Renderer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := persist.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	chromeEnd, hostEnd := servePair(t)
	renderer := NewRenderer(chromeEnd)
	engine := memview.New(nil)
	shell, err := core.NewShell(schema.ShellConfig{}, core.ShellDeps{Views: engine, Host: renderer})
	if err != nil {
		t.Fatalf("new shell: %v", err)
	}
	renderer.Bind(shell)
	return &harness{
		shell:  shell,
		engine: engine,
		store:  store,
		host:   NewHost(hostEnd, store),
		remote: renderer,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSettingsRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	got, err := h.remote.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got != schema.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}

	want := schema.Settings{Homepage: "https://example.com", SearchEngine: "https://duckduckgo.com/?q="}
	if err := h.remote.SaveSettings(ctx, want); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	got, err = h.remote.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: want %+v got %+v", want, got)
	}
	waitFor(t, "settings-updated", func() bool { return h.shell.Settings() == want })

	stored, err := h.store.Load()
	if err != nil || stored != want {
		t.Fatalf("expected persisted settings, got %+v %v", stored, err)
	}
}

func TestDialogSubmitMatchesStoredSettings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := settingsui.New(h.remote).Submit(ctx, settingsui.Form{Homepage: "  example.org  ", SearchEngine: schema.DefaultSearchEngine}); !errors.Is(err, schema.ErrInvalidHomepage) {
		t.Fatalf("expected ErrInvalidHomepage, got %v", err)
	}

	submitted, err := settingsui.New(h.remote).Submit(ctx, settingsui.Form{Homepage: "  https://example.org/start  ", SearchEngine: "https://www.bing.com/search?q="})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	stored, err := h.remote.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if submitted != stored {
		t.Fatalf("submit returned %+v, host stored %+v", submitted, stored)
	}
}

func TestInitOverBridge(t *testing.T) {
	h := newHarness(t)
	want := schema.Settings{Homepage: "https://home.example", SearchEngine: schema.DefaultSearchEngine}
	if err := h.store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := h.shell.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	tabs := h.shell.Tabs()
	if len(tabs) != 1 || tabs[0].URL != "https://home.example" {
		t.Fatalf("expected homepage tab, got %+v", tabs)
	}
}

func TestHostDrivesChrome(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.shell.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	if err := h.host.NewTab(ctx, "https://b.example"); err != nil {
		t.Fatalf("new tab: %v", err)
	}
	waitFor(t, "new tab", func() bool { return len(h.shell.Tabs()) == 2 })
	if tabs := h.shell.Tabs(); tabs[1].URL != "https://b.example" {
		t.Fatalf("unexpected tabs %+v", tabs)
	}

	if err := h.host.NewTab(ctx, ""); err != nil {
		t.Fatalf("new tab: %v", err)
	}
	waitFor(t, "homepage tab", func() bool { return len(h.shell.Tabs()) == 3 })
	if tabs := h.shell.Tabs(); tabs[2].URL != schema.DefaultHomepage {
		t.Fatalf("expected homepage for empty new-tab, got %+v", tabs[2])
	}

	if _, err := h.shell.SubmitAddress(ctx, "c.example"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.host.GoBack(ctx); err != nil {
		t.Fatalf("go back: %v", err)
	}
	waitFor(t, "go-back", func() bool { return h.shell.AddressBar() == schema.DefaultHomepage })
	if err := h.host.GoForward(ctx); err != nil {
		t.Fatalf("go forward: %v", err)
	}
	waitFor(t, "go-forward", func() bool { return h.shell.AddressBar() == "https://c.example" })

	active, _ := h.shell.ActiveTab()
	if err := h.host.CloseTab(ctx); err != nil {
		t.Fatalf("close tab: %v", err)
	}
	waitFor(t, "close-tab", func() bool {
		_, ok := h.shell.Tab(active.ID)
		return !ok
	})
	if len(h.shell.Tabs()) != 2 {
		t.Fatalf("expected two tabs left")
	}

	if err := h.host.NotifyDownload(ctx, schema.DownloadItem{URL: "https://c.example/f.zip", Filename: "f.zip", State: "completed"}); err != nil {
		t.Fatalf("notify download: %v", err)
	}
	waitFor(t, "download-item", func() bool { return len(h.shell.Downloads()) == 1 })
}

func TestNewWindowRoundTripsThroughHost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if err := h.shell.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	active, _ := h.shell.ActiveTab()
	view, ok := h.engine.View(active.ID)
	if !ok {
		t.Fatalf("missing view")
	}
	view.OpenWindow("https://popup.example")
	waitFor(t, "popup tab", func() bool { return len(h.shell.Tabs()) == 2 })
	if tabs := h.shell.Tabs(); tabs[1].URL != "https://popup.example" {
		t.Fatalf("unexpected popup tab %+v", tabs[1])
	}
}

func TestDecodeURL(t *testing.T) {
	cases := map[string]string{
		``:                      "",
		`null`:                  "",
		`" https://a.example "`: "https://a.example",
	}
	for in, want := range cases {
		got, err := decodeURL([]byte(in))
		if err != nil || got != want {
			t.Fatalf("decodeURL(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := decodeURL([]byte(`{}`)); err == nil {
		t.Fatalf("expected error for object payload")
	}
}
