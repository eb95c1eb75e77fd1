package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/webshell/core"
	"pkt.systems/webshell/httpapi"
	"pkt.systems/webshell/internal/bridge"
	"pkt.systems/webshell/internal/persist"
	"pkt.systems/webshell/internal/webview/memview"
	"pkt.systems/webshell/schema"
)

type testServer struct {
	shell   *core.Shell
	engine  *memview.Engine
	store   *persist.Store
	host    *bridge.Host
	hub     *httpapi.Hub
	httpSrv *httpapi.Server
	url     string
}

// newTestServer wires the whole stack the way `webshell run` does with the
// local bridge and the memory engine, and serves the control API.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	stateDir := filepath.Join(t.TempDir(), "state")
	store, err := persist.NewStore(stateDir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	chromeEnd, hostEnd := bridge.Pipe(nil)
	host := bridge.NewHost(hostEnd, store)
	renderer := bridge.NewRenderer(chromeEnd)
	go func() { _ = hostEnd.Serve(ctx) }()
	go func() { _ = chromeEnd.Serve(ctx) }()

	hub := httpapi.NewHub(1000, nil)
	engine := memview.New(nil)
	shell, err := core.NewShell(schema.ShellConfig{}, core.ShellDeps{
		Views:     engine,
		Host:      renderer,
		EventSink: hub,
	})
	if err != nil {
		t.Fatal(err)
	}
	renderer.Bind(shell)
	if err := shell.Init(ctx); err != nil {
		t.Fatal(err)
	}

	httpSrv := httpapi.NewServer(httpapi.Config{Addr: "127.0.0.1:0"}, shell, renderer, hub)
	server := httptest.NewServer(httpSrv.Handler())
	t.Cleanup(server.Close)

	return &testServer{
		shell:   shell,
		engine:  engine,
		store:   store,
		host:    host,
		hub:     hub,
		httpSrv: httpSrv,
		url:     server.URL,
	}
}

func writeJSON(t *testing.T, client *http.Client, url string, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func readJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode >= 300 {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatal(err)
	}
}

func eventually(t *testing.T, what string, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func requireLong(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}

func requireChrome(t *testing.T) {
	t.Helper()
	requireLong(t)
	if os.Getenv("WEBSHELL_CHROME_TESTS") != "1" {
		t.Skip("set WEBSHELL_CHROME_TESTS=1 to run chrome tests")
	}
}
