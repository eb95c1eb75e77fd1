package format

import (
	"strings"
	"testing"

	"pkt.systems/webshell/internal/eventbus"
	"pkt.systems/webshell/schema"
)

func TestFormatTabEvents(t *testing.T) {
	p := NewPlainRenderer()
	tests := []struct {
		event schema.TabEvent
		want  string
	}{
		{
			event: schema.TabEvent{Type: schema.TabEventCreated, Tab: schema.TabSnapshot{ID: "tab-1", URL: "https://example.com"}},
			want:  `+ tab-1 "New Tab" https://example.com`,
		},
		{
			event: schema.TabEvent{Type: schema.TabEventClosed, Tab: schema.TabSnapshot{ID: "tab-1", Title: "Example"}, ActiveTab: "tab-2"},
			want:  `- tab-1 "Example" (active tab-2)`,
		},
		{
			event: schema.TabEvent{Type: schema.TabEventUpdated, Tab: schema.TabSnapshot{ID: "tab-2", Title: "Loading", Loading: true}},
			want:  `~ tab-2 "Loading"`,
		},
	}
	for _, tc := range tests {
		event := tc.event
		lines, err := p.FormatEvent(eventbus.Event{Type: eventbus.EventTab, Tab: &event})
		if err != nil {
			t.Fatalf("format: %v", err)
		}
		if len(lines) != 1 || lines[0] != tc.want {
			t.Fatalf("expected %q, got %v", tc.want, lines)
		}
	}
}

func TestFormatSettingsNamesEngine(t *testing.T) {
	lines, err := NewPlainRenderer().FormatEvent(eventbus.Event{
		Type:     eventbus.EventSettings,
		Settings: &schema.SettingsEvent{Settings: schema.Settings{Homepage: "https://example.org", SearchEngine: "https://duckduckgo.com/?q="}},
	})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if len(lines) != 3 || !strings.Contains(lines[2], "DuckDuckGo") {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestFormatDownloadProgress(t *testing.T) {
	item := schema.DownloadItem{Filename: "a.zip", State: "progressing", ReceivedBytes: 512 * 1024, TotalBytes: 1024 * 1024}
	if got := formatDownload(item); got != "download progressing a.zip 50% (512.0KiB/1.0MiB)" {
		t.Fatalf("unexpected line %q", got)
	}
	if got := formatDownload(schema.DownloadItem{URL: "https://example.com/b"}); got != "download unknown https://example.com/b" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestFormatEventRejectsMissingPayload(t *testing.T) {
	if _, err := NewPlainRenderer().FormatEvent(eventbus.Event{Type: eventbus.EventAddress}); err == nil {
		t.Fatalf("expected error for address event without payload")
	}
}
