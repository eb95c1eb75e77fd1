package format

import (
	"fmt"
	"strings"

	"pkt.systems/webshell/internal/eventbus"
	"pkt.systems/webshell/schema"
)

// PlainRenderer formats shell events as plain text lines.
type PlainRenderer struct{}

// NewPlainRenderer returns a default plain-text renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// FormatEvent converts a bus event into user-facing lines.
func (p *PlainRenderer) FormatEvent(event eventbus.Event) ([]string, error) {
	switch event.Type {
	case eventbus.EventTab:
		if event.Tab == nil {
			return nil, fmt.Errorf("tab event without payload")
		}
		return formatTab(*event.Tab), nil
	case eventbus.EventAddress:
		if event.Address == nil {
			return nil, fmt.Errorf("address event without payload")
		}
		return []string{fmt.Sprintf("address %s %s", event.Address.TabID, event.Address.Text)}, nil
	case eventbus.EventSettings:
		if event.Settings == nil {
			return nil, fmt.Errorf("settings event without payload")
		}
		settings := event.Settings.Settings
		return []string{
			"settings updated:",
			"  homepage: " + settings.Homepage,
			"  search engine: " + searchEngineLabel(settings.SearchEngine),
		}, nil
	case eventbus.EventDownload:
		if event.Download == nil {
			return nil, fmt.Errorf("download event without payload")
		}
		return []string{formatDownload(event.Download.Item)}, nil
	default:
		return nil, nil
	}
}

func formatTab(event schema.TabEvent) []string {
	tab := event.Tab
	title := strings.TrimSpace(tab.Title)
	if title == "" {
		title = schema.DefaultTabTitle
	}
	switch event.Type {
	case schema.TabEventCreated:
		return []string{fmt.Sprintf("+ %s %q %s", tab.ID, title, tab.URL)}
	case schema.TabEventClosed:
		line := fmt.Sprintf("- %s %q", tab.ID, title)
		if event.ActiveTab != "" {
			line += " (active " + string(event.ActiveTab) + ")"
		}
		return []string{line}
	case schema.TabEventActivated:
		return []string{fmt.Sprintf("* %s %q %s", tab.ID, title, tab.URL)}
	case schema.TabEventUpdated:
		marker := " "
		if tab.Loading {
			marker = "~"
		}
		return []string{fmt.Sprintf("%s %s %q", marker, tab.ID, title)}
	default:
		return []string{fmt.Sprintf("tab %s %s", event.Type, tab.ID)}
	}
}

func formatDownload(item schema.DownloadItem) string {
	name := item.Filename
	if name == "" {
		name = item.URL
	}
	state := item.State
	if state == "" {
		state = "unknown"
	}
	if item.TotalBytes > 0 {
		percent := item.ReceivedBytes * 100 / item.TotalBytes
		return fmt.Sprintf("download %s %s %d%% (%s/%s)", state, name, percent, formatBytes(item.ReceivedBytes), formatBytes(item.TotalBytes))
	}
	if item.ReceivedBytes > 0 {
		return fmt.Sprintf("download %s %s (%s)", state, name, formatBytes(item.ReceivedBytes))
	}
	return fmt.Sprintf("download %s %s", state, name)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func searchEngineLabel(template string) string {
	for _, opt := range schema.SearchEngineOptions {
		if opt.Template == template {
			return opt.Name + " (" + template + ")"
		}
	}
	return template
}
