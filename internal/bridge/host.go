package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"pkt.systems/pslog"
	"pkt.systems/webshell/schema"
)

// SettingsStore persists the settings record on the host side.
type SettingsStore interface {
	Load() (schema.Settings, error)
	Save(schema.Settings) error
}

// Host is the reference host end of the bridge: it owns settings
// persistence and drives the chrome through the inbound channels.
type Host struct {
	conn  *Conn
	store SettingsStore
}

// NewHost binds the host channels on conn.
func NewHost(conn *Conn, store SettingsStore) *Host {
	h := &Host{conn: conn, store: store}
	conn.Handle(schema.ChannelGetSettings, h.getSettings)
	conn.On(schema.ChannelSaveSettings, h.saveSettings)
	conn.On(schema.ChannelNewTab, h.requestNewTab)
	return h
}

// NewTab asks the chrome to open a tab. An empty url opens the homepage.
func (h *Host) NewTab(ctx context.Context, url string) error {
	var payload any
	if url != "" {
		payload = url
	}
	return h.conn.Send(ctx, schema.ChannelNewTab, payload)
}

// CloseTab asks the chrome to close its active tab.
func (h *Host) CloseTab(ctx context.Context) error {
	return h.conn.Send(ctx, schema.ChannelCloseTab, nil)
}

// GoBack asks the chrome to navigate the active tab back.
func (h *Host) GoBack(ctx context.Context) error {
	return h.conn.Send(ctx, schema.ChannelGoBack, nil)
}

// GoForward asks the chrome to navigate the active tab forward.
func (h *Host) GoForward(ctx context.Context) error {
	return h.conn.Send(ctx, schema.ChannelGoForward, nil)
}

// NotifyDownload forwards a download notification to the chrome.
func (h *Host) NotifyDownload(ctx context.Context, item schema.DownloadItem) error {
	return h.conn.Send(ctx, schema.ChannelDownloadItem, item)
}

func (h *Host) getSettings(ctx context.Context, _ json.RawMessage) (any, error) {
	settings, err := h.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

func (h *Host) saveSettings(ctx context.Context, payload json.RawMessage) {
	log := pslog.Ctx(ctx)
	var settings schema.Settings
	if err := json.Unmarshal(payload, &settings); err != nil {
		log.Warn("host save-settings payload invalid", "err", err)
		return
	}
	settings = schema.NormalizeSettings(settings)
	if err := h.store.Save(settings); err != nil {
		log.Warn("host save-settings failed", "err", err)
		return
	}
	if err := h.conn.Send(ctx, schema.ChannelSettingsUpdated, settings); err != nil {
		log.Warn("host settings-updated failed", "err", err)
		return
	}
	log.Info("host settings saved", "homepage", settings.Homepage, "search_engine", settings.SearchEngine)
}

// requestNewTab answers a page's new-window request by opening the tab.
func (h *Host) requestNewTab(ctx context.Context, payload json.RawMessage) {
	url, err := decodeURL(payload)
	if err != nil {
		pslog.Ctx(ctx).Warn("host new-tab payload invalid", "err", err)
		return
	}
	if err := h.NewTab(ctx, url); err != nil {
		pslog.Ctx(ctx).Warn("host new-tab failed", "err", err)
	}
}
