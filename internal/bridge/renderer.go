package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pkt.systems/pslog"
	"pkt.systems/webshell/core"
	"pkt.systems/webshell/schema"
)

// Renderer is the chrome side of the bridge. It implements core.Host for the
// outbound channels and routes inbound channels into a shell.
type Renderer struct {
	conn *Conn
}

var _ core.Host = (*Renderer)(nil)

// NewRenderer wraps the chrome end of a bridge connection.
func NewRenderer(conn *Conn) *Renderer {
	return &Renderer{conn: conn}
}

// RequestNewTab asks the host to open a tab at url.
func (r *Renderer) RequestNewTab(ctx context.Context, url string) error {
	return r.conn.Send(ctx, schema.ChannelNewTab, url)
}

// SaveSettings hands the settings record to the host for persistence.
func (r *Renderer) SaveSettings(ctx context.Context, settings schema.Settings) error {
	return r.conn.Send(ctx, schema.ChannelSaveSettings, settings)
}

// GetSettings fetches the settings record from the host.
func (r *Renderer) GetSettings(ctx context.Context) (schema.Settings, error) {
	var settings schema.Settings
	if err := r.conn.Invoke(ctx, schema.ChannelGetSettings, nil, &settings); err != nil {
		return schema.Settings{}, err
	}
	return settings, nil
}

// Bind routes inbound host messages into the shell.
func (r *Renderer) Bind(shell *core.Shell) {
	r.conn.On(schema.ChannelNewTab, func(ctx context.Context, payload json.RawMessage) {
		url, err := decodeURL(payload)
		if err != nil {
			pslog.Ctx(ctx).Warn("bridge new-tab payload invalid", "err", err)
		}
		if url == "" {
			url = shell.Settings().Homepage
		}
		if _, err := shell.CreateTab(ctx, url); err != nil {
			pslog.Ctx(ctx).Warn("bridge new-tab failed", "err", err)
		}
	})
	r.conn.On(schema.ChannelCloseTab, func(ctx context.Context, _ json.RawMessage) {
		if err := shell.CloseActiveTab(ctx); err != nil {
			pslog.Ctx(ctx).Warn("bridge close-tab failed", "err", err)
		}
	})
	r.conn.On(schema.ChannelGoBack, func(ctx context.Context, _ json.RawMessage) {
		if err := shell.GoBack(ctx); err != nil {
			pslog.Ctx(ctx).Warn("bridge go-back failed", "err", err)
		}
	})
	r.conn.On(schema.ChannelGoForward, func(ctx context.Context, _ json.RawMessage) {
		if err := shell.GoForward(ctx); err != nil {
			pslog.Ctx(ctx).Warn("bridge go-forward failed", "err", err)
		}
	})
	r.conn.On(schema.ChannelSettingsUpdated, func(ctx context.Context, payload json.RawMessage) {
		var settings schema.Settings
		if err := json.Unmarshal(payload, &settings); err != nil {
			pslog.Ctx(ctx).Warn("bridge settings-updated payload invalid", "err", err)
			return
		}
		shell.SetSettings(settings)
	})
	r.conn.On(schema.ChannelDownloadItem, func(ctx context.Context, payload json.RawMessage) {
		var item schema.DownloadItem
		if err := json.Unmarshal(payload, &item); err != nil {
			pslog.Ctx(ctx).Warn("bridge download-item payload invalid", "err", err)
			return
		}
		shell.RecordDownload(item)
	})
}

// decodeURL accepts a JSON string or null.
func decodeURL(payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		return "", nil
	}
	var url *string
	if err := json.Unmarshal(payload, &url); err != nil {
		return "", fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err)
	}
	if url == nil {
		return "", nil
	}
	return strings.TrimSpace(*url), nil
}
