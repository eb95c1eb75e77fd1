package schema

// Channel names a bridge channel. The values must match the host byte for byte.
type Channel string

// Host to renderer.
const (
	// ChannelNewTab opens a tab; the payload is an optional URL string.
	// The renderer sends the same channel to ask the host for a new tab.
	ChannelNewTab Channel = "new-tab"
	// ChannelCloseTab closes the active tab.
	ChannelCloseTab Channel = "close-tab"
	// ChannelGoBack navigates the active tab back.
	ChannelGoBack Channel = "go-back"
	// ChannelGoForward navigates the active tab forward.
	ChannelGoForward Channel = "go-forward"
	// ChannelSettingsUpdated carries a fresh Settings record.
	ChannelSettingsUpdated Channel = "settings-updated"
	// ChannelDownloadItem carries a DownloadItem.
	ChannelDownloadItem Channel = "download-item"
)

// Renderer to host.
const (
	// ChannelSaveSettings persists a Settings record (fire-and-forget).
	ChannelSaveSettings Channel = "save-settings"
	// ChannelGetSettings fetches the Settings record (request/response).
	ChannelGetSettings Channel = "get-settings"
)

// InboundChannels lists the channels the renderer listens on.
var InboundChannels = []Channel{
	ChannelNewTab,
	ChannelCloseTab,
	ChannelGoBack,
	ChannelGoForward,
	ChannelSettingsUpdated,
	ChannelDownloadItem,
}

// OutboundChannels lists the channels the renderer sends on.
var OutboundChannels = []Channel{
	ChannelNewTab,
	ChannelSaveSettings,
	ChannelGetSettings,
}
