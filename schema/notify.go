package schema

// TabEventType describes tab lifecycle or state changes.
type TabEventType string

const (
	// TabEventCreated indicates a tab was created.
	TabEventCreated TabEventType = "created"
	// TabEventClosed indicates a tab was closed.
	TabEventClosed TabEventType = "closed"
	// TabEventActivated indicates a tab became active.
	TabEventActivated TabEventType = "activated"
	// TabEventUpdated indicates a tab's title or loading state changed.
	TabEventUpdated TabEventType = "updated"
)

// TabEvent represents a change to a tab or the tab list.
type TabEvent struct {
	Type      TabEventType `json:"type"`
	Tab       TabSnapshot  `json:"tab"`
	ActiveTab TabID        `json:"active_tab,omitempty"`
}

// AddressEvent reports a new address bar value.
type AddressEvent struct {
	TabID TabID  `json:"tab_id"`
	Text  string `json:"text"`
}

// SettingsEvent reports a refreshed settings cache.
type SettingsEvent struct {
	Settings Settings `json:"settings"`
}

// DownloadEvent reports a host download notification.
type DownloadEvent struct {
	Item DownloadItem `json:"item"`
}
