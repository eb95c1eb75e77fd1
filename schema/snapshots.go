package schema

// TabSnapshot is a transport-friendly view of a tab record.
type TabSnapshot struct {
	ID      TabID  `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Active  bool   `json:"active"`
	Loading bool   `json:"loading,omitempty"`
}

// ChromeSnapshot is the full visible chrome state.
type ChromeSnapshot struct {
	Tabs       []TabSnapshot `json:"tabs"`
	ActiveTab  TabID         `json:"active_tab,omitempty"`
	AddressBar string        `json:"address_bar"`
	Settings   Settings      `json:"settings"`
	Bookmarks  []Bookmark    `json:"bookmarks"`
}
