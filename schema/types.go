package schema

// TabID identifies a browser tab. Ids are opaque and never reused.
type TabID string

// Bookmark is a labeled shortcut shown in the bookmark bar.
type Bookmark struct {
	Title string `json:"title" yaml:"title" mapstructure:"title"`
	URL   string `json:"url" yaml:"url" mapstructure:"url"`
}

// DownloadItem is the host's download notification payload.
type DownloadItem struct {
	URL           string `json:"url,omitempty"`
	Filename      string `json:"filename,omitempty"`
	SavePath      string `json:"savePath,omitempty"`
	State         string `json:"state,omitempty"`
	ReceivedBytes int64  `json:"receivedBytes,omitempty"`
	TotalBytes    int64  `json:"totalBytes,omitempty"`
}
