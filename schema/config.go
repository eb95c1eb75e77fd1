package schema

// DefaultTabTitle is shown until a page reports its own title.
const DefaultTabTitle = "New Tab"

// ShellConfig defines defaults for the browser shell.
type ShellConfig struct {
	DefaultTitle string
	Bookmarks    []Bookmark
	Settings     Settings
}

// NormalizeShellConfig applies defaults.
func NormalizeShellConfig(cfg ShellConfig) ShellConfig {
	if cfg.DefaultTitle == "" {
		cfg.DefaultTitle = DefaultTabTitle
	}
	if cfg.Bookmarks == nil {
		cfg.Bookmarks = DefaultBookmarks()
	}
	cfg.Settings = NormalizeSettings(cfg.Settings)
	return cfg
}
