package schema

const (
	// DefaultHomepage is used when no homepage has been configured.
	DefaultHomepage = "https://www.google.com"
	// DefaultSearchEngine is the search template used when none is configured.
	DefaultSearchEngine = "https://www.google.com/search?q="
)

// Settings is the flat settings record owned by the host process.
type Settings struct {
	Homepage     string `json:"homepage" yaml:"homepage" mapstructure:"homepage"`
	SearchEngine string `json:"searchEngine" yaml:"search_engine" mapstructure:"search_engine"`
}

// SearchEngineOption is one entry of the settings dialog's engine selector.
type SearchEngineOption struct {
	Name     string `json:"name"`
	Template string `json:"template"`
}

// SearchEngineOptions lists the templates offered by the settings dialog.
var SearchEngineOptions = []SearchEngineOption{
	{Name: "Google", Template: DefaultSearchEngine},
	{Name: "Bing", Template: "https://www.bing.com/search?q="},
	{Name: "DuckDuckGo", Template: "https://duckduckgo.com/?q="},
	{Name: "Baidu", Template: "https://www.baidu.com/s?wd="},
}

// DefaultSettings returns the settings record used before the host answers.
func DefaultSettings() Settings {
	return Settings{
		Homepage:     DefaultHomepage,
		SearchEngine: DefaultSearchEngine,
	}
}

// IsOfferedSearchEngine reports whether template is one of SearchEngineOptions.
func IsOfferedSearchEngine(template string) bool {
	for _, opt := range SearchEngineOptions {
		if opt.Template == template {
			return true
		}
	}
	return false
}
