package schema

// DefaultBookmarks returns the built-in bookmark bar entries.
func DefaultBookmarks() []Bookmark {
	return []Bookmark{
		{Title: "Google", URL: "https://www.google.com"},
		{Title: "GitHub", URL: "https://github.com"},
		{Title: "YouTube", URL: "https://youtube.com"},
		{Title: "Reddit", URL: "https://reddit.com"},
	}
}
