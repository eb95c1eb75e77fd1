package schema

import (
	"net/url"
	"strings"
)

// NormalizeSettings trims both fields and replaces empty or non-http(s)
// values with their defaults.
func NormalizeSettings(s Settings) Settings {
	return Settings{
		Homepage:     normalizeHTTPURL(s.Homepage, DefaultHomepage),
		SearchEngine: normalizeHTTPURL(s.SearchEngine, DefaultSearchEngine),
	}
}

// ValidSettings reports whether NormalizeSettings leaves s untouched.
func ValidSettings(s Settings) bool {
	return NormalizeSettings(s) == s
}

func normalizeHTTPURL(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	if !IsHTTPURL(trimmed) {
		return fallback
	}
	return trimmed
}

// IsHTTPURL reports whether value is an absolute http or https URL with a host.
func IsHTTPURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return false
	}
	return parsed.Host != ""
}
