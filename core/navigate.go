package core

import (
	"context"
	"strings"

	"pkt.systems/webshell/internal/logx"
)

// ResolveAddress interprets address bar input. Input containing a dot and no
// space is a URL and gets an https scheme unless it already has http(s);
// anything else is a search query appended to the search engine template.
// Empty input resolves to nothing.
func ResolveAddress(input, searchEngine string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if strings.Contains(trimmed, ".") && !strings.Contains(trimmed, " ") {
		if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
			trimmed = "https://" + trimmed
		}
		return trimmed, true
	}
	return searchEngine + EncodeURIComponent(trimmed), true
}

// EncodeURIComponent percent-encodes s the way browsers encode a URI
// component: everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ) is escaped.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIComponentSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isURIComponentSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

// SubmitAddress handles an address bar submission and returns the URL it
// navigated to. Empty input returns "" without navigating.
func (s *Shell) SubmitAddress(ctx context.Context, input string) (string, error) {
	target, ok := ResolveAddress(input, s.Settings().SearchEngine)
	if !ok {
		return "", nil
	}
	if err := s.NavigateTo(ctx, target); err != nil {
		return "", err
	}
	return target, nil
}

// NavigateTo loads url in the active tab, or opens a tab at url when no tab
// is active.
func (s *Shell) NavigateTo(ctx context.Context, url string) error {
	view, id := s.activeView()
	if view == nil {
		_, err := s.CreateTab(ctx, url)
		return err
	}
	log := logx.WithURL(logx.WithTab(ctx, id), url)
	if err := view.LoadURL(ctx, url); err != nil {
		log.Warn("shell navigate failed", "err", err)
		return err
	}
	log.Debug("shell navigate")
	return nil
}

// GoBack navigates the active tab back when its view has history.
func (s *Shell) GoBack(ctx context.Context) error {
	view, _ := s.activeView()
	if view == nil || !view.CanGoBack() {
		return nil
	}
	return view.GoBack(ctx)
}

// GoForward navigates the active tab forward when its view has history.
func (s *Shell) GoForward(ctx context.Context) error {
	view, _ := s.activeView()
	if view == nil || !view.CanGoForward() {
		return nil
	}
	return view.GoForward(ctx)
}

// Reload reloads the active tab.
func (s *Shell) Reload(ctx context.Context) error {
	view, _ := s.activeView()
	if view == nil {
		return nil
	}
	return view.Reload(ctx)
}

// GoHome navigates to the configured homepage.
func (s *Shell) GoHome(ctx context.Context) error {
	return s.NavigateTo(ctx, s.Settings().Homepage)
}
