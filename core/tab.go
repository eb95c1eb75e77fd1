package core

import "pkt.systems/webshell/schema"

// tab tracks the state of a single open page.
type tab struct {
	ID      schema.TabID
	Title   string
	URL     string
	Visible bool
	Loading bool
	view    WebView
}

func (t *tab) currentURL() string {
	if u := t.view.URL(); u != "" {
		return u
	}
	return t.URL
}

// Snapshot returns a transport-friendly view of the tab.
func (t *tab) Snapshot(active bool) schema.TabSnapshot {
	return schema.TabSnapshot{
		ID:      t.ID,
		Title:   t.Title,
		URL:     t.currentURL(),
		Active:  active,
		Loading: t.Loading,
	}
}
