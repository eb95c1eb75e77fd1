package core

import (
	"context"

	"pkt.systems/webshell/schema"
)

// Bookmarks returns the bookmark bar entries.
func (s *Shell) Bookmarks() []schema.Bookmark {
	return append([]schema.Bookmark(nil), s.cfg.Bookmarks...)
}

// OpenBookmark navigates to the bookmark at index. Out of range indexes are
// ignored.
func (s *Shell) OpenBookmark(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.cfg.Bookmarks) {
		return nil
	}
	return s.NavigateTo(ctx, s.cfg.Bookmarks[index].URL)
}
