package core

import "pkt.systems/webshell/schema"

// RecordDownload stores a host download notification and publishes it.
func (s *Shell) RecordDownload(item schema.DownloadItem) {
	s.mu.Lock()
	s.downloads = append(s.downloads, item)
	if len(s.downloads) > maxDownloads {
		s.downloads = append([]schema.DownloadItem(nil), s.downloads[len(s.downloads)-maxDownloads:]...)
	}
	s.mu.Unlock()
	s.emit([]any{schema.DownloadEvent{Item: item}})
	s.logger.Info("shell download", "url", item.URL, "filename", item.Filename, "state", item.State)
}

// Downloads returns the recent download notifications, oldest first.
func (s *Shell) Downloads() []schema.DownloadItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schema.DownloadItem(nil), s.downloads...)
}
