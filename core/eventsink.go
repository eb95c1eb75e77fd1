package core

import "pkt.systems/webshell/schema"

// EventSink receives chrome state changes from the shell.
type EventSink interface {
	OnTabEvent(event schema.TabEvent)
	OnAddressEvent(event schema.AddressEvent)
	OnSettingsEvent(event schema.SettingsEvent)
	OnDownloadEvent(event schema.DownloadEvent)
}
