package webshell

import (
	"pkt.systems/webshell/core"
	"pkt.systems/webshell/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnTabEvent(event schema.TabEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTabEvent(event)
	}
}

func (f eventFanout) OnAddressEvent(event schema.AddressEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnAddressEvent(event)
	}
}

func (f eventFanout) OnSettingsEvent(event schema.SettingsEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSettingsEvent(event)
	}
}

func (f eventFanout) OnDownloadEvent(event schema.DownloadEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnDownloadEvent(event)
	}
}
