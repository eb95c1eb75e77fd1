package core

import "pkt.systems/pslog"

// ShellDeps captures dependencies for the shell.
type ShellDeps struct {
	Views     ViewFactory
	Host      Host
	EventSink EventSink
	Logger    pslog.Logger
}
