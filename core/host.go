package core

import (
	"context"

	"pkt.systems/webshell/schema"
)

// Host is the outbound half of the bridge: requests the shell sends to the
// host process.
type Host interface {
	RequestNewTab(ctx context.Context, url string) error
	SaveSettings(ctx context.Context, settings schema.Settings) error
	GetSettings(ctx context.Context) (schema.Settings, error)
}
