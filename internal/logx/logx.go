package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/webshell/schema"
)

type contextKey int

const (
	tabKey contextKey = iota
	channelKey
)

// WithTab annotates the logger with the tab id if present.
func WithTab(ctx context.Context, tabID schema.TabID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if tabID != "" {
		if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
			return log
		}
		log = log.With("tab", tabID)
	}
	return log
}

// WithChannel annotates the logger with a bridge channel name.
func WithChannel(ctx context.Context, channel schema.Channel) pslog.Logger {
	log := pslog.Ctx(ctx)
	if channel != "" {
		if current, ok := ctx.Value(channelKey).(schema.Channel); ok && current == channel {
			return log
		}
		log = log.With("channel", channel)
	}
	return log
}

// WithURL annotates the logger with a page URL when available.
func WithURL(log pslog.Logger, url string) pslog.Logger {
	if url != "" {
		log = log.With("url", url)
	}
	return log
}

// ContextWithTab stores the tab marker on the context for log de-duplication.
func ContextWithTab(ctx context.Context, tabID schema.TabID) context.Context {
	if ctx == nil || tabID == "" {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}

// ContextWithTabLogger attaches the logger and tab marker to the context.
func ContextWithTabLogger(ctx context.Context, log pslog.Logger, tabID schema.TabID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithTab(ctx, tabID)
}

// ContextWithChannelLogger attaches the logger and channel marker to the context.
func ContextWithChannelLogger(ctx context.Context, log pslog.Logger, channel schema.Channel) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	if channel == "" {
		return ctx
	}
	return context.WithValue(ctx, channelKey, channel)
}

// CopyContextFields copies tab/channel markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if tab, ok := src.Value(tabKey).(schema.TabID); ok && tab != "" {
		dst = ContextWithTab(dst, tab)
	}
	if channel, ok := src.Value(channelKey).(schema.Channel); ok && channel != "" {
		dst = context.WithValue(dst, channelKey, channel)
	}
	return dst
}
