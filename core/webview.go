package core

import (
	"context"

	"pkt.systems/webshell/schema"
)

// ViewEventType identifies an event reported by an embedded view.
type ViewEventType string

const (
	// ViewStartLoading fires when the view starts loading a page.
	ViewStartLoading ViewEventType = "did-start-loading"
	// ViewStopLoading fires when the view stops loading.
	ViewStopLoading ViewEventType = "did-stop-loading"
	// ViewTitleUpdated fires when the page title changes.
	ViewTitleUpdated ViewEventType = "page-title-updated"
	// ViewNewWindow fires when the page asks for a new window.
	ViewNewWindow ViewEventType = "new-window"
	// ViewWillNavigate fires before a full navigation.
	ViewWillNavigate ViewEventType = "will-navigate"
	// ViewDidNavigate fires after a full navigation.
	ViewDidNavigate ViewEventType = "did-navigate"
	// ViewDidNavigateInPage fires after a same-document navigation.
	ViewDidNavigateInPage ViewEventType = "did-navigate-in-page"
)

// ViewEvent is a single event emitted by an embedded view.
type ViewEvent struct {
	Type  ViewEventType
	URL   string
	Title string
}

// ViewEventHandler receives events for one view. Implementations of WebView
// call it from any goroutine and must not call it while holding their own locks.
type ViewEventHandler func(ViewEvent)

// WebView is the embedded web-rendering component backing a tab. URL, Title,
// Show and Hide must not block on I/O; the navigation methods may.
type WebView interface {
	URL() string
	Title() string
	CanGoBack() bool
	CanGoForward() bool
	LoadURL(ctx context.Context, url string) error
	GoBack(ctx context.Context) error
	GoForward(ctx context.Context) error
	Reload(ctx context.Context) error
	Show()
	Hide()
	Close() error
}

// ViewFactory creates embedded views.
type ViewFactory interface {
	NewView(ctx context.Context, id schema.TabID, url string, handler ViewEventHandler) (WebView, error)
}

// ViewFactoryFunc adapts a function to ViewFactory.
type ViewFactoryFunc func(ctx context.Context, id schema.TabID, url string, handler ViewEventHandler) (WebView, error)

// NewView implements ViewFactory.
func (f ViewFactoryFunc) NewView(ctx context.Context, id schema.TabID, url string, handler ViewEventHandler) (WebView, error) {
	return f(ctx, id, url, handler)
}
