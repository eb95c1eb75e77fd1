// Package memview is an in-process view engine. Pages are not rendered; each
// view keeps a back/forward history and reports the same navigation events a
// real engine would, synchronously on the calling goroutine.
package memview

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"pkt.systems/webshell/core"
	"pkt.systems/webshell/internal/logx"
	"pkt.systems/webshell/schema"
)

// ErrViewClosed is returned by operations on a closed view.
var ErrViewClosed = errors.New("view closed")

// TitleFunc derives a page title from its URL.
type TitleFunc func(pageURL string) string

// Engine creates memory views and keeps track of the live ones.
type Engine struct {
	mu    sync.Mutex
	views map[schema.TabID]*View
	title TitleFunc
}

var _ core.ViewFactory = (*Engine)(nil)

// New constructs an engine. A nil title func uses the URL host.
func New(title TitleFunc) *Engine {
	if title == nil {
		title = HostTitle
	}
	return &Engine{views: make(map[schema.TabID]*View), title: title}
}

// NewView creates a view already pointed at pageURL. The initial load does
// not report events since the caller has not registered the tab yet.
func (e *Engine) NewView(ctx context.Context, id schema.TabID, pageURL string, handler core.ViewEventHandler) (core.WebView, error) {
	if handler == nil {
		handler = func(core.ViewEvent) {}
	}
	v := &View{
		engine:  e,
		id:      id,
		history: []string{pageURL},
		title:   e.title(pageURL),
		handler: handler,
	}
	e.mu.Lock()
	e.views[id] = v
	e.mu.Unlock()
	logx.WithURL(logx.WithTab(ctx, id), pageURL).Trace("memview view created")
	return v, nil
}

// View returns the live view for a tab.
func (e *Engine) View(id schema.TabID) (*View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[id]
	return v, ok
}

// Len reports the number of live views.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.views)
}

func (e *Engine) forget(id schema.TabID) {
	e.mu.Lock()
	delete(e.views, id)
	e.mu.Unlock()
}

// HostTitle uses the URL host as the page title.
func HostTitle(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return pageURL
	}
	return parsed.Host
}

// View is a memory-backed web view.
type View struct {
	engine  *Engine
	id      schema.TabID
	mu      sync.Mutex
	history []string
	index   int
	title   string
	visible bool
	closed  bool
	reloads int
	handler core.ViewEventHandler
}

// URL returns the current history entry.
func (v *View) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.history[v.index]
}

// Title returns the page title.
func (v *View) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.title
}

// CanGoBack reports whether there is an earlier history entry.
func (v *View) CanGoBack() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed && v.index > 0
}

// CanGoForward reports whether there is a later history entry.
func (v *View) CanGoForward() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.closed && v.index < len(v.history)-1
}

// LoadURL navigates to pageURL, truncating forward history.
func (v *View) LoadURL(ctx context.Context, pageURL string) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.history = append(v.history[:v.index+1], pageURL)
	v.index = len(v.history) - 1
	v.mu.Unlock()
	v.load(pageURL, true)
	return nil
}

// GoBack moves one entry back in history.
func (v *View) GoBack(ctx context.Context) error {
	return v.step(-1)
}

// GoForward moves one entry forward in history.
func (v *View) GoForward(ctx context.Context) error {
	return v.step(1)
}

// Reload reloads the current entry.
func (v *View) Reload(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	v.reloads++
	v.mu.Unlock()
	v.emit(core.ViewEvent{Type: core.ViewStartLoading})
	v.emit(core.ViewEvent{Type: core.ViewStopLoading})
	return nil
}

// Show marks the view visible.
func (v *View) Show() {
	v.mu.Lock()
	v.visible = true
	v.mu.Unlock()
}

// Hide marks the view hidden.
func (v *View) Hide() {
	v.mu.Lock()
	v.visible = false
	v.mu.Unlock()
}

// Close releases the view. Later events are not reported.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.mu.Unlock()
	v.engine.forget(v.id)
	return nil
}

// Visible reports whether the view is shown.
func (v *View) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// Closed reports whether the view was closed.
func (v *View) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Reloads reports how many times the view was reloaded.
func (v *View) Reloads() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.reloads
}

// History returns the history entries and the current index.
func (v *View) History() ([]string, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.history...), v.index
}

// SetTitle simulates the page changing its title.
func (v *View) SetTitle(title string) {
	v.mu.Lock()
	v.title = title
	v.mu.Unlock()
	v.emit(core.ViewEvent{Type: core.ViewTitleUpdated, Title: title})
}

// OpenWindow simulates the page requesting a new window.
func (v *View) OpenWindow(pageURL string) {
	v.emit(core.ViewEvent{Type: core.ViewNewWindow, URL: pageURL})
}

// NavigateInPage simulates a same-document navigation such as a fragment
// change. It replaces the current history entry.
func (v *View) NavigateInPage(pageURL string) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.history[v.index] = pageURL
	v.mu.Unlock()
	v.emit(core.ViewEvent{Type: core.ViewDidNavigateInPage, URL: pageURL})
}

func (v *View) step(delta int) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	next := v.index + delta
	if next < 0 || next >= len(v.history) {
		v.mu.Unlock()
		return errors.New("no history entry")
	}
	v.index = next
	pageURL := v.history[next]
	v.mu.Unlock()
	v.load(pageURL, false)
	return nil
}

func (v *View) load(pageURL string, willNavigate bool) {
	if willNavigate {
		v.emit(core.ViewEvent{Type: core.ViewWillNavigate, URL: pageURL})
	}
	v.emit(core.ViewEvent{Type: core.ViewStartLoading})
	v.emit(core.ViewEvent{Type: core.ViewDidNavigate, URL: pageURL})
	title := v.engine.title(pageURL)
	v.mu.Lock()
	v.title = title
	v.mu.Unlock()
	v.emit(core.ViewEvent{Type: core.ViewTitleUpdated, Title: title})
	v.emit(core.ViewEvent{Type: core.ViewStopLoading})
}

func (v *View) emit(ev core.ViewEvent) {
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}
	v.handler(ev)
}
