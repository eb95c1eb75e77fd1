package cdpview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/webshell/core"
	"pkt.systems/webshell/schema"
)

// ErrViewClosed is returned by operations on a closed view.
var ErrViewClosed = errors.New("view closed")

// View is one Chrome target. Protocol events are queued by the target
// listener and translated on a separate goroutine, since listeners must not
// block or issue commands.
type View struct {
	engine  *Engine
	id      schema.TabID
	ctx     context.Context
	cancel  context.CancelFunc
	handler core.ViewEventHandler
	log     pslog.Logger

	mu        sync.Mutex
	url       string
	title     string
	mainFrame cdp.FrameID
	visible   bool
	closed    bool

	queueMu sync.Mutex
	queue   []any
	wake    chan struct{}
}

func newView(e *Engine, id schema.TabID, ctx context.Context, cancel context.CancelFunc, handler core.ViewEventHandler, log pslog.Logger) *View {
	return &View{
		engine:  e,
		id:      id,
		ctx:     ctx,
		cancel:  cancel,
		handler: handler,
		log:     log,
		wake:    make(chan struct{}, 1),
	}
}

// URL returns the last committed main frame URL.
func (v *View) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.url
}

// Title returns the last observed document title.
func (v *View) Title() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.title
}

// CanGoBack asks the target for its navigation history.
func (v *View) CanGoBack() bool {
	index, entries, err := v.history()
	return err == nil && index > 0 && len(entries) > 0
}

// CanGoForward asks the target for its navigation history.
func (v *View) CanGoForward() bool {
	index, entries, err := v.history()
	return err == nil && int(index) < len(entries)-1
}

// LoadURL starts a navigation. It returns once the navigation is committed
// or rejected; load progress is reported through view events.
func (v *View) LoadURL(ctx context.Context, pageURL string) error {
	if v.isClosed() {
		return ErrViewClosed
	}
	return v.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errorText, _, err := page.Navigate(pageURL).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigate %s: %s", pageURL, errorText)
		}
		return nil
	}))
}

// GoBack navigates one history entry back.
func (v *View) GoBack(ctx context.Context) error {
	if v.isClosed() {
		return ErrViewClosed
	}
	return v.run(ctx, chromedp.NavigateBack())
}

// GoForward navigates one history entry forward.
func (v *View) GoForward(ctx context.Context) error {
	if v.isClosed() {
		return ErrViewClosed
	}
	return v.run(ctx, chromedp.NavigateForward())
}

// Reload reloads the current document.
func (v *View) Reload(ctx context.Context) error {
	if v.isClosed() {
		return ErrViewClosed
	}
	return v.run(ctx, chromedp.Reload())
}

// Show brings the target to the front. The protocol call is issued in the
// background so Show never blocks the caller.
func (v *View) Show() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.visible = true
	v.mu.Unlock()
	go func() {
		if err := v.run(context.Background(), chromedp.ActionFunc(func(ctx context.Context) error {
			return page.BringToFront().Do(ctx)
		})); err != nil && !v.isClosed() {
			v.log.Debug("cdpview bring to front failed", "err", err)
		}
	}()
}

// Hide marks the view as hidden. Chrome targets cannot be hidden; the active
// target is the one brought to front.
func (v *View) Hide() {
	v.mu.Lock()
	v.visible = false
	v.mu.Unlock()
}

// Close closes the target.
func (v *View) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.mu.Unlock()

	err := v.run(context.Background(), chromedp.ActionFunc(func(ctx context.Context) error {
		return page.Close().Do(ctx)
	}))
	v.cancel()
	v.engine.forget(v.id)
	v.signal()
	if err != nil && !errors.Is(err, context.Canceled) {
		v.log.Debug("cdpview close failed", "err", err)
		return err
	}
	return nil
}

func (v *View) history() (int64, []*page.NavigationEntry, error) {
	if v.isClosed() {
		return 0, nil, ErrViewClosed
	}
	var (
		index   int64
		entries []*page.NavigationEntry
	)
	err := v.run(context.Background(), chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		index, entries, err = page.GetNavigationHistory().Do(ctx)
		return err
	}))
	return index, entries, err
}

// run executes actions on the target, bounded by the caller context and the
// engine action timeout.
func (v *View) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(v.ctx, v.engine.opts.ActionTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}
