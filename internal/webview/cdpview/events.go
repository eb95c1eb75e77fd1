package cdpview

import (
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"pkt.systems/webshell/core"
)

// enqueue is the target listener. It only records the event.
func (v *View) enqueue(ev any) {
	switch ev.(type) {
	case *page.EventFrameStartedLoading, *page.EventFrameStoppedLoading,
		*page.EventFrameNavigated, *page.EventNavigatedWithinDocument,
		*page.EventFrameRequestedNavigation, *page.EventWindowOpen:
	default:
		return
	}
	v.queueMu.Lock()
	v.queue = append(v.queue, ev)
	v.queueMu.Unlock()
	v.signal()
}

func (v *View) signal() {
	select {
	case v.wake <- struct{}{}:
	default:
	}
}

func (v *View) pump() {
	for {
		select {
		case <-v.wake:
		case <-v.ctx.Done():
			return
		}
		v.queueMu.Lock()
		batch := v.queue
		v.queue = nil
		v.queueMu.Unlock()
		for _, ev := range batch {
			if v.isClosed() {
				return
			}
			v.translate(ev)
		}
	}
}

// translate maps main frame protocol events onto view events.
func (v *View) translate(ev any) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return
		}
		pageURL := e.Frame.URL + e.Frame.URLFragment
		v.mu.Lock()
		v.mainFrame = e.Frame.ID
		v.url = pageURL
		v.mu.Unlock()
		v.handler(core.ViewEvent{Type: core.ViewDidNavigate, URL: pageURL})
	case *page.EventNavigatedWithinDocument:
		if !v.isMainFrame(e.FrameID) {
			return
		}
		v.mu.Lock()
		v.url = e.URL
		v.mu.Unlock()
		v.handler(core.ViewEvent{Type: core.ViewDidNavigateInPage, URL: e.URL})
	case *page.EventFrameRequestedNavigation:
		if !v.isMainFrame(e.FrameID) {
			return
		}
		switch e.Disposition {
		case page.ClientNavigationDispositionNewTab, page.ClientNavigationDispositionNewWindow:
			v.handler(core.ViewEvent{Type: core.ViewNewWindow, URL: e.URL})
		case page.ClientNavigationDispositionCurrentTab:
			v.handler(core.ViewEvent{Type: core.ViewWillNavigate, URL: e.URL})
		}
	case *page.EventWindowOpen:
		v.handler(core.ViewEvent{Type: core.ViewNewWindow, URL: e.URL})
	case *page.EventFrameStartedLoading:
		if !v.isMainFrame(e.FrameID) {
			return
		}
		v.handler(core.ViewEvent{Type: core.ViewStartLoading})
	case *page.EventFrameStoppedLoading:
		if !v.isMainFrame(e.FrameID) {
			return
		}
		v.refreshTitle()
		v.handler(core.ViewEvent{Type: core.ViewStopLoading})
	}
}

func (v *View) refreshTitle() {
	var title string
	if err := v.run(v.ctx, chromedp.Title(&title)); err != nil {
		v.log.Debug("cdpview title read failed", "err", err)
		return
	}
	v.mu.Lock()
	changed := title != v.title
	v.title = title
	v.mu.Unlock()
	if changed {
		v.handler(core.ViewEvent{Type: core.ViewTitleUpdated, Title: title})
	}
}

// isMainFrame reports whether id is the main frame. Before the first commit
// the main frame is unknown and every frame is accepted.
func (v *View) isMainFrame(id cdp.FrameID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.mainFrame == "" {
		return true
	}
	return id == v.mainFrame
}
