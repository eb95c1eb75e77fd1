// Package cdpview drives Chrome targets over the DevTools protocol as
// embedded web views. Each tab is its own target in one shared browser.
package cdpview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"pkt.systems/pslog"
	"pkt.systems/webshell/core"
	"pkt.systems/webshell/internal/logx"
	"pkt.systems/webshell/schema"
)

// Options configures the browser process.
type Options struct {
	ExecPath string
	Headless bool
	// NoSandbox disables the Chrome sandbox, needed when running as root.
	NoSandbox bool
	// ActionTimeout bounds each protocol round trip issued outside a caller
	// context (history checks, show, close).
	ActionTimeout time.Duration
}

const defaultActionTimeout = 10 * time.Second

// Engine owns the browser process and creates one target per view.
type Engine struct {
	opts          Options
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	log           pslog.Logger

	mu     sync.Mutex
	views  map[schema.TabID]*View
	closed bool
}

var _ core.ViewFactory = (*Engine)(nil)

// New starts the browser. The process lives until Close or until ctx ends.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	log := pslog.Ctx(ctx)
	allocOpts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts, chromedp.Flag("headless", opts.Headless))
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("hide-scrollbars", false), chromedp.Flag("mute-audio", false))
	}
	if opts.NoSandbox {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if path := strings.TrimSpace(opts.ExecPath); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(func(format string, args ...any) {
		log.Warn("cdpview protocol error", "detail", fmt.Sprintf(format, args...))
	}))
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	log.Info("cdpview browser started", "headless", opts.Headless, "exec_path", opts.ExecPath)
	return &Engine{
		opts:          opts,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		log:           log,
		views:         make(map[schema.TabID]*View),
	}, nil
}

// NewView opens a new target and navigates it to pageURL.
func (e *Engine) NewView(ctx context.Context, id schema.TabID, pageURL string, handler core.ViewEventHandler) (core.WebView, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errors.New("browser closed")
	}
	e.mu.Unlock()
	if handler == nil {
		handler = func(core.ViewEvent) {}
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	log := logx.WithURL(logx.WithTab(ctx, id), pageURL)
	v := newView(e, id, tabCtx, cancel, handler, log)
	chromedp.ListenTarget(tabCtx, v.enqueue)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open target: %w", err)
	}
	go v.pump()

	e.mu.Lock()
	e.views[id] = v
	e.mu.Unlock()

	if pageURL != "" {
		if err := v.LoadURL(ctx, pageURL); err != nil {
			_ = v.Close()
			return nil, err
		}
	}
	log.Debug("cdpview view created")
	return v, nil
}

// Close shuts every target and the browser process down.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	views := make([]*View, 0, len(e.views))
	for _, v := range e.views {
		views = append(views, v)
	}
	e.mu.Unlock()
	for _, v := range views {
		_ = v.Close()
	}
	err := chromedp.Cancel(e.browserCtx)
	e.browserCancel()
	e.allocCancel()
	e.log.Info("cdpview browser stopped")
	return err
}

func (e *Engine) forget(id schema.TabID) {
	e.mu.Lock()
	delete(e.views, id)
	e.mu.Unlock()
}
