package webshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webshell/core"
	"pkt.systems/webshell/httpapi"
	"pkt.systems/webshell/internal/bridge"
	"pkt.systems/webshell/internal/eventbus"
	"pkt.systems/webshell/internal/persist"
	"pkt.systems/webshell/schema"
)

// Server composes the shell, the bridge and the HTTP control API.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
	Shell() *core.Shell
	Events() *eventbus.Bus
	Host() *bridge.Host
}

// BridgeMode selects where the host end of the bridge lives.
type BridgeMode string

const (
	// BridgeLocal runs the reference host in process over an in-memory pipe.
	BridgeLocal BridgeMode = "local"
	// BridgeStdio speaks the bridge protocol with an external host.
	BridgeStdio BridgeMode = "stdio"
)

// ServerConfig configures the compositor.
type ServerConfig struct {
	Shell      schema.ShellConfig
	HTTP       httpapi.Config
	HubHistory int
	Bridge     BridgeMode
	StateDir   string
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	Views  core.ViewFactory
	Logger pslog.Logger
	// Store backs the in-process host. Defaults to a persist.Store in StateDir.
	Store bridge.SettingsStore
	// HostReader and HostWriter carry the stdio bridge.
	HostReader io.Reader
	HostWriter io.Writer
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
}

// WithHTTP enables the HTTP control API.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// New constructs a webshell server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if deps.Views == nil {
		return nil, errors.New("view factory is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	if cfg.Bridge == "" {
		cfg.Bridge = BridgeLocal
	}

	var chromeEnd, hostEnd *bridge.Conn
	var host *bridge.Host
	switch cfg.Bridge {
	case BridgeLocal:
		store := deps.Store
		if store == nil {
			fileStore, err := persist.NewStoreWithLogger(cfg.StateDir, logger)
			if err != nil {
				return nil, err
			}
			store = fileStore
		}
		chromeEnd, hostEnd = bridge.Pipe(logger)
		host = bridge.NewHost(hostEnd, store)
	case BridgeStdio:
		if deps.HostReader == nil || deps.HostWriter == nil {
			return nil, errors.New("stdio bridge requires a reader and writer")
		}
		chromeEnd = bridge.NewConn(deps.HostReader, deps.HostWriter, logger)
	default:
		return nil, fmt.Errorf("unsupported bridge mode %q", cfg.Bridge)
	}
	renderer := bridge.NewRenderer(chromeEnd)

	bus := eventbus.New(logger)
	var hub *httpapi.Hub
	var sink core.EventSink = bus
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HubHistory, logger)
		sink = eventFanout{sinks: []core.EventSink{bus, hub}}
	}

	shell, err := core.NewShell(cfg.Shell, core.ShellDeps{
		Views:     deps.Views,
		Host:      renderer,
		EventSink: sink,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	renderer.Bind(shell)

	var httpSrv *httpapi.Server
	if options.enableHTTP {
		httpSrv = httpapi.NewServer(cfg.HTTP, shell, renderer, hub)
	}

	return &compositeServer{
		cfg:       cfg,
		options:   options,
		shell:     shell,
		bus:       bus,
		host:      host,
		chromeEnd: chromeEnd,
		hostEnd:   hostEnd,
		httpSrv:   httpSrv,
		logger:    logger,
	}, nil
}

type compositeServer struct {
	cfg       ServerConfig
	options   serverOptions
	shell     *core.Shell
	bus       *eventbus.Bus
	host      *bridge.Host
	chromeEnd *bridge.Conn
	hostEnd   *bridge.Conn
	httpSrv   *httpapi.Server
	logger    pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Shell() *core.Shell    { return s.shell }
func (s *compositeServer) Events() *eventbus.Bus { return s.bus }
func (s *compositeServer) Host() *bridge.Host    { return s.host }

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 3)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"bridge", s.cfg.Bridge,
		"http", s.options.enableHTTP,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
	)
	if s.hostEnd != nil {
		go func() {
			if err := s.hostEnd.Serve(s.ctx); err != nil {
				log.Error("bridge host failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	go func() {
		err := s.chromeEnd.Serve(s.ctx)
		if err != nil {
			log.Error("bridge failed", "err", err)
		} else if s.ctx.Err() == nil {
			log.Info("bridge closed by host")
		}
		s.errCh <- err
	}()

	if err := s.shell.Init(s.ctx); err != nil {
		s.cancel()
		return fmt.Errorf("shell init: %w", err)
	}

	if s.options.enableHTTP && s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

// Wait blocks until the context ends, a component fails or the host closes
// the bridge.
func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		_ = s.Stop(context.Background())
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if err := s.chromeEnd.Close(); err != nil {
		log.Debug("bridge close failed", "err", err)
	}
	if s.hostEnd != nil {
		if err := s.hostEnd.Close(); err != nil {
			log.Debug("bridge host close failed", "err", err)
		}
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.chromeEnd.Done():
		log.Info("server stopped")
		return nil
	}
}
