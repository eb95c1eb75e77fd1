package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/webshell"
	"pkt.systems/webshell/core"
	"pkt.systems/webshell/httpapi"
	"pkt.systems/webshell/internal/appconfig"
	"pkt.systems/webshell/internal/eventbus"
	"pkt.systems/webshell/internal/format"
	"pkt.systems/webshell/internal/webview/cdpview"
	"pkt.systems/webshell/internal/webview/memview"
)

type runOptions struct {
	configPath string
	engine     string
	bridgeMode string
	httpAddr   string
	headless   bool
	noHTTP     bool
	watch      bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the browser shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			cfg, err := appconfig.Load(opts.configPath)
			if err != nil {
				return err
			}
			applyRunFlags(cmd, &cfg, opts)

			views, closeViews, err := selectEngine(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = closeViews() }()
			logger.Info("view engine selected", "engine", cfg.Engine, "headless", cfg.Chrome.Headless)

			serverCfg := webshell.ServerConfig{
				Shell:      cfg.CoreShell(),
				HTTP:       httpapi.Config{Addr: cfg.HTTP.Addr},
				HubHistory: 1000,
				Bridge:     webshell.BridgeMode(cfg.Bridge.Mode),
				StateDir:   cfg.StateDir,
			}
			deps := webshell.ServerDeps{Views: views, Logger: logger}
			watchOut := cmd.OutOrStdout()
			if cfg.Bridge.Mode == appconfig.BridgeStdio {
				deps.HostReader = os.Stdin
				deps.HostWriter = os.Stdout
				watchOut = cmd.ErrOrStderr()
			}
			var serverOpts []webshell.ServerOption
			if strings.TrimSpace(cfg.HTTP.Addr) != "" {
				serverOpts = append(serverOpts, webshell.WithHTTP())
			}

			srv, err := webshell.New(serverCfg, deps, serverOpts...)
			if err != nil {
				return err
			}
			if opts.watch {
				events, cancel := srv.Events().Subscribe()
				defer cancel()
				go watchEvents(watchOut, events)
			}
			if err := srv.Start(ctx); err != nil {
				return err
			}
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Stop(stopCtx)
			}()
			return srv.Wait()
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config path (default: ~/.webshell/config.yaml)")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "view engine: memory or chrome")
	cmd.Flags().StringVar(&opts.bridgeMode, "bridge", "", "bridge mode: local or stdio")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "control API listen address")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "run chrome headless")
	cmd.Flags().BoolVar(&opts.noHTTP, "no-http", false, "disable the control API")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "print shell events")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *appconfig.Config, opts runOptions) {
	if opts.engine != "" {
		cfg.Engine = opts.engine
	}
	if opts.bridgeMode != "" {
		cfg.Bridge.Mode = opts.bridgeMode
	}
	if opts.httpAddr != "" {
		cfg.HTTP.Addr = opts.httpAddr
	}
	if cmd.Flags().Changed("headless") {
		cfg.Chrome.Headless = opts.headless
	}
	if opts.noHTTP {
		cfg.HTTP.Addr = ""
	}
}

func selectEngine(ctx context.Context, cfg appconfig.Config) (core.ViewFactory, func() error, error) {
	switch cfg.Engine {
	case appconfig.EngineChrome:
		engine, err := cdpview.New(ctx, cdpview.Options{
			ExecPath:  cfg.Chrome.ExecPath,
			Headless:  cfg.Chrome.Headless,
			NoSandbox: cfg.Chrome.NoSandbox,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("start chrome: %w", err)
		}
		return engine, engine.Close, nil
	case appconfig.EngineMemory, "":
		return memview.New(nil), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported engine %q", cfg.Engine)
	}
}

func watchEvents(w io.Writer, events <-chan eventbus.Event) {
	renderer := format.NewPlainRenderer()
	for ev := range events {
		lines, err := renderer.FormatEvent(ev)
		if err != nil {
			_, _ = fmt.Fprintf(w, "event %s: %v\n", ev.Type, err)
			continue
		}
		for _, line := range lines {
			_, _ = fmt.Fprintln(w, line)
		}
	}
}
