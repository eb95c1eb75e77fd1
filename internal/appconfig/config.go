package appconfig

import (
	"os"
	"path/filepath"

	"pkt.systems/webshell/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int          `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string       `mapstructure:"state_dir" yaml:"state_dir"`
	Engine        string       `mapstructure:"engine" yaml:"engine"`
	Chrome        ChromeConfig `mapstructure:"chrome" yaml:"chrome"`
	HTTP          HTTPConfig   `mapstructure:"http" yaml:"http"`
	Bridge        BridgeConfig `mapstructure:"bridge" yaml:"bridge"`
	Shell         ShellConfig  `mapstructure:"shell" yaml:"shell"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

const (
	// EngineMemory renders nothing and keeps history in process.
	EngineMemory = "memory"
	// EngineChrome drives a Chrome process over the DevTools protocol.
	EngineChrome = "chrome"
)

const (
	// BridgeLocal runs the reference host in process.
	BridgeLocal = "local"
	// BridgeStdio speaks the bridge protocol on stdin/stdout.
	BridgeStdio = "stdio"
)

// ChromeConfig configures the Chrome view engine.
type ChromeConfig struct {
	ExecPath  string `mapstructure:"exec_path" yaml:"exec_path"`
	Headless  bool   `mapstructure:"headless" yaml:"headless"`
	NoSandbox bool   `mapstructure:"no_sandbox" yaml:"no_sandbox"`
}

// HTTPConfig configures the control API. An empty address disables it.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// BridgeConfig selects where the host side of the bridge lives.
type BridgeConfig struct {
	Mode string `mapstructure:"mode" yaml:"mode"`
}

// ShellConfig configures the browser chrome.
type ShellConfig struct {
	DefaultTitle string            `mapstructure:"default_title" yaml:"default_title"`
	Bookmarks    []schema.Bookmark `mapstructure:"bookmarks" yaml:"bookmarks"`
}

// DefaultConfig returns a config populated with defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".webshell", "state"),
		Engine:        EngineMemory,
		Chrome: ChromeConfig{
			ExecPath: "",
			Headless: false,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:27490",
		},
		Bridge: BridgeConfig{
			Mode: BridgeLocal,
		},
		Shell: ShellConfig{
			DefaultTitle: schema.DefaultTabTitle,
			Bookmarks:    schema.DefaultBookmarks(),
		},
	}, nil
}

// DefaultConfigPath returns the default config location.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".webshell", "config.yaml"), nil
}

// CoreShell converts the shell section to the core config.
func (c Config) CoreShell() schema.ShellConfig {
	return schema.ShellConfig{
		DefaultTitle: c.Shell.DefaultTitle,
		Bookmarks:    append([]schema.Bookmark(nil), c.Shell.Bookmarks...),
	}
}
