package version

import (
	"runtime/debug"
	"strings"
	"time"
)

const (
	defaultModule = "pkt.systems/webshell"
	productName   = "webshell"
	unknown       = "v0.0.0-unknown"
)

// buildVersion is set via -ldflags "-X pkt.systems/webshell/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running build.
type Info struct {
	Product  string `json:"product"`
	Version  string `json:"version"`
	Module   string `json:"module"`
	Revision string `json:"revision,omitempty"`
	Dirty    bool   `json:"dirty,omitempty"`
}

// vcsStamp is the version control data the go tool embeds in binaries.
type vcsStamp struct {
	revision string
	at       time.Time
	modified bool
}

func readStamp(info *debug.BuildInfo) (vcsStamp, bool) {
	if info == nil {
		return vcsStamp{}, false
	}
	var stamp vcsStamp
	var at string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			stamp.revision = setting.Value
		case "vcs.time":
			at = setting.Value
		case "vcs.modified":
			stamp.modified = setting.Value == "true"
		}
	}
	if stamp.revision == "" || at == "" {
		return vcsStamp{}, false
	}
	parsed, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return vcsStamp{}, false
	}
	stamp.at = parsed.UTC()
	return stamp, true
}

// pseudo renders the stamp as a Go pseudo-version.
func (s vcsStamp) pseudo(withDirty bool) string {
	rev := s.revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	v := "v0.0.0-" + s.at.Format("20060102150405") + "-" + rev
	if withDirty && s.modified {
		v += "+dirty"
	}
	return v
}

func resolve(withDirty bool) string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return trimDirty(v, withDirty)
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return unknown
	}
	if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
		return trimDirty(v, withDirty)
	}
	if stamp, ok := readStamp(info); ok {
		return stamp.pseudo(withDirty)
	}
	return unknown
}

func trimDirty(v string, keep bool) string {
	if keep {
		return v
	}
	return strings.TrimSuffix(v, "+dirty")
}

// Current returns the running version without a dirty suffix.
func Current() string {
	return resolve(false)
}

// CurrentWithDirty is Current with the +dirty suffix kept.
func CurrentWithDirty() string {
	return resolve(true)
}

// Product returns the product token, e.g. "webshell/v1.2.3".
func Product() string {
	return productName + "/" + Current()
}

// Module returns the main module path.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}

// Describe returns the build description reported by the CLI and the
// control API.
func Describe() Info {
	out := Info{Product: productName, Version: CurrentWithDirty(), Module: Module()}
	if info, ok := debug.ReadBuildInfo(); ok {
		if stamp, ok := readStamp(info); ok {
			out.Revision = stamp.revision
			out.Dirty = stamp.modified
		}
	}
	return out
}
