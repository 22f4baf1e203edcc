// Package version holds build metadata injected by the linker.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = "unknown"
)

// Info is a snapshot of the build metadata.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
}

// SetInfo overrides the metadata. Empty values keep the current ones.
func SetInfo(v, bt, gc, gv string) {
	if v != "" {
		Version = v
	}
	if bt != "" {
		BuildTime = bt
	}
	if gc != "" {
		GitCommit = gc
	}
	if gv != "" {
		GoVersion = gv
	}
}

// Get returns the current metadata. An unknown Go version falls back to the
// runtime's.
func Get() Info {
	gv := GoVersion
	if gv == "" || gv == "unknown" {
		gv = runtime.Version()
	}
	return Info{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: gv,
	}
}

// FormatStartupMessage returns the one-line banner logged by serve.
func FormatStartupMessage() string {
	return fmt.Sprintf("MicroBot %s started (build %s, commit %s)", Version, BuildTime, GitCommit)
}
