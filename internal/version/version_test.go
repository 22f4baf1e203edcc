package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func restore(t *testing.T) {
	t.Helper()
	v, bt, gc, gv := Version, BuildTime, GitCommit, GoVersion
	t.Cleanup(func() {
		Version, BuildTime, GitCommit, GoVersion = v, bt, gc, gv
	})
}

func TestSetInfo(t *testing.T) {
	restore(t)

	SetInfo("1.0.0", "2024-01-01T00:00:00Z", "abc123", "go1.26")
	assert.Equal(t, Info{Version: "1.0.0", BuildTime: "2024-01-01T00:00:00Z", GitCommit: "abc123", GoVersion: "go1.26"}, Get())

	SetInfo("", "", "def456", "")
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "def456", GitCommit)
}

func TestGet_FallsBackToRuntime(t *testing.T) {
	restore(t)
	GoVersion = "unknown"
	assert.Equal(t, runtime.Version(), Get().GoVersion)
}

func TestFormatStartupMessage(t *testing.T) {
	restore(t)
	Version = "1.2.3"
	BuildTime = "2024-06-15T10:30:00Z"
	GitCommit = "abc"

	assert.Equal(t, "MicroBot 1.2.3 started (build 2024-06-15T10:30:00Z, commit abc)", FormatStartupMessage())
}
