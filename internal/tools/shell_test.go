package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/microbot/internal/config"
)

func TestMatchPattern(t *testing.T) {
	v := NewShellValidator(nil)

	tests := []struct {
		name     string
		command  string
		pattern  string
		expected bool
	}{
		{name: "exact match", command: "echo hello", pattern: "echo hello", expected: true},
		{name: "base command", command: "git commit", pattern: "git", expected: true},
		{name: "base command mismatch", command: "echo hello", pattern: "git", expected: false},
		{name: "wildcard", command: "git status", pattern: "git *", expected: true},
		{name: "wildcard bare", command: "git", pattern: "git *", expected: true},
		{name: "wildcard prefix only", command: "gitk", pattern: "git *", expected: false},
		{name: "full wildcard", command: "anything", pattern: "*", expected: true},
		{name: "multi word prefix", command: "rm -rf /tmp", pattern: "rm -rf", expected: true},
		{name: "multi word no match", command: "rm -r /tmp", pattern: "rm -rf", expected: false},
		{name: "empty pattern", command: "ls", pattern: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, v.MatchPattern(tt.command, tt.pattern))
		})
	}
}

func TestShellValidator_Validate(t *testing.T) {
	v := NewShellValidator([]string{"rm", "shutdown", "reboot", "mkfs *", "  "})

	tests := []struct {
		command string
		denied  bool
	}{
		{"ls -la", false},
		{"df -h | tail -n 1", false},
		{"rm -rf /", true},
		{"/bin/rm file", true},
		{"sudo shutdown now", true},
		{"ls; rm x", true},
		{"true && reboot", true},
		{"FOO=1 env reboot", true},
		{"mkfs.ext4 /dev/sda", false},
		{"mkfs /dev/sda", true},
		{`echo "rm -rf /"`, false},
		{"echo 'a;b'", false},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			err := v.Validate(tt.command)
			if tt.denied {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Error(t, v.Validate("   "))
	assert.Error(t, v.Validate(`echo "unterminated`))
}

func TestSplitSegments(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, splitSegments("a | b && c; d"))
	assert.Equal(t, []string{`echo "x|y"`}, splitSegments(`echo "x|y"`))
}

func newTestShell(t *testing.T, cfg config.ShellToolConfig) *ShellRunner {
	t.Helper()
	return NewShellRunner(cfg, newTestLogger(t))
}

func TestShellRunner_Run(t *testing.T) {
	r := newTestShell(t, config.ShellToolConfig{Enabled: true, DenyCommands: []string{"rm"}, WorkingDir: t.TempDir()})
	ctx := context.Background()

	assert.Equal(t, "hello", r.Run(ctx, "echo hello"))
	assert.Equal(t, noOutput, r.Run(ctx, "true"))
	assert.Equal(t, "oops\n[exit code 3]", r.Run(ctx, "echo oops >&2; exit 3"))

	out := r.Run(ctx, "rm -rf /tmp/nothing")
	assert.True(t, strings.HasPrefix(out, "Error: command denied"), out)
}

func TestShellRunner_Timeout(t *testing.T) {
	r := newTestShell(t, config.ShellToolConfig{TimeoutSeconds: 1})
	out := r.Run(context.Background(), "sleep 5")
	assert.Equal(t, "Error: command timed out after 1s", out)
}

func TestShellRunner_OutputCap(t *testing.T) {
	r := newTestShell(t, config.ShellToolConfig{MaxOutputBytes: 10})
	out := r.Run(context.Background(), "printf 'abcdefghijklmnopqrstuvwxyz'")
	assert.Equal(t, "abcdefghij"+truncatedSuffix, out)
}

func TestRunCommandTool(t *testing.T) {
	tool := NewRunCommandTool(newTestShell(t, config.ShellToolConfig{DenyCommands: []string{"reboot"}}))
	ctx := context.Background()

	out, err := tool.Execute(ctx, `{"command":"echo hi"}`)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	_, err = tool.Execute(ctx, `{}`)
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeInvalidArgs, toolErr.Code)

	_, err = tool.Execute(ctx, `{"command":"reboot"}`)
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeForbidden, toolErr.Code)
}
