package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/microbot/internal/cron"
)

// writeConfig writes a minimal config.toml with a temporary data dir.
func writeConfig(t *testing.T, extra string) (path, dataDir string) {
	t.Helper()
	dir := t.TempDir()
	dataDir = filepath.Join(dir, "data")
	content := fmt.Sprintf(`[app]
data_dir = %q

[llm]
provider = "mock"

[logging]
level = "error"
%s`, dataDir, extra)
	path = filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path, dataDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: "+Version)
	assert.Contains(t, out, "Git Commit:")
}

func TestConfigCommands(t *testing.T) {
	t.Run("validate ok", func(t *testing.T) {
		path, _ := writeConfig(t, "")
		out, err := execute(t, "config", "validate", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration is valid")
	})

	t.Run("validate fails", func(t *testing.T) {
		path, _ := writeConfig(t, "\n[telegram]\nenabled = true\n")
		out, err := execute(t, "config", "validate", "--config", path)
		require.Error(t, err)
		assert.Contains(t, out, "telegram.token is required")
	})

	t.Run("show masks secrets", func(t *testing.T) {
		path, dataDir := writeConfig(t, "\n[telegram]\ntoken = \"123456:ABCDEFGHIJKLMNOPQRSTUV\"\n")
		out, err := execute(t, "config", "show", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "data_dir: "+dataDir)
		assert.Contains(t, out, "123456:ABCD")
		assert.NotContains(t, out, "ABCDEFGHIJKLMNOPQRSTUV")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "config", "show", "--config", filepath.Join(t.TempDir(), "none.toml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config file not found")
	})
}

func TestScheduleAddListRemove(t *testing.T) {
	path, dataDir := writeConfig(t, "")

	out, err := execute(t, "schedule", "add", "--config", path, "--cron", "0 9 * * *", "--chat", "555", "--id", "morning", "good", "morning")
	require.NoError(t, err)
	assert.Contains(t, out, "Directive added: morning")

	out, err = execute(t, "schedule", "add", "--config", path, "--cron", "every day at 9am", "--type", "agent", "summarize the news")
	require.NoError(t, err)
	assert.Contains(t, out, "cron: 0 9 * * *")
	assert.Contains(t, out, "type: agent")

	directives, err := cron.NewStorage(dataDir, nil).List()
	require.NoError(t, err)
	require.Len(t, directives, 2)
	assert.Equal(t, cron.Directive{ID: "morning", Cron: "0 9 * * *", Chat: "555", Type: "msg", Content: "good morning"}, directives[0])
	assert.Equal(t, "0", directives[1].Chat)
	assert.Len(t, directives[1].ID, 8)

	out, err = execute(t, "schedule", "list", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "morning")
	assert.Contains(t, out, "summarize the news")
	assert.Contains(t, out, "Total: 2")

	out, err = execute(t, "schedule", "list", "--config", path, "--format", "json")
	require.NoError(t, err)
	var decoded []cron.Directive
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, directives, decoded)

	out, err = execute(t, "schedule", "list", "--config", path, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "id: morning")

	_, err = execute(t, "schedule", "list", "--config", path, "--format", "xml")
	assert.Error(t, err)

	out, err = execute(t, "schedule", "remove", "--config", path, "morning")
	require.NoError(t, err)
	assert.Contains(t, out, "Directive removed: morning")

	_, err = execute(t, "schedule", "remove", "--config", path, "morning")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestScheduleAdd_Invalid(t *testing.T) {
	path, _ := writeConfig(t, "")

	_, err := execute(t, "schedule", "add", "--config", path, "--cron", "whenever you like", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")

	_, err = execute(t, "schedule", "add", "--config", path, "--cron", "0 9 * * *", "--type", "fax", "hello")
	require.Error(t, err)

	_, err = execute(t, "schedule", "add", "--config", path, "--cron", "0 9 * * *", "--id", "a|b", "hello")
	require.Error(t, err)

	_, err = execute(t, "schedule", "add", "--config", path, "hello")
	require.Error(t, err)
}

func TestScheduleList_Empty(t *testing.T) {
	path, _ := writeConfig(t, "")
	out, err := execute(t, "schedule", "list", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No directives.")
}

func TestScheduleCheck(t *testing.T) {
	path, dataDir := writeConfig(t, "")
	require.NoError(t, cron.NewStorage(dataDir, nil).Append(cron.Directive{
		ID: "ping", Cron: "* * * * *", Chat: "1", Type: "msg", Content: "ping",
	}))

	out, err := execute(t, "schedule", "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run at")
	assert.Contains(t, out, "would fire ping (msg)")
	assert.NoFileExists(t, filepath.Join(dataDir, cron.StateFilename))

	// nothing was consumed, so a second dry run sees the same directive
	out, err = execute(t, "schedule", "check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "would fire ping (msg)")
}

func TestScheduleCheck_Apply(t *testing.T) {
	path, dataDir := writeConfig(t, "")
	store := cron.NewStorage(dataDir, nil)
	require.NoError(t, store.Append(cron.Directive{
		ID: "ping", Cron: "* * * * *", Chat: "1", Type: "msg", Content: "ping",
	}))
	require.NoError(t, store.Append(cron.Directive{
		ID: "bye", Cron: "* * * * *", Chat: "1", Type: "once", Content: "bye",
	}))

	out, err := execute(t, "schedule", "check", "--apply", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Pass at")
	assert.Contains(t, out, "fired ping (msg)")
	assert.Contains(t, out, "fired bye (once)")
	assert.FileExists(t, filepath.Join(dataDir, cron.StateFilename))

	directives, err := store.List()
	require.NoError(t, err)
	require.Len(t, directives, 1)
	assert.Equal(t, "ping", directives[0].ID)
}
