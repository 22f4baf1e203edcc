package builders

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/cron"
	"github.com/aatumaykin/microbot/internal/tools"
)

func TestToolsBuilder_RegisterAllTools(t *testing.T) {
	cfg := testConfig(t)
	log := createTestLogger(t)
	cronBuilder := NewCronBuilder(cfg, log)

	registry, err := NewToolsBuilder(cfg, log, cronBuilder.Clock(), cronBuilder.Storage()).RegisterAllTools()
	require.NoError(t, err)

	names := registry.Names()
	for _, name := range []string{
		"get_current_time", "set_schedule", "set_probe", "list_schedules", "remove_schedule",
		"net_check", "run_command", "read_file", "write_file", "list_dir",
		"scrape_web", "download_file", "http_request", "web_search", "get_weather",
	} {
		assert.Contains(t, names, name)
	}
}

func TestToolsBuilder_DisabledGroups(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.Shell.Enabled = false
	cfg.Tools.File.Enabled = false
	cfg.Tools.Fetch.Enabled = false
	log := createTestLogger(t)
	cronBuilder := NewCronBuilder(cfg, log)

	builder := NewToolsBuilder(cfg, log, cronBuilder.Clock(), cronBuilder.Storage())
	assert.Nil(t, builder.Shell())

	registry, err := builder.RegisterAllTools()
	require.NoError(t, err)
	names := registry.Names()
	assert.Len(t, names, 6)
	assert.NotContains(t, names, "run_command")
	assert.NotContains(t, names, "read_file")
	assert.NotContains(t, names, "web_search")
}

func TestToolsBuilder_BuildGateway(t *testing.T) {
	cfg := testConfig(t)
	log := createTestLogger(t)
	cronBuilder := NewCronBuilder(cfg, log)
	builder := NewToolsBuilder(cfg, log, cronBuilder.Clock(), cronBuilder.Storage())

	registry, err := builder.RegisterAllTools()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	gateway, err := builder.BuildGateway(registry, reg)
	require.NoError(t, err)

	assert.Equal(t, "No schedules.", gateway.Execute(context.Background(), "list_schedules", nil))
	assert.Equal(t, "Error: Unknown tool: fly", gateway.Execute(context.Background(), "fly", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "microbot_tool_calls_total" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestToolsBuilder_BuildGateway_Shield(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tools.ShieldFile = filepath.Join(cfg.App.DataDir, "shield.txt")
	require.NoError(t, os.WriteFile(cfg.Tools.ShieldFile, []byte("# destructive\ndeny: rm -rf\n"), 0o644))
	log := createTestLogger(t)
	cronBuilder := NewCronBuilder(cfg, log)
	builder := NewToolsBuilder(cfg, log, cronBuilder.Clock(), cronBuilder.Storage())

	registry, err := builder.RegisterAllTools()
	require.NoError(t, err)
	gateway, err := builder.BuildGateway(registry, nil)
	require.NoError(t, err)

	out := gateway.Execute(context.Background(), "run_command", map[string]any{"command": "rm -rf /tmp/x"})
	assert.Equal(t, tools.MsgBlockedByShield, out)
}

func TestCronBuilder_Journal(t *testing.T) {
	cfg := testConfig(t)
	log := createTestLogger(t)

	cfg.Schedule.Log = false
	journal, err := NewCronBuilder(cfg, log).Journal()
	require.NoError(t, err)
	require.NotNil(t, journal)

	cfg.Schedule.Log = true
	journal, err = NewCronBuilder(cfg, log).Journal()
	require.NoError(t, err)
	journal.Info("pass done")
	require.NoError(t, journal.Close())
	assert.FileExists(t, cfg.SchedulerLogPath())
}

func TestCronBuilder_BuildReconcilerAndScheduler(t *testing.T) {
	cfg := testConfig(t)
	log := createTestLogger(t)
	cronBuilder := NewCronBuilder(cfg, log)

	sender := &channels.RecordingSender{}
	reg := prometheus.NewRegistry()
	reconciler, executor, err := cronBuilder.BuildReconciler(ExecutorDeps{Sender: sender}, log, reg)
	require.NoError(t, err)
	require.NotNil(t, reconciler)
	require.NotNil(t, executor)

	scheduler, err := cronBuilder.BuildScheduler(reconciler)
	require.NoError(t, err)
	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsStarted())
	require.NoError(t, scheduler.Stop(context.Background()))

	var _ cron.PassRunner = reconciler
}

func TestAgentBuilder_BuildLoop(t *testing.T) {
	cfg := testConfig(t)
	log := createTestLogger(t)

	provider, model, err := NewLLMBuilder(cfg, log).Build()
	require.NoError(t, err)

	cronBuilder := NewCronBuilder(cfg, log)
	toolsBuilder := NewToolsBuilder(cfg, log, cronBuilder.Clock(), cronBuilder.Storage())
	registry, err := toolsBuilder.RegisterAllTools()
	require.NoError(t, err)
	gateway, err := toolsBuilder.BuildGateway(registry, nil)
	require.NoError(t, err)

	agentLoop, err := NewAgentBuilder(cfg, log, provider, model).
		BuildLoop(gateway, registry, &channels.RecordingSender{}, prometheus.NewRegistry())
	require.NoError(t, err)

	reply, err := agentLoop.Process(context.Background(), "42", "alice", "tell me a joke")
	require.NoError(t, err)
	assert.Contains(t, reply, "Echo:")

	defs := toolDefinitions(registry)
	require.Len(t, defs, len(registry.Names()))
	for i, name := range registry.Names() {
		assert.Equal(t, name, defs[i].Name)
		assert.NotEmpty(t, defs[i].Description)
		assert.Equal(t, "object", defs[i].Parameters["type"])
	}
}
