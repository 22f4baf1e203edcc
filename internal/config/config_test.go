package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.App.DataDir = "/tmp/microbot"
	cfg.LLM.APIKey = "sk-test-key-valid"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"data dir", cfg.App.DataDir, "~/.microbot"},
		{"llm provider", cfg.LLM.Provider, "openai"},
		{"logging level", cfg.Logging.Level, "info"},
		{"logging format", cfg.Logging.Format, "json"},
		{"max iterations", cfg.Agent.MaxIterations, 8},
		{"react retries", cfg.Agent.ReactRetries, 4},
		{"max history", cfg.Agent.MaxHistory, 6},
		{"direct tool reply", cfg.Agent.DirectToolReply, true},
		{"selector max tokens", cfg.Agent.SelectorMaxTokens, 64},
		{"routing enabled", cfg.Routing.Enabled, true},
		{"fast tokens", cfg.Routing.FastTokens, 256},
		{"deep temp", cfg.Routing.DeepTemp, 0.7},
		{"delegation max calls", cfg.Delegation.MaxCalls, 3},
		{"delegation timeout", cfg.Delegation.TimeoutSeconds, 12},
		{"rate per min", cfg.Tools.RateLimitPerMin, 10},
		{"rate burst", cfg.Tools.RateLimitBurst, 3},
		{"catchup", cfg.Schedule.CatchupMinutes, 5},
		{"check interval", cfg.Schedule.CheckIntervalSeconds, 10},
		{"inbox interval", cfg.Inbox.CheckIntervalSeconds, 2},
		{"cleanup enabled", cfg.Cleanup.Enabled, true},
		{"cleanup ttl", cfg.Cleanup.TTLDays, 7},
		{"cleanup interval", cfg.Cleanup.IntervalMinutes, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
data_dir = "` + dir + `/data"
timezone = "Europe/Madrid"

[llm]
api_key = "${MICROBOT_TEST_KEY:sk-default-key-1234}"
model = "gpt-4o"

[agent]
direct_tool_reply = false
max_history = 3

[tools]
allowlist = ["get_current_time", "set_schedule"]

[schedule]
catchup_minutes = 15
log = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, dir+"/data", cfg.App.DataDir)
	assert.Equal(t, "Europe/Madrid", cfg.App.Timezone)
	assert.Equal(t, "sk-default-key-1234", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.False(t, cfg.Agent.DirectToolReply, "explicit false wins over default")
	assert.True(t, cfg.Agent.DirectToolReplyWeb, "untouched default stays")
	assert.Equal(t, 3, cfg.Agent.MaxHistory)
	assert.Equal(t, []string{"get_current_time", "set_schedule"}, cfg.Tools.Allowlist)
	assert.Equal(t, 15, cfg.Schedule.CatchupMinutes)
	assert.True(t, cfg.Schedule.Log)
	assert.Equal(t, 10, cfg.Schedule.CheckIntervalSeconds)
	assert.Empty(t, cfg.Validate())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[telegram]\nenabled = true\ntoken = \"${MICROBOT_TEST_TG_TOKEN}\"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MICROBOT_TEST_TG_TOKEN=123456:ABCDEFGHIJKLMNOP\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MICROBOT_TEST_TG_TOKEN") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123456:ABCDEFGHIJKLMNOP", cfg.Telegram.Token)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[app\ndata_dir = "), 0644))
	_, err = Load(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "mock provider needs no key", mutate: func(c *Config) { c.LLM.Provider = "mock"; c.LLM.APIKey = "" }},
		{name: "missing api key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: "llm.api_key is required"},
		{name: "short api key", mutate: func(c *Config) { c.LLM.APIKey = "short" }, wantErr: "too short"},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "zai" }, wantErr: "invalid llm.provider"},
		{name: "telegram without token", mutate: func(c *Config) { c.Telegram.Enabled = true }, wantErr: "telegram.token is required"},
		{name: "bad telegram token", mutate: func(c *Config) { c.Telegram.Enabled = true; c.Telegram.Token = "nocolon" }, wantErr: "invalid format"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: "invalid logging.level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid logging.format"},
		{name: "path traversal", mutate: func(c *Config) { c.App.DataDir = "/srv/../etc" }, wantErr: "path traversal"},
		{name: "catchup below minimum", mutate: func(c *Config) { c.Schedule.CatchupMinutes = -1 }, wantErr: "schedule.catchup_minutes"},
		{name: "interval below minimum", mutate: func(c *Config) { c.Schedule.CheckIntervalSeconds = 1 }, wantErr: "schedule.check_interval_seconds"},
		{name: "temperature out of range", mutate: func(c *Config) { c.Routing.DeepTemp = 3 }, wantErr: "routing.deep_temp"},
		{name: "empty deny command", mutate: func(c *Config) { c.Tools.Shell.DenyCommands = []string{"rm", " "} }, wantErr: "deny_commands"},
		{name: "cleanup ttl", mutate: func(c *Config) { c.Cleanup.TTLDays = -1 }, wantErr: "cleanup.ttl_days"},
		{name: "cleanup disabled skips checks", mutate: func(c *Config) { c.Cleanup.Enabled = false; c.Cleanup.IntervalMinutes = -1 }},
		{name: "metrics path", mutate: func(c *Config) { c.Metrics.Enabled = true; c.Metrics.Path = "metrics" }, wantErr: "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			var messages []string
			for _, err := range errs {
				messages = append(messages, err.Error())
			}
			assert.Contains(t, strings.Join(messages, "\n"), tt.wantErr)
		})
	}
}

func TestMasked(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.APIKey = "sk-1234567890abcd"
	cfg.Telegram.Token = "123456:ABCDEFGHIJKLMNOP"

	masked := cfg.Masked()
	assert.Equal(t, "sk-1*********abcd", masked.LLM.APIKey)
	assert.Equal(t, "123456:ABCD********MNOP", masked.Telegram.Token)
	assert.Equal(t, "sk-1234567890abcd", cfg.LLM.APIKey, "original untouched")
}

func TestDirs(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "/tmp/microbot/memory", cfg.MemoryDir())
	assert.Equal(t, "/tmp/microbot/sessions", cfg.SessionsDir())
	assert.Equal(t, "/tmp/microbot/logs/scheduler.log", cfg.SchedulerLogPath())
	assert.Equal(t, "/tmp/microbot/inbox", cfg.InboxDir())
	assert.Equal(t, "/tmp/microbot/inbox/done", cfg.InboxDoneDir())
	assert.Equal(t, "/tmp/microbot/downloads", cfg.DownloadsDir())
}
