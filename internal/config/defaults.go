package config

// Default returns a configuration with every default applied. Load decodes the
// TOML file on top of it, so boolean switches that default to true stay true
// unless the file turns them off.
func Default() *Config {
	cfg := &Config{
		Agent: AgentConfig{
			DirectToolReply:    true,
			DirectToolReplyWeb: true,
		},
		Routing: RoutingConfig{
			Enabled: true,
		},
		Delegation: DelegationConfig{
			Enabled: true,
		},
		Tools: ToolsConfig{
			File:  FileToolConfig{Enabled: true},
			Shell: ShellToolConfig{Enabled: true},
			Fetch: FetchToolConfig{Enabled: true},
		},
		Schedule: ScheduleConfig{
			Enabled: true,
		},
		Inbox: InboxConfig{
			Enabled: true,
		},
		Cleanup: CleanupConfig{
			Enabled: true,
		},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults применяет значения по умолчанию к незаданным числовым и строковым полям
func applyDefaults(c *Config) {
	if c.App.DataDir == "" {
		c.App.DataDir = "~/.microbot"
	}
	if c.App.TimeAPIURL == "" {
		c.App.TimeAPIURL = "http://worldtimeapi.org/api/timezone/"
	}
	if c.App.TimeAPITimeout == 0 {
		c.App.TimeAPITimeout = 5
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Telegram.SendTimeoutSeconds == 0 {
		c.Telegram.SendTimeoutSeconds = 10
	}
	if c.Telegram.PollTimeoutSeconds == 0 {
		c.Telegram.PollTimeoutSeconds = 30
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 512
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 60
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 2
	}
	if c.LLM.RetryBackoffMs == 0 {
		c.LLM.RetryBackoffMs = 500
	}

	if c.Agent.MaxIterations == 0 {
		c.Agent.MaxIterations = 8
	}
	if c.Agent.ReactRetries == 0 {
		c.Agent.ReactRetries = 4
	}
	if c.Agent.MaxHistory == 0 {
		c.Agent.MaxHistory = 6
	}
	if c.Agent.WaitAfterSeconds == 0 {
		c.Agent.WaitAfterSeconds = 5
	}
	if c.Agent.SelectorMaxTokens == 0 {
		c.Agent.SelectorMaxTokens = 64
	}
	if len(c.Agent.ProtectedFiles) == 0 {
		c.Agent.ProtectedFiles = []string{"config.toml", ".env", "bin/microbot"}
	}

	if c.Routing.LongMessageChars == 0 {
		c.Routing.LongMessageChars = 500
	}
	if len(c.Routing.DeepKeywords) == 0 {
		c.Routing.DeepKeywords = []string{"design", "architecture", "refactor", "proposal", "spec", "plan", "analysis"}
	}
	if len(c.Routing.FastKeywords) == 0 {
		c.Routing.FastKeywords = []string{"time", "weather", "status", "uptime", "ip", "ping", "memory", "ram", "disk"}
	}
	if c.Routing.FastTokens == 0 {
		c.Routing.FastTokens = 256
	}
	if c.Routing.FastTemp == 0 {
		c.Routing.FastTemp = 0.2
	}
	if c.Routing.BalancedTokens == 0 {
		c.Routing.BalancedTokens = 512
	}
	if c.Routing.BalancedTemp == 0 {
		c.Routing.BalancedTemp = 0.4
	}
	if c.Routing.DeepTokens == 0 {
		c.Routing.DeepTokens = 1024
	}
	if c.Routing.DeepTemp == 0 {
		c.Routing.DeepTemp = 0.7
	}

	if c.Delegation.MaxCalls == 0 {
		c.Delegation.MaxCalls = 3
	}
	if c.Delegation.MaxTokensPerCall == 0 {
		c.Delegation.MaxTokensPerCall = 256
	}
	if c.Delegation.TimeoutSeconds == 0 {
		c.Delegation.TimeoutSeconds = 12
	}
	if len(c.Delegation.Keywords) == 0 {
		c.Delegation.Keywords = []string{"plan", "design", "architecture", "proposal", "spec"}
	}

	if c.Tools.RateLimitPerMin == 0 {
		c.Tools.RateLimitPerMin = 10
	}
	if c.Tools.RateLimitBurst == 0 {
		c.Tools.RateLimitBurst = 3
	}
	if c.Tools.Shell.TimeoutSeconds == 0 {
		c.Tools.Shell.TimeoutSeconds = 30
	}
	if c.Tools.Shell.MaxOutputBytes == 0 {
		c.Tools.Shell.MaxOutputBytes = 4000
	}
	if c.Tools.Fetch.TimeoutSeconds == 0 {
		c.Tools.Fetch.TimeoutSeconds = 15
	}
	if c.Tools.Fetch.MaxResponseSize == 0 {
		c.Tools.Fetch.MaxResponseSize = 5 << 20
	}
	if c.Tools.Fetch.UserAgent == "" {
		c.Tools.Fetch.UserAgent = "microbot/1.0"
	}

	if c.Schedule.CatchupMinutes == 0 {
		c.Schedule.CatchupMinutes = 5
	}
	if c.Schedule.CheckIntervalSeconds == 0 {
		c.Schedule.CheckIntervalSeconds = 10
	}

	if c.Inbox.CheckIntervalSeconds == 0 {
		c.Inbox.CheckIntervalSeconds = 2
	}

	if c.Cleanup.TTLDays == 0 {
		c.Cleanup.TTLDays = 7
	}
	if c.Cleanup.IntervalMinutes == 0 {
		c.Cleanup.IntervalMinutes = 60
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = "127.0.0.1:9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}
