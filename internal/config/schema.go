// Package config provides configuration loading and validation for microbot.
// It supports TOML configuration files with environment variable expansion,
// .env files, default values, and validation.
//
// Configuration structure:
//   - [app]: data directory and timezone
//   - [logging]: Logging level, format, and output
//   - [telegram]: Telegram channel
//   - [llm]: OpenAI-compatible provider
//   - [agent]: orchestration loop behaviour
//   - [routing], [delegation]: tier budgets and the delegation chain
//   - [tools]: allowlist, rate limit, shield, shell and fetch tools
//   - [schedule]: directive reconciler
//   - [inbox]: file queue drain
//   - [cleanup]: retention of archived inbox jobs and downloads
//   - [metrics]: prometheus endpoint
//
// Environment variables:
// Environment variables can be referenced using ${VAR} or ${VAR:default} syntax.
// For example: api_key = "${OPENAI_API_KEY:default_key}"
package config

import "path/filepath"

// Config represents the main application configuration.
type Config struct {
	App        AppConfig        `toml:"app" yaml:"app"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
	Telegram   TelegramConfig   `toml:"telegram" yaml:"telegram"`
	LLM        LLMConfig        `toml:"llm" yaml:"llm"`
	Agent      AgentConfig      `toml:"agent" yaml:"agent"`
	Routing    RoutingConfig    `toml:"routing" yaml:"routing"`
	Delegation DelegationConfig `toml:"delegation" yaml:"delegation"`
	Tools      ToolsConfig      `toml:"tools" yaml:"tools"`
	Schedule   ScheduleConfig   `toml:"schedule" yaml:"schedule"`
	Inbox      InboxConfig      `toml:"inbox" yaml:"inbox"`
	Cleanup    CleanupConfig    `toml:"cleanup" yaml:"cleanup"`
	Metrics    MetricsConfig    `toml:"metrics" yaml:"metrics"`
}

// AppConfig представляет общие настройки приложения
type AppConfig struct {
	DataDir string `toml:"data_dir" yaml:"data_dir"`
	// Timezone is an IANA name resolved through the time API; empty means host local time.
	Timezone       string `toml:"timezone" yaml:"timezone"`
	TimeAPIURL     string `toml:"time_api_url" yaml:"time_api_url"`
	TimeAPITimeout int    `toml:"time_api_timeout_seconds" yaml:"time_api_timeout_seconds"`
}

// LoggingConfig представляет конфигурацию логирования
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
}

// TelegramConfig представляет конфигурацию Telegram канала
type TelegramConfig struct {
	Enabled            bool     `toml:"enabled" yaml:"enabled"`
	Token              string   `toml:"token" yaml:"token"`
	AllowedUsers       []string `toml:"allowed_users" yaml:"allowed_users"`
	AllowedChats       []string `toml:"allowed_chats" yaml:"allowed_chats"`
	SendTimeoutSeconds int      `toml:"send_timeout_seconds" yaml:"send_timeout_seconds"`
	PollTimeoutSeconds int      `toml:"poll_timeout_seconds" yaml:"poll_timeout_seconds"`
}

// LLMConfig представляет конфигурацию LLM провайдера
type LLMConfig struct {
	// Provider is "openai" (any OpenAI-compatible endpoint) or "mock".
	Provider       string `toml:"provider" yaml:"provider"`
	APIKey         string `toml:"api_key" yaml:"api_key"`
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	Model          string `toml:"model" yaml:"model"`
	FallbackModel  string `toml:"fallback_model" yaml:"fallback_model"`
	MaxTokens      int    `toml:"max_tokens" yaml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries" yaml:"max_retries"`
	RetryBackoffMs int    `toml:"retry_backoff_ms" yaml:"retry_backoff_ms"`
}

// AgentConfig представляет конфигурацию agent loop
type AgentConfig struct {
	SystemPrompt  string `toml:"system_prompt" yaml:"system_prompt"`
	MaxIterations int    `toml:"max_iterations" yaml:"max_iterations"`
	ReactRetries  int    `toml:"react_retries" yaml:"react_retries"`
	// MaxHistory is counted in turns; a chat keeps max(4, 2*MaxHistory) messages.
	MaxHistory         int      `toml:"max_history" yaml:"max_history"`
	PersistHistory     bool     `toml:"persist_history" yaml:"persist_history"`
	OneToolOnly        bool     `toml:"one_tool_only" yaml:"one_tool_only"`
	DirectToolReply    bool     `toml:"direct_tool_reply" yaml:"direct_tool_reply"`
	DirectToolReplyWeb bool     `toml:"direct_tool_reply_web" yaml:"direct_tool_reply_web"`
	SendWaitMessages   bool     `toml:"send_wait_messages" yaml:"send_wait_messages"`
	WaitAfterSeconds   int      `toml:"wait_after_seconds" yaml:"wait_after_seconds"`
	EnableSelector     bool     `toml:"enable_selector" yaml:"enable_selector"`
	// NativeTools also offers tool schemas to providers with function calling.
	NativeTools        bool     `toml:"native_tools" yaml:"native_tools"`
	SelectorMaxTokens  int      `toml:"selector_max_tokens" yaml:"selector_max_tokens"`
	ProtectedFiles     []string `toml:"protected_files" yaml:"protected_files"`
}

// RoutingConfig описывает выбор уровня (fast, balanced, deep) и бюджеты
type RoutingConfig struct {
	Enabled          bool     `toml:"enabled" yaml:"enabled"`
	LongMessageChars int      `toml:"long_message_chars" yaml:"long_message_chars"`
	DeepKeywords     []string `toml:"deep_keywords" yaml:"deep_keywords"`
	FastKeywords     []string `toml:"fast_keywords" yaml:"fast_keywords"`
	FastTokens       int      `toml:"fast_tokens" yaml:"fast_tokens"`
	FastTemp         float64  `toml:"fast_temp" yaml:"fast_temp"`
	BalancedTokens   int      `toml:"balanced_tokens" yaml:"balanced_tokens"`
	BalancedTemp     float64  `toml:"balanced_temp" yaml:"balanced_temp"`
	DeepTokens       int      `toml:"deep_tokens" yaml:"deep_tokens"`
	DeepTemp         float64  `toml:"deep_temp" yaml:"deep_temp"`
}

// DelegationConfig описывает цепочку Planner / Researcher / Executor
type DelegationConfig struct {
	Enabled          bool     `toml:"enabled" yaml:"enabled"`
	MaxCalls         int      `toml:"max_calls" yaml:"max_calls"`
	MaxTokensPerCall int      `toml:"max_tokens_per_call" yaml:"max_tokens_per_call"`
	TimeoutSeconds   int      `toml:"timeout_seconds" yaml:"timeout_seconds"`
	Keywords         []string `toml:"keywords" yaml:"keywords"`
}

// ToolsConfig представляет конфигурацию tools
type ToolsConfig struct {
	// Allowlist restricts dispatch to the listed tools; empty allows all.
	Allowlist       []string        `toml:"allowlist" yaml:"allowlist"`
	RateLimitPerMin int             `toml:"rate_limit_per_min" yaml:"rate_limit_per_min"`
	RateLimitBurst  int             `toml:"rate_limit_burst" yaml:"rate_limit_burst"`
	ShieldFile      string          `toml:"shield_file" yaml:"shield_file"`
	File            FileToolConfig  `toml:"file" yaml:"file"`
	Shell           ShellToolConfig `toml:"shell" yaml:"shell"`
	Fetch           FetchToolConfig `toml:"fetch" yaml:"fetch"`
}

// FileToolConfig представляет конфигурацию file tool
type FileToolConfig struct {
	Enabled       bool     `toml:"enabled" yaml:"enabled"`
	WhitelistDirs []string `toml:"whitelist_dirs" yaml:"whitelist_dirs"`
	ReadOnlyDirs  []string `toml:"read_only_dirs" yaml:"read_only_dirs"`
}

// ShellToolConfig представляет конфигурацию shell tool
type ShellToolConfig struct {
	Enabled        bool     `toml:"enabled" yaml:"enabled"`
	DenyCommands   []string `toml:"deny_commands" yaml:"deny_commands"`
	WorkingDir     string   `toml:"working_dir" yaml:"working_dir"`
	TimeoutSeconds int      `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxOutputBytes int      `toml:"max_output_bytes" yaml:"max_output_bytes"`
}

// FetchToolConfig представляет конфигурацию fetch tool
type FetchToolConfig struct {
	Enabled         bool   `toml:"enabled" yaml:"enabled"`
	TimeoutSeconds  int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxResponseSize int64  `toml:"max_response_size" yaml:"max_response_size"`
	UserAgent       string `toml:"user_agent" yaml:"user_agent"`
}

// ScheduleConfig представляет конфигурацию планировщика директив
type ScheduleConfig struct {
	Enabled              bool `toml:"enabled" yaml:"enabled"`
	CatchupMinutes       int  `toml:"catchup_minutes" yaml:"catchup_minutes"`
	CheckIntervalSeconds int  `toml:"check_interval_seconds" yaml:"check_interval_seconds"`
	// Log enables the scheduler journal at <data_dir>/logs/scheduler.log.
	Log bool `toml:"log" yaml:"log"`
}

// InboxConfig представляет конфигурацию файловой очереди
type InboxConfig struct {
	Enabled              bool `toml:"enabled" yaml:"enabled"`
	CheckIntervalSeconds int  `toml:"check_interval_seconds" yaml:"check_interval_seconds"`
}

// CleanupConfig представляет конфигурацию очистки старых файлов
type CleanupConfig struct {
	Enabled         bool `toml:"enabled" yaml:"enabled"`
	TTLDays         int  `toml:"ttl_days" yaml:"ttl_days"`
	IntervalMinutes int  `toml:"interval_minutes" yaml:"interval_minutes"`
}

// MetricsConfig представляет конфигурацию prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Listen  string `toml:"listen" yaml:"listen"`
	Path    string `toml:"path" yaml:"path"`
}

const (
	memorySubdirectory    = "memory"
	sessionsSubdirectory  = "sessions"
	logsSubdirectory      = "logs"
	inboxSubdirectory     = "inbox"
	downloadsSubdirectory = "downloads"
)

// MemoryDir возвращает путь к директории summary логов
func (c *Config) MemoryDir() string {
	return filepath.Join(c.App.DataDir, memorySubdirectory)
}

// SessionsDir возвращает путь к директории сохраненных историй
func (c *Config) SessionsDir() string {
	return filepath.Join(c.App.DataDir, sessionsSubdirectory)
}

// SchedulerLogPath возвращает путь к журналу планировщика
func (c *Config) SchedulerLogPath() string {
	return filepath.Join(c.App.DataDir, logsSubdirectory, "scheduler.log")
}

// InboxDir возвращает путь к корню файловой очереди
func (c *Config) InboxDir() string {
	return filepath.Join(c.App.DataDir, inboxSubdirectory)
}

// InboxDoneDir возвращает путь к архиву обработанных заданий
func (c *Config) InboxDoneDir() string {
	return filepath.Join(c.App.DataDir, inboxSubdirectory, "done")
}

// DownloadsDir возвращает путь для download_file
func (c *Config) DownloadsDir() string {
	return filepath.Join(c.App.DataDir, downloadsSubdirectory)
}
