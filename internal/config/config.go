package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrConfigNotFound is returned by Load when the configuration file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// Load загружает конфигурацию из TOML файла.
// Порядок: .env файлы рядом с конфигом, значения по умолчанию, TOML поверх них,
// добор незаданных полей, раскрытие ${VAR} и ~.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := loadEnvFiles(path); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)
	expandEnvVars(cfg)

	return cfg, nil
}

// Validate проверяет валидность конфигурации
func (c *Config) Validate() []error {
	var errs []error

	// Проверка data_dir
	if c.App.DataDir == "" {
		errs = append(errs, fmt.Errorf("app.data_dir is required"))
	} else if err := validatePath(c.App.DataDir, "app.data_dir"); err != nil {
		errs = append(errs, err)
	}

	// Проверка LLM конфигурации
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.api_key is required when provider is 'openai'"))
		} else if err := validateAPIKey(c.LLM.APIKey, "llm.api_key"); err != nil {
			errs = append(errs, err)
		}
		if c.LLM.Model == "" {
			errs = append(errs, fmt.Errorf("llm.model is required"))
		}
	case "mock":
	default:
		errs = append(errs, fmt.Errorf("invalid llm.provider: %s (expected: openai, mock)", c.LLM.Provider))
	}

	// Проверка Telegram канала
	if c.Telegram.Enabled {
		if c.Telegram.Token == "" {
			errs = append(errs, fmt.Errorf("telegram.token is required when telegram is enabled"))
		} else if err := validateTelegramToken(c.Telegram.Token); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, c.Logging.validate()...)
	errs = append(errs, c.Agent.validate()...)
	errs = append(errs, c.Routing.validate()...)
	errs = append(errs, c.Delegation.validate()...)
	errs = append(errs, c.Schedule.validate()...)

	if c.Inbox.CheckIntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("inbox.check_interval_seconds must be >= 1"))
	}

	if c.Cleanup.Enabled {
		if c.Cleanup.TTLDays < 1 {
			errs = append(errs, fmt.Errorf("cleanup.ttl_days must be >= 1"))
		}
		if c.Cleanup.IntervalMinutes < 1 {
			errs = append(errs, fmt.Errorf("cleanup.interval_minutes must be >= 1"))
		}
	}

	if c.Tools.Shell.WorkingDir != "" {
		if err := validatePath(c.Tools.Shell.WorkingDir, "tools.shell.working_dir"); err != nil {
			errs = append(errs, err)
		}
	}
	for _, cmd := range c.Tools.Shell.DenyCommands {
		if strings.TrimSpace(cmd) == "" {
			errs = append(errs, fmt.Errorf("tools.shell.deny_commands contains empty command"))
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with '/' (got %q)", c.Metrics.Path))
	}

	return errs
}

// Helper validation functions
func validateAPIKey(key, fieldName string) error {
	if key == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if len(key) < 10 {
		return formatValidationError(fieldName, fmt.Sprintf("is too short (minimum 10 characters, got %d)", len(key)), key)
	}

	return nil
}

func validateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram token cannot be empty")
	}

	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return fmt.Errorf("telegram token has invalid format (expected format: <bot_id>:<token>, got: %s)", maskTelegramToken(token))
	}

	botID := parts[0]
	botToken := parts[1]

	if len(botID) < 3 || len(botID) > 15 {
		return fmt.Errorf("telegram token has invalid bot ID length (expected 3-15 digits, got %d digits)", len(botID))
	}

	for _, r := range botID {
		if r < '0' || r > '9' {
			return fmt.Errorf("telegram token has invalid bot ID (expected digits only, got: %s)", botID)
		}
	}

	if len(botToken) < 10 || len(botToken) > 50 {
		return fmt.Errorf("telegram token has invalid token length (expected 10-50 characters, got %d)", len(botToken))
	}

	return nil
}

func validatePath(path, fieldName string) error {
	if path == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}

	if strings.HasPrefix(path, "~") {
		return nil
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", fieldName)
	}

	return nil
}
