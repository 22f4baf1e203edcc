package config

import (
	"strings"
)

// maskSecret маскирует секрет, оставляя только первые 4 и последние 4 символа
func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}

	// Если секрет слишком короткий, маскируем полностью
	if len(secret) < 8 {
		return "***"
	}

	prefix := secret[:4]
	suffix := secret[len(secret)-4:]
	masked := strings.Repeat("*", len(secret)-8)

	return prefix + masked + suffix
}

// maskTelegramToken маскирует Telegram токен, оставляя bot_id видимым для диагностики
func maskTelegramToken(token string) string {
	if token == "" {
		return ""
	}

	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return maskSecret(token)
	}

	return parts[0] + ":" + maskSecret(parts[1])
}

// Masked возвращает копию конфигурации с замаскированными секретами (config show)
func (c *Config) Masked() *Config {
	out := *c
	out.LLM.APIKey = maskSecret(c.LLM.APIKey)
	out.Telegram.Token = maskTelegramToken(c.Telegram.Token)
	return &out
}

// formatValidationError форматирует ошибку валидации с маскированным значением
func formatValidationError(field, message string, secret string) error {
	errorMsg := field + " " + message
	if secret != "" {
		errorMsg += " (value: " + maskSecret(secret) + ")"
	}
	return &ValidationError{Field: field, Message: errorMsg}
}

// ValidationError представляет ошибку валидации с дополнительной информацией
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
