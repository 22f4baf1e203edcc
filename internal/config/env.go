package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv загружает переменные окружения из .env файла.
// Уже установленные переменные не перезаписываются.
func LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoadEnvOptional загружает переменные окружения из .env файла, если он существует.
// Если файл не существует - возвращает nil (без ошибки).
func LoadEnvOptional(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	return LoadEnv(path)
}

// loadEnvFiles загружает .env.local и .env рядом с конфигом.
// .env.local читается первым, поэтому его значения имеют приоритет.
func loadEnvFiles(configPath string) error {
	dir := filepath.Dir(configPath)
	for _, name := range []string{".env.local", ".env"} {
		if err := LoadEnvOptional(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// expandEnv расширяет переменную окружения формата ${VAR} или ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if parts := strings.SplitN(content, ":", 2); len(parts) == 2 {
		key := parts[0]
		defaultVal := parts[1]
		if val := os.Getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	// Без значения по умолчанию
	return os.Getenv(content)
}

// expandHome расширяет ~ в пути
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// expandEnvVars расширяет переменные окружения в строковых полях конфигурации
func expandEnvVars(c *Config) {
	for _, field := range []*string{
		&c.App.DataDir,
		&c.App.Timezone,
		&c.Telegram.Token,
		&c.LLM.APIKey,
		&c.LLM.BaseURL,
		&c.LLM.Model,
		&c.Tools.ShieldFile,
		&c.Tools.Shell.WorkingDir,
		&c.Logging.Output,
	} {
		*field = expandEnv(*field)
	}

	c.App.DataDir = expandHome(c.App.DataDir)
	c.Tools.Shell.WorkingDir = expandHome(c.Tools.Shell.WorkingDir)
	c.Tools.ShieldFile = expandHome(c.Tools.ShieldFile)

	for i, dir := range c.Tools.File.WhitelistDirs {
		c.Tools.File.WhitelistDirs[i] = expandHome(expandEnv(dir))
	}
	for i, dir := range c.Tools.File.ReadOnlyDirs {
		c.Tools.File.ReadOnlyDirs[i] = expandHome(expandEnv(dir))
	}
}
