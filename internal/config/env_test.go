package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ".env")
	content := `
# Comment line
MICROBOT_ENV_KEY1=value1
MICROBOT_ENV_KEY2="value with spaces"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("MICROBOT_ENV_KEY2", "preset")
	t.Cleanup(func() { os.Unsetenv("MICROBOT_ENV_KEY1") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "value1", os.Getenv("MICROBOT_ENV_KEY1"))
	assert.Equal(t, "preset", os.Getenv("MICROBOT_ENV_KEY2"), "existing variables win")
}

func TestLoadEnvOptional(t *testing.T) {
	assert.NoError(t, LoadEnvOptional(filepath.Join(t.TempDir(), "missing.env")))
	assert.Error(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadEnvFiles_LocalWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MICROBOT_ENV_ORDER=base\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte("MICROBOT_ENV_ORDER=local\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("MICROBOT_ENV_ORDER") })

	require.NoError(t, loadEnvFiles(filepath.Join(dir, "config.toml")))
	assert.Equal(t, "local", os.Getenv("MICROBOT_ENV_ORDER"))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MICROBOT_EXPAND_SET", "from-env")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain value", input: "literal", want: "literal"},
		{name: "set variable", input: "${MICROBOT_EXPAND_SET}", want: "from-env"},
		{name: "set variable ignores default", input: "${MICROBOT_EXPAND_SET:fallback}", want: "from-env"},
		{name: "unset with default", input: "${MICROBOT_EXPAND_UNSET:fallback}", want: "fallback"},
		{name: "unset without default", input: "${MICROBOT_EXPAND_UNSET}", want: ""},
		{name: "unterminated", input: "${MICROBOT_EXPAND_SET", want: "${MICROBOT_EXPAND_SET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.input))
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".microbot"), expandHome("~/.microbot"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "relative", expandHome("relative"))
}
