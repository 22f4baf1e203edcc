package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShield(t *testing.T) {
	src := `# blocked things
deny: rm -rf
BLOCK:/etc/shadow

  mkfs
`
	s, err := ParseShield(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	assert.True(t, s.Blocks(`run_command {"command":"sudo RM -RF /"}`))
	assert.True(t, s.Blocks(`read_file {"path":"/etc/shadow"}`))
	assert.True(t, s.Blocks("ｍｋｆｓ"), "full-width form folds to ascii")
	assert.False(t, s.Blocks(`read_file {"path":"notes.md"}`))
}

func TestLoadShield(t *testing.T) {
	s, err := LoadShield(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Blocks("anything"))

	path := filepath.Join(t.TempDir(), "shield.txt")
	require.NoError(t, os.WriteFile(path, []byte("shutdown\n"), 0644))
	s, err = LoadShield(path)
	require.NoError(t, err)
	assert.True(t, s.Blocks("run_command shutdown now"))

	var nilShield *Shield
	assert.False(t, nilShield.Blocks("x"))
}
