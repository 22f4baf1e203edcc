package context

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T) (*Builder, string) {
	t.Helper()
	dir := t.TempDir()
	b, err := NewBuilder(Config{
		DataDir:  dir,
		Timezone: "Europe/Madrid",
		Now:      func() time.Time { return time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return b, dir
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewBuilder_EmptyDir(t *testing.T) {
	_, err := NewBuilder(Config{})
	assert.Error(t, err)
}

func TestBuild_Minimal(t *testing.T) {
	b, _ := newTestBuilder(t)

	prompt := b.Build(Input{UserName: "Ana", Tools: []string{"get_current_time", "set_schedule"}})

	assert.True(t, strings.HasPrefix(prompt, "# MicroBot AI"))
	assert.Contains(t, prompt, "User: Ana\n")
	assert.Contains(t, prompt, "## Available Tools: get_current_time, set_schedule")
	assert.Contains(t, prompt, `TOOL:tool_name:{"arg": "value"}`)
	assert.NotContains(t, prompt, "## Memory")
	assert.NotContains(t, prompt, "## Summary")
}

func TestBuild_OptionalSections(t *testing.T) {
	b, dir := newTestBuilder(t)
	writeFile(t, dir, "config/SOUL.md", "Be kind. Today is {{CURRENT_DATE}} in {{TIMEZONE}}.")
	writeFile(t, dir, "config/USER.md", "Likes tea.")
	writeFile(t, dir, "memory/MEMORY.md", strings.Repeat("m", 1000))
	writeFile(t, dir, "skills/b.md", "skill B")
	writeFile(t, dir, "skills/a.md", "skill A")
	writeFile(t, dir, "skills/notes.txt", "ignored")

	prompt := b.Build(Input{Summary: strings.Repeat("s", 900) + "END"})

	assert.Contains(t, prompt, "## Personality (SOUL)\nBe kind. Today is 2024-03-04 in Europe/Madrid.")
	assert.Contains(t, prompt, "## User Profile\nLikes tea.")
	assert.Contains(t, prompt, "## Memory\n"+strings.Repeat("m", memoryLimit)+"\n")
	assert.Contains(t, prompt, "END")
	assert.NotContains(t, prompt, strings.Repeat("s", summaryLimit))
	assert.Less(t, strings.Index(prompt, "### a.md"), strings.Index(prompt, "### b.md"))
	assert.NotContains(t, prompt, "ignored")
}

func TestSkills_TruncatesLongFiles(t *testing.T) {
	b, dir := newTestBuilder(t)
	writeFile(t, dir, "skills/big.md", strings.Repeat("x", 900))

	got := b.skills()
	assert.True(t, strings.HasSuffix(got, truncatedMark))
	assert.Equal(t, len("### big.md\n")+skillLimit+len(truncatedMark), len(got))
}
