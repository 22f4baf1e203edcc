package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAged(t *testing.T, path string, age time.Duration, now time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))
	mod := now.Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeAged(t, filepath.Join(dir, "a.json"), 0, now)
	writeAged(t, filepath.Join(dir, "nested", "b.pdf"), 0, now)

	files, err := ListFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	files, err = ListFiles(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRunner_Run(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	done := filepath.Join(t.TempDir(), "done")
	downloads := filepath.Join(t.TempDir(), "downloads")

	writeAged(t, filepath.Join(done, "old.json"), 8*24*time.Hour, now)
	writeAged(t, filepath.Join(done, "fresh.json"), time.Hour, now)
	writeAged(t, filepath.Join(downloads, "x", "report.pdf"), 30*24*time.Hour, now)

	runner := NewRunner(Config{
		TTLDays: 7,
		Dirs:    []string{done, downloads, filepath.Join(t.TempDir(), "absent")},
		Now:     func() time.Time { return now },
	})

	stats, err := runner.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesDeleted)
	assert.Equal(t, int64(20), stats.BytesFreed)
	assert.Equal(t, stats, runner.GetStats())
	assert.Equal(t, now, runner.GetLastRun())

	assert.NoFileExists(t, filepath.Join(done, "old.json"))
	assert.FileExists(t, filepath.Join(done, "fresh.json"))
	assert.NoFileExists(t, filepath.Join(downloads, "x", "report.pdf"))
}

func TestRunner_Job(t *testing.T) {
	now := time.Now()
	dir := t.TempDir()
	writeAged(t, filepath.Join(dir, "old.json"), 48*time.Hour, now)

	runner := NewRunner(Config{TTLDays: 1, Dirs: []string{dir}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner.Job(nil)(ctx)
	assert.FileExists(t, filepath.Join(dir, "old.json"))

	runner.Job(nil)(context.Background())
	assert.NoFileExists(t, filepath.Join(dir, "old.json"))
}
