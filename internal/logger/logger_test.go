package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "json stdout", config: Config{Level: "debug", Format: "json", Output: "stdout"}},
		{name: "text stderr", config: Config{Level: "info", Format: "text", Output: "stderr"}},
		{name: "empty output defaults to stdout", config: Config{Level: "warn", Format: "text"}},
		{name: "invalid level", config: Config{Level: "loud", Format: "json", Output: "stdout"}, wantErr: true},
		{name: "invalid format", config: Config{Level: "debug", Format: "xml", Output: "stdout"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, log)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, log)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "scheduler.log")

	log, err := New(Config{Level: "info", Format: "text", Output: path})
	require.NoError(t, err)

	log.Info("check", Field{Key: "ticks", Value: 2})
	require.NoError(t, log.Close())
	require.NoError(t, log.Close(), "second close is a no-op")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "check")
	assert.Contains(t, string(data), "ticks=2")
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  []string
		skip  []string
	}{
		{level: "debug", want: []string{"debug message", "info message", "warn message", "error message"}},
		{level: "info", want: []string{"info message", "warn message", "error message"}, skip: []string{"debug message"}},
		{level: "warn", want: []string{"warn message", "error message"}, skip: []string{"debug message", "info message"}},
		{level: "error", want: []string{"error message"}, skip: []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			level, ok := parseLevel(tt.level)
			require.True(t, ok)
			log := &Logger{slog: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level}))}

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message", nil)

			out := buf.String()
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, s := range tt.skip {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestLogger_ErrorCarriesField(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(buf)

	log.ErrorCtx(context.Background(), "directive failed", errors.New("boom"), Field{Key: "id", Value: "r1"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "directive failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "r1", entry["id"])
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newBufferLogger(buf).With(Field{Key: "component", Value: "scheduler"})

	log.InfoCtx(context.Background(), "pass")

	assert.True(t, strings.Contains(buf.String(), `"component":"scheduler"`))
	assert.NoError(t, log.Close())
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.Info("dropped")
		log.Error("dropped", errors.New("x"))
	})
	assert.NoError(t, log.Close())
}

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return &Logger{slog: slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
}
