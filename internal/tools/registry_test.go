package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/microbot/internal/logger"
)

// mockTool is a simple tool implementation for testing.
type mockTool struct {
	name        string
	description string
	parameters  map[string]any
	executeFunc func(ctx context.Context, args string) (string, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockTool) Name() string               { return m.name }
func (m *mockTool) Description() string        { return m.description }
func (m *mockTool) Parameters() map[string]any { return m.parameters }

func (m *mockTool) Execute(ctx context.Context, args string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, args)
	m.mu.Unlock()
	if m.executeFunc != nil {
		return m.executeFunc(ctx, args)
	}
	return "mock result", nil
}

func (m *mockTool) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stdout"})
	require.NoError(t, err)
	return log
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	tool := &mockTool{
		name:        "test_tool",
		description: "A test tool",
		parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{"type": "string"},
			},
		},
	}
	require.NoError(t, registry.Register(tool))

	schemas := registry.ToSchema()
	require.Len(t, schemas, 1)
	assert.Equal(t, "test_tool", schemas[0].Name)
	assert.Equal(t, "A test tool", schemas[0].Description)

	props, ok := schemas[0].Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "input")

	assert.Error(t, registry.Register(nil))
	assert.Error(t, registry.Register(&mockTool{}))
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, registry.Register(&mockTool{name: name}))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, registry.Names())
}

func TestRegistry_Execute(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&mockTool{
		name: "echo",
		executeFunc: func(_ context.Context, args string) (string, error) {
			return "executed: " + args, nil
		},
	}))

	out, err := registry.Execute(context.Background(), "echo", `{"value":"test"}`)
	require.NoError(t, err)
	assert.Equal(t, `executed: {"value":"test"}`, out)

	_, err = registry.Execute(context.Background(), "missing", "{}")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestExecuteToolCallWithContext_Failures(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&mockTool{
		name: "boom",
		executeFunc: func(context.Context, string) (string, error) {
			panic("kaboom")
		},
	}))
	require.NoError(t, registry.Register(&mockTool{
		name: "fail",
		executeFunc: func(context.Context, string) (string, error) {
			return "", fmt.Errorf("execution failed")
		},
	}))
	require.NoError(t, registry.Register(&mockTool{
		name: "slow",
		executeFunc: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}))

	res := ExecuteToolCallWithContext(context.Background(), registry, ToolCall{ID: "1", Name: "boom"}, nil)
	var toolErr *ToolError
	require.True(t, errors.As(res.Err, &toolErr))
	assert.Equal(t, CodeToolPanic, toolErr.Code)
	assert.Equal(t, "1", res.ToolCallID)

	res = ExecuteToolCallWithContext(context.Background(), registry, ToolCall{Name: "fail"}, nil)
	require.Error(t, res.Err)
	assert.Equal(t, "execution failed", res.Err.Error())

	res = ExecuteToolCallWithContext(context.Background(), registry, ToolCall{Name: "slow"},
		&ExecutionConfig{Timeout: 20 * time.Millisecond})
	assert.True(t, res.TimedOut)
	require.True(t, errors.As(res.Err, &toolErr))
	assert.Equal(t, CodeTimeout, toolErr.Code)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = registry.Register(&mockTool{name: fmt.Sprintf("tool_%d", n)})
			_, _ = registry.Get(fmt.Sprintf("tool_%d", n))
		}(i)
	}
	wg.Wait()

	assert.Len(t, registry.List(), 100)
}
