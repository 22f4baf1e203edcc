package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Tool defines the interface that all tools must implement.
// A tool represents a function that can be called by the agent loop,
// the schedule executor or the selector.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description returns a human-readable description of what the tool does.
	// It is listed in the system prompt and the selector prompt.
	Description() string

	// Parameters returns a JSON Schema object describing the tool's input parameters.
	Parameters() map[string]any

	// Execute runs the tool. args is a JSON object already normalized by the gateway.
	Execute(ctx context.Context, args string) (string, error)
}

// Registry manages the collection of available tools.
// It provides thread-safe operations for registering and retrieving tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	cfg   *ExecutionConfig
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		cfg:   DefaultExecutionConfig(),
	}
}

// SetExecutionConfig overrides the default execution timeout.
func (r *Registry) SetExecutionConfig(cfg *ExecutionConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
}

// Register adds a tool to the registry.
// If a tool with the same name already exists, it will be replaced.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.tools[name] = tool
	return nil
}

// Get retrieves a tool by its name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })

	return tools
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, tool := range list {
		names[i] = tool.Name()
	}
	return names
}

// ToSchema converts the registered tools to OpenAI-compatible function definitions.
func (r *Registry) ToSchema() []ToolDefinition {
	list := r.List()
	schemas := make([]ToolDefinition, 0, len(list))
	for _, tool := range list {
		schemas = append(schemas, ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return schemas
}

// Execute runs the named tool with the configured timeout.
func (r *Registry) Execute(ctx context.Context, name, args string) (string, error) {
	r.mu.RLock()
	cfg := r.cfg
	r.mu.RUnlock()

	res := ExecuteToolCallWithContext(ctx, r, ToolCall{Name: name, Arguments: args}, cfg)
	if res.Err != nil {
		return "", res.Err
	}
	return res.Content, nil
}

// ToolDefinition represents a tool definition in OpenAI function calling format.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall represents a tool call detected in a model response.
type ToolCall struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`

	// Arguments is a JSON string containing the tool's input parameters.
	Arguments string `json:"arguments"`
}

// ToolResult represents the result of executing a tool.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id,omitempty"`
	Content    string `json:"content"`
	Err        error  `json:"-"`
	TimedOut   bool   `json:"timed_out,omitempty"`
}

// ExecutionConfig represents the configuration for tool execution.
type ExecutionConfig struct {
	Timeout time.Duration // Timeout for tool execution; zero disables it
}

// DefaultExecutionConfig returns the default execution configuration.
func DefaultExecutionConfig() *ExecutionConfig {
	return &ExecutionConfig{Timeout: 60 * time.Second}
}

// ExecuteToolCallWithContext executes a tool call with a timeout.
// The tool runs in its own goroutine; a timeout or cancellation returns
// immediately while the tool observes ctx.
func ExecuteToolCallWithContext(ctx context.Context, registry *Registry, tc ToolCall, cfg *ExecutionConfig) ToolResult {
	tool, ok := registry.Get(tc.Name)
	if !ok {
		return ToolResult{
			ToolCallID: tc.ID,
			Err:        fmt.Errorf("%w: %s", ErrToolNotFound, tc.Name),
		}
	}

	var timeout time.Duration
	if cfg != nil {
		timeout = cfg.Timeout
	}

	execCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type toolResult struct {
		result string
		err    error
	}
	resultChan := make(chan toolResult, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultChan <- toolResult{err: NewExecutionError(CodeToolPanic, fmt.Sprintf("tool %s panicked: %v", tc.Name, rec), "", -1)}
			}
		}()
		res, err := tool.Execute(execCtx, tc.Arguments)
		resultChan <- toolResult{result: res, err: err}
	}()

	select {
	case res := <-resultChan:
		return ToolResult{ToolCallID: tc.ID, Content: res.result, Err: res.err}

	case <-execCtx.Done():
		if execCtx.Err() == context.DeadlineExceeded {
			return ToolResult{
				ToolCallID: tc.ID,
				Err: NewTimeoutError(CodeTimeout, fmt.Sprintf("tool execution timed out after %v", timeout),
					map[string]any{"tool": tc.Name}),
				TimedOut: true,
			}
		}
		return ToolResult{
			ToolCallID: tc.ID,
			Err:        fmt.Errorf("tool execution cancelled: %w", execCtx.Err()),
		}
	}
}
