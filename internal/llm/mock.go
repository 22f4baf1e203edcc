package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a mock implementation of the Provider interface for tests
// and for running without an API key (provider = "mock").
type MockProvider struct {
	mu            sync.Mutex
	responses     []string    // Pre-defined responses (rotates through them)
	responseIndex int         // Current index in responses
	script        []MockReply // Replies consumed in order by MockModeScript
	mode          MockMode
	errorAfter    int // Number of successful calls before returning errors
	callCount     int
	requests      []ChatRequest
}

// MockMode defines the operation mode of the mock provider.
type MockMode int

const (
	// MockModeEcho returns the user's message (echo mode)
	MockModeEcho MockMode = iota

	// MockModeFixed returns a fixed response
	MockModeFixed

	// MockModeFixtures returns pre-defined responses in rotation
	MockModeFixtures

	// MockModeError always returns an error
	MockModeError

	// MockModeScript plays MockReply values in order, then repeats the last one
	MockModeScript
)

// MockReply is one scripted reply: an error, or content with optional tool calls.
type MockReply struct {
	Content   string
	ToolCalls []ToolCall
	Err       error
}

// MockConfig holds configuration for the mock provider.
type MockConfig struct {
	Mode       MockMode
	Responses  []string
	Script     []MockReply
	ErrorAfter int
}

// NewMockProvider creates a new mock LLM provider.
func NewMockProvider(cfg MockConfig) *MockProvider {
	return &MockProvider{
		mode:       cfg.Mode,
		responses:  cfg.Responses,
		script:     cfg.Script,
		errorAfter: cfg.ErrorAfter,
	}
}

// NewEchoProvider creates a mock provider that echoes user messages.
func NewEchoProvider() *MockProvider {
	return NewMockProvider(MockConfig{Mode: MockModeEcho})
}

// NewFixedProvider creates a mock provider that always returns a fixed response.
func NewFixedProvider(response string) *MockProvider {
	return NewMockProvider(MockConfig{Mode: MockModeFixed, Responses: []string{response}})
}

// NewFixturesProvider creates a mock provider that cycles through pre-defined responses.
func NewFixturesProvider(responses []string) *MockProvider {
	return NewMockProvider(MockConfig{Mode: MockModeFixtures, Responses: responses})
}

// NewErrorProvider creates a mock provider that always returns errors.
func NewErrorProvider() *MockProvider {
	return NewMockProvider(MockConfig{Mode: MockModeError})
}

// NewScriptProvider creates a mock provider that plays replies in order.
func NewScriptProvider(replies ...MockReply) *MockProvider {
	return NewMockProvider(MockConfig{Mode: MockModeScript, Script: replies})
}

// Chat implements the Provider interface.
func (m *MockProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.requests = append(m.requests, req)

	if m.errorAfter > 0 && m.callCount > m.errorAfter {
		return nil, fmt.Errorf("%w: mock provider error after %d calls", ErrNoResponse, m.errorAfter)
	}

	var userMessage string
	if len(req.Messages) > 0 {
		lastMsg := req.Messages[len(req.Messages)-1]
		if lastMsg.Role == RoleUser {
			userMessage = lastMsg.Content
		}
	}

	var (
		response  string
		toolCalls []ToolCall
	)
	switch m.mode {
	case MockModeError:
		return nil, &APIError{Message: "mock provider error"}
	case MockModeEcho:
		if userMessage != "" {
			response = fmt.Sprintf("Echo: %s", userMessage)
		} else {
			response = "Echo: (no user message)"
		}
	case MockModeFixed:
		if len(m.responses) > 0 {
			response = m.responses[0]
		} else {
			response = "Fixed response: no responses configured"
		}
	case MockModeFixtures:
		if len(m.responses) > 0 {
			response = m.responses[m.responseIndex]
			m.responseIndex = (m.responseIndex + 1) % len(m.responses)
		} else {
			response = "Fixtures: no responses configured"
		}
	case MockModeScript:
		if len(m.script) == 0 {
			return nil, ErrNoResponse
		}
		idx := m.responseIndex
		if idx >= len(m.script) {
			idx = len(m.script) - 1
		} else {
			m.responseIndex++
		}
		reply := m.script[idx]
		if reply.Err != nil {
			return nil, reply.Err
		}
		response, toolCalls = reply.Content, reply.ToolCalls
	default:
		response = "Unknown mock mode"
	}

	finish := FinishReasonStop
	if len(toolCalls) > 0 {
		finish = FinishReasonToolCalls
	}
	return &ChatResponse{
		Content:      response,
		Model:        req.Model,
		FinishReason: finish,
		ToolCalls:    toolCalls,
		Usage: Usage{
			PromptTokens:     len(userMessage),
			CompletionTokens: len(response),
			TotalTokens:      len(userMessage) + len(response),
		},
	}, nil
}

// SupportsToolCalling implements the Provider interface.
func (m *MockProvider) SupportsToolCalling() bool {
	return m.mode == MockModeScript
}

// GetDefaultModel implements the Provider interface.
func (m *MockProvider) GetDefaultModel() string {
	return "mock-model"
}

// GetCallCount returns the number of Chat() calls made to this provider.
func (m *MockProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns a copy of every request received.
func (m *MockProvider) Requests() []ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChatRequest(nil), m.requests...)
}

// LastRequest returns the most recent request.
func (m *MockProvider) LastRequest() (ChatRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return ChatRequest{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// ResetCallCount resets the call counter and recorded requests.
func (m *MockProvider) ResetCallCount() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.requests = nil
}

// SetErrorAfter configures the provider to return errors after N calls.
func (m *MockProvider) SetErrorAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorAfter = n
}

// SetResponses sets the list of responses.
func (m *MockProvider) SetResponses(responses []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.responseIndex = 0
}
