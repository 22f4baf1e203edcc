package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/logger"
	"github.com/aatumaykin/microbot/internal/retry"
)

const (
	// DefaultRequestTimeout is the HTTP timeout when none is configured.
	DefaultRequestTimeout = 60 * time.Second
	defaultBackoff        = 500 * time.Millisecond
)

// OpenAIConfig contains configuration for the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	MaxTokens     int
	Timeout       time.Duration
	MaxRetries    int           // extra attempts per model
	RetryBackoff  time.Duration // constant wait between attempts
}

// ConfigFromLLM converts the [llm] config section.
func ConfigFromLLM(cfg config.LLMConfig) OpenAIConfig {
	return OpenAIConfig{
		APIKey:        cfg.APIKey,
		BaseURL:       cfg.BaseURL,
		Model:         cfg.Model,
		FallbackModel: cfg.FallbackModel,
		MaxTokens:     cfg.MaxTokens,
		Timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  time.Duration(cfg.RetryBackoffMs) * time.Millisecond,
	}
}

// OpenAIProvider implements Provider on top of go-openai.
// Each model gets MaxRetries+1 attempts; when the primary model is exhausted
// the fallback model is tried the same way.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
	logger *logger.Logger
}

// NewOpenAIProvider creates a new OpenAIProvider instance.
func NewOpenAIProvider(cfg OpenAIConfig, log *logger.Logger) *OpenAIProvider {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultBackoff
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		logger: log,
	}
}

// Chat sends a chat completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	primary := req.Model
	if primary == "" {
		primary = p.cfg.Model
	}
	models := []string{primary}
	if p.cfg.FallbackModel != "" && p.cfg.FallbackModel != primary {
		models = append(models, p.cfg.FallbackModel)
	}

	retryCfg := retry.Config{
		MaxAttempts:    p.cfg.MaxRetries + 1,
		InitialBackoff: p.cfg.RetryBackoff,
		MaxBackoff:     p.cfg.RetryBackoff,
		Strategy:       retry.Linear,
		Retryable:      isRetryable,
	}

	var lastErr error
	for i, model := range models {
		if i > 0 {
			p.logger.WarnCtx(ctx, "LLM fallback to model",
				logger.Field{Key: "model", Value: model},
				logger.Field{Key: "error", Value: lastErr.Error()})
		}

		resp, err := retry.Do(ctx, retryCfg, func(ctx context.Context) (*ChatResponse, error) {
			return p.complete(ctx, model, req)
		})
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}

	var apiErr *APIError
	if errors.As(lastErr, &apiErr) {
		return nil, apiErr
	}
	p.logger.ErrorCtx(ctx, "LLM request failed after retries", lastErr)
	return nil, errors.Join(ErrNoResponse, lastErr)
}

func (p *OpenAIProvider) complete(ctx context.Context, model string, req ChatRequest) (*ChatResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}

	oreq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    mapMessages(req.Messages),
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}
	if len(req.Tools) > 0 {
		oreq.Tools = mapTools(req.Tools)
	}

	p.logger.DebugCtx(ctx, "sending chat request",
		logger.Field{Key: "model", Value: model},
		logger.Field{Key: "messages_count", Value: len(req.Messages)},
		logger.Field{Key: "max_tokens", Value: maxTokens})

	oresp, err := p.client.CreateChatCompletion(ctx, oreq)
	if err != nil {
		return nil, mapError(err)
	}
	if len(oresp.Choices) == 0 {
		return nil, ErrNoResponse
	}

	choice := oresp.Choices[0]
	toolCalls := make([]ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	content := choice.Message.Content
	if content == "" && choice.Message.ReasoningContent != "" {
		content = choice.Message.ReasoningContent
	}

	p.logger.DebugCtx(ctx, "LLM response",
		logger.Field{Key: "model", Value: oresp.Model},
		logger.Field{Key: "finish_reason", Value: string(choice.FinishReason)},
		logger.Field{Key: "content_length", Value: len(content)},
		logger.Field{Key: "tool_calls_count", Value: len(toolCalls)})

	return &ChatResponse{
		Content:      content,
		FinishReason: FinishReason(choice.FinishReason),
		ToolCalls:    toolCalls,
		Usage: Usage{
			PromptTokens:     oresp.Usage.PromptTokens,
			CompletionTokens: oresp.Usage.CompletionTokens,
			TotalTokens:      oresp.Usage.TotalTokens,
		},
		Model: oresp.Model,
	}, nil
}

// SupportsToolCalling reports native function calling support.
func (p *OpenAIProvider) SupportsToolCalling() bool {
	return true
}

// GetDefaultModel returns the configured model.
func (p *OpenAIProvider) GetDefaultModel() string {
	return p.cfg.Model
}

func mapMessages(msgs []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		})
	}
	return out
}

func mapTools(defs []ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

// mapError turns go-openai errors into APIError where the API answered.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		msg := http.StatusText(reqErr.HTTPStatusCode)
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &APIError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return err
}

// isRetryable retries everything except cancellation and auth failures.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return false
		}
	}
	return true
}
