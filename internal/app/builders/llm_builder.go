package builders

import (
	"fmt"

	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/llm"
	"github.com/aatumaykin/microbot/internal/logger"
)

// LLMBuilder creates the chat provider named in [llm].
type LLMBuilder struct {
	config *config.Config
	logger *logger.Logger
}

func NewLLMBuilder(cfg *config.Config, log *logger.Logger) *LLMBuilder {
	return &LLMBuilder{
		config: cfg,
		logger: log,
	}
}

// Build returns the provider and the model to request.
func (b *LLMBuilder) Build() (llm.Provider, string, error) {
	switch b.config.LLM.Provider {
	case "openai":
		provider := llm.NewOpenAIProvider(llm.ConfigFromLLM(b.config.LLM), b.logger)
		b.logger.Info("LLM provider initialized",
			logger.Field{Key: "provider", Value: "openai"},
			logger.Field{Key: "model", Value: b.config.LLM.Model})
		return provider, b.config.LLM.Model, nil
	case "mock":
		provider := llm.NewEchoProvider()
		b.logger.Warn("using mock LLM provider")
		return provider, provider.GetDefaultModel(), nil
	default:
		return nil, "", fmt.Errorf("unsupported LLM provider: %s", b.config.LLM.Provider)
	}
}
