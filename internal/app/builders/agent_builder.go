package builders

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	agentcontext "github.com/aatumaykin/microbot/internal/agent/context"
	"github.com/aatumaykin/microbot/internal/agent/loop"
	"github.com/aatumaykin/microbot/internal/agent/session"
	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/llm"
	"github.com/aatumaykin/microbot/internal/logger"
	"github.com/aatumaykin/microbot/internal/tools"
)

// AgentBuilder assembles conversation state, the prompt builder and the loop.
type AgentBuilder struct {
	config   *config.Config
	logger   *logger.Logger
	provider llm.Provider
	model    string
}

func NewAgentBuilder(cfg *config.Config, log *logger.Logger, provider llm.Provider, model string) *AgentBuilder {
	return &AgentBuilder{
		config:   cfg,
		logger:   log,
		provider: provider,
		model:    model,
	}
}

// BuildLoop creates the orchestration loop over gateway. registry supplies
// the tool names for the prompt and the native tool definitions.
func (b *AgentBuilder) BuildLoop(gateway loop.Gateway, registry *tools.Registry, sender channels.Sender, reg prometheus.Registerer) (*loop.Loop, error) {
	sessions, err := session.NewManager(session.Config{
		DataDir:    b.config.App.DataDir,
		MaxHistory: b.config.Agent.MaxHistory,
		Persist:    b.config.Agent.PersistHistory,
		Logger:     b.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	prompt, err := agentcontext.NewBuilder(agentcontext.Config{
		DataDir:  b.config.App.DataDir,
		Timezone: b.config.App.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt builder: %w", err)
	}

	var metrics *loop.Metrics
	if reg != nil {
		metrics = loop.NewMetrics(metricsNamespace, reg)
	}

	agentLoop, err := loop.NewLoop(loop.Config{
		Provider:   b.provider,
		Gateway:    gateway,
		Sessions:   sessions,
		Prompt:     prompt,
		Sender:     sender,
		Logger:     b.logger,
		Metrics:    metrics,
		Model:      b.model,
		Tools:      registry.Names(),
		ToolDefs:   toolDefinitions(registry),
		Agent:      b.config.Agent,
		Routing:    b.config.Routing,
		Delegation: b.config.Delegation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent loop: %w", err)
	}
	return agentLoop, nil
}

// toolDefinitions converts the registry schemas to provider definitions.
func toolDefinitions(registry *tools.Registry) []llm.ToolDefinition {
	schemas := registry.ToSchema()
	defs := make([]llm.ToolDefinition, len(schemas))
	for i, s := range schemas {
		defs[i] = llm.ToolDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		}
	}
	return defs
}
