package builders

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/logger"
	"github.com/aatumaykin/microbot/internal/tools"
	"github.com/aatumaykin/microbot/internal/tools/fetch"
	"github.com/aatumaykin/microbot/internal/tools/file"
)

// ToolsBuilder registers the tool set and wraps it in the policy gateway.
type ToolsBuilder struct {
	config *config.Config
	logger *logger.Logger
	clock  tools.TimeSource
	store  tools.DirectiveStore
	shell  *tools.ShellRunner
}

func NewToolsBuilder(cfg *config.Config, log *logger.Logger, clock tools.TimeSource, store tools.DirectiveStore) *ToolsBuilder {
	return &ToolsBuilder{
		config: cfg,
		logger: log,
		clock:  clock,
		store:  store,
		shell:  tools.NewShellRunner(cfg.Tools.Shell, log),
	}
}

// Shell returns the runner shared by run_command and cmd directives, or nil
// when the shell is disabled.
func (b *ToolsBuilder) Shell() *tools.ShellRunner {
	if !b.config.Tools.Shell.Enabled {
		return nil
	}
	return b.shell
}

// RegisterAllTools builds the registry.
func (b *ToolsBuilder) RegisterAllTools() (*tools.Registry, error) {
	registry := tools.NewRegistry()
	tz := b.config.App.Timezone

	list := []tools.Tool{
		tools.NewCurrentTimeTool(b.clock, tz),
		tools.NewSetScheduleTool(b.store, b.clock, tz),
		tools.NewSetProbeTool(b.store),
		tools.NewListSchedulesTool(b.store),
		tools.NewRemoveScheduleTool(b.store),
		tools.NewNetCheckTool(nil, 0, nil),
	}

	if b.config.Tools.Shell.Enabled {
		list = append(list, tools.NewRunCommandTool(b.shell))
	}

	if b.config.Tools.File.Enabled {
		sandbox := file.NewSandbox(b.config.App.DataDir, b.config.Tools.File.WhitelistDirs, b.config.Tools.File.ReadOnlyDirs)
		list = append(list,
			file.NewReadFileTool(sandbox),
			file.NewWriteFileTool(sandbox),
			file.NewListDirTool(sandbox),
		)
	}

	if b.config.Tools.Fetch.Enabled {
		client := fetch.NewClient(b.config.Tools.Fetch, b.logger)
		list = append(list,
			fetch.NewScrapeWebTool(client),
			fetch.NewDownloadFileTool(client, b.config.DownloadsDir()),
			fetch.NewHTTPRequestTool(client),
			fetch.NewWebSearchTool(client, ""),
			fetch.NewWeatherTool(client, ""),
		)
	}

	for _, tool := range list {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("failed to register %s tool: %w", tool.Name(), err)
		}
	}

	b.logger.Info("tools registered",
		logger.Field{Key: "count", Value: len(list)},
		logger.Field{Key: "tools", Value: registry.Names()})
	return registry, nil
}

// BuildGateway wraps registry with the allowlist, rate limit and shield policies.
func (b *ToolsBuilder) BuildGateway(registry *tools.Registry, reg prometheus.Registerer) (*tools.Gateway, error) {
	shield, err := tools.LoadShield(b.config.Tools.ShieldFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load shield file: %w", err)
	}
	if shield.Len() > 0 {
		b.logger.Info("shield policy loaded", logger.Field{Key: "patterns", Value: shield.Len()})
	}

	var metrics *tools.Metrics
	if reg != nil {
		metrics = tools.NewMetrics(metricsNamespace, reg)
	}

	return tools.NewGateway(tools.GatewayConfig{
		Registry:  registry,
		Allowlist: b.config.Tools.Allowlist,
		Limiter:   tools.NewRateLimiter(b.config.Tools.RateLimitPerMin, b.config.Tools.RateLimitBurst),
		Shield:    shield,
		Metrics:   metrics,
		Logger:    b.logger,
	}), nil
}
