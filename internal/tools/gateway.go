package tools

import (
	"context"
	"errors"

	"github.com/aatumaykin/microbot/internal/logger"
)

// Rejection messages returned by the gateway.
const (
	MsgBlockedByAllowlist = "Error: Tool blocked by allowlist."
	MsgRateLimited        = "Error: Tool rate limit exceeded."
	MsgInvalidArgs        = "Error: Invalid JSON arguments"
	MsgBlockedByShield    = "Error: Blocked by SHIELD policy."
	errorPrefix           = "Error: "
)

// call is the state threaded through the policy pipeline.
type call struct {
	name string
	raw  any
	args map[string]any
}

// policy inspects a call; the first policy that refuses it ends the pipeline
// with reason as the result.
type policy struct {
	outcome string
	check   func(c *call) (ok bool, reason string)
}

// GatewayConfig configures a Gateway.
type GatewayConfig struct {
	Registry  *Registry
	Allowlist []string
	Limiter   *RateLimiter
	Shield    *Shield
	Metrics   *Metrics
	Logger    *logger.Logger
}

// Gateway is the single entry point for tool calls. It never fails outward:
// rejections and tool failures come back as "Error: ..." strings.
type Gateway struct {
	registry *Registry
	allow    map[string]bool
	limiter  *RateLimiter
	shield   *Shield
	metrics  *Metrics
	logger   *logger.Logger
	policies []policy
}

// NewGateway creates a Gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	g := &Gateway{
		registry: cfg.Registry,
		limiter:  cfg.Limiter,
		shield:   cfg.Shield,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if g.registry == nil {
		g.registry = NewRegistry()
	}
	if g.logger == nil {
		g.logger = logger.Nop()
	}
	if len(cfg.Allowlist) > 0 {
		g.allow = make(map[string]bool, len(cfg.Allowlist))
		for _, name := range cfg.Allowlist {
			g.allow[name] = true
		}
	}

	g.policies = []policy{
		{outcome: OutcomeAllowlist, check: g.checkAllowlist},
		{outcome: OutcomeRateLimited, check: g.checkRate},
		{outcome: OutcomeInvalidArgs, check: g.normalize},
		{outcome: OutcomeShield, check: g.checkShield},
	}
	return g
}

// Registry returns the underlying registry.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

// Execute dispatches name with args. args may be a map, a JSON string, or nil.
func (g *Gateway) Execute(ctx context.Context, name string, args any) string {
	c := &call{name: name, raw: args}

	for _, p := range g.policies {
		if ok, reason := p.check(c); !ok {
			g.metrics.observe(name, p.outcome)
			g.logger.WarnCtx(ctx, "tool call rejected",
				logger.Field{Key: "tool", Value: name},
				logger.Field{Key: "reason", Value: p.outcome})
			return reason
		}
	}

	result, err := g.registry.Execute(ctx, name, EncodeArgs(c.args))
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, ErrToolNotFound) {
			outcome = OutcomeUnknown
		}
		g.metrics.observe(name, outcome)

		fields := []logger.Field{{Key: "tool", Value: name}}
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			fields = append(fields, toolErr.LogFields()...)
		}
		g.logger.ErrorCtx(ctx, "tool failed", err, fields...)

		if outcome == OutcomeUnknown {
			return errorPrefix + "Unknown tool: " + name
		}
		return errorPrefix + err.Error()
	}

	g.metrics.observe(name, OutcomeOK)
	return result
}

func (g *Gateway) checkAllowlist(c *call) (bool, string) {
	if g.allow == nil || g.allow[c.name] {
		return true, ""
	}
	return false, MsgBlockedByAllowlist
}

func (g *Gateway) checkRate(c *call) (bool, string) {
	if g.limiter.Allow(c.name) {
		return true, ""
	}
	return false, MsgRateLimited
}

func (g *Gateway) normalize(c *call) (bool, string) {
	args, err := NormalizeArgs(c.raw)
	if err != nil {
		return false, MsgInvalidArgs
	}
	c.args = args
	return true, ""
}

func (g *Gateway) checkShield(c *call) (bool, string) {
	if g.shield.Blocks(c.name + " " + EncodeArgs(c.args)) {
		return false, MsgBlockedByShield
	}
	return true, ""
}
