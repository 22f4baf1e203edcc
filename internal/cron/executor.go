package cron

import (
	"context"
	"fmt"
	"strings"

	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/logger"
)

const (
	// netCheckProbe is the built-in probe whose output is only relevant when it reports NET_DOWN.
	netCheckProbe  = "net_check"
	netDownMarker  = "NET_DOWN"
	agentUserName  = "Schedule"
	agentErrPrefix = "Schedule agent error: "
	agentErrMaxLen = 200
)

// ToolRunner dispatches a tool call through the policy gateway.
// It never fails outward; rejections come back as "Error: ..." strings.
type ToolRunner interface {
	Execute(ctx context.Context, name string, args any) string
}

// CommandRunner runs a shell command and returns its captured output.
// Failures are reported inside the output.
type CommandRunner interface {
	Run(ctx context.Context, command string) string
}

// AgentRunner runs the orchestration loop for a prompt on behalf of a chat.
type AgentRunner interface {
	Process(ctx context.Context, chat, userName, text string) (string, error)
}

// Executor performs the side effect of a directive.
type Executor struct {
	sender   channels.Sender
	tools    ToolRunner
	commands CommandRunner
	agent    AgentRunner
	logger   *logger.Logger
}

// ExecutorDeps groups the collaborators of an Executor. Tools, Commands and
// Agent may be nil; directives needing a missing collaborator fail.
type ExecutorDeps struct {
	Sender   channels.Sender
	Tools    ToolRunner
	Commands CommandRunner
	Agent    AgentRunner
	Logger   *logger.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(deps ExecutorDeps) *Executor {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{
		sender:   deps.Sender,
		tools:    deps.Tools,
		commands: deps.Commands,
		agent:    deps.Agent,
		logger:   log,
	}
}

// SetAgent wires the orchestration loop after construction; the loop itself
// depends on tools that reference the scheduler.
func (e *Executor) SetAgent(agent AgentRunner) {
	e.agent = agent
}

// Fire runs the side effect of d. fired reports whether the directive counts
// as fired for dedupe and one-shot removal; probes that stay silent are not fired.
func (e *Executor) Fire(ctx context.Context, d Directive) (fired bool, err error) {
	switch {
	case IsMessage(d.Type), d.Type == TypeOnce:
		return e.send(ctx, d.Chat, d.Content)

	case d.Type == TypeCmd, d.Type == TypeOnceCmd:
		if e.commands == nil {
			return false, fmt.Errorf("no command runner for directive %s", d.ID)
		}
		return e.send(ctx, d.Chat, e.commands.Run(ctx, d.Content))

	case d.Type == TypeTool, d.Type == TypeOnceTool:
		return e.fireTool(ctx, d)

	case d.Type == TypeProbe:
		return e.fireProbe(ctx, d)

	case d.Type == TypeAgent, d.Type == TypeOnceAgent:
		return e.fireAgent(ctx, d)
	}

	e.logger.DebugCtx(ctx, "unknown directive type",
		logger.Field{Key: "id", Value: d.ID},
		logger.Field{Key: "type", Value: d.Type})
	return false, nil
}

func (e *Executor) send(ctx context.Context, chat, text string) (bool, error) {
	if err := e.sender.SendMessage(ctx, chat, text); err != nil {
		return false, fmt.Errorf("send to %s: %w", chat, err)
	}
	return true, nil
}

func (e *Executor) fireTool(ctx context.Context, d Directive) (bool, error) {
	if e.tools == nil {
		return false, fmt.Errorf("no tool runner for directive %s", d.ID)
	}
	name, args := ParseToolContent(d.Content)
	result := e.tools.Execute(ctx, name, args)

	if _, isFile := channels.FilePath(result); isFile {
		confirmation, err := channels.DeliverFileResult(ctx, e.sender, d.Chat, result)
		if err != nil {
			return false, fmt.Errorf("send file to %s: %w", d.Chat, err)
		}
		return e.send(ctx, d.Chat, confirmation)
	}
	return e.send(ctx, d.Chat, result)
}

func (e *Executor) fireProbe(ctx context.Context, d Directive) (bool, error) {
	if e.tools == nil {
		return false, fmt.Errorf("no tool runner for directive %s", d.ID)
	}
	name := strings.TrimSpace(d.Content)
	result := e.tools.Execute(ctx, name, "{}")

	alert := result != ""
	if name == netCheckProbe {
		alert = strings.Contains(result, netDownMarker)
	}
	if !alert {
		return false, nil
	}
	return e.send(ctx, d.Chat, result)
}

func (e *Executor) fireAgent(ctx context.Context, d Directive) (bool, error) {
	if e.agent == nil {
		return false, fmt.Errorf("no agent for directive %s", d.ID)
	}
	reply, err := e.agent.Process(ctx, d.Chat, agentUserName, d.Content)
	if err != nil {
		// the run happened; report it to the chat and count the directive as fired
		msg := err.Error()
		if len(msg) > agentErrMaxLen {
			msg = msg[:agentErrMaxLen]
		}
		if sendErr := e.sender.SendMessage(ctx, d.Chat, agentErrPrefix+msg); sendErr != nil {
			e.logger.WarnCtx(ctx, "failed to report agent error",
				logger.Field{Key: "id", Value: d.ID},
				logger.Field{Key: "error", Value: sendErr.Error()})
		}
		return true, nil
	}
	if reply == "" {
		return true, nil
	}
	return e.send(ctx, d.Chat, reply)
}
