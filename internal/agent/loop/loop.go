// Package loop implements the THINK/ACT/OBSERVE orchestration loop.
//
// A request first tries the cheap paths (rule-based quick routes, the
// delegation chain for deep planning requests, the optional JSON tool
// selector) and only then enters the tool loop, where the model either
// answers or names one tool per turn.
package loop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	agentcontext "github.com/aatumaykin/microbot/internal/agent/context"
	"github.com/aatumaykin/microbot/internal/agent/session"
	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/llm"
	"github.com/aatumaykin/microbot/internal/logger"
	"github.com/aatumaykin/microbot/internal/retry"
)

// User-facing failure texts.
const (
	MsgNoResponse = "Error contacting AI. Please try again."
	MsgEmptyReply = "Error: Empty response from AI."
	MsgProblem    = "I ran into a problem processing your request."
	msgAPIError   = "AI error: "
)

const (
	defaultMaxIterations = 8
	defaultWaitAfter     = 5 * time.Second
	summaryPromptLines   = 20
)

// DefaultWaitPhrases rotate as "still working" notices.
var DefaultWaitPhrases = []string{
	"Still working on it, almost done.",
	"Give me one more second, processing.",
	"Working on it, just a moment.",
}

// Config holds configuration for the loop.
type Config struct {
	Provider   llm.Provider
	Gateway    Gateway
	Sessions   *session.Manager
	Prompt     *agentcontext.Builder
	Sender     channels.Sender // preambles, wait notices and files; may be nil
	Logger     *logger.Logger
	Metrics    *Metrics
	Model      string
	Tools      []string // registered tool names
	// ToolDefs are offered as native function definitions when
	// Agent.NativeTools is on and the provider supports tool calling.
	ToolDefs   []llm.ToolDefinition
	Agent      config.AgentConfig
	Routing    config.RoutingConfig
	Delegation config.DelegationConfig

	WaitPhrases []string
	Now         func() time.Time
	Sleep       func(ctx context.Context, d time.Duration) error
}

// Loop manages the agent's execution loop, coordinating between
// LLM provider, session management, and tools.
type Loop struct {
	provider   llm.Provider
	sessions   *session.Manager
	prompt     *agentcontext.Builder
	sender     channels.Sender
	executor   *ToolExecutor
	logger     *logger.Logger
	metrics    *Metrics
	model      string
	tools      []string
	toolDefs   []llm.ToolDefinition
	available  map[string]bool
	known      []string
	agent      config.AgentConfig
	routing    config.RoutingConfig
	delegation config.DelegationConfig
	waitAfter  time.Duration

	phrases []string
	phrase  atomic.Uint64

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	chats map[string]*sync.Mutex
}

// NewLoop creates a new execution loop.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("LLM provider cannot be nil")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("tool gateway cannot be nil")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager cannot be nil")
	}
	if cfg.Prompt == nil {
		return nil, fmt.Errorf("prompt builder cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Agent.MaxIterations <= 0 {
		cfg.Agent.MaxIterations = defaultMaxIterations
	}
	if cfg.Agent.ReactRetries < 1 {
		cfg.Agent.ReactRetries = 1
	}
	if len(cfg.WaitPhrases) == 0 {
		cfg.WaitPhrases = DefaultWaitPhrases
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = retry.Sleep
	}
	if cfg.Model == "" {
		cfg.Model = cfg.Provider.GetDefaultModel()
	}

	waitAfter := time.Duration(cfg.Agent.WaitAfterSeconds) * time.Second
	if waitAfter <= 0 {
		waitAfter = defaultWaitAfter
	}

	var toolDefs []llm.ToolDefinition
	if cfg.Agent.NativeTools && cfg.Provider.SupportsToolCalling() {
		toolDefs = cfg.ToolDefs
	}

	available := make(map[string]bool, len(cfg.Tools))
	for _, name := range cfg.Tools {
		available[name] = true
	}

	return &Loop{
		provider:   cfg.Provider,
		sessions:   cfg.Sessions,
		prompt:     cfg.Prompt,
		sender:     cfg.Sender,
		executor:   NewToolExecutor(cfg.Logger, cfg.Gateway, cfg.Sender, cfg.Agent.ProtectedFiles),
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		model:      cfg.Model,
		tools:      cfg.Tools,
		toolDefs:   toolDefs,
		available:  available,
		known:      mergeNames(DefaultKnownTools, cfg.Tools),
		agent:      cfg.Agent,
		routing:    cfg.Routing,
		delegation: cfg.Delegation,
		waitAfter:  waitAfter,
		phrases:    cfg.WaitPhrases,
		now:        cfg.Now,
		sleep:      cfg.Sleep,
		chats:      make(map[string]*sync.Mutex),
	}, nil
}

// Process handles a user message and returns the reply. Requests for the
// same chat are serialized. The error is only set when ctx is done; every
// other failure is reported in the reply text.
func (l *Loop) Process(ctx context.Context, chat, userName, text string) (string, error) {
	unlock := l.lockChat(chat)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	l.logger.DebugCtx(ctx, "processing user message",
		logger.Field{Key: "chat", Value: chat},
		logger.Field{Key: "message_length", Value: len(text)})

	l.remember(ctx, chat, llm.RoleUser, text)

	tier := ClassifyTier(l.routing, text)
	budget := BudgetFor(l.routing, tier)

	if route, ok := QuickRoute(text); ok && l.isAvailable(route.Tool) {
		return l.runRoute(ctx, chat, route, RouteQuick), nil
	}

	if ShouldDelegate(l.delegation, text, tier) {
		if out, ok := l.delegate(ctx, text, budget.Temperature); ok {
			l.remember(ctx, chat, llm.RoleAssistant, out)
			l.metrics.reply(RouteDelegated)
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	if l.agent.EnableSelector {
		if route, ok := l.selectTool(ctx, text); ok {
			return l.runRoute(ctx, chat, route, RouteSelector), nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	return l.react(ctx, chat, userName, budget)
}

// Clear drops the conversation history of chat.
func (l *Loop) Clear(chat string) error {
	return l.sessions.Clear(chat)
}

// History returns the conversation history of chat.
func (l *Loop) History(chat string) []llm.Message {
	return l.sessions.History(chat)
}

// runRoute executes a tool picked without the tool loop and replies with its result.
func (l *Loop) runRoute(ctx context.Context, chat string, route Route, kind string) string {
	l.logger.DebugCtx(ctx, "routing request straight to tool",
		logger.Field{Key: "tool_name", Value: route.Tool},
		logger.Field{Key: "route", Value: kind})

	result := truncateResult(l.executor.Execute(ctx, chat, route.Tool, route.Args))
	l.remember(ctx, chat, llm.RoleAssistant, result)
	l.metrics.reply(kind)
	return result
}

// react runs the THINK/ACT/OBSERVE cycle.
func (l *Loop) react(ctx context.Context, chat, userName string, budget Budget) (string, error) {
	summary, err := l.sessions.SummaryTail(chat, summaryPromptLines)
	if err != nil {
		l.logger.WarnCtx(ctx, "failed to read summary", logger.Field{Key: "error", Value: err.Error()})
	}
	system := l.prompt.Build(agentcontext.Input{
		UserName: userName,
		Tools:    l.tools,
		Summary:  strings.Join(summary, "\n"),
	})

	var lastName, lastResult string
	start := l.now()
	sentWait := false
	iterations := 0
	defer func() { l.metrics.observeIterations(iterations) }()

	for iteration := 0; iteration < l.agent.MaxIterations; iteration++ {
		iterations = iteration + 1

		if !sentWait && l.now().Sub(start) > l.waitAfter {
			if l.agent.SendWaitMessages {
				l.send(ctx, chat, l.nextWaitPhrase())
			}
			sentWait = true
		}

		// THINK
		resp, fail := l.think(ctx, system, chat, budget, iteration)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if fail != nil {
			if iteration == 0 {
				l.metrics.reply(RouteError)
				return fail.reply(), nil
			}
			break
		}

		// ACT
		det, found := DetectTool(resp.Content, l.known)
		if !found && len(resp.ToolCalls) > 0 {
			tc := resp.ToolCalls[0]
			args := strings.TrimSpace(tc.Arguments)
			if args == "" {
				args = "{}"
			}
			det = Detection{Name: tc.Name, Args: args, Preamble: strings.TrimSpace(resp.Content)}
			found = true
		}
		if !found {
			l.remember(ctx, chat, llm.RoleAssistant, resp.Content)
			l.metrics.reply(RouteAnswer)
			return resp.Content, nil
		}

		if det.Preamble != "" {
			l.send(ctx, chat, det.Preamble)
			start = l.now()
		}

		l.logger.DebugCtx(ctx, "act",
			logger.Field{Key: "tool_name", Value: det.Name},
			logger.Field{Key: "iteration", Value: iteration})
		l.remember(ctx, chat, llm.RoleAssistant, "TOOL:"+det.Name+":"+det.Args)

		// OBSERVE
		result := l.executor.Execute(ctx, chat, det.Name, det.Args)
		lastName, lastResult = det.Name, result
		result = truncateResult(result)

		if l.agent.OneToolOnly {
			reply, _ := l.directReply(det.Name, result, true)
			l.remember(ctx, chat, llm.RoleAssistant, reply)
			l.metrics.reply(RouteDirect)
			return reply, nil
		}
		if reply, ok := l.directReply(det.Name, result, false); ok {
			l.remember(ctx, chat, llm.RoleAssistant, reply)
			l.metrics.reply(RouteDirect)
			return reply, nil
		}

		l.remember(ctx, chat, llm.RoleUser, "[Tool Result: "+det.Name+"]\n"+result)
	}

	l.metrics.reply(RouteFallback)
	if lastResult != "" {
		if reply, ok := l.directReply(lastName, lastResult, false); ok && reply != "" {
			return reply, nil
		}
		return lastResult, nil
	}
	return MsgProblem, nil
}

type failureKind int

const (
	failNoResponse failureKind = iota
	failAPI
	failEmpty
)

type thinkFailure struct {
	kind    failureKind
	message string
}

func (f *thinkFailure) reply() string {
	switch f.kind {
	case failAPI:
		if f.message == "" {
			return msgAPIError + "request failed"
		}
		return msgAPIError + f.message
	case failEmpty:
		return MsgEmptyReply
	default:
		return MsgNoResponse
	}
}

// think calls the model, retrying up to react_retries times with a growing pause.
func (l *Loop) think(ctx context.Context, system, chat string, budget Budget, iteration int) (*llm.ChatResponse, *thinkFailure) {
	req := llm.ChatRequest{
		Messages:    append([]llm.Message{{Role: llm.RoleSystem, Content: system}}, l.sessions.History(chat)...),
		Model:       l.model,
		MaxTokens:   budget.MaxTokens,
		Temperature: budget.Temperature,
		Tools:       l.toolDefs,
	}

	var fail *thinkFailure
	for attempt := 0; attempt < l.agent.ReactRetries; attempt++ {
		if attempt > 0 {
			if err := l.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
				return nil, &thinkFailure{kind: failNoResponse}
			}
		}

		resp, err := l.provider.Chat(ctx, req)
		var apiErr *llm.APIError
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, &thinkFailure{kind: failNoResponse}
		case errors.As(err, &apiErr):
			fail = &thinkFailure{kind: failAPI, message: apiErr.Message}
		case err != nil, resp == nil:
			fail = &thinkFailure{kind: failNoResponse}
		case resp.Content == "" && len(resp.ToolCalls) == 0:
			fail = &thinkFailure{kind: failEmpty}
		default:
			return resp, nil
		}

		l.logger.WarnCtx(ctx, "think failed, retrying",
			logger.Field{Key: "iteration", Value: iteration},
			logger.Field{Key: "attempt", Value: attempt + 1},
			logger.Field{Key: "reply", Value: fail.reply()})
	}
	return nil, fail
}

func (l *Loop) remember(ctx context.Context, chat string, role llm.Role, content string) {
	if err := l.sessions.Append(chat, role, content); err != nil {
		l.logger.WarnCtx(ctx, "failed to store history",
			logger.Field{Key: "chat", Value: chat},
			logger.Field{Key: "error", Value: err.Error()})
	}
}

func (l *Loop) send(ctx context.Context, chat, text string) {
	if l.sender == nil || text == "" {
		return
	}
	if err := l.sender.SendMessage(ctx, chat, text); err != nil {
		l.logger.ErrorCtx(ctx, "failed to send message", err,
			logger.Field{Key: "chat", Value: chat})
	}
}

func (l *Loop) nextWaitPhrase() string {
	i := l.phrase.Add(1) - 1
	return l.phrases[i%uint64(len(l.phrases))]
}

func (l *Loop) isAvailable(tool string) bool {
	return len(l.available) == 0 || l.available[tool]
}

func (l *Loop) lockChat(chat string) func() {
	l.mu.Lock()
	m, ok := l.chats[chat]
	if !ok {
		m = &sync.Mutex{}
		l.chats[chat] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
