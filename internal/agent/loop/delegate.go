package loop

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/aatumaykin/microbot/internal/llm"
	"github.com/aatumaykin/microbot/internal/logger"
)

const (
	plannerPrompt    = "You are Planner. Produce a short step list (3-6 bullets). Plain text only, no tools."
	researcherPrompt = "You are Researcher. Produce concise notes to support the plan. Plain text only, no tools."
	executorPrompt   = "You are Executor. Produce the final answer using the plan and notes. Plain text only, no tools."

	selectorPrompt = "You are a tool selector. Output ONLY JSON.\n" +
		"Return one of:\n" +
		`{"tool":"name","args":{...}} or {"tool":"none"}` + "\n" +
		"Use only listed tool names. Keep args minimal.\n"
)

// ask sends a single system+user exchange and returns the trimmed text.
func (l *Loop) ask(ctx context.Context, system, user string, maxTokens int, temp float64) (string, error) {
	resp, err := l.provider.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: user},
		},
		Model:       l.model,
		MaxTokens:   maxTokens,
		Temperature: temp,
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", llm.ErrNoResponse
	}
	return strings.TrimSpace(resp.Content), nil
}

// delegate runs the Planner/Researcher/Executor chain. It returns false when
// the chain gives up (error, empty step or deadline) so the caller falls
// through to the tool loop.
func (l *Loop) delegate(ctx context.Context, text string, temp float64) (string, bool) {
	cfg := l.delegation
	if cfg.MaxCalls <= 0 {
		return "", false
	}

	start := l.now()
	expired := func() bool {
		if cfg.TimeoutSeconds <= 0 {
			return false
		}
		return l.now().Sub(start) > time.Duration(cfg.TimeoutSeconds)*time.Second
	}
	step := func(system, user string) (string, bool) {
		out, err := l.ask(ctx, system, user, cfg.MaxTokensPerCall, temp)
		if err != nil {
			l.logger.WarnCtx(ctx, "delegation step failed",
				logger.Field{Key: "error", Value: err.Error()})
			return "", false
		}
		return out, out != ""
	}

	if expired() {
		return "", false
	}
	if cfg.MaxCalls == 1 {
		return step(executorPrompt, text)
	}

	plan, ok := step(plannerPrompt, text)
	if !ok || expired() {
		return "", false
	}
	if cfg.MaxCalls == 2 {
		return step(executorPrompt, "User request:\n"+text+"\n\nPlan:\n"+plan)
	}

	notes, ok := step(researcherPrompt, text)
	if !ok || expired() {
		return "", false
	}
	return step(executorPrompt, "User request:\n"+text+"\n\nPlan:\n"+plan+"\n\nNotes:\n"+notes)
}

// selectTool asks the model for a single tool pick in JSON.
func (l *Loop) selectTool(ctx context.Context, text string) (Route, bool) {
	lines := make([]string, 0, len(l.known))
	for _, name := range l.known {
		lines = append(lines, "- "+name)
	}
	user := "Tools:\n" + strings.Join(lines, "\n") + "\n\nUser request:\n" + text + "\n\nJSON only."

	content, err := l.ask(ctx, selectorPrompt, user, l.agent.SelectorMaxTokens, 0)
	if err != nil || content == "" {
		return Route{}, false
	}
	return parseSelection(content, l.known)
}

func parseSelection(content string, known []string) (Route, bool) {
	var pick struct {
		Tool string          `json:"tool"`
		Args json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &pick); err != nil {
		return Route{}, false
	}
	if pick.Tool == "" || pick.Tool == "none" {
		return Route{}, false
	}
	found := false
	for _, n := range known {
		if n == pick.Tool {
			found = true
			break
		}
	}
	if !found {
		return Route{}, false
	}

	args := map[string]any{}
	if len(pick.Args) > 0 {
		var m map[string]any
		if err := json.Unmarshal(pick.Args, &m); err == nil && m != nil {
			args = m
		}
	}
	return Route{Tool: pick.Tool, Args: args}, true
}
