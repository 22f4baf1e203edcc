package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/microbot/internal/cron"
)

const scheduleIDLen = 8

// DirectiveStore is the part of cron.Storage the schedule tools use.
type DirectiveStore interface {
	List() ([]cron.Directive, error)
	Append(d cron.Directive) error
	Remove(id string) error
}

type scheduleBase struct {
	store    DirectiveStore
	clock    TimeSource
	timezone string
}

// now returns the wall clock in the configured timezone, carried in a UTC
// time.Time so that its fields are the local wall-clock fields.
func (b scheduleBase) now(ctx context.Context) time.Time {
	return b.clock.Now(ctx, b.timezone).Time(time.UTC)
}

// newScheduleID returns a short random id.
func newScheduleID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:scheduleIDLen]
}

// cleanField keeps a directive field on one store line.
func cleanField(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// SetScheduleTool implements set_schedule.
type SetScheduleTool struct {
	scheduleBase
}

// NewSetScheduleTool creates a new SetScheduleTool.
func NewSetScheduleTool(store DirectiveStore, clock TimeSource, timezone string) *SetScheduleTool {
	return &SetScheduleTool{scheduleBase{store: store, clock: clock, timezone: timezone}}
}

// Name returns the tool name.
func (t *SetScheduleTool) Name() string {
	return "set_schedule"
}

// Description returns a description of what the tool does.
func (t *SetScheduleTool) Description() string {
	return "Schedules a message, command, tool or agent run. " +
		"Args: {\"cron\": \"0 9 * * *\" or \"schedule\": \"tomorrow at 9am\", \"content\": \"...\", \"type\": \"msg|cmd|tool|agent\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *SetScheduleTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cron": map[string]any{
				"type":        "string",
				"description": "5-field cron expression (minute hour day month weekday).",
			},
			"schedule": map[string]any{
				"type":        "string",
				"description": "Natural phrase: 'in 10 minutes', 'tomorrow at 9am', 'every day at 18:30', 'every monday at 8'.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Message text, shell command, tool call or agent prompt.",
			},
			"type": map[string]any{
				"type":        "string",
				"description": "msg (default), reminder, cmd, tool, agent, or a once_ variant.",
			},
			"id": map[string]any{
				"type":        "string",
				"description": "Optional schedule id.",
			},
		},
		"required": []string{"content"},
	}
}

// Execute stores a new directive for the current chat.
func (t *SetScheduleTool) Execute(ctx context.Context, args string) (string, error) {
	var m map[string]any
	if err := parseJSON(args, &m); err != nil {
		return "", err
	}

	expr, typ, err := cron.NormalizeScheduleArgs(m, t.now(ctx))
	if err != nil {
		return "", NewValidationError(CodeInvalidArgs, cron.UserMessage(err), nil)
	}
	if !cron.KnownType(typ) {
		return "", NewValidationError(CodeInvalidArgs, fmt.Sprintf("unknown schedule type: %s", typ), nil)
	}

	content := cleanField(firstString(m, "content", "message", "command"))
	if content == "" {
		return "", NewValidationError(CodeInvalidArgs, "content is required", nil)
	}

	id := cleanField(firstString(m, "id", "name"))
	if id == "" {
		id = newScheduleID()
	}
	if strings.Contains(id, "|") {
		return "", NewValidationError(CodeInvalidArgs, "id must not contain '|'", nil)
	}

	d := cron.Directive{
		ID:      id,
		Cron:    expr,
		Chat:    ChatFromContext(ctx),
		Type:    typ,
		Content: content,
	}
	if err := t.store.Append(d); err != nil {
		return "", NewExecutionError(CodeExecution, fmt.Sprintf("failed to save schedule: %v", err), "", -1)
	}

	return fmt.Sprintf("Scheduled %s: %s (%s) %s", d.ID, d.Cron, d.Type, d.Content), nil
}

// SetProbeTool implements set_probe: a recurring probe that alerts the chat.
type SetProbeTool struct {
	scheduleBase
}

// NewSetProbeTool creates a new SetProbeTool.
func NewSetProbeTool(store DirectiveStore) *SetProbeTool {
	return &SetProbeTool{scheduleBase{store: store}}
}

// Name returns the tool name.
func (t *SetProbeTool) Name() string {
	return "set_probe"
}

// Description returns a description of what the tool does.
func (t *SetProbeTool) Description() string {
	return "Runs a probe tool on a cron schedule and reports only when it alerts. Args: {\"cron\": \"*/5 * * * *\", \"probe\": \"net_check\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *SetProbeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"cron":  map[string]any{"type": "string", "description": "5-field cron expression."},
			"probe": map[string]any{"type": "string", "description": "Probe tool name, e.g. net_check."},
			"id":    map[string]any{"type": "string", "description": "Optional schedule id."},
		},
		"required": []string{"cron", "probe"},
	}
}

// Execute stores a probe directive.
func (t *SetProbeTool) Execute(ctx context.Context, args string) (string, error) {
	var m map[string]any
	if err := parseJSON(args, &m); err != nil {
		return "", err
	}

	expr := strings.TrimSpace(firstString(m, "cron", "cron_expression"))
	if !cron.IsValid(expr) {
		return "", NewValidationError(CodeInvalidArgs, "invalid cron expression: "+expr, nil)
	}
	probe := cleanField(firstString(m, "probe"))
	if probe == "" {
		return "", NewValidationError(CodeInvalidArgs, "probe is required", nil)
	}
	id := cleanField(firstString(m, "id"))
	if id == "" {
		id = newScheduleID()
	}

	d := cron.Directive{ID: id, Cron: expr, Chat: ChatFromContext(ctx), Type: cron.TypeProbe, Content: probe}
	if err := t.store.Append(d); err != nil {
		return "", NewExecutionError(CodeExecution, fmt.Sprintf("failed to save probe: %v", err), "", -1)
	}
	return fmt.Sprintf("Probe %s scheduled: %s (%s)", d.ID, d.Cron, d.Content), nil
}

// ListSchedulesTool implements list_schedules.
type ListSchedulesTool struct {
	scheduleBase
}

// NewListSchedulesTool creates a new ListSchedulesTool.
func NewListSchedulesTool(store DirectiveStore) *ListSchedulesTool {
	return &ListSchedulesTool{scheduleBase{store: store}}
}

// Name returns the tool name.
func (t *ListSchedulesTool) Name() string {
	return "list_schedules"
}

// Description returns a description of what the tool does.
func (t *ListSchedulesTool) Description() string {
	return "Lists scheduled tasks. Args: {}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *ListSchedulesTool) Parameters() map[string]any {
	return emptySchema()
}

// Execute lists every stored directive.
func (t *ListSchedulesTool) Execute(_ context.Context, _ string) (string, error) {
	directives, err := t.store.List()
	if err != nil {
		return "", NewExecutionError(CodeExecution, fmt.Sprintf("failed to read schedules: %v", err), "", -1)
	}
	if len(directives) == 0 {
		return "No schedules.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Schedules (%d):\n", len(directives))
	for _, d := range directives {
		fmt.Fprintf(&b, "- %s | %s | %s | %s\n", d.ID, d.Cron, d.Type, d.Content)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// RemoveScheduleTool implements remove_schedule.
type RemoveScheduleTool struct {
	scheduleBase
}

// NewRemoveScheduleTool creates a new RemoveScheduleTool.
func NewRemoveScheduleTool(store DirectiveStore) *RemoveScheduleTool {
	return &RemoveScheduleTool{scheduleBase{store: store}}
}

// Name returns the tool name.
func (t *RemoveScheduleTool) Name() string {
	return "remove_schedule"
}

// Description returns a description of what the tool does.
func (t *RemoveScheduleTool) Description() string {
	return "Removes a scheduled task by id. Args: {\"id\": \"a1b2c3d4\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *RemoveScheduleTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string", "description": "Schedule id from list_schedules."},
		},
		"required": []string{"id"},
	}
}

// Execute removes the directive.
func (t *RemoveScheduleTool) Execute(_ context.Context, args string) (string, error) {
	var m map[string]any
	if err := parseJSON(args, &m); err != nil {
		return "", err
	}
	id := strings.TrimSpace(firstString(m, "id", "name"))
	if id == "" {
		return "", NewValidationError(CodeInvalidArgs, "id is required", nil)
	}

	if err := t.store.Remove(id); err != nil {
		if errors.Is(err, cron.ErrDirectiveNotFound) {
			return "", NewNotFoundError(CodeNotFound, "schedule not found: "+id, "Use list_schedules to see ids.")
		}
		return "", NewExecutionError(CodeExecution, fmt.Sprintf("failed to remove schedule: %v", err), "", -1)
	}
	return "Removed schedule " + id + ".", nil
}
