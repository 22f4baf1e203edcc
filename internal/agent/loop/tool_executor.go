package loop

import (
	"context"
	"strings"
	"time"

	"github.com/aatumaykin/microbot/internal/channels"
	"github.com/aatumaykin/microbot/internal/logger"
)

// MsgForbidden is returned instead of running a call that names a protected file.
const MsgForbidden = "Error: Access to system files is forbidden."

// Gateway dispatches tool calls. Failures come back as "Error: ..." strings.
type Gateway interface {
	Execute(ctx context.Context, name string, args any) string
}

// ToolExecutor runs detected tool calls through the gateway and turns FILE:
// results into a delivered file.
type ToolExecutor struct {
	logger    *logger.Logger
	gateway   Gateway
	sender    channels.Sender
	protected []string
}

// NewToolExecutor creates a new ToolExecutor.
func NewToolExecutor(log *logger.Logger, gateway Gateway, sender channels.Sender, protected []string) *ToolExecutor {
	return &ToolExecutor{
		logger:    log,
		gateway:   gateway,
		sender:    sender,
		protected: protected,
	}
}

// Execute runs one call for chat and returns the untruncated result.
func (te *ToolExecutor) Execute(ctx context.Context, chat, name string, args any) string {
	if raw, ok := args.(string); ok && te.touchesProtected(raw) {
		te.logger.WarnCtx(ctx, "tool call names a protected file",
			logger.Field{Key: "tool_name", Value: name})
		return MsgForbidden
	}

	te.logger.DebugCtx(ctx, "executing tool",
		logger.Field{Key: "tool_name", Value: name},
		logger.Field{Key: "chat", Value: chat})

	start := time.Now()
	result := te.gateway.Execute(ctx, name, args)

	te.logger.DebugCtx(ctx, "tool execution completed",
		logger.Field{Key: "tool_name", Value: name},
		logger.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
		logger.Field{Key: "result_bytes", Value: len(result)})

	return te.deliver(ctx, chat, result)
}

// deliver sends the file named by a FILE: result.
func (te *ToolExecutor) deliver(ctx context.Context, chat, result string) string {
	if te.sender == nil {
		return result
	}
	out, err := channels.DeliverFileResult(ctx, te.sender, chat, result)
	if err != nil {
		te.logger.ErrorCtx(ctx, "failed to send file", err,
			logger.Field{Key: "chat", Value: chat})
	}
	return out
}

func (te *ToolExecutor) touchesProtected(args string) bool {
	for _, p := range te.protected {
		if p != "" && strings.Contains(args, p) {
			return true
		}
	}
	return false
}
