package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type contextKey string

const chatKey contextKey = "chat"

// WithChat attaches the chat a tool call is made on behalf of.
func WithChat(ctx context.Context, chat string) context.Context {
	return context.WithValue(ctx, chatKey, chat)
}

// ChatFromContext returns the chat set by WithChat.
func ChatFromContext(ctx context.Context) string {
	if chat, ok := ctx.Value(chatKey).(string); ok {
		return chat
	}
	return ""
}

// parseJSON is a helper function to parse JSON arguments.
func parseJSON(jsonStr string, v any) error {
	if strings.TrimSpace(jsonStr) == "" {
		jsonStr = "{}"
	}
	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return NewValidationError(CodeInvalidArgs, fmt.Sprintf("failed to parse arguments: %v", err), nil)
	}
	return nil
}

// firstString returns the first non-empty string value among keys.
func firstString(args map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := args[key]; ok && v != nil {
			if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
				return s
			}
		}
	}
	return ""
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
		"required":   []string{},
	}
}
