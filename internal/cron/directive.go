package cron

import (
	"encoding/json"
	"strings"
)

// Directive types.
const (
	TypeMsg       = "msg"
	TypeReminder  = "reminder"
	TypeCmd       = "cmd"
	TypeTool      = "tool"
	TypeOnce      = "once"
	TypeOnceCmd   = "once_cmd"
	TypeOnceTool  = "once_tool"
	TypeProbe     = "probe"
	TypeAgent     = "agent"
	TypeOnceAgent = "once_agent"
)

// minLineLength is the shortest line that can hold a directive.
const minLineLength = 10

// Directive binds a cron expression to an action for a chat.
type Directive struct {
	ID      string `json:"id" yaml:"id"`
	Cron    string `json:"cron" yaml:"cron"`
	Chat    string `json:"chat" yaml:"chat"`
	Type    string `json:"type" yaml:"type"`
	Content string `json:"content" yaml:"content"`
}

// Line is one line of the directive store. Raw is always kept so that lines
// which do not parse survive a rewrite untouched.
type Line struct {
	Raw       string
	Directive *Directive
}

// ParseLine splits id|cron|chat|type|content on the first four separators.
// Short lines and lines with fewer than five parts yield ok=false.
func ParseLine(raw string) (Directive, bool) {
	if len(raw) < minLineLength {
		return Directive{}, false
	}
	parts := strings.SplitN(raw, "|", 5)
	if len(parts) != 5 {
		return Directive{}, false
	}
	return Directive{
		ID:      parts[0],
		Cron:    parts[1],
		Chat:    parts[2],
		Type:    strings.ToLower(strings.TrimSpace(parts[3])),
		Content: parts[4],
	}, true
}

// Format renders the directive as a store line.
func (d Directive) Format() string {
	return d.ID + "|" + d.Cron + "|" + d.Chat + "|" + d.Type + "|" + d.Content
}

// IsOneShot reports whether directives of type typ are removed after firing.
func IsOneShot(typ string) bool {
	return strings.HasPrefix(typ, TypeOnce)
}

// IsMessage reports msg and reminder types, including prefixed variants.
func IsMessage(typ string) bool {
	return strings.HasPrefix(typ, TypeMsg) || strings.HasPrefix(typ, TypeReminder)
}

// OnceVariant maps a type to its one-shot counterpart.
func OnceVariant(typ string) string {
	switch {
	case IsOneShot(typ):
		return typ
	case typ == TypeCmd:
		return TypeOnceCmd
	case typ == TypeTool:
		return TypeOnceTool
	case typ == TypeAgent:
		return TypeOnceAgent
	default:
		return TypeOnce
	}
}

// RecurringVariant maps a one-shot type to its recurring counterpart.
func RecurringVariant(typ string) string {
	switch typ {
	case TypeOnceCmd:
		return TypeCmd
	case TypeOnceTool:
		return TypeTool
	case TypeOnceAgent:
		return TypeAgent
	case TypeOnce:
		return TypeReminder
	default:
		return typ
	}
}

// KnownType reports whether typ has a side effect.
func KnownType(typ string) bool {
	if IsMessage(typ) {
		return true
	}
	switch typ {
	case TypeCmd, TypeTool, TypeOnce, TypeOnceCmd, TypeOnceTool, TypeProbe, TypeAgent, TypeOnceAgent:
		return true
	}
	return false
}

// ParseToolContent splits tool directive content into a tool name and JSON args:
// "name|{json}", "name" ({}), "name {json}" or "name free text" ({"query": text}).
func ParseToolContent(content string) (name, args string) {
	if pipe := strings.Index(content, "|"); pipe >= 0 {
		return content[:pipe], content[pipe+1:]
	}
	sp := strings.Index(content, " ")
	if sp < 0 {
		return content, "{}"
	}
	name, rest := content[:sp], content[sp+1:]
	if strings.HasPrefix(rest, "{") {
		return name, rest
	}
	encoded, _ := json.Marshal(map[string]string{"query": rest})
	return name, string(encoded)
}
