// Package context builds the system prompt for the orchestration loop.
package context

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Limits applied to optional prompt sections (characters).
const (
	soulLimit     = 1000
	userLimit     = 500
	memoryLimit   = 800
	summaryLimit  = 800
	skillLimit    = 800
	skillsTotal   = 2000
	truncatedMark = "\n..."
)

const basePrompt = `# MicroBot AI
Personal assistant. Plain text only, no markdown.
`

const reactRules = `
## REACT LOOP (Think -> Act -> Observe)
1. Think: Reason about what the user needs.
2. Act: If you need to do something (search, read file, schedule, etc.), output exactly one line:
   TOOL:tool_name:{"arg": "value"}
   Use the exact tool names and JSON args from the Available Tools list. One tool per message.
3. Observe: You will receive "[Tool Result: tool_name]" plus the result. Then either:
   - Call another tool (output another TOOL: line), or
   - Reply to the user with a final answer (plain text, no TOOL line).
4. Tool results may be truncated (max ~2000 chars).

## TOOL RULES
- When calling a tool: output ONLY the TOOL line, no other text.
- After you receive a [Tool Result], either use another tool or reply to the user.
- Never show TOOL lines or raw args to the user.
- To send a file (PDF/article), use download_file.

## SCHEDULING
- Reminders: use set_schedule. Examples: "every day at 9am", "tomorrow at 14:00", "in 30 minutes".
- Types: "reminder" or "msg" = recurring message; "once" = one-time message; "cmd" = run shell command;
  "tool" = run one tool (content: "tool_name args" or "tool_name|json"); "once_tool" = run tool once then remove;
  "probe" = run check, alert only if non-empty (e.g. net_check); "agent" = run full agent with content as prompt;
  "once_agent" = same but remove after firing. If time is missing, ask.
`

// Builder builds system prompts from the data directory.
type Builder struct {
	dataDir  string
	timezone string
	now      func() time.Time
}

// Config holds configuration for the context builder.
type Config struct {
	DataDir  string // Data directory (config/SOUL.md, config/USER.md, memory/MEMORY.md, skills/*.md)
	Timezone string // User timezone (e.g., "Europe/Moscow")
	Now      func() time.Time
}

// Input carries the per-request parts of the prompt.
type Input struct {
	UserName string
	Tools    []string
	Summary  string // tail of the chat summary log
}

// NewBuilder creates a new context builder.
func NewBuilder(config Config) (*Builder, error) {
	if config.DataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Builder{
		dataDir:  config.DataDir,
		timezone: config.Timezone,
		now:      config.Now,
	}, nil
}

// Build creates the system prompt. Optional files that are missing or
// unreadable are skipped.
func (b *Builder) Build(in Input) string {
	var sb strings.Builder
	sb.WriteString(basePrompt)
	if in.UserName != "" {
		sb.WriteString("User: " + in.UserName + "\n")
	}
	sb.WriteString(reactRules)

	sb.WriteString("\n## Available Tools: ")
	sb.WriteString(strings.Join(in.Tools, ", "))
	sb.WriteString("\nFormat: TOOL:tool_name:{\"arg\": \"value\"}\n")

	sections := []struct {
		title string
		body  string
	}{
		{"Personality (SOUL)", b.readLimited(filepath.Join("config", "SOUL.md"), soulLimit)},
		{"User Profile", b.readLimited(filepath.Join("config", "USER.md"), userLimit)},
		{"Memory", b.readLimited(filepath.Join("memory", "MEMORY.md"), memoryLimit)},
		{"Summary", tail(in.Summary, summaryLimit)},
		{"Skills", b.skills()},
	}
	for _, s := range sections {
		if strings.TrimSpace(s.body) == "" {
			continue
		}
		sb.WriteString("\n## " + s.title + "\n")
		sb.WriteString(b.processTemplates(s.body))
		sb.WriteString("\n")
	}

	return sb.String()
}

// skills concatenates skills/*.md in name order.
func (b *Builder) skills() string {
	dir := filepath.Join(b.dataDir, "skills")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var parts []string
	total := 0
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil || len(data) == 0 {
			continue
		}
		txt := string(data)
		if len(txt) > skillLimit {
			txt = txt[:skillLimit] + truncatedMark
		}
		parts = append(parts, "### "+name+"\n"+txt)
		total += len(txt)
		if total > skillsTotal {
			break
		}
	}
	return strings.Join(parts, "\n\n")
}

// processTemplates replaces template variables with actual values.
func (b *Builder) processTemplates(content string) string {
	now := b.now()

	timezone := b.timezone
	if timezone == "" {
		timezone = "local"
	}

	r := strings.NewReplacer(
		"{{CURRENT_TIME}}", now.Format("15:04:05"),
		"{{CURRENT_DATE}}", now.Format("2006-01-02"),
		"{{DATA_DIR}}", b.dataDir,
		"{{TIMEZONE}}", timezone,
	)
	return r.Replace(content)
}

// readLimited reads a file under the data directory, keeping the first limit bytes.
func (b *Builder) readLimited(rel string, limit int) string {
	data, err := os.ReadFile(filepath.Join(b.dataDir, rel))
	if err != nil {
		return ""
	}
	if len(data) > limit {
		data = data[:limit]
	}
	return string(data)
}

// tail keeps the last limit bytes of s.
func tail(s string, limit int) string {
	if len(s) > limit {
		return s[len(s)-limit:]
	}
	return s
}

// DataDir returns the data directory.
func (b *Builder) DataDir() string {
	return b.dataDir
}
