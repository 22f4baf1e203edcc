package tools

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

// ShellValidator checks commands against deny_commands.
// Pipelines and command lists are split into segments and every segment is
// checked on its own, so "ls; rm -rf /" is caught by a "rm" pattern.
type ShellValidator struct {
	denyCommands []string
}

// NewShellValidator creates a new ShellValidator.
func NewShellValidator(denyCommands []string) *ShellValidator {
	deny := make([]string, 0, len(denyCommands))
	for _, d := range denyCommands {
		if d = strings.TrimSpace(d); d != "" {
			deny = append(deny, d)
		}
	}
	return &ShellValidator{denyCommands: deny}
}

// wrappers are skipped when looking for the real command name.
var wrappers = map[string]bool{"sudo": true, "env": true, "nohup": true, "time": true, "nice": true}

// Validate returns an error if command is empty, cannot be tokenized, or any
// segment matches a deny pattern.
func (v *ShellValidator) Validate(command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return fmt.Errorf("command is required")
	}

	for _, segment := range splitSegments(command) {
		tokens, err := shlex.Split(segment)
		if err != nil {
			return fmt.Errorf("failed to parse command: %w", err)
		}
		if len(tokens) == 0 {
			continue
		}

		for len(tokens) > 1 && (wrappers[tokens[0]] || strings.Contains(tokens[0], "=")) {
			tokens = tokens[1:]
		}
		tokens[0] = filepath.Base(tokens[0])
		normalized := strings.Join(tokens, " ")

		for _, pattern := range v.denyCommands {
			if v.MatchPattern(normalized, pattern) {
				return fmt.Errorf("command denied by deny_commands: %s", pattern)
			}
		}
	}
	return nil
}

// MatchPattern checks if a command matches a given pattern.
// Pattern types:
//   - Exact match: "echo hello" matches "echo hello"
//   - Base command: "echo hello" matches "echo"
//   - Wildcard with one *: "git status" matches "git *"
//   - Full wildcard: "echo hello" matches "*"
func (v *ShellValidator) MatchPattern(command, pattern string) bool {
	command = strings.TrimSpace(command)
	pattern = strings.TrimSpace(pattern)

	if pattern == "*" {
		return true
	}
	if command == "" || pattern == "" {
		return false
	}
	if command == pattern {
		return true
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return false
	}
	if pattern == parts[0] {
		return true
	}

	// "git *" matches "git status"
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSpace(strings.TrimSuffix(pattern, "*"))
		if prefix != "" && strings.HasPrefix(command, prefix) {
			remaining := strings.TrimPrefix(command, prefix)
			return remaining == "" || strings.HasPrefix(remaining, " ")
		}
		return false
	}

	// multi-word pattern: "rm -rf" matches "rm -rf /tmp"
	return strings.HasPrefix(command, pattern+" ")
}

// splitSegments splits on unquoted |, ;, & and newlines.
func splitSegments(command string) []string {
	var (
		segments []string
		current  strings.Builder
		quote    rune
	)
	for _, r := range command {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			quote = r
			current.WriteRune(r)
		case r == '|' || r == ';' || r == '&' || r == '\n':
			if s := strings.TrimSpace(current.String()); s != "" {
				segments = append(segments, s)
			}
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		segments = append(segments, s)
	}
	return segments
}
