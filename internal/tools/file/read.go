package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultReadLimit = 2000

// ReadFileTool reads a file from the sandbox.
type ReadFileTool struct {
	sandbox *Sandbox
}

// ReadFileArgs represents the arguments for the read_file tool.
type ReadFileArgs struct {
	Path   string `json:"path"`             // Path to the file (relative to data dir or absolute)
	Offset int    `json:"offset,omitempty"` // Line offset (0-based)
	Limit  int    `json:"limit,omitempty"`  // Maximum number of lines (defaults to 2000)
}

// NewReadFileTool creates a new ReadFileTool instance.
func NewReadFileTool(sandbox *Sandbox) *ReadFileTool {
	return &ReadFileTool{sandbox: sandbox}
}

// Name returns the tool name.
func (t *ReadFileTool) Name() string {
	return "read_file"
}

// Description returns a description of what the tool does.
func (t *ReadFileTool) Description() string {
	return "Reads a text file. Args: {\"path\": \"notes/todo.md\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *ReadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file, relative to the data directory or absolute within whitelist_dirs.",
			},
			"offset": map[string]any{
				"type":        "integer",
				"description": "The line number to start reading from (0-based).",
				"default":     0,
			},
			"limit": map[string]any{
				"type":        "integer",
				"description": "The maximum number of lines to read.",
				"default":     defaultReadLimit,
			},
		},
		"required": []string{"path"},
	}
}

// Execute reads the file content and returns it with line numbers.
func (t *ReadFileTool) Execute(_ context.Context, args string) (string, error) {
	var fileArgs ReadFileArgs
	if err := parseJSON(args, &fileArgs); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	if fileArgs.Limit <= 0 {
		fileArgs.Limit = defaultReadLimit
	}
	if fileArgs.Offset < 0 {
		fileArgs.Offset = 0
	}

	fullPath, err := t.sandbox.Resolve(fileArgs.Path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file not found: %s", fileArgs.Path)
		}
		return "", fmt.Errorf("failed to access file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("path is a directory, not a file: %s", fileArgs.Path)
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	lines := splitLines(string(content))
	if len(lines) == 0 {
		return fmt.Sprintf("# File: %s (empty)\n", filepath.Clean(fullPath)), nil
	}
	if fileArgs.Offset >= len(lines) {
		return fmt.Sprintf("# File: %s\n# Offset %d is beyond file length (%d lines)\n",
			filepath.Clean(fullPath), fileArgs.Offset, len(lines)), nil
	}

	startLine := fileArgs.Offset
	endLine := startLine + fileArgs.Limit
	if endLine > len(lines) {
		endLine = len(lines)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# File: %s (lines %d-%d of %d)\n", filepath.Clean(fullPath), startLine+1, endLine, len(lines))
	for i, line := range lines[startLine:endLine] {
		fmt.Fprintf(&b, "%06d| %s\n", startLine+i+1, line)
	}
	return b.String(), nil
}
