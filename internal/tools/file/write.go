package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Write modes.
const (
	ModeCreate    = "create"
	ModeAppend    = "append"
	ModeOverwrite = "overwrite"
)

// WriteFileTool writes a file inside the sandbox.
type WriteFileTool struct {
	sandbox *Sandbox
}

// WriteFileArgs represents the arguments for the write_file tool.
type WriteFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Mode    string `json:"mode,omitempty"` // create (default), append, overwrite
}

// NewWriteFileTool creates a new WriteFileTool instance.
func NewWriteFileTool(sandbox *Sandbox) *WriteFileTool {
	return &WriteFileTool{sandbox: sandbox}
}

// Name returns the tool name.
func (t *WriteFileTool) Name() string {
	return "write_file"
}

// Description returns a description of what the tool does.
func (t *WriteFileTool) Description() string {
	return "Writes a text file. Args: {\"path\": \"notes/todo.md\", \"content\": \"...\", \"mode\": \"create|append|overwrite\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *WriteFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file, relative to the data directory or absolute within whitelist_dirs.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "The text to write.",
			},
			"mode": map[string]any{
				"type":        "string",
				"description": "create fails when the file exists, append requires it, overwrite replaces it.",
				"enum":        []string{ModeCreate, ModeAppend, ModeOverwrite},
				"default":     ModeCreate,
			},
		},
		"required": []string{"path", "content"},
	}
}

// Execute writes the content.
func (t *WriteFileTool) Execute(_ context.Context, args string) (string, error) {
	var fileArgs WriteFileArgs
	if err := parseJSON(args, &fileArgs); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	if fileArgs.Content == "" {
		return "", fmt.Errorf("content is required")
	}
	if fileArgs.Mode == "" {
		fileArgs.Mode = ModeCreate
	}

	fullPath, err := t.sandbox.ResolveWritable(fileArgs.Path)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}

	_, statErr := os.Stat(fullPath)
	fileExists := statErr == nil

	var flags int
	switch fileArgs.Mode {
	case ModeCreate:
		if fileExists {
			return "", fmt.Errorf("file already exists and mode is 'create': %s", fileArgs.Path)
		}
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	case ModeAppend:
		if !fileExists {
			return "", fmt.Errorf("file does not exist and mode is 'append': %s", fileArgs.Path)
		}
		flags = os.O_WRONLY | os.O_APPEND
	case ModeOverwrite:
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	default:
		return "", fmt.Errorf("invalid mode '%s', must be one of: create, append, overwrite", fileArgs.Mode)
	}

	file, err := os.OpenFile(fullPath, flags, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(fileArgs.Content); err != nil {
		return "", fmt.Errorf("failed to write content: %w", err)
	}
	if err := file.Sync(); err != nil {
		return "", fmt.Errorf("failed to sync file: %w", err)
	}

	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(fileArgs.Content), fileArgs.Path), nil
}
