package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListDirTool lists a directory inside the sandbox.
type ListDirTool struct {
	sandbox *Sandbox
}

// ListDirArgs represents the arguments for the list_dir tool.
type ListDirArgs struct {
	Path          string `json:"path,omitempty"`           // Directory, defaults to the data directory
	Prefix        string `json:"prefix,omitempty"`         // Only names starting with prefix
	Recursive     bool   `json:"recursive,omitempty"`      // Walk subdirectories
	IncludeHidden bool   `json:"include_hidden,omitempty"` // Include dot files
}

// NewListDirTool creates a new ListDirTool instance.
func NewListDirTool(sandbox *Sandbox) *ListDirTool {
	return &ListDirTool{sandbox: sandbox}
}

// Name returns the tool name.
func (t *ListDirTool) Name() string {
	return "list_dir"
}

// Description returns a description of what the tool does.
func (t *ListDirTool) Description() string {
	return "Lists a directory. Args: {\"path\": \"notes\", \"prefix\": \"todo\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *ListDirTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to list. Defaults to the data directory.",
			},
			"prefix": map[string]any{
				"type":        "string",
				"description": "Only list entries whose name starts with this prefix.",
			},
			"recursive": map[string]any{
				"type":    "boolean",
				"default": false,
			},
			"include_hidden": map[string]any{
				"type":    "boolean",
				"default": false,
			},
		},
	}
}

// Execute lists directory contents.
func (t *ListDirTool) Execute(_ context.Context, args string) (string, error) {
	var dirArgs ListDirArgs
	if err := parseJSON(args, &dirArgs); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if dirArgs.Path == "" {
		dirArgs.Path = "."
	}

	fullPath, err := t.sandbox.Resolve(dirArgs.Path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("directory not found: %s", dirArgs.Path)
		}
		return "", fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", dirArgs.Path)
	}

	var entries []string
	if dirArgs.Recursive {
		entries, err = listRecursive(fullPath, dirArgs.IncludeHidden)
	} else {
		entries, err = listFlat(fullPath, dirArgs.IncludeHidden)
	}
	if err != nil {
		return "", fmt.Errorf("failed to list directory: %w", err)
	}

	if dirArgs.Prefix != "" {
		filtered := entries[:0]
		for _, e := range entries {
			// "FILE name" / "DIR  name"
			if strings.HasPrefix(strings.TrimSpace(e[4:]), dirArgs.Prefix) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	if len(entries) == 0 {
		return "No files found.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Directory: %s\n", fullPath)
	fmt.Fprintf(&b, "# %d items\n\n", len(entries))
	for _, entry := range entries {
		b.WriteString(entry + "\n")
	}
	return b.String(), nil
}

func listFlat(dirPath string, includeHidden bool) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var result []string
	for _, entry := range entries {
		if !includeHidden && strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		result = append(result, formatEntry(entry.IsDir(), entry.Name()))
	}
	return result, nil
}

func listRecursive(dirPath string, includeHidden bool) ([]string, error) {
	var result []string

	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dirPath {
			return nil
		}
		if !includeHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		relPath, err := filepath.Rel(dirPath, path)
		if err != nil {
			return err
		}
		result = append(result, formatEntry(d.IsDir(), relPath))
		return nil
	})
	sort.Strings(result)
	return result, err
}

func formatEntry(dir bool, name string) string {
	if dir {
		return "DIR  " + name
	}
	return "FILE " + name
}
