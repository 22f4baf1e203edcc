package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aatumaykin/microbot/internal/channels"
)

const defaultFilename = "download"

// DownloadFileTool implements download_file. The result carries the FILE
// marker so the agent sends the file to the chat.
type DownloadFileTool struct {
	client *Client
	dir    string
}

// NewDownloadFileTool creates a DownloadFileTool saving into dir.
func NewDownloadFileTool(client *Client, dir string) *DownloadFileTool {
	return &DownloadFileTool{client: client, dir: dir}
}

// Name returns the tool name.
func (t *DownloadFileTool) Name() string {
	return "download_file"
}

// Description returns a description of what the tool does.
func (t *DownloadFileTool) Description() string {
	return "Downloads a file and sends it to the chat. Args: {\"url\": \"https://...\", \"filename\": \"report.pdf\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *DownloadFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":      map[string]any{"type": "string", "description": "File URL."},
			"filename": map[string]any{"type": "string", "description": "Optional file name; defaults to the last URL path segment."},
		},
		"required": []string{"url"},
	}
}

type downloadArgs struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Name     string `json:"name"`
}

// Execute downloads the file and returns "FILE:<path>".
func (t *DownloadFileTool) Execute(ctx context.Context, args string) (string, error) {
	var a downloadArgs
	if err := json.Unmarshal([]byte(orEmpty(args)), &a); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}
	if a.Filename == "" {
		a.Filename = a.Name
	}

	resp, err := t.client.Get(ctx, a.URL)
	if err != nil {
		return "", err
	}

	name, err := safeFilename(a.Filename, a.URL)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create downloads directory: %w", err)
	}

	target := filepath.Join(t.dir, name)
	if err := os.WriteFile(target, resp.Body, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return channels.FileMarker + target, nil
}

// safeFilename picks a plain file name from the argument or the URL path.
func safeFilename(name, rawURL string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if u, err := url.Parse(rawURL); err == nil {
			name = path.Base(u.Path)
		}
	}
	if name == "" || name == "/" || name == "." {
		name = defaultFilename
	}
	if strings.ContainsAny(name, `/\`) || name == ".." {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	return name, nil
}
