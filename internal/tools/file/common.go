// Package file provides the read_file, write_file and list_dir tools.
// Every path is confined to the data directory or to one of the configured
// whitelist directories; read-only directories refuse writes.
package file

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Sandbox resolves tool paths against a root directory.
type Sandbox struct {
	root      string
	whitelist []string
	readOnly  []string
}

// NewSandbox creates a Sandbox rooted at root.
func NewSandbox(root string, whitelist, readOnly []string) *Sandbox {
	clean := func(dirs []string) []string {
		out := make([]string, 0, len(dirs))
		for _, d := range dirs {
			if d != "" {
				out = append(out, filepath.Clean(d))
			}
		}
		return out
	}
	return &Sandbox{
		root:      filepath.Clean(root),
		whitelist: clean(whitelist),
		readOnly:  clean(readOnly),
	}
}

// Root returns the sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve returns the absolute path for p. Relative paths are joined to the
// root and must not escape it; absolute paths must sit under the root or a
// whitelist directory.
func (s *Sandbox) Resolve(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path is required")
	}

	if !filepath.IsAbs(p) {
		cleanRel := filepath.Clean(p)
		if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("path attempts to escape data directory: %s", p)
		}
		return filepath.Join(s.root, cleanRel), nil
	}

	cleanPath := filepath.Clean(p)
	if within(cleanPath, s.root) {
		return cleanPath, nil
	}
	for _, dir := range s.whitelist {
		if within(cleanPath, dir) {
			return cleanPath, nil
		}
	}
	return "", fmt.Errorf("absolute path is not in whitelist_dirs")
}

// ResolveWritable is Resolve plus the read-only check.
func (s *Sandbox) ResolveWritable(p string) (string, error) {
	full, err := s.Resolve(p)
	if err != nil {
		return "", err
	}
	for _, dir := range s.readOnly {
		if within(full, dir) {
			return "", fmt.Errorf("path is in a read-only directory: %s", dir)
		}
	}
	return full, nil
}

func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// parseJSON is a helper function to parse JSON arguments.
func parseJSON(jsonStr string, v any) error {
	if strings.TrimSpace(jsonStr) == "" {
		jsonStr = "{}"
	}
	return json.Unmarshal([]byte(jsonStr), v)
}

// splitLines splits a string into lines, handling \n and \r\n endings.
func splitLines(s string) []string {
	var lines []string
	start := 0

	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > 0 && s[i-1] == '\r' {
				lines = append(lines, s[start:i-1])
			} else {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}

	if start < len(s) {
		lines = append(lines, s[start:])
	}

	return lines
}
