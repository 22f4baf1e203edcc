package tools

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Shield is a substring deny-list applied to "name + args" before dispatch.
// Matching is case-insensitive and NFKC-folded, so full-width and compatibility
// forms of a pattern are caught too.
type Shield struct {
	patterns []string
}

// NewShield creates a Shield from raw patterns.
func NewShield(patterns []string) *Shield {
	s := &Shield{}
	for _, p := range patterns {
		if p = fold(strings.TrimSpace(p)); p != "" {
			s.patterns = append(s.patterns, p)
		}
	}
	return s
}

// LoadShield reads patterns from path. A missing file yields an empty Shield.
func LoadShield(path string) (*Shield, error) {
	if path == "" {
		return NewShield(nil), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewShield(nil), nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseShield(f)
}

// ParseShield reads one pattern per line. Blank lines and '#' comments are
// skipped; "deny:" and "block:" prefixes are stripped.
func ParseShield(r io.Reader) (*Shield, error) {
	var patterns []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		low := strings.ToLower(line)
		if strings.HasPrefix(low, "deny:") || strings.HasPrefix(low, "block:") {
			line = strings.TrimSpace(line[strings.Index(line, ":")+1:])
		}
		if line != "" {
			patterns = append(patterns, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewShield(patterns), nil
}

// Blocks reports whether text contains any pattern.
func (s *Shield) Blocks(text string) bool {
	if s == nil || len(s.patterns) == 0 {
		return false
	}
	low := fold(text)
	for _, p := range s.patterns {
		if strings.Contains(low, p) {
			return true
		}
	}
	return false
}

// Len returns the number of patterns.
func (s *Shield) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

func fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}
