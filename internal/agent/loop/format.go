package loop

import (
	"strings"
	"unicode/utf8"
)

const (
	maxResultBytes  = 2000
	truncatedSuffix = "... (truncated)"
	rawPreviewBytes = 600
	previewItems    = 3
	searchLinks     = 5
)

// fastTools answer the user directly with their raw result.
var fastTools = map[string]bool{
	"set_schedule":     true,
	"remove_schedule":  true,
	"list_schedules":   true,
	"get_current_time": true,
	"system_info":      true,
	"network_status":   true,
	"list_services":    true,
	"get_weather":      true,
	"get_news":         true,
	"deep_search":      true,
}

// directReply returns the user-facing reply for a tool result when the tool
// answers directly. force returns the raw result for any tool.
func (l *Loop) directReply(name, result string, force bool) (string, bool) {
	if force {
		return result, true
	}
	if !l.agent.DirectToolReply {
		return "", false
	}
	if fastTools[name] {
		return result, true
	}
	if l.agent.DirectToolReplyWeb {
		switch name {
		case "scrape_web":
			return FormatScrape(result), true
		case "web_search":
			return FormatSearch(result), true
		}
	}
	return "", false
}

// FormatScrape condenses scrape_web output to title, description and the
// first three headings and links.
func FormatScrape(text string) string {
	if strings.TrimSpace(text) == "" {
		return "Could not read the page."
	}

	var title, desc, mode string
	var headings, links []string
	for _, line := range nonEmptyLines(text) {
		switch {
		case strings.HasPrefix(line, "Title:"):
			title = strings.TrimSpace(strings.TrimPrefix(line, "Title:"))
		case strings.HasPrefix(line, "Description:"):
			desc = strings.TrimSpace(strings.TrimPrefix(line, "Description:"))
		case strings.HasPrefix(line, "=== Headings ==="):
			mode = "headings"
		case strings.HasPrefix(line, "=== Links ==="):
			mode = "links"
		case strings.HasPrefix(line, "=== Content ==="):
			mode = "content"
		case mode == "headings" && len(headings) < previewItems:
			headings = append(headings, line)
		case mode == "links" && len(links) < previewItems:
			links = append(links, line)
		}
	}

	var out []string
	if title != "" {
		out = append(out, "Title: "+title)
	}
	if desc != "" {
		out = append(out, "Description: "+desc)
	}
	if len(headings) > 0 {
		out = append(out, "Sections:")
		out = append(out, headings...)
	}
	if len(links) > 0 {
		out = append(out, "Links:")
		out = append(out, links...)
	}
	if len(out) == 0 {
		return cutBytes(text, rawPreviewBytes)
	}
	return strings.Join(out, "\n")
}

// FormatSearch keeps up to five links from the "--- Top Links ---" block of
// web_search output.
func FormatSearch(text string) string {
	if strings.TrimSpace(text) == "" {
		return "No results found."
	}

	var links []string
	inLinks := false
	for _, line := range nonEmptyLines(text) {
		if strings.HasPrefix(line, "--- Top Links ---") {
			inLinks = true
			continue
		}
		if strings.HasPrefix(line, "--- Content Preview ---") {
			inLinks = false
		}
		if inLinks && strings.HasPrefix(line, "http") {
			links = append(links, line)
		}
		if len(links) >= searchLinks {
			break
		}
	}
	if len(links) > 0 {
		return "Links found:\n" + strings.Join(links, "\n")
	}
	return cutBytes(text, rawPreviewBytes)
}

// truncateResult caps a tool result at 2000 bytes.
func truncateResult(s string) string {
	if len(s) <= maxResultBytes {
		return s
	}
	return cutBytes(s, maxResultBytes) + truncatedSuffix
}

// cutBytes keeps at most n bytes without splitting a rune.
func cutBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
