package loop

import (
	"strings"
)

const toolMarker = "TOOL:"

// DefaultKnownTools are tool names recognised in bare form ("get_current_time()")
// even when the registry does not carry them.
var DefaultKnownTools = []string{
	"web_search", "scrape_web", "get_current_time", "read_file", "write_file",
	"edit_file", "list_dir", "system_info", "network_status", "run_command",
	"list_services", "restart_service", "get_weather", "http_request",
	"download_file", "set_schedule", "list_schedules", "remove_schedule",
	"save_memory", "get_sys_health", "get_wifi_status", "get_exchange_rate",
	"get_news", "set_probe", "net_check", "deep_search", "set_timezone",
}

// Detection is a tool call found in model output.
type Detection struct {
	Name     string
	Args     string
	Preamble string // text the model wrote before the call
}

// DetectTool scans content line by line. Detectors, first hit wins:
//  1. a TOOL: marker anywhere in the line, case-insensitive, as name:args;
//  2. a line mentioning "command" with a {...} span, run as run_command;
//  3. a line starting with a known tool name followed by nothing, ":", "()",
//     "(...)" or a JSON object.
//
// Lines without a call become the preamble.
func DetectTool(content string, known []string) (Detection, bool) {
	var preamble []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if idx := indexFold(trimmed, toolMarker); idx >= 0 {
			payload := trimmed[idx+len(toolMarker):]
			name, args, _ := strings.Cut(payload, ":")
			name = strings.TrimSpace(name)
			args = strings.TrimSpace(args)
			if args == "" {
				args = "{}"
			}
			if before := strings.TrimSpace(trimmed[:idx]); before != "" {
				preamble = append(preamble, before)
			}
			if name == "" {
				return Detection{Preamble: strings.TrimSpace(content)}, false
			}
			return Detection{Name: name, Args: args, Preamble: joinPreamble(preamble)}, true
		}

		if strings.Contains(trimmed, "command") {
			start := strings.Index(trimmed, "{")
			end := strings.LastIndex(trimmed, "}")
			if start != -1 && end > start {
				return Detection{Name: "run_command", Args: trimmed[start : end+1], Preamble: joinPreamble(preamble)}, true
			}
		}

		for _, name := range known {
			if !strings.HasPrefix(trimmed, name) {
				continue
			}
			rest := strings.TrimSpace(trimmed[len(name):])
			if strings.HasPrefix(rest, ":") {
				rest = strings.TrimSpace(rest[1:])
			}
			if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
				rest = rest[1 : len(rest)-1]
			}
			if rest == "" || rest == "()" || strings.HasPrefix(rest, "{") {
				args := "{}"
				if strings.HasPrefix(rest, "{") {
					args = rest
				}
				return Detection{Name: name, Args: args, Preamble: joinPreamble(preamble)}, true
			}
		}

		preamble = append(preamble, line)
	}

	return Detection{Preamble: strings.TrimSpace(content)}, false
}

func joinPreamble(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// indexFold is strings.Index with ASCII case folding; byte offsets stay valid
// for the original string.
func indexFold(s, substr string) int {
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}

// mergeNames returns base followed by extra names missing from it.
func mergeNames(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, n := range list {
			if n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
