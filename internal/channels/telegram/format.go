package telegram

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageRunes is the Telegram limit for a single text message.
const MaxMessageRunes = 4096

// StripFormatting removes markdown markers so the chat receives plain text.
// Headings lose their hashes and "- " bullets become indented lines.
func StripFormatting(text string) string {
	for _, marker := range []string{"**", "__", "```", "`"} {
		text = strings.ReplaceAll(text, marker, "")
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(line, "#"):
			line = strings.TrimLeft(strings.TrimLeft(line, "#"), " \t")
		case strings.HasPrefix(line, "- "):
			line = "  " + line[2:]
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

// SplitMessage cuts text into chunks of at most limit runes, preferring to
// break after a newline in the second half of a chunk.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageRunes
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
