package tools

import (
	"bytes"
	"encoding/json"
	"strings"
)

// NormalizeArgs turns tool arguments into a JSON object.
//
// Maps pass through. Strings are parsed as JSON; when that fails the text is
// cut after its last '}' and parsed again, which drops trailing chatter a model
// appends after the object. Anything that is not an object is rejected.
func NormalizeArgs(args any) (map[string]any, error) {
	switch v := args.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		return parseArgsText(v)
	case []byte:
		return parseArgsText(string(v))
	case json.RawMessage:
		return parseArgsText(string(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, ErrInvalidArgs
		}
		return parseArgsText(string(data))
	}
}

func parseArgsText(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil && out != nil {
		return out, nil
	}

	if end := strings.LastIndex(text, "}"); end >= 0 {
		out = nil
		if err := json.Unmarshal([]byte(text[:end+1]), &out); err == nil && out != nil {
			return out, nil
		}
	}
	return nil, ErrInvalidArgs
}

// EncodeArgs renders normalized args as compact JSON. <, > and & stay
// literal so shield patterns with shell operators match the encoded text.
func EncodeArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
