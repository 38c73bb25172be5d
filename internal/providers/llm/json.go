package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSON decodes a model reply into out, tolerating code fences and
// surrounding prose. Models occasionally wrap JSON in markdown even when
// told not to.
func decodeJSON(raw string, out any) error {
	text := normalizeJSONText(raw)
	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}
	if obj := extractJSONObject(text); obj != "" {
		if err := json.Unmarshal([]byte(obj), out); err == nil {
			return nil
		}
	}
	return fmt.Errorf("llm: reply is not valid JSON: %.200q", raw)
}

func normalizeJSONText(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		// drop a language hint such as "json"
		if idx := strings.IndexByte(t, '\n'); idx != -1 {
			t = t[idx+1:]
		}
		if j := strings.LastIndex(t, "```"); j != -1 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}
	return t
}

// extractJSONObject returns the first balanced top-level {...} in s.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
