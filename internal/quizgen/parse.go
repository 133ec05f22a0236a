package quizgen

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when no parseable JSON object can be found in model output.
var ErrNoJSON = errors.New("no JSON object found in model response")

// stripCodeFences removes markdown code fences the model may wrap its answer in.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ExtractJSON returns the JSON document contained in text. The whole trimmed text
// is tried first; otherwise the first brace-balanced {...} span that parses wins.
func ExtractJSON(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}

	for start := strings.IndexByte(trimmed, '{'); start >= 0; {
		if end := matchingBrace(trimmed, start); end > start {
			candidate := []byte(trimmed[start : end+1])
			if json.Valid(candidate) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(trimmed[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, ErrNoJSON
}

// matchingBrace returns the index of the brace closing the one at open, skipping
// braces inside JSON strings, or -1 if it is never closed.
func matchingBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
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
				return i
			}
		}
	}
	return -1
}
