package planner

import "strings"

// ExtractJSON strips markdown fences and surrounding prose from model output and
// returns the outermost JSON object. It reports false when no balanced object exists.
func ExtractJSON(content string) (string, bool) {
	s := strings.TrimSpace(content)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	end := matchingBrace(s, start)
	if end < 0 {
		return "", false
	}
	return s[start : end+1], true
}

// matchingBrace returns the index of the brace closing the one at start, skipping
// braces inside string literals.
func matchingBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
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
