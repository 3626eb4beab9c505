// Package utils provides shared text and logging helpers.
package utils

import (
	"strings"
	"unicode/utf8"
)

// Truncate returns s cut to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

// Clamp returns s cut to at most maxLen runes, without any suffix.
func Clamp(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// SplitText breaks s into chunks of at most maxLen runes. Chunks end at a
// line break when one is available; a single overlong line is cut hard.
func SplitText(s string, maxLen int) []string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	rest := []rune(s)
	for len(rest) > maxLen {
		cut := maxLen
		for i := maxLen - 1; i > 0; i-- {
			if rest[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(rest[:cut]))
		rest = rest[cut:]
		if len(rest) > 0 && rest[0] == '\n' {
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		chunks = append(chunks, string(rest))
	}
	return chunks
}

// Excerpt returns the first n runes of s with surrounding whitespace trimmed.
func Excerpt(s string, n int) string {
	return strings.TrimSpace(Clamp(strings.TrimSpace(s), n))
}
