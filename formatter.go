package docchat

import "strings"

// FormatTurns formats turns as "role: content" lines for LLM context.
// Turns are separated by newlines.
func FormatTurns(turns []*Turn) string {
	if len(turns) == 0 {
		return ""
	}

	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		parts = append(parts, string(t.Role)+": "+strings.TrimSpace(t.Content))
	}

	return strings.Join(parts, "\n")
}

// LastTurns returns at most the last n turns.
func LastTurns(turns []*Turn, n int) []*Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
