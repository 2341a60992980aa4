package pdf

import "strings"

// splitLines splits text on "\n". A single trailing newline terminates the
// last line rather than starting an empty one.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// limitLines applies an optional line cap. maxLines <= 0 returns text unchanged.
func limitLines(text string, maxLines int) (content string, lineCount int, truncated bool) {
	lines := splitLines(text)
	if maxLines <= 0 || len(lines) <= maxLines {
		return text, len(lines), false
	}
	return strings.Join(lines[:maxLines], "\n"), maxLines, true
}
