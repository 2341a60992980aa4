package pdf

import (
	"strconv"
	"strings"
)

// PagesKey is the pdfinfo field holding the page count
const PagesKey = "Pages"

// Metadata maps the keys reported by pdfinfo to their values. Purely numeric
// values are stored as int, everything else as string.
type Metadata map[string]any

// ParseMetadata parses "Key: Value" lines. Lines without a colon, with an
// empty key or with an empty value are skipped.
func ParseMetadata(output string) Metadata {
	md := Metadata{}

	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}

		md[key] = parseValue(value)
	}

	return md
}

func parseValue(value string) any {
	if !isDigits(value) {
		return value
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		// out of int range; keep the text rather than fail
		return value
	}
	return n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Pages returns the page count, if pdfinfo reported one
func (m Metadata) Pages() (int, bool) {
	n, ok := m[PagesKey].(int)
	return n, ok
}
