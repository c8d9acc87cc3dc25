package tokenize

import (
	"strings"
	"unicode"
)

// Delimiter separates segments of a normalized tag.
const Delimiter = "_"

// Normalize upper-cases raw and folds every separator (- . / \ : ; _ and
// whitespace) into a single Delimiter. Leading and trailing separators are
// dropped.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	pending := false

	for _, r := range raw {
		if isSeparator(r) {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteString(Delimiter)
			pending = false
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Split normalizes raw and returns its segments.
func Split(raw string) []string {
	norm := Normalize(raw)
	if norm == "" {
		return nil
	}
	return strings.Split(norm, Delimiter)
}

func isSeparator(r rune) bool {
	switch r {
	case '-', '.', '/', '\\', ':', ';', '_':
		return true
	}
	return unicode.IsSpace(r)
}
