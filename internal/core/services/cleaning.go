package services

import (
	"strings"
	"unicode"
)

// CleanText normalises extracted document text: control characters
// (including NUL) are dropped and every run of whitespace collapses to
// a single space. The result has no leading or trailing whitespace.
func CleanText(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(stripped), " ")
}
