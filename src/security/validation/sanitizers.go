// backend/src/validation/sanitizers.go
package validation

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var strictHTMLPolicy = bluemonday.StrictPolicy() // strips all HTML

// StripUnprintable removes non-printable characters, allowing common whitespace
// like space, tab, newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1 // Drop the rune
	}, s)
}

// SanitizeNarrative prepares user-authored narrative for embedding in a
// generated document: all HTML is stripped, unprintable characters removed,
// and surrounding whitespace trimmed. The result is plain text; entities the
// policy introduced are decoded so callers can re-escape for their own
// output format.
func SanitizeNarrative(s string) string {
	clean := html.UnescapeString(strictHTMLPolicy.Sanitize(s))
	return strings.TrimSpace(StripUnprintable(clean))
}
