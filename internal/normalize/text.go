// Package normalize canonicalizes raw lead fields into comparable forms.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9\s]`)
	multiSpaceRe  = regexp.MustCompile(`\s+`)
	accentFolding = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
)

// Text lowers, accent-folds and punctuation-collapses a free-text value
// so two spellings of the same name compare equal. Idempotent: running
// it on its own output is a no-op.
func Text(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}

	// NFKD decomposition, then drop combining marks (accent folding).
	if folded, _, err := transform.String(accentFolding, s); err == nil {
		s = folded
	}

	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
