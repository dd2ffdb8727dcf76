package packet

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// MaxNameLen is the longest display name in runes.
const MaxNameLen = 16

// NormalizeName folds full-width forms to their narrow equivalents,
// composes to NFC, drops control characters and trims the result to
// MaxNameLen runes. Both ends of a connection apply it so a name compares
// equal regardless of how the sending keyboard produced it.
func NormalizeName(s string) string {
	s = norm.NFC.String(width.Fold.String(s))
	var b strings.Builder
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		if n == MaxNameLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
