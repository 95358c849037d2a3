// Package slug turns titles into URL path segments.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength caps generated slugs; longer input is cut at a dash.
const MaxLength = 80

var pattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// replacements for letters that don't decompose into a base letter + mark
var replacements = map[rune]string{
	'ß': "ss", 'æ': "ae", 'Æ': "ae", 'ø': "o", 'Ø': "o", 'œ': "oe", 'Œ': "oe",
	'ł': "l", 'Ł': "l", 'đ': "d", 'Đ': "d", 'þ': "th", 'Þ': "th",
}

// Make folds s to lower-case ASCII words joined by single dashes.
// "Lake Bunyonyi & Café Tour" becomes "lake-bunyonyi-and-cafe-tour".
func Make(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	sep := false
	write := func(part string) {
		if sep && b.Len() > 0 {
			b.WriteByte('-')
		}
		sep = false
		b.WriteString(part)
	}
	for _, r := range folded {
		if r == '&' {
			sep = true
			write("and")
			sep = true
			continue
		}
		if rep, ok := replacements[r]; ok {
			write(rep)
			continue
		}
		r = unicode.ToLower(r)
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			write(string(r))
			continue
		}
		sep = true
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > MaxLength {
		out = out[:MaxLength]
		if i := strings.LastIndexByte(out, '-'); i > 0 {
			out = out[:i]
		}
		out = strings.Trim(out, "-")
	}
	return out
}

// Valid reports whether s is already in slug form
func Valid(s string) bool {
	return len(s) <= MaxLength && pattern.MatchString(s)
}
