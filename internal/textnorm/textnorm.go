// Package textnorm canonicalizes free text before any comparison.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NFKD + quitar marcas combinantes (tildes, diéresis)
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// Normalize lowercases s, strips diacritics, turns every rune that is not a
// letter or digit into a space, collapses whitespace and trims.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	var b strings.Builder
	b.Grow(len(out))
	space := false
	for _, r := range out {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		space = true
	}
	return b.String()
}

// Tokens returns the whitespace tokens of Normalize(s).
func Tokens(s string) []string { return strings.Fields(Normalize(s)) }

// ContainsAny reports whether the normalized text contains any of the
// fragments, each fragment normalized the same way.
func ContainsAny(text string, fragments []string) bool {
	h := Normalize(text)
	if h == "" {
		return false
	}
	for _, f := range fragments {
		if f = Normalize(f); f != "" && strings.Contains(h, f) {
			return true
		}
	}
	return false
}

// HasToken reports whether tok appears as a whole token of the normalized text.
func HasToken(text, tok string) bool {
	tok = Normalize(tok)
	if tok == "" {
		return false
	}
	h := " " + Normalize(text) + " "
	return strings.Contains(h, " "+tok+" ")
}
