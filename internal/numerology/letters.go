package numerology

import "strings"

// letterValues is the Pythagorean table: a..i, j..r and s..z each cycle 1..9.
var letterValues = [26]int{
	1, 2, 3, 4, 5, 6, 7, 8, 9, // a-i
	1, 2, 3, 4, 5, 6, 7, 8, 9, // j-r
	1, 2, 3, 4, 5, 6, 7, 8, // s-z
}

// ValueOf returns the numeric value of a lower-case ASCII letter.
// ok is false for anything outside a-z.
func ValueOf(r rune) (value int, ok bool) {
	if r < 'a' || r > 'z' {
		return 0, false
	}
	return letterValues[r-'a'], true
}

// IsVowel reports whether r is one of a, e, i, o, u. The letter y is a consonant.
func IsVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// NormalizeName lower-cases name and drops every character outside a-z.
// Accented letters are dropped rather than folded.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
