package minhash

import (
	"strings"
	"unicode"
)

// Normalize collapses whitespace runs to a single space and pads the result
// with one space on each side. Case is preserved. A string holding only
// whitespace normalises to "".
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	prevSpace := true

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}

	out := b.String()
	if out == " " {
		return ""
	}
	if !prevSpace {
		out += " "
	}
	return out
}

// NGrams returns every rune n-gram of s with min <= n <= max, shortest first.
// Lengths beyond the string length produce nothing.
func NGrams(s string, min, max int) []string {
	runes := []rune(s)
	if len(runes) == 0 || min <= 0 || max < min {
		return nil
	}

	var grams []string
	for n := min; n <= max && n <= len(runes); n++ {
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}
