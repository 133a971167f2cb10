// Package nlp implements the keyword and pattern based Arabic text processing used by
// the dialogue agent: normalization, tokenization, entity extraction, intent and
// sentiment labels, and slot extraction.
package nlp

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// isDiacritic reports whether r is a tashkeel mark or the superscript alef.
func isDiacritic(r rune) bool {
	return (r >= '\u064B' && r <= '\u065F') || r == '\u0670'
}

// foldLetter unifies letter variants and blanks out everything that is neither
// Arabic script, whitespace nor an ASCII digit.
func foldLetter(r rune) rune {
	switch r {
	case 'إ', 'أ', 'آ', 'ا':
		return 'ا'
	case 'ؤ', 'ئ':
		return 'ء'
	case 'ة':
		return 'ه'
	case 'ي', 'ى':
		return 'ي'
	}
	if (r >= '\u0600' && r <= '\u06FF') || unicode.IsSpace(r) || (r >= '0' && r <= '9') {
		return r
	}
	return ' '
}

var normalizer = transform.Chain(runes.Remove(runes.Predicate(isDiacritic)), runes.Map(foldLetter))

// Normalize returns the canonical form of text used by every matcher in this package.
// The result has no diacritics, unified alef/hamza/teh marbuta/yeh forms, no characters
// outside the Arabic block other than ASCII digits, and single spaces between words.
// Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	out, _, err := transform.String(normalizer, text)
	if err != nil {
		// The chain only contains rune mappers, which never fail on valid input.
		out = text
	}
	return strings.Join(strings.Fields(out), " ")
}
