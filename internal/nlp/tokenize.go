package nlp

import (
	"strings"
	"unicode/utf8"
)

// punctuation is ASCII punctuation plus the Arabic marks trimmed from token edges.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~" + "،؛؟!."

var stopWords = newWordSet(
	"من", "إلى", "عن", "على", "في", "هذا", "هذه", "ذلك", "تلك", "هو", "هي",
	"أنا", "نحن", "أنت", "أنتم", "هم", "كان", "كانت", "يكون", "تكون", "و",
	"أو", "ثم", "بل", "لا", "إن", "إذا", "حتى", "ف", "قد", "ما", "لم",
	"لن", "أن", "كل", "بعض", "غير", "بين", "أمام", "خلف", "فوق", "تحت",
)

// prefixes are ordered longest first so the longest applicable prefix wins.
var prefixes = []string{"وال", "فال", "بال", "كال", "ال", "لل", "و", "ف", "ب", "ل"}

var suffixes = []string{"ون", "ات", "ين", "ان", "تي", "تن", "كن", "هن", "نا", "ها", "ية"}

var questionWords = []string{"هل", "ما", "متى", "أين", "كيف", "لماذا", "من", "كم"}

// wordSet is a closed set of normalized words.
type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[Normalize(w)] = struct{}{}
	}
	return s
}

func (s wordSet) has(w string) bool {
	_, ok := s[w]
	return ok
}

// Tokenize normalizes text and splits it into words with edge punctuation removed.
func Tokenize(text string) []string {
	fields := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.Trim(f, punctuation); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// RemoveStopWords drops function words from tokens, preserving order.
func RemoveStopWords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stopWords.has(t) {
			out = append(out, t)
		}
	}
	return out
}

// IsStopWord reports whether the normalized word is a stop word.
func IsStopWord(word string) bool {
	return stopWords.has(Normalize(word))
}

// Stem strips at most one prefix and then at most one suffix from word. A suffix is
// only removed when more than two runes would remain.
func Stem(word string) string {
	for _, p := range prefixes {
		if strings.HasPrefix(word, p) {
			word = word[len(p):]
			break
		}
	}
	n := utf8.RuneCountInString(word)
	for _, s := range suffixes {
		if strings.HasSuffix(word, s) && n > utf8.RuneCountInString(s)+2 {
			word = word[:len(word)-len(s)]
			break
		}
	}
	return word
}

// Preprocess normalizes, tokenizes and removes stop words.
func Preprocess(text string) []string {
	return RemoveStopWords(Tokenize(text))
}

// ExtractQuestions returns the questions in text, each terminated by "؟". A question
// is a part between question marks of 3 to 150 runes that starts with or contains a
// question word.
func ExtractQuestions(text string) []string {
	parts := strings.Split(text, "؟")
	var questions []string
	for _, part := range parts[:len(parts)-1] {
		q := strings.TrimSpace(part)
		if n := utf8.RuneCountInString(q); n < 3 || n > 150 {
			continue
		}
		for _, w := range questionWords {
			if strings.HasPrefix(q, w) || strings.Contains(q, " "+w+" ") {
				questions = append(questions, q+"؟")
				break
			}
		}
	}
	return questions
}

// containsWord reports whether phrase occurs in the normalized text bounded by spaces
// or the text edges. Both arguments must already be normalized.
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(phrase)
		if (i == 0 || text[i-1] == ' ') && (end == len(text) || text[end] == ' ') {
			return true
		}
		start = i + 1
	}
}
