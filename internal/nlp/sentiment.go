package nlp

import (
	"strings"

	"github.com/BTreeMap/Simsar/internal/models"
)

var (
	positiveWords = normalizeAll(
		"جيد", "رائع", "ممتاز", "جميل", "مناسب", "موافق", "أعجبني", "أحب",
		"سعيد", "فرح", "حلو", "لطيف", "مفيد", "ناجح", "مريح", "ملائم",
		"إيجابي", "فعال", "مثالي", "متميز", "نعم", "أوافق", "تمام", "مهتم",
		"أرغب", "ممكن", "معقول", "مربح", "اشتري", "أختار", "كويس",
	)
	negativeWords = normalizeAll(
		"سيء", "ردئ", "غالي", "بعيد", "صغير", "مشكلة", "لا أحب", "لا أريد",
		"غير مناسب", "صعب", "معقد", "قبيح", "مزعج", "غير مريح", "سلبي",
		"فاشل", "ضعيف", "باهظ", "لا", "غير", "رفض", "محبط", "خائب", "غاضب",
		"لا أوافق", "لا يناسب", "مرتفع", "غير معقول", "بطيء", "متعب", "مرهق",
	)
	negationMarkers = normalizeAll("لا", "ليس", "غير", "ما", "لم", "لن", "مش")
)

func normalizeAll(words ...string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = Normalize(w)
	}
	return out
}

// ClassifySentiment labels text positive, negative or neutral. Lexicon words count once
// each on a whole-word match. A negation marker directly before or glued to a lexicon
// word moves one unit to the opposite side for every such pair found. Ties are neutral.
func ClassifySentiment(text string) models.Sentiment {
	normalized := Normalize(text)
	pos, neg := countWords(normalized, positiveWords), countWords(normalized, negativeWords)

	for _, m := range negationMarkers {
		for _, w := range positiveWords {
			if negated(normalized, m, w) {
				pos--
				neg++
			}
		}
		for _, w := range negativeWords {
			if negated(normalized, m, w) {
				neg--
				pos++
			}
		}
	}

	switch {
	case pos > neg:
		return models.SentimentPositive
	case neg > pos:
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

func countWords(text string, words []string) int {
	n := 0
	for _, w := range words {
		if containsWord(text, w) {
			n++
		}
	}
	return n
}

func negated(text, marker, word string) bool {
	return strings.Contains(text, marker+" "+word) || strings.Contains(text, marker+word)
}
