package nlp

import "github.com/BTreeMap/Simsar/internal/models"

type intentCategory struct {
	intent   models.Intent
	keywords []string
}

// intentCategories are tested in order; the first category with a match wins.
var intentCategories = compileIntents([]intentCategory{
	{models.IntentInquiry, []string{
		"هل", "كم", "متى", "أين", "ما هو", "كيف", "فين", "امتى", "ازاي", "بكام",
		"اريد ان اعرف", "يمكنك اخباري", "اخبرني عن",
	}},
	{models.IntentInterest, []string{
		"مهتم", "أريد", "أبحث", "أفضل", "يعجبني", "ابغى", "عندي رغبة", "عاجبني",
		"حلو", "يناسبني", "عايز", "عاوز", "حابب", "بدور",
	}},
	{models.IntentObjection, []string{
		"لكن", "غالي", "بعيد", "مشكلة", "صغير", "كبير", "لا أحب", "لا يناسب",
		"غير مناسب", "صعب",
	}},
	{models.IntentReady, []string{
		"مستعد", "موافق", "جاهز", "أوافق", "نعم", "تمام", "اشتري", "أقبل", "أتفق",
		"حاضر", "أكيد", "أيوه", "اوكي", "طبعاً",
	}},
	{models.IntentRejection, []string{
		"لا", "مش حابب", "مش عاجبني", "مش مناسب", "ما عجبنيش",
	}},
	{models.IntentGreeting, []string{
		"مرحبا", "السلام", "أهلا", "صباح", "مساء", "كيف الحال", "اهلين", "مرحبتين",
	}},
	{models.IntentClosing, []string{
		"موعد", "زيارة", "معاينة", "اتصال", "تواصل", "رقم", "هاتف", "جوال", "ايميل", "بريد",
	}},
})

func compileIntents(cats []intentCategory) []intentCategory {
	for i := range cats {
		for j, k := range cats[i].keywords {
			cats[i].keywords[j] = Normalize(k)
		}
	}
	return cats
}

// ClassifyIntent returns the first intent category with a whole-word keyword match in
// the normalized text, or models.IntentGeneral.
func ClassifyIntent(text string) models.Intent {
	normalized := Normalize(text)
	for _, cat := range intentCategories {
		for _, k := range cat.keywords {
			if containsWord(normalized, k) {
				return cat.intent
			}
		}
	}
	return models.IntentGeneral
}
