package nlp

import (
	"sort"
	"strings"
)

// Term is one gazetteer entry: a canonical display form and the surface forms that
// map to it. Forms written in Latin script are matched case-insensitively against the
// raw text, all others against the normalized text.
type Term struct {
	Canonical string
	Forms     []string
}

type compiledForm struct {
	text  string
	latin bool
}

type compiledTerm struct {
	canonical string
	forms     []compiledForm
}

// Gazetteer matches a closed vocabulary against free text.
type Gazetteer struct {
	terms []compiledTerm
}

// NewGazetteer compiles terms. A term without forms matches its canonical form.
func NewGazetteer(terms ...Term) *Gazetteer {
	g := &Gazetteer{terms: make([]compiledTerm, 0, len(terms))}
	for _, t := range terms {
		forms := t.Forms
		if len(forms) == 0 {
			forms = []string{t.Canonical}
		}
		ct := compiledTerm{canonical: t.Canonical}
		for _, f := range forms {
			if n := Normalize(f); n != "" {
				ct.forms = append(ct.forms, compiledForm{text: n})
			} else if l := strings.ToLower(strings.TrimSpace(f)); l != "" {
				ct.forms = append(ct.forms, compiledForm{text: l, latin: true})
			}
		}
		g.terms = append(g.terms, ct)
	}
	return g
}

// Words builds a gazetteer whose canonical forms are also their only surface forms.
func Words(words ...string) *Gazetteer {
	terms := make([]Term, len(words))
	for i, w := range words {
		terms[i] = Term{Canonical: w}
	}
	return NewGazetteer(terms...)
}

type gazetteerHit struct {
	canonical string
	pos, end  int
}

// Find returns the canonical forms of every term occurring in text, ordered by first
// occurrence. A match lying inside a longer match that starts earlier or at the same
// position is ignored.
func (g *Gazetteer) Find(text string) []string {
	return g.find(Normalize(text), strings.ToLower(text))
}

// First returns the earliest matching canonical form.
func (g *Gazetteer) First(text string) (string, bool) {
	hits := g.Find(text)
	if len(hits) == 0 {
		return "", false
	}
	return hits[0], true
}

// Contains reports whether canonical is a term of g.
func (g *Gazetteer) Contains(canonical string) bool {
	for _, t := range g.terms {
		if t.canonical == canonical {
			return true
		}
	}
	return false
}

func (g *Gazetteer) find(normalized, lower string) []string {
	var hits []gazetteerHit
	for _, t := range g.terms {
		best := gazetteerHit{pos: -1}
		for _, f := range t.forms {
			haystack := normalized
			if f.latin {
				haystack = lower
			}
			i := strings.Index(haystack, f.text)
			if i < 0 {
				continue
			}
			if best.pos < 0 || i < best.pos || (i == best.pos && i+len(f.text) > best.end) {
				best = gazetteerHit{canonical: t.canonical, pos: i, end: i + len(f.text)}
			}
		}
		if best.pos >= 0 {
			hits = append(hits, best)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].pos != hits[j].pos {
			return hits[i].pos < hits[j].pos
		}
		return hits[i].end > hits[j].end
	})
	out := make([]string, 0, len(hits))
	coveredTo := -1
	for _, h := range hits {
		if h.end <= coveredTo {
			continue
		}
		out = append(out, h.canonical)
		if h.end > coveredTo {
			coveredTo = h.end
		}
	}
	return out
}

// EgyptianLocations are the cities and districts the agent recognizes in Egypt.
var EgyptianLocations = Words(
	"القاهرة", "الاسكندرية", "الجيزة", "المعادي", "مدينة نصر", "6 أكتوبر", "التجمع",
	"الشروق", "العبور", "الرحاب", "مدينتي", "الشيخ زايد", "المهندسين", "الدقي",
	"الزمالك", "وسط البلد", "مصر الجديدة", "حلوان",
)

// Locations covers Egyptian districts plus Saudi cities and Riyadh neighborhoods.
var Locations = Words(
	"القاهرة", "الاسكندرية", "الجيزة", "المعادي", "مدينة نصر", "6 أكتوبر", "التجمع",
	"الشروق", "العبور", "الرحاب", "مدينتي", "الشيخ زايد", "المهندسين", "الدقي",
	"الزمالك", "وسط البلد", "مصر الجديدة", "حلوان",
	"الرياض", "جدة", "مكة", "المدينة", "الدمام", "الخبر", "الظهران",
	"تبوك", "أبها", "القصيم", "بريدة", "نجران", "جازان", "حائل",
	"عسير", "الباحة", "الجوف", "عرعر", "ينبع", "الطائف",
	"النخيل", "العليا", "الملقا", "الياسمين", "الورود", "الرحمانية",
	"السليمانية", "المروج", "الربوة", "العزيزية", "الملز", "النزهة",
	"الفلاح", "المصيف", "الروضة", "الشفا", "الدرعية", "المربع",
	"البطحاء", "الديرة", "الخالدية", "النسيم",
)

// PropertyTypes is the property-type vocabulary of the entity extractor.
var PropertyTypes = Words("شقة", "فيلا", "منزل", "دوبلكس", "استوديو", "بنتهاوس", "مكتب", "محل")

// PropertyTypeSynonyms maps colloquial and English spellings onto canonical types.
var PropertyTypeSynonyms = NewGazetteer(
	Term{Canonical: "شقة", Forms: []string{"شقة", "شقه", "apartment"}},
	Term{Canonical: "فيلا", Forms: []string{"فيلا", "فيلات", "villa"}},
	Term{Canonical: "دوبلكس", Forms: []string{"دوبلكس", "duplex"}},
	Term{Canonical: "ستوديو", Forms: []string{"ستوديو", "studio"}},
	Term{Canonical: "محل", Forms: []string{"محل", "محلات", "shop"}},
	Term{Canonical: "مكتب", Forms: []string{"مكتب", "مكاتب", "office"}},
)

// Features is the amenity vocabulary.
var Features = Words("حديقة", "مسبح", "تكييف", "مفروش", "مطبخ", "شرفة", "موقف", "جراج", "مصعد", "أمن")
