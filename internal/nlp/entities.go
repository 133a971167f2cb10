package nlp

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// EntityKind labels a class of extracted entity.
type EntityKind string

// Entity kinds.
const (
	EntityLocation     EntityKind = "LOCATION"
	EntityPropertyType EntityKind = "PROPERTY_TYPE"
	EntityMoney        EntityKind = "MONEY"
	EntityPerson       EntityKind = "PERSON"
	EntityNumber       EntityKind = "NUMBER"
	EntityFeature      EntityKind = "FEATURE"
	EntityBedrooms     EntityKind = "BEDROOMS"
	EntityBathrooms    EntityKind = "BATHROOMS"
	EntityArea         EntityKind = "AREA"
)

// Entities maps each kind found in a text to its values in text order.
type Entities map[EntityKind][]string

// First returns the first value of kind, or "" when none was found.
func (e Entities) First(kind EntityKind) string {
	if vals := e[kind]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Has reports whether at least one value of kind was found.
func (e Entities) Has(kind EntityKind) bool {
	return len(e[kind]) > 0
}

func (e Entities) add(kind EntityKind, values ...string) {
	for _, v := range values {
		if v != "" {
			e[kind] = append(e[kind], v)
		}
	}
}

// EntityExtractor finds typed entities in raw user text.
type EntityExtractor interface {
	Extract(text string) Entities
}

// GazetteerExtractor is the default EntityExtractor. It runs a gazetteer and pattern
// pass and, only when that pass finds nothing, a looser phrase-based pass.
type GazetteerExtractor struct {
	Locations     *Gazetteer
	PropertyTypes *Gazetteer
	Features      *Gazetteer
}

// NewGazetteerExtractor returns an extractor over the built-in vocabularies.
func NewGazetteerExtractor() *GazetteerExtractor {
	return &GazetteerExtractor{
		Locations:     Locations,
		PropertyTypes: PropertyTypes,
		Features:      Features,
	}
}

// DefaultExtractor is shared by callers that do not need a custom vocabulary.
var DefaultExtractor EntityExtractor = NewGazetteerExtractor()

var (
	personPattern     = regexp.MustCompile(`(?:^|\s)(?:اسمي|انا|أنا)\s+(\p{Arabic}+)`)
	locationPhrase    = regexp.MustCompile(`(?:^|\s)(?:في|منطقه|حي|مدينه)\s+(\S+)`)
	riyalPattern      = regexp.MustCompile(`(\d[\d,]*)\s*ريال`)
	numberPattern     = regexp.MustCompile(`\d+`)
	bedroomPatterns   = []*regexp.Regexp{regexp.MustCompile(`(\d+)\s*(?:غرف|اوض)`)}
	bathroomPatterns  = []*regexp.Regexp{regexp.MustCompile(`(\d+)\s*حمام`)}
	areaPatterns      = []*regexp.Regexp{regexp.MustCompile(`مساحه\s*(\d+)`), regexp.MustCompile(`(\d+)\s*متر`), regexp.MustCompile(`(\d+)\s*م(?:\s|$)`)}
	latinBedPattern   = regexp.MustCompile(`(\d+)\s*bed`)
	latinBathPattern  = regexp.MustCompile(`(\d+)\s*bath`)
	arabicPunctuation = "،؛؟."
)

// Extract implements EntityExtractor.
func (x *GazetteerExtractor) Extract(text string) Entities {
	normalized := Normalize(text)
	lower := strings.ToLower(text)

	ents := make(Entities)
	ents.add(EntityLocation, x.Locations.find(normalized, lower)...)
	ents.add(EntityPropertyType, x.PropertyTypes.find(normalized, lower)...)
	ents.add(EntityFeature, x.Features.find(normalized, lower)...)
	ents.add(EntityMoney, FindAmounts(text)...)
	ents.add(EntityPerson, findPerson(text))
	ents.add(EntityBedrooms, firstGroup(normalized, bedroomPatterns...))
	if !ents.Has(EntityBedrooms) {
		ents.add(EntityBedrooms, firstGroup(lower, latinBedPattern))
	}
	ents.add(EntityBathrooms, firstGroup(normalized, bathroomPatterns...))
	if !ents.Has(EntityBathrooms) {
		ents.add(EntityBathrooms, firstGroup(lower, latinBathPattern))
	}
	ents.add(EntityArea, firstGroup(normalized, areaPatterns...))

	if len(ents) > 0 {
		return ents
	}
	return x.fallback(text, normalized)
}

// fallback is the phrase-based pass used when the gazetteers found nothing.
func (x *GazetteerExtractor) fallback(raw, normalized string) Entities {
	ents := make(Entities)
	for _, m := range locationPhrase.FindAllStringSubmatch(normalized, -1) {
		if utf8.RuneCountInString(m[1]) > 2 {
			ents.add(EntityLocation, m[1])
		}
	}
	for _, m := range riyalPattern.FindAllStringSubmatch(raw, -1) {
		ents.add(EntityMoney, strings.ReplaceAll(m[1], ",", "")+" ريال")
	}
	ents.add(EntityNumber, numberPattern.FindAllString(normalized, -1)...)
	return ents
}

func findPerson(text string) string {
	m := personPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := strings.TrimRight(m[1], arabicPunctuation)
	if utf8.RuneCountInString(name) <= 2 {
		return ""
	}
	return name
}

func firstGroup(text string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}
