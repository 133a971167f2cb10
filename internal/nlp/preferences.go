package nlp

import (
	"strings"

	"github.com/BTreeMap/Simsar/internal/models"
)

var roomKeywords = normalizeAll("غرف", "غرفة", "اوض")

// ExtractPreferences maps the entities found in text onto discovery slots. A bare number
// becomes the bedroom count only when a room keyword appears in the same text.
func ExtractPreferences(x EntityExtractor, text string) models.UserProfile {
	if x == nil {
		x = DefaultExtractor
	}
	ents := x.Extract(text)

	var p models.UserProfile
	p.Location = ents.First(EntityLocation)
	p.Budget = ents.First(EntityMoney)
	p.PropertyType = ents.First(EntityPropertyType)
	p.Bedrooms = ents.First(EntityBedrooms)
	if p.Bedrooms == "" && ents.Has(EntityNumber) && mentionsRooms(text) {
		p.Bedrooms = ents.First(EntityNumber)
	}
	if feats := ents[EntityFeature]; len(feats) > 0 {
		p.Features = append([]string(nil), feats...)
	}
	return p
}

func mentionsRooms(text string) bool {
	normalized := Normalize(text)
	for _, k := range roomKeywords {
		if strings.Contains(normalized, k) {
			return true
		}
	}
	return false
}
