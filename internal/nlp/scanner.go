package nlp

import "github.com/BTreeMap/Simsar/internal/models"

// SlotScanner is the lightweight scanner run on every regular turn, independently of
// entity extraction. It fills location, budget and property type only.
type SlotScanner struct {
	Locations     *Gazetteer
	PropertyTypes *Gazetteer
}

// NewSlotScanner returns a scanner over the Egyptian location list and the property-type
// synonym table.
func NewSlotScanner() *SlotScanner {
	return &SlotScanner{
		Locations:     EgyptianLocations,
		PropertyTypes: PropertyTypeSynonyms,
	}
}

// Scan returns the slots found in text. Only the first match of each slot is kept.
func (s *SlotScanner) Scan(text string) models.UserProfile {
	var p models.UserProfile
	if loc, ok := s.Locations.First(text); ok {
		p.Location = loc
	}
	if amount, ok := ParseAmount(text); ok {
		p.Budget = amount
	}
	if typ, ok := s.PropertyTypes.First(text); ok {
		p.PropertyType = typ
	}
	return p
}
