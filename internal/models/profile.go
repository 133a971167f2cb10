package models

import "strings"

// Slot names a field of the user profile.
type Slot string

// Recognized profile slots.
const (
	SlotLocation     Slot = "location"
	SlotBudget       Slot = "budget"
	SlotPropertyType Slot = "property_type"
	SlotBedrooms     Slot = "bedrooms"
	SlotFeatures     Slot = "features"
	SlotRefersTo     Slot = "refers_to"
	SlotContactName  Slot = "contact_name"
	SlotPhoneNumber  Slot = "phone_number"
	SlotEmail        Slot = "email"
)

// SlotOrder is the fixed order used when slots are listed, e.g. in reasoning traces.
var SlotOrder = []Slot{
	SlotLocation,
	SlotBudget,
	SlotPropertyType,
	SlotBedrooms,
	SlotFeatures,
	SlotRefersTo,
	SlotContactName,
	SlotPhoneNumber,
	SlotEmail,
}

// MergePolicy decides how a newly extracted slot value interacts with an existing one.
type MergePolicy int

const (
	// KeepFirst preserves a value once it is set.
	KeepFirst MergePolicy = iota
	// KeepLast lets a newer non-empty value replace the stored one.
	KeepLast
	// Union appends unseen list items in first-seen order.
	Union
)

// SlotPolicies is the single precedence table used by every profile merge.
// Discovery slots are first-writer-wins, contact details and back-references
// follow the latest message, features accumulate.
var SlotPolicies = map[Slot]MergePolicy{
	SlotLocation:     KeepFirst,
	SlotBudget:       KeepFirst,
	SlotPropertyType: KeepFirst,
	SlotBedrooms:     KeepFirst,
	SlotFeatures:     Union,
	SlotRefersTo:     KeepLast,
	SlotContactName:  KeepLast,
	SlotPhoneNumber:  KeepLast,
	SlotEmail:        KeepLast,
}

// UserProfile accumulates what the buyer told the agent during one session.
type UserProfile struct {
	Location     string   `json:"location,omitempty"`
	Budget       string   `json:"budget,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	Bedrooms     string   `json:"bedrooms,omitempty"`
	Features     []string `json:"features,omitempty"`
	RefersTo     string   `json:"refers_to,omitempty"` // listing ID or UnclearReference
	ContactName  string   `json:"contact_name,omitempty"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Email        string   `json:"email,omitempty"`
}

// UnclearReference marks a back-reference that could not be resolved to a listing.
const UnclearReference = "غير واضح"

// Value returns the slot value as text. Features are joined with "، ".
func (p UserProfile) Value(s Slot) string {
	switch s {
	case SlotLocation:
		return p.Location
	case SlotBudget:
		return p.Budget
	case SlotPropertyType:
		return p.PropertyType
	case SlotBedrooms:
		return p.Bedrooms
	case SlotFeatures:
		return strings.Join(p.Features, "، ")
	case SlotRefersTo:
		return p.RefersTo
	case SlotContactName:
		return p.ContactName
	case SlotPhoneNumber:
		return p.PhoneNumber
	case SlotEmail:
		return p.Email
	}
	return ""
}

// Has reports whether the slot is present with a truthy value.
func (p UserProfile) Has(s Slot) bool {
	if s == SlotFeatures {
		return len(p.Features) > 0
	}
	return strings.TrimSpace(p.Value(s)) != ""
}

// Set assigns a single-valued slot. Setting SlotFeatures appends the value.
func (p *UserProfile) Set(s Slot, value string) {
	switch s {
	case SlotLocation:
		p.Location = value
	case SlotBudget:
		p.Budget = value
	case SlotPropertyType:
		p.PropertyType = value
	case SlotBedrooms:
		p.Bedrooms = value
	case SlotFeatures:
		if value != "" {
			p.Features = append(p.Features, value)
		}
	case SlotRefersTo:
		p.RefersTo = value
	case SlotContactName:
		p.ContactName = value
	case SlotPhoneNumber:
		p.PhoneNumber = value
	case SlotEmail:
		p.Email = value
	}
}

// IsEmpty reports whether no slot is set.
func (p UserProfile) IsEmpty() bool {
	for _, s := range SlotOrder {
		if p.Has(s) {
			return false
		}
	}
	return true
}

// Filled returns the slots that hold a value, in SlotOrder.
func (p UserProfile) Filled() []Slot {
	var out []Slot
	for _, s := range SlotOrder {
		if p.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Union returns a copy of p with every slot of delta that p lacks filled in.
// Values already present in p win. Used for condition checks, never for storage.
func (p UserProfile) Union(delta UserProfile) UserProfile {
	out := p.Clone()
	for _, s := range SlotOrder {
		if !out.Has(s) && delta.Has(s) {
			if s == SlotFeatures {
				out.Features = append([]string(nil), delta.Features...)
				continue
			}
			out.Set(s, delta.Value(s))
		}
	}
	return out
}

// Merge applies delta to p following SlotPolicies and returns the slots that changed.
func (p *UserProfile) Merge(delta UserProfile) []Slot {
	var changed []Slot
	for _, s := range SlotOrder {
		if !delta.Has(s) {
			continue
		}
		switch SlotPolicies[s] {
		case KeepFirst:
			if p.Has(s) {
				continue
			}
			p.Set(s, delta.Value(s))
			changed = append(changed, s)
		case KeepLast:
			if p.Value(s) == delta.Value(s) {
				continue
			}
			p.Set(s, delta.Value(s))
			changed = append(changed, s)
		case Union:
			added := false
			for _, f := range delta.Features {
				if f == "" || containsString(p.Features, f) {
					continue
				}
				p.Features = append(p.Features, f)
				added = true
			}
			if added {
				changed = append(changed, s)
			}
		}
	}
	return changed
}

// Clone returns a deep copy.
func (p UserProfile) Clone() UserProfile {
	out := p
	if p.Features != nil {
		out.Features = append([]string(nil), p.Features...)
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
