// Package models defines knowledge-base records: listings, advisory rules and phase content.
package models

import (
	"fmt"
	"strings"
)

// Listing column names. Retrieval filters are keyed by these, not by profile slots.
const (
	ColumnType     = "type"
	ColumnLocation = "location"
	ColumnPrice    = "price"
	ColumnFeatures = "features"
	ColumnBedrooms = "bedrooms"
)

// Listing is one row of the listings table. Fields holds every column as loaded.
type Listing struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// Get returns the column value and whether the listing has that column at all.
func (l Listing) Get(column string) (string, bool) {
	v, ok := l.Fields[column]
	return v, ok
}

// Type returns the property type column.
func (l Listing) Type() string { return l.Fields[ColumnType] }

// Location returns the location column.
func (l Listing) Location() string { return l.Fields[ColumnLocation] }

// Price returns the raw price column.
func (l Listing) Price() string { return l.Fields[ColumnPrice] }

// Bedrooms returns the bedrooms column.
func (l Listing) Bedrooms() string { return l.Fields[ColumnBedrooms] }

// Features splits the features column on Arabic and Latin commas.
func (l Listing) Features() []string {
	raw := l.Fields[ColumnFeatures]
	if raw == "" {
		return nil
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == '،' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Summary renders the one-line description shown to the buyer.
func (l Listing) Summary() string {
	return fmt.Sprintf("%s في %s بـ %s جنيه", l.Type(), l.Location(), l.Price())
}

// Budget advice condition tags.
const (
	BudgetHigh = "budget_high"
	BudgetMid  = "budget_mid"
	BudgetLow  = "budget_low"
)

// BudgetRule maps a budget tier to advisory text.
type BudgetRule struct {
	Condition string `json:"condition"`
	Response  string `json:"response"`
}

// PriorityRule maps a listing feature to advisory text.
type PriorityRule struct {
	Feature  string `json:"feature"`
	Response string `json:"response"`
}

// RuleSet is the advisory rule table.
type RuleSet struct {
	BudgetAdvice     []BudgetRule   `json:"budget_advice"`
	PropertyPriority []PriorityRule `json:"property_priority"`
}

// BudgetResponses returns every response whose condition equals tag, in file order.
func (r RuleSet) BudgetResponses(tag string) []string {
	var out []string
	for _, rule := range r.BudgetAdvice {
		if rule.Condition == tag {
			out = append(out, rule.Response)
		}
	}
	return out
}

// PhaseKnowledge is the auxiliary content attached to one phase.
type PhaseKnowledge struct {
	SuggestedQuestions  []string `json:"suggested_questions,omitempty" yaml:"suggested_questions,omitempty"`
	ConfirmationPhrases []string `json:"confirmation_phrases,omitempty" yaml:"confirmation_phrases,omitempty"`
	CallToAction        string   `json:"call_to_action,omitempty" yaml:"call_to_action,omitempty"`
	TalkingPoints       []string `json:"talking_points,omitempty" yaml:"talking_points,omitempty"`
}

// IsZero reports whether no content is set.
func (k PhaseKnowledge) IsZero() bool {
	return len(k.SuggestedQuestions) == 0 && len(k.ConfirmationPhrases) == 0 &&
		k.CallToAction == "" && len(k.TalkingPoints) == 0
}
