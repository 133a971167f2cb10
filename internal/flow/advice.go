package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/Simsar/internal/genai"
	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/nlp"
)

// Advisor turns the rule table into short buying advice.
type Advisor struct {
	rules models.RuleSet
	gen   genai.Generator
}

// NewAdvisor returns an advisor over rules. gen may be nil, in which case no advice is
// generated when no rule applies.
func NewAdvisor(rules models.RuleSet, gen genai.Generator) *Advisor {
	return &Advisor{rules: rules, gen: gen}
}

// BudgetTier maps a normalized budget string to a budget rule tag, or "" when the budget
// has no number.
func BudgetTier(budget string) string {
	value, ok := nlp.AmountValue(budget)
	if !ok {
		return ""
	}
	switch {
	case strings.Contains(budget, "مليون"):
		return models.BudgetHigh
	case strings.Contains(budget, "ألف"), strings.Contains(budget, "الف"):
		if value/1_000 < 500 {
			return models.BudgetLow
		}
		return models.BudgetMid
	case value < 500_000:
		return models.BudgetLow
	case value < 1_000_000:
		return models.BudgetMid
	}
	return models.BudgetHigh
}

// Advise returns the budget advice for the profile followed by the feature advice for
// listing, or for the profile's features when listing is nil.
func (a *Advisor) Advise(ctx context.Context, profile models.UserProfile, listing *models.Listing) ([]string, error) {
	var advice []string
	if tier := BudgetTier(profile.Budget); tier != "" {
		advice = append(advice, a.rules.BudgetResponses(tier)...)
	}

	features := profile.Features
	if listing != nil {
		features = listing.Features()
	}
	for _, rule := range a.rules.PropertyPriority {
		for _, f := range features {
			if strings.Contains(f, rule.Feature) {
				advice = append(advice, rule.Response)
				break
			}
		}
	}

	if len(advice) > 0 || a.gen == nil {
		return advice, nil
	}
	slog.Debug("Advisor.Advise: no rule applied, asking generator")
	text, err := a.gen.Generate(ctx, genai.Prompt{System: CharacterPrompt, User: AdvicePrompt})
	if err != nil {
		return nil, fmt.Errorf("generate advice: %w", err)
	}
	if text = strings.TrimSpace(text); text != "" {
		advice = append(advice, text)
	}
	return advice, nil
}
