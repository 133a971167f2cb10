// Package flow implements the conversation core: the phase state machine, the per-turn
// reasoning orchestrator and the dialogue agent that renders replies.
package flow

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/nlp"
)

// ConditionKind names a transition condition.
type ConditionKind string

// Condition kinds. The keyword kinds differ only in name.
const (
	CondInformationComplete ConditionKind = "information_complete"
	CondMessageCount        ConditionKind = "message_count"
	CondConfirmation        ConditionKind = "confirmation"
	CondPropertySelection   ConditionKind = "property_selection"
	CondObjection           ConditionKind = "objection"
	CondInterest            ConditionKind = "interest"
	CondIntentToProceed     ConditionKind = "intent_to_proceed"
	CondInformationProvided ConditionKind = "information_provided"
)

// Condition is one test of a transition rule.
type Condition struct {
	Kind     ConditionKind
	Fields   []models.Slot // information_complete, information_provided
	MinCount int           // message_count
	Keywords []string      // keyword kinds

	normalized []string
}

// TransitionRule advances the machine to Next when every condition holds. A nil Next
// marks a terminal phase.
type TransitionRule struct {
	Conditions []Condition
	Next       *models.Phase
}

// TransitionInput is everything the conditions look at.
type TransitionInput struct {
	Message    string
	Extracted  models.UserProfile // this turn's delta
	Profile    models.UserProfile // accumulated profile before the delta
	HistoryLen int                // history entries including the current user message
}

// Decision is the outcome of evaluating one turn.
type Decision struct {
	From     models.Phase
	Advance  bool
	Next     *models.Phase
	Override models.Override
}

func phasePtr(p models.Phase) *models.Phase { return &p }

func keywords(kind ConditionKind, words ...string) Condition {
	return Condition{Kind: kind, Keywords: words}
}

// DefaultTransitionRules is the sales script's transition table.
func DefaultTransitionRules() map[models.Phase]TransitionRule {
	return map[models.Phase]TransitionRule{
		models.PhaseDiscovery: {
			Conditions: []Condition{
				{Kind: CondInformationComplete, Fields: []models.Slot{models.SlotLocation, models.SlotBudget, models.SlotPropertyType}},
				{Kind: CondMessageCount, MinCount: 1},
			},
			Next: phasePtr(models.PhaseSummary),
		},
		models.PhaseSummary: {
			Conditions: []Condition{keywords(CondConfirmation, "نعم", "صحيح", "موافق", "تمام", "مظبوط", "أيوه")},
			Next:       phasePtr(models.PhaseSuggestion),
		},
		models.PhaseSuggestion: {
			Conditions: []Condition{keywords(CondPropertySelection, "أعجبني", "مهتم", "رائع", "جيد", "تمام", "أيوه", "موافق")},
			Next:       phasePtr(models.PhasePersuasion),
		},
		models.PhasePersuasion: {
			Conditions: []Condition{keywords(CondObjection, "لكن", "مشكلة", "قلق", "لا أحب", "غالي")},
			Next:       phasePtr(models.PhaseAlternative),
		},
		models.PhaseAlternative: {
			Conditions: []Condition{keywords(CondInterest, "مهتم", "جيد", "أفضل", "يعجبني")},
			Next:       phasePtr(models.PhaseUrgency),
		},
		models.PhaseUrgency: {
			Conditions: []Condition{keywords(CondIntentToProceed, "أريد", "الآن", "متى", "كيف", "إجراءات")},
			Next:       phasePtr(models.PhaseClosing),
		},
		models.PhaseClosing: {
			Conditions: []Condition{
				{Kind: CondInformationProvided, Fields: []models.Slot{models.SlotContactName, models.SlotPhoneNumber}},
			},
			Next: nil,
		},
	}
}

// Universal override utterances, matched exactly.
var (
	goBackUtterances   = []string{"ارجع", "ارجع خطوة", "رجعني", "عودة"}
	confusedUtterances = []string{"مش فاهم", "مش واضح", "غلط", "مش مفهوم"}
)

// MatchOverride reports whether message is a go-back or confused utterance. Only
// surrounding whitespace is ignored; punctuation or spelling variants do not match.
func MatchOverride(message string) models.Override {
	trimmed := strings.TrimSpace(message)
	match := func(set []string) bool {
		for _, u := range set {
			if trimmed == u {
				return true
			}
		}
		return false
	}
	switch {
	case match(goBackUtterances):
		return models.OverrideGoBack
	case match(confusedUtterances):
		return models.OverrideConfused
	}
	return models.OverrideNone
}

// PhaseMachine holds the current phase of one conversation. It is not safe for
// concurrent use.
type PhaseMachine struct {
	current models.Phase
	rules   map[models.Phase]TransitionRule
}

// NewPhaseMachine creates a machine at start using DefaultTransitionRules. An invalid
// start phase falls back to DISCOVERY.
func NewPhaseMachine(start models.Phase) *PhaseMachine {
	return NewPhaseMachineWithRules(start, DefaultTransitionRules())
}

// NewPhaseMachineWithRules creates a machine with a custom rule table.
func NewPhaseMachineWithRules(start models.Phase, rules map[models.Phase]TransitionRule) *PhaseMachine {
	if !start.Valid() {
		start = models.PhaseDiscovery
	}
	for phase, rule := range rules {
		for i := range rule.Conditions {
			c := &rule.Conditions[i]
			c.normalized = make([]string, len(c.Keywords))
			for j, k := range c.Keywords {
				c.normalized[j] = nlp.Normalize(k)
			}
		}
		rules[phase] = rule
	}
	return &PhaseMachine{current: start, rules: rules}
}

// Current returns the current phase.
func (m *PhaseMachine) Current() models.Phase { return m.current }

// Set forces the current phase. It is meant for initialization, restore and tests.
func (m *PhaseMachine) Set(p models.Phase) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", models.ErrUnknownPhase, int(p))
	}
	m.current = p
	return nil
}

// Evaluate checks the current phase's rule against in. It never changes the phase.
func (m *PhaseMachine) Evaluate(in TransitionInput) Decision {
	d := Decision{From: m.current}
	rule, ok := m.rules[m.current]
	if !ok || rule.Next == nil {
		return d
	}
	for _, c := range rule.Conditions {
		if !c.holds(in) {
			return d
		}
	}
	if *rule.Next == m.current {
		return d
	}
	d.Advance = true
	d.Next = phasePtr(*rule.Next)
	return d
}

// EvaluateOverride builds the decision for an override utterance. Going back targets the
// previous phase, clamped at DISCOVERY; confusion stays put.
func (m *PhaseMachine) EvaluateOverride(o models.Override) Decision {
	d := Decision{From: m.current, Override: o}
	switch o {
	case models.OverrideGoBack:
		d.Advance = true
		d.Next = phasePtr(m.current.Prev())
	case models.OverrideConfused:
		d.Next = phasePtr(m.current)
	}
	return d
}

// Commit applies d and reports whether the phase changed.
func (m *PhaseMachine) Commit(d Decision) bool {
	if !d.Advance || d.Next == nil || !d.Next.Valid() || *d.Next == m.current {
		return false
	}
	slog.Debug("PhaseMachine.Commit: phase changed", "from", m.current, "to", *d.Next)
	m.current = *d.Next
	return true
}

func (c Condition) holds(in TransitionInput) bool {
	switch c.Kind {
	case CondInformationComplete:
		combined := in.Profile.Union(in.Extracted)
		for _, f := range c.Fields {
			if !combined.Has(f) {
				return false
			}
		}
		return true
	case CondMessageCount:
		minCount := c.MinCount
		if minCount <= 0 {
			minCount = 1
		}
		return in.HistoryLen >= minCount*2
	case CondInformationProvided:
		for _, f := range c.Fields {
			if !in.Extracted.Has(f) {
				return false
			}
		}
		return true
	case CondConfirmation, CondPropertySelection, CondObjection, CondInterest, CondIntentToProceed:
		lower := strings.ToLower(in.Message)
		normalized := nlp.Normalize(in.Message)
		for i, k := range c.Keywords {
			if strings.Contains(lower, strings.ToLower(k)) {
				return true
			}
			if i < len(c.normalized) && c.normalized[i] != "" && strings.Contains(normalized, c.normalized[i]) {
				return true
			}
		}
		return false
	}
	slog.Warn("Unknown transition condition", "kind", c.Kind)
	return false
}
