package flow

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/nlp"
)

var (
	phonePattern = regexp.MustCompile(`(\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// ReasoningInput is what the reasoner sees for one user message.
type ReasoningInput struct {
	Message    string
	Profile    models.UserProfile
	HistoryLen int
	Knowledge  models.RetrievalResult
}

// Reasoner combines extraction, classification and the transition table into one
// per-turn analysis. It has no side effects.
type Reasoner struct {
	extractor nlp.EntityExtractor
}

// NewReasoner returns a reasoner using x for entity extraction. A nil x selects
// nlp.DefaultExtractor.
func NewReasoner(x nlp.EntityExtractor) *Reasoner {
	if x == nil {
		x = nlp.DefaultExtractor
	}
	return &Reasoner{extractor: x}
}

// Analyze evaluates one message against the machine's current phase without committing
// anything.
func (r *Reasoner) Analyze(m *PhaseMachine, in ReasoningInput) models.ReasoningResult {
	phase := m.Current()
	if o := MatchOverride(in.Message); o != models.OverrideNone {
		d := m.EvaluateOverride(o)
		res := models.ReasoningResult{
			Intent:            overrideIntent(o),
			Sentiment:         models.SentimentNeutral,
			Override:          o,
			ShouldChangePhase: d.Advance,
			NextPhase:         d.Next,
			Knowledge:         in.Knowledge,
		}
		res.Trace = trace(phase, res)
		slog.Debug("Reasoner.Analyze: override", "phase", phase, "override", o)
		return res
	}

	extracted := r.extract(phase, in.Message)
	d := m.Evaluate(TransitionInput{
		Message:    in.Message,
		Extracted:  extracted,
		Profile:    in.Profile,
		HistoryLen: in.HistoryLen,
	})
	res := models.ReasoningResult{
		Extracted:         extracted,
		Intent:            nlp.ClassifyIntent(in.Message),
		Sentiment:         nlp.ClassifySentiment(in.Message),
		ShouldChangePhase: d.Advance,
		NextPhase:         d.Next,
		Knowledge:         in.Knowledge,
	}
	res.Trace = trace(phase, res)
	slog.Debug("Reasoner.Analyze", "phase", phase, "intent", res.Intent, "sentiment", res.Sentiment, "advance", res.ShouldChangePhase)
	return res
}

// extract runs the phase-dependent slot extraction. Only DISCOVERY and CLOSING
// extract anything.
func (r *Reasoner) extract(phase models.Phase, message string) models.UserProfile {
	switch phase {
	case models.PhaseDiscovery:
		return nlp.ExtractPreferences(r.extractor, message)
	case models.PhaseClosing:
		return r.extractContact(message)
	}
	return models.UserProfile{}
}

func (r *Reasoner) extractContact(message string) models.UserProfile {
	var p models.UserProfile
	p.ContactName = r.extractor.Extract(message).First(nlp.EntityPerson)
	p.PhoneNumber = phonePattern.FindString(message)
	p.Email = emailPattern.FindString(message)
	return p
}

func overrideIntent(o models.Override) models.Intent {
	if o == models.OverrideConfused {
		return models.IntentConfused
	}
	return models.IntentFallback
}

// trace renders the human-readable reasoning summary.
func trace(phase models.Phase, res models.ReasoningResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "phase: %s\n", phase)
	if res.Override != models.OverrideNone {
		fmt.Fprintf(&sb, "override: %s\n", res.Override)
	}
	fmt.Fprintf(&sb, "intent: %s\n", res.Intent)
	fmt.Fprintf(&sb, "sentiment: %s\n", res.Sentiment)

	var fields []string
	for _, s := range res.Extracted.Filled() {
		fields = append(fields, fmt.Sprintf("%s=%s", s, res.Extracted.Value(s)))
	}
	if len(fields) == 0 {
		sb.WriteString("extracted: none found\n")
	} else {
		fmt.Fprintf(&sb, "extracted: %s\n", strings.Join(fields, "; "))
	}

	if res.ShouldChangePhase && res.NextPhase != nil {
		fmt.Fprintf(&sb, "transition: advance to %s", *res.NextPhase)
	} else {
		fmt.Fprintf(&sb, "transition: stay in %s", phase)
	}
	return sb.String()
}
