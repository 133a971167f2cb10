package models

// Intent is the single label produced by the intent classifier.
type Intent string

// Intent labels. IntentFallback and IntentConfused are produced only by the
// go-back and confused overrides.
const (
	IntentInquiry   Intent = "inquiry"
	IntentInterest  Intent = "interest"
	IntentObjection Intent = "objection"
	IntentReady     Intent = "ready"
	IntentRejection Intent = "rejection"
	IntentGreeting  Intent = "greeting"
	IntentClosing   Intent = "closing"
	IntentGeneral   Intent = "general"
	IntentFallback  Intent = "fallback"
	IntentConfused  Intent = "confused"
)

// Sentiment is the signed sentiment label.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Override identifies a universal utterance that bypasses the transition table.
type Override string

const (
	OverrideNone     Override = ""
	OverrideGoBack   Override = "go_back"
	OverrideConfused Override = "confused"
)

// RetrievalResult is what the retrieval layer hands back for one turn.
type RetrievalResult struct {
	PhaseKnowledge PhaseKnowledge `json:"phase_knowledge"`
	Properties     []Listing      `json:"relevant_properties,omitempty"` // at most 3, nil when none matched
}

// ReasoningResult is the transient per-turn output of the reasoning orchestrator.
type ReasoningResult struct {
	Trace             string          `json:"reasoning"`
	Extracted         UserProfile     `json:"extracted_info"`
	Intent            Intent          `json:"intent"`
	Sentiment         Sentiment       `json:"sentiment"`
	Override          Override        `json:"override,omitempty"`
	ShouldChangePhase bool            `json:"should_change_phase"`
	NextPhase         *Phase          `json:"next_phase,omitempty"` // nil when no candidate
	Knowledge         RetrievalResult `json:"relevant_knowledge"`
}
