package flow

import (
	"strings"
	"testing"

	"github.com/BTreeMap/Simsar/internal/models"
)

func TestReasonerDiscovery(t *testing.T) {
	r := NewReasoner(nil)
	m := NewPhaseMachine(models.PhaseDiscovery)

	res := r.Analyze(m, ReasoningInput{Message: "عايز شقة في المعادي بميزانية 1 مليون", HistoryLen: 1})
	want := models.UserProfile{Location: "المعادي", Budget: "1 مليون جنيه", PropertyType: "شقة"}
	if res.Extracted.Location != want.Location || res.Extracted.Budget != want.Budget || res.Extracted.PropertyType != want.PropertyType {
		t.Errorf("Extracted = %+v, want %+v", res.Extracted, want)
	}
	if res.Intent != models.IntentInterest {
		t.Errorf("Intent = %q, want interest", res.Intent)
	}
	if res.Sentiment != models.SentimentNeutral {
		t.Errorf("Sentiment = %q, want neutral", res.Sentiment)
	}
	if res.ShouldChangePhase {
		t.Error("first message advanced the phase")
	}
	wantTrace := "phase: DISCOVERY\n" +
		"intent: interest\n" +
		"sentiment: neutral\n" +
		"extracted: location=المعادي; budget=1 مليون جنيه; property_type=شقة\n" +
		"transition: stay in DISCOVERY"
	if res.Trace != wantTrace {
		t.Errorf("Trace =\n%s\nwant\n%s", res.Trace, wantTrace)
	}
	if m.Current() != models.PhaseDiscovery {
		t.Error("Analyze committed a transition")
	}

	res = r.Analyze(m, ReasoningInput{Message: "عايز شقة في المعادي بميزانية 1 مليون", HistoryLen: 3})
	if !res.ShouldChangePhase || res.NextPhase == nil || *res.NextPhase != models.PhaseSummary {
		t.Errorf("decision = %v %v, want advance to SUMMARY", res.ShouldChangePhase, res.NextPhase)
	}
	if !strings.HasSuffix(res.Trace, "transition: advance to SUMMARY") {
		t.Errorf("Trace = %q", res.Trace)
	}
}

func TestReasonerClosingContact(t *testing.T) {
	r := NewReasoner(nil)
	m := NewPhaseMachine(models.PhaseClosing)

	res := r.Analyze(m, ReasoningInput{Message: "اسمي محمد ورقمي 01012345678 والايميل m.ali@example.com"})
	if res.Extracted.ContactName != "محمد" {
		t.Errorf("ContactName = %q", res.Extracted.ContactName)
	}
	if res.Extracted.PhoneNumber != "01012345678" {
		t.Errorf("PhoneNumber = %q", res.Extracted.PhoneNumber)
	}
	if res.Extracted.Email != "m.ali@example.com" {
		t.Errorf("Email = %q", res.Extracted.Email)
	}
	if res.ShouldChangePhase {
		t.Error("CLOSING advanced")
	}

	res = r.Analyze(m, ReasoningInput{Message: "رقمي 123"})
	if res.Extracted.PhoneNumber != "" {
		t.Errorf("malformed phone extracted as %q", res.Extracted.PhoneNumber)
	}
}

func TestReasonerOtherPhasesExtractNothing(t *testing.T) {
	r := NewReasoner(nil)
	m := NewPhaseMachine(models.PhaseSuggestion)

	res := r.Analyze(m, ReasoningInput{Message: "عايز فيلا في التجمع"})
	if !res.Extracted.IsEmpty() {
		t.Errorf("Extracted = %+v, want empty", res.Extracted)
	}
	if !strings.Contains(res.Trace, "extracted: none found") {
		t.Errorf("Trace = %q", res.Trace)
	}
}

func TestReasonerOverride(t *testing.T) {
	r := NewReasoner(nil)
	m := NewPhaseMachine(models.PhaseSummary)

	res := r.Analyze(m, ReasoningInput{Message: "ارجع"})
	if res.Override != models.OverrideGoBack || res.Intent != models.IntentFallback {
		t.Errorf("override = %q intent = %q", res.Override, res.Intent)
	}
	if !res.ShouldChangePhase || *res.NextPhase != models.PhaseDiscovery {
		t.Errorf("decision = %v %v", res.ShouldChangePhase, res.NextPhase)
	}

	res = r.Analyze(m, ReasoningInput{Message: "مش واضح"})
	if res.Override != models.OverrideConfused || res.Intent != models.IntentConfused || res.ShouldChangePhase {
		t.Errorf("confused result = %+v", res)
	}
	if !strings.Contains(res.Trace, "override: confused") || !strings.HasSuffix(res.Trace, "stay in SUMMARY") {
		t.Errorf("Trace = %q", res.Trace)
	}
}
