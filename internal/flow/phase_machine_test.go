package flow

import (
	"errors"
	"testing"

	"github.com/BTreeMap/Simsar/internal/models"
)

func fullDiscovery() models.UserProfile {
	return models.UserProfile{Location: "المعادي", Budget: "1 مليون جنيه", PropertyType: "شقة"}
}

func TestPhaseMachineEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		phase   models.Phase
		in      TransitionInput
		advance bool
		next    models.Phase
	}{
		{"discovery complete", models.PhaseDiscovery, TransitionInput{Extracted: fullDiscovery(), HistoryLen: 2}, true, models.PhaseSummary},
		{"discovery profile plus delta", models.PhaseDiscovery, TransitionInput{
			Profile:    models.UserProfile{Location: "المعادي", Budget: "5000 جنيه"},
			Extracted:  models.UserProfile{PropertyType: "فيلا"},
			HistoryLen: 3,
		}, true, models.PhaseSummary},
		{"discovery first message", models.PhaseDiscovery, TransitionInput{Extracted: fullDiscovery(), HistoryLen: 1}, false, 0},
		{"discovery missing budget", models.PhaseDiscovery, TransitionInput{
			Extracted:  models.UserProfile{Location: "المعادي", PropertyType: "شقة"},
			HistoryLen: 4,
		}, false, 0},
		{"summary confirmed", models.PhaseSummary, TransitionInput{Message: "نعم ده صحيح"}, true, models.PhaseSuggestion},
		{"summary not confirmed", models.PhaseSummary, TransitionInput{Message: "لا"}, false, 0},
		{"suggestion selected", models.PhaseSuggestion, TransitionInput{Message: "أعجبني الأول"}, true, models.PhasePersuasion},
		{"suggestion selected without hamza", models.PhaseSuggestion, TransitionInput{Message: "اعجبني"}, true, models.PhasePersuasion},
		{"suggestion undecided", models.PhaseSuggestion, TransitionInput{Message: "خليني أفكر"}, false, 0},
		{"persuasion objection", models.PhasePersuasion, TransitionInput{Message: "غالي شوية"}, true, models.PhaseAlternative},
		{"persuasion no objection", models.PhasePersuasion, TransitionInput{Message: "ماشي"}, false, 0},
		{"alternative interest", models.PhaseAlternative, TransitionInput{Message: "ده أفضل"}, true, models.PhaseUrgency},
		{"alternative silent", models.PhaseAlternative, TransitionInput{Message: "هشوف"}, false, 0},
		{"urgency proceed", models.PhaseUrgency, TransitionInput{Message: "متى المعاينة؟"}, true, models.PhaseClosing},
		{"urgency waiting", models.PhaseUrgency, TransitionInput{Message: "بعدين"}, false, 0},
		{"closing is terminal", models.PhaseClosing, TransitionInput{
			Extracted: models.UserProfile{ContactName: "محمد", PhoneNumber: "01012345678"},
		}, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPhaseMachine(tt.phase)
			d := m.Evaluate(tt.in)
			if d.From != tt.phase {
				t.Errorf("From = %v, want %v", d.From, tt.phase)
			}
			if d.Advance != tt.advance {
				t.Fatalf("Advance = %v, want %v", d.Advance, tt.advance)
			}
			if tt.advance && (d.Next == nil || *d.Next != tt.next) {
				t.Errorf("Next = %v, want %v", d.Next, tt.next)
			}
			if m.Current() != tt.phase {
				t.Errorf("Evaluate changed phase to %v", m.Current())
			}
		})
	}
}

func TestPhaseMachineCommit(t *testing.T) {
	m := NewPhaseMachine(models.PhaseDiscovery)
	d := m.Evaluate(TransitionInput{Extracted: fullDiscovery(), HistoryLen: 2})
	if !m.Commit(d) {
		t.Fatal("Commit returned false for an advancing decision")
	}
	if m.Current() != models.PhaseSummary {
		t.Errorf("Current = %v, want SUMMARY", m.Current())
	}
	if m.Commit(Decision{From: models.PhaseSummary}) {
		t.Error("Commit applied a non-advancing decision")
	}
}

func TestNewPhaseMachineInvalidStart(t *testing.T) {
	if got := NewPhaseMachine(models.Phase(42)).Current(); got != models.PhaseDiscovery {
		t.Errorf("Current = %v, want DISCOVERY", got)
	}
	m := NewPhaseMachine(models.PhaseSummary)
	if err := m.Set(models.Phase(0)); !errors.Is(err, models.ErrUnknownPhase) {
		t.Errorf("Set(0) error = %v, want ErrUnknownPhase", err)
	}
	if err := m.Set(models.PhaseUrgency); err != nil || m.Current() != models.PhaseUrgency {
		t.Errorf("Set(URGENCY) = %v, current %v", err, m.Current())
	}
}

func TestMatchOverride(t *testing.T) {
	tests := []struct {
		msg  string
		want models.Override
	}{
		{"ارجع", models.OverrideGoBack},
		{"  ارجع خطوة ", models.OverrideGoBack},
		{"رجعني", models.OverrideGoBack},
		{"عودة", models.OverrideGoBack},
		{"عوده", models.OverrideNone},
		{"ارجع!", models.OverrideNone},
		{"غلط.", models.OverrideNone},
		{"مش فاهم", models.OverrideConfused},
		{"غلط", models.OverrideConfused},
		{"عايز ارجع للأول", models.OverrideNone},
		{"انا مش فاهم حاجة", models.OverrideNone},
		{"", models.OverrideNone},
	}
	for _, tt := range tests {
		if got := MatchOverride(tt.msg); got != tt.want {
			t.Errorf("MatchOverride(%q) = %q, want %q", tt.msg, got, tt.want)
		}
	}
}

func TestEvaluateOverride(t *testing.T) {
	m := NewPhaseMachine(models.PhaseSuggestion)
	d := m.EvaluateOverride(models.OverrideGoBack)
	if !d.Advance || *d.Next != models.PhaseSummary {
		t.Fatalf("go back decision = %+v", d)
	}
	m.Commit(d)
	if m.Current() != models.PhaseSummary {
		t.Errorf("Current = %v, want SUMMARY", m.Current())
	}

	d = m.EvaluateOverride(models.OverrideConfused)
	if d.Advance || d.Next == nil || *d.Next != models.PhaseSummary {
		t.Errorf("confused decision = %+v", d)
	}

	first := NewPhaseMachine(models.PhaseDiscovery)
	if first.Commit(first.EvaluateOverride(models.OverrideGoBack)) {
		t.Error("going back from DISCOVERY changed the phase")
	}
}
