package flow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/Simsar/internal/genai"
	"github.com/BTreeMap/Simsar/internal/knowledge"
	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/testutil"
)

// recorder is an in-memory metrics.Recorder.
type recorder struct {
	turns       []string
	transitions []string
	overrides   []string
	failures    int
}

func (r *recorder) Turn(phase string, d time.Duration) { r.turns = append(r.turns, phase) }
func (r *recorder) Transition(from, to string) { r.transitions = append(r.transitions, from+">"+to) }
func (r *recorder) Override(kind string) { r.overrides = append(r.overrides, kind) }
func (r *recorder) GeneratorFailure() { r.failures++ }

func newTestRetriever(t *testing.T) *knowledge.Retriever {
	t.Helper()
	return testutil.NewRetriever(t)
}

func TestAgentDiscoveryScenario(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	a := NewAgent(newTestRetriever(t), WithMetrics(rec))

	if a.Welcome() != WelcomeMessage || len(a.History()) != 0 {
		t.Fatal("welcome message must not be recorded")
	}

	reply, err := a.Respond(ctx, "عايز شقة في المعادي بميزانية 1 مليون")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if a.Phase() != models.PhaseDiscovery {
		t.Fatalf("phase after first message = %v, want DISCOVERY", a.Phase())
	}
	if reply != "تمام! كده أنا عرفت اللي محتاجه، نراجع المعلومات؟" {
		t.Errorf("discovery reply = %q", reply)
	}
	p := a.Profile()
	if p.Location != "المعادي" || p.Budget != "1 مليون جنيه" || p.PropertyType != "شقة" {
		t.Errorf("profile = %+v", p)
	}

	reply, err = a.Respond(ctx, "تمام")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if a.Phase() != models.PhaseSummary {
		t.Fatalf("phase = %v, want SUMMARY", a.Phase())
	}
	for _, want := range []string{"📍 الموقع: المعادي", "💰 الميزانية: 1 مليون جنيه", "🏠 النوع: شقة", "الكمبوندات", "هل الكلام ده مظبوط؟"} {
		if !strings.Contains(reply, want) {
			t.Errorf("summary reply missing %q:\n%s", want, reply)
		}
	}

	reply, err = a.Respond(ctx, "مظبوط")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if a.Phase() != models.PhaseSuggestion {
		t.Fatalf("phase = %v, want SUGGESTION", a.Phase())
	}
	if !strings.Contains(reply, "- شقة في المعادي بـ 450000 جنيه") || !strings.Contains(reply, "- شقة في المعادي بـ 980000 جنيه") {
		t.Errorf("suggestion reply = %q", reply)
	}
	if snap := a.Snapshot(); snap.LastMentionedID != "1" || !reflect.DeepEqual(snap.ShownIDs, []string{"1", "7"}) {
		t.Errorf("last mentioned = %q shown = %v", snap.LastMentionedID, snap.ShownIDs)
	}

	reply, err = a.Respond(ctx, "مهتم بس ده مش عاجبني")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if a.Phase() != models.PhasePersuasion {
		t.Fatalf("phase = %v, want PERSUASION", a.Phase())
	}
	if want := "ليه مش عاجبك؟ ده فيه شرفة، مطبخ، مصعد وموقعه في المعادي."; reply != want {
		t.Errorf("persuasion reply = %q, want %q", reply, want)
	}

	if len(a.History()) != 8 {
		t.Errorf("history length = %d, want 8", len(a.History()))
	}
	wantTransitions := []string{"DISCOVERY>SUMMARY", "SUMMARY>SUGGESTION", "SUGGESTION>PERSUASION"}
	if !reflect.DeepEqual(rec.transitions, wantTransitions) {
		t.Errorf("transitions = %v, want %v", rec.transitions, wantTransitions)
	}
	if len(rec.turns) != 4 {
		t.Errorf("turns recorded = %d, want 4", len(rec.turns))
	}
}

func TestAgentAdvancesOnFirstMessageWithPriorHistory(t *testing.T) {
	snap := models.SessionSnapshot{
		Phase: models.PhaseDiscovery,
		History: []models.Message{
			{Role: models.RoleUser, Content: "السلام عليكم"},
			{Role: models.RoleAssistant, Content: "أهلاً بيك"},
		},
	}
	a, err := RestoreAgent(snap, newTestRetriever(t))
	if err != nil {
		t.Fatalf("RestoreAgent: %v", err)
	}
	if _, err := a.Respond(context.Background(), "عايز شقة في المعادي بميزانية 1 مليون"); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if a.Phase() != models.PhaseSummary {
		t.Errorf("phase = %v, want SUMMARY", a.Phase())
	}
}

func TestAgentBackReferenceAfterSuggestion(t *testing.T) {
	ctx := context.Background()
	a := NewAgent(newTestRetriever(t))
	for _, msg := range []string{"عايز شقة في المعادي بميزانية 1 مليون", "تمام", "مظبوط"} {
		a.Process(ctx, msg)
	}
	if a.Phase() != models.PhaseSuggestion {
		t.Fatalf("phase = %v, want SUGGESTION", a.Phase())
	}

	a.Process(ctx, "ده مش عاجبني")
	if got := a.Profile().RefersTo; got != "1" {
		t.Errorf("refers_to = %q, want 1", got)
	}
	if a.Phase() != models.PhaseSuggestion {
		t.Errorf("phase = %v, want SUGGESTION", a.Phase())
	}
}

func TestAgentUnclearBackReference(t *testing.T) {
	a := NewAgent(newTestRetriever(t))
	a.Process(context.Background(), "دي مش حلوة")
	if got := a.Profile().RefersTo; got != models.UnclearReference {
		t.Errorf("refers_to = %q, want %q", got, models.UnclearReference)
	}
}

func TestAgentOverrides(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	a := NewAgent(newTestRetriever(t), WithStartPhase(models.PhaseSummary), WithMetrics(rec))

	reply, err := a.Respond(ctx, "ارجع")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if a.Phase() != models.PhaseDiscovery {
		t.Errorf("phase = %v, want DISCOVERY", a.Phase())
	}
	if !strings.HasPrefix(reply, "ممكن تقولي المكان, الميزانية, نوع العقار؟") {
		t.Errorf("reply = %q", reply)
	}
	if last := a.LastReasoning(); last.Override != models.OverrideGoBack || last.Intent != models.IntentFallback {
		t.Errorf("last reasoning = %+v", last)
	}
	if !reflect.DeepEqual(rec.overrides, []string{"go_back"}) || !reflect.DeepEqual(rec.transitions, []string{"SUMMARY>DISCOVERY"}) {
		t.Errorf("overrides = %v transitions = %v", rec.overrides, rec.transitions)
	}

	b := NewAgent(newTestRetriever(t), WithStartPhase(models.PhaseSuggestion))
	reply, err = b.Respond(ctx, "مش فاهم")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if b.Phase() != models.PhaseSuggestion {
		t.Errorf("phase = %v, want SUGGESTION", b.Phase())
	}
	if reply != genai.DefaultStaticReply {
		t.Errorf("reply = %q", reply)
	}
	if len(b.LastReasoning().Knowledge.Properties) != 0 {
		t.Error("override turn retrieved listings")
	}
}

func TestAgentClosingIsTerminal(t *testing.T) {
	ctx := context.Background()
	a := NewAgent(newTestRetriever(t), WithStartPhase(models.PhaseClosing))

	if reply := a.Process(ctx, "ماشي"); reply != "تمام، ابعتلي اسمك ورقم تليفونك وهنكلمك في أقرب وقت." {
		t.Errorf("reply = %q", reply)
	}
	reply := a.Process(ctx, "اسمي محمد ورقمي 01012345678")
	if reply != "شكراً يا محمد! هنكلمك على 01012345678 في أقرب وقت." {
		t.Errorf("reply = %q", reply)
	}
	if a.Phase() != models.PhaseClosing {
		t.Errorf("phase = %v, want CLOSING", a.Phase())
	}
	a.Process(ctx, "شكرا")
	if a.Phase() != models.PhaseClosing {
		t.Errorf("phase after closing = %v", a.Phase())
	}
}

func TestAgentGeneratorFailure(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	gen := &genai.MockGenerator{Err: boom}
	rec := &recorder{}
	a := NewAgent(newTestRetriever(t), WithStartPhase(models.PhasePersuasion), WithGenerator(gen), WithMetrics(rec))

	_, err := a.Respond(ctx, "ليه كده")
	if !errors.Is(err, boom) {
		t.Fatalf("Respond error = %v, want boom", err)
	}
	if n := len(a.History()); n != 1 {
		t.Errorf("history length after failed Respond = %d, want 1", n)
	}
	if len(gen.Prompts) != 1 || gen.Prompts[0].User != "ليه كده" || !strings.HasPrefix(gen.Prompts[0].System, CharacterPrompt) {
		t.Errorf("prompts = %+v", gen.Prompts)
	}

	reply := a.Process(ctx, "ليه كده")
	if !strings.HasPrefix(reply, "❌ خطأ: ") || !strings.HasSuffix(reply, "boom") {
		t.Errorf("Process reply = %q", reply)
	}
	h := a.History()
	if len(h) != 3 || h[2].Content != reply || h[2].Role != models.RoleAssistant {
		t.Errorf("history = %+v", h)
	}
	if rec.failures != 2 {
		t.Errorf("generator failures = %d, want 2", rec.failures)
	}
}

func TestConversePassesStateThrough(t *testing.T) {
	type state struct {
		Channel string
		Turn    int
	}
	a := NewAgent(newTestRetriever(t))
	in := state{Channel: "sms", Turn: 7}
	reply, out := Converse(context.Background(), a, "مرحبا", in)
	if reply == "" {
		t.Error("empty reply")
	}
	if out != in {
		t.Errorf("state = %+v, want %+v", out, in)
	}
}

func TestSnapshotRestore(t *testing.T) {
	ctx := context.Background()
	r := newTestRetriever(t)
	a := NewAgent(r)
	for _, msg := range []string{"عايز شقة في المعادي بميزانية 1 مليون", "تمام", "مظبوط"} {
		a.Process(ctx, msg)
	}
	snap := a.Snapshot()

	b, err := RestoreAgent(snap, r)
	if err != nil {
		t.Fatalf("RestoreAgent: %v", err)
	}
	if b.Phase() != a.Phase() {
		t.Errorf("phase = %v, want %v", b.Phase(), a.Phase())
	}
	if !reflect.DeepEqual(b.Profile(), a.Profile()) {
		t.Errorf("profile = %+v, want %+v", b.Profile(), a.Profile())
	}
	if !reflect.DeepEqual(b.Snapshot(), snap) {
		t.Error("snapshot of restored agent differs")
	}

	b.Process(ctx, "ده مش عاجبني")
	if b.Profile().RefersTo != "1" {
		t.Errorf("restored agent lost last mentioned listing")
	}

	if _, err := RestoreAgent(models.SessionSnapshot{ID: "x"}, r); !errors.Is(err, models.ErrUnknownPhase) {
		t.Errorf("RestoreAgent(zero phase) error = %v", err)
	}
}

func TestHistoryRecentPairs(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 3; i++ {
		h.AppendUser("u")
		h.AppendAssistant("a")
	}
	h.AppendUser("pending")

	if got := len(h.RecentPairs(2)); got != 4 {
		t.Errorf("RecentPairs(2) = %d messages, want 4", got)
	}
	if got := len(h.RecentPairs(10)); got != 6 {
		t.Errorf("RecentPairs(10) = %d messages, want 6", got)
	}
	if h.RecentPairs(0) != nil {
		t.Error("RecentPairs(0) should be nil")
	}
	all := h.All()
	all[0].Content = "changed"
	if h.All()[0].Content != "u" {
		t.Error("All returned shared storage")
	}
}
