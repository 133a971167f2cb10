package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/BTreeMap/Simsar/internal/genai"
	"github.com/BTreeMap/Simsar/internal/knowledge"
	"github.com/BTreeMap/Simsar/internal/metrics"
	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/nlp"
)

var backReference = regexp.MustCompile(`(هي|ده|دي|العقار ده|العرض ده).*(مش|ما عجبني|ما عجباني|ما عجبها)`)

// AgentOpts holds the optional collaborators of an Agent.
type AgentOpts struct {
	Generator  genai.Generator
	Extractor  nlp.EntityExtractor
	Metrics    metrics.Recorder
	StartPhase models.Phase
	Responders map[models.Phase]Responder
}

// AgentOption configures an Agent.
type AgentOption func(*AgentOpts)

// WithGenerator sets the fallback text generator.
func WithGenerator(g genai.Generator) AgentOption {
	return func(o *AgentOpts) { o.Generator = g }
}

// WithExtractor sets the entity extractor used by reasoning.
func WithExtractor(x nlp.EntityExtractor) AgentOption {
	return func(o *AgentOpts) { o.Extractor = x }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) AgentOption {
	return func(o *AgentOpts) { o.Metrics = r }
}

// WithStartPhase sets the phase a new agent starts in.
func WithStartPhase(p models.Phase) AgentOption {
	return func(o *AgentOpts) { o.StartPhase = p }
}

// WithResponders replaces the phase to reply table.
func WithResponders(r map[models.Phase]Responder) AgentOption {
	return func(o *AgentOpts) { o.Responders = r }
}

// Agent runs one buyer conversation. It is not safe for concurrent use; hosts serialize
// turns per session.
type Agent struct {
	machine    *PhaseMachine
	reasoner   *Reasoner
	scanner    *nlp.SlotScanner
	retriever  *knowledge.Retriever
	env        Env
	metrics    metrics.Recorder
	responders map[models.Phase]Responder

	history       *History
	profile       models.UserProfile
	lastMentioned string
	shown         []string
	last          models.ReasoningResult
}

// NewAgent creates an agent at the start of a conversation.
func NewAgent(retriever *knowledge.Retriever, opts ...AgentOption) *Agent {
	o := AgentOpts{StartPhase: models.PhaseDiscovery}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Generator == nil {
		o.Generator = genai.StaticGenerator{}
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Nop{}
	}
	if o.Responders == nil {
		o.Responders = DefaultResponders()
	}
	return &Agent{
		machine:   NewPhaseMachine(o.StartPhase),
		reasoner:  NewReasoner(o.Extractor),
		scanner:   nlp.NewSlotScanner(),
		retriever: retriever,
		env: Env{
			Advisor:   NewAdvisor(retriever.Base().Rules(), o.Generator),
			Generator: o.Generator,
			Retriever: retriever,
		},
		metrics:    o.Metrics,
		responders: o.Responders,
		history:    NewHistory(),
	}
}

// RestoreAgent rebuilds an agent from a snapshot taken with Snapshot.
func RestoreAgent(snap models.SessionSnapshot, retriever *knowledge.Retriever, opts ...AgentOption) (*Agent, error) {
	if !snap.Phase.Valid() {
		return nil, fmt.Errorf("restore session %s: %w: %d", snap.ID, models.ErrUnknownPhase, int(snap.Phase))
	}
	a := NewAgent(retriever, append(opts[:len(opts):len(opts)], WithStartPhase(snap.Phase))...)
	a.profile = snap.Profile.Clone()
	a.history = NewHistory(snap.History...)
	a.lastMentioned = snap.LastMentionedID
	a.shown = append([]string(nil), snap.ShownIDs...)
	return a, nil
}

// Welcome returns the greeting shown before the first turn. It is not recorded.
func (a *Agent) Welcome() string { return WelcomeMessage }

// Phase returns the current conversation phase.
func (a *Agent) Phase() models.Phase { return a.machine.Current() }

// Profile returns a copy of the accumulated buyer profile.
func (a *Agent) Profile() models.UserProfile { return a.profile.Clone() }

// History returns a copy of the conversation so far.
func (a *Agent) History() []models.Message { return a.history.All() }

// LastReasoning returns the analysis of the most recent turn.
func (a *Agent) LastReasoning() models.ReasoningResult { return a.last }

// Snapshot captures the agent state for persistence. Session metadata is left to the
// caller.
func (a *Agent) Snapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		Phase:           a.machine.Current(),
		Profile:         a.profile.Clone(),
		History:         a.history.All(),
		LastMentionedID: a.lastMentioned,
		ShownIDs:        append([]string(nil), a.shown...),
	}
}

// Process runs one turn and always returns a reply. Failures become a visible error
// reply that is recorded in history.
func (a *Agent) Process(ctx context.Context, message string) string {
	reply, err := a.Respond(ctx, message)
	if err != nil {
		slog.Error("Agent.Process: turn failed", "phase", a.machine.Current(), "error", err)
		reply = ErrorReply(err)
		a.history.AppendAssistant(reply)
	}
	return reply
}

// Converse runs one turn and hands state back untouched.
func Converse[S any](ctx context.Context, a *Agent, message string, state S) (string, S) {
	return a.Process(ctx, message), state
}

// Respond runs one turn. On a generator failure the user message stays in history but
// no reply is recorded.
func (a *Agent) Respond(ctx context.Context, message string) (string, error) {
	start := time.Now()
	a.history.AppendUser(message)

	override := MatchOverride(message)
	var found models.RetrievalResult
	if override == models.OverrideNone {
		if changed := a.profile.Merge(a.scanner.Scan(message)); len(changed) > 0 {
			slog.Debug("Agent.Respond: scanner filled slots", "slots", changed)
		}
		found = a.retriever.Retrieve(message, a.machine.Current(), a.profile)
	} else {
		found = a.retriever.PhaseOnly(a.machine.Current())
	}

	res := a.reasoner.Analyze(a.machine, ReasoningInput{
		Message:    message,
		Profile:    a.profile,
		HistoryLen: a.history.Len(),
		Knowledge:  found,
	})
	a.profile.Merge(res.Extracted)

	if override == models.OverrideNone && backReference.MatchString(message) {
		ref := a.lastMentioned
		if ref == "" {
			ref = models.UnclearReference
		}
		a.profile.Set(models.SlotRefersTo, ref)
		slog.Debug("Agent.Respond: back-reference", "refers_to", ref)
	}

	from := a.machine.Current()
	if override != models.OverrideNone {
		a.metrics.Override(string(override))
	}
	if a.machine.Commit(Decision{From: from, Advance: res.ShouldChangePhase, Next: res.NextPhase, Override: override}) {
		a.metrics.Transition(from.String(), a.machine.Current().String())
	}

	phase := a.machine.Current()
	if override == models.OverrideNone {
		res.Knowledge = a.retriever.Retrieve(message, phase, a.profile)
	} else {
		res.Knowledge = a.retriever.PhaseOnly(phase)
	}
	a.last = res

	respond, ok := a.responders[phase]
	if !ok {
		return "", fmt.Errorf("no responder for phase %s", phase)
	}
	reply, err := respond(ctx, a.env, Turn{
		Phase:     phase,
		Message:   message,
		Profile:   a.profile.Clone(),
		Knowledge: res.Knowledge,
		Referred:  a.referred(),
		Shown:     append([]string(nil), a.shown...),
		Recent:    a.history.RecentPairs(historyPairs),
	})
	if err != nil {
		a.metrics.GeneratorFailure()
		return "", fmt.Errorf("respond in %s: %w", phase, err)
	}

	for _, l := range reply.Shown {
		a.markShown(l.ID)
	}
	if reply.LastMentioned != "" {
		a.lastMentioned = reply.LastMentioned
	}
	a.history.AppendAssistant(reply.Text)
	a.metrics.Turn(phase.String(), time.Since(start))
	slog.Debug("Agent.Respond: turn complete", "from", from, "phase", phase, "shown", len(reply.Shown))
	return reply.Text, nil
}

func (a *Agent) referred() *models.Listing {
	id := a.profile.RefersTo
	if id == "" || id == models.UnclearReference {
		return nil
	}
	l, ok := a.retriever.Base().Listing(id)
	if !ok {
		return nil
	}
	return &l
}

func (a *Agent) markShown(id string) {
	for _, s := range a.shown {
		if s == id {
			return
		}
	}
	a.shown = append(a.shown, id)
}
