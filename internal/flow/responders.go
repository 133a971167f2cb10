package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/BTreeMap/Simsar/internal/genai"
	"github.com/BTreeMap/Simsar/internal/knowledge"
	"github.com/BTreeMap/Simsar/internal/models"
)

// historyPairs is how many exchanges the generator sees as context.
const historyPairs = 3

// Turn is the read-only view of one turn handed to a responder.
type Turn struct {
	Phase     models.Phase
	Message   string
	Profile   models.UserProfile
	Knowledge models.RetrievalResult
	Referred  *models.Listing // listing the buyer referred back to, if resolved
	Shown     []string
	Recent    []models.Message
}

// Env carries the collaborators a responder may call.
type Env struct {
	Advisor   *Advisor
	Generator genai.Generator
	Retriever *knowledge.Retriever
}

// Reply is a rendered assistant message plus the listings it presented.
type Reply struct {
	Text          string
	Shown         []models.Listing
	LastMentioned string
}

// Responder renders the reply for one phase.
type Responder func(ctx context.Context, env Env, t Turn) (Reply, error)

// DefaultResponders maps every phase to its reply renderer.
func DefaultResponders() map[models.Phase]Responder {
	return map[models.Phase]Responder{
		models.PhaseDiscovery:   respondDiscovery,
		models.PhaseSummary:     respondSummary,
		models.PhaseSuggestion:  respondSuggestion,
		models.PhasePersuasion:  respondPersuasion,
		models.PhaseAlternative: respondAlternative,
		models.PhaseUrgency:     respondUrgency,
		models.PhaseClosing:     respondClosing,
	}
}

func respondDiscovery(ctx context.Context, env Env, t Turn) (Reply, error) {
	missing := missingDiscoverySlots(t.Profile)
	if len(missing) == 0 {
		return Reply{Text: "تمام! كده أنا عرفت اللي محتاجه، نراجع المعلومات؟"}, nil
	}
	text := fmt.Sprintf("ممكن تقولي %s؟ علشان أقدر أساعدك أكتر.", strings.Join(missing, ", "))
	if qs := t.Knowledge.PhaseKnowledge.SuggestedQuestions; len(qs) > 0 {
		text += "\nمثلاً: " + qs[0]
	}
	return Reply{Text: text}, nil
}

func respondSummary(ctx context.Context, env Env, t Turn) (Reply, error) {
	var sb strings.Builder
	sb.WriteString("دي المعلومات اللي جمعتها:\n")
	fmt.Fprintf(&sb, "📍 الموقع: %s\n", orUnknown(t.Profile.Location))
	fmt.Fprintf(&sb, "💰 الميزانية: %s\n", orUnknown(t.Profile.Budget))
	fmt.Fprintf(&sb, "🏠 النوع: %s\n", orUnknown(t.Profile.PropertyType))

	advice, err := env.Advisor.Advise(ctx, t.Profile, nil)
	if err != nil {
		return Reply{}, err
	}
	if len(advice) > 0 {
		sb.WriteString("\n ملاحظات:\n")
		for _, a := range advice {
			sb.WriteString("- " + a + "\n")
		}
	}
	sb.WriteString("هل الكلام ده مظبوط؟")
	return Reply{Text: sb.String()}, nil
}

func respondSuggestion(ctx context.Context, env Env, t Turn) (Reply, error) {
	listings := t.Knowledge.Properties
	if len(listings) == 0 {
		text, err := generate(ctx, env, t, SuggestPrompt)
		return Reply{Text: text}, err
	}

	var sb strings.Builder
	sb.WriteString("🏡 العقارات دي ممكن تعجبك:")
	for _, l := range listings {
		sb.WriteString("\n- " + l.Summary())
	}
	advice, err := env.Advisor.Advise(ctx, t.Profile, &listings[0])
	if err != nil {
		return Reply{}, err
	}
	for _, a := range advice {
		sb.WriteString("\n💡 " + a)
	}
	sb.WriteString("\nهل في واحد منهم شد انتباهك؟")
	return Reply{Text: sb.String(), Shown: listings, LastMentioned: listings[0].ID}, nil
}

func respondPersuasion(ctx context.Context, env Env, t Turn) (Reply, error) {
	if t.Referred == nil {
		text, err := generate(ctx, env, t, t.Message)
		return Reply{Text: text}, err
	}
	features := "مميزات"
	if fs := t.Referred.Features(); len(fs) > 0 {
		features = strings.Join(fs, "، ")
	}
	location := t.Referred.Location()
	if location == "" {
		location = "مكان ممتاز"
	}
	return Reply{
		Text:          fmt.Sprintf("ليه مش عاجبك؟ ده فيه %s وموقعه في %s.", features, location),
		LastMentioned: t.Referred.ID,
	}, nil
}

func respondAlternative(ctx context.Context, env Env, t Turn) (Reply, error) {
	reply := Reply{Text: "ممكن نعرض عليك اختيارات تانية قريبة من اللي بتحبّه."}
	if env.Retriever == nil {
		return reply, nil
	}
	alts := env.Retriever.Alternatives(t.Profile, t.Shown, knowledge.MaxProperties)
	for _, l := range alts {
		reply.Text += "\n- " + l.Summary()
	}
	if len(alts) > 0 {
		reply.Shown = alts
		reply.LastMentioned = alts[0].ID
	}
	return reply, nil
}

func respondUrgency(ctx context.Context, env Env, t Turn) (Reply, error) {
	return Reply{Text: "الفرص دي مش بتستنى! تحب نكمل إجراءات المعاينة؟"}, nil
}

func respondClosing(ctx context.Context, env Env, t Turn) (Reply, error) {
	if t.Profile.ContactName != "" && t.Profile.PhoneNumber != "" {
		return Reply{Text: fmt.Sprintf("شكراً يا %s! هنكلمك على %s في أقرب وقت.", t.Profile.ContactName, t.Profile.PhoneNumber)}, nil
	}
	return Reply{Text: "تمام، ابعتلي اسمك ورقم تليفونك وهنكلمك في أقرب وقت."}, nil
}

// generate asks the fallback generator for a reply in the voice of the current phase.
func generate(ctx context.Context, env Env, t Turn, user string) (string, error) {
	if env.Generator == nil {
		return genai.DefaultStaticReply, nil
	}
	text, err := env.Generator.Generate(ctx, genai.Prompt{
		System:  SystemPrompt(t.Phase, t.Profile, t.Knowledge.PhaseKnowledge),
		History: t.Recent,
		User:    user,
	})
	if err != nil {
		return "", fmt.Errorf("generate %s reply: %w", t.Phase, err)
	}
	return strings.TrimSpace(text), nil
}

func orUnknown(v string) string {
	if v == "" {
		return "غير محدد"
	}
	return v
}
