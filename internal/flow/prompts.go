package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/Simsar/internal/models"
)

// CharacterPrompt is the persona given to the fallback generator.
const CharacterPrompt = "أنت وكيل عقارات ذكي باللهجة المصرية. " +
	"مهمتك تساعد العميل تلاقي شقة مناسبة حسب المكان، الميزانية، والاحتياجات. " +
	"خليك مختصر، واضح، وبلُغة مقنعة وسهلة."

// Canned texts.
const (
	WelcomeMessage  = "اهلا بيك! انا وكيلك العقاري. تحب أبدأ ازاي؟"
	AdvicePrompt    = "قدم نصيحة ذكية عن شراء عقار"
	SuggestPrompt   = "اقترح عقارات مناسبة حسب مواصفات العميل"
	errorReplyLabel = "❌ خطأ: "
)

// slotLabels are the Arabic names used when asking for or listing discovery slots.
var slotLabels = map[models.Slot]string{
	models.SlotLocation:     "المكان",
	models.SlotBudget:       "الميزانية",
	models.SlotPropertyType: "نوع العقار",
}

var discoverySlots = []models.Slot{models.SlotLocation, models.SlotBudget, models.SlotPropertyType}

// missingDiscoverySlots returns the labels of the discovery slots p still lacks.
func missingDiscoverySlots(p models.UserProfile) []string {
	var missing []string
	for _, s := range discoverySlots {
		if !p.Has(s) {
			missing = append(missing, slotLabels[s])
		}
	}
	return missing
}

// PhasePrompt returns the phase-specific guidance appended to the generator's system
// prompt.
func PhasePrompt(phase models.Phase, p models.UserProfile) string {
	switch phase {
	case models.PhaseDiscovery:
		if missing := missingDiscoverySlots(p); len(missing) > 0 {
			return fmt.Sprintf("محتاج أعرف %s علشان أقدر أساعدك.", strings.Join(missing, "، "))
		}
		return "قولي أي متطلبات تانية مهمة بالنسبالك في العقار."
	case models.PhaseSummary:
		var parts []string
		if p.PropertyType != "" {
			parts = append(parts, p.PropertyType)
		}
		if p.Location != "" {
			parts = append(parts, "في "+p.Location)
		}
		if p.Budget != "" {
			parts = append(parts, "بميزانية حوالي "+p.Budget)
		}
		if len(parts) > 0 {
			return fmt.Sprintf("فهمت إنك بتدور على %s. صح كده؟", strings.Join(parts, " "))
		}
		return "حابب تأكدلي انت بتدور على إيه بالظبط؟"
	case models.PhaseSuggestion:
		return "دي شوية عقارات ممكن تناسب اللي بتدور عليه، شوفهم وقولي رأيك."
	case models.PhasePersuasion:
		return "العقار ده فيه مميزات كتير زي الموقع والمساحة. تحب أقولك أكتر ليه ممكن يكون اختيار ممتاز؟"
	case models.PhaseAlternative:
		return "ممكن تبص على اختيارات تانية مشابهة لو العقار ده مش عاجبك تماماً."
	case models.PhaseUrgency:
		return "العقارات دي بتروح بسرعة، لو مهتم أنصح نحجز معاينة أو تواصل فوري."
	case models.PhaseClosing:
		return "ممتاز! خلينا نبدأ في الإجراءات أو نحجزلك زيارة."
	}
	return "أنا موجود علشان أساعدك، تحب تبدأ بإيه؟"
}

// SystemPrompt combines the persona, the phase guidance and the phase's talking points.
func SystemPrompt(phase models.Phase, p models.UserProfile, k models.PhaseKnowledge) string {
	var sb strings.Builder
	sb.WriteString(CharacterPrompt)
	sb.WriteString("\n")
	sb.WriteString(PhasePrompt(phase, p))
	for _, tp := range k.TalkingPoints {
		sb.WriteString("\n- ")
		sb.WriteString(tp)
	}
	return sb.String()
}

// ErrorReply is the visible reply for a failed turn.
func ErrorReply(err error) string {
	return errorReplyLabel + err.Error()
}
