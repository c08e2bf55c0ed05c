package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pharmassist-medsafety/internal/domain"
	"github.com/pharmassist-medsafety/internal/vocabulary"
)

type templateKey string

const (
	tplGreetingNone     templateKey = "greeting.none"
	tplGreetingOne      templateKey = "greeting.one"
	tplGreetingMany     templateKey = "greeting.many"
	tplNextStepsNone    templateKey = "next_steps.none"
	tplNextStepsOne     templateKey = "next_steps.one"
	tplNextStepsMany    templateKey = "next_steps.many"
	tplSafetyNone       templateKey = "safety_message.none"
	tplSafetySome       templateKey = "safety_message.some"
	tplRiskHigh         templateKey = "risk.moderate_high"
	tplRiskLow          templateKey = "risk.low"
	tplRiskLowModerate  templateKey = "risk.low_moderate"
	tplRiskModerate     templateKey = "risk.moderate"
	tplHighlightSafe    templateKey = "highlight.safe"
	tplHighlightFlagged templateKey = "highlight.conflicted"
	tplHighlightChronic templateKey = "highlight.chronic"
	tplHighlightMeds    templateKey = "highlight.medications"
	tplHighlightProfile templateKey = "highlight.personalized"
	tplActionNone       templateKey = "action.none"
	tplActionOne        templateKey = "action.one"
	tplActionMany       templateKey = "action.many"
	tplSummaryEmpty     templateKey = "summary.no_options"
	tplSummaryNoneSafe  templateKey = "summary.none_safe"
	tplSummaryAllSafe   templateKey = "summary.all_safe"
	tplSummaryMixed     templateKey = "summary.mixed"
	tplInsightEmpty     templateKey = "insight.empty"
	tplInsightTop       templateKey = "insight.top_choice"
	tplInsightScreened  templateKey = "insight.conditions"
	tplInsightSafety    templateKey = "insight.average_safety"
	tplInsightFlagged   templateKey = "insight.flagged"
	tplInsightValue     templateKey = "insight.best_value"
	tplConflictNone     templateKey = "conflict.none"
	tplConflictFew      templateKey = "conflict.few"
	tplConflictSeveral  templateKey = "conflict.several"
	tplConflictMany     templateKey = "conflict.many"
	tplWarningFallback  templateKey = "warning.fallback"
	tplAdviceInform     templateKey = "advice.inform"
	tplAdviceList       templateKey = "advice.list"
	tplAdviceAsk        templateKey = "advice.ask"
	tplAdviceVitals     templateKey = "advice.vitals"
	tplAdviceDosage     templateKey = "advice.dosage"
	tplAdviceCardio     templateKey = "advice.cardiologist"

	tplConflictsNoConditionsSummary templateKey = "conflicts.no_conditions.summary"
	tplConflictsNoConditionsMessage templateKey = "conflicts.no_conditions.message"
	tplConflictsNoConditionsAdvice  templateKey = "conflicts.no_conditions.advice"
	tplConflictsNoneFoundSummary    templateKey = "conflicts.none_found.summary"
	tplConflictsNoneFoundMessage    templateKey = "conflicts.none_found.message"
	tplConflictsNoneFoundAdvice     templateKey = "conflicts.none_found.advice"
	tplConflictsFoundSummary        templateKey = "conflicts.found.summary"
	tplAdviceConsult                templateKey = "advice.consult"
)

// templates holds every piece of user-facing copy. Placeholders are
// {name}, {safe}, {conflicted}, {count}, {conditions}, {total}, {product}
// and {score}.
var templates = map[templateKey]string{
	tplGreetingNone: "Hello {name}, I've completed a thorough analysis of your medical profile and available medications. While I found some options that require careful consideration, I want to prioritize your safety above all else.",
	tplGreetingOne:  "Hi {name}! I'm pleased to share that I've found a highly suitable medication option for you. Based on your medical history and current needs, I've identified a safe and effective choice that aligns well with your health profile.",
	tplGreetingMany: "Hello {name}! Great news - I've analyzed your medical profile and found {safe} excellent medication options that are both safe and effective for your specific needs. I've ranked them based on safety, effectiveness, and value to help you make the best choice.",

	tplNextStepsNone: "I recommend consulting with your healthcare provider to discuss specialized treatment options that can be safely monitored for your specific medical conditions.",
	tplNextStepsOne:  "Consider discussing this recommendation with your pharmacist or healthcare provider to ensure it fits perfectly with your current treatment plan, then you can proceed with confidence.",
	tplNextStepsMany: "Review the detailed analysis of each recommendation, discuss your top choices with your healthcare provider, and feel free to ask your pharmacist any questions about usage or interactions.",

	tplSafetyNone: "Hi {name}, I've prioritized your safety in this analysis. While I found some medications that could be helpful, they all require professional medical supervision given your specific health profile.",
	tplSafetySome: "Hello {name}! I'm happy to report that I've found {safe} medication(s) that are safe for your specific medical conditions. Your safety is my top priority, and these options have passed all safety checks.",

	tplRiskHigh:        "Moderate to High Risk - All available options require medical supervision",
	tplRiskLow:         "Low Risk - All recommendations are safe for your medical profile",
	tplRiskLowModerate: "Low to Moderate Risk - Multiple safe options available with some requiring supervision",
	tplRiskModerate:    "Moderate Risk - Equal number of safe and supervised options available",

	tplHighlightSafe:    "{safe} medication(s) cleared all safety checks for your medical profile",
	tplHighlightFlagged: "{conflicted} medication(s) require medical supervision due to potential interactions",
	tplHighlightChronic: "Special attention given to your chronic health conditions",
	tplHighlightMeds:    "Current medications considered in safety analysis",
	tplHighlightProfile: "Personalized analysis based on your unique medical profile",

	tplActionNone: "Schedule a consultation with your healthcare provider to discuss supervised treatment options that can be safely monitored for your specific needs.",
	tplActionOne:  "Proceed with confidence by discussing the recommended option with your pharmacist, then follow the recommended dosage and usage instructions.",
	tplActionMany: "Choose from the safe options based on your preferences and budget, consult with your pharmacist for any questions, and always follow proper usage guidelines.",

	tplSummaryEmpty:    "No medications are currently available to evaluate against your medical profile.",
	tplSummaryNoneSafe: "All {total} evaluated medications require medical supervision for your medical profile.",
	tplSummaryAllSafe:  "All {total} evaluated medications are safe for your medical profile.",
	tplSummaryMixed:    "Found {safe} safe medication(s) and {conflicted} requiring medical supervision out of {total} evaluated.",

	tplInsightEmpty:    "Your medical profile requires careful consideration for medication selection",
	tplInsightTop:      "Top choice: {product} with an overall score of {score}/5",
	tplInsightScreened: "Screened against your conditions: {conditions}",
	tplInsightSafety:   "Average safety score across recommendations: {score}/5",
	tplInsightFlagged:  "{count} recommendation(s) flagged for medical supervision",
	tplInsightValue:    "Best value: {product} with a value score of {score}/5",

	tplConflictNone:    "Good news, {name}! I haven't found any medications that would conflict with your chronic conditions.",
	tplConflictFew:     "{name}, I've identified a few medications ({count}) that could potentially conflict with your {conditions}. Review them carefully with your healthcare provider.",
	tplConflictSeveral: "{name}, I've found several medications ({count}) that may conflict with your {conditions}. This information can help you make safer medication choices.",
	tplConflictMany:    "{name}, I've identified a significant number of medications ({count}) that could conflict with your chronic conditions. This knowledge is important for your medication safety.",

	tplWarningFallback: "Always check with your healthcare provider before taking new medications, especially with your chronic conditions.",

	tplAdviceInform:  "Always inform healthcare providers about all your chronic conditions and medications.",
	tplAdviceList:    "Keep an updated list of your allergies and medical conditions to share with healthcare providers.",
	tplAdviceAsk:     "When prescribed a new medication, ask specifically about interactions with your chronic conditions.",
	tplAdviceVitals:  "Monitor your vital signs regularly when starting new medications that may affect your chronic conditions.",
	tplAdviceDosage:  "Ask your doctor about appropriate dosage adjustments for your condition when taking new medications.",
	tplAdviceCardio:  "Some medications can affect heart rhythm or function. Discuss any new medications with your cardiologist.",
	tplAdviceConsult: "Always consult with your healthcare provider before starting any new medication.",

	tplConflictsNoConditionsSummary: "No chronic conditions detected in your medical profile.",
	tplConflictsNoConditionsMessage: "{name}, I haven't identified any chronic conditions in your profile that would have medication conflicts.",
	tplConflictsNoConditionsAdvice:  "Keep your medical profile updated with any chronic conditions for accurate conflict detection.",
	tplConflictsNoneFoundSummary:    "No medications found that conflict with your chronic conditions.",
	tplConflictsNoneFoundMessage:    "Good news, {name}! I haven't identified any medications that would conflict with your chronic conditions.",
	tplConflictsNoneFoundAdvice:     "Keep your medical profile updated for the most accurate conflict detection.",
	tplConflictsFoundSummary:        "Found {count} medications that may conflict with your chronic health conditions.",
}

// IncompleteCopy is the guidance shown when a profile lacks required fields.
type IncompleteCopy struct {
	Title   string
	Message string
	Action  string
}

var incompleteCopy = map[domain.Operation]IncompleteCopy{
	domain.OpRecommendations: {
		Title:   "Complete Your Medical Profile",
		Message: "To provide you with personalized and safe medication recommendations, we need some information about your medical history.",
		Action:  "Please complete your medical profile by answering the health questionnaire.",
	},
	domain.OpSafetySummary: {
		Title:   "Complete Your Medical Profile First",
		Message: "We cannot provide a safety summary without your medical information. Please complete your profile to receive personalized safety recommendations.",
		Action:  "Complete your medical profile to get safety recommendations.",
	},
	domain.OpConflicts: {
		Title:   "Complete Your Medical Profile First",
		Message: "We need your medical information to identify medications that may conflict with your chronic conditions.",
		Action:  "Complete your medical profile to see potential medication conflicts.",
	},
	domain.OpProfileCompletion: {
		Title:   "Medical Profile Incomplete",
		Message: "Complete your medical profile to receive personalized medication recommendations and safety alerts.",
		Action:  "Please fill out the missing medical information in your profile.",
	},
	domain.OpRefreshRecommended: {
		Title:   "Cannot Generate Recommendations",
		Message: "Your medical profile must be completed before we can generate fresh recommendations for you.",
		Action:  "Please complete your medical profile first, then try refreshing recommendations.",
	},
}

// Copy shown by the completion check for a complete profile.
const (
	ProfileCompleteTitle   = "Profile Complete"
	ProfileCompleteMessage = "Your medical profile is complete and ready for recommendations."
)

// IncompleteCopyFor returns the incomplete-profile copy of op. Operations
// without dedicated copy use the recommendations copy.
func IncompleteCopyFor(op domain.Operation) IncompleteCopy {
	if c, ok := incompleteCopy[op]; ok {
		return c
	}
	return incompleteCopy[domain.OpRecommendations]
}

type vars map[string]string

func render(key templateKey, v vars) string {
	tpl, ok := templates[key]
	if !ok {
		return ""
	}
	if len(v) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(v)*2)
	for k, val := range v {
		pairs = append(pairs, "{"+k+"}", val)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

func score1(v float64) string {
	return fmt.Sprintf("%.1f", v)
}

// Confidence qualifies a ranked list of recommendations.
func Confidence(recs []domain.MedicationRecommendation) domain.ConfidenceLevel {
	if len(recs) == 0 {
		return domain.ConfidenceLow
	}

	var sum, top float64
	conflicted := false
	for _, r := range recs {
		sum += r.FinalScore
		if r.FinalScore > top {
			top = r.FinalScore
		}
		if r.HasConflict {
			conflicted = true
		}
	}
	avg := sum / float64(len(recs))

	switch {
	case avg >= 4.0 && top >= 4.0 && !conflicted:
		return domain.ConfidenceVeryHigh
	case avg >= 3.5 && !conflicted:
		return domain.ConfidenceHigh
	case avg >= 3.0:
		return domain.ConfidenceModerate
	default:
		return domain.ConfidenceLow
	}
}

// Greeting opens the recommendations response.
func Greeting(name string, totalSafe int) string {
	v := vars{"name": name, "safe": itoa(totalSafe)}
	switch {
	case totalSafe <= 0:
		return render(tplGreetingNone, v)
	case totalSafe == 1:
		return render(tplGreetingOne, v)
	default:
		return render(tplGreetingMany, v)
	}
}

// NextSteps advises the user after a recommendations response.
func NextSteps(totalSafe int) string {
	switch {
	case totalSafe <= 0:
		return render(tplNextStepsNone, nil)
	case totalSafe == 1:
		return render(tplNextStepsOne, nil)
	default:
		return render(tplNextStepsMany, nil)
	}
}

// SafetyMessage opens the safety summary response.
func SafetyMessage(name string, totalSafe int) string {
	v := vars{"name": name, "safe": itoa(totalSafe)}
	if totalSafe <= 0 {
		return render(tplSafetyNone, v)
	}
	return render(tplSafetySome, v)
}

// RiskAssessment grades the split between safe and conflicted products.
func RiskAssessment(totalSafe, totalConflicted int) string {
	switch {
	case totalSafe == 0 && totalConflicted > 0:
		return render(tplRiskHigh, nil)
	case totalSafe > 0 && totalConflicted == 0:
		return render(tplRiskLow, nil)
	case totalSafe > totalConflicted:
		return render(tplRiskLowModerate, nil)
	default:
		return render(tplRiskModerate, nil)
	}
}

// SafetyHighlights lists the notable facts of a safety summary.
func SafetyHighlights(profile *domain.MedicalProfile, totalSafe, totalConflicted int) []string {
	v := vars{"safe": itoa(totalSafe), "conflicted": itoa(totalConflicted)}
	var out []string
	if totalSafe > 0 {
		out = append(out, render(tplHighlightSafe, v))
	}
	if totalConflicted > 0 {
		out = append(out, render(tplHighlightFlagged, v))
	}
	if profile != nil && strings.TrimSpace(profile.HasChronicConditions) != "" {
		out = append(out, render(tplHighlightChronic, v))
	}
	if profile != nil && strings.TrimSpace(profile.TakesMedicationsOrTreatments) != "" {
		out = append(out, render(tplHighlightMeds, v))
	}
	return append(out, render(tplHighlightProfile, v))
}

// RecommendedAction is the closing advice of a safety summary.
func RecommendedAction(totalSafe int) string {
	switch {
	case totalSafe <= 0:
		return render(tplActionNone, nil)
	case totalSafe == 1:
		return render(tplActionOne, nil)
	default:
		return render(tplActionMany, nil)
	}
}

// SummaryText describes the outcome of a catalog evaluation.
func SummaryText(totalSafe, totalConflicted int) string {
	total := totalSafe + totalConflicted
	v := vars{"safe": itoa(totalSafe), "conflicted": itoa(totalConflicted), "total": itoa(total)}
	switch {
	case total == 0:
		return render(tplSummaryEmpty, v)
	case totalSafe == 0:
		return render(tplSummaryNoneSafe, v)
	case totalConflicted == 0:
		return render(tplSummaryAllSafe, v)
	default:
		return render(tplSummaryMixed, v)
	}
}

// ConflictMessage opens the conflicting-medications response.
func ConflictMessage(name string, count int, conditions domain.ConditionSet) string {
	phrases := make([]string, 0, conditions.Len())
	for _, tag := range conditions.Tags() {
		phrases = append(phrases, tag.Phrase())
	}
	v := vars{"name": name, "count": itoa(count), "conditions": strings.Join(phrases, ", ")}
	switch {
	case count <= 0:
		return render(tplConflictNone, v)
	case count <= 5:
		return render(tplConflictFew, v)
	case count <= 20:
		return render(tplConflictSeveral, v)
	default:
		return render(tplConflictMany, v)
	}
}

// SafetyAdvice returns the base advice plus items specific to conditions.
func SafetyAdvice(conditions domain.ConditionSet) []string {
	out := []string{
		render(tplAdviceInform, nil),
		render(tplAdviceList, nil),
		render(tplAdviceAsk, nil),
	}
	if conditions.HasAny(domain.Diabetes, domain.Hypertension) {
		out = append(out, render(tplAdviceVitals, nil))
	}
	if conditions.HasAny(domain.KidneyDisease, domain.LiverDisease) {
		out = append(out, render(tplAdviceDosage, nil))
	}
	if conditions.Has(domain.HeartDisease) {
		out = append(out, render(tplAdviceCardio, nil))
	}
	return out
}

// Narrator renders the copy that depends on the condition vocabulary.
type Narrator struct {
	vocab *vocabulary.Table
}

// NewNarrator creates a narrator over vocab.
func NewNarrator(vocab *vocabulary.Table) *Narrator {
	return &Narrator{vocab: vocab}
}

// KeyInsights summarizes a ranked list of recommendations.
func (n *Narrator) KeyInsights(recs []domain.MedicationRecommendation, conditions domain.ConditionSet) []string {
	if len(recs) == 0 {
		return []string{render(tplInsightEmpty, nil)}
	}

	top := recs[0]
	out := []string{render(tplInsightTop, vars{"product": top.ProductName, "score": score1(top.FinalScore)})}

	if !conditions.IsEmpty() {
		out = append(out, render(tplInsightScreened, vars{"conditions": n.displayList(conditions)}))
	}

	var safetySum float64
	flagged := 0
	best := recs[0]
	for _, r := range recs {
		safetySum += r.SafetyScore
		if r.HasConflict {
			flagged++
		}
		if r.ValueScore > best.ValueScore {
			best = r
		}
	}
	out = append(out, render(tplInsightSafety, vars{"score": score1(safetySum / float64(len(recs)))}))

	if flagged > 0 {
		out = append(out, render(tplInsightFlagged, vars{"count": itoa(flagged)}))
	}
	if best.ValueScore >= strongScoreThreshold {
		out = append(out, render(tplInsightValue, vars{"product": best.ProductName, "score": score1(best.ValueScore)}))
	}
	return out
}

// ChronicWarnings returns one warning per condition with dedicated copy, in
// vocabulary order. Identical warnings are reported once. When conditions
// exist but none has dedicated copy, the general warning is returned.
func (n *Narrator) ChronicWarnings(conditions domain.ConditionSet) []string {
	if conditions.IsEmpty() {
		return []string{}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, tag := range conditions.Tags() {
		c, ok := n.vocab.Condition(tag)
		if !ok || strings.TrimSpace(c.Warning) == "" {
			continue
		}
		if _, dup := seen[c.Warning]; dup {
			continue
		}
		seen[c.Warning] = struct{}{}
		out = append(out, c.Warning)
	}
	if len(out) == 0 {
		return []string{render(tplWarningFallback, nil)}
	}
	return out
}

func (n *Narrator) displayList(conditions domain.ConditionSet) string {
	names := make([]string, 0, conditions.Len())
	for _, tag := range conditions.Tags() {
		names = append(names, n.vocab.Display(tag))
	}
	return strings.Join(names, ", ")
}

// ConflictsNarrative is the copy of a conflicting-medications response.
type ConflictsNarrative struct {
	Summary  string
	Message  string
	Warnings []string
	Advice   []string
}

// Conflicts renders the conflicting-medications copy for count conflicts
// against conditions.
func (n *Narrator) Conflicts(name string, conditions domain.ConditionSet, count int) ConflictsNarrative {
	v := vars{"name": name, "count": itoa(count)}
	switch {
	case conditions.IsEmpty():
		return ConflictsNarrative{
			Summary:  render(tplConflictsNoConditionsSummary, v),
			Message:  render(tplConflictsNoConditionsMessage, v),
			Warnings: []string{},
			Advice:   []string{render(tplAdviceConsult, nil), render(tplConflictsNoConditionsAdvice, nil)},
		}
	case count == 0:
		return ConflictsNarrative{
			Summary:  render(tplConflictsNoneFoundSummary, v),
			Message:  render(tplConflictsNoneFoundMessage, v),
			Warnings: []string{},
			Advice:   []string{render(tplAdviceConsult, nil), render(tplConflictsNoneFoundAdvice, nil)},
		}
	default:
		return ConflictsNarrative{
			Summary:  render(tplConflictsFoundSummary, v),
			Message:  ConflictMessage(name, count, conditions),
			Warnings: n.ChronicWarnings(conditions),
			Advice:   SafetyAdvice(conditions),
		}
	}
}
