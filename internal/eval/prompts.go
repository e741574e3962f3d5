// Package eval holds the prompt builders and schema decoders for each
// evaluation stage. Builders are pure functions with no dependency on the
// chat client, so prompt content is testable without network behavior.
package eval

import (
	"fmt"
	"strings"

	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

const answerSystem = `You are answering as a user-facing assistant on %s. Provide a clear, concise, factual answer to the user's query. If information is uncertain, state that briefly. Avoid preambles and disclaimers.`

const baselineSystem = `You are an evaluator that scores brand inclusion in answer-engine outputs.
Return ONLY valid JSON (no markdown, no commentary) with fields: presence_score, prominence_score, persuasion_score, summary, detected_brand_urls, detected_competitors.
Scores are integers 0-3 with well-defined rubric. Be deterministic. No trailing commas.`

const counterfactualSystem = `You are an evaluator that tests only SEO/AEO-movable levers.
Allowed levers: Content coverage, Entity clarity, Evidence/authority, Geo specificity, Comparison/decision support, UX/answerability structure.
Return ONLY valid JSON (no markdown) with { items: Counterfactual[] } of 3 items, each including lever, description, inclusion_after, reason, effort_score (1-5), impact_score (1-5), confidence (0-1). No trailing commas.`

const brandDeltaSystem = `You are an evaluator that identifies missing brand signals in answer-engine outputs and turns counterfactual hypotheses into concrete recommendations.
Return ONLY valid JSON (no markdown) with fields: missing_signals (array of strings), levers (array of {lever, recommendation, effort_score 1-5, impact_score 1-5, confidence 0-1}), priority_actions (array of strings). No trailing commas.`

const expansionSystem = `You are an evaluator that derives the follow-up questions a searcher would naturally ask after reading an answer.
Return ONLY valid JSON (no markdown) with { questions: string[] } of 3 items. Questions must be self-contained and answerable. No trailing commas.`

const opportunitySystem = `You are an evaluator that synthesizes brand opportunity actions from how well follow-up questions are answered.
Return ONLY valid JSON (no markdown) with fields: missing_signals (array of strings), levers (array of {lever, recommendation, effort_score 1-5, impact_score 1-5, confidence 0-1}), priority_actions (array of strings). No trailing commas.`

// AnswerPrompt builds the capture-stage prompt impersonating the target
// engine's assistant surface.
func AnswerPrompt(queryText, engineName string) []openrouter.Message {
	return []openrouter.Message{
		{Role: openrouter.RoleSystem, Content: fmt.Sprintf(answerSystem, engineName)},
		{Role: openrouter.RoleUser, Content: queryText},
	}
}

// BaselinePrompt builds the score-stage prompt.
func BaselinePrompt(queryText string, brandNames []string, answerText string) []openrouter.Message {
	user := fmt.Sprintf("Query: %s\nBrands of interest: %s\nAnswer text:\n%s",
		queryText, strings.Join(brandNames, ", "), answerText)
	return []openrouter.Message{
		{Role: openrouter.RoleSystem, Content: baselineSystem},
		{Role: openrouter.RoleUser, Content: user},
	}
}

// CounterfactualPrompt builds the counterfactual-stage prompt.
func CounterfactualPrompt(queryText, answerText string) []openrouter.Message {
	user := fmt.Sprintf("Query: %s\nAnswer text:\n%s", queryText, answerText)
	return []openrouter.Message{
		{Role: openrouter.RoleSystem, Content: counterfactualSystem},
		{Role: openrouter.RoleUser, Content: user},
	}
}

// BrandDeltaPrompt builds the brand-delta prompt from an observation's
// answer and its persisted counterfactuals.
func BrandDeltaPrompt(queryText string, brandNames []string, answerText string, cfs []model.Counterfactual) []openrouter.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\nBrands of interest: %s\nAnswer text:\n%s\n\nCounterfactual hypotheses:\n",
		queryText, strings.Join(brandNames, ", "), answerText)
	for i, cf := range cfs {
		fmt.Fprintf(&b, "%d. [%s] %s (inclusion_after=%t, effort=%d, impact=%d)\n",
			i+1, cf.Lever, cf.Description, cf.InclusionAfter, cf.EffortScore, cf.ImpactScore)
	}
	return []openrouter.Message{
		{Role: openrouter.RoleSystem, Content: brandDeltaSystem},
		{Role: openrouter.RoleUser, Content: b.String()},
	}
}

// ExpansionPrompt builds the question-expansion prompt.
func ExpansionPrompt(queryText, answerText string) []openrouter.Message {
	user := fmt.Sprintf("Original query: %s\nAnswer text:\n%s", queryText, answerText)
	return []openrouter.Message{
		{Role: openrouter.RoleSystem, Content: expansionSystem},
		{Role: openrouter.RoleUser, Content: user},
	}
}

// ExpandedQA pairs an expanded question with its captured answer for the
// opportunity prompt.
type ExpandedQA struct {
	Question string
	Answer   string
}

// OpportunityPrompt builds the brand-opportunity prompt from an
// observation's expanded Q&A coverage.
func OpportunityPrompt(queryText string, brandNames []string, answerText string, qa []ExpandedQA) []openrouter.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Original query: %s\nBrands of interest: %s\nOriginal answer:\n%s\n\nFollow-up coverage:\n",
		queryText, strings.Join(brandNames, ", "), answerText)
	for i, pair := range qa {
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, pair.Question, i+1, pair.Answer)
	}
	return []openrouter.Message{
		{Role: openrouter.RoleSystem, Content: opportunitySystem},
		{Role: openrouter.RoleUser, Content: b.String()},
	}
}
