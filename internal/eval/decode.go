package eval

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/aeo-lab/internal/llmjson"
	"github.com/sells-group/aeo-lab/internal/model"
)

// BaselineScore is the normalized result of the score stage. Sub-scores
// are clamped 0-3; Total is derived, never trusted from the model.
type BaselineScore struct {
	Presence            int
	Prominence          int
	Persuasion          int
	Total               int
	Summary             string
	DetectedBrandURLs   []string
	DetectedCompetitors []string
}

// CounterfactualItem is one normalized counterfactual hypothesis.
type CounterfactualItem struct {
	Lever          string
	Description    string
	InclusionAfter bool
	Reason         string
	EffortScore    int
	ImpactScore    int
	Confidence     float64
}

// ActionBundle is the normalized brand recommendation bundle shared by the
// brand-delta and brand-opportunity stages.
type ActionBundle struct {
	MissingSignals  []string
	Levers          []model.ActionLever
	PriorityActions []string
}

// DecodeBaseline validates a baseline scoring response. The summary is
// required semantic content; score fields are coerced, never rejected.
func DecodeBaseline(v any) (BaselineScore, error) {
	obj, err := llmjson.Object(v, "baseline")
	if err != nil {
		return BaselineScore{}, err
	}

	summary, err := llmjson.RequiredString(obj, "summary")
	if err != nil {
		return BaselineScore{}, err
	}

	s := BaselineScore{
		Presence:            llmjson.IntInRange(obj["presence_score"], 0, 3),
		Prominence:          llmjson.IntInRange(obj["prominence_score"], 0, 3),
		Persuasion:          llmjson.IntInRange(obj["persuasion_score"], 0, 3),
		Summary:             summary,
		DetectedBrandURLs:   llmjson.StrSlice(obj["detected_brand_urls"]),
		DetectedCompetitors: llmjson.StrSlice(obj["detected_competitors"]),
	}
	s.Total = s.Presence + s.Prominence + s.Persuasion
	return s, nil
}

// DecodeCounterfactuals validates a counterfactual response. The envelope
// may be a bare array, {items: [...]} or {counterfactuals: [...]}.
func DecodeCounterfactuals(v any) ([]CounterfactualItem, error) {
	raw := llmjson.Items(v, "counterfactuals")
	if len(raw) == 0 {
		return nil, eris.New("eval: counterfactual response has no items")
	}

	out := make([]CounterfactualItem, 0, len(raw))
	for i, el := range raw {
		obj, err := llmjson.Object(el, "counterfactual item")
		if err != nil {
			return nil, eris.Wrapf(err, "eval: item %d", i)
		}

		lever, err := llmjson.RequiredString(obj, "lever")
		if err != nil {
			return nil, eris.Wrapf(err, "eval: item %d", i)
		}
		desc, err := llmjson.RequiredString(obj, "description")
		if err != nil {
			return nil, eris.Wrapf(err, "eval: item %d", i)
		}
		reason, err := llmjson.RequiredString(obj, "reason")
		if err != nil {
			return nil, eris.Wrapf(err, "eval: item %d", i)
		}

		out = append(out, CounterfactualItem{
			Lever:          lever,
			Description:    desc,
			InclusionAfter: llmjson.Bool(obj["inclusion_after"]),
			Reason:         reason,
			EffortScore:    llmjson.IntInRange(obj["effort_score"], 1, 5),
			ImpactScore:    llmjson.IntInRange(obj["impact_score"], 1, 5),
			Confidence:     llmjson.Confidence(obj["confidence"]),
		})
	}
	return out, nil
}

// DecodeActionBundle validates a brand-delta or brand-opportunity response.
// Each lever must carry its recommendation text; everything else is coerced
// or defaulted.
func DecodeActionBundle(v any) (ActionBundle, error) {
	obj, err := llmjson.Object(v, "action bundle")
	if err != nil {
		return ActionBundle{}, err
	}

	bundle := ActionBundle{
		MissingSignals:  llmjson.StrSlice(obj["missing_signals"]),
		Levers:          []model.ActionLever{},
		PriorityActions: llmjson.StrSlice(obj["priority_actions"]),
	}

	rawLevers, _ := obj["levers"].([]any)
	for i, el := range rawLevers {
		lv, err := llmjson.Object(el, "lever")
		if err != nil {
			return ActionBundle{}, eris.Wrapf(err, "eval: lever %d", i)
		}
		name, err := llmjson.RequiredString(lv, "lever")
		if err != nil {
			return ActionBundle{}, eris.Wrapf(err, "eval: lever %d", i)
		}
		rec, err := llmjson.RequiredString(lv, "recommendation")
		if err != nil {
			return ActionBundle{}, eris.Wrapf(err, "eval: lever %d", i)
		}
		bundle.Levers = append(bundle.Levers, model.ActionLever{
			Lever:          name,
			Recommendation: rec,
			EffortScore:    llmjson.IntInRange(lv["effort_score"], 1, 5),
			ImpactScore:    llmjson.IntInRange(lv["impact_score"], 1, 5),
			Confidence:     llmjson.Confidence(lv["confidence"]),
		})
	}
	return bundle, nil
}

// DecodeExpandedQuestions validates a question-expansion response. The
// envelope may be a bare array, {items: [...]} or {questions: [...]}.
func DecodeExpandedQuestions(v any) ([]string, error) {
	raw := llmjson.Items(v, "questions")
	if len(raw) == 0 {
		return nil, eris.New("eval: expansion response has no questions")
	}

	out := make([]string, 0, len(raw))
	for _, el := range raw {
		if s, ok := el.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, eris.New("eval: expansion response has no string questions")
	}
	return out, nil
}
