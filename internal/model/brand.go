package model

import "time"

// ActionLever is one actionable recommendation inside a brand bundle.
type ActionLever struct {
	Lever          string  `json:"lever"`
	Recommendation string  `json:"recommendation"`
	EffortScore    int     `json:"effort_score"`
	ImpactScore    int     `json:"impact_score"`
	Confidence     float64 `json:"confidence"`
}

// BrandDelta is the brand-gap recommendation bundle derived from an
// observation and its counterfactuals. At most one per observation per
// brand-delta stage invocation.
type BrandDelta struct {
	ID              string        `json:"id"`
	ObservationID   string        `json:"observation_id"`
	MissingSignals  []string      `json:"missing_signals"`
	Levers          []ActionLever `json:"levers"`
	PriorityActions []string      `json:"priority_actions"`
	CreatedAt       time.Time     `json:"created_at"`
}

// BrandOpportunity is the recommendation bundle synthesized from an
// observation's expanded Q&A in the extended pipeline. Same shape as
// BrandDelta but derived from follow-up coverage rather than
// counterfactuals.
type BrandOpportunity struct {
	ID              string        `json:"id"`
	ObservationID   string        `json:"observation_id"`
	MissingSignals  []string      `json:"missing_signals"`
	Levers          []ActionLever `json:"levers"`
	PriorityActions []string      `json:"priority_actions"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ExpandedQuestion is a follow-up question derived from an observation's
// answer during the question-expansion stage.
type ExpandedQuestion struct {
	ID            string    `json:"id"`
	ObservationID string    `json:"observation_id"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"`
}

// ExpandedAnswer is an answer captured for one expanded question against
// one engine. It parallels Observation but is scoped to a follow-up
// question rather than a top-level query.
type ExpandedAnswer struct {
	ID           string    `json:"id"`
	QuestionID   string    `json:"question_id"`
	EngineID     string    `json:"engine_id"`
	RawAnswer    RawAnswer `json:"raw_answer"`
	ParsedAnswer string    `json:"parsed_answer,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AnswerText returns the parsed answer when present, otherwise the raw
// content.
func (a ExpandedAnswer) AnswerText() string {
	if a.ParsedAnswer != "" {
		return a.ParsedAnswer
	}
	return a.RawAnswer.Content
}
