package model

import "time"

// RawAnswer is the opaque payload captured from an answer engine. The
// pipeline stores it verbatim; only ParsedAnswer is interpreted downstream.
type RawAnswer struct {
	Engine  string `json:"engine"`
	Model   string `json:"model"`
	Content string `json:"content"`
}

// Observation is one captured answer for a (run, query, engine) triple.
// Created exactly once per triple during capture and never mutated; every
// later stage re-reads observations as its anchor entity.
type Observation struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	QueryID      string    `json:"query_id"`
	EngineID     string    `json:"engine_id"`
	RawAnswer    RawAnswer `json:"raw_answer"`
	ParsedAnswer string    `json:"parsed_answer,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AnswerText returns the text later stages should evaluate: the parsed
// answer when present, otherwise the raw content.
func (o Observation) AnswerText() string {
	if o.ParsedAnswer != "" {
		return o.ParsedAnswer
	}
	return o.RawAnswer.Content
}

// Score is the baseline brand-presence evaluation of one observation.
// Sub-scores are 0-3 integers; Total is their sum. At most one score per
// observation is created by a single score-stage invocation.
type Score struct {
	ID                  string    `json:"id"`
	ObservationID       string    `json:"observation_id"`
	Presence            int       `json:"presence_score"`
	Prominence          int       `json:"prominence_score"`
	Persuasion          int       `json:"persuasion_score"`
	Total               int       `json:"total_score"`
	Summary             string    `json:"summary"`
	DetectedBrandURLs   []string  `json:"detected_brand_urls"`
	DetectedCompetitors []string  `json:"detected_competitors"`
	CreatedAt           time.Time `json:"created_at"`
}

// Counterfactual is one "what change would flip inclusion" hypothesis for an
// observation. The counterfactual stage persists at most three per
// observation, in the order the model returned them.
type Counterfactual struct {
	ID             string    `json:"id"`
	ObservationID  string    `json:"observation_id"`
	Lever          string    `json:"lever"`
	Description    string    `json:"description"`
	InclusionAfter bool      `json:"inclusion_after"`
	Reason         string    `json:"reason"`
	EffortScore    int       `json:"effort_score"`
	ImpactScore    int       `json:"impact_score"`
	Confidence     float64   `json:"confidence"`
	CreatedAt      time.Time `json:"created_at"`
}
