package model

import "time"

// FunnelStage classifies where a query sits in the buyer journey.
type FunnelStage string

const (
	FunnelAwareness     FunnelStage = "awareness"
	FunnelConsideration FunnelStage = "consideration"
	FunnelDecision      FunnelStage = "decision"
)

// Query is a natural-language probe sent to every configured engine during
// capture. Queries are created and edited outside the pipeline; executors
// treat them as read-only.
type Query struct {
	ID          string      `json:"id"`
	Text        string      `json:"text"`
	Slug        string      `json:"slug"`
	FunnelStage FunnelStage `json:"funnel_stage"`
	Priority    int         `json:"priority"`
	TargetURL   string      `json:"target_url,omitempty"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Engine is a target answer-engine configuration. The (name, surface,
// region, device) tuple is the stable dimension the capture stage iterates
// over alongside queries.
type Engine struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Surface string `json:"surface"`
	Region  string `json:"region"`
	Device  string `json:"device"`
}
