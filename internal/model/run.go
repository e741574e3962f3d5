package model

import "time"

// Run represents a single evaluation pass over all active queries and
// configured engines. Runs are immutable after creation; progress is
// inferred from which child records exist for the run ID.
type Run struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	StartedAt time.Time `json:"started_at"`
}

// Stage names, in execution order. The core pipeline runs
// capture -> score -> counterfactual -> brand-delta; the extended pipeline
// continues with expand -> expanded-answers -> opportunity.
const (
	StageCapture         = "capture"
	StageScore           = "score"
	StageCounterfactual  = "counterfactual"
	StageBrandDelta      = "brand-delta"
	StageExpand          = "expand"
	StageExpandedAnswers = "expanded-answers"
	StageOpportunity     = "opportunity"
)
