// Package pipeline implements the staged evaluation flow: capture answers
// from configured engines, score brand presence, generate counterfactuals,
// and derive action recommendations. Stages run sequentially and isolate
// per-entity failures so one bad model response never aborts a run.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/config"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/store"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// Pipeline orchestrates the evaluation stages against a store and a chat
// client.
type Pipeline struct {
	cfg    *config.Config
	store  store.Store
	client openrouter.Client
}

// New creates a Pipeline with all dependencies.
func New(cfg *config.Config, st store.Store, client openrouter.Client) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, client: client}
}

// StageResult summarizes one stage execution.
type StageResult struct {
	Stage     string        `json:"stage"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// baselineStages is the fixed order of the core pipeline.
func (p *Pipeline) baselineStages() []stage {
	return []stage{
		{model.StageCapture, p.CaptureRun},
		{model.StageScore, p.ScoreRun},
		{model.StageCounterfactual, p.CounterfactualRun},
		{model.StageBrandDelta, p.BrandDeltaRun},
	}
}

// extendedStages continue the baseline with follow-up question coverage.
func (p *Pipeline) extendedStages() []stage {
	return []stage{
		{model.StageExpand, p.ExpandRun},
		{model.StageExpandedAnswers, p.ExpandedAnswersRun},
		{model.StageOpportunity, p.OpportunityRun},
	}
}

type stage struct {
	name string
	fn   func(ctx context.Context, runID string) (*StageResult, error)
}

// Run creates a run and executes the core stages in order. A stage error
// stops the sequence; partial results stay persisted.
func (p *Pipeline) Run(ctx context.Context, label string) (*model.Run, []StageResult, error) {
	return p.execute(ctx, label, p.baselineStages())
}

// RunExtended executes the core stages followed by question expansion,
// expanded-answer capture, and brand-opportunity synthesis.
func (p *Pipeline) RunExtended(ctx context.Context, label string) (*model.Run, []StageResult, error) {
	return p.execute(ctx, label, append(p.baselineStages(), p.extendedStages()...))
}

func (p *Pipeline) execute(ctx context.Context, label string, stages []stage) (*model.Run, []StageResult, error) {
	run, err := p.store.CreateRun(ctx, label)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: create run")
	}

	log := zap.L().With(zap.String("run_id", run.ID), zap.String("label", label))
	log.Info("pipeline: run started")

	results := make([]StageResult, 0, len(stages))
	for _, st := range stages {
		start := time.Now()
		res, stageErr := st.fn(ctx, run.ID)
		if res == nil {
			res = &StageResult{Stage: st.name}
		}
		res.Duration = time.Since(start)
		results = append(results, *res)

		if stageErr != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", st.name),
				zap.Duration("duration", res.Duration),
				zap.Error(stageErr),
			)
			return run, results, eris.Wrapf(stageErr, "pipeline: stage %s", st.name)
		}
		log.Info("pipeline: stage complete",
			zap.String("stage", st.name),
			zap.Int("processed", res.Processed),
			zap.Int("failed", res.Failed),
			zap.Int("skipped", res.Skipped),
			zap.Duration("duration", res.Duration),
		)
	}

	log.Info("pipeline: run complete", zap.Int("stages", len(results)))
	return run, results, nil
}

// modelForEngine maps an engine name to its configured model slug. Unknown
// engines fall through to the default answer model.
func (p *Pipeline) modelForEngine(engineName string) string {
	switch strings.ToLower(engineName) {
	case "chatgpt":
		return p.cfg.Models.ChatGPT
	case "perplexity":
		return p.cfg.Models.Perplexity
	default:
		return p.cfg.Models.Default
	}
}

// jsonRetries returns the configured ChatJSON retry override, or nil for the
// client default when the config carries a negative value.
func (p *Pipeline) jsonRetries() *int {
	if p.cfg.Pipeline.JSONRetries < 0 {
		return nil
	}
	return openrouter.Retries(p.cfg.Pipeline.JSONRetries)
}

// maxCounterfactuals returns the persistence cap for counterfactual items.
func (p *Pipeline) maxCounterfactuals() int {
	if p.cfg.Pipeline.MaxCounterfactuals > 0 {
		return p.cfg.Pipeline.MaxCounterfactuals
	}
	return 3
}
