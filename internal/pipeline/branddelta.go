package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/eval"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// BrandDeltaRun turns each observation's counterfactual hypotheses into a
// concrete recommendation bundle. Observations without persisted
// counterfactuals are skipped, not failed; the prerequisite stage simply has
// not produced input for them.
func (p *Pipeline) BrandDeltaRun(ctx context.Context, runID string) (*StageResult, error) {
	res := &StageResult{Stage: model.StageBrandDelta}
	log := zap.L().With(zap.String("run_id", runID), zap.String("stage", model.StageBrandDelta))

	observations, err := p.store.ListObservations(ctx, runID)
	if err != nil {
		return res, eris.Wrap(err, "pipeline: list observations")
	}

	for _, obs := range observations {
		cfs, cfErr := p.store.ListCounterfactuals(ctx, obs.ID)
		if cfErr != nil {
			res.Failed++
			log.Error("pipeline: load counterfactuals failed",
				zap.String("observation_id", obs.ID),
				zap.Error(cfErr),
			)
			continue
		}
		if len(cfs) == 0 {
			res.Skipped++
			log.Debug("pipeline: no counterfactuals, skipping",
				zap.String("observation_id", obs.ID),
			)
			continue
		}

		q, qErr := p.store.GetQuery(ctx, obs.QueryID)
		if qErr != nil {
			res.Failed++
			log.Error("pipeline: load query failed",
				zap.String("observation_id", obs.ID),
				zap.String("query_id", obs.QueryID),
				zap.Error(qErr),
			)
			continue
		}

		bundle, chatErr := openrouter.ChatJSON(ctx, p.client, p.cfg.Models.Evaluator,
			eval.BrandDeltaPrompt(q.Text, p.cfg.Brand.Names, obs.AnswerText(), cfs),
			eval.DecodeActionBundle,
			openrouter.JSONOptions{
				Retries:         p.jsonRetries(),
				ForceJSONObject: true,
			})
		if chatErr != nil {
			res.Failed++
			log.Error("pipeline: brand delta failed",
				zap.String("observation_id", obs.ID),
				zap.Error(chatErr),
			)
			continue
		}

		_, createErr := p.store.CreateBrandDelta(ctx, model.BrandDelta{
			ObservationID:   obs.ID,
			MissingSignals:  bundle.MissingSignals,
			Levers:          bundle.Levers,
			PriorityActions: bundle.PriorityActions,
		})
		if createErr != nil {
			res.Failed++
			log.Error("pipeline: persist brand delta failed",
				zap.String("observation_id", obs.ID),
				zap.Error(createErr),
			)
			continue
		}
		res.Processed++
	}
	return res, nil
}
