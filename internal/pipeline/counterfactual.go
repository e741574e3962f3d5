package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/eval"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// CounterfactualRun generates inclusion-flip hypotheses for every
// observation in the run. The model may return more items than the cap;
// only the first maxCounterfactuals are persisted, in model order.
func (p *Pipeline) CounterfactualRun(ctx context.Context, runID string) (*StageResult, error) {
	res := &StageResult{Stage: model.StageCounterfactual}
	log := zap.L().With(zap.String("run_id", runID), zap.String("stage", model.StageCounterfactual))

	observations, err := p.store.ListObservations(ctx, runID)
	if err != nil {
		return res, eris.Wrap(err, "pipeline: list observations")
	}

	for _, obs := range observations {
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

		// The expected payload may be a bare array, so strict JSON-object
		// mode stays off for this stage.
		items, chatErr := openrouter.ChatJSON(ctx, p.client, p.cfg.Models.Evaluator,
			eval.CounterfactualPrompt(q.Text, obs.AnswerText()),
			eval.DecodeCounterfactuals,
			openrouter.JSONOptions{
				Retries: p.jsonRetries(),
			})
		if chatErr != nil {
			res.Failed++
			log.Error("pipeline: counterfactual failed",
				zap.String("observation_id", obs.ID),
				zap.Error(chatErr),
			)
			continue
		}

		if limit := p.maxCounterfactuals(); len(items) > limit {
			items = items[:limit]
		}

		persisted := 0
		for _, item := range items {
			_, createErr := p.store.CreateCounterfactual(ctx, model.Counterfactual{
				ObservationID:  obs.ID,
				Lever:          item.Lever,
				Description:    item.Description,
				InclusionAfter: item.InclusionAfter,
				Reason:         item.Reason,
				EffortScore:    item.EffortScore,
				ImpactScore:    item.ImpactScore,
				Confidence:     item.Confidence,
			})
			if createErr != nil {
				log.Error("pipeline: persist counterfactual failed",
					zap.String("observation_id", obs.ID),
					zap.Error(createErr),
				)
				continue
			}
			persisted++
		}
		if persisted == 0 {
			res.Failed++
			continue
		}
		res.Processed++
	}
	return res, nil
}
