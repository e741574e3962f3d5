package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/eval"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// ScoreRun evaluates brand presence for every observation in the run. Each
// observation gets at most one score; a failed evaluation logs and moves on.
func (p *Pipeline) ScoreRun(ctx context.Context, runID string) (*StageResult, error) {
	res := &StageResult{Stage: model.StageScore}
	log := zap.L().With(zap.String("run_id", runID), zap.String("stage", model.StageScore))

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

		baseline, chatErr := openrouter.ChatJSON(ctx, p.client, p.cfg.Models.Evaluator,
			eval.BaselinePrompt(q.Text, p.cfg.Brand.Names, obs.AnswerText()),
			eval.DecodeBaseline,
			openrouter.JSONOptions{
				Retries:         p.jsonRetries(),
				ForceJSONObject: true,
			})
		if chatErr != nil {
			res.Failed++
			log.Error("pipeline: score failed",
				zap.String("observation_id", obs.ID),
				zap.Error(chatErr),
			)
			continue
		}

		_, createErr := p.store.CreateScore(ctx, model.Score{
			ObservationID:       obs.ID,
			Presence:            baseline.Presence,
			Prominence:          baseline.Prominence,
			Persuasion:          baseline.Persuasion,
			Total:               baseline.Total,
			Summary:             baseline.Summary,
			DetectedBrandURLs:   baseline.DetectedBrandURLs,
			DetectedCompetitors: baseline.DetectedCompetitors,
		})
		if createErr != nil {
			res.Failed++
			log.Error("pipeline: persist score failed",
				zap.String("observation_id", obs.ID),
				zap.Error(createErr),
			)
			continue
		}
		res.Processed++
	}
	return res, nil
}
