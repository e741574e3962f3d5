package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/eval"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// Capture request tuning. Answer capture wants short, factual output, so
// temperature and token limits sit well below the client defaults.
const (
	captureTemperature = 0.2
	captureMaxTokens   = 600
)

// CaptureRun records one observation per (active query, engine) pair for the
// given run. A failed chat call logs the pair and moves on; the observation
// for that pair is simply absent.
func (p *Pipeline) CaptureRun(ctx context.Context, runID string) (*StageResult, error) {
	res := &StageResult{Stage: model.StageCapture}
	log := zap.L().With(zap.String("run_id", runID), zap.String("stage", model.StageCapture))

	queries, err := p.store.ListActiveQueries(ctx)
	if err != nil {
		return res, eris.Wrap(err, "pipeline: list active queries")
	}
	engines, err := p.store.ListEngines(ctx)
	if err != nil {
		return res, eris.Wrap(err, "pipeline: list engines")
	}
	if len(queries) == 0 || len(engines) == 0 {
		log.Warn("pipeline: nothing to capture",
			zap.Int("queries", len(queries)),
			zap.Int("engines", len(engines)),
		)
		return res, nil
	}

	for _, q := range queries {
		for _, e := range engines {
			modelSlug := p.modelForEngine(e.Name)
			content, chatErr := openrouter.ChatText(ctx, p.client, modelSlug,
				eval.AnswerPrompt(q.Text, e.Name),
				openrouter.TextOptions{
					Temperature: openrouter.Float(captureTemperature),
					MaxTokens:   openrouter.Int(captureMaxTokens),
				})
			if chatErr != nil {
				res.Failed++
				log.Error("pipeline: capture failed",
					zap.String("query_id", q.ID),
					zap.String("engine", e.Name),
					zap.Error(chatErr),
				)
				continue
			}

			_, createErr := p.store.CreateObservation(ctx, model.Observation{
				RunID:    runID,
				QueryID:  q.ID,
				EngineID: e.ID,
				RawAnswer: model.RawAnswer{
					Engine:  e.Name,
					Model:   modelSlug,
					Content: content,
				},
				ParsedAnswer: content,
			})
			if createErr != nil {
				res.Failed++
				log.Error("pipeline: persist observation failed",
					zap.String("query_id", q.ID),
					zap.String("engine", e.Name),
					zap.Error(createErr),
				)
				continue
			}
			res.Processed++
		}
	}
	return res, nil
}
