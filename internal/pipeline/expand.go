package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/eval"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// ExpandRun derives follow-up questions from each observation's answer and
// persists them for the expanded-answer stage.
func (p *Pipeline) ExpandRun(ctx context.Context, runID string) (*StageResult, error) {
	res := &StageResult{Stage: model.StageExpand}
	log := zap.L().With(zap.String("run_id", runID), zap.String("stage", model.StageExpand))

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

		questions, chatErr := openrouter.ChatJSON(ctx, p.client, p.cfg.Models.Evaluator,
			eval.ExpansionPrompt(q.Text, obs.AnswerText()),
			eval.DecodeExpandedQuestions,
			openrouter.JSONOptions{
				Retries:         p.jsonRetries(),
				ForceJSONObject: true,
			})
		if chatErr != nil {
			res.Failed++
			log.Error("pipeline: question expansion failed",
				zap.String("observation_id", obs.ID),
				zap.Error(chatErr),
			)
			continue
		}

		persisted := 0
		for _, question := range questions {
			_, createErr := p.store.CreateExpandedQuestion(ctx, model.ExpandedQuestion{
				ObservationID: obs.ID,
				Text:          question,
			})
			if createErr != nil {
				log.Error("pipeline: persist expanded question failed",
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

// ExpandedAnswersRun captures an answer for every expanded question, using
// the engine of the observation the question came from.
func (p *Pipeline) ExpandedAnswersRun(ctx context.Context, runID string) (*StageResult, error) {
	res := &StageResult{Stage: model.StageExpandedAnswers}
	log := zap.L().With(zap.String("run_id", runID), zap.String("stage", model.StageExpandedAnswers))

	observations, err := p.store.ListObservations(ctx, runID)
	if err != nil {
		return res, eris.Wrap(err, "pipeline: list observations")
	}
	engines, err := p.store.ListEngines(ctx)
	if err != nil {
		return res, eris.Wrap(err, "pipeline: list engines")
	}
	enginesByID := make(map[string]model.Engine, len(engines))
	for _, e := range engines {
		enginesByID[e.ID] = e
	}

	for _, obs := range observations {
		engine, ok := enginesByID[obs.EngineID]
		if !ok {
			res.Failed++
			log.Error("pipeline: unknown engine for observation",
				zap.String("observation_id", obs.ID),
				zap.String("engine_id", obs.EngineID),
			)
			continue
		}

		questions, qErr := p.store.ListExpandedQuestions(ctx, obs.ID)
		if qErr != nil {
			res.Failed++
			log.Error("pipeline: load expanded questions failed",
				zap.String("observation_id", obs.ID),
				zap.Error(qErr),
			)
			continue
		}
		if len(questions) == 0 {
			res.Skipped++
			continue
		}

		modelSlug := p.modelForEngine(engine.Name)
		for _, question := range questions {
			content, chatErr := openrouter.ChatText(ctx, p.client, modelSlug,
				eval.AnswerPrompt(question.Text, engine.Name),
				openrouter.TextOptions{
					Temperature: openrouter.Float(captureTemperature),
					MaxTokens:   openrouter.Int(captureMaxTokens),
				})
			if chatErr != nil {
				res.Failed++
				log.Error("pipeline: expanded answer failed",
					zap.String("question_id", question.ID),
					zap.String("engine", engine.Name),
					zap.Error(chatErr),
				)
				continue
			}

			_, createErr := p.store.CreateExpandedAnswer(ctx, model.ExpandedAnswer{
				QuestionID: question.ID,
				EngineID:   engine.ID,
				RawAnswer: model.RawAnswer{
					Engine:  engine.Name,
					Model:   modelSlug,
					Content: content,
				},
				ParsedAnswer: content,
			})
			if createErr != nil {
				res.Failed++
				log.Error("pipeline: persist expanded answer failed",
					zap.String("question_id", question.ID),
					zap.Error(createErr),
				)
				continue
			}
			res.Processed++
		}
	}
	return res, nil
}
