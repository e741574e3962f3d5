package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/eval"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// OpportunityRun synthesizes brand-opportunity actions out of each
// observation's expanded Q&A coverage. Observations with no answered
// follow-up questions are skipped.
func (p *Pipeline) OpportunityRun(ctx context.Context, runID string) (*StageResult, error) {
	res := &StageResult{Stage: model.StageOpportunity}
	log := zap.L().With(zap.String("run_id", runID), zap.String("stage", model.StageOpportunity))

	observations, err := p.store.ListObservations(ctx, runID)
	if err != nil {
		return res, eris.Wrap(err, "pipeline: list observations")
	}

	for _, obs := range observations {
		qa, qaErr := p.collectExpandedQA(ctx, obs.ID)
		if qaErr != nil {
			res.Failed++
			log.Error("pipeline: load expanded coverage failed",
				zap.String("observation_id", obs.ID),
				zap.Error(qaErr),
			)
			continue
		}
		if len(qa) == 0 {
			res.Skipped++
			log.Debug("pipeline: no expanded coverage, skipping",
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
			eval.OpportunityPrompt(q.Text, p.cfg.Brand.Names, obs.AnswerText(), qa),
			eval.DecodeActionBundle,
			openrouter.JSONOptions{
				Retries:         p.jsonRetries(),
				ForceJSONObject: true,
			})
		if chatErr != nil {
			res.Failed++
			log.Error("pipeline: opportunity failed",
				zap.String("observation_id", obs.ID),
				zap.Error(chatErr),
			)
			continue
		}

		_, createErr := p.store.CreateBrandOpportunity(ctx, model.BrandOpportunity{
			ObservationID:   obs.ID,
			MissingSignals:  bundle.MissingSignals,
			Levers:          bundle.Levers,
			PriorityActions: bundle.PriorityActions,
		})
		if createErr != nil {
			res.Failed++
			log.Error("pipeline: persist opportunity failed",
				zap.String("observation_id", obs.ID),
				zap.Error(createErr),
			)
			continue
		}
		res.Processed++
	}
	return res, nil
}

// collectExpandedQA pairs each answered expanded question with its first
// captured answer. Unanswered questions are left out of the prompt.
func (p *Pipeline) collectExpandedQA(ctx context.Context, observationID string) ([]eval.ExpandedQA, error) {
	questions, err := p.store.ListExpandedQuestions(ctx, observationID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list expanded questions")
	}

	var qa []eval.ExpandedQA
	for _, question := range questions {
		answers, err := p.store.ListExpandedAnswers(ctx, question.ID)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: list expanded answers")
		}
		if len(answers) == 0 {
			continue
		}
		qa = append(qa, eval.ExpandedQA{
			Question: question.Text,
			Answer:   answers[0].AnswerText(),
		})
	}
	return qa, nil
}
