package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aeo-lab/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedObservation(t *testing.T, s *SQLiteStore) (*model.Run, *model.Observation) {
	t.Helper()
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "baseline")
	require.NoError(t, err)

	q, err := s.CreateQuery(ctx, model.Query{
		Text:        "best crm for small business",
		Slug:        "best-crm-for-small-business",
		FunnelStage: model.FunnelConsideration,
		Priority:    1,
		Active:      true,
	})
	require.NoError(t, err)

	eng, err := s.UpsertEngine(ctx, model.Engine{
		Name: "chatgpt", Surface: "web", Region: "us", Device: "desktop",
	})
	require.NoError(t, err)

	obs, err := s.CreateObservation(ctx, model.Observation{
		RunID:    run.ID,
		QueryID:  q.ID,
		EngineID: eng.ID,
		RawAnswer: model.RawAnswer{
			Engine:  "chatgpt",
			Model:   "openai/gpt-4o-mini",
			Content: "Here are some CRMs...",
		},
		ParsedAnswer: "Here are some CRMs...",
	})
	require.NoError(t, err)
	return run, obs
}

func TestSQLiteRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "weekly sweep")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.False(t, run.StartedAt.IsZero())

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "weekly sweep", got.Label)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSQLiteQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.CreateQuery(ctx, model.Query{
		Text: "inactive", Slug: "inactive", FunnelStage: model.FunnelAwareness, Priority: 1, Active: false,
	})
	require.NoError(t, err)
	_, err = s.CreateQuery(ctx, model.Query{
		Text: "active low", Slug: "active-low", FunnelStage: model.FunnelDecision, Priority: 3, Active: true,
	})
	require.NoError(t, err)
	_, err = s.CreateQuery(ctx, model.Query{
		Text: "active high", Slug: "active-high", FunnelStage: model.FunnelConsideration, Priority: 1, Active: true,
	})
	require.NoError(t, err)

	all, err := s.ListQueries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := s.ListActiveQueries(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "active high", active[0].Text)
	assert.Equal(t, "active low", active[1].Text)
	assert.Equal(t, model.FunnelConsideration, active[0].FunnelStage)
}

func TestSQLiteUpsertEngineIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertEngine(ctx, model.Engine{
		Name: "perplexity", Surface: "web", Region: "us", Device: "desktop",
	})
	require.NoError(t, err)

	second, err := s.UpsertEngine(ctx, model.Engine{
		Name: "perplexity", Surface: "web", Region: "us", Device: "desktop",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	engines, err := s.ListEngines(ctx)
	require.NoError(t, err)
	assert.Len(t, engines, 1)
}

func TestSQLiteObservations(t *testing.T) {
	s := newTestStore(t)
	run, obs := seedObservation(t, s)

	list, err := s.ListObservations(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, obs.ID, list[0].ID)
	assert.Equal(t, "openai/gpt-4o-mini", list[0].RawAnswer.Model)
	assert.Equal(t, "Here are some CRMs...", list[0].AnswerText())
}

func TestSQLiteScores(t *testing.T) {
	s := newTestStore(t)
	run, obs := seedObservation(t, s)
	ctx := context.Background()

	_, err := s.CreateScore(ctx, model.Score{
		ObservationID:       obs.ID,
		Presence:            2,
		Prominence:          1,
		Persuasion:          3,
		Total:               6,
		Summary:             "brand mentioned mid-list",
		DetectedBrandURLs:   []string{"https://example.com"},
		DetectedCompetitors: []string{"hubspot", "salesforce"},
	})
	require.NoError(t, err)

	scores, err := s.ListScoresByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 6, scores[0].Total)
	assert.Equal(t, []string{"hubspot", "salesforce"}, scores[0].DetectedCompetitors)
}

func TestSQLiteScoresEmptyLists(t *testing.T) {
	s := newTestStore(t)
	run, obs := seedObservation(t, s)
	ctx := context.Background()

	_, err := s.CreateScore(ctx, model.Score{
		ObservationID: obs.ID,
		Summary:       "no brand present",
	})
	require.NoError(t, err)

	scores, err := s.ListScoresByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Empty(t, scores[0].DetectedBrandURLs)
	assert.Empty(t, scores[0].DetectedCompetitors)
}

func TestSQLiteCounterfactualsOrder(t *testing.T) {
	s := newTestStore(t)
	_, obs := seedObservation(t, s)
	ctx := context.Background()

	levers := []string{"content", "schema", "digital_pr"}
	for i, lever := range levers {
		_, err := s.CreateCounterfactual(ctx, model.Counterfactual{
			ObservationID:  obs.ID,
			Lever:          lever,
			Description:    "change " + lever,
			InclusionAfter: i%2 == 0,
			Reason:         "because",
			EffortScore:    i + 1,
			ImpactScore:    i + 2,
			Confidence:     0.5,
		})
		require.NoError(t, err)
	}

	cfs, err := s.ListCounterfactuals(ctx, obs.ID)
	require.NoError(t, err)
	require.Len(t, cfs, 3)
	for i, lever := range levers {
		assert.Equal(t, lever, cfs[i].Lever)
	}
}

func TestSQLiteBrandDeltas(t *testing.T) {
	s := newTestStore(t)
	_, obs := seedObservation(t, s)
	ctx := context.Background()

	_, err := s.CreateBrandDelta(ctx, model.BrandDelta{
		ObservationID:  obs.ID,
		MissingSignals: []string{"no review coverage"},
		Levers: []model.ActionLever{{
			Lever:          "digital_pr",
			Recommendation: "pitch comparison roundups",
			EffortScore:    3,
			ImpactScore:    4,
			Confidence:     0.7,
		}},
		PriorityActions: []string{"pitch comparison roundups"},
	})
	require.NoError(t, err)

	deltas, err := s.ListBrandDeltas(ctx, obs.ID)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	require.Len(t, deltas[0].Levers, 1)
	assert.Equal(t, "digital_pr", deltas[0].Levers[0].Lever)
	assert.Equal(t, []string{"no review coverage"}, deltas[0].MissingSignals)
}

func TestSQLiteExpandedQuestionsAndAnswers(t *testing.T) {
	s := newTestStore(t)
	_, obs := seedObservation(t, s)
	ctx := context.Background()

	q, err := s.CreateExpandedQuestion(ctx, model.ExpandedQuestion{
		ObservationID: obs.ID,
		Text:          "which crm has the best free tier?",
	})
	require.NoError(t, err)

	qs, err := s.ListExpandedQuestions(ctx, obs.ID)
	require.NoError(t, err)
	require.Len(t, qs, 1)

	_, err = s.CreateExpandedAnswer(ctx, model.ExpandedAnswer{
		QuestionID: q.ID,
		EngineID:   obs.EngineID,
		RawAnswer:  model.RawAnswer{Engine: "chatgpt", Model: "openai/gpt-4o-mini", Content: "HubSpot's free tier..."},
	})
	require.NoError(t, err)

	answers, err := s.ListExpandedAnswers(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "HubSpot's free tier...", answers[0].RawAnswer.Content)
}

func TestSQLiteBrandOpportunities(t *testing.T) {
	s := newTestStore(t)
	_, obs := seedObservation(t, s)
	ctx := context.Background()

	_, err := s.CreateBrandOpportunity(ctx, model.BrandOpportunity{
		ObservationID:   obs.ID,
		MissingSignals:  []string{"absent from follow-up answers"},
		Levers:          []model.ActionLever{{Lever: "content", Recommendation: "publish pricing page", EffortScore: 2, ImpactScore: 3, Confidence: 0.6}},
		PriorityActions: []string{"publish pricing page"},
	})
	require.NoError(t, err)

	opps, err := s.ListBrandOpportunities(ctx, obs.ID)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "content", opps[0].Levers[0].Lever)
}
