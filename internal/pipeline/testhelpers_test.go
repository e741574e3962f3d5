package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/aeo-lab/internal/config"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/store"
)

// Stage prompt markers used to route mock responses.
const (
	markerAnswer      = "user-facing assistant"
	markerBaseline    = "scores brand inclusion"
	markerLevers      = "SEO/AEO-movable levers"
	markerDelta       = "missing brand signals"
	markerExpansion   = "follow-up questions"
	markerOpportunity = "brand opportunity actions"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Models.ChatGPT = "openai/gpt-test"
	cfg.Models.Perplexity = "perplexity/sonar-test"
	cfg.Models.Default = "test/default-model"
	cfg.Models.Evaluator = "test/eval-model"
	cfg.Brand.Names = []string{"Sells Advisors"}
	cfg.Pipeline.JSONRetries = 0
	cfg.Pipeline.MaxCounterfactuals = 3
	return cfg
}

func newTestPipeline(t *testing.T) (*Pipeline, store.Store, *mockChatClient) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	client := &mockChatClient{}
	return New(testConfig(), st, client), st, client
}

func seedEngine(t *testing.T, st store.Store, name string) *model.Engine {
	t.Helper()
	eng, err := st.UpsertEngine(context.Background(), model.Engine{
		Name: name, Surface: "web", Region: "us", Device: "desktop",
	})
	require.NoError(t, err)
	return eng
}

func seedQuery(t *testing.T, st store.Store, text string, active bool) *model.Query {
	t.Helper()
	q, err := st.CreateQuery(context.Background(), model.Query{
		Text:        text,
		Slug:        text,
		FunnelStage: model.FunnelConsideration,
		Priority:    2,
		Active:      active,
	})
	require.NoError(t, err)
	return q
}

func seedRunWithObservation(t *testing.T, st store.Store, queryText, answer string) (*model.Run, *model.Observation) {
	t.Helper()
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "test")
	require.NoError(t, err)
	q := seedQuery(t, st, queryText, true)
	eng := seedEngine(t, st, "chatgpt")

	obs, err := st.CreateObservation(ctx, model.Observation{
		RunID:    run.ID,
		QueryID:  q.ID,
		EngineID: eng.ID,
		RawAnswer: model.RawAnswer{
			Engine:  "chatgpt",
			Model:   "openai/gpt-test",
			Content: answer,
		},
		ParsedAnswer: answer,
	})
	require.NoError(t, err)
	return run, obs
}

func newObservation(runID, queryID, engineID, answer string) model.Observation {
	return model.Observation{
		RunID:    runID,
		QueryID:  queryID,
		EngineID: engineID,
		RawAnswer: model.RawAnswer{
			Engine:  "test",
			Model:   "test/default-model",
			Content: answer,
		},
		ParsedAnswer: answer,
	}
}

// Canned JSON payloads for the evaluator stages.

const baselineJSON = `{
	"presence_score": 2,
	"prominence_score": 1,
	"persuasion_score": 3,
	"summary": "brand mentioned mid-list",
	"detected_brand_urls": ["https://sellsadvisors.com"],
	"detected_competitors": ["hubspot"]
}`

const bundleJSON = `{
	"missing_signals": ["no review coverage"],
	"levers": [
		{"lever": "Evidence/authority", "recommendation": "pitch comparison roundups", "effort_score": 3, "impact_score": 4, "confidence": 0.7}
	],
	"priority_actions": ["pitch comparison roundups"]
}`

const questionsJSON = `{
	"questions": ["which option has the best free tier?", "how do prices compare?", "what do reviewers say?"]
}`

func counterfactualsJSON(n int) string {
	items := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			items += ","
		}
		items += `{"lever": "Content coverage", "description": "add page ` + string(rune('A'+i)) + `", "inclusion_after": true, "reason": "coverage gap", "effort_score": 2, "impact_score": 4, "confidence": 0.8}`
	}
	return `{"items": [` + items + `]}`
}
