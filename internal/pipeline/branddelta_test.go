package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aeo-lab/internal/model"
)

func seedCounterfactuals(t *testing.T, p *Pipeline, observationID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := p.store.CreateCounterfactual(context.Background(), model.Counterfactual{
			ObservationID:  observationID,
			Lever:          "Content coverage",
			Description:    "add a page",
			InclusionAfter: true,
			Reason:         "coverage gap",
			EffortScore:    2,
			ImpactScore:    4,
			Confidence:     0.8,
		})
		require.NoError(t, err)
	}
}

func TestBrandDeltaRun(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	run, obs := seedRunWithObservation(t, st, "best crm", "answer")
	seedCounterfactuals(t, p, obs.ID, 3)

	client.On("ChatCompletion", mock.Anything, systemPromptContains(markerDelta)).
		Return(chatResponse(bundleJSON), nil)

	res, err := p.BrandDeltaRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	deltas, err := st.ListBrandDeltas(ctx, obs.ID)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, []string{"no review coverage"}, deltas[0].MissingSignals)
	require.Len(t, deltas[0].Levers, 1)
	assert.Equal(t, "Evidence/authority", deltas[0].Levers[0].Lever)
	assert.Equal(t, []string{"pitch comparison roundups"}, deltas[0].PriorityActions)
}

func TestBrandDeltaRunSkipsWithoutCounterfactuals(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	run, obs := seedRunWithObservation(t, st, "best crm", "answer")

	res, err := p.BrandDeltaRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 1, res.Skipped)

	deltas, err := st.ListBrandDeltas(ctx, obs.ID)
	require.NoError(t, err)
	assert.Empty(t, deltas)
	client.AssertNotCalled(t, "ChatCompletion", mock.Anything, mock.Anything)
}

func TestBrandDeltaRunPromptIncludesCounterfactuals(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	run, obs := seedRunWithObservation(t, st, "best crm", "answer")
	seedCounterfactuals(t, p, obs.ID, 2)

	client.On("ChatCompletion", mock.Anything, userPromptContains("Counterfactual hypotheses")).
		Return(chatResponse(bundleJSON), nil)

	res, err := p.BrandDeltaRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestBrandDeltaRunFailureIsolation(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	run, obs1 := seedRunWithObservation(t, st, "query one", "answer one")
	seedCounterfactuals(t, p, obs1.ID, 3)

	q2 := seedQuery(t, st, "query two", true)
	eng := seedEngine(t, st, "perplexity")
	obs2, err := st.CreateObservation(ctx, newObservation(run.ID, q2.ID, eng.ID, "answer two"))
	require.NoError(t, err)
	seedCounterfactuals(t, p, obs2.ID, 3)

	client.On("ChatCompletion", mock.Anything, userPromptContains("query one")).
		Return(chatResponse("garbage output"), nil)
	client.On("ChatCompletion", mock.Anything, userPromptContains("query two")).
		Return(chatResponse(bundleJSON), nil)

	res, err := p.BrandDeltaRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)

	deltas, err := st.ListBrandDeltas(ctx, obs2.ID)
	require.NoError(t, err)
	assert.Len(t, deltas, 1)
}
