package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

func TestCaptureRunCrossProduct(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	seedQuery(t, st, "best crm for small business", true)
	seedQuery(t, st, "crm pricing comparison", true)
	seedEngine(t, st, "chatgpt")
	seedEngine(t, st, "perplexity")

	client.On("ChatCompletion", mock.Anything, systemPromptContains(markerAnswer)).
		Return(chatResponse("Here are some options..."), nil)

	run, err := st.CreateRun(ctx, "test")
	require.NoError(t, err)

	res, err := p.CaptureRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 0, res.Failed)

	observations, err := st.ListObservations(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, observations, 4)
	client.AssertNumberOfCalls(t, "ChatCompletion", 4)
}

func TestCaptureRunModelSelection(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	seedQuery(t, st, "best crm", true)
	seedEngine(t, st, "chatgpt")
	seedEngine(t, st, "perplexity")
	seedEngine(t, st, "gemini")

	seen := map[string]bool{}
	client.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req openrouter.ChatCompletionRequest) bool {
		seen[req.Model] = true
		return true
	})).Return(chatResponse("answer"), nil)

	run, err := st.CreateRun(ctx, "test")
	require.NoError(t, err)

	_, err = p.CaptureRun(ctx, run.ID)
	require.NoError(t, err)

	assert.True(t, seen["openai/gpt-test"])
	assert.True(t, seen["perplexity/sonar-test"])
	assert.True(t, seen["test/default-model"])
}

func TestCaptureRunFailureIsolation(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	seedQuery(t, st, "query that breaks", true)
	seedQuery(t, st, "query that works", true)
	seedEngine(t, st, "chatgpt")

	client.On("ChatCompletion", mock.Anything, userPromptContains("breaks")).
		Return(nil, &openrouter.UpstreamError{StatusCode: 500, Body: "server error"})
	client.On("ChatCompletion", mock.Anything, userPromptContains("works")).
		Return(chatResponse("a good answer"), nil)

	run, err := st.CreateRun(ctx, "test")
	require.NoError(t, err)

	res, err := p.CaptureRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Failed)

	observations, err := st.ListObservations(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Equal(t, "a good answer", observations[0].RawAnswer.Content)
}

func TestCaptureRunSkipsInactiveQueries(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	seedQuery(t, st, "active query", true)
	seedQuery(t, st, "inactive query", false)
	seedEngine(t, st, "chatgpt")

	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(chatResponse("answer"), nil)

	run, err := st.CreateRun(ctx, "test")
	require.NoError(t, err)

	res, err := p.CaptureRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	client.AssertNumberOfCalls(t, "ChatCompletion", 1)
}

func TestCaptureRunNothingToDo(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "test")
	require.NoError(t, err)

	res, err := p.CaptureRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	client.AssertNotCalled(t, "ChatCompletion", mock.Anything, mock.Anything)
}

func TestCaptureRunLowTemperature(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	seedQuery(t, st, "best crm", true)
	seedEngine(t, st, "chatgpt")

	client.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req openrouter.ChatCompletionRequest) bool {
		return req.Temperature != nil && *req.Temperature == captureTemperature &&
			req.MaxTokens != nil && *req.MaxTokens == captureMaxTokens
	})).Return(chatResponse("answer"), nil)

	run, err := st.CreateRun(ctx, "test")
	require.NoError(t, err)

	res, err := p.CaptureRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
}

func TestCaptureRunObservationFields(t *testing.T) {
	p, st, client := newTestPipeline(t)
	ctx := context.Background()

	q := seedQuery(t, st, "best crm", true)
	eng := seedEngine(t, st, "chatgpt")

	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(chatResponse("the answer text"), nil)

	run, err := st.CreateRun(ctx, "test")
	require.NoError(t, err)

	_, err = p.CaptureRun(ctx, run.ID)
	require.NoError(t, err)

	observations, err := st.ListObservations(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, observations, 1)

	obs := observations[0]
	assert.Equal(t, q.ID, obs.QueryID)
	assert.Equal(t, eng.ID, obs.EngineID)
	assert.Equal(t, model.RawAnswer{
		Engine:  "chatgpt",
		Model:   "openai/gpt-test",
		Content: "the answer text",
	}, obs.RawAnswer)
	assert.Equal(t, "the answer text", obs.ParsedAnswer)
}
