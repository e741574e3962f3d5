package openrouter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockContent(t *testing.T, system, user string) string {
	t.Helper()
	resp, err := NewMock().ChatCompletion(context.Background(), ChatCompletionRequest{
		Model: "test/model",
		Messages: []Message{
			{Role: RoleSystem, Content: system},
			{Role: RoleUser, Content: user},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	return resp.Choices[0].Message.Content
}

func TestMockDefaultAnswer(t *testing.T) {
	content := mockContent(t, "You are answering as a user-facing assistant on chatgpt.", "best crm?")
	assert.Contains(t, content, "Mock answer")
}

func TestMockBaselinePayload(t *testing.T) {
	content := mockContent(t, "You are an evaluator that scores brand inclusion in outputs.", "Query: q")

	var payload struct {
		Presence   *int   `json:"presence_score"`
		Prominence *int   `json:"prominence_score"`
		Persuasion *int   `json:"persuasion_score"`
		Summary    string `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(content), &payload))
	require.NotNil(t, payload.Presence)
	assert.GreaterOrEqual(t, *payload.Presence, 0)
	assert.LessOrEqual(t, *payload.Presence, 3)
	assert.NotEmpty(t, payload.Summary)
}

func TestMockBaselineDeterministic(t *testing.T) {
	system := "You are an evaluator that scores brand inclusion in outputs."
	first := mockContent(t, system, "identical input")
	second := mockContent(t, system, "identical input")
	assert.Equal(t, first, second)
}

func TestMockCounterfactualPayload(t *testing.T) {
	content := mockContent(t, "You are an evaluator that tests only SEO/AEO-movable levers.", "Query: q")

	var payload struct {
		Items []struct {
			Lever       string  `json:"lever"`
			Description string  `json:"description"`
			Reason      string  `json:"reason"`
			Effort      int     `json:"effort_score"`
			Impact      int     `json:"impact_score"`
			Confidence  float64 `json:"confidence"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(content), &payload))
	require.Len(t, payload.Items, 3)
	for _, item := range payload.Items {
		assert.NotEmpty(t, item.Lever)
		assert.NotEmpty(t, item.Description)
		assert.NotEmpty(t, item.Reason)
	}
}

func TestMockBundlePayloads(t *testing.T) {
	systems := []string{
		"You are an evaluator that identifies missing brand signals in outputs.",
		"You are an evaluator that synthesizes brand opportunity actions from coverage.",
	}

	for _, system := range systems {
		content := mockContent(t, system, "Query: q")

		var payload struct {
			MissingSignals []string `json:"missing_signals"`
			Levers         []struct {
				Lever          string `json:"lever"`
				Recommendation string `json:"recommendation"`
			} `json:"levers"`
			PriorityActions []string `json:"priority_actions"`
		}
		require.NoError(t, json.Unmarshal([]byte(content), &payload))
		assert.NotEmpty(t, payload.MissingSignals)
		require.NotEmpty(t, payload.Levers)
		assert.NotEmpty(t, payload.Levers[0].Recommendation)
		assert.NotEmpty(t, payload.PriorityActions)
	}
}

func TestMockQuestionsPayload(t *testing.T) {
	content := mockContent(t, "You are an evaluator that derives the follow-up questions a searcher would ask.", "Original query: q")

	var payload struct {
		Questions []string `json:"questions"`
	}
	require.NoError(t, json.Unmarshal([]byte(content), &payload))
	assert.Len(t, payload.Questions, 3)
}
