package pipeline

import (
	"context"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// --- Chat Client Mock ---

type mockChatClient struct {
	mock.Mock
}

func (m *mockChatClient) ChatCompletion(ctx context.Context, req openrouter.ChatCompletionRequest) (*openrouter.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openrouter.ChatCompletionResponse), args.Error(1)
}

var _ openrouter.Client = (*mockChatClient)(nil)

// chatResponse wraps assistant text in a single-choice completion response.
func chatResponse(content string) *openrouter.ChatCompletionResponse {
	return &openrouter.ChatCompletionResponse{
		ID: "gen-test",
		Choices: []openrouter.Choice{
			{Message: openrouter.Message{Role: openrouter.RoleAssistant, Content: content}},
		},
	}
}

// systemPromptContains matches a request whose system message contains the
// given marker. Stage prompts carry distinct rubric phrases, so this is how
// tests route per-stage responses through one mock client.
func systemPromptContains(marker string) any {
	return mock.MatchedBy(func(req openrouter.ChatCompletionRequest) bool {
		for _, msg := range req.Messages {
			if msg.Role == openrouter.RoleSystem {
				return strings.Contains(msg.Content, marker)
			}
		}
		return false
	})
}

// userPromptContains matches a request whose user message contains the
// given marker.
func userPromptContains(marker string) any {
	return mock.MatchedBy(func(req openrouter.ChatCompletionRequest) bool {
		for _, msg := range req.Messages {
			if msg.Role == openrouter.RoleUser && strings.Contains(msg.Content, marker) {
				return true
			}
		}
		return false
	})
}
