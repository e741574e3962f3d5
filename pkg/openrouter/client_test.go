package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	resp := ChatCompletionResponse{
		ID: "cmpl-1",
		Choices: []Choice{
			{Index: 0, Message: Message{Role: RoleAssistant, Content: content}},
		},
		Usage: Usage{PromptTokens: 10, CompletionTokens: 5},
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(resp))
}

func TestChatCompletionHeaders(t *testing.T) {
	var gotReq *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		respond(t, w, "hi")
	}))
	defer srv.Close()

	c := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithAttribution("https://example.com", "Example App"),
	)

	resp, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
		Model:    "openai/gpt-4o-mini",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Choices[0].Message.Content)

	require.NotNil(t, gotReq)
	assert.Equal(t, http.MethodPost, gotReq.Method)
	assert.Equal(t, "/chat/completions", gotReq.URL.Path)
	assert.Equal(t, "Bearer test-key", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "https://example.com", gotReq.Header.Get("HTTP-Referer"))
	assert.Equal(t, "Example App", gotReq.Header.Get("X-Title"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))
}

func TestChatCompletionRequestBody(t *testing.T) {
	var body ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		respond(t, w, "ok")
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
		Model:          "test/model",
		Temperature:    Float(0.2),
		MaxTokens:      Int(600),
		Messages:       []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "usr"}},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	require.NoError(t, err)

	assert.Equal(t, "test/model", body.Model)
	require.NotNil(t, body.Temperature)
	assert.Equal(t, 0.2, *body.Temperature)
	require.NotNil(t, body.MaxTokens)
	assert.Equal(t, 600, *body.MaxTokens)
	require.Len(t, body.Messages, 2)
	require.NotNil(t, body.ResponseFormat)
	assert.Equal(t, "json_object", body.ResponseFormat.Type)
}

func TestChatCompletionUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "test/model"})
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "rate limited")
}

func TestChatCompletionBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 5000)))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "test/model"})
	require.Error(t, err)

	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Len(t, upstream.Body, bodySnippetLen)
}

func TestChatCompletionBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "test/model"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestChatCompletionContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, "late")
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ChatCompletion(ctx, ChatCompletionRequest{Model: "test/model"})
	require.Error(t, err)
}
