package openrouter

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/llmjson"
	"github.com/sells-group/aeo-lab/internal/resilience"
)

// DefaultRetries is the number of retries ChatJSON performs after the first
// attempt when JSONOptions.Retries is nil.
const DefaultRetries = 2

// defaultBackoff is the base delay between ChatJSON attempts. The delay
// grows linearly: 400ms after the first failure, 800ms after the second.
const defaultBackoff = 400 * time.Millisecond

// TextOptions tunes a ChatText call.
type TextOptions struct {
	Temperature *float64
	MaxTokens   *int
}

// JSONOptions tunes a ChatJSON call.
type JSONOptions struct {
	Temperature *float64
	MaxTokens   *int

	// Retries is the number of attempts after the first one. Nil means
	// DefaultRetries.
	Retries *int

	// ForceJSONObject asks the provider for strict JSON-object output.
	// Must stay false when the expected top-level shape is an array.
	ForceJSONObject bool

	// Backoff overrides the base retry delay. Tests use this to avoid
	// real sleeps.
	Backoff time.Duration
}

// ChatText sends a chat request and returns the raw assistant text.
// It performs no retry.
func ChatText(ctx context.Context, c Client, model string, messages []Message, opts TextOptions) (string, error) {
	req := ChatCompletionRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    messages,
	}
	if req.Temperature == nil {
		req.Temperature = Float(0.5)
	}
	if req.MaxTokens == nil {
		req.MaxTokens = Int(3000)
	}

	content, err := completionContent(ctx, c, req)
	if err != nil {
		logUpstreamFailure(model, err)
		return "", err
	}
	return content, nil
}

// ChatJSON sends a chat request, extracts a JSON value from the assistant
// text and decodes it with the caller-supplied schema decoder. Any failure
// in the attempt (upstream status, missing content, extraction, schema
// validation) consumes one retry; attempts are separated by a linearly
// growing backoff and the last error is surfaced after the final attempt.
func ChatJSON[T any](ctx context.Context, c Client, model string, messages []Message, decode func(any) (T, error), opts JSONOptions) (T, error) {
	req := ChatCompletionRequest{
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages:    messages,
	}
	if req.Temperature == nil {
		req.Temperature = Float(0)
	}
	if req.MaxTokens == nil {
		req.MaxTokens = Int(800)
	}
	if opts.ForceJSONObject {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	retries := DefaultRetries
	if opts.Retries != nil {
		retries = *opts.Retries
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    retries + 1,
		InitialBackoff: backoff,
		Strategy:       resilience.Linear,
		ShouldRetry:    resilience.RetryAll,
		OnRetry:        resilience.RetryLogger("openrouter", "chat_json"),
	}

	result, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (T, error) {
		var zero T

		content, err := completionContent(ctx, c, req)
		if err != nil {
			logUpstreamFailure(model, err)
			return zero, err
		}

		value, err := llmjson.Extract(content)
		if err != nil {
			return zero, err
		}

		decoded, err := decode(value)
		if err != nil {
			zap.L().Warn("openrouter: schema validation failed",
				zap.String("model", model),
				zap.Error(err),
			)
			return zero, err
		}
		return decoded, nil
	})
	if err != nil {
		zap.L().Error("openrouter: chat_json failed after retries",
			zap.String("model", model),
			zap.Int("attempts", retries+1),
			zap.Error(err),
		)
	}
	return result, err
}

// completionContent performs one chat completion and returns the first
// choice's content, treating an empty result as an upstream failure.
func completionContent(ctx context.Context, c Client, req ChatCompletionRequest) (string, error) {
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &UpstreamError{}
	}
	return resp.Choices[0].Message.Content, nil
}

func logUpstreamFailure(model string, err error) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		zap.L().Error("openrouter: upstream failure",
			zap.String("model", model),
			zap.Int("status", ue.StatusCode),
			zap.String("body", ue.Body),
		)
		return
	}
	zap.L().Error("openrouter: request failure",
		zap.String("model", model),
		zap.Error(err),
	)
}

// Float returns a pointer to f, for optional request fields.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to n, for optional request fields.
func Int(n int) *int { return &n }

// Retries returns a pointer to n, for JSONOptions.Retries.
func Retries(n int) *int { return &n }
