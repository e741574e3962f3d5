package pipeline

import (
	"context"
	"errors"

	"github.com/sells-group/aeo-lab/internal/resilience"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

// guardedClient routes chat completions through a circuit breaker so a hard
// upstream outage fails fast instead of consuming the rate budget on every
// query/engine pair.
type guardedClient struct {
	inner   openrouter.Client
	breaker *resilience.CircuitBreaker
}

// NewGuardedClient wraps a chat client with a circuit breaker. Only outage
// signatures trip the breaker: network-level transient failures, 429s and
// 5xx responses. Client errors and unparseable content do not, those are
// handled by the per-call retry budget.
func NewGuardedClient(inner openrouter.Client, cfg resilience.CircuitBreakerConfig) openrouter.Client {
	cfg.ShouldTrip = tripsBreaker
	return &guardedClient{
		inner:   inner,
		breaker: resilience.NewCircuitBreaker(cfg),
	}
}

func (g *guardedClient) ChatCompletion(ctx context.Context, req openrouter.ChatCompletionRequest) (*openrouter.ChatCompletionResponse, error) {
	return resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*openrouter.ChatCompletionResponse, error) {
		return g.inner.ChatCompletion(ctx, req)
	})
}

func tripsBreaker(err error) bool {
	var upstream *openrouter.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode == 429 || upstream.StatusCode >= 500
	}
	return resilience.IsTransient(err)
}
