package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aeo-lab/internal/pipeline"
	"github.com/sells-group/aeo-lab/internal/resilience"
	"github.com/sells-group/aeo-lab/internal/store"
	"github.com/sells-group/aeo-lab/pkg/openrouter"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "aeolab.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initChatClient() openrouter.Client {
	if cfg.OpenRouter.UseMocks {
		return openrouter.NewMock()
	}
	client := openrouter.NewClient(cfg.OpenRouter.Key,
		openrouter.WithBaseURL(cfg.OpenRouter.BaseURL),
		openrouter.WithRateLimit(cfg.OpenRouter.RPS, cfg.OpenRouter.Burst),
		openrouter.WithAttribution(cfg.OpenRouter.Referer, cfg.OpenRouter.Title),
	)
	return pipeline.NewGuardedClient(client, resilience.DefaultCircuitBreakerConfig())
}
