// Package store persists the evaluation entities. Two backends implement
// the same interface: SQLite for local runs, Postgres for deployments.
// Created records are immediately visible to subsequent reads within the
// same process; the pipeline needs no stronger transactional guarantee.
package store

import (
	"context"

	"github.com/sells-group/aeo-lab/internal/model"
)

// Store defines the persistence interface consumed by the stage executors
// and the API server.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, label string) (*model.Run, error)
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Queries (created/edited externally; read-only to the pipeline)
	CreateQuery(ctx context.Context, q model.Query) (*model.Query, error)
	GetQuery(ctx context.Context, id string) (*model.Query, error)
	ListQueries(ctx context.Context) ([]model.Query, error)
	ListActiveQueries(ctx context.Context) ([]model.Query, error)

	// Engines
	UpsertEngine(ctx context.Context, e model.Engine) (*model.Engine, error)
	ListEngines(ctx context.Context) ([]model.Engine, error)

	// Observations
	CreateObservation(ctx context.Context, o model.Observation) (*model.Observation, error)
	ListObservations(ctx context.Context, runID string) ([]model.Observation, error)

	// Scores
	CreateScore(ctx context.Context, s model.Score) (*model.Score, error)
	ListScoresByRun(ctx context.Context, runID string) ([]model.Score, error)

	// Counterfactuals
	CreateCounterfactual(ctx context.Context, cf model.Counterfactual) (*model.Counterfactual, error)
	ListCounterfactuals(ctx context.Context, observationID string) ([]model.Counterfactual, error)

	// Brand deltas
	CreateBrandDelta(ctx context.Context, d model.BrandDelta) (*model.BrandDelta, error)
	ListBrandDeltas(ctx context.Context, observationID string) ([]model.BrandDelta, error)

	// Expanded questions and answers
	CreateExpandedQuestion(ctx context.Context, q model.ExpandedQuestion) (*model.ExpandedQuestion, error)
	ListExpandedQuestions(ctx context.Context, observationID string) ([]model.ExpandedQuestion, error)
	CreateExpandedAnswer(ctx context.Context, a model.ExpandedAnswer) (*model.ExpandedAnswer, error)
	ListExpandedAnswers(ctx context.Context, questionID string) ([]model.ExpandedAnswer, error)

	// Brand opportunities
	CreateBrandOpportunity(ctx context.Context, o model.BrandOpportunity) (*model.BrandOpportunity, error)
	ListBrandOpportunities(ctx context.Context, observationID string) ([]model.BrandOpportunity, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
