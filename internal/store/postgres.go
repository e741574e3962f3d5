package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/aeo-lab/internal/db"
	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the hot-path inserts prepared on each new
// connection. Capture and score loops execute these once per entity.
var preparedStatements = map[string]string{
	"insert_observation": `INSERT INTO observations (id, run_id, query_id, engine_id, raw_answer, parsed_answer, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"insert_score": `INSERT INTO scores (id, observation_id, presence_score, prominence_score, persuasion_score, total_score, summary, detected_brand_urls, detected_competitors, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
	"insert_counterfactual": `INSERT INTO counterfactuals (id, observation_id, lever, description, inclusion_after, reason, effort_score, impact_score, confidence, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
}

// NewPostgres creates a PostgresStore with a connection pool. The initial
// ping is retried with exponential backoff since deploy targets often race
// the database coming up.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}

	pingCfg := resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		OnRetry:        resilience.RetryLogger("postgres", "ping"),
	}
	if err := resilience.Do(ctx, pingCfg, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return resilience.NewTransientError(err, 0)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS queries (
	id           TEXT PRIMARY KEY,
	seq          BIGSERIAL,
	text         TEXT NOT NULL,
	slug         TEXT NOT NULL,
	funnel_stage TEXT NOT NULL,
	priority     INTEGER NOT NULL DEFAULT 2,
	target_url   TEXT,
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS engines (
	id      TEXT PRIMARY KEY,
	seq     BIGSERIAL,
	name    TEXT NOT NULL,
	surface TEXT NOT NULL,
	region  TEXT NOT NULL,
	device  TEXT NOT NULL,
	UNIQUE(name, surface, region, device)
);

CREATE TABLE IF NOT EXISTS observations (
	id            TEXT PRIMARY KEY,
	seq           BIGSERIAL,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	query_id      TEXT NOT NULL REFERENCES queries(id),
	engine_id     TEXT NOT NULL REFERENCES engines(id),
	raw_answer    JSONB NOT NULL,
	parsed_answer TEXT,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
	id                   TEXT PRIMARY KEY,
	seq                  BIGSERIAL,
	observation_id       TEXT NOT NULL REFERENCES observations(id),
	presence_score       INTEGER NOT NULL,
	prominence_score     INTEGER NOT NULL,
	persuasion_score     INTEGER NOT NULL,
	total_score          INTEGER NOT NULL,
	summary              TEXT NOT NULL,
	detected_brand_urls  JSONB NOT NULL,
	detected_competitors JSONB NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS counterfactuals (
	id              TEXT PRIMARY KEY,
	seq             BIGSERIAL,
	observation_id  TEXT NOT NULL REFERENCES observations(id),
	lever           TEXT NOT NULL,
	description     TEXT NOT NULL,
	inclusion_after BOOLEAN NOT NULL,
	reason          TEXT NOT NULL,
	effort_score    INTEGER NOT NULL,
	impact_score    INTEGER NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS brand_deltas (
	id               TEXT PRIMARY KEY,
	seq              BIGSERIAL,
	observation_id   TEXT NOT NULL REFERENCES observations(id),
	missing_signals  JSONB NOT NULL,
	levers           JSONB NOT NULL,
	priority_actions JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS expanded_questions (
	id             TEXT PRIMARY KEY,
	seq            BIGSERIAL,
	observation_id TEXT NOT NULL REFERENCES observations(id),
	text           TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS expanded_answers (
	id            TEXT PRIMARY KEY,
	seq           BIGSERIAL,
	question_id   TEXT NOT NULL REFERENCES expanded_questions(id),
	engine_id     TEXT NOT NULL REFERENCES engines(id),
	raw_answer    JSONB NOT NULL,
	parsed_answer TEXT,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS brand_opportunities (
	id               TEXT PRIMARY KEY,
	seq              BIGSERIAL,
	observation_id   TEXT NOT NULL REFERENCES observations(id),
	missing_signals  JSONB NOT NULL,
	levers           JSONB NOT NULL,
	priority_actions JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_observations_run_id ON observations(run_id);
CREATE INDEX IF NOT EXISTS idx_scores_observation_id ON scores(observation_id);
CREATE INDEX IF NOT EXISTS idx_counterfactuals_observation_id ON counterfactuals(observation_id);
CREATE INDEX IF NOT EXISTS idx_brand_deltas_observation_id ON brand_deltas(observation_id);
CREATE INDEX IF NOT EXISTS idx_expanded_questions_observation_id ON expanded_questions(observation_id);
CREATE INDEX IF NOT EXISTS idx_expanded_answers_question_id ON expanded_answers(question_id);
CREATE INDEX IF NOT EXISTS idx_brand_opportunities_observation_id ON brand_opportunities(observation_id);
CREATE INDEX IF NOT EXISTS idx_queries_active ON queries(active);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, label string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Label:     label,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, label, started_at) VALUES ($1, $2, $3)`,
		run.ID, run.Label, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create run")
	}
	return run, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	err := s.pool.QueryRow(ctx,
		`SELECT id, label, started_at FROM runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Label, &run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get run")
	}
	return &run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, label, started_at FROM runs ORDER BY started_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		if err := rows.Scan(&run.ID, &run.Label, &run.StartedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs")
}

func (s *PostgresStore) CreateQuery(ctx context.Context, q model.Query) (*model.Query, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO queries (id, text, slug, funnel_stage, priority, target_url, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`,
		q.ID, q.Text, q.Slug, string(q.FunnelStage), q.Priority, q.TargetURL, q.Active, q.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create query")
	}
	return &q, nil
}

func (s *PostgresStore) GetQuery(ctx context.Context, id string) (*model.Query, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, text, slug, funnel_stage, priority, COALESCE(target_url, ''), active, created_at
		 FROM queries WHERE id = $1`, id,
	)
	var q model.Query
	var stage string
	if err := row.Scan(&q.ID, &q.Text, &q.Slug, &stage, &q.Priority, &q.TargetURL, &q.Active, &q.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "postgres: get query")
	}
	q.FunnelStage = model.FunnelStage(stage)
	return &q, nil
}

func (s *PostgresStore) ListQueries(ctx context.Context) ([]model.Query, error) {
	return s.listQueries(ctx,
		`SELECT id, text, slug, funnel_stage, priority, COALESCE(target_url, ''), active, created_at
		 FROM queries ORDER BY priority ASC, seq ASC`)
}

func (s *PostgresStore) ListActiveQueries(ctx context.Context) ([]model.Query, error) {
	return s.listQueries(ctx,
		`SELECT id, text, slug, funnel_stage, priority, COALESCE(target_url, ''), active, created_at
		 FROM queries WHERE active ORDER BY priority ASC, seq ASC`)
}

func (s *PostgresStore) listQueries(ctx context.Context, sql string) ([]model.Query, error) {
	rows, err := s.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list queries")
	}
	defer rows.Close()

	var out []model.Query
	for rows.Next() {
		var q model.Query
		var stage string
		if err := rows.Scan(&q.ID, &q.Text, &q.Slug, &stage, &q.Priority, &q.TargetURL, &q.Active, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan query")
		}
		q.FunnelStage = model.FunnelStage(stage)
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list queries")
}

func (s *PostgresStore) UpsertEngine(ctx context.Context, e model.Engine) (*model.Engine, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	var out model.Engine
	err := s.pool.QueryRow(ctx,
		`INSERT INTO engines (id, name, surface, region, device) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name, surface, region, device) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, surface, region, device`,
		e.ID, e.Name, e.Surface, e.Region, e.Device,
	).Scan(&out.ID, &out.Name, &out.Surface, &out.Region, &out.Device)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert engine")
	}
	return &out, nil
}

func (s *PostgresStore) ListEngines(ctx context.Context) ([]model.Engine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, surface, region, device FROM engines ORDER BY seq ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list engines")
	}
	defer rows.Close()

	var out []model.Engine
	for rows.Next() {
		var e model.Engine
		if err := rows.Scan(&e.ID, &e.Name, &e.Surface, &e.Region, &e.Device); err != nil {
			return nil, eris.Wrap(err, "postgres: scan engine")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list engines")
}

func (s *PostgresStore) CreateObservation(ctx context.Context, o model.Observation) (*model.Observation, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(o.RawAnswer)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal raw answer")
	}
	_, err = s.pool.Exec(ctx, preparedStatements["insert_observation"],
		o.ID, o.RunID, o.QueryID, o.EngineID, raw, nullable(o.ParsedAnswer), o.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create observation")
	}
	return &o, nil
}

func (s *PostgresStore) ListObservations(ctx context.Context, runID string) ([]model.Observation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, query_id, engine_id, raw_answer, COALESCE(parsed_answer, ''), created_at
		 FROM observations WHERE run_id = $1 ORDER BY seq ASC`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list observations")
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		var raw []byte
		if err := rows.Scan(&o.ID, &o.RunID, &o.QueryID, &o.EngineID, &raw, &o.ParsedAnswer, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan observation")
		}
		if err := json.Unmarshal(raw, &o.RawAnswer); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal raw answer")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list observations")
}

func (s *PostgresStore) CreateScore(ctx context.Context, sc model.Score) (*model.Score, error) {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	urls, err := marshalStrings(sc.DetectedBrandURLs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal brand urls")
	}
	comps, err := marshalStrings(sc.DetectedCompetitors)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal competitors")
	}
	_, err = s.pool.Exec(ctx, preparedStatements["insert_score"],
		sc.ID, sc.ObservationID, sc.Presence, sc.Prominence, sc.Persuasion,
		sc.Total, sc.Summary, urls, comps, sc.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create score")
	}
	return &sc, nil
}

func (s *PostgresStore) ListScoresByRun(ctx context.Context, runID string) ([]model.Score, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT s.id, s.observation_id, s.presence_score, s.prominence_score, s.persuasion_score,
		 s.total_score, s.summary, s.detected_brand_urls, s.detected_competitors, s.created_at
		 FROM scores s JOIN observations o ON o.id = s.observation_id
		 WHERE o.run_id = $1 ORDER BY s.seq ASC`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scores")
	}
	defer rows.Close()

	var out []model.Score
	for rows.Next() {
		var sc model.Score
		var urls, comps []byte
		if err := rows.Scan(&sc.ID, &sc.ObservationID, &sc.Presence, &sc.Prominence, &sc.Persuasion,
			&sc.Total, &sc.Summary, &urls, &comps, &sc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score")
		}
		if err := json.Unmarshal(urls, &sc.DetectedBrandURLs); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal brand urls")
		}
		if err := json.Unmarshal(comps, &sc.DetectedCompetitors); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal competitors")
		}
		out = append(out, sc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list scores")
}

func (s *PostgresStore) CreateCounterfactual(ctx context.Context, cf model.Counterfactual) (*model.Counterfactual, error) {
	if cf.ID == "" {
		cf.ID = uuid.New().String()
	}
	if cf.CreatedAt.IsZero() {
		cf.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, preparedStatements["insert_counterfactual"],
		cf.ID, cf.ObservationID, cf.Lever, cf.Description, cf.InclusionAfter,
		cf.Reason, cf.EffortScore, cf.ImpactScore, cf.Confidence, cf.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create counterfactual")
	}
	return &cf, nil
}

func (s *PostgresStore) ListCounterfactuals(ctx context.Context, observationID string) ([]model.Counterfactual, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, observation_id, lever, description, inclusion_after,
		 reason, effort_score, impact_score, confidence, created_at
		 FROM counterfactuals WHERE observation_id = $1 ORDER BY seq ASC`, observationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list counterfactuals")
	}
	defer rows.Close()

	var out []model.Counterfactual
	for rows.Next() {
		var cf model.Counterfactual
		if err := rows.Scan(&cf.ID, &cf.ObservationID, &cf.Lever, &cf.Description, &cf.InclusionAfter,
			&cf.Reason, &cf.EffortScore, &cf.ImpactScore, &cf.Confidence, &cf.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan counterfactual")
		}
		out = append(out, cf)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list counterfactuals")
}

func (s *PostgresStore) CreateBrandDelta(ctx context.Context, d model.BrandDelta) (*model.BrandDelta, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	signals, levers, actions, err := marshalBundle(d.MissingSignals, d.Levers, d.PriorityActions)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal brand delta")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO brand_deltas (id, observation_id, missing_signals, levers, priority_actions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.ObservationID, signals, levers, actions, d.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create brand delta")
	}
	return &d, nil
}

func (s *PostgresStore) ListBrandDeltas(ctx context.Context, observationID string) ([]model.BrandDelta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, observation_id, missing_signals, levers, priority_actions, created_at
		 FROM brand_deltas WHERE observation_id = $1 ORDER BY seq ASC`, observationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list brand deltas")
	}
	defer rows.Close()

	var out []model.BrandDelta
	for rows.Next() {
		var d model.BrandDelta
		var signals, levers, actions string
		if err := rows.Scan(&d.ID, &d.ObservationID, &signals, &levers, &actions, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brand delta")
		}
		if d.MissingSignals, d.Levers, d.PriorityActions, err = unmarshalBundle(signals, levers, actions); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal brand delta")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list brand deltas")
}

func (s *PostgresStore) CreateExpandedQuestion(ctx context.Context, q model.ExpandedQuestion) (*model.ExpandedQuestion, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO expanded_questions (id, observation_id, text, created_at) VALUES ($1, $2, $3, $4)`,
		q.ID, q.ObservationID, q.Text, q.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create expanded question")
	}
	return &q, nil
}

func (s *PostgresStore) ListExpandedQuestions(ctx context.Context, observationID string) ([]model.ExpandedQuestion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, observation_id, text, created_at FROM expanded_questions
		 WHERE observation_id = $1 ORDER BY seq ASC`, observationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list expanded questions")
	}
	defer rows.Close()

	var out []model.ExpandedQuestion
	for rows.Next() {
		var q model.ExpandedQuestion
		if err := rows.Scan(&q.ID, &q.ObservationID, &q.Text, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan expanded question")
		}
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list expanded questions")
}

func (s *PostgresStore) CreateExpandedAnswer(ctx context.Context, a model.ExpandedAnswer) (*model.ExpandedAnswer, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(a.RawAnswer)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal raw answer")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO expanded_answers (id, question_id, engine_id, raw_answer, parsed_answer, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.QuestionID, a.EngineID, raw, nullable(a.ParsedAnswer), a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create expanded answer")
	}
	return &a, nil
}

func (s *PostgresStore) ListExpandedAnswers(ctx context.Context, questionID string) ([]model.ExpandedAnswer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, question_id, engine_id, raw_answer, COALESCE(parsed_answer, ''), created_at
		 FROM expanded_answers WHERE question_id = $1 ORDER BY seq ASC`, questionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list expanded answers")
	}
	defer rows.Close()

	var out []model.ExpandedAnswer
	for rows.Next() {
		var a model.ExpandedAnswer
		var raw []byte
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.EngineID, &raw, &a.ParsedAnswer, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan expanded answer")
		}
		if err := json.Unmarshal(raw, &a.RawAnswer); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal raw answer")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list expanded answers")
}

func (s *PostgresStore) CreateBrandOpportunity(ctx context.Context, o model.BrandOpportunity) (*model.BrandOpportunity, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	signals, levers, actions, err := marshalBundle(o.MissingSignals, o.Levers, o.PriorityActions)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal brand opportunity")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO brand_opportunities (id, observation_id, missing_signals, levers, priority_actions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		o.ID, o.ObservationID, signals, levers, actions, o.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create brand opportunity")
	}
	return &o, nil
}

func (s *PostgresStore) ListBrandOpportunities(ctx context.Context, observationID string) ([]model.BrandOpportunity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, observation_id, missing_signals, levers, priority_actions, created_at
		 FROM brand_opportunities WHERE observation_id = $1 ORDER BY seq ASC`, observationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list brand opportunities")
	}
	defer rows.Close()

	var out []model.BrandOpportunity
	for rows.Next() {
		var o model.BrandOpportunity
		var signals, levers, actions string
		if err := rows.Scan(&o.ID, &o.ObservationID, &signals, &levers, &actions, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brand opportunity")
		}
		if o.MissingSignals, o.Levers, o.PriorityActions, err = unmarshalBundle(signals, levers, actions); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal brand opportunity")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list brand opportunities")
}
