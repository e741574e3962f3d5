package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/aeo-lab/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	label      TEXT NOT NULL,
	started_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS queries (
	id           TEXT PRIMARY KEY,
	text         TEXT NOT NULL,
	slug         TEXT NOT NULL,
	funnel_stage TEXT NOT NULL,
	priority     INTEGER NOT NULL DEFAULT 2,
	target_url   TEXT,
	active       INTEGER NOT NULL DEFAULT 1,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS engines (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	surface TEXT NOT NULL,
	region  TEXT NOT NULL,
	device  TEXT NOT NULL,
	UNIQUE(name, surface, region, device)
);

CREATE TABLE IF NOT EXISTS observations (
	id            TEXT PRIMARY KEY,
	run_id        TEXT NOT NULL REFERENCES runs(id),
	query_id      TEXT NOT NULL REFERENCES queries(id),
	engine_id     TEXT NOT NULL REFERENCES engines(id),
	raw_answer    TEXT NOT NULL,
	parsed_answer TEXT,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS scores (
	id                   TEXT PRIMARY KEY,
	observation_id       TEXT NOT NULL REFERENCES observations(id),
	presence_score       INTEGER NOT NULL,
	prominence_score     INTEGER NOT NULL,
	persuasion_score     INTEGER NOT NULL,
	total_score          INTEGER NOT NULL,
	summary              TEXT NOT NULL,
	detected_brand_urls  TEXT NOT NULL,
	detected_competitors TEXT NOT NULL,
	created_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS counterfactuals (
	id              TEXT PRIMARY KEY,
	observation_id  TEXT NOT NULL REFERENCES observations(id),
	lever           TEXT NOT NULL,
	description     TEXT NOT NULL,
	inclusion_after INTEGER NOT NULL,
	reason          TEXT NOT NULL,
	effort_score    INTEGER NOT NULL,
	impact_score    INTEGER NOT NULL,
	confidence      REAL NOT NULL,
	created_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS brand_deltas (
	id               TEXT PRIMARY KEY,
	observation_id   TEXT NOT NULL REFERENCES observations(id),
	missing_signals  TEXT NOT NULL,
	levers           TEXT NOT NULL,
	priority_actions TEXT NOT NULL,
	created_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS expanded_questions (
	id             TEXT PRIMARY KEY,
	observation_id TEXT NOT NULL REFERENCES observations(id),
	text           TEXT NOT NULL,
	created_at     DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS expanded_answers (
	id            TEXT PRIMARY KEY,
	question_id   TEXT NOT NULL REFERENCES expanded_questions(id),
	engine_id     TEXT NOT NULL REFERENCES engines(id),
	raw_answer    TEXT NOT NULL,
	parsed_answer TEXT,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS brand_opportunities (
	id               TEXT PRIMARY KEY,
	observation_id   TEXT NOT NULL REFERENCES observations(id),
	missing_signals  TEXT NOT NULL,
	levers           TEXT NOT NULL,
	priority_actions TEXT NOT NULL,
	created_at       DATETIME NOT NULL
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, label string) (*model.Run, error) {
	run := &model.Run{
		ID:        uuid.New().String(),
		Label:     label,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, label, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Label, run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create run")
	}
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, started_at FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Label, &run.StartedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, started_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		if err := rows.Scan(&run.ID, &run.Label, &run.StartedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs")
}

func (s *SQLiteStore) CreateQuery(ctx context.Context, q model.Query) (*model.Query, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (id, text, slug, funnel_stage, priority, target_url, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Text, q.Slug, string(q.FunnelStage), q.Priority, q.TargetURL, q.Active, q.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create query")
	}
	return &q, nil
}

func (s *SQLiteStore) GetQuery(ctx context.Context, id string) (*model.Query, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, slug, funnel_stage, priority, target_url, active, created_at
		 FROM queries WHERE id = ?`, id,
	)
	q, err := scanQuery(row)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get query")
	}
	return q, nil
}

func (s *SQLiteStore) ListQueries(ctx context.Context) ([]model.Query, error) {
	return s.listQueries(ctx,
		`SELECT id, text, slug, funnel_stage, priority, target_url, active, created_at
		 FROM queries ORDER BY priority ASC, rowid ASC`)
}

func (s *SQLiteStore) ListActiveQueries(ctx context.Context) ([]model.Query, error) {
	return s.listQueries(ctx,
		`SELECT id, text, slug, funnel_stage, priority, target_url, active, created_at
		 FROM queries WHERE active = 1 ORDER BY priority ASC, rowid ASC`)
}

func (s *SQLiteStore) listQueries(ctx context.Context, query string) ([]model.Query, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list queries")
	}
	defer rows.Close()

	var out []model.Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan query")
		}
		out = append(out, *q)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list queries")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (*model.Query, error) {
	var q model.Query
	var stage string
	var targetURL sql.NullString
	if err := row.Scan(&q.ID, &q.Text, &q.Slug, &stage, &q.Priority, &targetURL, &q.Active, &q.CreatedAt); err != nil {
		return nil, err
	}
	q.FunnelStage = model.FunnelStage(stage)
	q.TargetURL = targetURL.String
	return &q, nil
}

func (s *SQLiteStore) UpsertEngine(ctx context.Context, e model.Engine) (*model.Engine, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO engines (id, name, surface, region, device) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name, surface, region, device) DO NOTHING`,
		e.ID, e.Name, e.Surface, e.Region, e.Device,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert engine")
	}
	// Re-read so callers get the persisted ID when the row already existed.
	var out model.Engine
	err = s.db.QueryRowContext(ctx,
		`SELECT id, name, surface, region, device FROM engines
		 WHERE name = ? AND surface = ? AND region = ? AND device = ?`,
		e.Name, e.Surface, e.Region, e.Device,
	).Scan(&out.ID, &out.Name, &out.Surface, &out.Region, &out.Device)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert engine read-back")
	}
	return &out, nil
}

func (s *SQLiteStore) ListEngines(ctx context.Context) ([]model.Engine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, surface, region, device FROM engines ORDER BY rowid ASC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list engines")
	}
	defer rows.Close()

	var out []model.Engine
	for rows.Next() {
		var e model.Engine
		if err := rows.Scan(&e.ID, &e.Name, &e.Surface, &e.Region, &e.Device); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan engine")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list engines")
}

func (s *SQLiteStore) CreateObservation(ctx context.Context, o model.Observation) (*model.Observation, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(o.RawAnswer)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal raw answer")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO observations (id, run_id, query_id, engine_id, raw_answer, parsed_answer, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.RunID, o.QueryID, o.EngineID, string(raw), nullable(o.ParsedAnswer), o.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create observation")
	}
	return &o, nil
}

func (s *SQLiteStore) ListObservations(ctx context.Context, runID string) ([]model.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, query_id, engine_id, raw_answer, parsed_answer, created_at
		 FROM observations WHERE run_id = ? ORDER BY rowid ASC`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list observations")
	}
	defer rows.Close()

	var out []model.Observation
	for rows.Next() {
		var o model.Observation
		var raw string
		var parsed sql.NullString
		if err := rows.Scan(&o.ID, &o.RunID, &o.QueryID, &o.EngineID, &raw, &parsed, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan observation")
		}
		if err := json.Unmarshal([]byte(raw), &o.RawAnswer); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal raw answer")
		}
		o.ParsedAnswer = parsed.String
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list observations")
}

func (s *SQLiteStore) CreateScore(ctx context.Context, sc model.Score) (*model.Score, error) {
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	urls, err := marshalStrings(sc.DetectedBrandURLs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal brand urls")
	}
	comps, err := marshalStrings(sc.DetectedCompetitors)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal competitors")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scores (id, observation_id, presence_score, prominence_score, persuasion_score,
		 total_score, summary, detected_brand_urls, detected_competitors, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.ObservationID, sc.Presence, sc.Prominence, sc.Persuasion,
		sc.Total, sc.Summary, urls, comps, sc.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create score")
	}
	return &sc, nil
}

func (s *SQLiteStore) ListScoresByRun(ctx context.Context, runID string) ([]model.Score, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.observation_id, s.presence_score, s.prominence_score, s.persuasion_score,
		 s.total_score, s.summary, s.detected_brand_urls, s.detected_competitors, s.created_at
		 FROM scores s JOIN observations o ON o.id = s.observation_id
		 WHERE o.run_id = ? ORDER BY s.rowid ASC`, runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scores")
	}
	defer rows.Close()

	var out []model.Score
	for rows.Next() {
		var sc model.Score
		var urls, comps string
		if err := rows.Scan(&sc.ID, &sc.ObservationID, &sc.Presence, &sc.Prominence, &sc.Persuasion,
			&sc.Total, &sc.Summary, &urls, &comps, &sc.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		if sc.DetectedBrandURLs, err = unmarshalStrings(urls); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal brand urls")
		}
		if sc.DetectedCompetitors, err = unmarshalStrings(comps); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal competitors")
		}
		out = append(out, sc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list scores")
}

func (s *SQLiteStore) CreateCounterfactual(ctx context.Context, cf model.Counterfactual) (*model.Counterfactual, error) {
	if cf.ID == "" {
		cf.ID = uuid.New().String()
	}
	if cf.CreatedAt.IsZero() {
		cf.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO counterfactuals (id, observation_id, lever, description, inclusion_after,
		 reason, effort_score, impact_score, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cf.ID, cf.ObservationID, cf.Lever, cf.Description, cf.InclusionAfter,
		cf.Reason, cf.EffortScore, cf.ImpactScore, cf.Confidence, cf.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create counterfactual")
	}
	return &cf, nil
}

func (s *SQLiteStore) ListCounterfactuals(ctx context.Context, observationID string) ([]model.Counterfactual, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, observation_id, lever, description, inclusion_after,
		 reason, effort_score, impact_score, confidence, created_at
		 FROM counterfactuals WHERE observation_id = ? ORDER BY rowid ASC`, observationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list counterfactuals")
	}
	defer rows.Close()

	var out []model.Counterfactual
	for rows.Next() {
		var cf model.Counterfactual
		if err := rows.Scan(&cf.ID, &cf.ObservationID, &cf.Lever, &cf.Description, &cf.InclusionAfter,
			&cf.Reason, &cf.EffortScore, &cf.ImpactScore, &cf.Confidence, &cf.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan counterfactual")
		}
		out = append(out, cf)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list counterfactuals")
}

func (s *SQLiteStore) CreateBrandDelta(ctx context.Context, d model.BrandDelta) (*model.BrandDelta, error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	signals, levers, actions, err := marshalBundle(d.MissingSignals, d.Levers, d.PriorityActions)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal brand delta")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO brand_deltas (id, observation_id, missing_signals, levers, priority_actions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.ObservationID, signals, levers, actions, d.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create brand delta")
	}
	return &d, nil
}

func (s *SQLiteStore) ListBrandDeltas(ctx context.Context, observationID string) ([]model.BrandDelta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, observation_id, missing_signals, levers, priority_actions, created_at
		 FROM brand_deltas WHERE observation_id = ? ORDER BY rowid ASC`, observationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list brand deltas")
	}
	defer rows.Close()

	var out []model.BrandDelta
	for rows.Next() {
		var d model.BrandDelta
		var signals, levers, actions string
		if err := rows.Scan(&d.ID, &d.ObservationID, &signals, &levers, &actions, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan brand delta")
		}
		if d.MissingSignals, d.Levers, d.PriorityActions, err = unmarshalBundle(signals, levers, actions); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal brand delta")
		}
		out = append(out, d)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list brand deltas")
}

func (s *SQLiteStore) CreateExpandedQuestion(ctx context.Context, q model.ExpandedQuestion) (*model.ExpandedQuestion, error) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expanded_questions (id, observation_id, text, created_at) VALUES (?, ?, ?, ?)`,
		q.ID, q.ObservationID, q.Text, q.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create expanded question")
	}
	return &q, nil
}

func (s *SQLiteStore) ListExpandedQuestions(ctx context.Context, observationID string) ([]model.ExpandedQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, observation_id, text, created_at FROM expanded_questions
		 WHERE observation_id = ? ORDER BY rowid ASC`, observationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list expanded questions")
	}
	defer rows.Close()

	var out []model.ExpandedQuestion
	for rows.Next() {
		var q model.ExpandedQuestion
		if err := rows.Scan(&q.ID, &q.ObservationID, &q.Text, &q.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan expanded question")
		}
		out = append(out, q)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list expanded questions")
}

func (s *SQLiteStore) CreateExpandedAnswer(ctx context.Context, a model.ExpandedAnswer) (*model.ExpandedAnswer, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(a.RawAnswer)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal raw answer")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO expanded_answers (id, question_id, engine_id, raw_answer, parsed_answer, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.QuestionID, a.EngineID, string(raw), nullable(a.ParsedAnswer), a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create expanded answer")
	}
	return &a, nil
}

func (s *SQLiteStore) ListExpandedAnswers(ctx context.Context, questionID string) ([]model.ExpandedAnswer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, engine_id, raw_answer, parsed_answer, created_at
		 FROM expanded_answers WHERE question_id = ? ORDER BY rowid ASC`, questionID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list expanded answers")
	}
	defer rows.Close()

	var out []model.ExpandedAnswer
	for rows.Next() {
		var a model.ExpandedAnswer
		var raw string
		var parsed sql.NullString
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.EngineID, &raw, &parsed, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan expanded answer")
		}
		if err := json.Unmarshal([]byte(raw), &a.RawAnswer); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal raw answer")
		}
		a.ParsedAnswer = parsed.String
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list expanded answers")
}

func (s *SQLiteStore) CreateBrandOpportunity(ctx context.Context, o model.BrandOpportunity) (*model.BrandOpportunity, error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	signals, levers, actions, err := marshalBundle(o.MissingSignals, o.Levers, o.PriorityActions)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal brand opportunity")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO brand_opportunities (id, observation_id, missing_signals, levers, priority_actions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.ObservationID, signals, levers, actions, o.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create brand opportunity")
	}
	return &o, nil
}

func (s *SQLiteStore) ListBrandOpportunities(ctx context.Context, observationID string) ([]model.BrandOpportunity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, observation_id, missing_signals, levers, priority_actions, created_at
		 FROM brand_opportunities WHERE observation_id = ? ORDER BY rowid ASC`, observationID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list brand opportunities")
	}
	defer rows.Close()

	var out []model.BrandOpportunity
	for rows.Next() {
		var o model.BrandOpportunity
		var signals, levers, actions string
		if err := rows.Scan(&o.ID, &o.ObservationID, &signals, &levers, &actions, &o.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan brand opportunity")
		}
		if o.MissingSignals, o.Levers, o.PriorityActions, err = unmarshalBundle(signals, levers, actions); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal brand opportunity")
		}
		out = append(out, o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list brand opportunities")
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	return string(b), err
}

func unmarshalStrings(s string) ([]string, error) {
	var out []string
	if s == "" {
		return []string{}, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func marshalBundle(signals []string, levers []model.ActionLever, actions []string) (string, string, string, error) {
	sj, err := marshalStrings(signals)
	if err != nil {
		return "", "", "", err
	}
	if levers == nil {
		levers = []model.ActionLever{}
	}
	lj, err := json.Marshal(levers)
	if err != nil {
		return "", "", "", err
	}
	aj, err := marshalStrings(actions)
	if err != nil {
		return "", "", "", err
	}
	return sj, string(lj), aj, nil
}

func unmarshalBundle(signals, levers, actions string) ([]string, []model.ActionLever, []string, error) {
	ss, err := unmarshalStrings(signals)
	if err != nil {
		return nil, nil, nil, err
	}
	var lv []model.ActionLever
	if err := json.Unmarshal([]byte(levers), &lv); err != nil {
		return nil, nil, nil, err
	}
	aa, err := unmarshalStrings(actions)
	if err != nil {
		return nil, nil, nil, err
	}
	return ss, lv, aa, nil
}
