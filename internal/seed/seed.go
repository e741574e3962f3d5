// Package seed loads engine and query fixtures from YAML and applies them
// to a store. Seeding is idempotent: engines upsert on their identity tuple
// and queries are skipped when their slug already exists.
package seed

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/slug"
	"github.com/sells-group/aeo-lab/internal/store"
)

// File is the top-level seed document.
type File struct {
	Engines []Engine `yaml:"engines"`
	Queries []Query  `yaml:"queries"`
}

// Engine is one engine fixture.
type Engine struct {
	Name    string `yaml:"name"`
	Surface string `yaml:"surface"`
	Region  string `yaml:"region"`
	Device  string `yaml:"device"`
}

// Query is one query fixture.
type Query struct {
	Text        string `yaml:"text"`
	FunnelStage string `yaml:"funnel_stage"`
	Priority    int    `yaml:"priority"`
	TargetURL   string `yaml:"target_url"`
	Active      *bool  `yaml:"active"`
}

// Result counts what Apply did.
type Result struct {
	EnginesUpserted int
	QueriesCreated  int
	QueriesSkipped  int
}

// Load reads and validates a seed file.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "seed: read file")
	}

	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, eris.Wrap(err, "seed: parse yaml")
	}

	for i, e := range f.Engines {
		if e.Name == "" {
			return nil, eris.Errorf("seed: engine %d: name is required", i)
		}
	}
	for i, q := range f.Queries {
		if q.Text == "" {
			return nil, eris.Errorf("seed: query %d: text is required", i)
		}
	}
	return &f, nil
}

// Apply upserts the file's engines and creates its queries.
func (f *File) Apply(ctx context.Context, st store.Store) (*Result, error) {
	res := &Result{}

	for _, e := range f.Engines {
		engine := model.Engine{
			Name:    e.Name,
			Surface: defaultStr(e.Surface, "web"),
			Region:  defaultStr(e.Region, "us"),
			Device:  defaultStr(e.Device, "desktop"),
		}
		if _, err := st.UpsertEngine(ctx, engine); err != nil {
			return res, eris.Wrapf(err, "seed: upsert engine %s", e.Name)
		}
		res.EnginesUpserted++
	}

	existing, err := st.ListQueries(ctx)
	if err != nil {
		return res, eris.Wrap(err, "seed: list queries")
	}
	bySlug := make(map[string]bool, len(existing))
	for _, q := range existing {
		bySlug[q.Slug] = true
	}

	for _, q := range f.Queries {
		s := slug.Make(q.Text)
		if bySlug[s] {
			res.QueriesSkipped++
			zap.L().Debug("seed: query exists, skipping", zap.String("slug", s))
			continue
		}

		active := true
		if q.Active != nil {
			active = *q.Active
		}
		priority := q.Priority
		if priority == 0 {
			priority = 2
		}

		_, err := st.CreateQuery(ctx, model.Query{
			Text:        q.Text,
			Slug:        s,
			FunnelStage: model.FunnelStage(defaultStr(q.FunnelStage, string(model.FunnelConsideration))),
			Priority:    priority,
			TargetURL:   q.TargetURL,
			Active:      active,
		})
		if err != nil {
			return res, eris.Wrapf(err, "seed: create query %s", s)
		}
		bySlug[s] = true
		res.QueriesCreated++
	}

	zap.L().Info("seed: applied",
		zap.Int("engines", res.EnginesUpserted),
		zap.Int("queries_created", res.QueriesCreated),
		zap.Int("queries_skipped", res.QueriesSkipped),
	)
	return res, nil
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
