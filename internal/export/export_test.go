package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/store"
)

func seedExportData(t *testing.T) (store.Store, *model.Run) {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "export.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	t.Cleanup(func() { _ = st.Close() })

	run, err := st.CreateRun(ctx, "weekly sweep")
	require.NoError(t, err)
	q, err := st.CreateQuery(ctx, model.Query{
		Text: "best crm for small business", Slug: "best-crm-for-small-business",
		FunnelStage: model.FunnelConsideration, Priority: 1, Active: true,
	})
	require.NoError(t, err)
	eng, err := st.UpsertEngine(ctx, model.Engine{
		Name: "chatgpt", Surface: "web", Region: "us", Device: "desktop",
	})
	require.NoError(t, err)
	obs, err := st.CreateObservation(ctx, model.Observation{
		RunID: run.ID, QueryID: q.ID, EngineID: eng.ID,
		RawAnswer:    model.RawAnswer{Engine: "chatgpt", Model: "openai/gpt-4o-mini", Content: "answer"},
		ParsedAnswer: "answer",
	})
	require.NoError(t, err)
	_, err = st.CreateScore(ctx, model.Score{
		ObservationID: obs.ID, Presence: 2, Prominence: 1, Persuasion: 3, Total: 6,
		Summary:             "mid-list mention",
		DetectedCompetitors: []string{"hubspot", "salesforce"},
	})
	require.NoError(t, err)

	// Unscored observation keeps zero sub-scores in the matrix.
	q2, err := st.CreateQuery(ctx, model.Query{
		Text: "crm pricing", Slug: "crm-pricing",
		FunnelStage: model.FunnelDecision, Priority: 2, Active: true,
	})
	require.NoError(t, err)
	_, err = st.CreateObservation(ctx, model.Observation{
		RunID: run.ID, QueryID: q2.ID, EngineID: eng.ID,
		RawAnswer:    model.RawAnswer{Engine: "chatgpt", Model: "openai/gpt-4o-mini", Content: "pricing answer"},
		ParsedAnswer: "pricing answer",
	})
	require.NoError(t, err)

	return st, run
}

func TestBuildRows(t *testing.T) {
	st, run := seedExportData(t)

	rows, err := BuildRows(context.Background(), st, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "best-crm-for-small-business", rows[0].QuerySlug)
	assert.Equal(t, "chatgpt", rows[0].Engine)
	assert.Equal(t, "openai/gpt-4o-mini", rows[0].Model)
	assert.Equal(t, 6, rows[0].Total)
	assert.Equal(t, []string{"hubspot", "salesforce"}, rows[0].Competitors)

	assert.Equal(t, "crm-pricing", rows[1].QuerySlug)
	assert.Equal(t, 0, rows[1].Total)
	assert.Empty(t, rows[1].Summary)
}

func TestWriteXLSX(t *testing.T) {
	st, run := seedExportData(t)

	rows, err := BuildRows(context.Background(), st, run.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, run, rows))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, "weekly sweep", f.Sheets[0].Name)

	sheet := f.Sheets[0]
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "query_slug", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "best-crm-for-small-business", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "6", sheet.Rows[1].Cells[7].String())
	assert.Equal(t, "hubspot, salesforce", sheet.Rows[1].Cells[9].String())
}

func TestWriteXLSXLongLabel(t *testing.T) {
	st, run := seedExportData(t)
	run.Label = "a label that is far too long to be a valid sheet name"

	rows, err := BuildRows(context.Background(), st, run.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, run, rows))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "scores", f.Sheets[0].Name)
}

func TestWriteCSV(t *testing.T) {
	st, run := seedExportData(t)

	rows, err := BuildRows(context.Background(), st, run.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "query_slug", records[0][0])
	assert.Equal(t, "best-crm-for-small-business", records[1][0])
	assert.Equal(t, "6", records[1][7])
	assert.Equal(t, "hubspot, salesforce", records[1][9])
}
