// Package export renders a run's score matrix to XLSX or CSV.
package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/store"
)

// Row is one (query, engine) cell of the score matrix.
type Row struct {
	QuerySlug   string
	QueryText   string
	Engine      string
	Model       string
	Presence    int
	Prominence  int
	Persuasion  int
	Total       int
	Summary     string
	Competitors []string
}

var header = []string{
	"query_slug", "query_text", "engine", "model",
	"presence_score", "prominence_score", "persuasion_score", "total_score",
	"summary", "detected_competitors",
}

// BuildRows assembles the score matrix for a run, one row per observation
// in capture order. Observations without a score keep zero sub-scores.
func BuildRows(ctx context.Context, st store.Store, runID string) ([]Row, error) {
	observations, err := st.ListObservations(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "export: list observations")
	}
	scores, err := st.ListScoresByRun(ctx, runID)
	if err != nil {
		return nil, eris.Wrap(err, "export: list scores")
	}
	engines, err := st.ListEngines(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "export: list engines")
	}

	scoreByObs := make(map[string]model.Score, len(scores))
	for _, sc := range scores {
		scoreByObs[sc.ObservationID] = sc
	}
	engineByID := make(map[string]model.Engine, len(engines))
	for _, e := range engines {
		engineByID[e.ID] = e
	}
	queryCache := make(map[string]*model.Query)

	rows := make([]Row, 0, len(observations))
	for _, obs := range observations {
		row := Row{
			Engine: engineByID[obs.EngineID].Name,
			Model:  obs.RawAnswer.Model,
		}

		q, ok := queryCache[obs.QueryID]
		if !ok {
			q, err = st.GetQuery(ctx, obs.QueryID)
			if err != nil {
				return nil, eris.Wrap(err, "export: load query")
			}
			queryCache[obs.QueryID] = q
		}
		row.QuerySlug = q.Slug
		row.QueryText = q.Text

		if sc, found := scoreByObs[obs.ID]; found {
			row.Presence = sc.Presence
			row.Prominence = sc.Prominence
			row.Persuasion = sc.Persuasion
			row.Total = sc.Total
			row.Summary = sc.Summary
			row.Competitors = sc.DetectedCompetitors
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteXLSX renders the matrix as a single-sheet workbook named after the
// run label.
func WriteXLSX(w io.Writer, run *model.Run, rows []Row) error {
	f := xlsx.NewFile()
	sheetName := run.Label
	if len(sheetName) > 31 || sheetName == "" {
		// Sheet names cap at 31 chars in the xlsx format.
		sheetName = "scores"
	}
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hr := sheet.AddRow()
	for _, h := range header {
		hr.AddCell().SetString(h)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(row.QuerySlug)
		r.AddCell().SetString(row.QueryText)
		r.AddCell().SetString(row.Engine)
		r.AddCell().SetString(row.Model)
		r.AddCell().SetInt(row.Presence)
		r.AddCell().SetInt(row.Prominence)
		r.AddCell().SetInt(row.Persuasion)
		r.AddCell().SetInt(row.Total)
		r.AddCell().SetString(row.Summary)
		r.AddCell().SetString(strings.Join(row.Competitors, ", "))
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}

// WriteCSV renders the matrix as CSV with the same columns as the workbook.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, row := range rows {
		record := []string{
			row.QuerySlug,
			row.QueryText,
			row.Engine,
			row.Model,
			strconv.Itoa(row.Presence),
			strconv.Itoa(row.Prominence),
			strconv.Itoa(row.Persuasion),
			strconv.Itoa(row.Total),
			row.Summary,
			strings.Join(row.Competitors, ", "),
		}
		if err := cw.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}
