package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/aeo-lab/internal/model"
	"github.com/sells-group/aeo-lab/internal/pipeline"
	"github.com/sells-group/aeo-lab/internal/slug"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label    string `json:"label"`
		Extended bool   `json:"extended"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "label is required")
		return
	}

	// The run executes in the background; clients poll /api/runs for the
	// result.
	go func() {
		ctx := context.Background()
		var err error
		var run *model.Run
		if req.Extended {
			run, _, err = s.pipe.RunExtended(ctx, req.Label)
		} else {
			run, _, err = s.pipe.Run(ctx, req.Label)
		}
		if err != nil {
			zap.L().Error("server: background run failed",
				zap.String("label", req.Label),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("server: background run complete",
			zap.String("run_id", run.ID),
			zap.String("label", req.Label),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":   "accepted",
		"label":    req.Label,
		"extended": req.Extended,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": emptyIfNil(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// runSummaryRow is one cell of the query-by-engine score matrix.
type runSummaryRow struct {
	ObservationID string `json:"observation_id"`
	QuerySlug     string `json:"query_slug"`
	Engine        string `json:"engine"`
	Presence      int    `json:"presence_score"`
	Prominence    int    `json:"prominence_score"`
	Persuasion    int    `json:"persuasion_score"`
	Total         int    `json:"total_score"`
	Summary       string `json:"summary"`
}

func (s *Server) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	observations, err := s.store.ListObservations(ctx, runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list observations failed")
		return
	}
	scores, err := s.store.ListScoresByRun(ctx, runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list scores failed")
		return
	}
	engines, err := s.store.ListEngines(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list engines failed")
		return
	}

	scoreByObs := make(map[string]model.Score, len(scores))
	for _, sc := range scores {
		scoreByObs[sc.ObservationID] = sc
	}
	engineByID := make(map[string]model.Engine, len(engines))
	for _, e := range engines {
		engineByID[e.ID] = e
	}

	rows := make([]runSummaryRow, 0, len(observations))
	for _, obs := range observations {
		row := runSummaryRow{
			ObservationID: obs.ID,
			Engine:        engineByID[obs.EngineID].Name,
		}
		if q, qErr := s.store.GetQuery(ctx, obs.QueryID); qErr == nil {
			row.QuerySlug = q.Slug
		}
		if sc, ok := scoreByObs[obs.ID]; ok {
			row.Presence = sc.Presence
			row.Prominence = sc.Prominence
			row.Persuasion = sc.Persuasion
			row.Total = sc.Total
			row.Summary = sc.Summary
		}
		rows = append(rows, row)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":  run,
		"rows": rows,
	})
}

func (s *Server) handleStageJob(w http.ResponseWriter, r *http.Request) {
	stageName := chi.URLParam(r, "stage")

	var req struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RunID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	if _, err := s.store.GetRun(r.Context(), req.RunID); err != nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}

	stages := map[string]func(context.Context, string) (*pipeline.StageResult, error){
		model.StageCapture:         s.pipe.CaptureRun,
		model.StageScore:           s.pipe.ScoreRun,
		model.StageCounterfactual:  s.pipe.CounterfactualRun,
		model.StageBrandDelta:      s.pipe.BrandDeltaRun,
		model.StageExpand:          s.pipe.ExpandRun,
		model.StageExpandedAnswers: s.pipe.ExpandedAnswersRun,
		model.StageOpportunity:     s.pipe.OpportunityRun,
	}
	fn, ok := stages[stageName]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown stage")
		return
	}

	res, err := fn(r.Context(), req.RunID)
	if err != nil {
		zap.L().Error("server: stage job failed",
			zap.String("stage", stageName),
			zap.String("run_id", req.RunID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "stage execution failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := s.store.ListQueries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list queries failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": emptyIfNil(queries)})
}

func (s *Server) handleCreateQuery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text        string `json:"text"`
		FunnelStage string `json:"funnel_stage"`
		Priority    int    `json:"priority"`
		TargetURL   string `json:"target_url"`
		Active      *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.Priority == 0 {
		req.Priority = 2
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	q, err := s.store.CreateQuery(r.Context(), model.Query{
		Text:        req.Text,
		Slug:        slug.Make(req.Text),
		FunnelStage: model.FunnelStage(req.FunnelStage),
		Priority:    req.Priority,
		TargetURL:   req.TargetURL,
		Active:      active,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create query failed")
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	q, err := s.store.GetQuery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "query not found")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	observations, err := s.store.ListObservations(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list observations failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"observations": emptyIfNil(observations)})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		writeError(w, http.StatusBadRequest, "run_id is required")
		return
	}
	scores, err := s.store.ListScoresByRun(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list scores failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": emptyIfNil(scores)})
}

func (s *Server) handleCounterfactuals(w http.ResponseWriter, r *http.Request) {
	observationID := r.URL.Query().Get("observation_id")
	if observationID == "" {
		writeError(w, http.StatusBadRequest, "observation_id is required")
		return
	}
	cfs, err := s.store.ListCounterfactuals(r.Context(), observationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list counterfactuals failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"counterfactuals": emptyIfNil(cfs)})
}

func (s *Server) handleBrandDeltas(w http.ResponseWriter, r *http.Request) {
	observationID := r.URL.Query().Get("observation_id")
	if observationID == "" {
		writeError(w, http.StatusBadRequest, "observation_id is required")
		return
	}
	deltas, err := s.store.ListBrandDeltas(r.Context(), observationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list brand deltas failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brand_deltas": emptyIfNil(deltas)})
}

func (s *Server) handleBrandOpportunities(w http.ResponseWriter, r *http.Request) {
	observationID := r.URL.Query().Get("observation_id")
	if observationID == "" {
		writeError(w, http.StatusBadRequest, "observation_id is required")
		return
	}
	opps, err := s.store.ListBrandOpportunities(r.Context(), observationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list brand opportunities failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"brand_opportunities": emptyIfNil(opps)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// emptyIfNil keeps list responses as [] instead of null.
func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
