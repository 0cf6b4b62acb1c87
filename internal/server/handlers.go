package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/opportunity-miner/internal/db"
	"github.com/jonathan/opportunity-miner/internal/report"
	"github.com/jonathan/opportunity-miner/internal/types"
)

const maxListLimit = 500

// RunsResponse represents the response for GET /runs
type RunsResponse struct {
	Runs  []db.Run `json:"runs"`
	Count int      `json:"count"`
}

// BatchesResponse represents the response for GET /runs/{id}/batches
type BatchesResponse struct {
	RunID   int64               `json:"run_id"`
	Batches []types.BatchRecord `json:"batches"`
}

// parseRunID reads the {id} path value.
func parseRunID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &ErrValidation{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

// parseRunIDs reads a comma separated list such as "1,2,5".
func parseRunIDs(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, &ErrValidation{Field: "run_ids", Message: "must be a comma separated list of integers"}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// handleListRuns lists runs newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := db.RunFilter{
		After:  q.Get("runs_after"),
		Before: q.Get("runs_before"),
		Limit:  50,
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			s.errorFromErr(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}
	for field, value := range map[string]string{"runs_after": filter.After, "runs_before": filter.Before} {
		if value == "" {
			continue
		}
		if _, err := report.ParseDay(value); err != nil {
			s.errorFromErr(w, &ErrValidation{Field: field, Message: err.Error()})
			return
		}
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, RunsResponse{Runs: runs, Count: len(runs)})
}

// handleGetRun returns one run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	if run == nil {
		s.errorFromErr(w, &ErrNotFound{Resource: "run", ID: r.PathValue("id")})
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// handleListBatches returns the batch audit trail of a run
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	if run == nil {
		s.errorFromErr(w, &ErrNotFound{Resource: "run", ID: r.PathValue("id")})
		return
	}

	batches, err := s.store.ListBatches(r.Context(), id)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, BatchesResponse{RunID: id, Batches: batches})
}

// handleReport aggregates opportunities by the {kind} grouping
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	kind, err := report.ParseKind(r.PathValue("kind"))
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	q := r.URL.Query()
	runIDs, err := parseRunIDs(q.Get("run_ids"))
	if err != nil {
		s.errorFromErr(w, err)
		return
	}

	filter := report.Filter{
		Kind:        kind,
		RunIDs:      runIDs,
		RunsAfter:   q.Get("runs_after"),
		RunsBefore:  q.Get("runs_before"),
		PostsAfter:  q.Get("posts_after"),
		PostsBefore: q.Get("posts_before"),
		Category:    q.Get("category"),
	}
	if err := filter.Validate(); err != nil {
		s.errorFromErr(w, err)
		return
	}

	rep, err := s.store.Report(r.Context(), filter)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rep)
}

// handleGetOpportunityByURL looks up the stored judgement for a post permalink
func (s *Server) handleGetOpportunityByURL(w http.ResponseWriter, r *http.Request) {
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	if url == "" {
		s.errorFromErr(w, &ErrValidation{Field: "url", Message: "is required"})
		return
	}

	o, err := s.store.GetOpportunityByURL(r.Context(), url)
	if err != nil {
		s.errorFromErr(w, err)
		return
	}
	if o == nil {
		s.errorFromErr(w, &ErrNotFound{Resource: "opportunity", ID: url})
		return
	}
	s.jsonResponse(w, http.StatusOK, o)
}
