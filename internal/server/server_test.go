package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonathan/opportunity-miner/internal/db"
	"github.com/jonathan/opportunity-miner/internal/ratelimit"
	"github.com/jonathan/opportunity-miner/internal/report"
	"github.com/jonathan/opportunity-miner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements Store in memory
type fakeStore struct {
	runs          map[int64]*db.Run
	batches       map[int64][]types.BatchRecord
	opportunities map[string]*db.Opportunity
	lastFilter    report.Filter
	lastRunFilter db.RunFilter
	err           error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		runs:          make(map[int64]*db.Run),
		batches:       make(map[int64][]types.BatchRecord),
		opportunities: make(map[string]*db.Opportunity),
	}
}

func (f *fakeStore) GetRun(_ context.Context, id int64) (*db.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs[id], nil
}

func (f *fakeStore) ListRuns(_ context.Context, filter db.RunFilter) ([]db.Run, error) {
	f.lastRunFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	runs := []db.Run{}
	for _, r := range f.runs {
		runs = append(runs, *r)
	}
	return runs, nil
}

func (f *fakeStore) ListBatches(_ context.Context, runID int64) ([]types.BatchRecord, error) {
	return f.batches[runID], nil
}

func (f *fakeStore) GetOpportunityByURL(_ context.Context, url string) (*db.Opportunity, error) {
	return f.opportunities[url], nil
}

func (f *fakeStore) Report(_ context.Context, filter report.Filter) (*report.Report, error) {
	f.lastFilter = filter
	return report.New(filter, []report.Row{{Category: "SaaS", Count: 3}, {Category: "FinTech", Count: 1}}), nil
}

func newTestServer(store Store) *Server {
	return New(store, Config{RateLimit: &ratelimit.Config{Enabled: false}})
}

func doGet(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHandleHealth(t *testing.T) {
	rec := doGet(t, newTestServer(newFakeStore()), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]string
	decodeBody(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleListRuns(t *testing.T) {
	store := newFakeStore()
	store.runs[1] = &db.Run{ID: 1, Subreddit: "freelance", CreatedAt: time.Now()}
	s := newTestServer(store)

	rec := doGet(t, s, "/runs?runs_after=2024-01-01&limit=10000")
	require.Equal(t, http.StatusOK, rec.Code)

	var body RunsResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "freelance", body.Runs[0].Subreddit)
	assert.Equal(t, maxListLimit, store.lastRunFilter.Limit)
	assert.Equal(t, "2024-01-01", store.lastRunFilter.After)
}

func TestHandleListRuns_BadParams(t *testing.T) {
	s := newTestServer(newFakeStore())

	assert.Equal(t, http.StatusBadRequest, doGet(t, s, "/runs?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, s, "/runs?runs_before=01-02-2024").Code)
}

func TestHandleListRuns_StoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")
	rec := doGet(t, newTestServer(store), "/runs")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestHandleGetRun(t *testing.T) {
	store := newFakeStore()
	store.runs[7] = &db.Run{ID: 7, Subreddit: "smallbusiness", Keywords: "crm"}
	s := newTestServer(store)

	rec := doGet(t, s, "/runs/7")
	require.Equal(t, http.StatusOK, rec.Code)
	var run db.Run
	decodeBody(t, rec, &run)
	assert.Equal(t, "crm", run.Keywords)

	assert.Equal(t, http.StatusNotFound, doGet(t, s, "/runs/8").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, s, "/runs/abc").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, s, "/runs/0").Code)
}

func TestHandleListBatches(t *testing.T) {
	store := newFakeStore()
	store.runs[3] = &db.Run{ID: 3}
	store.batches[3] = []types.BatchRecord{{RunID: 3, BatchNumber: 1, NewCount: 2}}
	s := newTestServer(store)

	rec := doGet(t, s, "/runs/3/batches")
	require.Equal(t, http.StatusOK, rec.Code)
	var body BatchesResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, int64(3), body.RunID)
	require.Len(t, body.Batches, 1)
	assert.Equal(t, 2, body.Batches[0].NewCount)

	assert.Equal(t, http.StatusNotFound, doGet(t, s, "/runs/4/batches").Code)
}

func TestHandleReport(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(store)

	rec := doGet(t, s, "/reports/category?run_ids=1,%202&posts_after=2023-01-01")
	require.Equal(t, http.StatusOK, rec.Code)

	var rep report.Report
	decodeBody(t, rec, &rep)
	assert.Equal(t, int64(4), rep.Total)
	assert.InDelta(t, 75.0, rep.Rows[0].Percentage, 0.001)
	assert.Equal(t, []int64{1, 2}, store.lastFilter.RunIDs)
	assert.Equal(t, "2023-01-01", store.lastFilter.PostsAfter)
}

func TestHandleReport_Invalid(t *testing.T) {
	s := newTestServer(newFakeStore())

	tests := []struct {
		name   string
		target string
	}{
		{"unknown kind", "/reports/weekly"},
		{"subcategory without category", "/reports/subcategory"},
		{"bad run ids", "/reports/category?run_ids=1,x"},
		{"bad day", "/reports/category?runs_after=yesterday"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, s, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			decodeBody(t, rec, &body)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandleGetOpportunityByURL(t *testing.T) {
	store := newFakeStore()
	url := "https://www.reddit.com/r/freelance/comments/abc/title/"
	store.opportunities[url] = &db.Opportunity{URL: url, Category: "FinTech", PainPoints: []string{"late payments"}}
	s := newTestServer(store)

	rec := doGet(t, s, "/opportunities/by-url?url="+url)
	require.Equal(t, http.StatusOK, rec.Code)
	var o db.Opportunity
	decodeBody(t, rec, &o)
	assert.Equal(t, []string{"late payments"}, o.PainPoints)

	assert.Equal(t, http.StatusNotFound, doGet(t, s, "/opportunities/by-url?url=https://www.reddit.com/x").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(t, s, "/opportunities/by-url").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(newFakeStore())
	req := httptest.NewRequest(http.MethodPost, "/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := New(newFakeStore(), Config{RateLimit: &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  2,
		DefaultWindow: time.Minute,
	}})
	defer s.rateLimiter.Stop()

	for i := 0; i < 2; i++ {
		rec := doGet(t, s, "/runs")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := doGet(t, s, "/runs")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	decodeBody(t, rec, &body)
	assert.Equal(t, "rate_limit_exceeded", body["error"])

	// health checks are never limited
	assert.Equal(t, http.StatusOK, doGet(t, s, "/health").Code)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s := New(newFakeStore(), Config{Port: 0, RateLimit: &ratelimit.Config{Enabled: false}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_WithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	runID, err := store.CreateRun(ctx, "smallbusiness", "crm")
	require.NoError(t, err)
	_, err = store.PersistOpportunity(ctx, runID, &types.Judgement{
		URL: "https://www.reddit.com/r/smallbusiness/comments/1/", Category: "SaaS", SubCategory: "CRM",
	})
	require.NoError(t, err)

	s := newTestServer(store)
	rec := doGet(t, s, "/reports/subcategory?category=SaaS")
	require.Equal(t, http.StatusOK, rec.Code)

	var rep report.Report
	decodeBody(t, rec, &rep)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, "CRM", rep.Rows[0].SubCategory)
	assert.Equal(t, 100.0, rep.Rows[0].Percentage)
}
