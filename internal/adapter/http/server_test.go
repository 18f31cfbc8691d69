package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/weather-energy-pipeline/internal/adapter/http"
	"github.com/couchcryptid/weather-energy-pipeline/internal/pipeline"
)

type mockRefresher struct {
	readyErr   error
	runErr     error
	staleErr   error
	ranStage   string
	ranAll     bool
	statuses   []pipeline.StageStatus
	runResults []pipeline.StageResult
}

func (m *mockRefresher) RunAll(_ context.Context) (string, []pipeline.StageResult, error) {
	m.ranAll = true
	return "run-all", m.runResults, m.runErr
}

func (m *mockRefresher) RunStage(_ context.Context, stage string) (string, []pipeline.StageResult, error) {
	m.ranStage = stage
	return "run-stage", m.runResults, m.runErr
}

func (m *mockRefresher) Staleness(_ context.Context) ([]pipeline.StageStatus, error) {
	return m.statuses, m.staleErr
}

func (m *mockRefresher) CheckReadiness(_ context.Context) error { return m.readyErr }

func newTestServer(m *mockRefresher) *httpadapter.Server {
	return httpadapter.NewServer(":0", m, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockRefresher{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockRefresher{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockRefresher{readyErr: fmt.Errorf("no refresh has completed yet")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no refresh has completed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockRefresher{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRefreshAll(t *testing.T) {
	m := &mockRefresher{runResults: []pipeline.StageResult{
		{Stage: pipeline.StageBronzeWeather, RowCount: 120},
	}}
	srv := newTestServer(m)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, m.ranAll)

	var body struct {
		RunID  string                 `json:"run_id"`
		Stages []pipeline.StageResult `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-all", body.RunID)
	require.Len(t, body.Stages, 1)
	assert.Equal(t, 120, body.Stages[0].RowCount)
}

func TestRefreshStage(t *testing.T) {
	m := &mockRefresher{}
	srv := newTestServer(m)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh/silver_weather", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pipeline.StageSilverWeather, m.ranStage)
}

func TestRefreshUnknownStageReturns404(t *testing.T) {
	m := &mockRefresher{}
	srv := newTestServer(m)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh/platinum_weather", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, m.ranStage, "refresher must not run for an unknown stage")
}

func TestRefreshFailureReturns500WithPartialResults(t *testing.T) {
	m := &mockRefresher{
		runErr: errors.New("stage bronze_demand: connection reset"),
		runResults: []pipeline.StageResult{
			{Stage: pipeline.StageBronzeWeather, RowCount: 120},
		},
	}
	srv := newTestServer(m)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Error  string                 `json:"error"`
		Stages []pipeline.StageResult `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "bronze_demand")
	assert.Len(t, body.Stages, 1, "completed stages are still reported")
}

func TestStaleness(t *testing.T) {
	at := time.Date(2024, 4, 26, 6, 0, 0, 0, time.UTC)
	m := &mockRefresher{statuses: []pipeline.StageStatus{
		{Stage: pipeline.StageBronzeWeather, RunID: "run-1", RowCount: 100, RefreshedAt: &at, AgeSeconds: 3600},
		{Stage: pipeline.StageGoldMonthly, Stale: true},
	}}
	srv := newTestServer(m)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/staleness", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stages []pipeline.StageStatus `json:"stages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Stages, 2)
	assert.Equal(t, "run-1", body.Stages[0].RunID)
	assert.True(t, body.Stages[1].Stale)
}

func TestStalenessErrorReturns500(t *testing.T) {
	srv := newTestServer(&mockRefresher{staleErr: errors.New("warehouse unreachable")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/staleness", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
