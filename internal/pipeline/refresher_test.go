package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
	"github.com/couchcryptid/weather-energy-pipeline/internal/observability"
)

// --- mocks ---

type mockWeatherSource struct {
	rows       []domain.RawStationObservation
	err        error
	start, end time.Time
}

func (m *mockWeatherSource) FetchObservations(_ context.Context, start, end time.Time) ([]domain.RawStationObservation, error) {
	m.start, m.end = start, end
	return m.rows, m.err
}

type mockDemandSource struct {
	rows []domain.RawDemandRecord
	err  error
}

func (m *mockDemandSource) FetchAllRegions(_ context.Context, _, _ time.Time) ([]domain.RawDemandRecord, error) {
	return m.rows, m.err
}

type mockSink struct {
	published [][]domain.WeatherEnergyCorrelation
	err       error
}

func (m *mockSink) PublishCorrelations(_ context.Context, rows []domain.WeatherEnergyCorrelation) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, rows)
	return nil
}

// memoryWarehouse keeps every table in memory and supports per-method
// failure injection.
type memoryWarehouse struct {
	bronzeObs    []domain.RawStationObservation
	bronzeDemand []domain.RawDemandRecord
	silverObs    []domain.StationObservation
	silverDemand []domain.DemandRecord
	regional     []domain.RegionalDailyWeather
	correlation  []domain.WeatherEnergyCorrelation
	monthly      []domain.MonthlySummary
	refreshes    map[string]domain.RefreshRecord

	pingErr                error
	replaceBronzeDemandErr error
}

func newMemoryWarehouse() *memoryWarehouse {
	return &memoryWarehouse{refreshes: make(map[string]domain.RefreshRecord)}
}

func (w *memoryWarehouse) Ping(context.Context) error { return w.pingErr }

func (w *memoryWarehouse) ReplaceBronzeObservations(_ context.Context, rows []domain.RawStationObservation) error {
	w.bronzeObs = rows
	return nil
}

func (w *memoryWarehouse) ListBronzeObservations(context.Context) ([]domain.RawStationObservation, error) {
	return w.bronzeObs, nil
}

func (w *memoryWarehouse) ReplaceBronzeDemand(_ context.Context, rows []domain.RawDemandRecord) error {
	if w.replaceBronzeDemandErr != nil {
		return w.replaceBronzeDemandErr
	}
	w.bronzeDemand = rows
	return nil
}

func (w *memoryWarehouse) ListBronzeDemand(context.Context) ([]domain.RawDemandRecord, error) {
	return w.bronzeDemand, nil
}

func (w *memoryWarehouse) ReplaceSilverObservations(_ context.Context, rows []domain.StationObservation) error {
	w.silverObs = rows
	return nil
}

func (w *memoryWarehouse) ListSilverObservations(context.Context) ([]domain.StationObservation, error) {
	return w.silverObs, nil
}

func (w *memoryWarehouse) ReplaceSilverDemand(_ context.Context, rows []domain.DemandRecord) error {
	w.silverDemand = rows
	return nil
}

func (w *memoryWarehouse) ListSilverDemand(context.Context) ([]domain.DemandRecord, error) {
	return w.silverDemand, nil
}

func (w *memoryWarehouse) ReplaceRegionalDaily(_ context.Context, rows []domain.RegionalDailyWeather) error {
	w.regional = rows
	return nil
}

func (w *memoryWarehouse) ListRegionalDaily(context.Context) ([]domain.RegionalDailyWeather, error) {
	return w.regional, nil
}

func (w *memoryWarehouse) ReplaceCorrelation(_ context.Context, rows []domain.WeatherEnergyCorrelation) error {
	w.correlation = rows
	return nil
}

func (w *memoryWarehouse) ListCorrelation(context.Context) ([]domain.WeatherEnergyCorrelation, error) {
	return w.correlation, nil
}

func (w *memoryWarehouse) ReplaceMonthlySummaries(_ context.Context, rows []domain.MonthlySummary) error {
	w.monthly = rows
	return nil
}

func (w *memoryWarehouse) RecordRefresh(_ context.Context, rec domain.RefreshRecord) error {
	w.refreshes[rec.Stage] = rec
	return nil
}

func (w *memoryWarehouse) ListRefreshes(context.Context) ([]domain.RefreshRecord, error) {
	recs := make([]domain.RefreshRecord, 0, len(w.refreshes))
	for _, rec := range w.refreshes {
		recs = append(recs, rec)
	}
	return recs, nil
}

// --- fixtures ---

func intp(v int) *int { return &v }

// rawObs builds a valid raw observation in the PJM box with avg temp 30°C.
func rawObs(stationID string, date time.Time) domain.RawStationObservation {
	return domain.RawStationObservation{
		StationID:  stationID,
		Latitude:   39.5,
		Longitude:  -77.0,
		Date:       date,
		TempMax:    intp(320),
		TempMin:    intp(280),
		Precip:     intp(0),
		IngestedAt: time.Now().UTC(),
		Source:     "noaa_ghcnd",
	}
}

func newRefresher(t *testing.T, w *mockWeatherSource, d *mockDemandSource, store Warehouse, sink CorrelationSink) *Refresher {
	t.Helper()
	r := New(w, d, store, sink,
		slog.Default(), observability.NewMetricsForTesting(),
		domain.Date(2024, time.January, 1), DefaultStaleAfter)
	r.clock = clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC))
	return r
}

// --- tests ---

func TestRunAll(t *testing.T) {
	date := domain.Date(2024, time.January, 15)
	raws := make([]domain.RawStationObservation, 0, 7)
	for _, id := range []string{"S1", "S2", "S3", "S4", "S5", "S6"} {
		raws = append(raws, rawObs(id, date))
	}
	// One row out of temperature bounds; silver must drop it.
	bad := rawObs("S7", date)
	bad.TempMax = intp(700)
	raws = append(raws, bad)

	weather := &mockWeatherSource{rows: raws}
	demand := &mockDemandSource{rows: []domain.RawDemandRecord{{
		Date: date, RegionCode: "PJM", DemandMWh: 50_000, IngestedAt: time.Now().UTC(), Source: "eia_api",
	}}}
	store := newMemoryWarehouse()
	sink := &mockSink{}

	r := newRefresher(t, weather, demand, store, sink)
	runID, results, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, runID)
	require.Len(t, results, len(Stages()))

	// The fetch window runs from the configured start to "today" of the clock.
	assert.Equal(t, domain.Date(2024, time.January, 1), weather.start)
	assert.Equal(t, domain.Date(2024, time.April, 26), weather.end)

	assert.Len(t, store.bronzeObs, 7)
	assert.Len(t, store.silverObs, 6, "out-of-bounds station dropped")
	assert.Len(t, store.silverDemand, 1)

	require.Len(t, store.regional, 1)
	regional := store.regional[0]
	assert.Equal(t, "PJM", regional.Region)
	assert.Equal(t, 6, regional.StationCount)
	assert.InDelta(t, 30.0, regional.AvgTempC, 1e-9)
	assert.InDelta(t, 12.0, regional.CoolingDegreeDays, 1e-9)

	require.Len(t, store.correlation, 1)
	corr := store.correlation[0]
	assert.InDelta(t, 50_000.0, corr.DemandMWh, 1e-9)
	assert.InDelta(t, 86.0, corr.AvgTempF, 1e-9)
	require.NotNil(t, corr.DemandPerCDD)
	assert.InDelta(t, 50_000.0/12.0, *corr.DemandPerCDD, 0.01)
	assert.Nil(t, corr.DemandPerHDD)

	require.Len(t, store.monthly, 1)
	assert.Equal(t, "2024-01", store.monthly[0].Month)

	require.Len(t, sink.published, 1)
	assert.Len(t, sink.published[0], 1)

	assert.Len(t, store.refreshes, len(Stages()))
	for stage, rec := range store.refreshes {
		assert.Equal(t, runID, rec.RunID, stage)
	}
	assert.NoError(t, r.CheckReadiness(context.Background()))
}

func TestRunStage_RunsDownstream(t *testing.T) {
	r := newRefresher(t, &mockWeatherSource{}, &mockDemandSource{}, newMemoryWarehouse(), nil)

	_, results, err := r.RunStage(context.Background(), StageSilverWeather)
	require.NoError(t, err)

	stages := make([]string, len(results))
	for i, res := range results {
		stages[i] = res.Stage
	}
	assert.Equal(t, []string{
		StageSilverWeather,
		StageGoldRegional,
		StageGoldCorrelation,
		StageGoldMonthly,
	}, stages)
}

func TestRunStage_Unknown(t *testing.T) {
	r := newRefresher(t, &mockWeatherSource{}, &mockDemandSource{}, newMemoryWarehouse(), nil)

	_, _, err := r.RunStage(context.Background(), "gold_plated")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestRunAll_StageFailureStopsRun(t *testing.T) {
	store := newMemoryWarehouse()
	store.replaceBronzeDemandErr = errors.New("connection reset")

	r := newRefresher(t, &mockWeatherSource{}, &mockDemandSource{}, store, nil)
	_, results, err := r.RunAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage bronze_demand")

	// Only the stage before the failure completed; nothing downstream ran.
	require.Len(t, results, 1)
	assert.Equal(t, StageBronzeWeather, results[0].Stage)
	assert.Len(t, store.refreshes, 1)
}

func TestSinkFailureDoesNotFailStage(t *testing.T) {
	store := newMemoryWarehouse()
	store.regional = []domain.RegionalDailyWeather{{
		Date: domain.Date(2024, time.January, 15), Region: "PJM", StationCount: 6,
		AvgTempC: 30, MinTempC: 28, MaxTempC: 32, CoolingDegreeDays: 12,
	}}
	store.silverDemand = []domain.DemandRecord{{
		Date: domain.Date(2024, time.January, 15), RegionCode: "PJM", DemandMWh: 50_000,
	}}

	r := newRefresher(t, &mockWeatherSource{}, &mockDemandSource{}, store, &mockSink{err: errors.New("broker down")})
	_, results, err := r.RunStage(context.Background(), StageGoldCorrelation)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 1, results[0].RowCount)
	assert.Len(t, store.correlation, 1)
}

func TestCheckReadiness(t *testing.T) {
	store := newMemoryWarehouse()
	r := newRefresher(t, &mockWeatherSource{}, &mockDemandSource{}, store, nil)

	err := r.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no refresh has completed yet")

	// A refresh recorded by a previous process counts.
	store.refreshes[StageGoldMonthly] = domain.RefreshRecord{
		Stage: StageGoldMonthly, RunID: "prior", RefreshedAt: time.Now().UTC(),
	}
	assert.NoError(t, r.CheckReadiness(context.Background()))

	store.pingErr = errors.New("dial tcp: refused")
	assert.Error(t, r.CheckReadiness(context.Background()))
}

func TestStaleness(t *testing.T) {
	now := time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)
	store := newMemoryWarehouse()
	store.refreshes[StageBronzeWeather] = domain.RefreshRecord{
		Stage: StageBronzeWeather, RunID: "run-1", RowCount: 100,
		RefreshedAt: now.Add(-time.Hour),
	}
	store.refreshes[StageBronzeDemand] = domain.RefreshRecord{
		Stage: StageBronzeDemand, RunID: "run-0", RowCount: 40,
		RefreshedAt: now.Add(-48 * time.Hour),
	}

	r := newRefresher(t, &mockWeatherSource{}, &mockDemandSource{}, store, nil)
	statuses, err := r.Staleness(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, len(Stages()))

	byStage := make(map[string]StageStatus, len(statuses))
	for _, st := range statuses {
		byStage[st.Stage] = st
	}

	fresh := byStage[StageBronzeWeather]
	assert.False(t, fresh.Stale)
	assert.InDelta(t, 3600, fresh.AgeSeconds, 1)
	assert.Equal(t, 100, fresh.RowCount)

	assert.True(t, byStage[StageBronzeDemand].Stale, "older than the threshold")
	neverRun := byStage[StageGoldMonthly]
	assert.True(t, neverRun.Stale)
	assert.Nil(t, neverRun.RefreshedAt)
}

func TestWithDownstream(t *testing.T) {
	tests := []struct {
		stage string
		want  []string
	}{
		{StageGoldMonthly, []string{StageGoldMonthly}},
		{StageBronzeDemand, []string{StageBronzeDemand, StageSilverDemand, StageGoldCorrelation, StageGoldMonthly}},
		{StageBronzeWeather, []string{StageBronzeWeather, StageSilverWeather, StageGoldRegional, StageGoldCorrelation, StageGoldMonthly}},
	}
	for _, tc := range tests {
		t.Run(tc.stage, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, withDownstream(tc.stage)); diff != "" {
				t.Errorf("downstream set mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
