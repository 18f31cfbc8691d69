// Package pipeline orchestrates the warehouse refresh stages. Each stage is a
// full recompute: it reads its upstream tables, recomputes its output with
// the pure functions in domain, and atomically replaces its own table.
// Triggering a stage always re-runs everything downstream of it, so the
// warehouse never serves a gold table built from fresher silver data than it
// was joined against.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
	"github.com/couchcryptid/weather-energy-pipeline/internal/observability"
)

// Stage names, in dependency order.
const (
	StageBronzeWeather   = "bronze_weather"
	StageBronzeDemand    = "bronze_demand"
	StageSilverWeather   = "silver_weather"
	StageSilverDemand    = "silver_demand"
	StageGoldRegional    = "gold_regional"
	StageGoldCorrelation = "gold_correlation"
	StageGoldMonthly     = "gold_monthly"
)

// stageOrder is a topological order of the stage graph. Runs always execute
// in this order so upstream tables are rebuilt before their readers.
var stageOrder = []string{
	StageBronzeWeather,
	StageBronzeDemand,
	StageSilverWeather,
	StageSilverDemand,
	StageGoldRegional,
	StageGoldCorrelation,
	StageGoldMonthly,
}

// stageUpstream maps each stage to its direct inputs.
var stageUpstream = map[string][]string{
	StageBronzeWeather:   nil,
	StageBronzeDemand:    nil,
	StageSilverWeather:   {StageBronzeWeather},
	StageSilverDemand:    {StageBronzeDemand},
	StageGoldRegional:    {StageSilverWeather},
	StageGoldCorrelation: {StageGoldRegional, StageSilverDemand},
	StageGoldMonthly:     {StageGoldCorrelation},
}

// Stages returns the stage names in execution order.
func Stages() []string {
	return slices.Clone(stageOrder)
}

// ValidStage reports whether name is a known stage.
func ValidStage(name string) bool {
	_, ok := stageUpstream[name]
	return ok
}

// WeatherSource fetches raw station observations for an ingestion window.
type WeatherSource interface {
	FetchObservations(ctx context.Context, start, end time.Time) ([]domain.RawStationObservation, error)
}

// DemandSource fetches raw daily demand for every configured region.
type DemandSource interface {
	FetchAllRegions(ctx context.Context, start, end time.Time) ([]domain.RawDemandRecord, error)
}

// CorrelationSink receives each rebuilt correlation snapshot. Optional.
type CorrelationSink interface {
	PublishCorrelations(ctx context.Context, rows []domain.WeatherEnergyCorrelation) error
}

// Warehouse is the storage surface the refresher drives.
type Warehouse interface {
	Ping(ctx context.Context) error

	ReplaceBronzeObservations(ctx context.Context, rows []domain.RawStationObservation) error
	ListBronzeObservations(ctx context.Context) ([]domain.RawStationObservation, error)
	ReplaceBronzeDemand(ctx context.Context, rows []domain.RawDemandRecord) error
	ListBronzeDemand(ctx context.Context) ([]domain.RawDemandRecord, error)

	ReplaceSilverObservations(ctx context.Context, rows []domain.StationObservation) error
	ListSilverObservations(ctx context.Context) ([]domain.StationObservation, error)
	ReplaceSilverDemand(ctx context.Context, rows []domain.DemandRecord) error
	ListSilverDemand(ctx context.Context) ([]domain.DemandRecord, error)

	ReplaceRegionalDaily(ctx context.Context, rows []domain.RegionalDailyWeather) error
	ListRegionalDaily(ctx context.Context) ([]domain.RegionalDailyWeather, error)
	ReplaceCorrelation(ctx context.Context, rows []domain.WeatherEnergyCorrelation) error
	ListCorrelation(ctx context.Context) ([]domain.WeatherEnergyCorrelation, error)
	ReplaceMonthlySummaries(ctx context.Context, rows []domain.MonthlySummary) error

	RecordRefresh(ctx context.Context, rec domain.RefreshRecord) error
	ListRefreshes(ctx context.Context) ([]domain.RefreshRecord, error)
}

// DefaultStaleAfter is how old a stage's last success may be before the
// staleness report flags it. One day of slack on top of a daily cadence.
const DefaultStaleAfter = 26 * time.Hour

// Refresher runs refresh stages in dependency order. Runs are serialized:
// triggering a refresh while one is in flight waits for the mutex.
type Refresher struct {
	weather WeatherSource
	demand  DemandSource
	store   Warehouse
	sink    CorrelationSink

	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	startDate  time.Time
	staleAfter time.Duration

	mu    sync.Mutex
	ready atomic.Bool
}

// New creates a Refresher. sink may be nil when no Kafka brokers are
// configured.
func New(weather WeatherSource, demand DemandSource, store Warehouse, sink CorrelationSink,
	logger *slog.Logger, metrics *observability.Metrics, startDate time.Time, staleAfter time.Duration) *Refresher {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Refresher{
		weather:    weather,
		demand:     demand,
		store:      store,
		sink:       sink,
		logger:     logger,
		metrics:    metrics,
		clock:      clockwork.NewRealClock(),
		startDate:  startDate,
		staleAfter: staleAfter,
	}
}

// StageResult reports one completed stage within a run.
type StageResult struct {
	Stage    string        `json:"stage"`
	RowCount int           `json:"row_count"`
	Duration time.Duration `json:"duration"`
}

// RunAll refreshes every stage in dependency order.
func (r *Refresher) RunAll(ctx context.Context) (string, []StageResult, error) {
	return r.run(ctx, stageOrder)
}

// RunStage refreshes the named stage and everything downstream of it.
func (r *Refresher) RunStage(ctx context.Context, stage string) (string, []StageResult, error) {
	if !ValidStage(stage) {
		return "", nil, fmt.Errorf("unknown stage %q", stage)
	}
	return r.run(ctx, withDownstream(stage))
}

// withDownstream returns stage plus its transitive dependents, in execution
// order.
func withDownstream(stage string) []string {
	affected := map[string]bool{stage: true}
	// stageOrder is topological, so one forward pass closes the set.
	for _, s := range stageOrder {
		for _, up := range stageUpstream[s] {
			if affected[up] {
				affected[s] = true
			}
		}
	}
	run := make([]string, 0, len(affected))
	for _, s := range stageOrder {
		if affected[s] {
			run = append(run, s)
		}
	}
	return run
}

func (r *Refresher) run(ctx context.Context, stages []string) (string, []StageResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runID := uuid.NewString()
	logger := r.logger.With("run_id", runID)
	logger.Info("refresh started", "stages", stages)

	r.metrics.RefreshActive.Set(1)
	defer r.metrics.RefreshActive.Set(0)

	results := make([]StageResult, 0, len(stages))
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return runID, results, err
		}

		start := r.clock.Now()
		count, err := r.runStage(ctx, stage)
		elapsed := r.clock.Now().Sub(start)
		if err != nil {
			r.metrics.RefreshRuns.WithLabelValues(stage, "error").Inc()
			logger.Error("stage failed", "stage", stage, "error", err)
			return runID, results, fmt.Errorf("stage %s: %w", stage, err)
		}

		r.metrics.RefreshRuns.WithLabelValues(stage, "success").Inc()
		r.metrics.RefreshDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
		r.metrics.StageRowCount.WithLabelValues(stage).Set(float64(count))

		rec := domain.RefreshRecord{
			Stage:       stage,
			RunID:       runID,
			RowCount:    count,
			RefreshedAt: start.UTC(),
		}
		if err := r.store.RecordRefresh(ctx, rec); err != nil {
			return runID, results, fmt.Errorf("stage %s: %w", stage, err)
		}

		logger.Info("stage refreshed", "stage", stage, "rows", count, "duration", elapsed)
		results = append(results, StageResult{Stage: stage, RowCount: count, Duration: elapsed})
	}

	r.ready.Store(true)
	logger.Info("refresh finished", "stages", len(results))
	return runID, results, nil
}

// runStage executes one stage's recompute-and-replace and returns the number
// of rows written.
func (r *Refresher) runStage(ctx context.Context, stage string) (int, error) {
	switch stage {
	case StageBronzeWeather:
		return r.refreshBronzeWeather(ctx)
	case StageBronzeDemand:
		return r.refreshBronzeDemand(ctx)
	case StageSilverWeather:
		return r.refreshSilverWeather(ctx)
	case StageSilverDemand:
		return r.refreshSilverDemand(ctx)
	case StageGoldRegional:
		return r.refreshGoldRegional(ctx)
	case StageGoldCorrelation:
		return r.refreshGoldCorrelation(ctx)
	case StageGoldMonthly:
		return r.refreshGoldMonthly(ctx)
	default:
		return 0, fmt.Errorf("unknown stage %q", stage)
	}
}

// ingestionWindow is [configured start, today].
func (r *Refresher) ingestionWindow() (time.Time, time.Time) {
	now := r.clock.Now().UTC()
	return r.startDate, domain.Date(now.Year(), now.Month(), now.Day())
}

func (r *Refresher) refreshBronzeWeather(ctx context.Context) (int, error) {
	start, end := r.ingestionWindow()
	rows, err := r.weather.FetchObservations(ctx, start, end)
	if err != nil {
		return 0, err
	}
	if err := r.store.ReplaceBronzeObservations(ctx, rows); err != nil {
		return 0, err
	}
	r.metrics.RowsIngested.WithLabelValues("weather").Add(float64(len(rows)))
	return len(rows), nil
}

func (r *Refresher) refreshBronzeDemand(ctx context.Context) (int, error) {
	start, end := r.ingestionWindow()
	rows, err := r.demand.FetchAllRegions(ctx, start, end)
	if err != nil {
		return 0, err
	}
	if err := r.store.ReplaceBronzeDemand(ctx, rows); err != nil {
		return 0, err
	}
	r.metrics.RowsIngested.WithLabelValues("demand").Add(float64(len(rows)))
	return len(rows), nil
}

func (r *Refresher) refreshSilverWeather(ctx context.Context) (int, error) {
	raws, err := r.store.ListBronzeObservations(ctx)
	if err != nil {
		return 0, err
	}
	out := make([]domain.StationObservation, 0, len(raws))
	for _, raw := range raws {
		obs, reason, ok := domain.NormalizeObservation(raw)
		if !ok {
			r.metrics.RowsDropped.WithLabelValues("weather", reason).Inc()
			continue
		}
		out = append(out, obs)
	}
	if err := r.store.ReplaceSilverObservations(ctx, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func (r *Refresher) refreshSilverDemand(ctx context.Context) (int, error) {
	raws, err := r.store.ListBronzeDemand(ctx)
	if err != nil {
		return 0, err
	}
	out := make([]domain.DemandRecord, 0, len(raws))
	for _, raw := range raws {
		rec, reason, ok := domain.NormalizeDemand(raw)
		if !ok {
			r.metrics.RowsDropped.WithLabelValues("demand", reason).Inc()
			continue
		}
		out = append(out, rec)
	}
	if err := r.store.ReplaceSilverDemand(ctx, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func (r *Refresher) refreshGoldRegional(ctx context.Context) (int, error) {
	obs, err := r.store.ListSilverObservations(ctx)
	if err != nil {
		return 0, err
	}
	rows := domain.AggregateRegionalDaily(obs)
	if err := r.store.ReplaceRegionalDaily(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *Refresher) refreshGoldCorrelation(ctx context.Context) (int, error) {
	weather, err := r.store.ListRegionalDaily(ctx)
	if err != nil {
		return 0, err
	}
	demand, err := r.store.ListSilverDemand(ctx)
	if err != nil {
		return 0, err
	}
	rows := domain.BuildCorrelation(weather, demand)
	if err := r.store.ReplaceCorrelation(ctx, rows); err != nil {
		return 0, err
	}
	r.publish(ctx, rows)
	return len(rows), nil
}

// publish forwards a correlation snapshot to the sink. The warehouse is the
// source of truth, so a sink outage does not fail the stage.
func (r *Refresher) publish(ctx context.Context, rows []domain.WeatherEnergyCorrelation) {
	if r.sink == nil || len(rows) == 0 {
		return
	}
	if err := r.sink.PublishCorrelations(ctx, rows); err != nil {
		r.logger.Error("sink publish failed", "error", err, "rows", len(rows))
		r.metrics.SinkErrors.Inc()
		return
	}
	r.metrics.SinkPublished.Add(float64(len(rows)))
}

func (r *Refresher) refreshGoldMonthly(ctx context.Context) (int, error) {
	corr, err := r.store.ListCorrelation(ctx)
	if err != nil {
		return 0, err
	}
	rows := domain.MonthlySummaries(corr)
	if err := r.store.ReplaceMonthlySummaries(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// CheckReadiness returns nil once the warehouse is reachable and at least one
// refresh has completed, either in this process or a previous one.
func (r *Refresher) CheckReadiness(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("warehouse unreachable: %w", err)
	}
	if r.ready.Load() {
		return nil
	}
	recs, err := r.store.ListRefreshes(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return errors.New("no refresh has completed yet")
	}
	r.ready.Store(true)
	return nil
}

// StageStatus reports freshness for one stage.
type StageStatus struct {
	Stage       string     `json:"stage"`
	RunID       string     `json:"run_id,omitempty"`
	RowCount    int        `json:"row_count"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
	AgeSeconds  float64    `json:"age_seconds"`
	Stale       bool       `json:"stale"`
}

// Staleness reports the last successful run of every stage. Stages that have
// never run, or whose last success is older than the threshold, are flagged
// stale. The per-stage staleness gauge is updated as a side effect.
func (r *Refresher) Staleness(ctx context.Context) ([]StageStatus, error) {
	recs, err := r.store.ListRefreshes(ctx)
	if err != nil {
		return nil, err
	}
	byStage := make(map[string]domain.RefreshRecord, len(recs))
	for _, rec := range recs {
		byStage[rec.Stage] = rec
	}

	now := r.clock.Now()
	statuses := make([]StageStatus, 0, len(stageOrder))
	for _, stage := range stageOrder {
		rec, ok := byStage[stage]
		if !ok {
			statuses = append(statuses, StageStatus{Stage: stage, Stale: true})
			continue
		}
		age := now.Sub(rec.RefreshedAt)
		r.metrics.StageStaleness.WithLabelValues(stage).Set(age.Seconds())
		refreshedAt := rec.RefreshedAt
		statuses = append(statuses, StageStatus{
			Stage:       stage,
			RunID:       rec.RunID,
			RowCount:    rec.RowCount,
			RefreshedAt: &refreshedAt,
			AgeSeconds:  age.Seconds(),
			Stale:       age > r.staleAfter,
		})
	}
	return statuses, nil
}
