// Package postgres persists every pipeline table in a single Postgres
// warehouse. Each refresh stage overwrites its table inside one transaction,
// so readers always see a complete snapshot, never a half-built one.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
)

// insertChunkSize keeps multi-row inserts under Postgres's 65535 bind
// parameter cap for the widest table (18 columns).
const insertChunkSize = 500

// Store wraps the warehouse connection.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Connect opens the warehouse, verifies the connection, and applies the
// schema.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to warehouse: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStoreFromDB wraps an existing connection without running migrations.
// Integration tests use this after applying the schema themselves.
func NewStoreFromDB(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying warehouse schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports warehouse reachability for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// replaceAll deletes every row in table and bulk-inserts rows inside one
// transaction, chunked to stay under the bind parameter limit.
func replaceAll[T any](ctx context.Context, db *sqlx.DB, table, insertSQL string, rows []T) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning %s replace: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clearing %s: %w", table, err)
	}
	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))
		if _, err := tx.NamedExecContext(ctx, insertSQL, rows[start:end]); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s replace: %w", table, err)
	}
	return nil
}

const insertBronzeObservation = `
INSERT INTO bronze_station_observations (
	station_id, station_name, latitude, longitude, elevation, date,
	temp_max, temp_min, precipitation, snowfall, snow_depth,
	temp_max_attributes, temp_min_attributes, precipitation_attributes,
	snowfall_attributes, _ingested_at, _source
) VALUES (
	:station_id, :station_name, :latitude, :longitude, :elevation, :date,
	:temp_max, :temp_min, :precipitation, :snowfall, :snow_depth,
	:temp_max_attributes, :temp_min_attributes, :precipitation_attributes,
	:snowfall_attributes, :_ingested_at, :_source
)`

// ReplaceBronzeObservations overwrites the raw weather table.
func (s *Store) ReplaceBronzeObservations(ctx context.Context, rows []domain.RawStationObservation) error {
	return replaceAll(ctx, s.db, "bronze_station_observations", insertBronzeObservation, rows)
}

// ListBronzeObservations returns the raw weather table ordered by (date, station).
func (s *Store) ListBronzeObservations(ctx context.Context) ([]domain.RawStationObservation, error) {
	var rows []domain.RawStationObservation
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM bronze_station_observations ORDER BY date, station_id`)
	if err != nil {
		return nil, fmt.Errorf("listing bronze observations: %w", err)
	}
	return rows, nil
}

const insertBronzeDemand = `
INSERT INTO bronze_demand (
	date, region_code, region_name, data_type, data_type_name,
	demand_mwh, units, _ingested_at, _source
) VALUES (
	:date, :region_code, :region_name, :data_type, :data_type_name,
	:demand_mwh, :units, :_ingested_at, :_source
)`

// ReplaceBronzeDemand overwrites the raw demand table.
func (s *Store) ReplaceBronzeDemand(ctx context.Context, rows []domain.RawDemandRecord) error {
	return replaceAll(ctx, s.db, "bronze_demand", insertBronzeDemand, rows)
}

// ListBronzeDemand returns the raw demand table ordered by (date, region).
func (s *Store) ListBronzeDemand(ctx context.Context) ([]domain.RawDemandRecord, error) {
	var rows []domain.RawDemandRecord
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM bronze_demand ORDER BY date, region_code`)
	if err != nil {
		return nil, fmt.Errorf("listing bronze demand: %w", err)
	}
	return rows, nil
}

const insertSilverObservation = `
INSERT INTO silver_station_observations (
	station_id, station_name, latitude, longitude, elevation, date,
	temp_max_c, temp_min_c, precipitation_mm, snowfall_cm, snow_depth_mm,
	temp_max_attributes, temp_min_attributes, precipitation_attributes,
	snowfall_attributes, completeness_score, _ingested_at, _processed_at
) VALUES (
	:station_id, :station_name, :latitude, :longitude, :elevation, :date,
	:temp_max_c, :temp_min_c, :precipitation_mm, :snowfall_cm, :snow_depth_mm,
	:temp_max_attributes, :temp_min_attributes, :precipitation_attributes,
	:snowfall_attributes, :completeness_score, :_ingested_at, :_processed_at
)`

// ReplaceSilverObservations overwrites the cleaned weather table.
func (s *Store) ReplaceSilverObservations(ctx context.Context, rows []domain.StationObservation) error {
	return replaceAll(ctx, s.db, "silver_station_observations", insertSilverObservation, rows)
}

// ListSilverObservations returns the cleaned weather table ordered by (date, station).
func (s *Store) ListSilverObservations(ctx context.Context) ([]domain.StationObservation, error) {
	var rows []domain.StationObservation
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM silver_station_observations ORDER BY date, station_id`)
	if err != nil {
		return nil, fmt.Errorf("listing silver observations: %w", err)
	}
	return rows, nil
}

const insertSilverDemand = `
INSERT INTO silver_demand (
	date, region_code, region_name, demand_mwh, units, _ingested_at, _processed_at
) VALUES (
	:date, :region_code, :region_name, :demand_mwh, :units, :_ingested_at, :_processed_at
)`

// ReplaceSilverDemand overwrites the cleaned demand table.
func (s *Store) ReplaceSilverDemand(ctx context.Context, rows []domain.DemandRecord) error {
	return replaceAll(ctx, s.db, "silver_demand", insertSilverDemand, rows)
}

// ListSilverDemand returns the cleaned demand table ordered by (date, region).
func (s *Store) ListSilverDemand(ctx context.Context) ([]domain.DemandRecord, error) {
	var rows []domain.DemandRecord
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM silver_demand ORDER BY date, region_code`)
	if err != nil {
		return nil, fmt.Errorf("listing silver demand: %w", err)
	}
	return rows, nil
}

const insertRegionalDaily = `
INSERT INTO gold_regional_daily_weather (
	date, region, station_count, avg_temp_c, min_temp_c, max_temp_c,
	avg_precipitation_mm, heating_degree_days, cooling_degree_days, _created_at
) VALUES (
	:date, :region, :station_count, :avg_temp_c, :min_temp_c, :max_temp_c,
	:avg_precipitation_mm, :heating_degree_days, :cooling_degree_days, :_created_at
)`

// ReplaceRegionalDaily overwrites the regional daily weather table.
func (s *Store) ReplaceRegionalDaily(ctx context.Context, rows []domain.RegionalDailyWeather) error {
	return replaceAll(ctx, s.db, "gold_regional_daily_weather", insertRegionalDaily, rows)
}

// ListRegionalDaily returns the regional daily table ordered by (date, region).
func (s *Store) ListRegionalDaily(ctx context.Context) ([]domain.RegionalDailyWeather, error) {
	var rows []domain.RegionalDailyWeather
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM gold_regional_daily_weather ORDER BY date, region`)
	if err != nil {
		return nil, fmt.Errorf("listing regional daily weather: %w", err)
	}
	return rows, nil
}

const insertCorrelation = `
INSERT INTO gold_weather_energy_correlation (
	date, region, station_count, avg_temp_c, min_temp_c, max_temp_c,
	avg_precipitation_mm, heating_degree_days, cooling_degree_days,
	demand_mwh, avg_temp_f, demand_per_hdd, demand_per_cdd, _created_at
) VALUES (
	:date, :region, :station_count, :avg_temp_c, :min_temp_c, :max_temp_c,
	:avg_precipitation_mm, :heating_degree_days, :cooling_degree_days,
	:demand_mwh, :avg_temp_f, :demand_per_hdd, :demand_per_cdd, :_created_at
)`

// ReplaceCorrelation overwrites the weather/energy correlation table.
func (s *Store) ReplaceCorrelation(ctx context.Context, rows []domain.WeatherEnergyCorrelation) error {
	return replaceAll(ctx, s.db, "gold_weather_energy_correlation", insertCorrelation, rows)
}

// ListCorrelation returns the correlation table ordered by (date, region).
func (s *Store) ListCorrelation(ctx context.Context) ([]domain.WeatherEnergyCorrelation, error) {
	var rows []domain.WeatherEnergyCorrelation
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM gold_weather_energy_correlation ORDER BY date, region`)
	if err != nil {
		return nil, fmt.Errorf("listing correlation rows: %w", err)
	}
	return rows, nil
}

const insertMonthlySummary = `
INSERT INTO gold_monthly_summary (
	month, region, days, avg_temp_c, total_precipitation_mm,
	total_hdd, total_cdd, avg_demand_mwh, total_demand_mwh, _created_at
) VALUES (
	:month, :region, :days, :avg_temp_c, :total_precipitation_mm,
	:total_hdd, :total_cdd, :avg_demand_mwh, :total_demand_mwh, :_created_at
)`

// ReplaceMonthlySummaries overwrites the monthly rollup table.
func (s *Store) ReplaceMonthlySummaries(ctx context.Context, rows []domain.MonthlySummary) error {
	return replaceAll(ctx, s.db, "gold_monthly_summary", insertMonthlySummary, rows)
}

// ListMonthlySummaries returns the monthly rollups ordered by (month, region).
func (s *Store) ListMonthlySummaries(ctx context.Context) ([]domain.MonthlySummary, error) {
	var rows []domain.MonthlySummary
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM gold_monthly_summary ORDER BY month, region`)
	if err != nil {
		return nil, fmt.Errorf("listing monthly summaries: %w", err)
	}
	return rows, nil
}

// RecordRefresh upserts the latest successful run for a stage.
func (s *Store) RecordRefresh(ctx context.Context, rec domain.RefreshRecord) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO refresh_log (stage, run_id, row_count, refreshed_at)
		VALUES (:stage, :run_id, :row_count, :refreshed_at)
		ON CONFLICT (stage) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			row_count = EXCLUDED.row_count,
			refreshed_at = EXCLUDED.refreshed_at`, rec)
	if err != nil {
		return fmt.Errorf("recording refresh for %s: %w", rec.Stage, err)
	}
	return nil
}

// ListRefreshes returns the last successful run per stage, ordered by stage.
func (s *Store) ListRefreshes(ctx context.Context) ([]domain.RefreshRecord, error) {
	var recs []domain.RefreshRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM refresh_log ORDER BY stage`)
	if err != nil {
		return nil, fmt.Errorf("listing refresh log: %w", err)
	}
	return recs, nil
}
