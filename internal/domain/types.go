package domain

import "time"

// RawStationObservation is one bronze-layer GHCN-D record: raw tenths-of-unit
// integers plus per-element attribute flags, exactly as fetched. The only
// additions are the ingestion audit columns.
type RawStationObservation struct {
	StationID   string    `db:"station_id" json:"station_id"`
	StationName string    `db:"station_name" json:"name"`
	Latitude    float64   `db:"latitude" json:"latitude"`
	Longitude   float64   `db:"longitude" json:"longitude"`
	Elevation   float64   `db:"elevation" json:"elevation"`
	Date        time.Time `db:"date" json:"date"`

	// Temperatures and precipitation are tenths of °C and tenths of mm;
	// snow depth is whole mm. Conversion happens at the silver boundary.
	TempMax   *int `db:"temp_max" json:"temp_max"`
	TempMin   *int `db:"temp_min" json:"temp_min"`
	Precip    *int `db:"precipitation" json:"precipitation"`
	Snowfall  *int `db:"snowfall" json:"snowfall"`
	SnowDepth *int `db:"snow_depth" json:"snow_depth"`

	TempMaxAttrs  string `db:"temp_max_attributes" json:"temp_max_attributes"`
	TempMinAttrs  string `db:"temp_min_attributes" json:"temp_min_attributes"`
	PrecipAttrs   string `db:"precipitation_attributes" json:"precipitation_attributes"`
	SnowfallAttrs string `db:"snowfall_attributes" json:"snowfall_attributes"`

	IngestedAt time.Time `db:"_ingested_at" json:"_ingested_at"`
	Source     string    `db:"_source" json:"_source"`
}

// RawDemandRecord is one bronze-layer EIA record with audit columns.
type RawDemandRecord struct {
	Date         time.Time `db:"date" json:"date"`
	RegionCode   string    `db:"region_code" json:"region_code"`
	RegionName   string    `db:"region_name" json:"region_name"`
	DataType     string    `db:"data_type" json:"data_type"`
	DataTypeName string    `db:"data_type_name" json:"data_type_name"`
	DemandMWh    float64   `db:"demand_mwh" json:"demand_mwh"`
	Units        string    `db:"units" json:"units"`
	IngestedAt   time.Time `db:"_ingested_at" json:"_ingested_at"`
	Source       string    `db:"_source" json:"_source"`
}

// StationObservation is a cleaned silver-layer observation in standard metric
// units. Exactly one row exists per (station, date); rows that failed a hard
// constraint were dropped, never nulled.
type StationObservation struct {
	StationID   string    `db:"station_id" json:"station_id"`
	StationName string    `db:"station_name" json:"station_name"`
	Latitude    float64   `db:"latitude" json:"latitude"`
	Longitude   float64   `db:"longitude" json:"longitude"`
	Elevation   float64   `db:"elevation" json:"elevation"`
	Date        time.Time `db:"date" json:"date"`

	TempMaxC        *float64 `db:"temp_max_c" json:"temp_max_c"`
	TempMinC        *float64 `db:"temp_min_c" json:"temp_min_c"`
	PrecipitationMM *float64 `db:"precipitation_mm" json:"precipitation_mm"`
	SnowfallCM      *float64 `db:"snowfall_cm" json:"snowfall_cm"`
	SnowDepthMM     *float64 `db:"snow_depth_mm" json:"snow_depth_mm"`

	TempMaxAttrs  string `db:"temp_max_attributes" json:"temp_max_attributes"`
	TempMinAttrs  string `db:"temp_min_attributes" json:"temp_min_attributes"`
	PrecipAttrs   string `db:"precipitation_attributes" json:"precipitation_attributes"`
	SnowfallAttrs string `db:"snowfall_attributes" json:"snowfall_attributes"`

	// CompletenessScore counts how many of {tmax, tmin, prcp} were reported (0–3).
	CompletenessScore int `db:"completeness_score" json:"completeness_score"`

	IngestedAt  time.Time `db:"_ingested_at" json:"_ingested_at"`
	ProcessedAt time.Time `db:"_processed_at" json:"_processed_at"`
}

// DemandRecord is a validated silver-layer demand figure for one region-day.
type DemandRecord struct {
	Date        time.Time `db:"date" json:"date"`
	RegionCode  string    `db:"region_code" json:"region_code"`
	RegionName  string    `db:"region_name" json:"region_name"`
	DemandMWh   float64   `db:"demand_mwh" json:"demand_mwh"`
	Units       string    `db:"units" json:"units"`
	IngestedAt  time.Time `db:"_ingested_at" json:"_ingested_at"`
	ProcessedAt time.Time `db:"_processed_at" json:"_processed_at"`
}

// RegionalDailyWeather is one gold-layer row per (date, region): weather
// aggregated across every station mapped into the region that day.
// StationCount is always ≥ 1 and Region is never RegionOther.
type RegionalDailyWeather struct {
	Date               time.Time `db:"date" json:"date"`
	Region             string    `db:"region" json:"region"`
	StationCount       int       `db:"station_count" json:"station_count"`
	AvgTempC           float64   `db:"avg_temp_c" json:"avg_temp_c"`
	MinTempC           float64   `db:"min_temp_c" json:"min_temp_c"`
	MaxTempC           float64   `db:"max_temp_c" json:"max_temp_c"`
	AvgPrecipitationMM *float64  `db:"avg_precipitation_mm" json:"avg_precipitation_mm"`
	HeatingDegreeDays  float64   `db:"heating_degree_days" json:"heating_degree_days"`
	CoolingDegreeDays  float64   `db:"cooling_degree_days" json:"cooling_degree_days"`
	CreatedAt          time.Time `db:"_created_at" json:"_created_at"`
}

// WeatherEnergyCorrelation joins regional weather with regional demand for
// days with sufficient station coverage. This is the sole input to the
// analytical query set, so field names match the published output schema.
type WeatherEnergyCorrelation struct {
	Date               time.Time `db:"date" json:"date"`
	Region             string    `db:"region" json:"region"`
	StationCount       int       `db:"station_count" json:"station_count"`
	AvgTempC           float64   `db:"avg_temp_c" json:"avg_temp_c"`
	MinTempC           float64   `db:"min_temp_c" json:"min_temp_c"`
	MaxTempC           float64   `db:"max_temp_c" json:"max_temp_c"`
	AvgPrecipitationMM *float64  `db:"avg_precipitation_mm" json:"avg_precipitation_mm"`
	HeatingDegreeDays  float64   `db:"heating_degree_days" json:"heating_degree_days"`
	CoolingDegreeDays  float64   `db:"cooling_degree_days" json:"cooling_degree_days"`
	DemandMWh          float64   `db:"demand_mwh" json:"demand_mwh"`
	AvgTempF           float64   `db:"avg_temp_f" json:"avg_temp_f"`
	DemandPerHDD       *float64  `db:"demand_per_hdd" json:"demand_per_hdd"`
	DemandPerCDD       *float64  `db:"demand_per_cdd" json:"demand_per_cdd"`
	CreatedAt          time.Time `db:"_created_at" json:"_created_at"`
}

// MonthlySummary is a gold-layer rollup of the correlation table per
// (year-month, region).
type MonthlySummary struct {
	Month                string    `db:"month" json:"month"` // "2023-06"
	Region               string    `db:"region" json:"region"`
	Days                 int       `db:"days" json:"days"`
	AvgTempC             float64   `db:"avg_temp_c" json:"avg_temp_c"`
	TotalPrecipitationMM float64   `db:"total_precipitation_mm" json:"total_precipitation_mm"`
	TotalHDD             float64   `db:"total_hdd" json:"total_hdd"`
	TotalCDD             float64   `db:"total_cdd" json:"total_cdd"`
	AvgDemandMWh         float64   `db:"avg_demand_mwh" json:"avg_demand_mwh"`
	TotalDemandMWh       float64   `db:"total_demand_mwh" json:"total_demand_mwh"`
	CreatedAt            time.Time `db:"_created_at" json:"_created_at"`
}

// RefreshRecord describes the most recent successful run of one refresh stage.
type RefreshRecord struct {
	Stage       string    `db:"stage" json:"stage"`
	RunID       string    `db:"run_id" json:"run_id"`
	RowCount    int       `db:"row_count" json:"row_count"`
	RefreshedAt time.Time `db:"refreshed_at" json:"refreshed_at"`
}

// Date normalizes a timestamp to midnight UTC, the canonical form for all
// date-keyed tables.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
