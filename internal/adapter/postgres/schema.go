package postgres

// schema defines every warehouse table. Ownership follows the medallion
// layout: each table is written only by its own refresh stage and read only
// by the stages downstream of it.
const schema = `
CREATE TABLE IF NOT EXISTS bronze_station_observations (
	station_id               TEXT             NOT NULL,
	station_name             TEXT             NOT NULL DEFAULT '',
	latitude                 DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude                DOUBLE PRECISION NOT NULL DEFAULT 0,
	elevation                DOUBLE PRECISION NOT NULL DEFAULT 0,
	date                     DATE             NOT NULL,
	temp_max                 INTEGER,
	temp_min                 INTEGER,
	precipitation            INTEGER,
	snowfall                 INTEGER,
	snow_depth               INTEGER,
	temp_max_attributes      TEXT             NOT NULL DEFAULT '',
	temp_min_attributes      TEXT             NOT NULL DEFAULT '',
	precipitation_attributes TEXT             NOT NULL DEFAULT '',
	snowfall_attributes      TEXT             NOT NULL DEFAULT '',
	_ingested_at             TIMESTAMPTZ      NOT NULL,
	_source                  TEXT             NOT NULL
);

CREATE TABLE IF NOT EXISTS bronze_demand (
	date           DATE             NOT NULL,
	region_code    TEXT             NOT NULL,
	region_name    TEXT             NOT NULL DEFAULT '',
	data_type      TEXT             NOT NULL DEFAULT '',
	data_type_name TEXT             NOT NULL DEFAULT '',
	demand_mwh     DOUBLE PRECISION NOT NULL,
	units          TEXT             NOT NULL DEFAULT '',
	_ingested_at   TIMESTAMPTZ      NOT NULL,
	_source        TEXT             NOT NULL
);

CREATE TABLE IF NOT EXISTS silver_station_observations (
	station_id               TEXT             NOT NULL,
	station_name             TEXT             NOT NULL DEFAULT '',
	latitude                 DOUBLE PRECISION NOT NULL,
	longitude                DOUBLE PRECISION NOT NULL,
	elevation                DOUBLE PRECISION NOT NULL DEFAULT 0,
	date                     DATE             NOT NULL,
	temp_max_c               DOUBLE PRECISION,
	temp_min_c               DOUBLE PRECISION,
	precipitation_mm         DOUBLE PRECISION,
	snowfall_cm              DOUBLE PRECISION,
	snow_depth_mm            DOUBLE PRECISION,
	temp_max_attributes      TEXT             NOT NULL DEFAULT '',
	temp_min_attributes      TEXT             NOT NULL DEFAULT '',
	precipitation_attributes TEXT             NOT NULL DEFAULT '',
	snowfall_attributes      TEXT             NOT NULL DEFAULT '',
	completeness_score       INTEGER          NOT NULL,
	_ingested_at             TIMESTAMPTZ      NOT NULL,
	_processed_at            TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (station_id, date)
);

CREATE TABLE IF NOT EXISTS silver_demand (
	date          DATE             NOT NULL,
	region_code   TEXT             NOT NULL,
	region_name   TEXT             NOT NULL DEFAULT '',
	demand_mwh    DOUBLE PRECISION NOT NULL,
	units         TEXT             NOT NULL DEFAULT '',
	_ingested_at  TIMESTAMPTZ      NOT NULL,
	_processed_at TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (date, region_code)
);

CREATE TABLE IF NOT EXISTS gold_regional_daily_weather (
	date                 DATE             NOT NULL,
	region               TEXT             NOT NULL,
	station_count        INTEGER          NOT NULL CHECK (station_count >= 1),
	avg_temp_c           DOUBLE PRECISION NOT NULL,
	min_temp_c           DOUBLE PRECISION NOT NULL,
	max_temp_c           DOUBLE PRECISION NOT NULL,
	avg_precipitation_mm DOUBLE PRECISION,
	heating_degree_days  DOUBLE PRECISION NOT NULL,
	cooling_degree_days  DOUBLE PRECISION NOT NULL,
	_created_at          TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (date, region)
);

CREATE TABLE IF NOT EXISTS gold_weather_energy_correlation (
	date                 DATE             NOT NULL,
	region               TEXT             NOT NULL,
	station_count        INTEGER          NOT NULL CHECK (station_count >= 5),
	avg_temp_c           DOUBLE PRECISION NOT NULL,
	min_temp_c           DOUBLE PRECISION NOT NULL,
	max_temp_c           DOUBLE PRECISION NOT NULL,
	avg_precipitation_mm DOUBLE PRECISION,
	heating_degree_days  DOUBLE PRECISION NOT NULL,
	cooling_degree_days  DOUBLE PRECISION NOT NULL,
	demand_mwh           DOUBLE PRECISION NOT NULL,
	avg_temp_f           DOUBLE PRECISION NOT NULL,
	demand_per_hdd       DOUBLE PRECISION,
	demand_per_cdd       DOUBLE PRECISION,
	_created_at          TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (date, region)
);

CREATE TABLE IF NOT EXISTS gold_monthly_summary (
	month                  TEXT             NOT NULL,
	region                 TEXT             NOT NULL,
	days                   INTEGER          NOT NULL,
	avg_temp_c             DOUBLE PRECISION NOT NULL,
	total_precipitation_mm DOUBLE PRECISION NOT NULL,
	total_hdd              DOUBLE PRECISION NOT NULL,
	total_cdd              DOUBLE PRECISION NOT NULL,
	avg_demand_mwh         DOUBLE PRECISION NOT NULL,
	total_demand_mwh       DOUBLE PRECISION NOT NULL,
	_created_at            TIMESTAMPTZ      NOT NULL,
	PRIMARY KEY (month, region)
);

CREATE TABLE IF NOT EXISTS refresh_log (
	stage        TEXT        NOT NULL,
	run_id       TEXT        NOT NULL,
	row_count    INTEGER     NOT NULL,
	refreshed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (stage)
);
`
