package domain

import (
	"math"
	"sort"
	"time"
)

// MinStationCoverage is the minimum number of distinct stations a region-day
// needs before its weather aggregate is trusted enough to correlate with
// demand.
const MinStationCoverage = 5

// BuildCorrelation inner-joins regional weather with demand on (date, region)
// and derives the efficiency metrics. Region-days below the coverage
// threshold or without a matching demand record are excluded, not errored.
func BuildCorrelation(weather []RegionalDailyWeather, demand []DemandRecord) []WeatherEnergyCorrelation {
	type key struct {
		date   time.Time
		region string
	}

	demandByKey := make(map[key]DemandRecord, len(demand))
	for _, d := range demand {
		demandByKey[key{date: d.Date, region: d.RegionCode}] = d
	}

	now := clock.Now()
	rows := make([]WeatherEnergyCorrelation, 0, len(weather))
	for _, w := range weather {
		if w.StationCount < MinStationCoverage {
			continue
		}
		d, ok := demandByKey[key{date: w.Date, region: w.Region}]
		if !ok {
			continue
		}

		rows = append(rows, WeatherEnergyCorrelation{
			Date:               w.Date,
			Region:             w.Region,
			StationCount:       w.StationCount,
			AvgTempC:           w.AvgTempC,
			MinTempC:           w.MinTempC,
			MaxTempC:           w.MaxTempC,
			AvgPrecipitationMM: w.AvgPrecipitationMM,
			HeatingDegreeDays:  w.HeatingDegreeDays,
			CoolingDegreeDays:  w.CoolingDegreeDays,
			DemandMWh:          d.DemandMWh,
			AvgTempF:           CelsiusToFahrenheit(w.AvgTempC),
			DemandPerHDD:       safeRatio(d.DemandMWh, w.HeatingDegreeDays),
			DemandPerCDD:       safeRatio(d.DemandMWh, w.CoolingDegreeDays),
			CreatedAt:          now,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Region < rows[j].Region
	})
	return rows
}

// CelsiusToFahrenheit converts with one-decimal rounding, matching the
// published avg_temp_f column.
func CelsiusToFahrenheit(c float64) float64 {
	return math.Round((c*9/5+32)*10) / 10
}

// safeRatio returns demand divided by the degree-day value, or nil when the
// degree-day value is zero. Division by zero must surface as null, never as
// +Inf.
func safeRatio(demand, degreeDays float64) *float64 {
	if degreeDays <= 0 {
		return nil
	}
	v := demand / degreeDays
	return &v
}
