package domain

import (
	"sort"
	"time"
)

// DegreeDayBaseC is the balance-point temperature for heating/cooling degree
// days.
const DegreeDayBaseC = 18.0

// DemandCutoverDate is the first date with EIA demand coverage; earlier
// observations are excluded from regional aggregation because they can never
// join a demand record.
var DemandCutoverDate = Date(2020, time.January, 1)

// stationDay is one station's contribution to a region-day aggregate.
type stationDay struct {
	stationID string
	avgTempC  float64
	minTempC  float64
	maxTempC  float64
	precipMM  *float64
}

// AggregateRegionalDaily maps each cleaned observation to a region and
// aggregates per (date, region). Stations mapping to RegionOther and
// station-days without both temperature extremes are excluded before
// aggregation, so every output row has StationCount ≥ 1.
//
// Degree days are the average of per-station deficits/excesses against the
// 18 °C base, not the deficit of the averaged regional temperature.
func AggregateRegionalDaily(obs []StationObservation) []RegionalDailyWeather {
	type key struct {
		date   time.Time
		region string
	}

	groups := make(map[key][]stationDay)
	for _, o := range obs {
		if o.Date.Before(DemandCutoverDate) {
			continue
		}
		// A station-day without both extremes has no daily average and
		// cannot contribute to any aggregate.
		if o.TempMaxC == nil || o.TempMinC == nil {
			continue
		}
		region := AssignRegion(o.Latitude, o.Longitude)
		if region == RegionOther {
			continue
		}
		k := key{date: o.Date, region: region}
		groups[k] = append(groups[k], stationDay{
			stationID: o.StationID,
			avgTempC:  (*o.TempMaxC + *o.TempMinC) / 2,
			minTempC:  *o.TempMinC,
			maxTempC:  *o.TempMaxC,
			precipMM:  o.PrecipitationMM,
		})
	}

	now := clock.Now()
	rows := make([]RegionalDailyWeather, 0, len(groups))
	for k, days := range groups {
		rows = append(rows, aggregateGroup(k.date, k.region, days, now))
	}

	// Map iteration order is random; sort for idempotent output.
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Region < rows[j].Region
	})
	return rows
}

func aggregateGroup(date time.Time, region string, days []stationDay, now time.Time) RegionalDailyWeather {
	stations := make(map[string]struct{}, len(days))

	var sumAvg, sumHDD, sumCDD float64
	minTemp := days[0].minTempC
	maxTemp := days[0].maxTempC

	var precipSum float64
	var precipCount int

	for _, d := range days {
		stations[d.stationID] = struct{}{}
		sumAvg += d.avgTempC
		sumHDD += max(DegreeDayBaseC-d.avgTempC, 0)
		sumCDD += max(d.avgTempC-DegreeDayBaseC, 0)
		if d.minTempC < minTemp {
			minTemp = d.minTempC
		}
		if d.maxTempC > maxTemp {
			maxTemp = d.maxTempC
		}
		if d.precipMM != nil {
			precipSum += *d.precipMM
			precipCount++
		}
	}

	n := float64(len(days))
	var avgPrecip *float64
	if precipCount > 0 {
		v := precipSum / float64(precipCount)
		avgPrecip = &v
	}

	return RegionalDailyWeather{
		Date:               date,
		Region:             region,
		StationCount:       len(stations),
		AvgTempC:           sumAvg / n,
		MinTempC:           minTemp,
		MaxTempC:           maxTemp,
		AvgPrecipitationMM: avgPrecip,
		HeatingDegreeDays:  sumHDD / n,
		CoolingDegreeDays:  sumCDD / n,
		CreatedAt:          now,
	}
}
