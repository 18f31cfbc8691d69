package analytics

import (
	"sort"
	"time"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
)

// LagFeature is one forecasting-model input row: the day's demand and
// weather plus the region's demand one and seven calendar days earlier.
// Lags are nil when the prior day is missing from the table, not zero.
type LagFeature struct {
	Region     string    `json:"region"`
	Date       time.Time `json:"date"`
	AvgTempC   float64   `json:"avg_temp_c"`
	DemandMWh  float64   `json:"demand_mwh"`
	DemandLag1 *float64  `json:"demand_lag_1"`
	DemandLag7 *float64  `json:"demand_lag_7"`
}

// LagFeatures extracts lag-1 and lag-7 demand features per (region, date).
// Lags are looked up by calendar date, so gaps in the table produce nil lags
// instead of silently shifting to the previous available row.
func LagFeatures(rows []domain.WeatherEnergyCorrelation, r Range) []LagFeature {
	byRegion := filterByRegion(rows, r)
	out := make([]LagFeature, 0, len(rows))
	for _, region := range sortedRegions(byRegion) {
		days := byRegion[region]
		demandOn := make(map[time.Time]float64, len(days))
		for _, d := range days {
			demandOn[d.Date] = d.DemandMWh
		}
		for _, d := range days {
			out = append(out, LagFeature{
				Region:     region,
				Date:       d.Date,
				AvgTempC:   d.AvgTempC,
				DemandMWh:  d.DemandMWh,
				DemandLag1: demandAt(demandOn, d.Date.AddDate(0, 0, -1)),
				DemandLag7: demandAt(demandOn, d.Date.AddDate(0, 0, -7)),
			})
		}
	}
	return out
}

func demandAt(demandOn map[time.Time]float64, date time.Time) *float64 {
	v, ok := demandOn[date]
	if !ok {
		return nil
	}
	return &v
}

// RollingWindow is one (region, date) row of trailing-mean features.
type RollingWindow struct {
	Region       string    `json:"region"`
	Date         time.Time `json:"date"`
	Temp7Day     float64   `json:"temp_7d"`
	Demand7Day   float64   `json:"demand_7d"`
	Temp30Day    float64   `json:"temp_30d"`
	Demand30Day  float64   `json:"demand_30d"`
	Days7InWind  int       `json:"days_in_7d"`
	Days30InWind int       `json:"days_in_30d"`
}

// RollingWindows computes trailing 7- and 30-day means of temperature and
// demand per (region, date). A window covers the calendar days
// (date-n, date] and averages whatever rows exist in it, reporting how many
// that was so consumers can discount thin windows.
func RollingWindows(rows []domain.WeatherEnergyCorrelation, r Range) []RollingWindow {
	byRegion := filterByRegion(rows, r)
	out := make([]RollingWindow, 0, len(rows))
	for _, region := range sortedRegions(byRegion) {
		days := byRegion[region]
		for i, d := range days {
			w := RollingWindow{Region: region, Date: d.Date}
			w.Temp7Day, w.Demand7Day, w.Days7InWind = trailingMeans(days[:i+1], d.Date, 7)
			w.Temp30Day, w.Demand30Day, w.Days30InWind = trailingMeans(days[:i+1], d.Date, 30)
			out = append(out, w)
		}
	}
	return out
}

// trailingMeans averages temperature and demand over rows dated in
// (asOf-days, asOf].
func trailingMeans(rows []domain.WeatherEnergyCorrelation, asOf time.Time, days int) (temp, demand float64, n int) {
	window := domain.TrailingWindow(rows, asOf, days)
	for _, r := range window {
		temp += r.AvgTempC
		demand += r.DemandMWh
	}
	n = len(window)
	if n > 0 {
		temp /= float64(n)
		demand /= float64(n)
	}
	return temp, demand, n
}

// EfficiencyRank orders regions by demand per degree day, least
// weather-sensitive demand first.
type EfficiencyRank struct {
	Rank               int      `json:"rank"`
	Region             string   `json:"region"`
	Days               int      `json:"days"`
	TotalDemandMWh     float64  `json:"total_demand_mwh"`
	TotalDegreeDays    float64  `json:"total_degree_days"`
	DemandPerDegreeDay *float64 `json:"demand_per_degree_day"` // nil when the range had no degree days
	AvgDemandPerHDD    *float64 `json:"avg_demand_per_hdd"`
	AvgDemandPerCDD    *float64 `json:"avg_demand_per_cdd"`
}

// EfficiencyRanking ranks regions by total demand divided by total degree
// days (heating plus cooling) over the range. Regions with no degree days in
// range are listed unranked at the end.
func EfficiencyRanking(rows []domain.WeatherEnergyCorrelation, r Range) []EfficiencyRank {
	byRegion := filterByRegion(rows, r)
	ranks := make([]EfficiencyRank, 0, len(byRegion))
	for _, region := range sortedRegions(byRegion) {
		days := byRegion[region]
		er := EfficiencyRank{Region: region, Days: len(days)}
		var perHDD, perCDD []float64
		for _, d := range days {
			er.TotalDemandMWh += d.DemandMWh
			er.TotalDegreeDays += d.HeatingDegreeDays + d.CoolingDegreeDays
			if d.DemandPerHDD != nil {
				perHDD = append(perHDD, *d.DemandPerHDD)
			}
			if d.DemandPerCDD != nil {
				perCDD = append(perCDD, *d.DemandPerCDD)
			}
		}
		if er.TotalDegreeDays > 0 {
			v := er.TotalDemandMWh / er.TotalDegreeDays
			er.DemandPerDegreeDay = &v
		}
		if len(perHDD) > 0 {
			v := mean(perHDD)
			er.AvgDemandPerHDD = &v
		}
		if len(perCDD) > 0 {
			v := mean(perCDD)
			er.AvgDemandPerCDD = &v
		}
		ranks = append(ranks, er)
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		a, b := ranks[i].DemandPerDegreeDay, ranks[j].DemandPerDegreeDay
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	for i := range ranks {
		if ranks[i].DemandPerDegreeDay != nil {
			ranks[i].Rank = i + 1
		}
	}
	return ranks
}

// PeakDay is one of a region's highest-demand days with its coincident
// weather.
type PeakDay struct {
	Region            string    `json:"region"`
	Date              time.Time `json:"date"`
	DemandMWh         float64   `json:"demand_mwh"`
	AvgTempC          float64   `json:"avg_temp_c"`
	HeatingDegreeDays float64   `json:"heating_degree_days"`
	CoolingDegreeDays float64   `json:"cooling_degree_days"`
}

// PeakDemandDays returns each region's top n demand days in range, highest
// first, with the weather that accompanied them.
func PeakDemandDays(rows []domain.WeatherEnergyCorrelation, r Range, n int) []PeakDay {
	byRegion := filterByRegion(rows, r)
	out := make([]PeakDay, 0, len(byRegion)*n)
	for _, region := range sortedRegions(byRegion) {
		days := make([]domain.WeatherEnergyCorrelation, len(byRegion[region]))
		copy(days, byRegion[region])
		sort.SliceStable(days, func(i, j int) bool { return days[i].DemandMWh > days[j].DemandMWh })
		if len(days) > n {
			days = days[:n]
		}
		for _, d := range days {
			out = append(out, PeakDay{
				Region:            region,
				Date:              d.Date,
				DemandMWh:         d.DemandMWh,
				AvgTempC:          d.AvgTempC,
				HeatingDegreeDays: d.HeatingDegreeDays,
				CoolingDegreeDays: d.CoolingDegreeDays,
			})
		}
	}
	return out
}
