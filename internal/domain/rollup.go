package domain

import (
	"sort"
	"time"
)

// MonthlySummaries rolls the correlation table up to (year-month, region).
func MonthlySummaries(rows []WeatherEnergyCorrelation) []MonthlySummary {
	type key struct {
		month  string
		region string
	}

	type acc struct {
		days      int
		sumTemp   float64
		sumPrecip float64
		sumHDD    float64
		sumCDD    float64
		sumDemand float64
	}

	groups := make(map[key]*acc)
	for _, r := range rows {
		k := key{month: r.Date.Format("2006-01"), region: r.Region}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
		}
		a.days++
		a.sumTemp += r.AvgTempC
		if r.AvgPrecipitationMM != nil {
			a.sumPrecip += *r.AvgPrecipitationMM
		}
		a.sumHDD += r.HeatingDegreeDays
		a.sumCDD += r.CoolingDegreeDays
		a.sumDemand += r.DemandMWh
	}

	now := clock.Now()
	out := make([]MonthlySummary, 0, len(groups))
	for k, a := range groups {
		out = append(out, MonthlySummary{
			Month:                k.month,
			Region:               k.region,
			Days:                 a.days,
			AvgTempC:             a.sumTemp / float64(a.days),
			TotalPrecipitationMM: a.sumPrecip,
			TotalHDD:             a.sumHDD,
			TotalCDD:             a.sumCDD,
			AvgDemandMWh:         a.sumDemand / float64(a.days),
			TotalDemandMWh:       a.sumDemand,
			CreatedAt:            now,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// TrailingWindow returns the correlation rows dated in (asOf-days, asOf].
func TrailingWindow(rows []WeatherEnergyCorrelation, asOf time.Time, days int) []WeatherEnergyCorrelation {
	start := asOf.AddDate(0, 0, -days)
	out := make([]WeatherEnergyCorrelation, 0, len(rows))
	for _, r := range rows {
		if r.Date.After(start) && !r.Date.After(asOf) {
			out = append(out, r)
		}
	}
	return out
}
