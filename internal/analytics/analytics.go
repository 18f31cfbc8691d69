// Package analytics implements the read-only query set over the
// weather/energy correlation table. Every query takes an inclusive date
// range and groups by region; none of them mutate warehouse state. They are
// the Go counterparts of the dashboard and ML feature queries downstream
// teams run against the published schema.
package analytics

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
)

// minCorrelationDays is the fewest region-days a Pearson coefficient is
// computed from. Below this the estimate is noise, so the region is omitted.
const minCorrelationDays = 3

// Range is an inclusive [From, To] date filter.
type Range struct {
	From time.Time
	To   time.Time
}

func (r Range) contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// filterByRegion buckets in-range rows per region, preserving the input's
// date order within each region.
func filterByRegion(rows []domain.WeatherEnergyCorrelation, r Range) map[string][]domain.WeatherEnergyCorrelation {
	byRegion := make(map[string][]domain.WeatherEnergyCorrelation)
	for _, row := range rows {
		if r.contains(row.Date) {
			byRegion[row.Region] = append(byRegion[row.Region], row)
		}
	}
	for region := range byRegion {
		sort.Slice(byRegion[region], func(i, j int) bool {
			return byRegion[region][i].Date.Before(byRegion[region][j].Date)
		})
	}
	return byRegion
}

func sortedRegions[T any](byRegion map[string][]T) []string {
	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// TemperatureCorrelation is the Pearson coefficient between daily mean
// temperature and demand for one region.
type TemperatureCorrelation struct {
	Region      string  `json:"region"`
	Days        int     `json:"days"`
	Coefficient float64 `json:"coefficient"`
}

// TemperatureDemandCorrelation computes, per region, the Pearson correlation
// between avg_temp_c and demand_mwh. Regions with too few days are omitted.
func TemperatureDemandCorrelation(rows []domain.WeatherEnergyCorrelation, r Range) []TemperatureCorrelation {
	byRegion := filterByRegion(rows, r)
	out := make([]TemperatureCorrelation, 0, len(byRegion))
	for _, region := range sortedRegions(byRegion) {
		days := byRegion[region]
		if len(days) < minCorrelationDays {
			continue
		}
		temps := make([]float64, len(days))
		demand := make([]float64, len(days))
		for i, d := range days {
			temps[i] = d.AvgTempC
			demand[i] = d.DemandMWh
		}
		out = append(out, TemperatureCorrelation{
			Region:      region,
			Days:        len(days),
			Coefficient: stat.Correlation(temps, demand, nil),
		})
	}
	return out
}

// DegreeDayCorrelation holds the Pearson coefficients between each degree-day
// measure and demand for one region.
type DegreeDayCorrelation struct {
	Region    string  `json:"region"`
	Days      int     `json:"days"`
	HDDDemand float64 `json:"hdd_demand"`
	CDDDemand float64 `json:"cdd_demand"`
}

// DegreeDayDemandCorrelation computes, per region, the Pearson correlation of
// heating and cooling degree days against demand.
func DegreeDayDemandCorrelation(rows []domain.WeatherEnergyCorrelation, r Range) []DegreeDayCorrelation {
	byRegion := filterByRegion(rows, r)
	out := make([]DegreeDayCorrelation, 0, len(byRegion))
	for _, region := range sortedRegions(byRegion) {
		days := byRegion[region]
		if len(days) < minCorrelationDays {
			continue
		}
		hdd := make([]float64, len(days))
		cdd := make([]float64, len(days))
		demand := make([]float64, len(days))
		for i, d := range days {
			hdd[i] = d.HeatingDegreeDays
			cdd[i] = d.CoolingDegreeDays
			demand[i] = d.DemandMWh
		}
		out = append(out, DegreeDayCorrelation{
			Region:    region,
			Days:      len(days),
			HDDDemand: stat.Correlation(hdd, demand, nil),
			CDDDemand: stat.Correlation(cdd, demand, nil),
		})
	}
	return out
}

// SeasonalAverage is one (region, quarter) aggregate.
type SeasonalAverage struct {
	Region       string  `json:"region"`
	Quarter      string  `json:"quarter"` // "Q1".."Q4"
	Days         int     `json:"days"`
	AvgTempC     float64 `json:"avg_temp_c"`
	AvgDemandMWh float64 `json:"avg_demand_mwh"`
}

func quarterOf(t time.Time) string {
	switch {
	case t.Month() <= time.March:
		return "Q1"
	case t.Month() <= time.June:
		return "Q2"
	case t.Month() <= time.September:
		return "Q3"
	default:
		return "Q4"
	}
}

// SeasonalAverages computes per-region quarterly mean temperature and demand,
// folding all years in range into the four calendar quarters.
func SeasonalAverages(rows []domain.WeatherEnergyCorrelation, r Range) []SeasonalAverage {
	byRegion := filterByRegion(rows, r)
	out := make([]SeasonalAverage, 0, len(byRegion)*4)
	for _, region := range sortedRegions(byRegion) {
		temps := make(map[string][]float64, 4)
		demand := make(map[string][]float64, 4)
		for _, d := range byRegion[region] {
			q := quarterOf(d.Date)
			temps[q] = append(temps[q], d.AvgTempC)
			demand[q] = append(demand[q], d.DemandMWh)
		}
		for _, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
			if len(temps[q]) == 0 {
				continue
			}
			out = append(out, SeasonalAverage{
				Region:       region,
				Quarter:      q,
				Days:         len(temps[q]),
				AvgTempC:     mean(temps[q]),
				AvgDemandMWh: mean(demand[q]),
			})
		}
	}
	return out
}

// ExtremeImpact compares demand on a region's hottest and coldest decile
// days against the remaining "typical" days.
type ExtremeImpact struct {
	Region            string  `json:"region"`
	Days              int     `json:"days"`
	HottestAvgDemand  float64 `json:"hottest_avg_demand"`
	ColdestAvgDemand  float64 `json:"coldest_avg_demand"`
	TypicalAvgDemand  float64 `json:"typical_avg_demand"`
	HottestDemandLift float64 `json:"hottest_demand_lift"` // hottest / typical
	ColdestDemandLift float64 `json:"coldest_demand_lift"` // coldest / typical
}

// ExtremeWeatherImpact computes per-region demand on temperature-extreme
// days. Deciles are by avg_temp_c; regions with fewer than ten days are
// omitted since a decile would be a single unrepresentative day sample.
func ExtremeWeatherImpact(rows []domain.WeatherEnergyCorrelation, r Range) []ExtremeImpact {
	byRegion := filterByRegion(rows, r)
	out := make([]ExtremeImpact, 0, len(byRegion))
	for _, region := range sortedRegions(byRegion) {
		days := byRegion[region]
		if len(days) < 10 {
			continue
		}
		byTemp := make([]domain.WeatherEnergyCorrelation, len(days))
		copy(byTemp, days)
		sort.Slice(byTemp, func(i, j int) bool { return byTemp[i].AvgTempC < byTemp[j].AvgTempC })

		k := len(byTemp) / 10
		coldest := make([]float64, 0, k)
		hottest := make([]float64, 0, k)
		typical := make([]float64, 0, len(byTemp)-2*k)
		for i, d := range byTemp {
			switch {
			case i < k:
				coldest = append(coldest, d.DemandMWh)
			case i >= len(byTemp)-k:
				hottest = append(hottest, d.DemandMWh)
			default:
				typical = append(typical, d.DemandMWh)
			}
		}

		impact := ExtremeImpact{
			Region:           region,
			Days:             len(days),
			HottestAvgDemand: mean(hottest),
			ColdestAvgDemand: mean(coldest),
			TypicalAvgDemand: mean(typical),
		}
		if impact.TypicalAvgDemand > 0 {
			impact.HottestDemandLift = impact.HottestAvgDemand / impact.TypicalAvgDemand
			impact.ColdestDemandLift = impact.ColdestAvgDemand / impact.TypicalAvgDemand
		}
		out = append(out, impact)
	}
	return out
}

// Precipitation buckets, in mm of daily regional average.
const (
	PrecipBucketNone     = "none"     // < 1
	PrecipBucketLight    = "light"    // [1, 10)
	PrecipBucketModerate = "moderate" // [10, 25)
	PrecipBucketHeavy    = "heavy"    // >= 25
)

var precipBucketOrder = []string{PrecipBucketNone, PrecipBucketLight, PrecipBucketModerate, PrecipBucketHeavy}

func precipBucket(mm float64) string {
	switch {
	case mm < 1:
		return PrecipBucketNone
	case mm < 10:
		return PrecipBucketLight
	case mm < 25:
		return PrecipBucketModerate
	default:
		return PrecipBucketHeavy
	}
}

// PrecipBucketDemand is average demand for one (region, precipitation
// bucket).
type PrecipBucketDemand struct {
	Region       string  `json:"region"`
	Bucket       string  `json:"bucket"`
	Days         int     `json:"days"`
	AvgDemandMWh float64 `json:"avg_demand_mwh"`
}

// PrecipitationBucketedDemand averages demand per region across
// precipitation intensity buckets. Days without a precipitation reading are
// excluded rather than being conflated with dry days.
func PrecipitationBucketedDemand(rows []domain.WeatherEnergyCorrelation, r Range) []PrecipBucketDemand {
	byRegion := filterByRegion(rows, r)
	out := make([]PrecipBucketDemand, 0, len(byRegion))
	for _, region := range sortedRegions(byRegion) {
		buckets := make(map[string][]float64, 4)
		for _, d := range byRegion[region] {
			if d.AvgPrecipitationMM == nil {
				continue
			}
			b := precipBucket(*d.AvgPrecipitationMM)
			buckets[b] = append(buckets[b], d.DemandMWh)
		}
		for _, b := range precipBucketOrder {
			if len(buckets[b]) == 0 {
				continue
			}
			out = append(out, PrecipBucketDemand{
				Region:       region,
				Bucket:       b,
				Days:         len(buckets[b]),
				AvgDemandMWh: mean(buckets[b]),
			})
		}
	}
	return out
}

// YearlyDemand is one (region, year) demand aggregate with the change from
// the region's previous year in range.
type YearlyDemand struct {
	Region         string   `json:"region"`
	Year           int      `json:"year"`
	Days           int      `json:"days"`
	AvgDemandMWh   float64  `json:"avg_demand_mwh"`
	TotalDemandMWh float64  `json:"total_demand_mwh"`
	ChangePct      *float64 `json:"change_pct"` // vs previous year's average; nil for the first year
}

// YearOverYearTrend aggregates demand per (region, year) and reports each
// year's percentage change in average daily demand.
func YearOverYearTrend(rows []domain.WeatherEnergyCorrelation, r Range) []YearlyDemand {
	byRegion := filterByRegion(rows, r)
	out := make([]YearlyDemand, 0, len(byRegion))
	for _, region := range sortedRegions(byRegion) {
		perYear := make(map[int][]float64)
		for _, d := range byRegion[region] {
			perYear[d.Date.Year()] = append(perYear[d.Date.Year()], d.DemandMWh)
		}
		years := make([]int, 0, len(perYear))
		for y := range perYear {
			years = append(years, y)
		}
		sort.Ints(years)

		var prevAvg float64
		for i, y := range years {
			avg := mean(perYear[y])
			var total float64
			for _, v := range perYear[y] {
				total += v
			}
			yd := YearlyDemand{
				Region:         region,
				Year:           y,
				Days:           len(perYear[y]),
				AvgDemandMWh:   avg,
				TotalDemandMWh: total,
			}
			if i > 0 && prevAvg > 0 {
				pct := (avg - prevAvg) / prevAvg * 100
				yd.ChangePct = &pct
			}
			out = append(out, yd)
			prevAvg = avg
		}
	}
	return out
}
