// Command validate performs end-to-end data integrity checks on bronze-layer
// JSON fixtures by pushing them through the same pure transformations the
// service runs: silver normalization, regional aggregation, the correlation
// join, and monthly rollups. It verifies drop behavior, region assignment,
// degree-day arithmetic, and the published-schema constraints, and exits
// non-zero on the first failing phase summary.
//
// Usage:
//
//	go run ./cmd/validate \
//	  --weather-json data/mock/observations.json \
//	  --demand-json data/mock/demand.json
package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func (p *phase) report() {
	if p.passed() {
		fmt.Printf("PASS  %s\n", p.name)
		return
	}
	fmt.Printf("FAIL  %s\n", p.name)
	for _, e := range p.errors {
		fmt.Printf("      - %s\n", e)
	}
}

func main() {
	weatherJSON := flag.String("weather-json", "", "path to raw observation JSON fixture")
	demandJSON := flag.String("demand-json", "", "path to raw demand JSON fixture")
	flag.Parse()

	if *weatherJSON == "" || *demandJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*weatherJSON, *demandJSON); code != 0 {
		os.Exit(code)
	}
}

func run(weatherPath, demandPath string) int {
	var rawObs []domain.RawStationObservation
	if err := loadJSON(weatherPath, &rawObs); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load observations: %v\n", err)
		return 1
	}
	var rawDemand []domain.RawDemandRecord
	if err := loadJSON(demandPath, &rawDemand); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load demand: %v\n", err)
		return 1
	}

	fmt.Println("=== Warehouse Pipeline Integrity Validation ===")
	fmt.Printf("inputs: %d observations, %d demand records\n\n", len(rawObs), len(rawDemand))

	silver, silverPhase := validateSilver(rawObs, rawDemand)
	silverPhase.report()

	regional, regionalPhase := validateRegional(silver.obs)
	regionalPhase.report()

	corr, corrPhase := validateCorrelation(regional, silver.demand)
	corrPhase.report()

	monthlyPhase := validateMonthly(corr)
	monthlyPhase.report()

	for _, p := range []*phase{silverPhase, regionalPhase, corrPhase, monthlyPhase} {
		if !p.passed() {
			return 1
		}
	}
	fmt.Println("\nall phases passed")
	return 0
}

type silverTables struct {
	obs    []domain.StationObservation
	demand []domain.DemandRecord
}

func validateSilver(rawObs []domain.RawStationObservation, rawDemand []domain.RawDemandRecord) (silverTables, *phase) {
	p := &phase{name: "silver normalization"}
	var out silverTables

	drops := make(map[string]int)
	for _, raw := range rawObs {
		obs, reason, ok := domain.NormalizeObservation(raw)
		if !ok {
			drops[reason]++
			continue
		}
		if obs.TempMaxC != nil && raw.TempMax != nil {
			want := float64(*raw.TempMax) / 10
			if math.Abs(*obs.TempMaxC-want) > 1e-9 {
				p.errorf("station %s %s: temp_max_c %v, want %v", obs.StationID, obs.Date.Format("2006-01-02"), *obs.TempMaxC, want)
			}
		}
		if obs.TempMaxC != nil && obs.TempMinC != nil && *obs.TempMaxC < *obs.TempMinC {
			p.errorf("station %s %s: temp_max_c below temp_min_c survived normalization", obs.StationID, obs.Date.Format("2006-01-02"))
		}
		if obs.CompletenessScore < 0 || obs.CompletenessScore > 3 {
			p.errorf("station %s: completeness score %d out of range", obs.StationID, obs.CompletenessScore)
		}
		out.obs = append(out.obs, obs)
	}

	for _, raw := range rawDemand {
		rec, reason, ok := domain.NormalizeDemand(raw)
		if !ok {
			drops[reason]++
			continue
		}
		if rec.DemandMWh <= 0 || rec.DemandMWh >= 1_000_000 {
			p.errorf("demand %s %s: %v survived the validity bounds", rec.RegionCode, rec.Date.Format("2006-01-02"), rec.DemandMWh)
		}
		out.demand = append(out.demand, rec)
	}

	for reason, n := range drops {
		fmt.Printf("      dropped %d rows: %s\n", n, reason)
	}
	return out, p
}

func validateRegional(obs []domain.StationObservation) ([]domain.RegionalDailyWeather, *phase) {
	p := &phase{name: "regional aggregation"}
	rows := domain.AggregateRegionalDaily(obs)

	for _, row := range rows {
		if row.Region == domain.RegionOther {
			p.errorf("%s: unmapped region in the aggregate", row.Date.Format("2006-01-02"))
		}
		if !domain.ValidRegion(row.Region) {
			p.errorf("%s: unknown region %q", row.Date.Format("2006-01-02"), row.Region)
		}
		if row.StationCount < 1 {
			p.errorf("%s %s: station count %d", row.Date.Format("2006-01-02"), row.Region, row.StationCount)
		}
		if row.MinTempC > row.AvgTempC || row.AvgTempC > row.MaxTempC {
			p.errorf("%s %s: temperature ordering violated (min %v avg %v max %v)",
				row.Date.Format("2006-01-02"), row.Region, row.MinTempC, row.AvgTempC, row.MaxTempC)
		}
		if row.HeatingDegreeDays < 0 || row.CoolingDegreeDays < 0 {
			p.errorf("%s %s: negative degree days", row.Date.Format("2006-01-02"), row.Region)
		}
		if row.Date.Before(domain.DemandCutoverDate) {
			p.errorf("%s %s: pre-cutover date in the aggregate", row.Date.Format("2006-01-02"), row.Region)
		}
	}
	fmt.Printf("      %d regional day rows\n", len(rows))
	return rows, p
}

func validateCorrelation(weather []domain.RegionalDailyWeather, demand []domain.DemandRecord) ([]domain.WeatherEnergyCorrelation, *phase) {
	p := &phase{name: "correlation join"}
	rows := domain.BuildCorrelation(weather, demand)

	for _, row := range rows {
		if row.StationCount < domain.MinStationCoverage {
			p.errorf("%s %s: station count %d below coverage threshold", row.Date.Format("2006-01-02"), row.Region, row.StationCount)
		}
		wantF := math.Round((row.AvgTempC*9/5+32)*10) / 10
		if math.Abs(row.AvgTempF-wantF) > 1e-9 {
			p.errorf("%s %s: avg_temp_f %v, want %v", row.Date.Format("2006-01-02"), row.Region, row.AvgTempF, wantF)
		}
		if (row.DemandPerHDD == nil) != (row.HeatingDegreeDays == 0) {
			p.errorf("%s %s: demand_per_hdd nil-ness disagrees with hdd %v", row.Date.Format("2006-01-02"), row.Region, row.HeatingDegreeDays)
		}
		if (row.DemandPerCDD == nil) != (row.CoolingDegreeDays == 0) {
			p.errorf("%s %s: demand_per_cdd nil-ness disagrees with cdd %v", row.Date.Format("2006-01-02"), row.Region, row.CoolingDegreeDays)
		}
	}
	fmt.Printf("      %d correlation rows\n", len(rows))
	return rows, p
}

func validateMonthly(corr []domain.WeatherEnergyCorrelation) *phase {
	p := &phase{name: "monthly rollups"}
	rows := domain.MonthlySummaries(corr)

	daysByKey := make(map[string]int)
	for _, row := range corr {
		daysByKey[row.Date.Format("2006-01")+"|"+row.Region]++
	}
	for _, row := range rows {
		if want := daysByKey[row.Month+"|"+row.Region]; row.Days != want {
			p.errorf("%s %s: %d days, want %d", row.Month, row.Region, row.Days, want)
		}
		if row.Days > 0 {
			wantAvg := row.TotalDemandMWh / float64(row.Days)
			if math.Abs(row.AvgDemandMWh-wantAvg) > 1e-6 {
				p.errorf("%s %s: avg demand %v inconsistent with total %v", row.Month, row.Region, row.AvgDemandMWh, row.TotalDemandMWh)
			}
		}
	}
	fmt.Printf("      %d monthly rows\n", len(rows))
	return p
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
