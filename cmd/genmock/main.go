// Command genmock generates deterministic mock bronze-layer fixtures: raw
// station observations and raw demand records as JSON. It places stations
// inside the real region bounding boxes and shapes demand against
// temperature, so fixtures pushed through the pipeline produce plausible
// gold tables for local development and integration tests.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  --weather-out data/mock/observations.json \
//	  --demand-out data/mock/demand.json \
//	  --days 90 --stations-per-region 8
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	flag "github.com/spf13/pflag"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
)

var baseDate = domain.Date(2024, time.January, 1)

// regionSeed is a coordinate safely inside one region's bounding box plus a
// winter baseline temperature for that region's climate.
type regionSeed struct {
	region     string
	lat, lon   float64
	winterTemp float64 // °C mean in January
}

var regionSeeds = []regionSeed{
	{"PJM", 39.5, -77.0, 0},
	{"CISO", 36.0, -120.0, 8},
	{"ERCO", 30.0, -98.0, 10},
	{"MISO", 43.0, -92.0, -6},
	{"NYIS", 42.5, -75.0, -3},
	{"ISNE", 43.5, -70.5, -5},
	{"SWPP", 36.5, -108.0, 1},
	{"BPAT", 45.5, -120.0, 3},
	{"FPL", 27.0, -81.0, 18},
	{"TVA", 35.5, -86.5, 4},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	weatherOut := flag.String("weather-out", "", "output path for raw observation JSON fixture")
	demandOut := flag.String("demand-out", "", "output path for raw demand JSON fixture")
	days := flag.Int("days", 90, "number of days to generate, starting 2024-01-01")
	stationsPerRegion := flag.Int("stations-per-region", 8, "stations to place in each region")
	seed := flag.Int64("seed", 240426, "PRNG seed for reproducible fixtures")
	flag.Parse()

	if *weatherOut == "" || *demandOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: --weather-out, --demand-out")
	}

	// Fixed clock for reproducible audit timestamps.
	ingestedAt := time.Date(2024, time.April, 26, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(ingestedAt))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))

	var observations []domain.RawStationObservation
	var demand []domain.RawDemandRecord

	for _, rs := range regionSeeds {
		for day := 0; day < *days; day++ {
			date := baseDate.AddDate(0, 0, day)
			regionAvg := seasonalTemp(rs.winterTemp, day) + rng.NormFloat64()*2

			for st := 0; st < *stationsPerRegion; st++ {
				observations = append(observations, mockObservation(rng, rs, st, date, regionAvg, ingestedAt))
			}
			demand = append(demand, mockDemand(rng, rs, date, regionAvg, ingestedAt))
		}
	}

	log.Printf("generated %d observations, %d demand records", len(observations), len(demand))

	if err := writeJSON(*weatherOut, observations); err != nil {
		return err
	}
	return writeJSON(*demandOut, demand)
}

// seasonalTemp follows a sine through the year, coldest in mid-January.
func seasonalTemp(winterTemp float64, dayOfYear int) float64 {
	return winterTemp + 12*(1-math.Cos(2*math.Pi*float64(dayOfYear-15)/365.25))
}

func mockObservation(rng *rand.Rand, rs regionSeed, stationIdx int, date time.Time, regionAvg float64, ingestedAt time.Time) domain.RawStationObservation {
	stationTemp := regionAvg + rng.NormFloat64()*1.5
	spread := 4 + rng.Float64()*4 // daily max/min spread around the mean

	tempMax := tenthsOf(stationTemp + spread)
	tempMin := tenthsOf(stationTemp - spread)

	var precip *int
	if rng.Float64() < 0.3 {
		precip = tenthsOf(rng.ExpFloat64() * 5) // tenths of mm
	} else {
		precip = tenthsOf(0)
	}

	return domain.RawStationObservation{
		StationID:    fmt.Sprintf("GHCND:US%s%04d", rs.region, stationIdx),
		StationName:  fmt.Sprintf("%s STATION %d", rs.region, stationIdx),
		Latitude:     rs.lat + rng.Float64()*0.4 - 0.2,
		Longitude:    rs.lon + rng.Float64()*0.4 - 0.2,
		Elevation:    100 + rng.Float64()*400,
		Date:         date,
		TempMax:      tempMax,
		TempMin:      tempMin,
		Precip:       precip,
		TempMaxAttrs: ",,W",
		TempMinAttrs: ",,W",
		PrecipAttrs:  ",,W",
		IngestedAt:   ingestedAt,
		Source:       "noaa_ghcnd",
	}
}

// mockDemand shapes demand as a U against temperature: both heating and
// cooling push it above the regional base load.
func mockDemand(rng *rand.Rand, rs regionSeed, date time.Time, regionAvg float64, ingestedAt time.Time) domain.RawDemandRecord {
	base := 400_000.0
	sensitivity := 8_000.0
	mwh := base + sensitivity*math.Abs(regionAvg-domain.DegreeDayBaseC) + rng.NormFloat64()*10_000
	if mwh < 1 {
		mwh = 1
	}
	return domain.RawDemandRecord{
		Date:         date,
		RegionCode:   rs.region,
		RegionName:   rs.region,
		DataType:     "D",
		DataTypeName: "Demand",
		DemandMWh:    math.Round(mwh),
		Units:        "megawatthours",
		IngestedAt:   ingestedAt,
		Source:       "eia_api",
	}
}

func tenthsOf(v float64) *int {
	t := int(math.Round(v * 10))
	return &t
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	log.Printf("wrote %s", path)
	return nil
}
