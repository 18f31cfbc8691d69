package domain

import "time"

// Physical plausibility bounds for cleaned temperatures, in °C. The global
// extremes on record are 56.7 and -89.2; the bounds leave headroom without
// admitting sensor garbage.
const (
	TempMaxLowerBoundC = -80.0
	TempMaxUpperBoundC = 60.0
	TempMinLowerBoundC = -90.0
	TempMinUpperBoundC = 50.0
)

// Demand sanity bounds in MWh. PJM, the largest region, peaks well under
// 1,000,000 MWh/day; zero or negative demand indicates a reporting fault.
const (
	DemandLowerBoundMWh = 0.0
	DemandUpperBoundMWh = 1_000_000.0
)

// earliestObservationDate is the first date in the GHCN archive.
var earliestObservationDate = Date(1763, time.January, 1)

// Drop reasons reported to metrics when a raw row fails normalization.
const (
	DropReasonDateRange    = "date_out_of_range"
	DropReasonTempMaxRange = "temp_max_out_of_range"
	DropReasonTempMinRange = "temp_min_out_of_range"
	DropReasonTempOrdering = "temp_max_below_min"
	DropReasonDemandRange  = "demand_out_of_range"
	DropReasonMissingKey   = "missing_key_field"
)

// NormalizeObservation converts one raw GHCN-D record into a cleaned silver
// observation. It returns the drop reason and false when the row violates a
// hard constraint; such rows are excluded from output, never nulled.
func NormalizeObservation(raw RawStationObservation) (StationObservation, string, bool) {
	if raw.StationID == "" {
		return StationObservation{}, DropReasonMissingKey, false
	}

	date := raw.Date.UTC().Truncate(24 * time.Hour)
	if date.Before(earliestObservationDate) || date.After(clock.Now().UTC()) {
		return StationObservation{}, DropReasonDateRange, false
	}

	tempMaxC := tenths(raw.TempMax)
	tempMinC := tenths(raw.TempMin)

	if tempMaxC != nil && (*tempMaxC < TempMaxLowerBoundC || *tempMaxC > TempMaxUpperBoundC) {
		return StationObservation{}, DropReasonTempMaxRange, false
	}
	if tempMinC != nil && (*tempMinC < TempMinLowerBoundC || *tempMinC > TempMinUpperBoundC) {
		return StationObservation{}, DropReasonTempMinRange, false
	}
	if tempMaxC != nil && tempMinC != nil && *tempMaxC < *tempMinC {
		return StationObservation{}, DropReasonTempOrdering, false
	}

	score := 0
	for _, present := range []bool{raw.TempMax != nil, raw.TempMin != nil, raw.Precip != nil} {
		if present {
			score++
		}
	}

	return StationObservation{
		StationID:   raw.StationID,
		StationName: raw.StationName,
		Latitude:    raw.Latitude,
		Longitude:   raw.Longitude,
		Elevation:   raw.Elevation,
		Date:        date,

		TempMaxC:        tempMaxC,
		TempMinC:        tempMinC,
		PrecipitationMM: tenths(raw.Precip),
		SnowfallCM:      tenths(raw.Snowfall),
		SnowDepthMM:     intPtrToFloat(raw.SnowDepth),

		TempMaxAttrs:  raw.TempMaxAttrs,
		TempMinAttrs:  raw.TempMinAttrs,
		PrecipAttrs:   raw.PrecipAttrs,
		SnowfallAttrs: raw.SnowfallAttrs,

		CompletenessScore: score,

		IngestedAt:  raw.IngestedAt,
		ProcessedAt: clock.Now(),
	}, "", true
}

// NormalizeDemand validates one raw EIA record into a silver demand record.
// Non-demand rows (data type other than "D") and out-of-range values are
// dropped with a reason.
func NormalizeDemand(raw RawDemandRecord) (DemandRecord, string, bool) {
	if raw.RegionCode == "" || raw.Date.IsZero() {
		return DemandRecord{}, DropReasonMissingKey, false
	}
	if raw.DataType != "" && raw.DataType != "D" {
		return DemandRecord{}, DropReasonMissingKey, false
	}
	if raw.DemandMWh <= DemandLowerBoundMWh || raw.DemandMWh >= DemandUpperBoundMWh {
		return DemandRecord{}, DropReasonDemandRange, false
	}

	date := raw.Date.UTC().Truncate(24 * time.Hour)
	if date.After(clock.Now().UTC()) {
		return DemandRecord{}, DropReasonDateRange, false
	}

	return DemandRecord{
		Date:        date,
		RegionCode:  raw.RegionCode,
		RegionName:  raw.RegionName,
		DemandMWh:   raw.DemandMWh,
		Units:       raw.Units,
		IngestedAt:  raw.IngestedAt,
		ProcessedAt: clock.Now(),
	}, "", true
}

// tenths converts a raw tenths-of-unit integer to a float value.
func tenths(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v) / 10.0
	return &f
}

func intPtrToFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
