// Package domain models NOAA daily weather observations and EIA electricity
// demand, and the bronze → silver → gold transformations between them.
//
// # Data Sources
//
// Weather observations come from the NOAA GHCN-Daily archive: one record per
// (station, date) with temperature extremes, precipitation, and snow fields.
// Demand figures come from the EIA v2 API daily-region-data endpoint, one
// record per (date, balancing authority).
//
// # GHCN-D Encoding Conventions
//
// Raw values are integers in tenths of a unit:
//
//	TMAX/TMIN: tenths of °C  →  250 = 25.0 °C
//	PRCP:      tenths of mm  →  15  = 1.5 mm
//	SNOW:      tenths of mm, converted to cm (divide by 10)
//	SNWD:      mm, carried through unchanged
//
// Each element carries a three-character attribute string (measurement,
// quality, and source flags) which is preserved verbatim through the silver
// layer for downstream auditing.
//
// Missing elements are nil, never zero: 0 is a legitimate temperature.
//
// # Validation
//
// Silver normalization drops (does not null out) any record violating:
//
//	date outside [1763-01-01, today]   (GHCN has no earlier records)
//	temp_max_c outside [-80, 60]
//	temp_min_c outside [-90, 50]
//	temp_max_c < temp_min_c when both present
//
// A dropped row is a data-quality filter outcome, not an error. The
// completeness score (0–3) counts which of {tmax, tmin, prcp} were reported.
//
// # Region Assignment
//
// Stations map to one of ten balancing-authority regions via an ORDERED list
// of latitude/longitude bounding boxes; the first matching box wins. Several
// boxes overlap (MISO/PJM, SWPP/ERCO), so evaluation order is load-bearing
// and lives in a single embedded artifact, regions.yaml. Stations matching
// no box are assigned RegionOther and excluded from every gold table.
//
// # Degree Days
//
// Heating and cooling degree days use an 18 °C base. The per-station daily
// deficit/excess is computed first and then averaged across the region's
// stations. Taking the deficit of the already-averaged regional temperature
// gives a different (wrong) answer whenever station coverage is nonuniform.
package domain
