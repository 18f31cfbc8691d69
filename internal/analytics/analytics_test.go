package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
)

func floatp(v float64) *float64 { return &v }

func corrRow(region string, date time.Time, tempC, demand, hdd, cdd float64) domain.WeatherEnergyCorrelation {
	return domain.WeatherEnergyCorrelation{
		Date:              date,
		Region:            region,
		StationCount:      8,
		AvgTempC:          tempC,
		MinTempC:          tempC - 5,
		MaxTempC:          tempC + 5,
		HeatingDegreeDays: hdd,
		CoolingDegreeDays: cdd,
		DemandMWh:         demand,
	}
}

func janRange() Range {
	return Range{From: domain.Date(2024, time.January, 1), To: domain.Date(2024, time.December, 31)}
}

func TestTemperatureDemandCorrelation(t *testing.T) {
	day := func(n int) time.Time { return domain.Date(2024, time.January, n) }
	rows := []domain.WeatherEnergyCorrelation{
		// ERCO: demand rises linearly with temperature.
		corrRow("ERCO", day(1), 10, 1000, 0, 0),
		corrRow("ERCO", day(2), 20, 2000, 0, 0),
		corrRow("ERCO", day(3), 30, 3000, 0, 0),
		// PJM: demand falls as temperature rises.
		corrRow("PJM", day(1), 0, 3000, 0, 0),
		corrRow("PJM", day(2), 10, 2000, 0, 0),
		corrRow("PJM", day(3), 20, 1000, 0, 0),
		// NYIS: too few days to estimate anything.
		corrRow("NYIS", day(1), 5, 1500, 0, 0),
		corrRow("NYIS", day(2), 6, 1600, 0, 0),
	}

	got := TemperatureDemandCorrelation(rows, janRange())
	require.Len(t, got, 2)

	assert.Equal(t, "ERCO", got[0].Region)
	assert.InDelta(t, 1.0, got[0].Coefficient, 1e-9)
	assert.Equal(t, 3, got[0].Days)

	assert.Equal(t, "PJM", got[1].Region)
	assert.InDelta(t, -1.0, got[1].Coefficient, 1e-9)
}

func TestTemperatureDemandCorrelation_RangeFilter(t *testing.T) {
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("PJM", domain.Date(2023, time.June, 1), 10, 1000, 0, 0),
		corrRow("PJM", domain.Date(2023, time.June, 2), 20, 2000, 0, 0),
		corrRow("PJM", domain.Date(2023, time.June, 3), 30, 3000, 0, 0),
	}

	got := TemperatureDemandCorrelation(rows, janRange())
	assert.Empty(t, got, "rows outside the range are excluded")
}

func TestDegreeDayDemandCorrelation(t *testing.T) {
	day := func(n int) time.Time { return domain.Date(2024, time.January, n) }
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("PJM", day(1), 8, 1000, 10, 0),
		corrRow("PJM", day(2), (18 - 20), 2000, 20, 0),
		corrRow("PJM", day(3), (18 - 30), 3000, 30, 0),
	}

	got := DegreeDayDemandCorrelation(rows, janRange())
	require.Len(t, got, 1)
	assert.InDelta(t, 1.0, got[0].HDDDemand, 1e-9)
}

func TestSeasonalAverages(t *testing.T) {
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("PJM", domain.Date(2024, time.January, 10), 0, 3000, 18, 0),
		corrRow("PJM", domain.Date(2024, time.February, 10), 2, 2800, 16, 0),
		corrRow("PJM", domain.Date(2024, time.July, 10), 28, 3500, 0, 10),
	}

	got := SeasonalAverages(rows, janRange())
	require.Len(t, got, 2)

	assert.Equal(t, "Q1", got[0].Quarter)
	assert.Equal(t, 2, got[0].Days)
	assert.InDelta(t, 1.0, got[0].AvgTempC, 1e-9)
	assert.InDelta(t, 2900, got[0].AvgDemandMWh, 1e-9)

	assert.Equal(t, "Q3", got[1].Quarter)
	assert.Equal(t, 1, got[1].Days)
}

func TestExtremeWeatherImpact(t *testing.T) {
	rows := make([]domain.WeatherEnergyCorrelation, 0, 20)
	for i := 1; i <= 20; i++ {
		rows = append(rows, corrRow("ERCO", domain.Date(2024, time.June, i), float64(i), float64(i)*100, 0, 0))
	}

	got := ExtremeWeatherImpact(rows, janRange())
	require.Len(t, got, 1)
	impact := got[0]

	// Deciles of 20 days are 2 days each.
	assert.InDelta(t, 150, impact.ColdestAvgDemand, 1e-9)
	assert.InDelta(t, 1950, impact.HottestAvgDemand, 1e-9)
	assert.InDelta(t, 1050, impact.TypicalAvgDemand, 1e-9)
	assert.InDelta(t, 1950.0/1050.0, impact.HottestDemandLift, 1e-9)
	assert.InDelta(t, 150.0/1050.0, impact.ColdestDemandLift, 1e-9)
}

func TestExtremeWeatherImpact_TooFewDays(t *testing.T) {
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("PJM", domain.Date(2024, time.June, 1), 10, 1000, 0, 0),
	}
	assert.Empty(t, ExtremeWeatherImpact(rows, janRange()))
}

func TestPrecipitationBucketedDemand(t *testing.T) {
	day := func(n int) time.Time { return domain.Date(2024, time.March, n) }
	withPrecip := func(row domain.WeatherEnergyCorrelation, mm *float64) domain.WeatherEnergyCorrelation {
		row.AvgPrecipitationMM = mm
		return row
	}
	rows := []domain.WeatherEnergyCorrelation{
		withPrecip(corrRow("PJM", day(1), 10, 1000, 0, 0), floatp(0)),
		withPrecip(corrRow("PJM", day(2), 10, 1100, 0, 0), floatp(5)),
		withPrecip(corrRow("PJM", day(3), 10, 1200, 0, 0), floatp(15)),
		withPrecip(corrRow("PJM", day(4), 10, 1300, 0, 0), floatp(30)),
		withPrecip(corrRow("PJM", day(5), 10, 9999, 0, 0), nil), // no reading, excluded
	}

	got := PrecipitationBucketedDemand(rows, janRange())
	require.Len(t, got, 4)
	assert.Equal(t, []string{"none", "light", "moderate", "heavy"},
		[]string{got[0].Bucket, got[1].Bucket, got[2].Bucket, got[3].Bucket})
	assert.InDelta(t, 1000, got[0].AvgDemandMWh, 1e-9)
	assert.InDelta(t, 1300, got[3].AvgDemandMWh, 1e-9)
}

func TestYearOverYearTrend(t *testing.T) {
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("PJM", domain.Date(2023, time.June, 1), 20, 100, 0, 2),
		corrRow("PJM", domain.Date(2023, time.June, 2), 20, 100, 0, 2),
		corrRow("PJM", domain.Date(2024, time.June, 1), 22, 110, 0, 4),
	}
	r := Range{From: domain.Date(2023, time.January, 1), To: domain.Date(2024, time.December, 31)}

	got := YearOverYearTrend(rows, r)
	require.Len(t, got, 2)

	assert.Equal(t, 2023, got[0].Year)
	assert.InDelta(t, 100, got[0].AvgDemandMWh, 1e-9)
	assert.InDelta(t, 200, got[0].TotalDemandMWh, 1e-9)
	assert.Nil(t, got[0].ChangePct)

	assert.Equal(t, 2024, got[1].Year)
	require.NotNil(t, got[1].ChangePct)
	assert.InDelta(t, 10.0, *got[1].ChangePct, 1e-9)
}

func TestLagFeatures(t *testing.T) {
	day := func(n int) time.Time { return domain.Date(2024, time.January, n) }
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("PJM", day(1), 0, 1000, 18, 0),
		corrRow("PJM", day(2), 1, 1100, 17, 0),
		// Jan 3 missing.
		corrRow("PJM", day(4), 2, 1200, 16, 0),
		corrRow("PJM", day(8), 3, 1300, 15, 0),
	}

	got := LagFeatures(rows, janRange())
	require.Len(t, got, 4)

	assert.Nil(t, got[0].DemandLag1, "first day has no prior")

	require.NotNil(t, got[1].DemandLag1)
	assert.InDelta(t, 1000, *got[1].DemandLag1, 1e-9)

	assert.Nil(t, got[2].DemandLag1, "gap in the table yields nil, not the previous row")

	require.NotNil(t, got[3].DemandLag7, "Jan 8 looks back to Jan 1")
	assert.InDelta(t, 1000, *got[3].DemandLag7, 1e-9)
	assert.Nil(t, got[3].DemandLag1)
}

func TestRollingWindows(t *testing.T) {
	day := func(n int) time.Time { return domain.Date(2024, time.January, n) }
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("PJM", day(1), 10, 1000, 8, 0),
		corrRow("PJM", day(2), 20, 2000, 0, 2),
		corrRow("PJM", day(3), 30, 3000, 0, 12),
	}

	got := RollingWindows(rows, janRange())
	require.Len(t, got, 3)

	assert.Equal(t, 1, got[0].Days7InWind)
	assert.InDelta(t, 10, got[0].Temp7Day, 1e-9)

	last := got[2]
	assert.Equal(t, 3, last.Days7InWind)
	assert.InDelta(t, 20, last.Temp7Day, 1e-9)
	assert.InDelta(t, 2000, last.Demand7Day, 1e-9)
	assert.Equal(t, 3, last.Days30InWind)
	assert.InDelta(t, 2000, last.Demand30Day, 1e-9)
}

func TestRollingWindows_WindowExcludesOldRows(t *testing.T) {
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("PJM", domain.Date(2024, time.January, 1), 0, 9000, 18, 0),
		corrRow("PJM", domain.Date(2024, time.January, 20), 10, 1000, 8, 0),
	}

	got := RollingWindows(rows, janRange())
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[1].Days7InWind, "Jan 1 is outside the 7-day window of Jan 20")
	assert.InDelta(t, 1000, got[1].Demand7Day, 1e-9)
	assert.Equal(t, 2, got[1].Days30InWind)
}

func TestEfficiencyRanking(t *testing.T) {
	day := func(n int) time.Time { return domain.Date(2024, time.January, n) }
	rows := []domain.WeatherEnergyCorrelation{
		// ERCO: 3000 MWh over 30 degree days = 100 MWh/dd.
		corrRow("ERCO", day(1), -12, 3000, 30, 0),
		// PJM: 1000 MWh over 20 degree days = 50 MWh/dd.
		corrRow("PJM", day(1), -2, 1000, 20, 0),
		// CISO: mild day, no degree days at all.
		corrRow("CISO", day(1), 18, 500, 0, 0),
	}

	got := EfficiencyRanking(rows, janRange())
	require.Len(t, got, 3)

	assert.Equal(t, "PJM", got[0].Region)
	assert.Equal(t, 1, got[0].Rank)
	require.NotNil(t, got[0].DemandPerDegreeDay)
	assert.InDelta(t, 50, *got[0].DemandPerDegreeDay, 1e-9)

	assert.Equal(t, "ERCO", got[1].Region)
	assert.Equal(t, 2, got[1].Rank)

	assert.Equal(t, "CISO", got[2].Region)
	assert.Equal(t, 0, got[2].Rank, "no degree days leaves the region unranked")
	assert.Nil(t, got[2].DemandPerDegreeDay)
}

func TestPeakDemandDays(t *testing.T) {
	day := func(n int) time.Time { return domain.Date(2024, time.July, n) }
	rows := []domain.WeatherEnergyCorrelation{
		corrRow("ERCO", day(1), 30, 5000, 0, 12),
		corrRow("ERCO", day(2), 35, 9000, 0, 17),
		corrRow("ERCO", day(3), 33, 7000, 0, 15),
		corrRow("ERCO", day(4), 28, 4000, 0, 10),
	}

	got := PeakDemandDays(rows, janRange(), 2)
	require.Len(t, got, 2)
	assert.Equal(t, day(2), got[0].Date)
	assert.InDelta(t, 9000, got[0].DemandMWh, 1e-9)
	assert.InDelta(t, 35, got[0].AvgTempC, 1e-9)
	assert.Equal(t, day(3), got[1].Date)
}
