// Package noaa fetches GHCN-Daily observations from the NOAA Climate Data
// Online (CDO) v2 API and assembles them into bronze-layer records.
//
// The CDO data endpoint returns one row per (station, date, element); this
// client pivots those element rows back into one record per (station, date)
// and joins station metadata (name, coordinates, elevation) from the
// stations endpoint.
package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
	"github.com/couchcryptid/weather-energy-pipeline/internal/observability"
)

// SourceLabel tags bronze rows produced by this client.
const SourceLabel = "noaa_ghcnd"

const cdoDateFormat = "2006-01-02"

// Client fetches GHCN-D daily observations.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	pageSize   int
	metrics    *observability.Metrics
	logger     *slog.Logger
	clock      clockwork.Clock
}

// NewClient creates a CDO API client. The token is sent on every request via
// the "token" header as the CDO API requires.
func NewClient(token, baseURL string, timeout time.Duration, pageSize int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		pageSize:   pageSize,
		metrics:    metrics,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
	}
}

// FetchObservations retrieves all GHCN-D observations in [start, end] and
// pivots them into one raw record per (station, date), stamped with the
// ingestion audit columns.
func (c *Client) FetchObservations(ctx context.Context, start, end time.Time) ([]domain.RawStationObservation, error) {
	stations, err := c.fetchStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stations: %w", err)
	}

	rows, err := c.fetchData(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}

	return pivot(rows, stations, c.clock.Now()), nil
}

// station holds the metadata joined onto each observation.
type station struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Elevation float64 `json:"elevation"`
}

// dataRow is one element reading from the CDO data endpoint.
type dataRow struct {
	Date       string `json:"date"` // "2023-06-01T00:00:00"
	DataType   string `json:"datatype"`
	Station    string `json:"station"`
	Attributes string `json:"attributes"`
	Value      int    `json:"value"`
}

type page[T any] struct {
	Results []T `json:"results"`
}

func (c *Client) fetchStations(ctx context.Context) (map[string]station, error) {
	stations := make(map[string]station)

	// CDO pagination is 1-based.
	for offset := 1; ; offset += c.pageSize {
		params := url.Values{
			"datasetid": {"GHCND"},
			"limit":     {fmt.Sprint(c.pageSize)},
			"offset":    {fmt.Sprint(offset)},
		}

		var p page[station]
		if err := c.doRequest(ctx, c.baseURL+"/stations?"+params.Encode(), &p); err != nil {
			return nil, err
		}
		for _, s := range p.Results {
			stations[s.ID] = s
		}
		if len(p.Results) < c.pageSize {
			return stations, nil
		}
	}
}

func (c *Client) fetchData(ctx context.Context, start, end time.Time) ([]dataRow, error) {
	var rows []dataRow

	for offset := 1; ; offset += c.pageSize {
		params := url.Values{
			"datasetid":  {"GHCND"},
			"datatypeid": {"TMAX,TMIN,PRCP,SNOW,SNWD"},
			"startdate":  {start.Format(cdoDateFormat)},
			"enddate":    {end.Format(cdoDateFormat)},
			"units":      {"raw"},
			"limit":      {fmt.Sprint(c.pageSize)},
			"offset":     {fmt.Sprint(offset)},
		}

		var p page[dataRow]
		if err := c.doRequest(ctx, c.baseURL+"/data?"+params.Encode(), &p); err != nil {
			return nil, err
		}
		rows = append(rows, p.Results...)
		if len(p.Results) < c.pageSize {
			return rows, nil
		}
	}
}

func (c *Client) doRequest(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("token", c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchAPIDuration.WithLabelValues(SourceLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(SourceLabel, "error").Inc()
		return fmt.Errorf("cdo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(SourceLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cdo API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.FetchRequests.WithLabelValues(SourceLabel, "error").Inc()
		return fmt.Errorf("decode response: %w", err)
	}

	c.metrics.FetchRequests.WithLabelValues(SourceLabel, "success").Inc()
	return nil
}

// pivot folds per-element rows into one record per (station, date). Element
// rows for stations missing from the metadata set are kept with zero
// coordinates; the silver layer's region mapping sends them to OTHER.
func pivot(rows []dataRow, stations map[string]station, ingestedAt time.Time) []domain.RawStationObservation {
	type key struct {
		station string
		date    string
	}

	grouped := make(map[key]*domain.RawStationObservation)
	for _, r := range rows {
		date, err := time.Parse("2006-01-02T15:04:05", r.Date)
		if err != nil {
			continue
		}

		k := key{station: r.Station, date: r.Date}
		obs, ok := grouped[k]
		if !ok {
			meta := stations[r.Station]
			obs = &domain.RawStationObservation{
				StationID:   r.Station,
				StationName: meta.Name,
				Latitude:    meta.Latitude,
				Longitude:   meta.Longitude,
				Elevation:   meta.Elevation,
				Date:        date.UTC(),
				IngestedAt:  ingestedAt,
				Source:      SourceLabel,
			}
			grouped[k] = obs
		}

		v := r.Value
		switch r.DataType {
		case "TMAX":
			obs.TempMax = &v
			obs.TempMaxAttrs = r.Attributes
		case "TMIN":
			obs.TempMin = &v
			obs.TempMinAttrs = r.Attributes
		case "PRCP":
			obs.Precip = &v
			obs.PrecipAttrs = r.Attributes
		case "SNOW":
			obs.Snowfall = &v
			obs.SnowfallAttrs = r.Attributes
		case "SNWD":
			obs.SnowDepth = &v
		}
	}

	out := make([]domain.RawStationObservation, 0, len(grouped))
	for _, obs := range grouped {
		out = append(out, *obs)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StationID < out[j].StationID
	})
	return out
}
