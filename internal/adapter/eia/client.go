// Package eia fetches daily electricity demand from the EIA v2 API
// daily-region-data endpoint, one request series per balancing authority.
package eia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-energy-pipeline/internal/domain"
	"github.com/couchcryptid/weather-energy-pipeline/internal/observability"
)

// SourceLabel tags bronze rows produced by this client.
const SourceLabel = "eia_api"

const eiaDateFormat = "2006-01-02"

// Client fetches daily demand records.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	pageSize   int
	metrics    *observability.Metrics
	logger     *slog.Logger
	clock      clockwork.Clock
}

// NewClient creates an EIA API client.
func NewClient(apiKey, baseURL string, timeout time.Duration, pageSize int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		pageSize:   pageSize,
		metrics:    metrics,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
	}
}

// demandRow is one record from the EIA response. Numeric values arrive as
// strings and are converted here; unparsable values yield zero demand, which
// the silver layer drops as out of range.
type demandRow struct {
	Period         string      `json:"period"` // "2023-06-01" or "20230601"
	Respondent     string      `json:"respondent"`
	RespondentName string      `json:"respondent-name"`
	Type           string      `json:"type"`
	TypeName       string      `json:"type-name"`
	Value          json.Number `json:"value"`
	ValueUnits     string      `json:"value-units"`
}

type response struct {
	Response struct {
		Total json.Number `json:"total"`
		Data  []demandRow `json:"data"`
	} `json:"response"`
}

// FetchDemand retrieves daily demand for one region over [start, end],
// following the API's offset pagination until the reported total is reached.
func (c *Client) FetchDemand(ctx context.Context, region string, start, end time.Time) ([]domain.RawDemandRecord, error) {
	var all []demandRow

	for offset := 0; ; offset += c.pageSize {
		params := url.Values{
			"api_key":              {c.apiKey},
			"frequency":            {"daily"},
			"data[0]":              {"value"},
			"facets[respondent][]": {region},
			"facets[type][]":       {"D"},
			"start":                {start.Format(eiaDateFormat)},
			"end":                  {end.Format(eiaDateFormat)},
			"sort[0][column]":      {"period"},
			"sort[0][direction]":   {"asc"},
			"offset":               {fmt.Sprint(offset)},
			"length":               {fmt.Sprint(c.pageSize)},
		}

		resp, err := c.doRequest(ctx, c.baseURL+"/electricity/rto/daily-region-data/data/?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("fetch demand for %s: %w", region, err)
		}

		all = append(all, resp.Response.Data...)

		total, err := resp.Response.Total.Int64()
		if err != nil || int64(len(all)) >= total || len(resp.Response.Data) == 0 {
			break
		}
	}

	return c.toRecords(all), nil
}

// FetchAllRegions fetches demand for every known region sequentially and
// concatenates the results.
func (c *Client) FetchAllRegions(ctx context.Context, start, end time.Time) ([]domain.RawDemandRecord, error) {
	var all []domain.RawDemandRecord
	for _, region := range domain.Regions() {
		recs, err := c.FetchDemand(ctx, region, start, end)
		if err != nil {
			return nil, err
		}
		c.logger.Info("fetched demand records", "region", region, "count", len(recs))
		all = append(all, recs...)
	}
	return all, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchAPIDuration.WithLabelValues(SourceLabel).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(SourceLabel, "error").Inc()
		return nil, fmt.Errorf("eia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(SourceLabel, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("eia API error: status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.FetchRequests.WithLabelValues(SourceLabel, "error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.metrics.FetchRequests.WithLabelValues(SourceLabel, "success").Inc()
	return &out, nil
}

func (c *Client) toRecords(rows []demandRow) []domain.RawDemandRecord {
	now := c.clock.Now()
	out := make([]domain.RawDemandRecord, 0, len(rows))
	for _, r := range rows {
		demand, _ := r.Value.Float64()
		out = append(out, domain.RawDemandRecord{
			Date:         parsePeriod(r.Period),
			RegionCode:   r.Respondent,
			RegionName:   r.RespondentName,
			DataType:     r.Type,
			DataTypeName: r.TypeName,
			DemandMWh:    demand,
			Units:        r.ValueUnits,
			IngestedAt:   now,
			Source:       SourceLabel,
		})
	}
	return out
}

// parsePeriod accepts both period encodings the API has used: YYYY-MM-DD and
// YYYYMMDD. An unparsable period yields the zero time, dropped downstream.
func parsePeriod(period string) time.Time {
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, period); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
