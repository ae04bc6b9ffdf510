package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client fetches hourly day-ahead spot prices from the public price feed.
// The feed serves one JSON document per (day, area) pair.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client with a bounded request timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// HourlyEntry is one hour of feed data. Only the local-currency price and the
// start timestamp are consumed downstream.
type HourlyEntry struct {
	NOKPerKWh    float64   `json:"NOK_per_kWh"`
	EURPerKWh    float64   `json:"EUR_per_kWh"`
	ExchangeRate float64   `json:"EXR"`
	TimeStart    time.Time `json:"time_start"`
	TimeEnd      time.Time `json:"time_end"`
}

// FetchDay fetches all hourly entries for one calendar day and market area.
// The feed normally returns 24 entries but that is not enforced here.
func (c *Client) FetchDay(ctx context.Context, date time.Time, area string) ([]HourlyEntry, error) {
	url := fmt.Sprintf("%s/%d/%02d-%02d_%s.json", c.baseURL, date.Year(), int(date.Month()), date.Day(), area)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response for %s: %w", url, err)
	}

	var entries []HourlyEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode response for %s: %w", url, err)
	}
	return entries, nil
}
