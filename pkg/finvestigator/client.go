// Package finvestigator is a Go client for the finvestigator-server JSON API.
package finvestigator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client provides a Go SDK for interacting with the finvestigator-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new finvestigator API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Home loads the Home page for ticker with a forecast of years.
func (c *Client) Home(ctx context.Context, ticker string, years int) (*HomeResponse, error) {
	q := url.Values{"ticker": {ticker}, "years": {strconv.Itoa(years)}}
	var resp HomeResponse
	if err := c.do(ctx, http.MethodGet, "/api/home?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Bars returns the loaded series for symbol. A positive tail keeps only the
// most recent rows.
func (c *Client) Bars(ctx context.Context, symbol string, tail int) (*BarsResponse, error) {
	path := "/api/bars/" + url.PathEscape(symbol)
	if tail > 0 {
		path += "?tail=" + strconv.Itoa(tail)
	}
	var resp BarsResponse
	if err := c.do(ctx, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile returns the company profile for symbol.
func (c *Client) Profile(ctx context.Context, symbol string) (*Profile, error) {
	var resp Profile
	if err := c.do(ctx, http.MethodGet, "/api/profile/"+url.PathEscape(symbol), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Forecast returns the forecast for symbol over years.
func (c *Client) Forecast(ctx context.Context, symbol string, years int) (*Forecast, error) {
	path := fmt.Sprintf("/api/forecast/%s?years=%d", url.PathEscape(symbol), years)
	var resp Forecast
	if err := c.do(ctx, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// News returns the configured feed.
func (c *Client) News(ctx context.Context) (*NewsResponse, error) {
	var resp NewsResponse
	if err := c.do(ctx, http.MethodGet, "/api/news", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Recent returns up to limit recorded forecasts.
func (c *Client) Recent(ctx context.Context, limit int) ([]Run, error) {
	var resp RecentResponse
	if err := c.do(ctx, http.MethodGet, "/api/recent?limit="+strconv.Itoa(limit), &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Symbols lists the tickers held in the server's bar archive.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	var resp SymbolsResponse
	if err := c.do(ctx, http.MethodGet, "/api/symbols", &resp); err != nil {
		return nil, err
	}
	return resp.Symbols, nil
}

// Purge drops every cached series and forecast on the server.
func (c *Client) Purge(ctx context.Context) (int, error) {
	var resp CacheResponse
	if err := c.do(ctx, http.MethodDelete, "/api/cache", &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

// Invalidate drops cached data for one symbol on the server.
func (c *Client) Invalidate(ctx context.Context, symbol string) (int, error) {
	var resp CacheResponse
	if err := c.do(ctx, http.MethodDelete, "/api/cache/"+url.PathEscape(symbol), &resp); err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode}
		var nr NoticeResponse
		if json.Unmarshal(body, &nr) == nil {
			apiErr.Notice = nr.Notice
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
