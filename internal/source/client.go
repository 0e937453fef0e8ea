package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/meltforce/vitalsync/internal/metrics"
)

// Client queries the device health provider's local HTTP endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a provider client. timeout bounds each request.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Adapter = (*Client)(nil)

// statisticResponse is the provider's aggregated-total reply. Total is null
// when the provider has no data in the window.
type statisticResponse struct {
	Kind  string   `json:"kind"`
	Total *float64 `json:"total"`
	Unit  string   `json:"unit"`
}

// CheckPermissions retrieves the provider's read/write grants per kind.
func (c *Client) CheckPermissions(ctx context.Context) ([]Permission, error) {
	var perms []Permission
	if err := c.getJSON(ctx, "/v1/permissions", nil, &perms); err != nil {
		return nil, fmt.Errorf("checking permissions: %w", err)
	}
	return perms, nil
}

// QueryStatistic fetches the provider-side deduplicated total for a
// cumulative kind over the window.
func (c *Client) QueryStatistic(ctx context.Context, kind metrics.Kind, window Window) (*float64, error) {
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("start", window.Start.Format(time.RFC3339))
	q.Set("end", window.End.Format(time.RFC3339))

	var resp statisticResponse
	if err := c.getJSON(ctx, "/v1/statistic", q, &resp); err != nil {
		return nil, fmt.Errorf("querying %s statistic: %w", kind, err)
	}
	return resp.Total, nil
}

// QuerySamples fetches raw samples for a kind over the window, capped at limit.
func (c *Client) QuerySamples(ctx context.Context, kind metrics.Kind, window Window, limit int) ([]metrics.RawSample, error) {
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("start", window.Start.Format(time.RFC3339))
	q.Set("end", window.End.Format(time.RFC3339))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var samples []metrics.RawSample
	if err := c.getJSON(ctx, "/v1/samples", q, &samples); err != nil {
		return nil, fmt.Errorf("querying %s samples: %w", kind, err)
	}
	return samples, nil
}

// getJSON performs a GET and decodes the JSON response. Retries up to 3 times
// with exponential backoff on transport errors and 5xx responses.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(1<<uint(attempt-1)) * time.Second):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("provider error (status %d): %s", resp.StatusCode, body)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("provider request failed (status %d): %s", resp.StatusCode, body)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding provider response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("provider unreachable after 3 attempts: %w", lastErr)
}
