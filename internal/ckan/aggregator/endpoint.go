package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/geesthacht-opendata/pkg/ckan/models"
)

const (
	// Bytes of an error body kept in error messages.
	maxErrorBody = 512
	// Bytes read from a non-2xx response when looking for a CKAN envelope.
	maxEnvelopeBody = 64 << 10
)

func (c *Client) searchEndpoint(ctx context.Context, ep Endpoint, query string) ([]models.Package, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.EndpointTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	if ep.Rows > 0 {
		params.Set("rows", strconv.Itoa(ep.Rows))
	}

	var resp models.SearchResponse
	if err := c.getAction(ctx, ep, "package_search", params, &resp); err != nil {
		return nil, &EndpointError{Endpoint: ep.Name, Err: err}
	}
	if !resp.Success {
		return nil, &EndpointError{
			Endpoint: ep.Name,
			Err:      fmt.Errorf("%w: %s", ErrUpstreamReportedFailure, resp.Error.String()),
		}
	}

	results := resp.Result.Results
	if ep.Rows > 0 && len(results) > ep.Rows {
		c.logger.Debug("Endpoint returned more rows than requested, truncating",
			"endpoint", ep.Name,
			"rows", ep.Rows,
			"returned", len(results))
		results = results[:ep.Rows]
	}

	c.logger.Debug("Endpoint search succeeded",
		"endpoint", ep.Name,
		"query", query,
		"count", resp.Result.Count,
		"results", len(results))

	return results, nil
}

// GetPackageDetails fetches one package from the primary endpoint. Unlike
// Search there is no fallback: any failure is returned as a
// *NotFoundOrUpstreamError.
func (c *Client) GetPackageDetails(ctx context.Context, id string) (*models.Package, error) {
	if id == "" {
		return nil, &NotFoundOrUpstreamError{ID: id, Err: fmt.Errorf("empty package id")}
	}
	if len(c.config.Endpoints) == 0 {
		return nil, &NotFoundOrUpstreamError{ID: id, Err: fmt.Errorf("%w: no endpoints configured", ErrEndpointUnavailable)}
	}
	ep := c.config.Endpoints[0]

	ctx, cancel := context.WithTimeout(ctx, c.config.EndpointTimeout)
	defer cancel()

	params := url.Values{}
	params.Set("id", id)

	var resp models.PackageResponse
	if err := c.getAction(ctx, ep, "package_show", params, &resp); err != nil {
		c.logger.Error("Package lookup failed", "endpoint", ep.Name, "id", id, "error", err)
		return nil, &NotFoundOrUpstreamError{ID: id, Err: err}
	}
	if !resp.Success {
		return nil, &NotFoundOrUpstreamError{
			ID:  id,
			Err: fmt.Errorf("%w: %s", ErrUpstreamReportedFailure, resp.Error.String()),
		}
	}
	if resp.Result.ID == "" {
		return nil, &NotFoundOrUpstreamError{ID: id}
	}

	c.logger.Debug("Package fetched", "endpoint", ep.Name, "id", resp.Result.ID)
	return &resp.Result, nil
}

// getAction performs GET {base}/{action}?params and decodes the envelope
// into out. CKAN answers lookups of unknown IDs with 404 plus a success=false
// envelope; those bodies are decoded too so the caller sees the upstream
// message.
func (c *Client) getAction(ctx context.Context, ep Endpoint, action string, params url.Values, out interface{}) error {
	reqURL := ep.BaseURL + "/" + action + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrEndpointUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: executing request to %s: %v", ErrEndpointUnavailable, reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBody))
		if resp.StatusCode == http.StatusNotFound {
			var envelope struct {
				Success *bool `json:"success"`
			}
			if json.Unmarshal(body, &envelope) == nil && envelope.Success != nil && !*envelope.Success {
				if err := json.Unmarshal(body, out); err == nil {
					return nil
				}
			}
		}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fmt.Errorf("%w: status %d: %s", ErrEndpointUnavailable, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrEndpointUnavailable, err)
	}
	return nil
}
