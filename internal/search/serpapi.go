// Package search queries a web-search results API for approximate result
// counts used as a popularity signal during claim scoring.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/verinews/relayer/internal/model"
	"github.com/verinews/relayer/internal/worker"
)

// Client queries the SerpAPI Google engine
type Client struct {
	endpoint   string
	apiKey     string
	numResults int
	httpClient *http.Client
	limiter    *worker.Limiter
}

// serpResponse mirrors the fields of the SerpAPI payload the relayer reads
type serpResponse struct {
	SearchInformation struct {
		TotalResults *int64 `json:"total_results"`
	} `json:"search_information"`
	Error string `json:"error,omitempty"`
}

// NewClient creates a new search client
func NewClient(endpoint, apiKey string, numResults int, timeout time.Duration, limiter *worker.Limiter) *Client {
	if numResults <= 0 {
		numResults = 5
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		numResults: numResults,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// TotalResults returns the approximate total result count for a query. A
// missing count field in an otherwise successful response is an error: the
// scoring prompt depends on it.
func (c *Client) TotalResults(ctx context.Context, query string) (int64, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", strconv.Itoa(c.numResults))

	reqURL := c.endpoint + "?" + params.Encode()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, reqURL); err != nil {
			return 0, &model.SearchError{Query: query, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, &model.SearchError{Query: query, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &model.SearchError{Query: query, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &model.SearchError{Query: query, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return 0, &model.SearchError{Query: query, Err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)}
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, &model.SearchError{Query: query, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if parsed.Error != "" {
		return 0, &model.SearchError{Query: query, Err: fmt.Errorf("api error: %s", parsed.Error)}
	}
	if parsed.SearchInformation.TotalResults == nil {
		return 0, &model.SearchError{Query: query, Err: fmt.Errorf("response missing search_information.total_results")}
	}

	return *parsed.SearchInformation.TotalResults, nil
}
