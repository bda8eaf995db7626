// Package openfigi provides a client for Bloomberg's OpenFIGI API.
// OpenFIGI maps security identifiers such as ISINs to exchange tickers.
package openfigi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.openfigi.com/v3"

// Without an API key OpenFIGI allows 25 mapping requests per minute.
const anonymousRequestsPerMinute = 25

// MappingRequest represents a request to the OpenFIGI mapping API.
type MappingRequest struct {
	IDType    string `json:"idType"`
	IDValue   string `json:"idValue"`
	ExchCode  string `json:"exchCode,omitempty"`
	MarketSec string `json:"marketSecDes,omitempty"`
}

// MappingResult represents a single result from the OpenFIGI API.
type MappingResult struct {
	FIGI          string `json:"figi"`
	Ticker        string `json:"ticker"`
	ExchCode      string `json:"exchCode"` // Bloomberg exchange code, e.g. "US", "LN"
	Name          string `json:"name"`
	MarketSector  string `json:"marketSector"`
	SecurityType  string `json:"securityType"`
	CompositeFIGI string `json:"compositeFIGI"`
}

// MappingResponse represents a response item from the OpenFIGI API.
type MappingResponse struct {
	Data    []MappingResult `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

// Client is the OpenFIGI API client.
type Client struct {
	baseURL    string
	apiKey     string // optional, raises rate limits
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *clientdata.Cache
	log        zerolog.Logger
}

// NewClient creates a new OpenFIGI client. When requestsPerMinute is zero
// the anonymous limit applies without a key and no pacing with one.
func NewClient(apiKey string, cache *clientdata.Cache, requestsPerMinute int, log zerolog.Logger) *Client {
	if requestsPerMinute == 0 && apiKey == "" {
		requestsPerMinute = anonymousRequestsPerMinute
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		cache:   cache,
		log:     log.With().Str("client", "openfigi").Logger(),
	}
}

// LookupISIN maps an ISIN to its listings. Non-empty results are cached.
func (c *Client) LookupISIN(ctx context.Context, isin string) ([]MappingResult, error) {
	unit := clientdata.Unit{Dir: "openfigi/isin/" + isin, File: "mapping.json"}

	var results []MappingResult
	ok, err := c.cache.ReadJSON(ctx, unit, &results)
	if err != nil {
		return nil, err
	}
	if ok {
		c.log.Debug().Str("isin", isin).Msg("OpenFIGI cache hit")
		return results, nil
	}

	responses, err := c.doRequest(ctx, []MappingRequest{{IDType: "ID_ISIN", IDValue: isin}})
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, nil
	}
	if responses[0].Error != "" {
		return nil, fmt.Errorf("OpenFIGI error for %s: %s", isin, responses[0].Error)
	}

	results = responses[0].Data
	if len(results) > 0 {
		if err := c.cache.WriteJSON(ctx, unit, results, time.Time{}); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// doRequest performs the HTTP request to the OpenFIGI API.
func (c *Client) doRequest(ctx context.Context, requests []MappingRequest) ([]MappingResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mapping", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-OPENFIGI-APIKEY", c.apiKey)
	}

	c.log.Debug().Int("count", len(requests)).Msg("Making OpenFIGI request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("OpenFIGI API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var responses []MappingResponse
	if err := json.NewDecoder(resp.Body).Decode(&responses); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return responses, nil
}

// SetBaseURL points the client at another endpoint, e.g. a proxy or mirror.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}
