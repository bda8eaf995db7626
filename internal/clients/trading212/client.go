// Package trading212 provides a client for Trading 212's public instrument
// list and company fundamentals.
package trading212

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://live.trading212.com"

// Instrument is an entry of the public instrument list.
type Instrument struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`       // ticker, e.g. "O"
	PrettyName    string `json:"prettyName"` // e.g. "Realty Income"
	Code          string `json:"code"`       // e.g. "O_US_EQ"
	Type          string `json:"type"`
	Currency      string `json:"currency"`
	ISIN          string `json:"isin"`
	PriorityIndex *int   `json:"priorityIndex,omitempty"`
}

// primary reports whether the instrument is the main listing of its ISIN.
func (i Instrument) primary() bool {
	return i.PriorityIndex == nil || *i.PriorityIndex == 0
}

// KeyRatios holds the fundamentals ratios. DividendYield is a percentage;
// negative values mean the company pays no dividend.
type KeyRatios struct {
	MarketCap     *float64 `json:"marketCap"`
	PERatio       *float64 `json:"peRatio"`
	EPS           *float64 `json:"eps"`
	DividendYield *float64 `json:"dividendYield"`
}

// Company is the fundamentals response for one ISIN.
type Company struct {
	GeneralInformation struct {
		Sector   string `json:"sector"`
		Industry string `json:"industry"`
	} `json:"generalInformation"`
	KeyRatios KeyRatios `json:"keyRatios"`
}

// Client is the Trading 212 API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *clientdata.Cache
	log        zerolog.Logger
}

// NewClient creates a new Trading 212 client. requestsPerMinute <= 0 disables pacing.
func NewClient(cache *clientdata.Cache, requestsPerMinute int, log zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: newLimiter(requestsPerMinute),
		cache:   cache,
		log:     log.With().Str("client", "trading212").Logger(),
	}
}

func newLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

var instrumentsUnit = clientdata.Unit{Dir: "trading212/instruments", File: "instruments.json"}

// Instruments returns the full instrument list, cached as one unit.
func (c *Client) Instruments(ctx context.Context) ([]Instrument, error) {
	var cached []Instrument
	ok, err := c.cache.ReadJSON(ctx, instrumentsUnit, &cached)
	if err != nil {
		return nil, err
	}
	if ok {
		c.log.Debug().Int("count", len(cached)).Msg("Using cached instrument list")
		return cached, nil
	}

	c.log.Info().Msg("Fetching instrument list")

	var raw []*Instrument
	if err := c.getJSON(ctx, "/rest/instruments", nil, &raw); err != nil {
		return nil, fmt.Errorf("unable to fetch instruments: %w", err)
	}

	instruments := make([]Instrument, 0, len(raw))
	for _, i := range raw {
		if i != nil {
			instruments = append(instruments, *i)
		}
	}

	if err := c.cache.WriteJSON(ctx, instrumentsUnit, instruments, time.Time{}); err != nil {
		return nil, err
	}
	c.log.Info().Int("count", len(instruments)).Msg("Cached instrument list")
	return instruments, nil
}

// Company returns fundamentals for isin.
func (c *Client) Company(ctx context.Context, isin string) (*Company, error) {
	unit := clientdata.Unit{Dir: "trading212/companies/" + isin, File: "company.json"}

	var company Company
	ok, err := c.cache.ReadJSON(ctx, unit, &company)
	if err != nil {
		return nil, err
	}
	if ok {
		c.log.Debug().Str("isin", isin).Msg("Using cached company fundamentals")
		return &company, nil
	}

	c.log.Info().Str("isin", isin).Msg("Fetching company fundamentals")

	query := url.Values{"languageCode": {"en"}, "isin": {isin}}
	if err := c.getJSON(ctx, "/rest/companies/fundamentals", query, &company); err != nil {
		return nil, fmt.Errorf("unable to retrieve company fundamentals for %s: %w", isin, err)
	}

	if err := c.cache.WriteJSON(ctx, unit, company, time.Time{}); err != nil {
		return nil, err
	}
	return &company, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("trading212 API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// SetBaseURL points the client at another endpoint, e.g. a proxy or mirror.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}
