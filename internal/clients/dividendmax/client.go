// Package dividendmax provides a client for dividendmax.com, which publishes
// forecast dividend yields on per-company pages.
package dividendmax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aristath/dividends/internal/clientdata"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.dividendmax.com"

// ErrNoYieldCard is returned when a stock page has no yield highlight.
var ErrNoYieldCard = errors.New("dividendmax: no dividend yield card on stock page")

// errNoYieldValue marks a yield card whose value is not a number, e.g. "N/A".
var errNoYieldValue = errors.New("dividendmax: dividend yield card has no value")

// SearchResult is one entry of the suggest endpoint.
type SearchResult struct {
	ID     int    `json:"id"`
	Flag   string `json:"flag"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Search string `json:"search"`
	Ticker string `json:"ticker"`
}

// Client is the dividendmax.com client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *clientdata.Cache
	log        zerolog.Logger
}

// NewClient creates a new dividendmax client.
func NewClient(cache *clientdata.Cache, requestsPerMinute int, log zerolog.Logger) *Client {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: limiter,
		cache:   cache,
		log:     log.With().Str("client", "dividendmax").Logger(),
	}
}

func stockDir(isin string) string {
	return "dividendmax/stocks/" + isin
}

// Search returns the suggest results for symbol, cached under isin.
func (c *Client) Search(ctx context.Context, isin, symbol string) ([]SearchResult, error) {
	unit := clientdata.Unit{Dir: stockDir(isin), File: "search-result.json"}

	var results []SearchResult
	ok, err := c.cache.ReadJSON(ctx, unit, &results)
	if err != nil {
		return nil, err
	}
	if ok {
		c.log.Debug().Str("isin", isin).Msg("Using cached search result")
		return results, nil
	}

	c.log.Info().Str("isin", isin).Str("symbol", symbol).Msg("Searching for stock")

	body, err := c.get(ctx, c.baseURL+"/suggest.json?"+url.Values{"q": {symbol}}.Encode())
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve search result for %s (%s): %w", isin, symbol, err)
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode search result: %w", err)
	}

	if err := c.cache.WriteJSON(ctx, unit, results, time.Time{}); err != nil {
		return nil, err
	}
	return results, nil
}

// StockPage returns the HTML of the company page at path, cached under isin.
func (c *Client) StockPage(ctx context.Context, isin, path string) (string, error) {
	unit := clientdata.Unit{Dir: stockDir(isin), File: "stock-info.html"}

	page, ok, err := c.cache.ReadText(ctx, unit)
	if err != nil {
		return "", err
	}
	if ok {
		c.log.Debug().Str("isin", isin).Msg("Using cached stock page")
		return page, nil
	}

	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("unexpected stock page path %q", path)
	}
	body, err := c.get(ctx, c.baseURL+path)
	if err != nil {
		return "", fmt.Errorf("unable to retrieve stock page for %s: %w", isin, err)
	}

	if err := c.cache.WriteText(ctx, unit, string(body), time.Time{}); err != nil {
		return "", err
	}
	return string(body), nil
}

// parseYield reads the "Dividend Yield" highlight card as a fraction.
func parseYield(page string) (decimal.Decimal, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse stock page: %w", err)
	}

	var card *goquery.Selection
	doc.Find(".landing-card").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(s.Find(".mdc-theme--secondary").First().Text(), "Yield") {
			card = s
			return false
		}
		return true
	})
	if card == nil {
		return decimal.Zero, ErrNoYieldCard
	}

	raw := strings.TrimSpace(card.Find(".mdc-typography--headline3").First().Text())
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	percent, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errNoYieldValue
	}
	return percent.Div(decimal.NewFromInt(100)).Round(8), nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dividendmax error: status %d, body: %s", resp.StatusCode, string(bytes.TrimSpace(truncate(body, 512))))
	}
	return body, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

// SetBaseURL points the client at another endpoint, e.g. a proxy or mirror.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}
