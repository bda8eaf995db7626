// Package ft provides a client for the Financial Times securities web
// services, used for trailing dividend yields.
package ft

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
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://markets.ft.com/research/webservices/securities/v1"

// goButtonSelector matches the docs "Go" button whose link carries the demo key.
const goButtonSelector = ".mod-api-example__go-btn"

// ErrNoDemoKey is returned when the docs page carries no usable key.
var ErrNoDemoKey = errors.New("ft: no demo key found in API docs")

// Security is one item of the dividends response.
type Security struct {
	SymbolInput string `json:"symbolInput"`
	Basic       struct {
		Symbol       string `json:"symbol"`
		Name         string `json:"name"`
		Exchange     string `json:"exchange"`
		ExchangeCode string `json:"exhangeCode"` // sic, as served
		Currency     string `json:"currency"`
	} `json:"basic"`
	DividendData DividendData `json:"dividendData"`
}

// DividendData holds yields in percent.
type DividendData struct {
	YieldTTM  *float64 `json:"yield_TTM,omitempty"`
	Growth    *float64 `json:"growth,omitempty"`
	SmartText string   `json:"smartText,omitempty"`
}

type dividendsResponse struct {
	Data struct {
		Items []Security `json:"items"`
	} `json:"data"`
}

// Client is the FT API client.
type Client struct {
	baseURL    string
	apiKey     string // when empty the public demo key is scraped from the docs
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *clientdata.Cache
	now        func() time.Time
	log        zerolog.Logger
}

// NewClient creates a new FT client.
func NewClient(apiKey string, cache *clientdata.Cache, requestsPerMinute int, log zerolog.Logger) *Client {
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
		now:     time.Now,
		log:     log.With().Str("client", "ft").Logger(),
	}
}

var demoKeyUnit = clientdata.Unit{Dir: "ft/demo-key", File: "demo-key.txt"}

// key returns the configured API key or the demo key, cached until
// the next UTC midnight.
func (c *Client) key(ctx context.Context) (string, error) {
	if c.apiKey != "" {
		return c.apiKey, nil
	}

	cached, ok, err := c.cache.ReadText(ctx, demoKeyUnit)
	if err != nil {
		return "", err
	}
	if ok && cached != "" {
		return cached, nil
	}

	c.log.Info().Msg("Fetching demo key from API docs")

	body, err := c.get(ctx, c.baseURL+"/docs")
	if err != nil {
		return "", fmt.Errorf("couldn't load FT API docs: %w", err)
	}
	key, err := extractDemoKey(body)
	if err != nil {
		return "", err
	}

	if err := c.cache.WriteText(ctx, demoKeyUnit, key, clientdata.NextDay(c.now())); err != nil {
		return "", err
	}
	return key, nil
}

func extractDemoKey(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse API docs: %w", err)
	}
	href, ok := doc.Find(goButtonSelector).First().Attr("href")
	if !ok || href == "" {
		return "", ErrNoDemoKey
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDemoKey, err)
	}
	source := u.Query().Get("source")
	if source == "" {
		return "", ErrNoDemoKey
	}
	return source, nil
}

// Security returns the dividend record FT holds for isin.
func (c *Client) Security(ctx context.Context, isin string) (*Security, error) {
	unit := clientdata.Unit{Dir: "ft/securities/" + isin, File: "security.json"}

	var security Security
	ok, err := c.cache.ReadJSON(ctx, unit, &security)
	if err != nil {
		return nil, err
	}
	if ok {
		c.log.Debug().Str("isin", isin).Msg("Using cached security")
		return &security, nil
	}

	key, err := c.key(ctx)
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("isin", isin).Msg("Searching for security")

	query := url.Values{"symbols": {isin}, "source": {key}}
	body, err := c.get(ctx, c.baseURL+"/dividends?"+query.Encode())
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve security %s: %w", isin, err)
	}

	var resp dividendsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(resp.Data.Items) == 0 {
		return nil, fmt.Errorf("no results from ft for %s", isin)
	}

	security = resp.Data.Items[0]
	if err := c.cache.WriteJSON(ctx, unit, security, time.Time{}); err != nil {
		return nil, err
	}
	return &security, nil
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
		if len(body) > 512 {
			body = body[:512]
		}
		return nil, fmt.Errorf("ft API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// SetBaseURL points the client at another endpoint, e.g. a proxy or mirror.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}
