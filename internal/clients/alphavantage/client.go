// Package alphavantage provides a client for the Alpha Vantage API.
// The free tier allows 25 requests per day, so every response is kept in
// the content cache and the daily budget is tracked locally.
package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://www.alphavantage.co/query"
	defaultDailyLimit = 25
)

// DefaultFundamentalsTTL is how long an overview is served from cache.
const DefaultFundamentalsTTL = 24 * time.Hour

// ClientInterface is the subset of the client used outside this package.
type ClientInterface interface {
	GetCompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error)
	GetRemainingRequests() int
}

var _ ClientInterface = (*Client)(nil)

// Client is the Alpha Vantage API client.
type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	limiter         *rate.Limiter
	cache           *clientdata.Cache
	fundamentalsTTL time.Duration
	log             zerolog.Logger

	mu           sync.Mutex
	dailyLimit   int
	requestCount int
	resetAt      time.Time
}

// NewClient creates a new Alpha Vantage client. dailyLimit <= 0 uses the
// free tier budget.
func NewClient(apiKey string, cache *clientdata.Cache, requestsPerMinute, dailyLimit int, log zerolog.Logger) *Client {
	if dailyLimit <= 0 {
		dailyLimit = defaultDailyLimit
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
		limiter:         limiter,
		cache:           cache,
		fundamentalsTTL: DefaultFundamentalsTTL,
		log:             log.With().Str("client", "alphavantage").Logger(),
		dailyLimit:      dailyLimit,
		resetAt:         nextMidnightUTC(),
	}
}

// SetFundamentalsTTL overrides how long overviews stay cached.
func (c *Client) SetFundamentalsTTL(ttl time.Duration) {
	c.fundamentalsTTL = ttl
}

// GetRemainingRequests returns the requests left in today's budget.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeResetLocked()
	return c.dailyLimit - c.requestCount
}

// ResetDailyCounter restores the full daily budget.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestCount = 0
	c.resetAt = nextMidnightUTC()
}

// checkRateLimit consumes one request from the daily budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maybeResetLocked()
	if c.requestCount >= c.dailyLimit {
		return ErrRateLimitExceeded{}
	}
	c.requestCount++
	return nil
}

func (c *Client) maybeResetLocked() {
	if !time.Now().Before(c.resetAt) {
		c.requestCount = 0
		c.resetAt = nextMidnightUTC()
	}
}

func nextMidnightUTC() time.Time {
	return clientdata.NextDay(time.Now())
}

// GetCompanyOverview returns the OVERVIEW record for symbol.
func (c *Client) GetCompanyOverview(ctx context.Context, symbol string) (*CompanyOverview, error) {
	symbol = strings.ToUpper(symbol)
	unit := clientdata.Unit{Dir: "alphavantage/overview/" + symbol, File: "overview.json"}

	if cached, ok, err := c.cache.Read(ctx, unit); err != nil {
		return nil, err
	} else if ok {
		c.log.Debug().Str("symbol", symbol).Msg("Using cached company overview")
		return parseCompanyOverview(cached)
	}

	body, err := c.doRequest(ctx, url.Values{"function": {"OVERVIEW"}, "symbol": {symbol}})
	if err != nil {
		return nil, err
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("{}")) {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	overview, err := parseCompanyOverview(body)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Write(ctx, unit, body, time.Now().Add(c.fundamentalsTTL)); err != nil {
		return nil, err
	}
	return overview, nil
}

func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Set("apikey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.log.Debug().Str("function", params.Get("function")).Int("remaining", c.GetRemainingRequests()).Msg("Making Alpha Vantage request")

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
		return nil, fmt.Errorf("alpha vantage API error: status %d", resp.StatusCode)
	}
	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkAPIError detects errors Alpha Vantage reports with a 200 status.
func (c *Client) checkAPIError(body []byte) error {
	if bytes.Contains(body, []byte("Thank you for using Alpha Vantage")) {
		return ErrRateLimitExceeded{}
	}

	var msg struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil
	}

	switch {
	case msg.Note != "":
		return ErrRateLimitExceeded{}
	case msg.Information != "":
		if strings.Contains(strings.ToLower(msg.Information), "api key") {
			return ErrInvalidAPIKey{}
		}
		return ErrRateLimitExceeded{}
	case msg.ErrorMessage != "":
		if strings.Contains(strings.ToLower(msg.ErrorMessage), "apikey") {
			return ErrInvalidAPIKey{}
		}
		return fmt.Errorf("alpha vantage API error: %s", msg.ErrorMessage)
	}
	return nil
}

// SetBaseURL points the client at another endpoint, e.g. a proxy or mirror.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}
