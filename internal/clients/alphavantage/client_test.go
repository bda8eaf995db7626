package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/dividends/internal/clientdata"
	"github.com/aristath/dividends/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ibmOverview = `{
	"Symbol": "IBM",
	"AssetType": "Common Stock",
	"Name": "International Business Machines",
	"Exchange": "NYSE",
	"Currency": "USD",
	"Country": "USA",
	"Sector": "Technology",
	"MarketCapitalization": "125000000000",
	"DividendPerShare": "6.64",
	"DividendYield": "0.0485",
	"ExDividendDate": "2026-02-09"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	backend, err := clientdata.NewFSBackend(t.TempDir())
	require.NoError(t, err)
	client := NewClient("test-key", clientdata.NewCache(backend, nil, zerolog.Nop()), 0, 0, zerolog.Nop())
	if handler != nil {
		server := httptest.NewServer(handler)
		t.Cleanup(server.Close)
		client.baseURL = server.URL
	}
	return client
}

// TestNewClient tests client creation.
func TestNewClient(t *testing.T) {
	client := NewClient("test-key", nil, 0, 0, zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, 25, client.GetRemainingRequests())
	assert.Equal(t, DefaultFundamentalsTTL, client.fundamentalsTTL)

	custom := NewClient("test-key", nil, 0, 500, zerolog.Nop())
	assert.Equal(t, 500, custom.GetRemainingRequests())
}

// TestRateLimiting tests the daily budget.
func TestRateLimiting(t *testing.T) {
	client := NewClient("test-key", nil, 0, 0, zerolog.Nop())

	for i := 0; i < 25; i++ {
		assert.Equal(t, 25-i, client.GetRemainingRequests())
		require.NoError(t, client.checkRateLimit())
	}

	err := client.checkRateLimit()
	assert.Error(t, err)
	assert.IsType(t, ErrRateLimitExceeded{}, err)
}

// TestResetDailyCounter tests counter reset.
func TestResetDailyCounter(t *testing.T) {
	client := NewClient("test-key", nil, 0, 0, zerolog.Nop())

	for i := 0; i < 10; i++ {
		_ = client.checkRateLimit()
	}
	assert.Equal(t, 15, client.GetRemainingRequests())

	client.ResetDailyCounter()
	assert.Equal(t, 25, client.GetRemainingRequests())
}

func TestCounterResetsAfterMidnight(t *testing.T) {
	client := NewClient("test-key", nil, 0, 0, zerolog.Nop())
	for i := 0; i < 25; i++ {
		require.NoError(t, client.checkRateLimit())
	}

	client.mu.Lock()
	client.resetAt = time.Now().Add(-time.Second)
	client.mu.Unlock()

	assert.NoError(t, client.checkRateLimit())
	assert.Equal(t, 24, client.GetRemainingRequests())
}

// TestParseFloat64 tests float parsing.
func TestParseFloat64(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"123.45", 123.45},
		{"0", 0},
		{"None", 0},
		{"", 0},
		{"null", 0},
		{"-", 0},
		{"50.5%", 50.5},
		{"invalid", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseFloat64(tt.input))
		})
	}
}

// TestParseFloat64Ptr tests nullable float parsing.
func TestParseFloat64Ptr(t *testing.T) {
	tests := []struct {
		input    string
		isNil    bool
		expected float64
	}{
		{"123.45", false, 123.45},
		{"None", true, 0},
		{"", true, 0},
		{"null", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseFloat64Ptr(tt.input)
			if tt.isNil {
				assert.Nil(t, result)
			} else {
				require.NotNil(t, result)
				assert.Equal(t, tt.expected, *result)
			}
		})
	}
}

// TestParseCompanyOverview tests company overview parsing.
func TestParseCompanyOverview(t *testing.T) {
	overview, err := parseCompanyOverview([]byte(ibmOverview))
	require.NoError(t, err)

	assert.Equal(t, "IBM", overview.Symbol)
	assert.Equal(t, "Common Stock", overview.AssetType)
	assert.Equal(t, "International Business Machines", overview.Name)
	assert.Equal(t, "NYSE", overview.Exchange)
	assert.Equal(t, "USD", overview.Currency)
	assert.Equal(t, int64(125000000000), overview.MarketCapitalization)
	require.NotNil(t, overview.DividendYield)
	assert.Equal(t, 0.0485, *overview.DividendYield)
	require.NotNil(t, overview.DividendPerShare)
	assert.Equal(t, 6.64, *overview.DividendPerShare)
	assert.Equal(t, "2026-02-09", overview.ExDividendDate)
}

func TestParseCompanyOverview_NoDividend(t *testing.T) {
	overview, err := parseCompanyOverview([]byte(`{"Symbol":"AMZN","DividendYield":"None","ExDividendDate":"None"}`))
	require.NoError(t, err)
	assert.Nil(t, overview.DividendYield)
	assert.Empty(t, overview.ExDividendDate)
}

// TestErrorTypes tests error type implementations.
func TestErrorTypes(t *testing.T) {
	t.Run("ErrRateLimitExceeded", func(t *testing.T) {
		assert.Contains(t, ErrRateLimitExceeded{}.Error(), "rate limit")
	})

	t.Run("ErrInvalidAPIKey", func(t *testing.T) {
		assert.Contains(t, ErrInvalidAPIKey{}.Error(), "invalid")
	})

	t.Run("ErrSymbolNotFound", func(t *testing.T) {
		assert.Contains(t, ErrSymbolNotFound{Symbol: "XYZ"}.Error(), "XYZ")
	})
}

// TestAPIErrorDetection tests detection of API error responses.
func TestAPIErrorDetection(t *testing.T) {
	client := NewClient("test-key", nil, 0, 0, zerolog.Nop())

	tests := []struct {
		name        string
		body        string
		expectError bool
		errorType   error
	}{
		{
			name:        "Rate limit message",
			body:        `{"Note": "API call frequency is limited"}`,
			expectError: true,
			errorType:   ErrRateLimitExceeded{},
		},
		{
			name:        "Information message",
			body:        `{"Information": "Our standard API rate limit is 25 requests per day."}`,
			expectError: true,
			errorType:   ErrRateLimitExceeded{},
		},
		{
			name:        "Invalid key",
			body:        `{"Error Message": "the parameter apikey is invalid or missing."}`,
			expectError: true,
			errorType:   ErrInvalidAPIKey{},
		},
		{
			name:        "Error message",
			body:        `{"Error Message": "Invalid symbol"}`,
			expectError: true,
		},
		{
			name:        "Thank you message",
			body:        `Thank you for using Alpha Vantage!`,
			expectError: true,
			errorType:   ErrRateLimitExceeded{},
		},
		{
			name:        "Valid response",
			body:        `{"data": "valid"}`,
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.checkAPIError([]byte(tt.body))
			if !tt.expectError {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			if tt.errorType != nil {
				assert.IsType(t, tt.errorType, err)
			}
		})
	}
}

// TestNextMidnightUTC tests the midnight calculation.
func TestNextMidnightUTC(t *testing.T) {
	midnight := nextMidnightUTC()

	now := time.Now().UTC()
	assert.True(t, midnight.After(now))
	assert.Equal(t, 0, midnight.Hour())
	assert.Equal(t, 0, midnight.Minute())
	assert.Equal(t, 0, midnight.Second())
}

func TestGetCompanyOverview_CachedAndCountsBudget(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "OVERVIEW", r.URL.Query().Get("function"))
		assert.Equal(t, "IBM", r.URL.Query().Get("symbol"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(ibmOverview))
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		overview, err := client.GetCompanyOverview(ctx, "ibm")
		require.NoError(t, err)
		assert.Equal(t, "IBM", overview.Symbol)
	}

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 24, client.GetRemainingRequests())
}

func TestGetCompanyOverview_EmptyObjectIsUnknownSymbol(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.GetCompanyOverview(context.Background(), "NOPE")
	assert.Equal(t, ErrSymbolNotFound{Symbol: "NOPE"}, err)
}

func TestGetCompanyOverview_BudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(ibmOverview))
	})
	for i := 0; i < 25; i++ {
		require.NoError(t, client.checkRateLimit())
	}

	_, err := client.GetCompanyOverview(context.Background(), "IBM")
	assert.IsType(t, ErrRateLimitExceeded{}, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestFetchDividend(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(ibmOverview))
	})

	dividend, err := client.FetchDividend(context.Background(), domain.Instrument{ISIN: "US4592001014", Symbol: "IBM"})
	require.NoError(t, err)
	assert.Equal(t, "0.0485", dividend.DividendYield.String())
}

func TestFetchDividend_NoYieldIsNotEligible(t *testing.T) {
	for _, body := range []string{
		`{"Symbol":"AMZN","DividendYield":"None"}`,
		`{"Symbol":"AMZN","DividendYield":"0"}`,
	} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		_, err := client.FetchDividend(context.Background(), domain.Instrument{ISIN: "US0231351067", Symbol: "AMZN"})

		var notEligible *domain.NotEligibleError
		require.True(t, errors.As(err, &notEligible), body)
		assert.Equal(t, Name, notEligible.Supplier)
	}
}

func TestFetchDividend_RequiresSymbol(t *testing.T) {
	client := newTestClient(t, nil)

	_, err := client.FetchDividend(context.Background(), domain.Instrument{ISIN: "US4592001014"})
	require.Error(t, err)

	var notEligible *domain.NotEligibleError
	assert.False(t, errors.As(err, &notEligible))
}

// BenchmarkParseFloat64 benchmarks float parsing.
func BenchmarkParseFloat64(b *testing.B) {
	for i := 0; i < b.N; i++ {
		parseFloat64("123.456789")
	}
}

// TestInterfaceImplementation verifies Client implements the capability interfaces.
func TestInterfaceImplementation(t *testing.T) {
	var _ ClientInterface = (*Client)(nil)
	assert.Equal(t, []domain.Capability{domain.CapabilityResolveDividend}, domain.CapabilitiesOf(NewClient("", nil, 0, 0, zerolog.Nop())))
}
