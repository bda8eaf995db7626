package alphavantage

import "fmt"

// ErrRateLimitExceeded is returned when the daily request budget is spent or
// the API reports throttling.
type ErrRateLimitExceeded struct{}

func (e ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded"
}

// ErrInvalidAPIKey is returned when the API rejects the key.
type ErrInvalidAPIKey struct{}

func (e ErrInvalidAPIKey) Error() string {
	return "alpha vantage: invalid API key"
}

// ErrSymbolNotFound is returned when the API has no data for a symbol.
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("alpha vantage: symbol not found: %s", e.Symbol)
}
