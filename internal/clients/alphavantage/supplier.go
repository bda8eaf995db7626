package alphavantage

import (
	"context"
	"fmt"

	"github.com/aristath/dividends/internal/domain"
	"github.com/shopspring/decimal"
)

// Name is the supplier name used in configuration.
const Name = "alphavantage"

var _ domain.DividendFetcher = (*Client)(nil)

func (c *Client) Name() string {
	return Name
}

// FetchDividend looks the instrument up by symbol. A missing or zero yield
// means the company pays no dividend.
func (c *Client) FetchDividend(ctx context.Context, instrument domain.Instrument) (*domain.Dividend, error) {
	if instrument.Symbol == "" {
		return nil, fmt.Errorf("alphavantage needs a symbol for %s", instrument.ISIN)
	}

	c.log.Info().Str("isin", instrument.ISIN).Str("symbol", instrument.Symbol).Msg("Fetching dividend information")

	overview, err := c.GetCompanyOverview(ctx, instrument.Symbol)
	if err != nil {
		return nil, err
	}

	y := overview.DividendYield
	if y == nil || *y <= 0 {
		return nil, &domain.NotEligibleError{Supplier: Name, ISIN: instrument.ISIN}
	}

	return &domain.Dividend{DividendYield: decimal.NewFromFloat(*y).Round(8)}, nil
}
