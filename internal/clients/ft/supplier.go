package ft

import (
	"context"

	"github.com/aristath/dividends/internal/domain"
	"github.com/shopspring/decimal"
)

// Name is the supplier name used in configuration.
const Name = "ft"

var _ domain.DividendFetcher = (*Client)(nil)

func (c *Client) Name() string {
	return Name
}

// FetchDividend reads the trailing twelve month yield. A security without
// one pays no dividend.
func (c *Client) FetchDividend(ctx context.Context, instrument domain.Instrument) (*domain.Dividend, error) {
	c.log.Info().Str("isin", instrument.ISIN).Msg("Fetching dividend information")

	security, err := c.Security(ctx, instrument.ISIN)
	if err != nil {
		return nil, err
	}

	y := security.DividendData.YieldTTM
	if y == nil {
		return nil, &domain.NotEligibleError{Supplier: Name, ISIN: instrument.ISIN}
	}

	c.log.Debug().Float64("yield_ttm", *y).Str("isin", instrument.ISIN).Msg("Dividend data received")

	return &domain.Dividend{
		DividendYield: decimal.NewFromFloat(*y).Div(decimal.NewFromInt(100)).Round(8),
	}, nil
}
