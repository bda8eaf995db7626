package dividendmax

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/dividends/internal/domain"
)

// Name is the supplier name used in configuration.
const Name = "dividendmax"

var _ domain.DividendFetcher = (*Client)(nil)

func (c *Client) Name() string {
	return Name
}

// FetchDividend finds the instrument by ticker and reads the yield from its
// company page. A page whose yield card carries no number pays no dividend.
func (c *Client) FetchDividend(ctx context.Context, instrument domain.Instrument) (*domain.Dividend, error) {
	c.log.Info().Str("isin", instrument.ISIN).Msg("Fetching dividend information")

	results, err := c.Search(ctx, instrument.ISIN, instrument.Symbol)
	if err != nil {
		return nil, err
	}

	var match *SearchResult
	for i := range results {
		if strings.EqualFold(results[i].Ticker, instrument.Symbol) {
			match = &results[i]
			break
		}
	}
	if match == nil {
		return nil, fmt.Errorf("unable to find instrument on dividendmax: %s (%s)", instrument.ISIN, instrument.Symbol)
	}

	page, err := c.StockPage(ctx, instrument.ISIN, match.Path)
	if err != nil {
		return nil, err
	}

	yield, err := parseYield(page)
	if errors.Is(err, errNoYieldValue) {
		return nil, &domain.NotEligibleError{Supplier: Name, ISIN: instrument.ISIN}
	}
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("yield", yield.String()).Str("isin", instrument.ISIN).Msg("Dividend data received")

	return &domain.Dividend{DividendYield: yield}, nil
}
